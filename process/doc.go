/*
Package process runs external commands on the local host, either captured (stdout and stderr are
collected and the exit code is returned) or detached (the child is started in its own session and
outlives the caller).

Captured runs drain both output streams concurrently, so a child that fills one pipe while the
other is still open never blocks.
*/
package process
