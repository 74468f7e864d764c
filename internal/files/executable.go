package files

import (
	"os"
	"path/filepath"
)

// IsExecutable reports whether path is a regular file with an execute bit set.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}

// Executables filters candidates down to existing executables, dropping empty and duplicate paths.
// Order is preserved.
func Executables(candidates ...string) []string {
	seen := map[string]bool{}
	var found []string
	for _, c := range candidates {
		if c == "" {
			continue
		}
		c = filepath.Clean(c)
		if seen[c] {
			continue
		}
		seen[c] = true
		if IsExecutable(c) {
			found = append(found, c)
		}
	}
	return found
}
