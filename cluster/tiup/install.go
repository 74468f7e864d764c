package tiup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/guseggert/playground/process"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	DefaultInstallURL = "https://tiup-mirrors.pingcap.com/install.sh"

	installedPathPrefix = "Installed path: "
	maxScriptBytes      = 1 << 20
)

type logAdapter struct {
	*zap.SugaredLogger
}

func (a *logAdapter) Printf(msg string, args ...interface{}) { a.Debugf(msg, args...) }

// Installer fetches the upstream install script and runs it with sh.
type Installer struct {
	URL        string
	HTTPClient *retryablehttp.Client
	Runner     process.Runner
	Log        *zap.SugaredLogger
}

func NewInstaller(runner process.Runner, log *zap.SugaredLogger) *Installer {
	log = log.Named("tiup_installer")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 5
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = &logAdapter{SugaredLogger: log}

	return &Installer{
		URL:        DefaultInstallURL,
		HTTPClient: retryClient,
		Runner:     runner,
		Log:        log,
	}
}

func (i *Installer) fetchScript(ctx context.Context) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, i.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := i.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Install runs the install script and returns the directory holding the installed tiup binary.
func (i *Installer) Install(ctx context.Context) (string, error) {
	i.Log.Infow("installing tiup", "URL", i.URL)
	script, err := i.fetchScript(ctx)
	if err != nil {
		return "", &InstallError{Reason: "fetching " + i.URL, Err: err}
	}

	res, err := i.Runner.Run(ctx, process.Request{
		Command: "sh",
		Stdin:   strings.NewReader(script),
	})
	if err != nil {
		return "", &InstallError{Reason: "running install script", Err: err}
	}
	if res.ExitCode != 0 {
		return "", &InstallError{Reason: fmt.Sprintf("install script exited with code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))}
	}

	bin := parseInstalledPath(res.Stdout)
	if bin == "" {
		return "", &InstallError{Reason: "cannot extract installed path"}
	}
	i.Log.Debugw("tiup installed", "Bin", bin)
	return filepath.Dir(bin), nil
}

func parseInstalledPath(stdout string) string {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, installedPathPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, installedPathPrefix))
		}
	}
	return ""
}
