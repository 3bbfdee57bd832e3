package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/packages"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
	"github.com/zenprocess/open-lovable-cf/internal/session"
)

// InstallResult is the outcome of one package installation.
type InstallResult struct {
	Installed []string
	Already   []string
	Failed    []string

	// Err is set when npm could not be run or exited non-zero.
	Err error
}

// Installer installs packages into a session's sandbox and reports each
// step as package-progress events.
type Installer struct {
	// RestartDevServer stops the dev server before installing and starts
	// it again afterwards.
	RestartDevServer bool

	Logger *slog.Logger
}

func (in *Installer) logger() *slog.Logger {
	return logging.OrDefault(in.Logger)
}

// Install resolves which of names are missing and installs them. It never
// returns early on a failed step; the dev server is always restarted when
// configured.
func (in *Installer) Install(ctx context.Context, sess *session.Session, names []string, sink progress.Sink) InstallResult {
	var res InstallResult
	exec := sess.Executor()
	emit := func(status, msg string) {
		sink.Emit(progress.PackageProgress{Status: status, Message: msg})
	}

	sink.Emit(progress.PackageProgress{
		Status:   progress.PackageStart,
		Message:  fmt.Sprintf("Installing %d package%s...", len(names), plural(len(names))),
		Packages: names,
	})

	valid, rejected := packages.FilterValid(names)
	if len(rejected) > 0 {
		res.Failed = append(res.Failed, rejected...)
		emit(progress.PackageWarning, "Skipping invalid package names: "+strings.Join(rejected, ", "))
	}

	if in.RestartDevServer {
		emit(progress.PackageStatus, "Stopping development server...")
		if _, err := exec.RunCommand(ctx, sandbox.StopDevServerCmd); err != nil {
			in.logger().Warn("failed to stop dev server", "error", err)
		}
	}

	emit(progress.PackageStatus, "Checking installed packages...")
	already, need := packages.Split(ctx, exec, valid)
	res.Already = already
	if len(already) > 0 {
		emit(progress.PackageInfo, "Already installed: "+strings.Join(already, ", "))
	}

	if len(need) == 0 {
		if len(valid) > 0 {
			emit(progress.PackageSuccess, "All packages are already installed")
		}
		in.restart(ctx, sess, sink)
		return res
	}

	emit(progress.PackageInfo, fmt.Sprintf("Installing %d new package%s: %s", len(need), plural(len(need)), strings.Join(need, ", ")))

	out, err := exec.InstallPackages(ctx, need)
	switch {
	case err != nil:
		res.Err = err
		res.Failed = append(res.Failed, need...)
		emit(progress.PackageError, "Package installation failed: "+err.Error())
	default:
		for _, line := range packages.Classify(out.Stdout, out.Stderr) {
			emit(line.Level, line.Text)
		}
		if out.Success() {
			res.Installed = need
			sink.Emit(progress.PackageProgress{
				Status:            progress.PackageSuccess,
				Message:           "Successfully installed: " + strings.Join(need, ", "),
				InstalledPackages: need,
			})
		} else {
			res.Err = fmt.Errorf("npm install exited with code %d", out.ExitCode)
			res.Failed = append(res.Failed, need...)
			emit(progress.PackageError, "Package installation failed")
		}
	}

	in.restart(ctx, sess, sink)
	return res
}

// restart starts the dev server again after Install stopped it. The
// session cooldown does not apply: the server is down either way.
func (in *Installer) restart(ctx context.Context, sess *session.Session, sink progress.Sink) {
	if !in.RestartDevServer {
		return
	}
	sink.Emit(progress.PackageProgress{Status: progress.PackageStatus, Message: "Restarting development server..."})
	if err := sess.ForceRestartDevServer(ctx); err != nil {
		in.logger().Warn("dev server restart failed", "sandbox", sess.ID, "error", err)
		sink.Emit(progress.PackageProgress{Status: progress.PackageError, Message: "Failed to restart dev server: " + err.Error()})
		return
	}
	sink.Emit(progress.PackageProgress{Status: progress.PackageComplete, Message: "Dev server restarted!"})
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
