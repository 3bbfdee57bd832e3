package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/zenprocess/open-lovable-cf/internal/app"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
	"github.com/zenprocess/open-lovable-cf/internal/reconcile"
	"github.com/zenprocess/open-lovable-cf/internal/session"
	"github.com/zenprocess/open-lovable-cf/internal/tui"
)

var applyCmd = &cobra.Command{
	Use:   "apply [file|-]",
	Short: "Apply an AI response to a new sandbox",
	Long: `Apply an AI response to a locally provisioned sandbox.

The response is read from the file argument, or from stdin when the
argument is "-" or omitted. A fresh sandbox is created for the run and
destroyed afterwards unless --keep is given.

Progress is printed as text, as newline-delimited JSON events (--json),
or in an interactive view (--tui). With --dry-run the response is only
parsed and nothing is provisioned.

With --watch the file is re-applied to the same sandbox every time it
is written, until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

var (
	applyJSON     bool
	applyTUI      bool
	applyEdit     bool
	applyDryRun   bool
	applyWatch    bool
	applyKeep     bool
	applyPackages []string
)

// watchDebounce coalesces the bursts of events editors emit on save.
const watchDebounce = 200 * time.Millisecond

func init() {
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "Print events as newline-delimited JSON")
	applyCmd.Flags().BoolVar(&applyTUI, "tui", false, "Show progress in an interactive view")
	applyCmd.Flags().BoolVar(&applyEdit, "edit", false, "Treat the response as an edit of the existing app")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Parse the response without provisioning a sandbox")
	applyCmd.Flags().BoolVar(&applyWatch, "watch", false, "Re-apply the file whenever it changes")
	applyCmd.Flags().BoolVar(&applyKeep, "keep", false, "Keep the sandbox running after the command exits")
	applyCmd.Flags().StringSliceVar(&applyPackages, "packages", nil, "Extra packages to install (comma-separated)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	if applyJSON && applyTUI {
		return errors.ValidationError("--json and --tui cannot be combined")
	}
	if applyWatch && path == "-" {
		return errors.ValidationError("--watch requires a file argument")
	}
	if applyWatch && applyDryRun {
		return errors.ValidationError("--watch cannot be combined with --dry-run")
	}

	text, err := readResponse(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	a, err := getApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sess *session.Session
	if !applyDryRun {
		status(cmd, "Creating sandbox...")
		sess, err = a.Manager.Create(ctx)
		if err != nil {
			return err
		}
		if applyKeep {
			status(cmd, "Sandbox %s running at %s", sess.ID, sess.Info().URL)
		} else {
			defer func() {
				if err := a.Close(context.WithoutCancel(ctx)); err != nil {
					logWarning("Failed to destroy sandbox: %v", err)
				}
			}()
		}
	}

	runErr := applyOnce(ctx, cmd.OutOrStdout(), a, sess, text)
	if !applyWatch {
		return runErr
	}
	if runErr != nil {
		logError("%v", runErr)
	}

	status(cmd, "Watching %s for changes (Ctrl+C to stop)", path)
	return watchFile(ctx, path, func() {
		text, err := readResponse(nil, path)
		if err != nil {
			logError("%v", err)
			return
		}
		if err := applyOnce(ctx, cmd.OutOrStdout(), a, sess, text); err != nil {
			logError("%v", err)
		}
	})
}

// status prints a user-facing line unless stdout carries JSON events.
func status(cmd *cobra.Command, format string, args ...any) {
	if applyJSON {
		logging.Info(fmt.Sprintf(format, args...))
		return
	}
	logInfo(format, args...)
}

// readResponse reads the response text from path, or from stdin for "-".
func readResponse(stdin io.Reader, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if len(data) == 0 {
		return "", errors.ValidationError("response is empty")
	}
	return string(data), nil
}

// applyOnce runs one reconciliation and renders its events to w. It
// returns an error when the run ended with an error event or recorded
// per-item failures.
func applyOnce(ctx context.Context, w io.Writer, a *app.App, sess *session.Session, text string) error {
	req := reconcile.Request{
		ResponseText:     text,
		EditMode:         applyEdit,
		ExplicitPackages: applyPackages,
	}

	var final progress.Event
	if applyTUI {
		var err error
		final, err = applyWithTUI(ctx, a, sess, req)
		if err != nil {
			return err
		}
	} else {
		sink := progress.SinkFunc(func(e progress.Event) {
			if progress.IsTerminal(e) {
				final = e
			}
			writeEvent(w, e)
		})
		a.Orchestrator.Apply(ctx, req, sess, sink)
	}
	return runOutcome(final)
}

func writeEvent(w io.Writer, e progress.Event) {
	if applyJSON {
		if err := progress.Encode(w, e, progress.NDJSON); err != nil {
			logging.Debug("failed to write event", "error", err)
		}
		return
	}
	if line, ok := tui.FormatEvent(e); ok {
		fmt.Fprintln(w, line)
	}
}

// applyWithTUI runs the reconciliation in the background and shows it in
// the progress view. If the user detaches, the run still completes.
func applyWithTUI(ctx context.Context, a *app.App, sess *session.Session, req reconcile.Request) (progress.Event, error) {
	events := make(chan progress.Event, 64)
	sink := progress.NewAsyncSink(progress.DefaultBuffer, func(e progress.Event) error {
		events <- e
		return nil
	})

	var final progress.Event
	record := progress.SinkFunc(func(e progress.Event) {
		if progress.IsTerminal(e) {
			final = e
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Orchestrator.Apply(ctx, req, sess, progress.Tee(sink, record))
		_ = sink.Close()
		close(events)
	}()

	shown, err := tui.RunProgress(events)
	if shown == nil {
		go func() {
			for range events {
			}
		}()
	}
	<-done
	if err != nil {
		return nil, err
	}
	return final, nil
}

// runOutcome maps the terminal event of a run to the command's result.
func runOutcome(final progress.Event) error {
	switch e := final.(type) {
	case progress.Error:
		return errors.New(errors.ExitGeneralError, e.Error)
	case progress.Complete:
		if e.Results != nil && len(e.Results.Errors) > 0 {
			return errors.New(errors.ExitGeneralError, fmt.Sprintf("run finished with %d errors", len(e.Results.Errors)))
		}
		return nil
	case nil:
		return errors.New(errors.ExitGeneralError, "run ended without a result")
	}
	return nil
}

// watchFile calls fn after each burst of writes to path until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are still seen.
func watchFile(ctx context.Context, path string, fn func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				fire = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			fn()
		}
	}
}
