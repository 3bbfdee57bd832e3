package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zenprocess/open-lovable-cf/internal/audit"
	"github.com/zenprocess/open-lovable-cf/internal/edits"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/mirror"
	"github.com/zenprocess/open-lovable-cf/internal/packages"
	"github.com/zenprocess/open-lovable-cf/internal/parser"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
	"github.com/zenprocess/open-lovable-cf/internal/project"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
	"github.com/zenprocess/open-lovable-cf/internal/session"
)

// TotalSteps is the step count announced by the start event.
const TotalSteps = 3

// Result is the accumulated outcome of one run.
type Result = progress.Results

// Request is one AI turn to reconcile.
type Request struct {
	ResponseText     string   `json:"response"`
	EditMode         bool     `json:"isEdit"`
	ExplicitPackages []string `json:"packages"`
	TargetID         string   `json:"sandboxId,omitempty"`
}

// Orchestrator applies parsed AI responses to a session's sandbox. The
// zero value works: no precision edits, no mirror, no history.
type Orchestrator struct {
	// Applier handles <edit> blocks. Nil disables precision edits.
	Applier edits.Applier

	// Mirror receives a copy of every written file.
	Mirror *mirror.Mirror

	// History records a summary of each run.
	History audit.Recorder

	// Installer runs the install stage. Nil uses an Installer that does
	// not restart the dev server.
	Installer *Installer

	Logger *slog.Logger

	// NewRunID is used to tag log lines and history. Defaults to a UUID.
	NewRunID func() string
}

// run is the state of one Apply call.
type run struct {
	o       *Orchestrator
	id      string
	logger  *slog.Logger
	sink    *terminalSink
	sess    *session.Session
	exec    sandbox.Executor
	parsed  *parser.Response
	results *Result
	written map[string]bool
}

// Apply parses req.ResponseText and reconciles the session's sandbox with
// it. Stages run strictly in order: install, precision edits, file writes,
// commands. Per-item failures are recorded in the result and do not stop
// the run. Exactly one terminal event (complete or error) is emitted to
// sink, even if the pipeline panics.
//
// When sess is nil or not active the response is parsed and returned with
// no side effects.
func (o *Orchestrator) Apply(ctx context.Context, req Request, sess *session.Session, sink progress.Sink) (result *Result) {
	if sink == nil {
		sink = progress.Discard
	}
	r := &run{
		o:       o,
		id:      o.runID(),
		sink:    &terminalSink{next: sink},
		sess:    sess,
		results: progress.NewResults(),
		written: make(map[string]bool),
	}
	r.logger = logging.OrDefault(o.Logger).With("component", "reconcile", "run", r.id)
	result = r.results

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("reconciliation panicked", "panic", p, "stack", string(debug.Stack()))
			msg := fmt.Sprintf("internal error: %v", p)
			r.results.Errors = append(r.results.Errors, msg)
			r.fail(msg)
		}
		r.sink.ensureTerminal()
	}()

	r.parsed = parser.Parse(req.ResponseText)
	r.logger.Debug("parsed response",
		"files", len(r.parsed.Files),
		"packages", len(r.parsed.Packages),
		"commands", len(r.parsed.Commands))

	if !sess.Active() {
		r.dryRun(req)
		return result
	}

	release, err := sess.BeginRun()
	if err != nil {
		r.fail(err.Error())
		return result
	}
	defer release()
	r.exec = sess.Executor()

	r.execute(ctx, req)
	return result
}

func (o *Orchestrator) runID() string {
	if o.NewRunID != nil {
		return o.NewRunID()
	}
	return uuid.NewString()
}

func (r *run) emit(e progress.Event) {
	r.sink.Emit(e)
}

func (r *run) fail(msg string) {
	r.emit(progress.Error{Error: msg})
	r.record(audit.EventError, msg)
}

func (r *run) dryRun(req Request) {
	resolved := packages.Resolve(req.ExplicitPackages, r.parsed.Packages)
	r.logger.Info("no active sandbox, returning parse result only", "files", len(r.parsed.Files))
	r.emit(progress.Start{Message: "Starting code application...", TotalSteps: TotalSteps})
	r.emit(progress.Complete{
		Results:     r.results,
		Explanation: r.parsed.Explanation,
		Structure:   r.parsed.Structure,
		Message:     fmt.Sprintf("Parsed %d files but no sandbox is available", len(r.parsed.Files)),
		ParsedFiles: r.parsed.Files,
		Packages:    resolved,
		Commands:    r.parsed.Commands,
	})
}

func (r *run) execute(ctx context.Context, req Request) {
	editMode := req.EditMode || r.sess.Preloaded()
	editsOn := edits.Enabled(editMode, r.o.Applier)

	r.emit(progress.Start{Message: "Starting code application...", TotalSteps: TotalSteps})

	var instructions []edits.Instruction
	if editsOn {
		instructions = edits.Extract(req.ResponseText)
		r.emit(progress.Info{Message: fmt.Sprintf("Fast apply enabled (%s)", r.o.Applier.Name())})
		r.emit(progress.Info{Message: fmt.Sprintf("Parsed %d edits", len(instructions))})
		if len(instructions) == 0 {
			r.logger.Warn("edit mode without edit blocks, using full-file writes")
			r.emit(progress.Warning{Message: "Fast apply enabled but no <edit> blocks found; falling back to full-file flow"})
		}
	}

	r.installStage(ctx, req)

	r.emit(progress.Step{Step: 2, Message: fmt.Sprintf("Creating %d files...", len(r.parsed.Files))})
	edited := r.editStage(ctx, instructions)
	r.writeStage(ctx, edited)
	if needsEntryFiles(editMode, r.parsed, r.sess.KnownFiles()) {
		r.generateEntryFiles(ctx)
	}
	missing := r.checkImports()

	r.commandStage(ctx)

	r.emit(progress.Complete{
		Results:        r.results,
		Explanation:    r.parsed.Explanation,
		Structure:      r.parsed.Structure,
		Message:        fmt.Sprintf("Successfully applied %d files", len(r.results.FilesCreated)),
		MissingImports: missing,
	})

	r.sess.Conversation().RecordApply(r.parsed.Explanation, r.results.FilesCreated)
	r.record(audit.EventApply, r.parsed.Explanation)
	r.logger.Info("reconciliation complete",
		"created", len(r.results.FilesCreated),
		"updated", len(r.results.FilesUpdated),
		"errors", len(r.results.Errors))
}

func (r *run) installStage(ctx context.Context, req Request) {
	resolved := packages.Resolve(req.ExplicitPackages, r.parsed.Packages)
	if len(resolved) == 0 {
		r.emit(progress.Step{Step: 1, Message: "No additional packages to install, skipping..."})
		return
	}

	r.emit(progress.Step{Step: 1, Message: fmt.Sprintf("Installing %d packages...", len(resolved)), Packages: resolved})

	installer := r.o.Installer
	if installer == nil {
		installer = &Installer{Logger: r.o.Logger}
	}
	res := installer.Install(ctx, r.sess, resolved, r.sink)

	r.results.PackagesInstalled = append(r.results.PackagesInstalled, res.Installed...)
	r.results.PackagesAlreadyInstalled = append(r.results.PackagesAlreadyInstalled, res.Already...)
	r.results.PackagesFailed = append(r.results.PackagesFailed, res.Failed...)
	if res.Err != nil {
		r.logger.Warn("package installation failed", "error", res.Err)
		r.results.Errors = append(r.results.Errors, "Package installation failed: "+res.Err.Error())
		r.emit(progress.Warning{Message: fmt.Sprintf("Package installation failed (%s). Continuing with file creation...", res.Err)})
	}
}

// editStage applies the precision edits and returns the normalized paths
// they updated.
func (r *run) editStage(ctx context.Context, instructions []edits.Instruction) map[string]bool {
	edited := make(map[string]bool)
	if len(instructions) == 0 {
		return edited
	}

	r.emit(progress.Info{Message: fmt.Sprintf("Applying %d fast edits...", len(instructions))})
	for i, in := range instructions {
		r.emit(progress.FileProgress{
			Current:  i + 1,
			Total:    len(instructions),
			FileName: in.TargetFile,
			Action:   progress.ActionEditApplying,
		})

		p, err := r.o.Applier.Apply(ctx, r.exec, in)
		if err != nil {
			r.logger.Warn("edit failed", "target", in.TargetFile, "error", err)
			r.results.Errors = append(r.results.Errors, fmt.Sprintf("Edit apply failed for %s: %s", in.TargetFile, err))
			r.emit(progress.FileError{FileName: in.TargetFile, Error: err.Error()})
			continue
		}

		edited[p] = true
		r.written[p] = true
		r.sess.KnownFiles().Add(p)
		r.results.FilesUpdated = append(r.results.FilesUpdated, p)
		if content, err := r.exec.ReadFile(ctx, p); err == nil {
			r.sess.Cache().Put(p, content)
			r.o.Mirror.Sync(p, content)
		}
		r.emit(progress.FileComplete{FileName: p, Action: progress.ActionEditUpdated})
	}
	return edited
}

func (r *run) writeStage(ctx context.Context, edited map[string]bool) {
	var files []parser.File
	for _, f := range r.parsed.Files {
		if project.IsConfigFile(f.Path) {
			r.logger.Debug("skipping config file", "path", f.Path)
			continue
		}
		if edited[project.NormalizePath(f.Path)] {
			r.logger.Debug("skipping file updated by precision edit", "path", f.Path)
			continue
		}
		files = append(files, f)
	}

	known := r.sess.KnownFiles()
	for i, f := range files {
		r.emit(progress.FileProgress{
			Current:  i + 1,
			Total:    len(files),
			FileName: f.Path,
			Action:   progress.ActionCreating,
		})

		p := project.NormalizePath(f.Path)
		content := project.FixContent(p, f.Content)
		update := known.Has(p)

		if err := r.exec.WriteFile(ctx, p, content); err != nil {
			r.logger.Warn("file write failed", "path", f.Path, "error", err)
			r.results.Errors = append(r.results.Errors, fmt.Sprintf("Failed to create %s: %s", f.Path, err))
			r.emit(progress.FileError{FileName: f.Path, Error: err.Error()})
			continue
		}

		r.written[p] = true
		r.sess.Cache().Put(p, content)
		r.o.Mirror.Sync(p, content)

		action := progress.ActionCreated
		if update {
			action = progress.ActionUpdated
			r.results.FilesUpdated = append(r.results.FilesUpdated, p)
		} else {
			r.results.FilesCreated = append(r.results.FilesCreated, p)
			known.Add(p)
		}
		r.emit(progress.FileComplete{FileName: p, Action: action})
	}
}

func (r *run) generateEntryFiles(ctx context.Context) {
	paths := make([]string, len(r.parsed.Files))
	for i, f := range r.parsed.Files {
		paths[i] = project.NormalizePath(f.Path)
	}

	if r.writeGenerated(ctx, "src/App.jsx", project.GenerateApp(paths)) {
		r.results.FilesCreated = append(r.results.FilesCreated, project.GeneratedAppLabel)
	} else {
		r.results.Errors = append(r.results.Errors, "Failed to create App.jsx")
	}

	if !needsIndexCSS(r.parsed, r.sess.KnownFiles()) {
		return
	}
	if r.writeGenerated(ctx, "src/index.css", project.IndexCSS()) {
		r.results.FilesCreated = append(r.results.FilesCreated, project.GeneratedIndexCSSLabel)
	} else {
		r.results.Errors = append(r.results.Errors, "Failed to create index.css with Tailwind")
	}
}

func (r *run) writeGenerated(ctx context.Context, p, content string) bool {
	if err := r.exec.WriteFile(ctx, p, content); err != nil {
		r.logger.Warn("generated file write failed", "path", p, "error", err)
		r.emit(progress.FileError{FileName: p, Error: err.Error()})
		return false
	}
	r.written[p] = true
	r.sess.KnownFiles().Add(p)
	r.sess.Cache().Put(p, content)
	r.o.Mirror.Sync(p, content)
	r.emit(progress.FileComplete{FileName: p, Action: progress.ActionCreated})
	return true
}

func (r *run) checkImports() []string {
	known := r.sess.KnownFiles()
	missing := missingImports(r.parsed, func(p string) bool {
		return r.written[p] || known.Has(p)
	})
	if len(missing) == 0 {
		return nil
	}
	r.logger.Warn("missing imports detected", "imports", missing)
	r.emit(progress.Warning{
		Message:        fmt.Sprintf("Missing %d imported components: %s", len(missing), strings.Join(missing, ", ")),
		Category:       progress.CategoryMissingImports,
		MissingImports: missing,
	})
	return missing
}

func (r *run) commandStage(ctx context.Context) {
	commands := r.parsed.Commands
	if len(commands) == 0 {
		return
	}

	r.emit(progress.Step{Step: 3, Message: fmt.Sprintf("Executing %d commands...", len(commands))})
	for i, cmd := range commands {
		r.emit(progress.CommandProgress{
			Current: i + 1,
			Total:   len(commands),
			Command: cmd,
			Action:  progress.ActionExecuting,
		})

		res, err := r.exec.RunCommand(ctx, cmd)
		if err != nil {
			r.logger.Warn("command failed", "command", cmd, "error", err)
			r.results.Errors = append(r.results.Errors, fmt.Sprintf("Failed to execute %s: %s", cmd, err))
			r.emit(progress.CommandError{Command: cmd, Error: err.Error()})
			continue
		}

		if res.Stdout != "" {
			r.emit(progress.CommandOutput{Command: cmd, Output: res.Stdout, Stream: "stdout"})
		}
		if res.Stderr != "" {
			r.emit(progress.CommandOutput{Command: cmd, Output: res.Stderr, Stream: "stderr"})
		}
		r.results.CommandsExecuted = append(r.results.CommandsExecuted, cmd)
		r.emit(progress.CommandComplete{Command: cmd, ExitCode: res.ExitCode, Success: res.Success()})
	}
}

func (r *run) record(t audit.EventType, details string) {
	if r.o.History == nil || r.sess == nil || r.sess.ID == "" {
		return
	}
	e := audit.Event{Type: t, Sandbox: r.sess.ID, RunID: r.id, Details: details}
	if t == audit.EventApply {
		e.Result = r.results
	}
	if err := r.o.History.Record(e); err != nil {
		r.logger.Warn("failed to record history", "error", err)
	}
}

// terminalSink forwards events until the first terminal event and drops
// everything after it.
type terminalSink struct {
	next progress.Sink

	mu   sync.Mutex
	done bool
}

func (s *terminalSink) Emit(e progress.Event) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	if progress.IsTerminal(e) {
		s.done = true
	}
	s.mu.Unlock()
	s.next.Emit(e)
}

// ensureTerminal emits an error if the run ended without a terminal event.
func (s *terminalSink) ensureTerminal() {
	s.Emit(progress.Error{Error: "reconciliation ended without a result"})
}
