package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/packages"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
	"github.com/zenprocess/open-lovable-cf/internal/reconcile"
)

type installRequest struct {
	Packages  []string `json:"packages"`
	SandboxID string   `json:"sandboxId,omitempty"`
}

// installSummary turns an install outcome into the terminal event of an
// install stream.
func installSummary(res reconcile.InstallResult) progress.Event {
	if res.Err != nil {
		return progress.Error{Error: "Package installation failed: " + res.Err.Error()}
	}
	results := progress.NewResults()
	results.PackagesInstalled = append(results.PackagesInstalled, res.Installed...)
	results.PackagesAlreadyInstalled = append(results.PackagesAlreadyInstalled, res.Already...)
	results.PackagesFailed = append(results.PackagesFailed, res.Failed...)

	msg := "All packages are already installed"
	if len(res.Installed) > 0 {
		msg = "Successfully installed: " + strings.Join(res.Installed, ", ")
	}
	return progress.Complete{Results: results, Message: msg, Packages: res.Installed}
}

// handleInstallPackages installs the requested packages and streams the
// installer's progress as SSE.
func (s *Server) handleInstallPackages(w http.ResponseWriter, r *http.Request) {
	var req installRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Packages) == 0 {
		writeError(w, apperrors.ValidationError("Packages array is required"))
		return
	}
	names := packages.Resolve(req.Packages, nil)

	sess, err := s.config.Manager.Get(req.SandboxID)
	if err != nil {
		writeError(w, err)
		return
	}
	release, err := sess.BeginRun()
	if err != nil {
		writeError(w, err)
		return
	}
	defer release()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, failure{Error: "streaming not supported"})
		return
	}
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := progress.NewAsyncSink(progress.DefaultBuffer, func(e progress.Event) error {
		if err := progress.Encode(w, e, progress.SSE); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	s.runs.Add(1)
	defer s.runs.Done()
	res := s.config.Installer.Install(context.WithoutCancel(r.Context()), sess, names, sink)
	sink.Emit(installSummary(res))
	if err := sink.Close(); err != nil {
		s.logger.Info("install stream consumer disconnected", "sandbox", sess.ID, "error", err)
	}
	s.logger.Info("packages installed", "sandbox", sess.ID, "installed", len(res.Installed), "failed", len(res.Failed))
}

type detectRequest struct {
	Files     map[string]string `json:"files"`
	SandboxID string            `json:"sandboxId,omitempty"`
}

type detectResponse struct {
	Success                  bool     `json:"success"`
	PackagesInstalled        []string `json:"packagesInstalled"`
	PackagesFailed           []string `json:"packagesFailed,omitempty"`
	PackagesAlreadyInstalled []string `json:"packagesAlreadyInstalled,omitempty"`
	Message                  string   `json:"message"`
	Error                    string   `json:"error,omitempty"`
}

// handleDetectAndInstall scans file contents for imported packages and
// installs the missing ones.
func (s *Server) handleDetectAndInstall(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Files) == 0 {
		writeError(w, apperrors.ValidationError("Files object is required"))
		return
	}

	sess, err := s.config.Manager.Get(req.SandboxID)
	if err != nil {
		writeError(w, err)
		return
	}

	names := packages.Resolve(nil, packages.Detect(req.Files))
	if len(names) == 0 {
		writeJSON(w, http.StatusOK, detectResponse{Success: true, PackagesInstalled: []string{}, Message: "No new packages to install"})
		return
	}

	release, err := sess.BeginRun()
	if err != nil {
		writeError(w, err)
		return
	}
	defer release()

	res := s.config.Installer.Install(r.Context(), sess, names, progress.Discard)
	resp := detectResponse{
		Success:                  res.Err == nil,
		PackagesInstalled:        append([]string{}, res.Installed...),
		PackagesFailed:           res.Failed,
		PackagesAlreadyInstalled: res.Already,
	}
	switch {
	case res.Err != nil:
		resp.Error = res.Err.Error()
		resp.Message = "Package installation failed"
	case len(res.Installed) == 0 && len(res.Failed) == 0:
		resp.Message = "All packages already installed"
	default:
		resp.Message = fmt.Sprintf("Installed %d packages", len(res.Installed))
	}
	writeJSON(w, http.StatusOK, resp)
}
