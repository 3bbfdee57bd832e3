package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zenprocess/open-lovable-cf/internal/audit"
	"github.com/zenprocess/open-lovable-cf/internal/config"
	apperrors "github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/health"
	"github.com/zenprocess/open-lovable-cf/internal/manifest"
)

type createResponse struct {
	Success   bool   `json:"success"`
	SandboxID string `json:"sandboxId"`
	URL       string `json:"url"`
	Message   string `json:"message"`
}

func (s *Server) handleCreateSandbox(w http.ResponseWriter, r *http.Request) {
	sess, err := s.config.Manager.Create(r.Context())
	if apperrors.GetExitCode(err) == apperrors.ExitRunInProgress {
		writeError(w, err)
		return
	}
	if err != nil {
		s.logger.Error("sandbox creation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, failure{Error: err.Error()})
		return
	}
	resp := createResponse{
		Success:   true,
		SandboxID: sess.ID,
		Message:   "Sandbox created and Vite React app initialized",
	}
	if info := sess.Info(); info != nil {
		resp.URL = info.URL
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleKillSandbox(w http.ResponseWriter, r *http.Request) {
	killed, err := s.config.Manager.Kill(r.Context())
	if apperrors.GetExitCode(err) == apperrors.ExitRunInProgress {
		writeError(w, err)
		return
	}
	if err != nil {
		s.logger.Warn("sandbox teardown reported an error", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"sandboxKilled": killed && err == nil,
		"message":       "Sandbox cleaned up successfully",
	})
}

type sandboxData struct {
	SandboxID       string        `json:"sandboxId"`
	URL             string        `json:"url"`
	FilesTracked    []string      `json:"filesTracked"`
	LastHealthCheck time.Time     `json:"lastHealthCheck"`
	Status          health.Status `json:"status"`
	Uptime          string        `json:"uptime,omitempty"`
}

type statusResponse struct {
	Success     bool         `json:"success"`
	Active      bool         `json:"active"`
	Healthy     bool         `json:"healthy"`
	SandboxData *sandboxData `json:"sandboxData"`
	Message     string       `json:"message"`
}

func (s *Server) handleSandboxStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.config.Manager.Active()
	if sess == nil {
		writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "No active sandbox"})
		return
	}

	result := health.Check(r.Context(), sess.Executor(), health.CheckOptions{
		HTTPClient: s.config.HealthClient,
		Now:        s.config.Now,
	})
	data := &sandboxData{
		SandboxID:       sess.ID,
		FilesTracked:    sess.KnownFiles().Paths(),
		LastHealthCheck: result.CheckedAt,
		Status:          result.Summary(),
		Uptime:          result.Uptime,
	}
	if info := sess.Info(); info != nil {
		data.URL = info.URL
	}

	resp := statusResponse{
		Success:     true,
		Active:      true,
		Healthy:     result.Healthy(),
		SandboxData: data,
		Message:     "Sandbox is active and healthy",
	}
	if !resp.Healthy {
		resp.Message = "Sandbox exists but is not responding"
	}
	writeJSON(w, http.StatusOK, resp)
}

type commandRequest struct {
	Command   string `json:"command"`
	SandboxID string `json:"sandboxId,omitempty"`
}

type commandResponse struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
	Message  string `json:"message"`
}

func (s *Server) handleRunCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cmd := strings.TrimSpace(req.Command)
	if cmd == "" {
		writeError(w, apperrors.ValidationError("Command is required"))
		return
	}
	if limit := s.config.Settings.MaxCommandLength; len(cmd) > limit {
		writeError(w, apperrors.ValidationError(fmt.Sprintf("Command exceeds maximum length of %d characters", limit)))
		return
	}

	sess, err := s.config.Manager.Get(req.SandboxID)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("running command", "sandbox", sess.ID, "command", cmd)
	res, err := sess.Executor().RunCommand(r.Context(), cmd)
	if err != nil {
		s.record(audit.EventError, sess.ID, "run-command: "+err.Error())
		writeJSON(w, http.StatusInternalServerError, failure{Error: err.Error()})
		return
	}
	s.record(audit.EventCommand, sess.ID, cmd)

	resp := commandResponse{
		Success:  true,
		Output:   commandOutput(res.Stdout, res.Stderr, res.ExitCode),
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
		Message:  "Command executed successfully",
	}
	if !res.Success() {
		resp.Message = "Command completed with non-zero exit code"
	}
	writeJSON(w, http.StatusOK, resp)
}

// commandOutput renders a command result for display.
func commandOutput(stdout, stderr string, exitCode int) string {
	var b strings.Builder
	if stdout != "" {
		b.WriteString("STDOUT:\n" + stdout)
	}
	if stderr != "" {
		b.WriteString("\nSTDERR:\n" + stderr)
	}
	fmt.Fprintf(&b, "\nExit code: %d", exitCode)
	return b.String()
}

func (s *Server) handleRestartVite(w http.ResponseWriter, r *http.Request) {
	sess, err := s.config.Manager.Get(r.URL.Query().Get("sandboxId"))
	if err != nil {
		writeError(w, err)
		return
	}
	outcome, err := sess.RestartDevServer(r.Context())
	if err != nil {
		s.logger.Error("dev server restart failed", "sandbox", sess.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, failure{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"restarted": outcome.Restarted,
		"message":   outcome.Message,
	})
}

type filesResponse struct {
	Success bool `json:"success"`
	*manifest.Snapshot
}

func (s *Server) handleSandboxFiles(w http.ResponseWriter, r *http.Request) {
	sess, err := s.config.Manager.Get(r.URL.Query().Get("sandboxId"))
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := manifest.Build(r.Context(), sess.Executor(), manifest.Options{Now: s.config.Now})
	if err != nil {
		s.logger.Error("failed to build manifest", "sandbox", sess.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, failure{Error: err.Error()})
		return
	}
	sess.Cache().Replace(snap.Files)
	for p := range snap.Files {
		sess.KnownFiles().Add(p)
	}
	writeJSON(w, http.StatusOK, filesResponse{Success: true, Snapshot: snap})
}

type loadFile struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

type loadRequest struct {
	Files []loadFile `json:"files"`
}

type loadResponse struct {
	Success   bool     `json:"success"`
	Loaded    int      `json:"loaded"`
	Errors    []string `json:"errors"`
	Files     []string `json:"files"`
	Preloaded bool     `json:"preloaded"`
}

// handleLoadProject writes an existing project into the sandbox. Once any
// file is loaded the session is marked preloaded and later applies run in
// edit mode.
func (s *Server) handleLoadProject(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Files) == 0 {
		writeError(w, apperrors.ValidationError("files array is required and must not be empty"))
		return
	}

	sess := s.config.Manager.Active()
	if sess == nil {
		writeJSON(w, http.StatusConflict, failure{Error: "No active sandbox. Create one first via /api/create-ai-sandbox"})
		return
	}
	release, err := sess.BeginRun()
	if err != nil {
		writeError(w, err)
		return
	}
	defer release()

	resp := loadResponse{Errors: []string{}, Files: []string{}, Preloaded: true}
	exec := sess.Executor()
	for _, f := range req.Files {
		if f.Path == "" || f.Content == nil {
			resp.Errors = append(resp.Errors, "Invalid file entry: missing path or content")
			continue
		}
		p := strings.TrimLeft(f.Path, "/")
		if strings.Contains(p, "..") || strings.ContainsRune(p, 0) {
			resp.Errors = append(resp.Errors, f.Path+": path traversal rejected")
			continue
		}
		if err := exec.WriteFile(r.Context(), p, *f.Content); err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %s", f.Path, err))
			continue
		}
		sess.Cache().Put(p, *f.Content)
		sess.KnownFiles().Add(p)
		s.config.Mirror.Sync(p, *f.Content)
		resp.Files = append(resp.Files, p)
	}
	resp.Loaded = len(resp.Files)
	resp.Success = len(resp.Errors) == 0

	if resp.Loaded > 0 {
		sess.MarkPreloaded()
	}
	s.record(audit.EventLoad, sess.ID, fmt.Sprintf("loaded %d files, %d errors", resp.Loaded, len(resp.Errors)))
	s.logger.Info("project loaded", "sandbox", sess.ID, "files", resp.Loaded, "errors", len(resp.Errors))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConversationState(w http.ResponseWriter, r *http.Request) {
	sess := s.config.Manager.Active()
	if sess == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"state":   nil,
			"message": "No active conversation",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"state":   sess.Conversation().State(),
	})
}

func (s *Server) handleConversationAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.config.Manager.Get("")
	if err != nil {
		writeError(w, err)
		return
	}

	conv := sess.Conversation()
	var msg string
	switch req.Action {
	case "reset":
		conv.Reset()
		msg = "Conversation state reset"
	case "clear-old":
		conv.ClearOld()
		msg = "Old conversation data cleared"
	default:
		writeError(w, apperrors.ValidationError(`Invalid action. Use "reset" or "clear-old"`))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": msg,
		"state":   conv.State(),
	})
}

func (s *Server) handleConversationClear(w http.ResponseWriter, r *http.Request) {
	if sess := s.config.Manager.Active(); sess != nil {
		sess.Conversation().Reset()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Conversation state cleared",
	})
}

// historyReader is implemented by recorders that can replay events.
type historyReader interface {
	Events(sandbox string) ([]audit.Event, error)
}

func (s *Server) handleSandboxHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sandboxId")
	if id == "" {
		sess := s.config.Manager.Active()
		if sess == nil {
			writeError(w, apperrors.NoActiveSandbox())
			return
		}
		id = sess.ID
	}
	if err := config.ValidateSandboxID(id); err != nil {
		writeError(w, apperrors.ValidationError(err.Error()))
		return
	}
	reader, ok := s.config.History.(historyReader)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "events": []audit.Event{}})
		return
	}
	events, err := reader.Events(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, failure{Error: err.Error()})
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "events": events})
}

func (s *Server) record(t audit.EventType, sandbox, details string) {
	if sandbox == "" {
		return
	}
	if err := s.config.History.Record(audit.Event{Type: t, Sandbox: sandbox, Details: details}); err != nil {
		s.logger.Warn("failed to record history", "sandbox", sandbox, "error", err)
	}
}
