package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/parser"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
	"github.com/zenprocess/open-lovable-cf/internal/reconcile"
	"github.com/zenprocess/open-lovable-cf/internal/session"
)

const (
	// wsRequestWait bounds how long a websocket client may take to send
	// the request message.
	wsRequestWait = 30 * time.Second

	// wsWriteWait bounds each websocket frame write.
	wsWriteWait = 10 * time.Second
)

// applyFailure is returned instead of a stream when no sandbox could be
// resolved for the request.
type applyFailure struct {
	Success     bool              `json:"success"`
	Error       string            `json:"error"`
	Results     *progress.Results `json:"results"`
	Explanation string            `json:"explanation"`
	Structure   string            `json:"structure"`
	ParsedFiles []parser.File     `json:"parsedFiles"`
	Message     string            `json:"message"`
}

func newApplyFailure(req reconcile.Request, err error) applyFailure {
	parsed := parser.Parse(req.ResponseText)
	return applyFailure{
		Error:       err.Error(),
		Results:     progress.NewResults(),
		Explanation: parsed.Explanation,
		Structure:   parsed.Structure,
		ParsedFiles: parsed.Files,
		Message:     fmt.Sprintf("Parsed %d files but no sandbox is available", len(parsed.Files)),
	}
}

// prepareApply validates req and resolves the session it targets. A
// request without an active sandbox creates one.
func (s *Server) prepareApply(ctx context.Context, req reconcile.Request) (*session.Session, error) {
	if strings.TrimSpace(req.ResponseText) == "" {
		return nil, apperrors.ValidationError("response is required")
	}
	sess, err := s.config.Manager.GetOrCreate(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}
	if sess.Running() {
		return nil, apperrors.RunInProgress(sess.ID)
	}
	return sess, nil
}

// runApply reconciles req and closes sink once the terminal event has been
// written. The run is detached from the request context so a client that
// goes away does not leave the sandbox half written.
func (s *Server) runApply(ctx context.Context, req reconcile.Request, sess *session.Session, sink *progress.AsyncSink) {
	s.runs.Add(1)
	defer s.runs.Done()

	s.config.Orchestrator.Apply(context.WithoutCancel(ctx), req, sess, sink)
	if err := sink.Close(); err != nil {
		s.logger.Info("progress consumer disconnected", "sandbox", sess.ID, "error", err)
	}
	if n := sink.Dropped(); n > 0 {
		s.logger.Warn("progress events not delivered", "sandbox", sess.ID, "dropped", n)
	}
}

func (s *Server) handleApplyStream(w http.ResponseWriter, r *http.Request) {
	var req reconcile.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := s.prepareApply(r.Context(), req)
	if err != nil {
		switch apperrors.GetExitCode(err) {
		case apperrors.ExitValidation, apperrors.ExitRunInProgress:
			writeError(w, err)
		default:
			s.logger.Error("no sandbox for apply", "error", err)
			writeJSON(w, http.StatusInternalServerError, newApplyFailure(req, err))
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, failure{Error: "streaming not supported"})
		return
	}
	// A run can outlast the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("cannot clear write deadline", "error", err)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := progress.NewAsyncSink(progress.DefaultBuffer, func(e progress.Event) error {
		if err := progress.Encode(w, e, progress.SSE); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	s.runApply(r.Context(), req, sess, sink)
}

// handleApplyWebsocket streams the same events as handleApplyStream over
// a websocket. The first text message carries the request; each event is
// sent as one text message and the server closes the socket after the
// terminal event.
func (s *Server) handleApplyWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := func(e progress.Event) error {
		data, err := progress.Marshal(e)
		if err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	}
	closeWith := func(code int, text string) {
		msg := websocket.FormatCloseMessage(code, text)
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait)); err != nil {
			s.logger.Debug("websocket close failed", "error", err)
		}
	}

	conn.SetReadLimit(maxBodyBytes)
	if err := conn.SetReadDeadline(time.Now().Add(wsRequestWait)); err != nil {
		return
	}
	var req reconcile.Request
	if err := conn.ReadJSON(&req); err != nil {
		_ = send(progress.Error{Error: "invalid request message: " + err.Error()})
		closeWith(websocket.CloseUnsupportedData, "invalid request")
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	sess, err := s.prepareApply(r.Context(), req)
	if err != nil {
		_ = send(progress.Error{Error: err.Error()})
		closeWith(websocket.CloseNormalClosure, "")
		return
	}

	s.runApply(r.Context(), req, sess, progress.NewAsyncSink(progress.DefaultBuffer, send))
	closeWith(websocket.CloseNormalClosure, "")
}
