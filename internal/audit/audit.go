// Package audit keeps a per-sandbox history of what lovable-ctl did to it.
// Events are stored as JSON Lines (JSONL) files, one per sandbox.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zenprocess/open-lovable-cf/internal/config"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
)

// EventType classifies a history event.
type EventType string

const (
	EventCreate    EventType = "create"
	EventApply     EventType = "apply"
	EventTerminate EventType = "terminate"
	EventCommand   EventType = "command"
	EventLoad      EventType = "load"
	EventError     EventType = "error"
)

// Event is a single history entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Sandbox   string    `json:"sandbox"`
	RunID     string    `json:"runId,omitempty"`
	Details   string    `json:"details,omitempty"`

	// Result is the summary of an apply run.
	Result *progress.Results `json:"result,omitempty"`
}

// Recorder is what the orchestrator and server write history through.
type Recorder interface {
	Record(e Event) error
}

// History writes and reads events under {stateDir}/sandboxes/{id}.events.jsonl.
type History struct {
	stateDir string

	mu  sync.Mutex
	now func() time.Time
}

// NewHistory returns a history rooted at stateDir.
func NewHistory(stateDir string) *History {
	return &History{stateDir: stateDir, now: time.Now}
}

func (h *History) dir() string {
	return filepath.Join(h.stateDir, "sandboxes")
}

func (h *History) eventPath(sandbox string) (string, error) {
	if err := config.ValidateSandboxID(sandbox); err != nil {
		return "", err
	}
	return filepath.Join(h.dir(), sandbox+".events.jsonl"), nil
}

// Record appends an event to the sandbox's history.
func (h *History) Record(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = h.now()
	}

	path, err := h.eventPath(event.Sandbox)
	if err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// RecordEvent is a convenience wrapper around Record.
func (h *History) RecordEvent(eventType EventType, sandbox, details string) error {
	return h.Record(Event{Type: eventType, Sandbox: sandbox, Details: details})
}

// Events reads all events for a sandbox in the order they were written.
func (h *History) Events(sandbox string) ([]Event, error) {
	path, err := h.eventPath(sandbox)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading history: %w", err)
	}
	return events, nil
}

// Sandboxes lists the sandbox ids that have history, sorted.
func (h *History) Sandboxes() ([]string, error) {
	entries, err := os.ReadDir(h.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if id, ok := strings.CutSuffix(e.Name(), ".events.jsonl"); ok && !e.IsDir() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Remove deletes the history for a sandbox.
func (h *History) Remove(sandbox string) error {
	path, err := h.eventPath(sandbox)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Discard records nothing.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Event) error { return nil }
