package session

import (
	"fmt"
	"sync"
	"time"
)

// Change is one applied response in the project history.
type Change struct {
	Timestamp     time.Time `json:"timestamp"`
	Description   string    `json:"description"`
	FilesAffected []string  `json:"filesAffected"`
}

// ConversationState is a point-in-time copy of the conversation tracking.
type ConversationState struct {
	ID           string    `json:"conversationId"`
	StartedAt    time.Time `json:"startedAt"`
	LastUpdated  time.Time `json:"lastUpdated"`
	EditedFiles  []string  `json:"editedFiles"`
	MajorChanges []Change  `json:"majorChanges"`
}

// Conversation tracks what each applied response changed.
type Conversation struct {
	mu    sync.Mutex
	state ConversationState
	now   func() time.Time
}

func newConversation(now func() time.Time) *Conversation {
	c := &Conversation{now: now}
	c.Reset()
	return c
}

// Reset starts a new conversation.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now()
	c.state = ConversationState{
		ID:          fmt.Sprintf("conv-%d", t.UnixMilli()),
		StartedAt:   t,
		LastUpdated: t,
	}
}

// ClearOld keeps only the most recent changes.
func (c *Conversation) ClearOld() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.state.MajorChanges); n > 2 {
		c.state.MajorChanges = append([]Change(nil), c.state.MajorChanges[n-2:]...)
	}
	c.state.LastUpdated = c.now()
}

// RecordApply notes the files created by a run. Runs that created nothing
// are not recorded.
func (c *Conversation) RecordApply(explanation string, files []string) {
	if len(files) == 0 {
		return
	}
	if explanation == "" {
		explanation = "Code applied"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now()
	affected := append([]string(nil), files...)
	c.state.EditedFiles = affected
	c.state.MajorChanges = append(c.state.MajorChanges, Change{
		Timestamp:     t,
		Description:   explanation,
		FilesAffected: affected,
	})
	c.state.LastUpdated = t
}

// State returns a copy of the current state.
func (c *Conversation) State() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.EditedFiles = append([]string(nil), s.EditedFiles...)
	s.MajorChanges = append([]Change(nil), s.MajorChanges...)
	return s
}
