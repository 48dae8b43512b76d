package greenbot

import (
	"context"
	"time"
)

// Mode tells which menu a chat returns to when it leaves a process.
type Mode string

const (
	ModeAuthoring Mode = "authoring"
	ModeViewing   Mode = "viewing"
)

// Session data keys
const (
	keyInsertPosition = "insert_position"
	keyInsertIndex    = "insert_index"
	keyQuestionsStep  = "questions_step"
	keyQuestions      = "questions"
	keyConnectValid   = "connect_valid"
)

// Session is the per-chat cursor. CurrentStepIndex is an offset into the
// process steps sorted by sequence number, not a step identity.
type Session struct {
	ChatID           string         `json:"chat_id" bson:"chat_id"`
	ProcessID        string         `json:"process_id" bson:"process_id"`
	CurrentStepIndex int            `json:"current_step_index" bson:"current_step_index"`
	Mode             Mode           `json:"mode" bson:"mode"`
	Data             map[string]any `json:"data" bson:"data"`
	UpdatedAt        time.Time      `json:"updated_at" bson:"updated_at"`
}

// NewSession creates a session positioned on the first step.
func NewSession(chatID, processID string, mode Mode) *Session {
	return &Session{
		ChatID:    chatID,
		ProcessID: processID,
		Mode:      mode,
		Data:      make(map[string]any),
		UpdatedAt: time.Now(),
	}
}

// Clone returns a copy whose data map can be modified independently.
func (s *Session) Clone() *Session {
	c := *s
	c.Data = make(map[string]any, len(s.Data))
	for k, v := range s.Data {
		c.Data[k] = v
	}
	return &c
}

// GetString retrieves a string value from the session data.
func (s *Session) GetString(key string) string {
	if v, ok := s.Data[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// GetInt retrieves an integer value from the session data.
func (s *Session) GetInt(key string) int {
	if v, ok := s.Data[key]; ok {
		switch val := v.(type) {
		case int:
			return val
		case int32:
			return int(val)
		case int64:
			return int(val)
		case float64:
			return int(val)
		}
	}
	return 0
}

// GetBool retrieves a boolean value from the session data.
func (s *Session) GetBool(key string) bool {
	if v, ok := s.Data[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Set stores a value in the session data.
func (s *Session) Set(key string, value any) {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = value
}

// Unset removes a value from the session data.
func (s *Session) Unset(key string) {
	delete(s.Data, key)
}

// SessionStore handles persistence of sessions.
type SessionStore interface {
	SaveSession(ctx context.Context, session *Session) error
	LoadSession(ctx context.Context, chatID string) (*Session, error)
	DeleteSession(ctx context.Context, chatID string) error
}
