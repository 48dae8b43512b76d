package greenbot

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// InputKind is the kind of chat event a listener waits for.
type InputKind string

const (
	InputText     InputKind = "text"
	InputFile     InputKind = "file"
	InputCallback InputKind = "callback"
)

// Purpose tells the navigator who consumes the awaited input.
type Purpose string

const (
	PurposeAnswer     Purpose = "answer"      // step answer capture
	PurposeDraftStep  Purpose = "draft_step"  // author typing a new step
	PurposeEditPrompt Purpose = "edit_prompt" // author rewriting a prompt
	PurposeHeader     Purpose = "header"      // author editing a header field
)

// Listener is a one-shot subscription for the next matching event on a chat.
type Listener struct {
	ChatID    string
	ProcessID string
	StepID    string
	StepIndex int
	Expect    []InputKind
	Purpose   Purpose
	Data      map[string]string
}

// Accepts reports whether the listener waits for events of kind k.
func (l *Listener) Accepts(k InputKind) bool {
	for _, e := range l.Expect {
		if e == k {
			return true
		}
	}
	return false
}

// Listeners is the per-chat subscription table. Each chat holds at most one
// listener; registering replaces it and consuming removes it.
type Listeners struct {
	mu    sync.Mutex
	table *cache.Cache
	ttl   time.Duration
}

func NewListeners(ttl time.Duration) *Listeners {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Listeners{
		table: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

// Register arms a listener for the chat, dropping any previous one.
func (l *Listeners) Register(listener *Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.table.Set(listener.ChatID, listener, l.ttl)
}

// Consume removes and returns the chat's listener if it accepts kind k.
// A listener that does not accept k stays armed.
func (l *Listeners) Consume(chatID string, k InputKind) (*Listener, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, found := l.table.Get(chatID)
	if !found {
		return nil, false
	}
	listener := v.(*Listener)
	if !listener.Accepts(k) {
		return nil, false
	}
	l.table.Delete(chatID)
	return listener, true
}

// Peek returns the chat's listener without consuming it.
func (l *Listeners) Peek(chatID string) (*Listener, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, found := l.table.Get(chatID)
	if !found {
		return nil, false
	}
	return v.(*Listener), true
}

// Discard drops the chat's listener, if any.
func (l *Listeners) Discard(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.table.Delete(chatID)
}
