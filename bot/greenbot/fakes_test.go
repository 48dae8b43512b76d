package greenbot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"GreenBot/bot/chat"
	"GreenBot/entity"
)

var errStore = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore keeps private copies of processes in memory.
type memStore struct {
	mu        sync.Mutex
	processes map[string]*entity.Process
	order     []string
	failSave  bool
	failFind  bool
	saves     int
}

func newMemStore() *memStore {
	return &memStore{processes: make(map[string]*entity.Process)}
}

func (s *memStore) put(p *entity.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.processes[p.ID] = p.Clone()
}

func (s *memStore) get(id string) *entity.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.processes[id]; ok {
		return p.Clone()
	}
	return nil
}

func (s *memStore) FindProcess(_ context.Context, id string) (*entity.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFind {
		return nil, errStore
	}
	if p, ok := s.processes[id]; ok {
		return p.Clone(), nil
	}
	return nil, nil
}

func (s *memStore) SaveProcess(_ context.Context, p *entity.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errStore
	}
	s.saves++
	if _, ok := s.processes[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.processes[p.ID] = p.Clone()
	return nil
}

func (s *memStore) UpdateProcess(_ context.Context, id string, patch map[string]any) (*entity.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return nil, errStore
	}
	p, ok := s.processes[id]
	if !ok {
		return nil, nil
	}
	for k, v := range patch {
		switch k {
		case "is_finished":
			p.IsFinished = v.(bool)
		case FieldTitle:
			p.Title = v.(string)
		case FieldDescription:
			p.Description = v.(string)
		case FieldImageURL:
			p.ImageURL = v.(string)
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		}
	}
	return p.Clone(), nil
}

func (s *memStore) DeleteProcess(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errStore
	}
	delete(s.processes, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) ListProcesses(_ context.Context, filter ProcessFilter) ([]entity.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []entity.Process
	for _, id := range s.order {
		p := s.processes[id]
		if filter.Published != nil && p.IsFinished != *filter.Published {
			continue
		}
		if filter.AuthorChatID != "" && p.AuthorChatID != filter.AuthorChatID {
			continue
		}
		list = append(list, *p.Clone())
		if filter.Limit > 0 && len(list) == filter.Limit {
			break
		}
	}
	return list, nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	failSave bool
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]*Session)}
}

func (s *memSessions) SaveSession(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errStore
	}
	s.sessions[session.ChatID] = session.Clone()
	return nil
}

func (s *memSessions) LoadSession(_ context.Context, chatID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[chatID]; ok {
		return session.Clone(), nil
	}
	return nil, nil
}

func (s *memSessions) DeleteSession(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}

func (s *memSessions) get(chatID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[chatID]; ok {
		return session.Clone()
	}
	return nil
}

type memRecorder struct {
	mu      sync.Mutex
	answers map[string]entity.Answer
	saves   int
	fail    bool
}

func newMemRecorder() *memRecorder {
	return &memRecorder{answers: make(map[string]entity.Answer)}
}

func answerKey(processID, chatID, stepID string) string {
	return processID + "|" + chatID + "|" + stepID
}

func (r *memRecorder) SaveAnswer(_ context.Context, answer entity.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errStore
	}
	r.saves++
	r.answers[answerKey(answer.ProcessID, answer.ChatID, answer.StepID)] = answer
	return nil
}

func (r *memRecorder) get(processID, chatID, stepID string) (entity.Answer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.answers[answerKey(processID, chatID, stepID)]
	return a, ok
}

type sentText struct {
	ChatID string
	Text   string
}

type sentPrompt struct {
	ChatID string
	Prompt chat.Prompt
}

type fakeMessenger struct {
	mu        sync.Mutex
	texts     []sentText
	prompts   []sentPrompt
	callbacks []string
}

func (m *fakeMessenger) SendText(chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, sentText{ChatID: chatID, Text: text})
	return nil
}

func (m *fakeMessenger) SendPrompt(chatID string, prompt chat.Prompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, sentPrompt{ChatID: chatID, Prompt: prompt})
	return nil
}

func (m *fakeMessenger) AnswerCallback(callbackID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callbackID)
	return nil
}

func (m *fakeMessenger) lastPrompt(t *testing.T) chat.Prompt {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		t.Fatal("no prompt sent")
	}
	return m.prompts[len(m.prompts)-1].Prompt
}

func (m *fakeMessenger) lastText(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.texts) == 0 {
		t.Fatal("no text sent")
	}
	return m.texts[len(m.texts)-1].Text
}

func (m *fakeMessenger) promptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *fakeMessenger) textCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts)
}

type fakeValidator struct {
	valid map[string]bool
	calls int
}

func (v *fakeValidator) IsValidProcessID(_ context.Context, id string) bool {
	v.calls++
	return v.valid[id]
}

type fakeGenerator struct {
	questions []string
	err       error
	calls     int
	count     int
}

func (g *fakeGenerator) GenerateQuestions(_ context.Context, _, _ string, count int) ([]string, error) {
	g.calls++
	g.count = count
	if g.err != nil {
		return nil, g.err
	}
	return g.questions, nil
}

type fakeArchiver struct {
	ref  string
	err  error
	meta entity.FileMetadata
}

func (a *fakeArchiver) ArchiveFile(_ context.Context, _ chat.FileInput, meta entity.FileMetadata) (string, error) {
	a.meta = meta
	if a.err != nil {
		return "", a.err
	}
	return a.ref, nil
}

type recordedEvent struct {
	Event     string
	ProcessID string
}

type fakeNotifier struct {
	events []recordedEvent
}

func (n *fakeNotifier) ProcessChanged(event string, p *entity.Process) {
	n.events = append(n.events, recordedEvent{Event: event, ProcessID: p.ID})
}

// env wires the chat-side components over in-memory fakes.
type env struct {
	store     *memStore
	sessions  *memSessions
	recorder  *memRecorder
	messenger *fakeMessenger
	validator *fakeValidator
	generator *fakeGenerator
	archiver  *fakeArchiver
	listeners *Listeners
	editor    *Editor
	lifecycle *Lifecycle
	nav       *Navigator
	menu      *Menu
	engine    *Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := discardLogger()
	e := &env{
		store:     newMemStore(),
		sessions:  newMemSessions(),
		recorder:  newMemRecorder(),
		messenger: &fakeMessenger{},
		validator: &fakeValidator{valid: make(map[string]bool)},
		generator: &fakeGenerator{},
		archiver:  &fakeArchiver{ref: entity.FileRefPrefix + "f1"},
		listeners: NewListeners(time.Hour),
	}
	e.editor = NewEditor(e.store, SequenceRenumber, log)
	e.lifecycle = NewLifecycle(e.store, log)
	registry := NewRegistry(PresenterDeps{
		Store:        e.store,
		Validator:    e.validator,
		Generator:    e.generator,
		Archiver:     e.archiver,
		MaxQuestions: 5,
		Log:          log,
	})
	e.nav = NewNavigator(e.store, e.sessions, e.recorder, e.messenger, registry, e.listeners, log)
	e.menu = NewMenu(MenuDeps{
		Store:     e.store,
		Editor:    e.editor,
		Lifecycle: e.lifecycle,
		Navigator: e.nav,
		Sessions:  e.sessions,
		Listeners: e.listeners,
		Messenger: e.messenger,
		BotName:   "green_test_bot",
	}, log)
	e.engine = NewEngine(e.nav, e.menu, e.store, e.listeners, e.messenger, log)
	return e
}

// seed stores a published process whose steps get ids s1..sN and
// sequence numbers 1..N unless already set.
func (e *env) seed(id string, steps ...entity.Step) *entity.Process {
	for i := range steps {
		if steps[i].StepID == "" {
			steps[i].StepID = "s" + string(rune('1'+i))
		}
		if steps[i].StepSequenceNumber == 0 {
			steps[i].StepSequenceNumber = i + 1
		}
	}
	p := &entity.Process{
		ID:           id,
		Title:        "Process " + id,
		IsFinished:   true,
		AuthorChatID: "author",
		Steps:        steps,
	}
	e.store.put(p)
	return p
}

func step(kind entity.StepKind, prompt string) entity.Step {
	return entity.Step{Type: kind, Prompt: prompt}
}

// tap builds the token of a step button shown at the given index.
func tap(action string, index int, pid string) Token {
	return Token{Namespace: NamespaceStep, Action: PositionAction(action, index), ProcessID: pid}
}

// buttonData lists the callback data of every button of a prompt.
func buttonData(p chat.Prompt) []string {
	var data []string
	for _, b := range p.Buttons() {
		if b.Data != "" {
			data = append(data, b.Data)
		}
	}
	return data
}
