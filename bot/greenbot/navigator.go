package greenbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"GreenBot/bot/chat"
	"GreenBot/entity"
	"GreenBot/internal/lib/sl"
)

// Navigator owns the cursor of every chat. It re-reads the process on each
// call and never moves the cursor when an operation fails.
type Navigator struct {
	store      ProcessStore
	sessions   SessionStore
	recorder   AnswerRecorder
	messenger  chat.Messenger
	presenters *Registry
	listeners  *Listeners
	log        *slog.Logger
}

func NewNavigator(
	store ProcessStore,
	sessions SessionStore,
	recorder AnswerRecorder,
	messenger chat.Messenger,
	presenters *Registry,
	listeners *Listeners,
	log *slog.Logger,
) *Navigator {
	return &Navigator{
		store:      store,
		sessions:   sessions,
		recorder:   recorder,
		messenger:  messenger,
		presenters: presenters,
		listeners:  listeners,
		log:        log.With(sl.Module("greenbot.navigator")),
	}
}

// Start opens a process for the chat at its first step, replacing any
// previous session.
func (n *Navigator) Start(ctx context.Context, chatID, processID string, mode Mode) error {
	p, err := loadProcess(ctx, n.store, processID)
	if err != nil {
		return err
	}
	if len(p.Steps) == 0 {
		return ErrEmptyProcess
	}
	return n.show(ctx, NewSession(chatID, p.ID, mode), p, 0)
}

// OpenStep opens a process at the step with the given id.
func (n *Navigator) OpenStep(ctx context.Context, chatID, processID, stepID string, mode Mode) error {
	p, err := loadProcess(ctx, n.store, processID)
	if err != nil {
		return err
	}
	for i, s := range p.SortedSteps() {
		if s.StepID == stepID {
			session, err := n.current(ctx, chatID)
			if err != nil || session.ProcessID != p.ID {
				session = NewSession(chatID, p.ID, mode)
			}
			session.Mode = mode
			return n.show(ctx, session, p, i)
		}
	}
	return ErrStepNotFound
}

// GoToFirst moves the cursor to index 0.
func (n *Navigator) GoToFirst(ctx context.Context, chatID string) error {
	session, p, err := n.resolve(ctx, chatID)
	if err != nil {
		return err
	}
	if len(p.Steps) == 0 {
		return ErrEmptyProcess
	}
	return n.show(ctx, session, p, 0)
}

// Next advances the cursor. The following step must carry the next
// sequence number; a gap leaves the cursor where it is.
func (n *Navigator) Next(ctx context.Context, chatID string) error {
	session, p, err := n.resolve(ctx, chatID)
	if err != nil {
		return err
	}
	sorted := p.SortedSteps()
	i := session.CurrentStepIndex
	if i < 0 || i >= len(sorted) {
		return ErrStepIndexOutOfRange
	}
	if i >= len(sorted)-1 {
		return ErrLastStep
	}
	if sorted[i+1].StepSequenceNumber != sorted[i].StepSequenceNumber+1 {
		n.log.With(
			slog.String("process_id", p.ID),
			slog.Int("index", i),
			slog.Int("seq", sorted[i].StepSequenceNumber),
			slog.Int("next_seq", sorted[i+1].StepSequenceNumber),
		).Warn("step sequence gap")
		return ErrInvalidStepSequence
	}
	return n.show(ctx, session, p, i+1)
}

// Previous moves the cursor back by one.
func (n *Navigator) Previous(ctx context.Context, chatID string) error {
	session, p, err := n.resolve(ctx, chatID)
	if err != nil {
		return err
	}
	i := session.CurrentStepIndex
	if i <= 0 {
		return ErrFirstStep
	}
	if i >= len(p.Steps) {
		return ErrStepIndexOutOfRange
	}
	return n.show(ctx, session, p, i-1)
}

// Present shows the current step again.
func (n *Navigator) Present(ctx context.Context, chatID string) error {
	session, p, err := n.resolve(ctx, chatID)
	if err != nil {
		return err
	}
	return n.show(ctx, session, p, session.CurrentStepIndex)
}

// Exit ends the chat's session and returns it so the caller can show the
// menu of its mode. It returns nil when there was no session.
func (n *Navigator) Exit(ctx context.Context, chatID string) (*Session, error) {
	session, err := n.current(ctx, chatID)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return nil, err
	}
	if err = n.Reset(ctx, chatID); err != nil {
		return nil, err
	}
	return session, nil
}

// Reset drops the pending listener and the session of the chat.
func (n *Navigator) Reset(ctx context.Context, chatID string) error {
	n.listeners.Discard(chatID)
	if err := n.sessions.DeleteSession(ctx, chatID); err != nil {
		return persistence("delete session", err)
	}
	return nil
}

// Session returns the chat's session or ErrNoSession.
func (n *Navigator) Session(ctx context.Context, chatID string) (*Session, error) {
	return n.current(ctx, chatID)
}

// HandleStepAction routes a tap on a step button to the current step. Taps
// from another process are dropped. A tap on the message of another step
// shows the current step again and records nothing.
func (n *Navigator) HandleStepAction(ctx context.Context, chatID string, tok Token) error {
	session, err := n.current(ctx, chatID)
	if err != nil {
		return err
	}
	action, current, err := position(session, tok)
	if err != nil {
		return err
	}
	p, err := loadProcess(ctx, n.store, session.ProcessID)
	if err != nil {
		return err
	}
	if !current {
		n.staleTap(session, tok)
		return n.show(ctx, session, p, session.CurrentStepIndex)
	}
	v, err := n.view(session, p, session.CurrentStepIndex)
	if err != nil {
		return err
	}
	return n.capture(ctx, v, Input{Kind: InputCallback, Action: action})
}

// Locate checks a nav tap against the chat's cursor and returns its bare
// action. A tap from another step's message shows the current step again
// and reports false.
func (n *Navigator) Locate(ctx context.Context, chatID string, tok Token) (string, bool, error) {
	session, err := n.current(ctx, chatID)
	if err != nil {
		return "", false, err
	}
	action, current, err := position(session, tok)
	if err != nil || current {
		return action, current, err
	}
	n.staleTap(session, tok)
	return "", false, n.Present(ctx, chatID)
}

func (n *Navigator) staleTap(session *Session, tok Token) {
	n.log.With(
		slog.String("chat_id", session.ChatID),
		slog.String("process_id", session.ProcessID),
		slog.String("action", tok.Action),
		slog.Int("index", session.CurrentStepIndex),
	).Debug("button of another step")
}

// position returns the bare action of a tap and whether the button was
// rendered for the session's current step.
func position(session *Session, tok Token) (string, bool, error) {
	if session.ProcessID != tok.ProcessID {
		return "", false, fmt.Errorf("%w: %s is not the active process", ErrInvalidActionToken, tok.ProcessID)
	}
	action, index, ok := tok.Position()
	if !ok {
		return "", false, fmt.Errorf("%w: %q carries no step position", ErrInvalidActionToken, tok.Action)
	}
	return action, index == session.CurrentStepIndex, nil
}

// HandleInput delivers a text or file consumed by an answer listener. If
// the cursor has moved since the listener was armed, the current step is
// shown again instead of attributing the input to it.
func (n *Navigator) HandleInput(ctx context.Context, l *Listener, in Input) error {
	session, err := n.current(ctx, l.ChatID)
	if err != nil {
		return err
	}
	if session.ProcessID != l.ProcessID {
		n.log.With(
			slog.String("chat_id", l.ChatID),
			slog.String("process_id", l.ProcessID),
		).Debug("stale listener dropped")
		return nil
	}
	p, err := loadProcess(ctx, n.store, session.ProcessID)
	if err != nil {
		return err
	}
	v, err := n.view(session, p, session.CurrentStepIndex)
	if err != nil {
		return err
	}
	if v.Step.StepID != l.StepID {
		return n.show(ctx, session, p, session.CurrentStepIndex)
	}
	return n.capture(ctx, v, in)
}

func (n *Navigator) capture(ctx context.Context, v View, in Input) error {
	capturer, ok := n.presenters.For(v.Step.Type).(Capturer)
	if !ok {
		return fmt.Errorf("%w: step %s takes no input", ErrInvalidActionToken, v.Step.Type)
	}

	c, err := capturer.Capture(ctx, v, in)
	if err != nil {
		n.arm(v)
		return err
	}
	if !c.Matched {
		n.arm(v)
		return nil
	}

	if c.Record {
		answer := entity.Answer{
			ProcessID:       v.Process.ID,
			ChatID:          v.ChatID,
			StepID:          v.Step.StepID,
			StepIndex:       v.Index,
			Answer:          c.Value,
			StepType:        v.Step.Type,
			StepPrompt:      v.Step.Prompt,
			StepDescription: v.Step.Description,
			AnsweredAt:      time.Now(),
		}
		if err = n.recorder.SaveAnswer(ctx, answer); err != nil {
			n.log.With(
				slog.String("process_id", v.Process.ID),
				slog.String("step_id", v.Step.StepID),
				sl.Err(err),
			).Error("save answer")
			n.arm(v)
			return persistence("save answer", err)
		}
		n.log.With(
			slog.String("process_id", v.Process.ID),
			slog.String("step_id", v.Step.StepID),
			slog.String("type", string(v.Step.Type)),
		).Debug("answer recorded")
	}

	if c.Reply != "" {
		n.deliverText(v.ChatID, c.Reply)
	}
	if c.Follow != nil {
		n.deliver(v.ChatID, *c.Follow)
	}
	if c.Advance {
		return n.Next(ctx, v.ChatID)
	}
	n.arm(v)
	return nil
}

// show renders step i, persists the cursor, arms the listener and only then
// delivers the prompt. A failed render changes nothing.
func (n *Navigator) show(ctx context.Context, session *Session, p *entity.Process, i int) error {
	v, err := n.view(session, p, i)
	if err != nil {
		return err
	}
	prompt, err := n.presenters.For(v.Step.Type).Present(ctx, v)
	if err != nil {
		return err
	}
	if v.Session.Mode == ModeAuthoring {
		prompt.Rows = append(prompt.Rows, authoringRows(v)...)
	}

	v.Session.UpdatedAt = time.Now()
	if err = n.sessions.SaveSession(ctx, v.Session); err != nil {
		n.log.With(
			slog.String("chat_id", v.ChatID),
			sl.Err(err),
		).Error("save session")
		return persistence("save session", err)
	}

	n.arm(v)
	n.deliver(v.ChatID, prompt)
	return nil
}

// view builds the presenter view of step i on a copy of the session.
func (n *Navigator) view(session *Session, p *entity.Process, i int) (View, error) {
	sorted := p.SortedSteps()
	if i < 0 || i >= len(sorted) {
		return View{}, ErrStepIndexOutOfRange
	}
	next := session.Clone()
	next.ProcessID = p.ID
	next.CurrentStepIndex = i
	return View{
		ChatID:  session.ChatID,
		Process: p,
		Step:    sorted[i],
		Index:   i,
		Total:   len(sorted),
		Session: next,
	}, nil
}

// arm registers the answer listener of a step that takes text or files.
// Steps answered only with buttons clear the chat's listener.
func (n *Navigator) arm(v View) {
	def, ok := LookupKind(v.Step.Type)
	var expect []InputKind
	if ok {
		for _, k := range def.Expect {
			if k != InputCallback {
				expect = append(expect, k)
			}
		}
	}
	if len(expect) == 0 {
		n.listeners.Discard(v.ChatID)
		return
	}
	n.listeners.Register(&Listener{
		ChatID:    v.ChatID,
		ProcessID: v.Process.ID,
		StepID:    v.Step.StepID,
		StepIndex: v.Index,
		Expect:    expect,
		Purpose:   PurposeAnswer,
	})
}

func (n *Navigator) resolve(ctx context.Context, chatID string) (*Session, *entity.Process, error) {
	session, err := n.current(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	p, err := loadProcess(ctx, n.store, session.ProcessID)
	if err != nil {
		return nil, nil, err
	}
	return session, p, nil
}

func (n *Navigator) current(ctx context.Context, chatID string) (*Session, error) {
	session, err := n.sessions.LoadSession(ctx, chatID)
	if err != nil {
		return nil, persistence("load session", err)
	}
	if session == nil || session.ProcessID == "" {
		return nil, ErrNoSession
	}
	return session, nil
}

func (n *Navigator) deliver(chatID string, prompt chat.Prompt) {
	if err := n.messenger.SendPrompt(chatID, prompt); err != nil {
		n.log.With(
			slog.String("chat_id", chatID),
			sl.Err(err),
		).Error("send prompt")
	}
}

func (n *Navigator) deliverText(chatID, text string) {
	if err := n.messenger.SendText(chatID, text); err != nil {
		n.log.With(
			slog.String("chat_id", chatID),
			sl.Err(err),
		).Error("send message")
	}
}

func authoringRows(v View) [][]chat.InlineButton {
	pid := v.Process.ID
	return [][]chat.InlineButton{
		{
			{Text: BtnInsertAbove, Data: EncodeToken(NamespaceMenu, ActionInsertBefore, pid)},
			{Text: BtnInsertBelow, Data: EncodeToken(NamespaceMenu, ActionInsertAfter, pid)},
		},
		{
			{Text: BtnEditPrompt, Data: EncodeToken(NamespaceMenu, ActionEditPrompt, pid)},
			{Text: BtnMenu, Data: EncodeToken(NamespaceMenu, ActionOpen, pid)},
		},
	}
}
