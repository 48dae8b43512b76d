package greenbot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"GreenBot/bot/chat"
	"GreenBot/internal/lib/sl"
)

// Commands
const (
	CommandStart   = "start"
	CommandReset   = "reset"
	CommandRestart = "restart"
	CommandMy      = "my"
	CommandNew     = "new"
)

const replyUnknownCommand = "Невідома команда. Доступні: /start, /my, /new, /reset, /restart."

// chatLocks serializes events of one chat while leaving other chats free.
// An entry lives while some event of its chat holds or waits for it.
type chatLocks struct {
	mutex sync.Mutex
	chats map[string]*chatLock
}

type chatLock struct {
	sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{chats: make(map[string]*chatLock)}
}

func (l *chatLocks) Lock(chatID string) {
	l.mutex.Lock()

	lock, exists := l.chats[chatID]
	if !exists {
		lock = &chatLock{}
		l.chats[chatID] = lock
	}
	lock.refs++

	l.mutex.Unlock()

	lock.Lock()
}

func (l *chatLocks) Unlock(chatID string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	lock, exists := l.chats[chatID]
	if !exists {
		return
	}
	lock.refs--
	if lock.refs == 0 {
		delete(l.chats, chatID)
	}
	lock.Unlock()
}

// Engine is the transport-facing boundary. Every event runs under the
// chat's lock and every failure ends up as one message to the chat.
type Engine struct {
	nav       *Navigator
	menu      *Menu
	store     ProcessStore
	listeners *Listeners
	messenger chat.Messenger
	locks     *chatLocks
	log       *slog.Logger
}

func NewEngine(nav *Navigator, menu *Menu, store ProcessStore, listeners *Listeners, messenger chat.Messenger, log *slog.Logger) *Engine {
	return &Engine{
		nav:       nav,
		menu:      menu,
		store:     store,
		listeners: listeners,
		messenger: messenger,
		locks:     newChatLocks(),
		log:       log.With(sl.Module("greenbot")),
	}
}

// HandleCommand handles a slash command; args is the text after it.
func (e *Engine) HandleCommand(ctx context.Context, chatID, command, args string) {
	e.locks.Lock(chatID)
	defer e.locks.Unlock(chatID)

	var err error
	switch command {
	case CommandStart:
		if pid := ParseDeepLink(args).ProcessID(); pid != "" {
			err = e.offer(ctx, chatID, pid)
			break
		}
		if err = e.nav.Reset(ctx, chatID); err == nil {
			err = e.menu.ShowHome(ctx, chatID)
		}
	case CommandReset:
		if err = e.nav.Reset(ctx, chatID); err == nil {
			e.send(chatID, "Сесію скинуто.")
			err = e.menu.ShowHome(ctx, chatID)
		}
	case CommandRestart:
		e.listeners.Discard(chatID)
		err = e.nav.GoToFirst(ctx, chatID)
	case CommandMy:
		e.listeners.Discard(chatID)
		err = e.menu.ShowOwn(ctx, chatID)
	case CommandNew:
		err = e.menu.NewProcess(ctx, chatID, args)
	default:
		return
	}
	e.finish(chatID, err)
}

// HandleMessage routes free text to the chat's listener. Unknown slash
// commands get a usage hint and never reach a listener.
func (e *Engine) HandleMessage(ctx context.Context, chatID, text string) {
	e.locks.Lock(chatID)
	defer e.locks.Unlock(chatID)

	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		e.send(chatID, replyUnknownCommand)
		return
	}
	l, ok := e.listeners.Consume(chatID, InputText)
	if !ok {
		e.send(chatID, "Скористайтеся кнопками під повідомленням або надішліть /start.")
		return
	}
	e.finish(chatID, e.dispatch(ctx, l, Input{Kind: InputText, Text: text}))
}

// HandleFile routes an uploaded file to the chat's listener.
func (e *Engine) HandleFile(ctx context.Context, chatID string, file chat.FileInput) {
	e.locks.Lock(chatID)
	defer e.locks.Unlock(chatID)

	l, ok := e.listeners.Consume(chatID, InputFile)
	if !ok {
		e.send(chatID, "Зараз файл не очікується.")
		return
	}
	e.finish(chatID, e.dispatch(ctx, l, Input{Kind: InputFile, File: &file}))
}

// HandleCallback acknowledges a button tap and routes its action token.
func (e *Engine) HandleCallback(ctx context.Context, chatID, callbackID, data string) {
	e.locks.Lock(chatID)
	defer e.locks.Unlock(chatID)

	if err := e.messenger.AnswerCallback(callbackID, ""); err != nil {
		e.log.With(
			slog.String("chat_id", chatID),
			sl.Err(err),
		).Warn("answer callback")
	}

	tok, err := ParseToken(data)
	if err != nil {
		e.finish(chatID, err)
		return
	}

	switch tok.Namespace {
	case NamespaceNav:
		err = e.navigate(ctx, chatID, tok)
	case NamespaceStep:
		err = e.nav.HandleStepAction(ctx, chatID, tok)
	case NamespaceView:
		e.listeners.Discard(chatID)
		err = e.nav.Start(ctx, chatID, tok.ProcessID, ModeViewing)
	case NamespaceMenu:
		err = e.menu.Handle(ctx, chatID, tok)
	case NamespaceAdd:
		err = e.menu.ChooseKind(ctx, chatID, tok)
	}
	e.finish(chatID, err)
}

func (e *Engine) navigate(ctx context.Context, chatID string, tok Token) error {
	action, current, err := e.nav.Locate(ctx, chatID, tok)
	if err != nil || !current {
		return err
	}
	switch action {
	case ActionNext:
		return e.nav.Next(ctx, chatID)
	case ActionPrev:
		return e.nav.Previous(ctx, chatID)
	case ActionExit:
		ended, err := e.nav.Exit(ctx, chatID)
		if err != nil {
			return err
		}
		if ended != nil && ended.Mode == ModeAuthoring {
			return e.menu.ShowProcessMenu(ctx, chatID, ended.ProcessID)
		}
		e.send(chatID, "🏁 Дякуємо! Процес завершено.")
		return e.menu.ShowHome(ctx, chatID)
	}
	return ErrInvalidActionToken
}

// offer shows the header of a process reached by a deep link. Drafts are
// visible to their author only.
func (e *Engine) offer(ctx context.Context, chatID, pid string) error {
	p, err := loadProcess(ctx, e.store, pid)
	if err != nil {
		return err
	}
	if !p.IsFinished && p.AuthorChatID != chatID {
		return ErrProcessNotFound
	}
	return e.messenger.SendPrompt(chatID, headerPrompt(p))
}

func (e *Engine) dispatch(ctx context.Context, l *Listener, in Input) error {
	if l.Purpose == PurposeAnswer {
		return e.nav.HandleInput(ctx, l, in)
	}
	return e.menu.HandleInput(ctx, l, in)
}

// finish reports a failure to the chat. Unroutable tokens are only logged.
func (e *Engine) finish(chatID string, err error) {
	if err == nil {
		return
	}
	log := e.log.With(
		slog.String("chat_id", chatID),
		sl.Err(err),
	)
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrInvalidActionToken):
		log.Warn("action token dropped")
		return
	case errors.As(err, &ve):
		log.Debug("validation failed")
	case errors.Is(err, ErrPersistence):
		log.Error("persistence failure")
	default:
		log.Info("operation rejected")
	}
	e.send(chatID, userMessage(err))
}

func (e *Engine) send(chatID, text string) {
	if err := e.messenger.SendText(chatID, text); err != nil {
		e.log.With(
			slog.String("chat_id", chatID),
			sl.Err(err),
		).Error("send message")
	}
}
