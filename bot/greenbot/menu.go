package greenbot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"GreenBot/bot/chat"
	"GreenBot/entity"
	"GreenBot/internal/lib/sl"
)

// Pending insert positions
const (
	positionEnd    = "end"
	positionBefore = "before"
	positionAfter  = "after"

	fieldNew = "new"
)

// Menu is the chat-side authoring surface: process list, process menu,
// step drafting and header edits.
type Menu struct {
	store          ProcessStore
	editor         *Editor
	lifecycle      *Lifecycle
	nav            *Navigator
	sessions       SessionStore
	listeners      *Listeners
	messenger      chat.Messenger
	botName        string
	publishedLimit int
	log            *slog.Logger
}

// MenuDeps are the collaborators of a Menu.
type MenuDeps struct {
	Store          ProcessStore
	Editor         *Editor
	Lifecycle      *Lifecycle
	Navigator      *Navigator
	Sessions       SessionStore
	Listeners      *Listeners
	Messenger      chat.Messenger
	BotName        string
	PublishedLimit int
}

func NewMenu(deps MenuDeps, log *slog.Logger) *Menu {
	if deps.PublishedLimit <= 0 {
		deps.PublishedLimit = 20
	}
	return &Menu{
		store:          deps.Store,
		editor:         deps.Editor,
		lifecycle:      deps.Lifecycle,
		nav:            deps.Navigator,
		sessions:       deps.Sessions,
		listeners:      deps.Listeners,
		messenger:      deps.Messenger,
		botName:        deps.BotName,
		publishedLimit: deps.PublishedLimit,
		log:            log.With(sl.Module("greenbot.menu")),
	}
}

// ShowHome lists the published processes.
func (m *Menu) ShowHome(ctx context.Context, chatID string) error {
	published := true
	list, err := m.store.ListProcesses(ctx, ProcessFilter{Published: &published, Limit: m.publishedLimit})
	if err != nil {
		return persistence("list processes", err)
	}
	if len(list) == 0 {
		return m.messenger.SendText(chatID, "Поки що немає опублікованих процесів.\n\n/new — створити власний процес")
	}
	rows := make([][]chat.InlineButton, 0, len(list))
	for _, p := range list {
		rows = append(rows, []chat.InlineButton{{Text: p.Title, Data: EncodeToken(NamespaceView, ActionStart, p.ID)}})
	}
	return m.messenger.SendPrompt(chatID, chat.Prompt{
		Text: "Оберіть процес:\n\n/my — ваші процеси, /new — створити новий",
		Rows: rows,
	})
}

// ShowOwn lists the processes authored by the chat.
func (m *Menu) ShowOwn(ctx context.Context, chatID string) error {
	list, err := m.store.ListProcesses(ctx, ProcessFilter{AuthorChatID: chatID})
	if err != nil {
		return persistence("list processes", err)
	}
	if len(list) == 0 {
		return m.messenger.SendText(chatID, "У вас ще немає процесів. Надішліть /new, щоб створити перший.")
	}
	rows := make([][]chat.InlineButton, 0, len(list))
	for _, p := range list {
		mark := "📝"
		if p.IsFinished {
			mark = "📢"
		}
		rows = append(rows, []chat.InlineButton{{Text: mark + " " + p.Title, Data: EncodeToken(NamespaceMenu, ActionOpen, p.ID)}})
	}
	return m.messenger.SendPrompt(chatID, chat.Prompt{Text: "Ваші процеси:", Rows: rows})
}

// NewProcess creates a process titled title, or asks for a title when it
// is empty.
func (m *Menu) NewProcess(ctx context.Context, chatID, title string) error {
	if strings.TrimSpace(title) == "" {
		m.listeners.Register(&Listener{
			ChatID:  chatID,
			Expect:  []InputKind{InputText},
			Purpose: PurposeHeader,
			Data:    map[string]string{"field": fieldNew},
		})
		return m.messenger.SendText(chatID, "Надішліть назву нового процесу.")
	}
	p, err := m.lifecycle.Create(ctx, entity.ProcessHeader{Title: title, AuthorChatID: chatID})
	if err != nil {
		return err
	}
	return m.ShowProcessMenu(ctx, chatID, p.ID)
}

// ShowProcessMenu renders the authoring menu of a process.
func (m *Menu) ShowProcessMenu(ctx context.Context, chatID, processID string) error {
	p, err := m.own(ctx, chatID, processID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("<b>" + html.EscapeString(p.Title) + "</b>")
	if p.Description != "" {
		sb.WriteString("\n\n" + html.EscapeString(p.Description))
	}
	status := "📝 чернетка"
	if p.IsFinished {
		status = "📢 опубліковано"
	}
	sb.WriteString(fmt.Sprintf("\n\nСтатус: %s\nКроків: %d", status, len(p.Steps)))
	if m.botName != "" {
		sb.WriteString("\nПосилання: " + ProcessLink(m.botName, p.ID))
	}

	lifecycle := chat.InlineButton{Text: "📢 Опублікувати", Data: EncodeToken(NamespaceMenu, ActionPublish, p.ID)}
	if p.IsFinished {
		lifecycle = chat.InlineButton{Text: "📦 Архівувати", Data: EncodeToken(NamespaceMenu, ActionArchive, p.ID)}
	}
	return m.messenger.SendPrompt(chatID, chat.Prompt{
		Text:     sb.String(),
		PhotoURL: p.ImageURL,
		Rows: [][]chat.InlineButton{
			{
				{Text: "➕ Додати крок", Data: EncodeToken(NamespaceMenu, ActionAddStep, p.ID)},
				{Text: "👁 Переглянути", Data: EncodeToken(NamespaceMenu, ActionPreview, p.ID)},
			},
			{
				{Text: "✏️ Назва", Data: EncodeToken(NamespaceMenu, ActionEditTitle, p.ID)},
				{Text: "✏️ Опис", Data: EncodeToken(NamespaceMenu, ActionEditDescription, p.ID)},
				{Text: "🖼 Зображення", Data: EncodeToken(NamespaceMenu, ActionEditImage, p.ID)},
			},
			{lifecycle},
			{{Text: "🗑 Видалити", Data: EncodeToken(NamespaceMenu, ActionDelete, p.ID)}},
		},
	})
}

// Handle executes a menu action.
func (m *Menu) Handle(ctx context.Context, chatID string, tok Token) error {
	pid := tok.ProcessID
	switch tok.Action {
	case ActionOpen:
		return m.ShowProcessMenu(ctx, chatID, pid)
	case ActionPreview:
		if _, err := m.own(ctx, chatID, pid); err != nil {
			return err
		}
		return m.nav.Start(ctx, chatID, pid, ModeAuthoring)
	case ActionPublish:
		return m.transition(ctx, chatID, pid, m.lifecycle.Publish, "📢 Процес опубліковано.")
	case ActionArchive:
		return m.transition(ctx, chatID, pid, m.lifecycle.Archive, "📦 Процес переміщено в архів.")
	case ActionDelete:
		p, err := m.own(ctx, chatID, pid)
		if err != nil {
			return err
		}
		return m.messenger.SendPrompt(chatID, chat.Prompt{
			Text: fmt.Sprintf("Видалити процес <b>%s</b> разом з усіма відповідями?", html.EscapeString(p.Title)),
			Rows: [][]chat.InlineButton{{
				{Text: "🗑 Так, видалити", Data: EncodeToken(NamespaceMenu, ActionConfirmDelete, pid)},
				{Text: "Скасувати", Data: EncodeToken(NamespaceMenu, ActionOpen, pid)},
			}},
		})
	case ActionConfirmDelete:
		return m.delete(ctx, chatID, pid)
	case ActionEditTitle:
		return m.askHeader(ctx, chatID, pid, FieldTitle, "Надішліть нову назву процесу.")
	case ActionEditDescription:
		return m.askHeader(ctx, chatID, pid, FieldDescription, "Надішліть новий опис процесу. Надішліть «-», щоб очистити опис.")
	case ActionEditImage:
		return m.askHeader(ctx, chatID, pid, FieldImageURL, "Надішліть посилання на зображення. Надішліть «-», щоб прибрати зображення.")
	case ActionAddStep:
		return m.addStep(ctx, chatID, pid)
	case ActionInsertBefore:
		return m.insertAt(ctx, chatID, pid, positionBefore)
	case ActionInsertAfter:
		return m.insertAt(ctx, chatID, pid, positionAfter)
	case ActionEditPrompt:
		return m.editPrompt(ctx, chatID, pid)
	}
	return fmt.Errorf("%w: unknown menu action %q", ErrInvalidActionToken, tok.Action)
}

// ChooseKind arms a draft listener for the step kind named by the token.
func (m *Menu) ChooseKind(ctx context.Context, chatID string, tok Token) error {
	kind := entity.StepKind(tok.Action)
	def, ok := LookupKind(kind)
	if !ok {
		return fmt.Errorf("%w: unknown step kind %q", ErrInvalidActionToken, tok.Action)
	}
	if _, err := m.own(ctx, chatID, tok.ProcessID); err != nil {
		return err
	}

	position, index := positionEnd, 0
	if session, err := m.nav.Session(ctx, chatID); err == nil && session.ProcessID == tok.ProcessID {
		if pos := session.GetString(keyInsertPosition); pos != "" {
			position, index = pos, session.GetInt(keyInsertIndex)
			session.Unset(keyInsertPosition)
			session.Unset(keyInsertIndex)
			if err = m.sessions.SaveSession(ctx, session); err != nil {
				return persistence("save session", err)
			}
		}
	}

	m.listeners.Register(&Listener{
		ChatID:    chatID,
		ProcessID: tok.ProcessID,
		Expect:    []InputKind{InputText},
		Purpose:   PurposeDraftStep,
		Data: map[string]string{
			"kind":     string(kind),
			"position": position,
			"index":    strconv.Itoa(index),
		},
	})
	return m.messenger.SendText(chatID, fmt.Sprintf(
		"<b>%s</b>\n\n%s\n\nНадішліть крок одним повідомленням.",
		def.Label, html.EscapeString(def.Hint),
	))
}

// HandleInput completes an authoring listener.
func (m *Menu) HandleInput(ctx context.Context, l *Listener, in Input) error {
	var err error
	switch l.Purpose {
	case PurposeDraftStep:
		err = m.completeDraft(ctx, l, in.Text)
	case PurposeEditPrompt:
		err = m.completePrompt(ctx, l, in.Text)
	case PurposeHeader:
		err = m.completeHeader(ctx, l, in.Text)
	default:
		return fmt.Errorf("unexpected listener purpose %q", l.Purpose)
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		m.listeners.Register(l)
	}
	return err
}

func (m *Menu) completeDraft(ctx context.Context, l *Listener, text string) error {
	step, err := DraftStep(entity.StepKind(l.Data["kind"]), text)
	if err != nil {
		return err
	}
	index, _ := strconv.Atoi(l.Data["index"])

	var added entity.Step
	switch l.Data["position"] {
	case positionBefore:
		_, added, err = m.editor.InsertBefore(ctx, l.ProcessID, index, step)
	case positionAfter:
		_, added, err = m.editor.InsertAfter(ctx, l.ProcessID, index, step)
	default:
		_, added, err = m.editor.AppendStep(ctx, l.ProcessID, step)
	}
	if err != nil {
		return err
	}
	m.send(l.ChatID, "✅ Крок додано.")
	return m.nav.OpenStep(ctx, l.ChatID, l.ProcessID, added.StepID, ModeAuthoring)
}

func (m *Menu) completePrompt(ctx context.Context, l *Listener, text string) error {
	text = strings.TrimSpace(text)
	_, step, err := m.editor.EditStepField(ctx, l.ProcessID, l.StepID, StepPatch{Prompt: &text})
	if err != nil {
		return err
	}
	m.send(l.ChatID, "✅ Текст кроку оновлено.")
	return m.nav.OpenStep(ctx, l.ChatID, l.ProcessID, step.StepID, ModeAuthoring)
}

func (m *Menu) completeHeader(ctx context.Context, l *Listener, text string) error {
	field := l.Data["field"]
	if field == fieldNew {
		return m.NewProcess(ctx, l.ChatID, text)
	}
	if strings.TrimSpace(text) == "-" && field != FieldTitle {
		text = ""
	}
	if _, err := m.lifecycle.EditHeaderField(ctx, l.ProcessID, field, text); err != nil {
		return err
	}
	m.send(l.ChatID, "✅ Збережено.")
	return m.ShowProcessMenu(ctx, l.ChatID, l.ProcessID)
}

func (m *Menu) transition(ctx context.Context, chatID, pid string, apply func(context.Context, string) (*entity.Process, error), done string) error {
	if _, err := m.own(ctx, chatID, pid); err != nil {
		return err
	}
	if _, err := apply(ctx, pid); err != nil {
		return err
	}
	m.send(chatID, done)
	return m.ShowProcessMenu(ctx, chatID, pid)
}

func (m *Menu) delete(ctx context.Context, chatID, pid string) error {
	if _, err := m.own(ctx, chatID, pid); err != nil {
		return err
	}
	if err := m.lifecycle.Delete(ctx, pid); err != nil {
		return err
	}
	if session, err := m.nav.Session(ctx, chatID); err == nil && session.ProcessID == pid {
		if err = m.nav.Reset(ctx, chatID); err != nil {
			return err
		}
	}
	m.send(chatID, "🗑 Процес видалено.")
	return m.ShowOwn(ctx, chatID)
}

func (m *Menu) askHeader(ctx context.Context, chatID, pid, field, ask string) error {
	if _, err := m.own(ctx, chatID, pid); err != nil {
		return err
	}
	m.listeners.Register(&Listener{
		ChatID:    chatID,
		ProcessID: pid,
		Expect:    []InputKind{InputText},
		Purpose:   PurposeHeader,
		Data:      map[string]string{"field": field},
	})
	return m.messenger.SendText(chatID, ask)
}

func (m *Menu) addStep(ctx context.Context, chatID, pid string) error {
	if _, err := m.own(ctx, chatID, pid); err != nil {
		return err
	}
	if session, err := m.nav.Session(ctx, chatID); err == nil && session.ProcessID == pid && session.GetString(keyInsertPosition) != "" {
		session.Unset(keyInsertPosition)
		session.Unset(keyInsertIndex)
		if err = m.sessions.SaveSession(ctx, session); err != nil {
			return persistence("save session", err)
		}
	}
	return m.showKinds(chatID, pid, "Оберіть тип нового кроку:")
}

// insertAt remembers where the next drafted step goes relative to the step
// the chat is looking at.
func (m *Menu) insertAt(ctx context.Context, chatID, pid, position string) error {
	p, err := m.own(ctx, chatID, pid)
	if err != nil {
		return err
	}
	session, step, err := m.currentStep(ctx, chatID, p)
	if err != nil {
		return err
	}
	session.Set(keyInsertPosition, position)
	session.Set(keyInsertIndex, p.StepIndexByID(step.StepID))
	if err = m.sessions.SaveSession(ctx, session); err != nil {
		return persistence("save session", err)
	}
	where := "перед"
	if position == positionAfter {
		where = "після"
	}
	return m.showKinds(chatID, pid, fmt.Sprintf("Новий крок буде додано %s кроком «%s». Оберіть тип:", where, html.EscapeString(step.Prompt)))
}

func (m *Menu) editPrompt(ctx context.Context, chatID, pid string) error {
	p, err := m.own(ctx, chatID, pid)
	if err != nil {
		return err
	}
	_, step, err := m.currentStep(ctx, chatID, p)
	if err != nil {
		return err
	}
	m.listeners.Register(&Listener{
		ChatID:    chatID,
		ProcessID: pid,
		StepID:    step.StepID,
		Expect:    []InputKind{InputText},
		Purpose:   PurposeEditPrompt,
	})
	return m.messenger.SendText(chatID, "Надішліть новий текст кроку. Зараз:\n\n"+html.EscapeString(step.Prompt))
}

func (m *Menu) currentStep(ctx context.Context, chatID string, p *entity.Process) (*Session, entity.Step, error) {
	session, err := m.nav.Session(ctx, chatID)
	if err != nil {
		return nil, entity.Step{}, err
	}
	if session.ProcessID != p.ID {
		return nil, entity.Step{}, ErrNoSession
	}
	sorted := p.SortedSteps()
	i := session.CurrentStepIndex
	if i < 0 || i >= len(sorted) {
		return nil, entity.Step{}, ErrStepIndexOutOfRange
	}
	return session, sorted[i], nil
}

func (m *Menu) showKinds(chatID, pid, text string) error {
	var rows [][]chat.InlineButton
	var row []chat.InlineButton
	for _, kind := range entity.StepKinds {
		def, _ := LookupKind(kind)
		row = append(row, chat.InlineButton{Text: def.Label, Data: EncodeToken(NamespaceAdd, string(kind), pid)})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []chat.InlineButton{{Text: "↩️ Назад до меню", Data: EncodeToken(NamespaceMenu, ActionOpen, pid)}})
	return m.messenger.SendPrompt(chatID, chat.Prompt{Text: text, Rows: rows})
}

// own loads a process the chat may edit. Processes without an author are
// editable by anyone.
func (m *Menu) own(ctx context.Context, chatID, pid string) (*entity.Process, error) {
	p, err := loadProcess(ctx, m.store, pid)
	if err != nil {
		return nil, err
	}
	if p.AuthorChatID != "" && p.AuthorChatID != chatID {
		return nil, invalid("редагувати процес може лише його автор")
	}
	return p, nil
}

func (m *Menu) send(chatID, text string) {
	if err := m.messenger.SendText(chatID, text); err != nil {
		m.log.With(
			slog.String("chat_id", chatID),
			sl.Err(err),
		).Error("send message")
	}
}
