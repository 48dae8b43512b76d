package greenbot

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"GreenBot/bot/chat"
	"GreenBot/entity"
)

// Button texts
const (
	BtnPrev        = "◀️ Назад"
	BtnNext        = "Далі ▶️"
	BtnExit        = "🏁 Завершити"
	BtnYes         = "Так"
	BtnNo          = "Ні"
	BtnDecline     = "Ні, дякую"
	BtnOpenProcess = "▶️ Почати процес"
	BtnLink        = "Перейти"
	BtnInsertAbove = "➕ Крок перед"
	BtnInsertBelow = "➕ Крок після"
	BtnEditPrompt  = "✏️ Текст"
	BtnMenu        = "☰ Меню процесу"
)

// View is the presenter's read-only picture of the current position.
// Session is the working copy the navigator persists after presenting.
type View struct {
	ChatID  string
	Process *entity.Process
	Step    entity.Step
	Index   int
	Total   int
	Session *Session
}

// IsLast reports whether the step is the last one in presentation order.
func (v View) IsLast() bool {
	return v.Index >= v.Total-1
}

// Input is a normalized user response directed at the current step.
type Input struct {
	Kind   InputKind
	Text   string
	Action string
	File   *chat.FileInput
}

// Capture is a presenter's verdict on an input.
type Capture struct {
	// Matched is false when the input is not meant for this step; it is
	// ignored without a reply.
	Matched bool
	Record  bool
	Value   string
	Reply   string
	// Advance moves the cursor to the next step once handled.
	Advance bool
	// Follow is an extra prompt sent after the reply.
	Follow *chat.Prompt
}

// Presenter renders one step kind.
type Presenter interface {
	Present(ctx context.Context, v View) (chat.Prompt, error)
}

// Capturer is a presenter that also interprets user responses.
type Capturer interface {
	Presenter
	Capture(ctx context.Context, v View, in Input) (Capture, error)
}

// PresenterDeps are the collaborators shared by the built-in presenters.
type PresenterDeps struct {
	Store        ProcessStore
	Validator    ProcessValidator
	Generator    QuestionGenerator
	Archiver     FileArchiver
	MaxQuestions int
	Log          *slog.Logger
}

// Registry maps step kinds to presenters with a default for unknown kinds.
type Registry struct {
	presenters map[entity.StepKind]Presenter
	fallback   Presenter
}

// NewRegistry registers a presenter for every kind of the catalog.
func NewRegistry(deps PresenterDeps) *Registry {
	if deps.MaxQuestions <= 0 {
		deps.MaxQuestions = 10
	}
	text := &textPresenter{}
	info := &infoPresenter{}
	r := &Registry{
		presenters: make(map[entity.StepKind]Presenter),
		fallback:   info,
	}
	r.Register(entity.StepText, text)
	r.Register(entity.StepEmail, &emailPresenter{})
	r.Register(entity.StepYesNo, &yesNoPresenter{})
	r.Register(entity.StepChoice, &choicePresenter{})
	r.Register(entity.StepFile, &filePresenter{archiver: deps.Archiver})
	r.Register(entity.StepSound, &soundPresenter{})
	r.Register(entity.StepInfo, info)
	r.Register(entity.StepFinal, info)
	r.Register(entity.StepCallToAction, &callToActionPresenter{})
	r.Register(entity.StepConnect, &connectPresenter{store: deps.Store, validator: deps.Validator})
	r.Register(entity.StepGenerateQuestions, &questionsPresenter{
		generator: deps.Generator,
		max:       deps.MaxQuestions,
		log:       deps.Log,
	})
	return r
}

// Register sets the presenter of a kind, replacing any previous one.
func (r *Registry) Register(kind entity.StepKind, p Presenter) {
	r.presenters[kind] = p
}

// For returns the kind's presenter, or the default presenter.
func (r *Registry) For(kind entity.StepKind) Presenter {
	if p, ok := r.presenters[kind]; ok {
		return p
	}
	return r.fallback
}

// stepText renders the prompt in bold followed by the caption.
func stepText(step entity.Step) string {
	text := "<b>" + html.EscapeString(step.Prompt) + "</b>"
	if caption := step.Caption(); caption != "" {
		text += "\n\n" + html.EscapeString(caption)
	}
	return text
}

// navRow builds the Previous/Next row. The final step and the last step
// get an Exit button in place of Next.
func navRow(v View) []chat.InlineButton {
	row := make([]chat.InlineButton, 0, 2)
	if v.Index > 0 {
		row = append(row, positioned(NamespaceNav, BtnPrev, ActionPrev, v))
	}
	if v.Step.Type == entity.StepFinal || v.IsLast() {
		row = append(row, positioned(NamespaceNav, BtnExit, ActionExit, v))
	} else {
		row = append(row, positioned(NamespaceNav, BtnNext, ActionNext, v))
	}
	return row
}

func stepButton(text, action string, v View) chat.InlineButton {
	return positioned(NamespaceStep, text, action, v)
}

// positioned binds a button to the step it is shown with, so a tap on an
// older message can be told apart from a tap on the current one.
func positioned(namespace, text, action string, v View) chat.InlineButton {
	return chat.InlineButton{Text: text, Data: EncodeToken(namespace, PositionAction(action, v.Index), v.Process.ID)}
}

// headerPrompt renders a process header with a start button.
func headerPrompt(p *entity.Process) chat.Prompt {
	text := "<b>" + html.EscapeString(p.Title) + "</b>"
	if p.Description != "" {
		text += "\n\n" + html.EscapeString(p.Description)
	}
	text += fmt.Sprintf("\n\nКроків: %d", len(p.Steps))
	return chat.Prompt{
		Text:     text,
		PhotoURL: p.ImageURL,
		Rows: [][]chat.InlineButton{
			{{Text: BtnOpenProcess, Data: EncodeToken(NamespaceView, ActionStart, p.ID)}},
		},
	}
}
