package greenbot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"path/filepath"
	"strings"

	"GreenBot/bot/chat"
	"GreenBot/entity"
	"GreenBot/internal/lib/sl"
	"GreenBot/internal/lib/validate"
)

const replySaved = "✅ Відповідь збережено."

// infoPresenter shows prompt and description with navigation. It serves
// info_process, final and any kind without a presenter of its own.
type infoPresenter struct{}

func (p *infoPresenter) Present(_ context.Context, v View) (chat.Prompt, error) {
	return chat.Prompt{
		Text: stepText(v.Step),
		Rows: [][]chat.InlineButton{navRow(v)},
	}, nil
}

type textPresenter struct{}

func (p *textPresenter) Present(_ context.Context, v View) (chat.Prompt, error) {
	return chat.Prompt{
		Text: stepText(v.Step),
		Rows: [][]chat.InlineButton{navRow(v)},
	}, nil
}

func (p *textPresenter) Capture(_ context.Context, v View, in Input) (Capture, error) {
	if in.Kind != InputText {
		return Capture{}, nil
	}
	value := strings.TrimSpace(in.Text)
	if value == "" && v.Step.Validation.Required {
		return Capture{}, invalid("відповідь не може бути порожньою")
	}
	return Capture{Matched: true, Record: true, Value: value, Reply: replySaved}, nil
}

type emailPresenter struct {
	textPresenter
}

func (p *emailPresenter) Capture(_ context.Context, v View, in Input) (Capture, error) {
	if in.Kind != InputText {
		return Capture{}, nil
	}
	value := strings.TrimSpace(in.Text)
	if value == "" {
		if v.Step.Validation.Required {
			return Capture{}, invalid("вкажіть адресу електронної пошти")
		}
		return Capture{Matched: true, Record: true, Value: entity.AnswerSkipped, Reply: replySaved}, nil
	}
	if err := validate.Var(value, "email"); err != nil {
		return Capture{}, invalid("некоректна адреса електронної пошти")
	}
	return Capture{Matched: true, Record: true, Value: value, Reply: replySaved}, nil
}

type yesNoPresenter struct{}

func (p *yesNoPresenter) buttons(v View) []chat.InlineButton {
	return []chat.InlineButton{
		stepButton(BtnYes, ActionYes, v),
		stepButton(BtnNo, ActionNo, v),
	}
}

func (p *yesNoPresenter) Present(_ context.Context, v View) (chat.Prompt, error) {
	return chat.Prompt{
		Text: stepText(v.Step),
		Rows: [][]chat.InlineButton{p.buttons(v), navRow(v)},
	}, nil
}

func (p *yesNoPresenter) Capture(_ context.Context, v View, in Input) (Capture, error) {
	action := in.Action
	if in.Kind == InputText {
		if data := chat.MatchTextToInline(in.Text, p.buttons(v)); data != "" {
			if tok, err := ParseToken(data); err == nil {
				action = tok.Action
			}
		}
	}
	switch action {
	case ActionYes:
		return Capture{Matched: true, Record: true, Value: BtnYes, Reply: replySaved}, nil
	case ActionNo:
		return Capture{Matched: true, Record: true, Value: BtnNo, Reply: replySaved}, nil
	}
	return Capture{}, nil
}

type choicePresenter struct{}

func (p *choicePresenter) buttons(v View) []chat.InlineButton {
	buttons := make([]chat.InlineButton, 0, len(v.Step.Options))
	for i, option := range v.Step.Options {
		buttons = append(buttons, stepButton(option, OptionAction(i), v))
	}
	return buttons
}

func (p *choicePresenter) Present(_ context.Context, v View) (chat.Prompt, error) {
	buttons := p.buttons(v)
	rows := make([][]chat.InlineButton, 0, len(buttons)+1)
	for _, btn := range buttons {
		rows = append(rows, []chat.InlineButton{btn})
	}
	rows = append(rows, navRow(v))
	return chat.Prompt{
		Text: chat.FormatNumberedInline(stepText(v.Step), buttons),
		Rows: rows,
	}, nil
}

func (p *choicePresenter) Capture(_ context.Context, v View, in Input) (Capture, error) {
	action := in.Action
	if in.Kind == InputText {
		buttons := p.buttons(v)
		data := chat.MatchNumberToInline(in.Text, buttons)
		if data == "" {
			data = chat.MatchTextToInline(in.Text, buttons)
		}
		if data == "" {
			return Capture{}, invalid("оберіть один з варіантів: надішліть його номер або натисніть кнопку")
		}
		tok, err := ParseToken(data)
		if err != nil {
			return Capture{}, err
		}
		action = tok.Action
	}
	i, ok := Token{Action: action}.OptionIndex()
	if !ok || i >= len(v.Step.Options) {
		return Capture{}, nil
	}
	option := v.Step.Options[i]
	return Capture{
		Matched: true,
		Record:  true,
		Value:   option,
		Reply:   fmt.Sprintf("Ви обрали: <b>%s</b>", html.EscapeString(option)),
	}, nil
}

type filePresenter struct {
	archiver FileArchiver
}

func (p *filePresenter) Present(_ context.Context, v View) (chat.Prompt, error) {
	text := stepText(v.Step)
	if types := v.Step.Validation.FileTypes; len(types) > 0 {
		text += "\n\nДозволені типи: " + html.EscapeString(strings.Join(types, ", "))
	}
	return chat.Prompt{
		Text: text,
		Rows: [][]chat.InlineButton{navRow(v)},
	}, nil
}

func (p *filePresenter) Capture(ctx context.Context, v View, in Input) (Capture, error) {
	switch in.Kind {
	case InputText:
		return Capture{}, invalid("очікується файл, а не текст")
	case InputFile:
	default:
		return Capture{}, nil
	}
	file := in.File
	if file == nil {
		return Capture{}, invalid("очікується файл")
	}
	if file.Size > entity.MaxFileSize {
		return Capture{}, invalid("файл завеликий, максимум %d МБ", entity.MaxFileSize>>20)
	}
	if !fileTypeAllowed(*file, v.Step.Validation.FileTypes) {
		return Capture{}, invalid("недозволений тип файлу, очікується: %s", strings.Join(v.Step.Validation.FileTypes, ", "))
	}

	value := file.FileID
	if p.archiver != nil {
		ref, err := p.archiver.ArchiveFile(ctx, *file, entity.FileMetadata{
			MIMEType:  file.MIMEType,
			ProcessID: v.Process.ID,
			ChatID:    v.ChatID,
			StepID:    v.Step.StepID,
		})
		if err != nil {
			return Capture{}, persistence("archive file", err)
		}
		value = ref
	}
	return Capture{Matched: true, Record: true, Value: value, Reply: "✅ Файл отримано."}, nil
}

// fileTypeAllowed matches the file extension or MIME subtype against the
// allowed list. An empty list allows everything.
func fileTypeAllowed(file chat.FileInput, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	candidates := make([]string, 0, 2)
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.FileName), ".")); ext != "" {
		candidates = append(candidates, ext)
	}
	if _, sub, ok := strings.Cut(strings.ToLower(file.MIMEType), "/"); ok && sub != "" {
		candidates = append(candidates, sub)
	}
	for _, c := range candidates {
		for _, a := range allowed {
			if c == a || (c == "jpeg" && a == "jpg") || (c == "jpg" && a == "jpeg") {
				return true
			}
		}
	}
	return false
}

type soundPresenter struct{}

func (p *soundPresenter) Present(_ context.Context, v View) (chat.Prompt, error) {
	return chat.Prompt{
		Text: stepText(v.Step),
		Audio: &chat.Audio{
			URL:       v.Step.AudioURL(),
			Title:     v.Step.Prompt,
			Performer: v.Step.Metadata.Performer,
		},
		Rows: [][]chat.InlineButton{navRow(v)},
	}, nil
}

type callToActionPresenter struct{}

func (p *callToActionPresenter) Present(_ context.Context, v View) (chat.Prompt, error) {
	label := v.Step.Metadata.LinkLabel
	if label == "" {
		label = BtnLink
	}
	return chat.Prompt{
		Text: stepText(v.Step),
		Rows: [][]chat.InlineButton{
			{{Text: label, URL: v.Step.Metadata.LinkURL}},
			{stepButton(BtnDecline, ActionDecline, v)},
			navRow(v),
		},
	}, nil
}

func (p *callToActionPresenter) Capture(_ context.Context, _ View, in Input) (Capture, error) {
	if in.Kind == InputCallback && in.Action == ActionDecline {
		return Capture{Matched: true, Advance: true}, nil
	}
	return Capture{}, nil
}

// connectPresenter offers the header of another process. The target id is
// checked when the step is shown; the result is kept in the session so the
// Yes button acts on what the user was offered.
type connectPresenter struct {
	store     ProcessStore
	validator ProcessValidator
}

func connectKey(stepID string) string {
	return keyConnectValid + "_" + stepID
}

func (p *connectPresenter) valid(ctx context.Context, target string) bool {
	return target != "" && p.validator != nil && p.validator.IsValidProcessID(ctx, target)
}

func (p *connectPresenter) Present(ctx context.Context, v View) (chat.Prompt, error) {
	v.Session.Set(connectKey(v.Step.StepID), p.valid(ctx, v.Step.ConnectTarget()))
	return chat.Prompt{
		Text: stepText(v.Step),
		Rows: [][]chat.InlineButton{
			{stepButton(BtnYes, ActionConnectYes, v), stepButton(BtnNo, ActionConnectNo, v)},
			navRow(v),
		},
	}, nil
}

func (p *connectPresenter) Capture(ctx context.Context, v View, in Input) (Capture, error) {
	if in.Kind != InputCallback {
		return Capture{}, nil
	}
	switch in.Action {
	case ActionConnectNo:
		return Capture{Matched: true, Record: true, Value: entity.AnswerSkipped, Reply: "Гаразд, пропускаємо."}, nil
	case ActionConnectYes:
	default:
		return Capture{}, nil
	}

	target := v.Step.ConnectTarget()
	valid, checked := v.Session.Data[connectKey(v.Step.StepID)].(bool)
	if !checked {
		valid = p.valid(ctx, target)
	}
	if !valid {
		return Capture{}, invalid("пов'язаний процес не знайдено")
	}
	linked, err := p.store.FindProcess(ctx, target)
	if err != nil {
		return Capture{}, persistence("find linked process", err)
	}
	if linked == nil {
		return Capture{}, invalid("пов'язаний процес не знайдено")
	}
	header := headerPrompt(linked)
	return Capture{Matched: true, Record: true, Value: target, Follow: &header}, nil
}

// questionsPresenter shows generated questions followed by the prompt and
// captures one free-text answer. Questions are generated once per step
// visit and cached in the session.
type questionsPresenter struct {
	generator QuestionGenerator
	max       int
	log       *slog.Logger
}

func (p *questionsPresenter) questions(ctx context.Context, v View) []string {
	if v.Session.GetString(keyQuestionsStep) == v.Step.StepID {
		if cached := v.Session.GetString(keyQuestions); cached != "" {
			return strings.Split(cached, "\n")
		}
	}
	if p.generator == nil {
		return nil
	}
	count := v.Step.Metadata.NumQuestions
	if count > p.max {
		count = p.max
	}
	generated, err := p.generator.GenerateQuestions(ctx, v.Step.Prompt, v.Step.Description, count)
	if err != nil {
		if p.log != nil {
			p.log.With(
				slog.String("process_id", v.Process.ID),
				slog.String("step_id", v.Step.StepID),
				sl.Err(err),
			).Warn("generate questions")
		}
		return nil
	}
	var questions []string
	for _, q := range generated {
		if q = strings.TrimSpace(strings.ReplaceAll(q, "\n", " ")); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) > 0 {
		v.Session.Set(keyQuestionsStep, v.Step.StepID)
		v.Session.Set(keyQuestions, strings.Join(questions, "\n"))
	}
	return questions
}

func (p *questionsPresenter) Present(ctx context.Context, v View) (chat.Prompt, error) {
	text := stepText(v.Step)
	if questions := p.questions(ctx, v); len(questions) > 0 {
		var sb strings.Builder
		sb.WriteString(text)
		sb.WriteString("\n")
		for i, q := range questions {
			sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, html.EscapeString(q)))
		}
		text = sb.String()
	}
	return chat.Prompt{
		Text: text,
		Rows: [][]chat.InlineButton{navRow(v)},
	}, nil
}

func (p *questionsPresenter) Capture(_ context.Context, v View, in Input) (Capture, error) {
	if in.Kind != InputText {
		return Capture{}, nil
	}
	value := strings.TrimSpace(in.Text)
	if value == "" && v.Step.Validation.Required {
		return Capture{}, invalid("відповідь не може бути порожньою")
	}
	return Capture{Matched: true, Record: true, Value: value, Reply: replySaved}, nil
}
