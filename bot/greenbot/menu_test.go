package greenbot

import (
	"context"
	"strings"
	"testing"

	"GreenBot/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuNewProcess(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	e.engine.HandleCommand(ctx, "c1", CommandNew, "")
	assert.Equal(t, "Надішліть назву нового процесу.", e.messenger.lastText(t))

	e.engine.HandleMessage(ctx, "c1", "Onboarding")
	list, err := e.store.ListProcesses(ctx, ProcessFilter{AuthorChatID: "c1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Onboarding", list[0].Title)
	assert.False(t, list[0].IsFinished)

	menu := e.messenger.lastPrompt(t)
	assert.Contains(t, buttonData(menu), EncodeToken(NamespaceMenu, ActionAddStep, list[0].ID))
	assert.Contains(t, menu.Text, ProcessLink("green_test_bot", list[0].ID))
}

func TestMenuShowOwn(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	e.engine.HandleCommand(ctx, "author", CommandMy, "")
	assert.Contains(t, e.messenger.lastText(t), "/new")

	e.seed("p1", step(entity.StepInfo, "a"))
	e.seed("p2")
	e.engine.HandleCommand(ctx, "author", CommandMy, "")
	assert.Equal(t, []string{"menu_open_p1", "menu_open_p2"}, buttonData(e.messenger.lastPrompt(t)))
}

func TestMenuShowHomeHidesDrafts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))
	draft := e.seed("p2", step(entity.StepInfo, "a"))
	draft.IsFinished = false
	e.store.put(draft)

	require.NoError(t, e.menu.ShowHome(ctx, "c1"))
	assert.Equal(t, []string{"view_start_p1"}, buttonData(e.messenger.lastPrompt(t)))
}

func TestMenuAppendStepFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))

	e.engine.HandleCallback(ctx, "author", "cb1", "menu_add_step_p1")
	kinds := buttonData(e.messenger.lastPrompt(t))
	assert.Contains(t, kinds, "add_text_process_p1")
	assert.Contains(t, kinds, "add_generate_questions_process_p1")

	e.engine.HandleCallback(ctx, "author", "cb2", "add_text_process_p1")
	l, ok := e.listeners.Peek("author")
	require.True(t, ok)
	assert.Equal(t, PurposeDraftStep, l.Purpose)
	assert.Equal(t, positionEnd, l.Data["position"])

	e.engine.HandleMessage(ctx, "author", "Your name?\nAs in passport")

	stored := e.store.get("p1")
	require.Len(t, stored.Steps, 2)
	assert.Equal(t, "Your name?", stored.Steps[1].Prompt)
	assert.Equal(t, 2, stored.Steps[1].StepSequenceNumber)
	assert.Contains(t, e.messenger.texts, sentText{ChatID: "author", Text: "✅ Крок додано."})

	session := e.sessions.get("author")
	require.NotNil(t, session)
	assert.Equal(t, ModeAuthoring, session.Mode)
	assert.Equal(t, 1, session.CurrentStepIndex)
	assert.Contains(t, buttonData(e.messenger.lastPrompt(t)), "menu_insert_before_p1")
}

func TestMenuInsertBeforeCurrentStep(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"), step(entity.StepInfo, "b"))
	require.NoError(t, e.nav.OpenStep(ctx, "author", "p1", "s2", ModeAuthoring))

	e.engine.HandleCallback(ctx, "author", "cb1", "menu_insert_before_p1")
	assert.Contains(t, e.messenger.lastPrompt(t).Text, "перед")

	e.engine.HandleCallback(ctx, "author", "cb2", "add_info_process_p1")
	l, ok := e.listeners.Peek("author")
	require.True(t, ok)
	assert.Equal(t, positionBefore, l.Data["position"])
	assert.Equal(t, "1", l.Data["index"])
	assert.Empty(t, e.sessions.get("author").GetString(keyInsertPosition))

	e.engine.HandleMessage(ctx, "author", "middle")

	stored := e.store.get("p1")
	assert.Equal(t, []string{"a", "middle", "b"}, prompts(stored.Steps))
	assert.Equal(t, []int{1, 2, 3}, sequences(stored))
	assert.Equal(t, 1, e.sessions.get("author").CurrentStepIndex)
	assert.Contains(t, e.messenger.lastPrompt(t).Text, "middle")
}

func TestMenuDraftValidationRearms(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))

	e.engine.HandleCallback(ctx, "author", "cb1", "add_choice_p1")
	e.engine.HandleMessage(ctx, "author", "Pick one")

	assert.True(t, strings.HasPrefix(e.messenger.lastText(t), "⚠️ "))
	l, ok := e.listeners.Peek("author")
	require.True(t, ok)
	assert.Equal(t, PurposeDraftStep, l.Purpose)

	e.engine.HandleMessage(ctx, "author", "Pick one\nRed\nBlue")
	stored := e.store.get("p1")
	require.Len(t, stored.Steps, 2)
	assert.Equal(t, []string{"Red", "Blue"}, stored.Steps[1].Options)
}

func TestMenuEditPrompt(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))
	require.NoError(t, e.nav.Start(ctx, "author", "p1", ModeAuthoring))

	e.engine.HandleCallback(ctx, "author", "cb1", "menu_edit_prompt_p1")
	assert.Contains(t, e.messenger.lastText(t), "a")

	e.engine.HandleMessage(ctx, "author", "updated")
	assert.Equal(t, "updated", e.store.get("p1").Steps[0].Prompt)
	assert.Contains(t, e.messenger.lastPrompt(t).Text, "updated")
}

func TestMenuEditHeader(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seed("p1", step(entity.StepInfo, "a"))
	p.Description = "old"
	e.store.put(p)

	e.engine.HandleCallback(ctx, "author", "cb1", "menu_edit_title_p1")
	e.engine.HandleMessage(ctx, "author", "Renamed")
	assert.Equal(t, "Renamed", e.store.get("p1").Title)
	assert.Contains(t, e.messenger.texts, sentText{ChatID: "author", Text: "✅ Збережено."})

	e.engine.HandleCallback(ctx, "author", "cb2", "menu_edit_description_p1")
	e.engine.HandleMessage(ctx, "author", "-")
	assert.Empty(t, e.store.get("p1").Description)
}

func TestMenuPublishArchive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))

	e.engine.HandleCallback(ctx, "author", "cb1", "menu_archive_p1")
	assert.False(t, e.store.get("p1").IsFinished)
	assert.Contains(t, buttonData(e.messenger.lastPrompt(t)), "menu_publish_p1")

	e.engine.HandleCallback(ctx, "author", "cb2", "menu_publish_p1")
	assert.True(t, e.store.get("p1").IsFinished)
	assert.Contains(t, buttonData(e.messenger.lastPrompt(t)), "menu_archive_p1")
}

func TestMenuRejectsOtherAuthors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))

	e.engine.HandleCallback(ctx, "c9", "cb1", "menu_archive_p1")
	assert.True(t, e.store.get("p1").IsFinished)
	assert.True(t, strings.HasPrefix(e.messenger.lastText(t), "⚠️ "))

	e.engine.HandleCallback(ctx, "c9", "cb2", "add_text_process_p1")
	_, ok := e.listeners.Peek("c9")
	assert.False(t, ok)
}

func TestMenuDelete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))
	require.NoError(t, e.nav.Start(ctx, "author", "p1", ModeAuthoring))

	e.engine.HandleCallback(ctx, "author", "cb1", "menu_delete_p1")
	assert.Contains(t, buttonData(e.messenger.lastPrompt(t)), "menu_confirm_delete_p1")
	require.NotNil(t, e.store.get("p1"))

	e.engine.HandleCallback(ctx, "author", "cb2", "menu_confirm_delete_p1")
	assert.Nil(t, e.store.get("p1"))
	assert.Nil(t, e.sessions.get("author"))
	assert.Contains(t, e.messenger.texts, sentText{ChatID: "author", Text: "🗑 Процес видалено."})
}

func TestMenuUnknownKind(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))

	err := e.menu.ChooseKind(ctx, "author", Token{Namespace: NamespaceAdd, Action: "mystery", ProcessID: "p1"})
	assert.ErrorIs(t, err, ErrInvalidActionToken)
	err = e.menu.Handle(ctx, "author", Token{Namespace: NamespaceMenu, Action: "dance", ProcessID: "p1"})
	assert.ErrorIs(t, err, ErrInvalidActionToken)
}
