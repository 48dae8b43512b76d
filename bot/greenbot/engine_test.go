package greenbot

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"GreenBot/bot/chat"
	"GreenBot/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineViewingFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepText, "Name?"), step(entity.StepFinal, "Done"))

	e.engine.HandleCommand(ctx, "c1", CommandStart, "")
	assert.Equal(t, []string{"view_start_p1"}, buttonData(e.messenger.lastPrompt(t)))

	e.engine.HandleCallback(ctx, "c1", "cb1", "view_start_p1")
	assert.Contains(t, e.messenger.lastPrompt(t).Text, "Name?")

	e.engine.HandleMessage(ctx, "c1", "Alice")
	assert.Equal(t, replySaved, e.messenger.lastText(t))

	e.engine.HandleCallback(ctx, "c1", "cb2", "nav_next_0_p1")
	assert.Contains(t, e.messenger.lastPrompt(t).Text, "Done")

	e.engine.HandleCallback(ctx, "c1", "cb3", "nav_exit_1_p1")
	assert.Contains(t, e.messenger.texts, sentText{ChatID: "c1", Text: "🏁 Дякуємо! Процес завершено."})
	assert.Nil(t, e.sessions.get("c1"))
	assert.Equal(t, []string{"cb1", "cb2", "cb3"}, e.messenger.callbacks)

	answer, ok := e.recorder.get("p1", "c1", "s1")
	require.True(t, ok)
	assert.Equal(t, "Alice", answer.Answer)
}

func TestEngineReportsErrorOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"), step(entity.StepInfo, "b"))

	e.engine.HandleCallback(ctx, "c1", "cb1", "view_start_p1")
	texts := e.messenger.textCount()
	e.engine.HandleCallback(ctx, "c1", "cb2", "nav_prev_0_p1")

	assert.Equal(t, texts+1, e.messenger.textCount())
	assert.Equal(t, userMessage(ErrFirstStep), e.messenger.lastText(t))
}

func TestEngineDropsInvalidTokens(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"), step(entity.StepInfo, "b"))
	e.engine.HandleCallback(ctx, "c1", "cb1", "view_start_p1")
	prompts, texts := e.messenger.promptCount(), e.messenger.textCount()

	e.engine.HandleCallback(ctx, "c1", "cb2", "garbage")
	e.engine.HandleCallback(ctx, "c1", "cb3", "nav_next_0_p2")
	e.engine.HandleCallback(ctx, "c1", "cb4", "step_yes_0_p2")
	e.engine.HandleCallback(ctx, "c1", "cb5", "nav_next_p1")

	assert.Equal(t, prompts, e.messenger.promptCount())
	assert.Equal(t, texts, e.messenger.textCount())
	assert.Equal(t, 0, e.sessions.get("c1").CurrentStepIndex)
	assert.Len(t, e.messenger.callbacks, 5)
}

func TestEngineUnexpectedInput(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))
	e.engine.HandleCallback(ctx, "c1", "cb1", "view_start_p1")

	e.engine.HandleMessage(ctx, "c1", "hello")
	assert.Equal(t, "Скористайтеся кнопками під повідомленням або надішліть /start.", e.messenger.lastText(t))

	e.engine.HandleFile(ctx, "c1", chat.FileInput{FileID: "f"})
	assert.Equal(t, "Зараз файл не очікується.", e.messenger.lastText(t))
	assert.Equal(t, 0, e.recorder.saves)
}

func TestEngineFileAnswer(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepFile, "Upload"))
	e.engine.HandleCallback(ctx, "c1", "cb1", "view_start_p1")

	e.engine.HandleFile(ctx, "c1", chat.FileInput{FileID: "tg1", FileName: "a.pdf", MIMEType: "application/pdf", Size: 100})

	answer, ok := e.recorder.get("p1", "c1", "s1")
	require.True(t, ok)
	assert.Equal(t, entity.FileRefPrefix+"f1", answer.Answer)
	assert.Equal(t, "application/pdf", e.archiver.meta.MIMEType)
}

func TestEngineDeepLink(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))
	draft := e.seed("p2", step(entity.StepInfo, "a"))
	draft.IsFinished = false
	e.store.put(draft)

	e.engine.HandleCommand(ctx, "c1", CommandStart, "process_p1")
	header := e.messenger.lastPrompt(t)
	assert.Contains(t, header.Text, "Process p1")
	assert.Equal(t, []string{"view_start_p1"}, buttonData(header))

	e.engine.HandleCommand(ctx, "c1", CommandStart, "process_p2")
	assert.Equal(t, userMessage(ErrProcessNotFound), e.messenger.lastText(t))

	e.engine.HandleCommand(ctx, "author", CommandStart, "process_p2")
	assert.Contains(t, e.messenger.lastPrompt(t).Text, "Process p2")
}

func TestEngineRestartAndReset(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"), step(entity.StepInfo, "b"))
	e.engine.HandleCallback(ctx, "c1", "cb1", "view_start_p1")
	e.engine.HandleCallback(ctx, "c1", "cb2", "nav_next_0_p1")

	e.engine.HandleCommand(ctx, "c1", CommandRestart, "")
	assert.Equal(t, 0, e.sessions.get("c1").CurrentStepIndex)

	e.engine.HandleCommand(ctx, "c1", CommandReset, "")
	assert.Nil(t, e.sessions.get("c1"))
	assert.Contains(t, e.messenger.texts, sentText{ChatID: "c1", Text: "Сесію скинуто."})

	e.engine.HandleCommand(ctx, "c1", CommandRestart, "")
	assert.Equal(t, userMessage(ErrNoSession), e.messenger.lastText(t))
}

func TestEngineExitAuthoringShowsProcessMenu(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))

	e.engine.HandleCallback(ctx, "author", "cb1", "menu_preview_p1")
	require.Equal(t, ModeAuthoring, e.sessions.get("author").Mode)

	e.engine.HandleCallback(ctx, "author", "cb2", "nav_exit_0_p1")
	assert.Contains(t, buttonData(e.messenger.lastPrompt(t)), "menu_add_step_p1")
	assert.Nil(t, e.sessions.get("author"))
}

func TestEnginePersistenceFailureMessage(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"))
	e.sessions.failSave = true

	e.engine.HandleCallback(ctx, "c1", "cb1", "view_start_p1")
	assert.Equal(t, userMessage(ErrPersistence), e.messenger.lastText(t))
	assert.Equal(t, 0, e.messenger.promptCount())
}

func TestEngineChatsRunConcurrently(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepText, "Name?"), step(entity.StepFinal, "Done"))

	chats := []string{"c1", "c2", "c3", "c4"}
	var wg sync.WaitGroup
	for _, chatID := range chats {
		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			e.engine.HandleCallback(ctx, chatID, "cb", "view_start_p1")
			e.engine.HandleMessage(ctx, chatID, "answer "+chatID)
			e.engine.HandleCallback(ctx, chatID, "cb", "nav_next_0_p1")
		}(chatID)
	}
	wg.Wait()

	for _, chatID := range chats {
		answer, ok := e.recorder.get("p1", chatID, "s1")
		require.True(t, ok, chatID)
		assert.Equal(t, "answer "+chatID, answer.Answer)
		assert.Equal(t, 1, e.sessions.get(chatID).CurrentStepIndex)
	}
	assert.Empty(t, e.engine.locks.chats)
}

func TestEngineStaleNavigationReshowsStep(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepInfo, "a"), step(entity.StepInfo, "b"), step(entity.StepInfo, "c"))

	e.engine.HandleCallback(ctx, "c1", "cb1", "view_start_p1")
	e.engine.HandleCallback(ctx, "c1", "cb2", "nav_next_0_p1")
	require.Equal(t, 1, e.sessions.get("c1").CurrentStepIndex)
	texts := e.messenger.textCount()

	e.engine.HandleCallback(ctx, "c1", "cb3", "nav_next_0_p1")
	assert.Equal(t, 1, e.sessions.get("c1").CurrentStepIndex)
	assert.Contains(t, e.messenger.lastPrompt(t).Text, "<b>b</b>")
	assert.Equal(t, texts, e.messenger.textCount())

	e.engine.HandleCallback(ctx, "c1", "cb4", "nav_exit_0_p1")
	assert.NotNil(t, e.sessions.get("c1"))

	e.engine.HandleCallback(ctx, "c1", "cb5", "nav_next_1_p1")
	assert.Equal(t, 2, e.sessions.get("c1").CurrentStepIndex)
}

func TestEngineSlashTextIsNotAnAnswer(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed("p1", step(entity.StepText, "Name?"))
	e.engine.HandleCallback(ctx, "c1", "cb1", "view_start_p1")

	e.engine.HandleMessage(ctx, "c1", "/help")
	assert.Equal(t, replyUnknownCommand, e.messenger.lastText(t))
	assert.Equal(t, 0, e.recorder.saves)

	e.engine.HandleMessage(ctx, "c1", "Alice")
	answer, ok := e.recorder.get("p1", "c1", "s1")
	require.True(t, ok)
	assert.Equal(t, "Alice", answer.Answer)
}

func TestChatLocksReleaseEntries(t *testing.T) {
	locks := newChatLocks()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		chatID := fmt.Sprintf("c%d", i%10)
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock(chatID)
			defer locks.Unlock(chatID)
		}()
	}
	wg.Wait()

	assert.Empty(t, locks.chats)
	locks.Unlock("unknown")
	assert.Empty(t, locks.chats)
}
