package gpt

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"GreenBot/internal/lib/sl"

	"github.com/sashabaranov/go-openai"
)

const requestTimeout = 30 * time.Second

const systemPrompt = "Ти допомагаєш авторам покрокових процесів. " +
	"Відповідай лише списком запитань, по одному на рядок, без вступу та пояснень."

// Completer is the part of the OpenAI client the generator uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// QuestionGenerator drafts questions on a topic with a chat completion.
type QuestionGenerator struct {
	client Completer
	model  string
	log    *slog.Logger
}

func NewQuestionGenerator(apiKey, model string, logger *slog.Logger) *QuestionGenerator {
	return NewQuestionGeneratorWithClient(openai.NewClient(apiKey), model, logger)
}

func NewQuestionGeneratorWithClient(client Completer, model string, logger *slog.Logger) *QuestionGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &QuestionGenerator{
		client: client,
		model:  model,
		log:    logger.With(sl.Module("gpt.questions")),
	}
}

// GenerateQuestions returns at most count questions about the topic.
func (g *QuestionGenerator) GenerateQuestions(ctx context.Context, topic, details string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("empty topic")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	t1 := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(topic, details, count)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: no choices")
	}

	questions := parseQuestions(resp.Choices[0].Message.Content, count)
	g.log.With(
		slog.String("model", g.model),
		slog.Int("requested", count),
		slog.Int("received", len(questions)),
		slog.Duration("duration", time.Since(t1)),
	).Debug("questions generated")
	if len(questions) == 0 {
		return nil, fmt.Errorf("chat completion: no questions in reply")
	}
	return questions, nil
}

func userPrompt(topic, details string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Склади %d запитань на тему: %s.", count, strings.TrimSpace(topic))
	if details = strings.TrimSpace(details); details != "" {
		fmt.Fprintf(&b, "\nКонтекст: %s", details)
	}
	return b.String()
}

var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// parseQuestions splits a reply into one question per non-empty line,
// dropping list markers, capped at count.
func parseQuestions(text string, count int) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		questions = append(questions, line)
		if len(questions) == count {
			break
		}
	}
	return questions
}
