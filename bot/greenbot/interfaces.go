package greenbot

import (
	"context"

	"GreenBot/bot/chat"
	"GreenBot/entity"
)

// ProcessStore is the durable keyed storage of processes.
// FindProcess returns nil, nil when the id is unknown.
type ProcessStore interface {
	FindProcess(ctx context.Context, id string) (*entity.Process, error)
	// SaveProcess replaces the whole document, inserting it if absent.
	SaveProcess(ctx context.Context, process *entity.Process) error
	// UpdateProcess applies a field patch and returns the updated document.
	UpdateProcess(ctx context.Context, id string, patch map[string]any) (*entity.Process, error)
	// DeleteProcess removes the process together with its answers.
	DeleteProcess(ctx context.Context, id string) error
	ListProcesses(ctx context.Context, filter ProcessFilter) ([]entity.Process, error)
}

// ProcessFilter narrows ListProcesses. Nil fields match everything.
type ProcessFilter struct {
	Published    *bool
	AuthorChatID string
	Limit        int
}

// ProcessValidator checks a weak process reference.
type ProcessValidator interface {
	IsValidProcessID(ctx context.Context, id string) bool
}

// AnswerRecorder persists step answers; a second answer to the same
// (process, chat, step) replaces the first.
type AnswerRecorder interface {
	SaveAnswer(ctx context.Context, answer entity.Answer) error
}

// QuestionGenerator drafts questions for generate_questions_process steps.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, topic, details string, count int) ([]string, error)
}

// FileArchiver copies an uploaded answer file into durable storage and
// returns a reference to the stored copy.
type FileArchiver interface {
	ArchiveFile(ctx context.Context, file chat.FileInput, meta entity.FileMetadata) (string, error)
}
