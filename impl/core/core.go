package core

import (
	"context"
	"io"
	"log/slog"
	"time"

	"GreenBot/bot/greenbot"
	"GreenBot/entity"
	"GreenBot/internal/lib/sl"
)

type Repository interface {
	CheckApiKey(key string) (string, error)

	FindProcess(ctx context.Context, id string) (*entity.Process, error)
	ListProcesses(ctx context.Context, filter greenbot.ProcessFilter) ([]entity.Process, error)

	GetAnswers(ctx context.Context, processID, chatID string) ([]entity.Answer, error)
}

type FileStorage interface {
	DownloadFile(ctx context.Context, fileID string) (string, entity.FileMetadata, io.ReadCloser, error)
}

type StepEditor interface {
	AppendStep(ctx context.Context, processID string, step entity.Step) (*entity.Process, entity.Step, error)
	InsertBefore(ctx context.Context, processID string, index int, step entity.Step) (*entity.Process, entity.Step, error)
	InsertAfter(ctx context.Context, processID string, index int, step entity.Step) (*entity.Process, entity.Step, error)
	EditStepField(ctx context.Context, processID, stepRef string, patch greenbot.StepPatch) (*entity.Process, entity.Step, error)
}

type Lifecycle interface {
	Create(ctx context.Context, header entity.ProcessHeader) (*entity.Process, error)
	Delete(ctx context.Context, processID string) error
	Publish(ctx context.Context, processID string) (*entity.Process, error)
	Archive(ctx context.Context, processID string) (*entity.Process, error)
	EditHeaderField(ctx context.Context, processID, field, value string) (*entity.Process, error)
}

type Core struct {
	repo       Repository
	files      FileStorage
	editor     StepEditor
	lifecycle  Lifecycle
	authKey    string
	fileSecret string
	fileTTL    time.Duration
	log        *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		fileTTL: 15 * time.Minute,
		log:     log.With(sl.Module("core")),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetFileStorage(files FileStorage) {
	c.files = files
}

func (c *Core) SetEditor(editor StepEditor) {
	c.editor = editor
}

func (c *Core) SetLifecycle(lifecycle Lifecycle) {
	c.lifecycle = lifecycle
}

func (c *Core) SetAuthKey(key string) {
	c.authKey = key
}

// SetFileSigning configures signed download links for file answers.
// An empty secret disables the links.
func (c *Core) SetFileSigning(secret string, ttl time.Duration) {
	c.fileSecret = secret
	if ttl > 0 {
		c.fileTTL = ttl
	}
}
