package process

import (
	"context"

	"GreenBot/bot/greenbot"
	"GreenBot/entity"
)

type Core interface {
	ListProcesses(ctx context.Context, published *bool, author string) ([]entity.Process, error)
	GetProcess(ctx context.Context, id string) (*entity.Process, error)
	CreateProcess(ctx context.Context, header entity.ProcessHeader) (*entity.Process, error)
	DeleteProcess(ctx context.Context, id string) error
	PublishProcess(ctx context.Context, id string) (*entity.Process, error)
	ArchiveProcess(ctx context.Context, id string) (*entity.Process, error)
	EditHeader(ctx context.Context, id string, fields map[string]string) (*entity.Process, error)

	AppendStep(ctx context.Context, id string, step entity.Step) (*entity.Step, error)
	InsertStep(ctx context.Context, id string, index int, position string, step entity.Step) (*entity.Step, error)
	EditStep(ctx context.Context, id, stepRef string, patch greenbot.StepPatch) (*entity.Step, error)
}
