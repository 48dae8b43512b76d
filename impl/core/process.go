package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"GreenBot/bot/greenbot"
	"GreenBot/entity"
	"GreenBot/internal/lib/sl"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PositionBefore = "before"
	PositionAfter  = "after"
)

// IsValidProcessID reports whether id is a well-formed process id that
// refers to a stored process.
func (c *Core) IsValidProcessID(ctx context.Context, id string) bool {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return false
	}
	if c.repo == nil {
		return false
	}
	p, err := c.repo.FindProcess(ctx, id)
	if err != nil {
		c.log.With(
			slog.String("process_id", id),
			sl.Err(err),
		).Warn("validate process id")
		return false
	}
	return p != nil
}

func (c *Core) ListProcesses(ctx context.Context, published *bool, author string) ([]entity.Process, error) {
	processes, err := c.repo.ListProcesses(ctx, greenbot.ProcessFilter{
		Published:    published,
		AuthorChatID: author,
	})
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	return processes, nil
}

func (c *Core) GetProcess(ctx context.Context, id string) (*entity.Process, error) {
	p, err := c.repo.FindProcess(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find process: %w", err)
	}
	if p == nil {
		return nil, greenbot.ErrProcessNotFound
	}
	return p, nil
}

func (c *Core) CreateProcess(ctx context.Context, header entity.ProcessHeader) (*entity.Process, error) {
	return c.lifecycle.Create(ctx, header)
}

func (c *Core) DeleteProcess(ctx context.Context, id string) error {
	return c.lifecycle.Delete(ctx, id)
}

func (c *Core) PublishProcess(ctx context.Context, id string) (*entity.Process, error) {
	return c.lifecycle.Publish(ctx, id)
}

func (c *Core) ArchiveProcess(ctx context.Context, id string) (*entity.Process, error) {
	return c.lifecycle.Archive(ctx, id)
}

// EditHeader applies the given header fields in a fixed order and returns
// the process after the last one. Unknown fields reject the whole patch.
func (c *Core) EditHeader(ctx context.Context, id string, fields map[string]string) (*entity.Process, error) {
	order := []string{greenbot.FieldTitle, greenbot.FieldDescription, greenbot.FieldImageURL}
	for field := range fields {
		if !slices.Contains(order, field) {
			return nil, &greenbot.ValidationError{Reason: fmt.Sprintf("field %q is not editable", field)}
		}
	}

	p, err := c.GetProcess(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, field := range order {
		value, ok := fields[field]
		if !ok {
			continue
		}
		if p, err = c.lifecycle.EditHeaderField(ctx, id, field, value); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (c *Core) AppendStep(ctx context.Context, id string, step entity.Step) (*entity.Step, error) {
	_, added, err := c.editor.AppendStep(ctx, id, step)
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// InsertStep places the step before or after the step at storage index.
func (c *Core) InsertStep(ctx context.Context, id string, index int, position string, step entity.Step) (*entity.Step, error) {
	var (
		added entity.Step
		err   error
	)
	switch position {
	case PositionBefore:
		_, added, err = c.editor.InsertBefore(ctx, id, index, step)
	case PositionAfter, "":
		_, added, err = c.editor.InsertAfter(ctx, id, index, step)
	default:
		return nil, &greenbot.ValidationError{Reason: fmt.Sprintf("unknown position %q", position)}
	}
	if err != nil {
		return nil, err
	}
	return &added, nil
}

func (c *Core) EditStep(ctx context.Context, id, stepRef string, patch greenbot.StepPatch) (*entity.Step, error) {
	_, step, err := c.editor.EditStepField(ctx, id, stepRef, patch)
	if err != nil {
		return nil, err
	}
	return &step, nil
}
