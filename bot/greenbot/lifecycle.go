package greenbot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"GreenBot/entity"
	"GreenBot/internal/lib/sl"
	"GreenBot/internal/lib/validate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Header fields an author may edit.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldImageURL    = "image_url"
)

// Lifecycle creates and deletes processes, handles publish/archive
// transitions and header edits.
type Lifecycle struct {
	store    ProcessStore
	notifier ChangeNotifier
	newID    func() string
	log      *slog.Logger
}

func NewLifecycle(store ProcessStore, log *slog.Logger) *Lifecycle {
	return &Lifecycle{
		store: store,
		newID: func() string { return primitive.NewObjectID().Hex() },
		log:   log.With(sl.Module("greenbot.lifecycle")),
	}
}

// SetNotifier sets the receiver of change events.
func (l *Lifecycle) SetNotifier(n ChangeNotifier) {
	l.notifier = n
}

// Create stores a new unpublished process with no steps.
func (l *Lifecycle) Create(ctx context.Context, header entity.ProcessHeader) (*entity.Process, error) {
	header.Title = strings.TrimSpace(header.Title)
	if header.Title == "" {
		return nil, invalid("назва не може бути порожньою")
	}
	if header.ImageURL != "" {
		if err := validate.Var(header.ImageURL, "url"); err != nil {
			return nil, invalid("некоректне посилання на зображення")
		}
	}

	now := time.Now()
	p := &entity.Process{
		ID:           l.newID(),
		Title:        header.Title,
		Description:  strings.TrimSpace(header.Description),
		ImageURL:     header.ImageURL,
		AuthorChatID: header.AuthorChatID,
		Steps:        []entity.Step{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.store.SaveProcess(ctx, p); err != nil {
		l.log.With(
			slog.String("title", p.Title),
			sl.Err(err),
		).Error("create process")
		return nil, persistence("create process", err)
	}
	l.log.With(
		slog.String("process_id", p.ID),
		slog.String("author", p.AuthorChatID),
	).Info("process created")
	l.notify(EventCreated, p)
	return p, nil
}

// Delete removes the process and its answers.
func (l *Lifecycle) Delete(ctx context.Context, processID string) error {
	p, err := loadProcess(ctx, l.store, processID)
	if err != nil {
		return err
	}
	if err = l.store.DeleteProcess(ctx, processID); err != nil {
		l.log.With(
			slog.String("process_id", processID),
			sl.Err(err),
		).Error("delete process")
		return persistence("delete process", err)
	}
	l.log.With(
		slog.String("process_id", processID),
	).Info("process deleted")
	l.notify(EventDeleted, p)
	return nil
}

// Publish makes the process visible to viewers.
func (l *Lifecycle) Publish(ctx context.Context, processID string) (*entity.Process, error) {
	return l.update(ctx, processID, EventPublished, map[string]any{"is_finished": true})
}

// Archive hides the process from viewers.
func (l *Lifecycle) Archive(ctx context.Context, processID string) (*entity.Process, error) {
	return l.update(ctx, processID, EventArchived, map[string]any{"is_finished": false})
}

// EditHeaderField sets title, description or image_url.
func (l *Lifecycle) EditHeaderField(ctx context.Context, processID, field, value string) (*entity.Process, error) {
	value = strings.TrimSpace(value)
	switch field {
	case FieldTitle:
		if value == "" {
			return nil, invalid("назва не може бути порожньою")
		}
	case FieldDescription:
	case FieldImageURL:
		if value != "" {
			if err := validate.Var(value, "url"); err != nil {
				return nil, invalid("некоректне посилання на зображення")
			}
		}
	default:
		return nil, invalid("поле %q не можна редагувати", field)
	}
	return l.update(ctx, processID, EventHeaderEdit, map[string]any{field: value})
}

func (l *Lifecycle) update(ctx context.Context, processID, event string, patch map[string]any) (*entity.Process, error) {
	patch["updated_at"] = time.Now()
	p, err := l.store.UpdateProcess(ctx, processID, patch)
	if err != nil {
		l.log.With(
			slog.String("process_id", processID),
			slog.String("event", event),
			sl.Err(err),
		).Error("update process")
		return nil, persistence("update process", err)
	}
	if p == nil {
		return nil, ErrProcessNotFound
	}
	l.log.With(
		slog.String("process_id", processID),
		slog.String("event", event),
	).Info("process lifecycle")
	l.notify(event, p)
	return p, nil
}

func (l *Lifecycle) notify(event string, p *entity.Process) {
	if l.notifier != nil {
		l.notifier.ProcessChanged(event, p)
	}
}
