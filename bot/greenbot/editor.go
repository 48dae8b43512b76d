package greenbot

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"GreenBot/entity"
	"GreenBot/internal/lib/sl"

	"github.com/google/uuid"
)

// SequencePolicy decides how sequence numbers are assigned on insert.
type SequencePolicy int

const (
	// SequenceRenumber gives an inserted step the sequence number of its
	// slot and shifts every later step by one, keeping numbers contiguous.
	SequenceRenumber SequencePolicy = iota
	// SequenceAppend numbers an inserted step len(steps)+1 wherever it is
	// placed, leaving storage order and sequence order apart.
	SequenceAppend
)

// ParseSequencePolicy maps a config value to a policy; unknown values
// select SequenceRenumber.
func ParseSequencePolicy(s string) SequencePolicy {
	if s == "append" {
		return SequenceAppend
	}
	return SequenceRenumber
}

// Process change events
const (
	EventStepAdded  = "step_added"
	EventStepEdited = "step_edited"
	EventPublished  = "published"
	EventArchived   = "archived"
	EventHeaderEdit = "header_edited"
	EventCreated    = "created"
	EventDeleted    = "deleted"
)

// ChangeNotifier is told about every successful process mutation.
type ChangeNotifier interface {
	ProcessChanged(event string, process *entity.Process)
}

// StepPatch is a shallow merge: nil fields are left untouched.
type StepPatch struct {
	Type        *entity.StepKind     `json:"type,omitempty"`
	Prompt      *string              `json:"prompt,omitempty"`
	Description *string              `json:"description,omitempty"`
	Options     *[]string            `json:"options,omitempty"`
	Validation  *entity.Validation   `json:"validation,omitempty"`
	Metadata    *entity.StepMetadata `json:"metadata,omitempty"`
}

func (p StepPatch) apply(step *entity.Step) {
	if p.Type != nil {
		step.Type = *p.Type
	}
	if p.Prompt != nil {
		step.Prompt = *p.Prompt
	}
	if p.Description != nil {
		step.Description = *p.Description
	}
	if p.Options != nil {
		step.Options = append([]string(nil), (*p.Options)...)
	}
	if p.Validation != nil {
		step.Validation = *p.Validation
	}
	if p.Metadata != nil {
		step.Metadata = *p.Metadata
	}
}

// Editor mutates the step list of a process. Each call loads a fresh copy,
// changes it and writes the whole document back.
type Editor struct {
	store    ProcessStore
	policy   SequencePolicy
	notifier ChangeNotifier
	newID    func() string
	log      *slog.Logger
}

func NewEditor(store ProcessStore, policy SequencePolicy, log *slog.Logger) *Editor {
	return &Editor{
		store:  store,
		policy: policy,
		newID:  uuid.NewString,
		log:    log.With(sl.Module("greenbot.editor")),
	}
}

// SetNotifier sets the receiver of change events.
func (e *Editor) SetNotifier(n ChangeNotifier) {
	e.notifier = n
}

// AppendStep adds the step at the end with sequence number max+1.
func (e *Editor) AppendStep(ctx context.Context, processID string, step entity.Step) (*entity.Process, entity.Step, error) {
	p, err := e.load(ctx, processID)
	if err != nil {
		return nil, entity.Step{}, err
	}
	if err = e.prepare(&step); err != nil {
		return nil, entity.Step{}, err
	}

	step.StepSequenceNumber = p.MaxSequence() + 1
	p.Steps = append(p.Steps, step)

	if err = e.save(ctx, p, EventStepAdded); err != nil {
		return nil, entity.Step{}, err
	}
	return p, step, nil
}

// InsertBefore splices the step into storage position index.
func (e *Editor) InsertBefore(ctx context.Context, processID string, index int, step entity.Step) (*entity.Process, entity.Step, error) {
	return e.insert(ctx, processID, index, false, step)
}

// InsertAfter splices the step into storage position index+1.
func (e *Editor) InsertAfter(ctx context.Context, processID string, index int, step entity.Step) (*entity.Process, entity.Step, error) {
	return e.insert(ctx, processID, index, true, step)
}

func (e *Editor) insert(ctx context.Context, processID string, index int, after bool, step entity.Step) (*entity.Process, entity.Step, error) {
	p, err := e.load(ctx, processID)
	if err != nil {
		return nil, entity.Step{}, err
	}
	if err = e.prepare(&step); err != nil {
		return nil, entity.Step{}, err
	}

	if len(p.Steps) == 0 && index == 0 {
		step.StepSequenceNumber = 1
		p.Steps = []entity.Step{step}
		if err = e.save(ctx, p, EventStepAdded); err != nil {
			return nil, entity.Step{}, err
		}
		return p, step, nil
	}
	if index < 0 || index >= len(p.Steps) {
		return nil, entity.Step{}, ErrStepIndexOutOfRange
	}

	pos := index
	if after {
		pos = index + 1
	}

	switch e.policy {
	case SequenceAppend:
		step.StepSequenceNumber = len(p.Steps) + 1
	default:
		target := p.Steps[index].StepSequenceNumber
		if after {
			target++
		}
		for i := range p.Steps {
			if p.Steps[i].StepSequenceNumber >= target {
				p.Steps[i].StepSequenceNumber++
			}
		}
		step.StepSequenceNumber = target
	}

	steps := make([]entity.Step, 0, len(p.Steps)+1)
	steps = append(steps, p.Steps[:pos]...)
	steps = append(steps, step)
	steps = append(steps, p.Steps[pos:]...)
	p.Steps = steps

	if err = e.save(ctx, p, EventStepAdded); err != nil {
		return nil, entity.Step{}, err
	}
	return p, step, nil
}

// EditStepField merges the patch into the step addressed by stepRef: a step
// id, or a storage position when no id matches.
func (e *Editor) EditStepField(ctx context.Context, processID, stepRef string, patch StepPatch) (*entity.Process, entity.Step, error) {
	p, err := e.load(ctx, processID)
	if err != nil {
		return nil, entity.Step{}, err
	}

	i := p.StepIndexByID(stepRef)
	if i < 0 {
		if n, convErr := strconv.Atoi(stepRef); convErr == nil && n >= 0 && n < len(p.Steps) {
			i = n
		}
	}
	if i < 0 {
		return nil, entity.Step{}, ErrStepNotFound
	}

	step := p.Steps[i]
	patch.apply(&step)
	if err = ValidateStep(&step); err != nil {
		return nil, entity.Step{}, err
	}
	p.Steps[i] = step

	if err = e.save(ctx, p, EventStepEdited); err != nil {
		return nil, entity.Step{}, err
	}
	return p, step, nil
}

func (e *Editor) prepare(step *entity.Step) error {
	if err := ValidateStep(step); err != nil {
		return err
	}
	if step.StepID == "" {
		step.StepID = e.newID()
	}
	step.Validation.FileTypes = normalizeFileTypes(step.Validation.FileTypes)
	return nil
}

func (e *Editor) load(ctx context.Context, processID string) (*entity.Process, error) {
	return loadProcess(ctx, e.store, processID)
}

func (e *Editor) save(ctx context.Context, p *entity.Process, event string) error {
	p.UpdatedAt = time.Now()
	if err := e.store.SaveProcess(ctx, p); err != nil {
		e.log.With(
			slog.String("process_id", p.ID),
			sl.Err(err),
		).Error("save process")
		return persistence("save process", err)
	}
	e.log.With(
		slog.String("process_id", p.ID),
		slog.String("event", event),
		slog.Int("steps", len(p.Steps)),
	).Debug("process updated")
	if e.notifier != nil {
		e.notifier.ProcessChanged(event, p)
	}
	return nil
}

// loadProcess fetches a private copy of the process.
func loadProcess(ctx context.Context, store ProcessStore, id string) (*entity.Process, error) {
	p, err := store.FindProcess(ctx, id)
	if err != nil {
		return nil, persistence("find process", err)
	}
	if p == nil {
		return nil, ErrProcessNotFound
	}
	return p.Clone(), nil
}
