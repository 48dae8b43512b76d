package entity

import (
	"net/http"
	"sort"
	"time"

	"GreenBot/internal/lib/validate"
)

// StepKind is the closed set of step types a process can contain.
type StepKind string

const (
	StepText              StepKind = "text_process"
	StepYesNo             StepKind = "yes_no_process"
	StepFile              StepKind = "file_process"
	StepChoice            StepKind = "choice"
	StepGenerateQuestions StepKind = "generate_questions_process"
	StepFinal             StepKind = "final"
	StepEmail             StepKind = "email_process"
	StepInfo              StepKind = "info_process"
	StepSound             StepKind = "sound"
	StepCallToAction      StepKind = "call_to_action"
	StepConnect           StepKind = "connect"
)

// StepKinds lists every known kind in menu order.
var StepKinds = []StepKind{
	StepText,
	StepYesNo,
	StepChoice,
	StepFile,
	StepEmail,
	StepInfo,
	StepSound,
	StepCallToAction,
	StepConnect,
	StepGenerateQuestions,
	StepFinal,
}

// IsKnown reports whether k belongs to the closed enumeration.
func (k StepKind) IsKnown() bool {
	for _, known := range StepKinds {
		if k == known {
			return true
		}
	}
	return false
}

type Validation struct {
	Required  bool     `json:"required" bson:"required"`
	FileTypes []string `json:"file_types,omitempty" bson:"file_types,omitempty"`
}

// StepMetadata holds the kind-specific payload of a step.
type StepMetadata struct {
	NumQuestions    int    `json:"num_questions,omitempty" bson:"num_questions,omitempty"`
	TargetProcessID string `json:"target_process_id,omitempty" bson:"target_process_id,omitempty"`
	AudioURL        string `json:"audio_url,omitempty" bson:"audio_url,omitempty"`
	Performer       string `json:"performer,omitempty" bson:"performer,omitempty"`
	LinkURL         string `json:"link_url,omitempty" bson:"link_url,omitempty"`
	LinkLabel       string `json:"link_label,omitempty" bson:"link_label,omitempty"`
}

type Step struct {
	StepID             string       `json:"step_id" bson:"step_id"`
	Type               StepKind     `json:"type" bson:"type" validate:"required"`
	Prompt             string       `json:"prompt" bson:"prompt"`
	Description        string       `json:"description,omitempty" bson:"description,omitempty"`
	Options            []string     `json:"options,omitempty" bson:"options,omitempty"`
	Validation         Validation   `json:"validation" bson:"validation"`
	Metadata           StepMetadata `json:"metadata" bson:"metadata"`
	StepSequenceNumber int          `json:"step_sequence_number" bson:"step_sequence_number"`
}

func (s *Step) Bind(_ *http.Request) error {
	return validate.Struct(s)
}

// ConnectTarget returns the id of the process a connect step points to.
// Older documents keep the id in the description field.
func (s *Step) ConnectTarget() string {
	if s.Metadata.TargetProcessID != "" {
		return s.Metadata.TargetProcessID
	}
	return s.Description
}

// AudioURL returns the audio locator of a sound step, with the same
// description fallback as ConnectTarget.
func (s *Step) AudioURL() string {
	if s.Metadata.AudioURL != "" {
		return s.Metadata.AudioURL
	}
	return s.Description
}

// Caption is the secondary text shown under the prompt. Kinds whose
// description holds a locator rather than prose show nothing.
func (s *Step) Caption() string {
	switch s.Type {
	case StepConnect:
		if s.Metadata.TargetProcessID == "" {
			return ""
		}
	case StepSound:
		if s.Metadata.AudioURL == "" {
			return ""
		}
	}
	return s.Description
}

type Process struct {
	ID           string    `json:"id" bson:"_id"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description" bson:"description"`
	ImageURL     string    `json:"image_url" bson:"image_url"`
	IsFinished   bool      `json:"is_finished" bson:"is_finished"`
	AuthorChatID string    `json:"author_chat_id" bson:"author_chat_id"`
	Steps        []Step    `json:"steps" bson:"steps"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// SortedSteps returns the steps in presentation order: ascending by
// sequence number, ties kept in storage order.
func (p *Process) SortedSteps() []Step {
	sorted := make([]Step, len(p.Steps))
	copy(sorted, p.Steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StepSequenceNumber < sorted[j].StepSequenceNumber
	})
	return sorted
}

// MaxSequence returns the highest sequence number in use, 0 when empty.
func (p *Process) MaxSequence() int {
	max := 0
	for _, s := range p.Steps {
		if s.StepSequenceNumber > max {
			max = s.StepSequenceNumber
		}
	}
	return max
}

// StepIndexByID returns the storage position of the step with the given id.
func (p *Process) StepIndexByID(stepID string) int {
	for i, s := range p.Steps {
		if s.StepID == stepID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate steps without touching
// the original document.
func (p *Process) Clone() *Process {
	c := *p
	c.Steps = make([]Step, len(p.Steps))
	for i, s := range p.Steps {
		c.Steps[i] = s
		if s.Options != nil {
			c.Steps[i].Options = append([]string(nil), s.Options...)
		}
		if s.Validation.FileTypes != nil {
			c.Steps[i].Validation.FileTypes = append([]string(nil), s.Validation.FileTypes...)
		}
	}
	return &c
}

// ProcessHeader is the request body for creating a process over HTTP.
type ProcessHeader struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url" validate:"omitempty,url"`
	AuthorChatID string `json:"author_chat_id"`
}

func (h *ProcessHeader) Bind(_ *http.Request) error {
	return validate.Struct(h)
}
