package entity

import (
	"strings"
	"time"
)

// AnswerSkipped is recorded when a user declines an optional offer.
const AnswerSkipped = "Skipped"

// Answer is a snapshot of a user's response to one step. Step fields are
// copied so the answer stays readable after the step is edited or removed.
type Answer struct {
	ProcessID       string    `json:"process_id" bson:"process_id"`
	ChatID          string    `json:"chat_id" bson:"chat_id"`
	StepID          string    `json:"step_id" bson:"step_id"`
	StepIndex       int       `json:"step_index" bson:"step_index"`
	Answer          string    `json:"answer" bson:"answer"`
	StepType        StepKind  `json:"step_type" bson:"step_type"`
	StepPrompt      string    `json:"step_prompt" bson:"step_prompt"`
	StepDescription string    `json:"step_description" bson:"step_description"`
	AnsweredAt      time.Time `json:"answered_at" bson:"answered_at"`
	FileURL         string    `json:"file_url,omitempty" bson:"-"`
}

// FileRef returns the archived file id when the answer is a file reference.
func (a *Answer) FileRef() (string, bool) {
	if !strings.HasPrefix(a.Answer, FileRefPrefix) {
		return "", false
	}
	return strings.TrimPrefix(a.Answer, FileRefPrefix), true
}
