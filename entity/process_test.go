package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedStepsStable(t *testing.T) {
	p := &Process{Steps: []Step{
		{StepID: "c", StepSequenceNumber: 3},
		{StepID: "a", StepSequenceNumber: 1},
		{StepID: "b1", StepSequenceNumber: 2},
		{StepID: "b2", StepSequenceNumber: 2},
	}}

	var ids []string
	for _, s := range p.SortedSteps() {
		ids = append(ids, s.StepID)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, ids)
	assert.Equal(t, "c", p.Steps[0].StepID, "storage order is untouched")
	assert.Equal(t, 3, p.MaxSequence())
	assert.Equal(t, 2, p.StepIndexByID("b1"))
	assert.Equal(t, -1, p.StepIndexByID("z"))
}

func TestCloneIsDeep(t *testing.T) {
	p := &Process{ID: "p1", Steps: []Step{{
		StepID:     "s1",
		Options:    []string{"Red"},
		Validation: Validation{FileTypes: []string{"pdf"}},
	}}}

	c := p.Clone()
	c.Steps[0].Options[0] = "Blue"
	c.Steps[0].Validation.FileTypes[0] = "jpg"
	c.Steps = append(c.Steps, Step{StepID: "s2"})

	assert.Equal(t, "Red", p.Steps[0].Options[0])
	assert.Equal(t, "pdf", p.Steps[0].Validation.FileTypes[0])
	assert.Len(t, p.Steps, 1)
}

func TestStepPayloadFallbacks(t *testing.T) {
	legacy := Step{Type: StepConnect, Description: "65f0c1"}
	assert.Equal(t, "65f0c1", legacy.ConnectTarget())
	assert.Empty(t, legacy.Caption())

	typed := Step{Type: StepConnect, Description: "Go on", Metadata: StepMetadata{TargetProcessID: "p2"}}
	assert.Equal(t, "p2", typed.ConnectTarget())
	assert.Equal(t, "Go on", typed.Caption())

	sound := Step{Type: StepSound, Description: "https://a/b.mp3"}
	assert.Equal(t, "https://a/b.mp3", sound.AudioURL())
	assert.Empty(t, sound.Caption())

	text := Step{Type: StepText, Description: "hint"}
	assert.Equal(t, "hint", text.Caption())
}

func TestStepKindIsKnown(t *testing.T) {
	for _, k := range StepKinds {
		assert.True(t, k.IsKnown(), k)
	}
	assert.False(t, StepKind("mystery").IsKnown())
}

func TestAnswerFileRef(t *testing.T) {
	a := Answer{Answer: FileRefPrefix + "65f0c1"}
	id, ok := a.FileRef()
	assert.True(t, ok)
	assert.Equal(t, "65f0c1", id)

	_, ok = (&Answer{Answer: "Alice"}).FileRef()
	assert.False(t, ok)
}
