package narration

import (
	"context"
	"errors"
	"testing"

	"demovoice-server/pkg/session"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type fakeTextGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeTextGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestGenerator(textGen TextGenerator) *Generator {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewGenerator(logger, textGen)
}

func sampleWords() []session.WordTiming {
	return []session.WordTiming{
		{Word: "um", Start: 0, End: 0.3, Confidence: 0.9},
		{Word: "click", Start: 0.4, End: 0.8, Confidence: 0.7},
		{Word: "save", Start: 1.5, End: 2.0, Confidence: 0.95},
	}
}

func TestGenerateSuccess(t *testing.T) {
	fake := &fakeTextGenerator{response: "**Click** the  save button .\n"}
	gen := newTestGenerator(fake)

	result := gen.Generate(context.Background(), "um click save", sampleWords(), nil)

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, "Click the save button.", result.Script)
	assert.Equal(t, "um click save", result.RawText)
	assert.False(t, result.DOMContextUsed)

	assert.True(t, result.Timing.HasTimingData)
	assert.Equal(t, 3, result.Timing.TotalWords)
	assert.Equal(t, 1, result.Timing.NumGaps)
	assert.Equal(t, 1, result.Timing.NumFillerWords)
	assert.Equal(t, 1, result.Timing.NumLowConfidence)
}

func TestGenerateFailureIsStructured(t *testing.T) {
	fake := &fakeTextGenerator{err: errors.New("quota exceeded")}
	gen := newTestGenerator(fake)

	result := gen.Generate(context.Background(), "raw text", nil, nil)

	assert.False(t, result.Success)
	assert.Equal(t, "quota exceeded", result.Error)
	assert.Contains(t, result.Script, "Error generating script")
	assert.Equal(t, "raw text", result.RawText)

	// Exactly one attempt: generation failures are not retried
	assert.Len(t, fake.prompts, 1)
}

func TestGeneratePromptIncludesAllContextBlocks(t *testing.T) {
	fake := &fakeTextGenerator{response: "script"}
	gen := newTestGenerator(fake)

	sess := &session.RecordingSession{
		SessionID: "s-9",
		EndTime:   4000,
		Events: []session.InteractionEvent{
			{Timestamp: 0, Type: session.EventTypeClick, Target: &session.EventTarget{Text: "Login"}},
		},
	}

	result := gen.Generate(context.Background(), "the transcript", sampleWords(), sess)

	assert.True(t, result.Success)
	assert.True(t, result.DOMContextUsed)
	assert.Equal(t, "s-9", result.SessionID)

	assert.Len(t, fake.prompts, 1)
	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "the transcript")
	assert.Contains(t, prompt, "Total Words: 3")
	assert.Contains(t, prompt, "Recording Session: s-9")
	assert.Contains(t, prompt, "UI Elements: Login")
	assert.Contains(t, prompt, "TIMELINE OF ACTIONS:")
	assert.Contains(t, prompt, "PRODUCTION-READY SCRIPT:")
}

func TestGenerateWithoutSessionOmitsOptionalBlocks(t *testing.T) {
	fake := &fakeTextGenerator{response: "script"}
	gen := newTestGenerator(fake)

	gen.Generate(context.Background(), "raw", nil, nil)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "No DOM events available")
	assert.Contains(t, prompt, "No timing data available.")
	assert.NotContains(t, prompt, "UI ELEMENTS INTERACTED WITH:")
}

func TestGenerateEmptyEventSessionTreatedAsAbsent(t *testing.T) {
	fake := &fakeTextGenerator{response: "script"}
	gen := newTestGenerator(fake)

	result := gen.Generate(context.Background(), "raw", nil, &session.RecordingSession{SessionID: "empty"})

	assert.True(t, result.Success)
	assert.False(t, result.DOMContextUsed)
	assert.Equal(t, "empty", result.SessionID)
}
