package segmenter

import (
	"testing"

	"demovoice-server/pkg/session"

	"github.com/stretchr/testify/assert"
)

func event(ts int64, eventType string) session.InteractionEvent {
	return session.InteractionEvent{Timestamp: ts, Type: eventType}
}

func TestSegmentEmpty(t *testing.T) {
	sg := New()
	assert.Empty(t, sg.Segment(nil))
	assert.Empty(t, sg.Segment([]session.InteractionEvent{}))
}

func TestSegmentSingleEvent(t *testing.T) {
	sg := New()
	steps := sg.Segment([]session.InteractionEvent{event(100, session.EventTypeClick)})

	assert.Len(t, steps, 1)
	assert.Equal(t, 1, steps[0].StepNumber)
	assert.Equal(t, int64(100), steps[0].StartTime)
	assert.Equal(t, int64(100), steps[0].EndTime)
	assert.Len(t, steps[0].Events, 1)
}

func TestSegmentGapSplitsSteps(t *testing.T) {
	sg := New()
	steps := sg.Segment([]session.InteractionEvent{
		event(0, session.EventTypeClick),
		event(500, session.EventTypeClick),
		event(3500, session.EventTypeClick), // 3000ms gap > 2000ms threshold
		event(3600, session.EventTypeScroll),
	})

	assert.Len(t, steps, 2)

	assert.Equal(t, 1, steps[0].StepNumber)
	assert.Equal(t, int64(0), steps[0].StartTime)
	assert.Equal(t, int64(500), steps[0].EndTime)
	assert.Len(t, steps[0].Events, 2)

	assert.Equal(t, 2, steps[1].StepNumber)
	assert.Equal(t, int64(3500), steps[1].StartTime)
	assert.Equal(t, int64(3600), steps[1].EndTime)
	assert.Len(t, steps[1].Events, 2)
}

func TestSegmentGapAtThresholdDoesNotSplit(t *testing.T) {
	sg := New()
	steps := sg.Segment([]session.InteractionEvent{
		event(0, session.EventTypeClick),
		event(2000, session.EventTypeClick), // exactly the threshold, not >
	})

	assert.Len(t, steps, 1)
	assert.Len(t, steps[0].Events, 2)
}

func TestStepChangeForcesBoundary(t *testing.T) {
	sg := New()
	steps := sg.Segment([]session.InteractionEvent{
		event(100, session.EventTypeClick),
		event(100, session.EventTypeStepChange), // zero gap, still splits
		event(150, session.EventTypeClick),
	})

	assert.Len(t, steps, 2)
	assert.Equal(t, session.EventTypeStepChange, steps[1].Events[0].Type)
	assert.Len(t, steps[1].Events, 2)
}

func TestSegmentIsPartition(t *testing.T) {
	sg := New()
	events := []session.InteractionEvent{
		event(0, session.EventTypeClick),
		event(100, session.EventTypeType),
		event(2500, session.EventTypeFocus),
		event(2600, session.EventTypeStepChange),
		event(2700, session.EventTypeClick),
		event(9000, session.EventTypeBlur),
	}

	steps := sg.Segment(events)

	// Concatenating all steps' events in order must reproduce the input exactly
	var reassembled []session.InteractionEvent
	for _, step := range steps {
		reassembled = append(reassembled, step.Events...)
	}
	assert.Equal(t, events, reassembled)

	// Step numbers are 1-based and sequential
	for i, step := range steps {
		assert.Equal(t, i+1, step.StepNumber)
	}
}

func TestSegmentCustomThreshold(t *testing.T) {
	sg := NewWithThreshold(50)
	steps := sg.Segment([]session.InteractionEvent{
		event(0, session.EventTypeClick),
		event(100, session.EventTypeClick),
	})

	assert.Len(t, steps, 2)
}

func TestSegmentToleratesOutOfOrderTimestamps(t *testing.T) {
	sg := New()
	steps := sg.Segment([]session.InteractionEvent{
		event(500, session.EventTypeClick),
		event(400, session.EventTypeClick), // negative gap, same step
		event(400, session.EventTypeClick), // duplicate timestamp
	})

	assert.Len(t, steps, 1)
	assert.Len(t, steps[0].Events, 3)
}
