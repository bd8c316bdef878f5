// Package segmenter groups recorded interaction events into logical steps.
package segmenter

import (
	"demovoice-server/pkg/session"
)

// DefaultStepThresholdMs is the inactivity gap that separates two steps
const DefaultStepThresholdMs int64 = 2000

// Step is a contiguous group of events with no internal gap exceeding the
// segmentation threshold. Steps partition the event sequence: every event
// belongs to exactly one step, in order.
type Step struct {
	StepNumber int                        `json:"stepNumber"`
	StartTime  int64                      `json:"startTime"`
	EndTime    int64                      `json:"endTime"`
	Events     []session.InteractionEvent `json:"events"`
}

// DurationMs returns the step length in milliseconds
func (s *Step) DurationMs() int64 {
	return s.EndTime - s.StartTime
}

// Segmenter splits an ordered event sequence into steps
type Segmenter struct {
	thresholdMs int64
}

// New creates a segmenter with the default step threshold
func New() *Segmenter {
	return NewWithThreshold(DefaultStepThresholdMs)
}

// NewWithThreshold creates a segmenter with a custom threshold, for tests
func NewWithThreshold(thresholdMs int64) *Segmenter {
	return &Segmenter{thresholdMs: thresholdMs}
}

// Segment groups events into steps. A new step begins when the gap since the
// current step's last event exceeds the threshold, or on a step_change event,
// which forces a boundary even at zero gap. Empty input yields no steps.
func (sg *Segmenter) Segment(events []session.InteractionEvent) []Step {
	if len(events) == 0 {
		return nil
	}

	var steps []Step
	current := Step{
		StepNumber: 1,
		StartTime:  events[0].Timestamp,
		EndTime:    events[0].Timestamp,
		Events:     []session.InteractionEvent{events[0]},
	}

	for _, event := range events[1:] {
		gap := event.Timestamp - current.EndTime

		if gap > sg.thresholdMs || event.Type == session.EventTypeStepChange {
			steps = append(steps, current)
			current = Step{
				StepNumber: len(steps) + 1,
				StartTime:  event.Timestamp,
				EndTime:    event.Timestamp,
				Events:     []session.InteractionEvent{event},
			}
			continue
		}

		current.Events = append(current.Events, event)
		current.EndTime = event.Timestamp
	}

	steps = append(steps, current)
	return steps
}
