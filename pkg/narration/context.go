// Package narration turns segmented interaction events and speech timing
// statistics into generation context, and drives the narration script
// generation call.
package narration

import (
	"fmt"
	"sort"
	"strings"

	"demovoice-server/pkg/segmenter"
	"demovoice-server/pkg/session"
	"demovoice-server/pkg/timing"
)

// Caps on the example lists rendered into the timing context block
const (
	maxFillerExamples  = 5
	maxLowConfExamples = 3
	maxGapExamples     = 5
)

// truncateValueAt limits typed values rendered into event descriptions
const truncateValueAt = 50

// TimelineItem is a single significant action on the session timeline
type TimelineItem struct {
	Timestamp   int64   `json:"timestamp"`
	Seconds     float64 `json:"timestamp_seconds"`
	Action      string  `json:"action"`
	Description string  `json:"description"`
}

// Timeline summarizes the significant actions of a session in order
type Timeline struct {
	TotalEvents       int            `json:"total_events"`
	SignificantEvents int            `json:"significant_events"`
	Items             []TimelineItem `json:"timeline"`
}

// BuildSessionContext renders a recording session into a descriptive text
// block: session header plus each step's events in chronological order
func BuildSessionContext(s *session.RecordingSession, steps []segmenter.Step) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Recording Session: %s", s.SessionID))
	parts = append(parts, fmt.Sprintf("URL: %s", s.URL))
	parts = append(parts, fmt.Sprintf("Duration: %.1f seconds", float64(s.Duration())/1000))
	parts = append(parts, "")

	for _, step := range steps {
		parts = append(parts, buildStepContext(step))
		parts = append(parts, "")
	}

	return strings.Join(parts, "\n")
}

// buildStepContext renders one step and its events
func buildStepContext(step segmenter.Step) string {
	lines := []string{
		fmt.Sprintf("Step %d (Duration: %.1fs):", step.StepNumber, float64(step.DurationMs())/1000),
	}

	for _, event := range step.Events {
		desc := describeEvent(event)
		if desc == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("  [%.1fs] %s", float64(event.Timestamp)/1000, desc))
	}

	return strings.Join(lines, "\n")
}

// describeEvent converts an event into a human-readable description using a
// fixed precedence per event type. Returns "" for events that should be
// suppressed entirely (zero-movement scrolls, unknown types).
func describeEvent(event session.InteractionEvent) string {
	switch event.Type {
	case session.EventTypeClick:
		if event.Target != nil {
			if event.Target.Text != "" {
				return fmt.Sprintf("Clicked on '%s'", event.Target.Text)
			}
			if testID := event.Target.Attributes["data-testid"]; testID != "" {
				return fmt.Sprintf("Clicked on %s", testID)
			}
			if event.Target.Tag != "" {
				return fmt.Sprintf("Clicked on %s element", strings.ToLower(event.Target.Tag))
			}
		}
		return "Clicked"

	case session.EventTypeType:
		if event.Value != "" {
			display := event.Value
			if len(display) > truncateValueAt {
				display = display[:truncateValueAt] + "..."
			}
			if event.Target != nil {
				if testID := event.Target.Attributes["data-testid"]; testID != "" {
					return fmt.Sprintf("Typed '%s' in %s", display, testID)
				}
				if event.Target.Type != "" {
					return fmt.Sprintf("Typed '%s' in %s field", display, event.Target.Type)
				}
			}
			return fmt.Sprintf("Typed '%s'", display)
		}
		return "Typed in input field"

	case session.EventTypeFocus:
		if event.Target != nil {
			if testID := event.Target.Attributes["data-testid"]; testID != "" {
				return fmt.Sprintf("Focused on %s", testID)
			}
			if event.Target.Type != "" {
				return fmt.Sprintf("Focused on %s input field", event.Target.Type)
			}
		}
		return "Focused on input field"

	case session.EventTypeBlur:
		return "Left input field"

	case session.EventTypeScroll:
		if pos := event.Metadata.ScrollPosition; pos != nil {
			if pos.X == 0 && pos.Y == 0 {
				return ""
			}
			return fmt.Sprintf("Scrolled to position (%.0f, %.0f)", pos.X, pos.Y)
		}
		return "Scrolled page"

	case session.EventTypeStepChange:
		return "Page/UI state changed"
	}

	return ""
}

// BuildTimeline collects the significant events (clicks, typing, step
// changes) into an ordered timeline for syncing narration with actions.
// Focus, blur and scroll events are excluded.
func BuildTimeline(events []session.InteractionEvent) Timeline {
	timeline := Timeline{TotalEvents: len(events)}

	for _, event := range events {
		switch event.Type {
		case session.EventTypeClick, session.EventTypeType, session.EventTypeStepChange:
			timeline.Items = append(timeline.Items, TimelineItem{
				Timestamp:   event.Timestamp,
				Seconds:     float64(event.Timestamp) / 1000,
				Action:      event.Type,
				Description: describeEvent(event),
			})
		}
	}

	timeline.SignificantEvents = len(timeline.Items)
	return timeline
}

// FormatTimeline renders a timeline for inclusion in the generation prompt
func FormatTimeline(timeline Timeline) string {
	if len(timeline.Items) == 0 {
		return "No significant actions recorded."
	}

	lines := make([]string, 0, len(timeline.Items))
	for _, item := range timeline.Items {
		lines = append(lines, fmt.Sprintf("  %.1fs: %s", item.Seconds, item.Description))
	}
	return strings.Join(lines, "\n")
}

// UIElementsSummary deduplicates element identifiers (visible text, test ids,
// aria labels) into a sorted summary line
func UIElementsSummary(events []session.InteractionEvent) string {
	elements := make(map[string]bool)

	for _, event := range events {
		if event.Target == nil {
			continue
		}
		if event.Target.Text != "" {
			elements[event.Target.Text] = true
		}
		if testID := event.Target.Attributes["data-testid"]; testID != "" {
			elements[testID] = true
		}
		if label := event.Target.Attributes["aria-label"]; label != "" {
			elements[label] = true
		}
	}

	if len(elements) == 0 {
		return "UI Elements: (none identified)"
	}

	sorted := make([]string, 0, len(elements))
	for el := range elements {
		sorted = append(sorted, el)
	}
	sort.Strings(sorted)

	return "UI Elements: " + strings.Join(sorted, ", ")
}

// BuildTimingContext renders a timing analysis into a human-readable summary
// block for the generation prompt
func BuildTimingContext(analysis timing.Analysis) string {
	if !analysis.HasTimingData {
		return "No timing data available."
	}

	parts := []string{
		fmt.Sprintf("Total Duration: %.1f seconds", analysis.TotalDuration),
		fmt.Sprintf("Total Words: %d", analysis.TotalWords),
		fmt.Sprintf("Speaking Rate: %.2f words/second", analysis.SpeakingRate),
		fmt.Sprintf("Speaking Segments: %d", len(analysis.SpeakingSegments)),
		fmt.Sprintf("Identified Gaps: %d", len(analysis.Gaps)),
		fmt.Sprintf("Average Gap Duration: %.2f seconds", analysis.AverageGap),
	}

	if len(analysis.FillerWords) > 0 {
		parts = append(parts, "")
		parts = append(parts, fmt.Sprintf("Filler Words Detected: %d", len(analysis.FillerWords)))

		var examples []string
		for _, f := range capFlagged(analysis.FillerWords, maxFillerExamples) {
			examples = append(examples, fmt.Sprintf("'%s'", f.Word))
		}
		parts = append(parts, "  Examples: "+strings.Join(examples, ", "))
	}

	if len(analysis.LowConfidenceWords) > 0 {
		parts = append(parts, "")
		parts = append(parts, fmt.Sprintf("Low Confidence Words: %d", len(analysis.LowConfidenceWords)))

		var examples []string
		for _, w := range capFlagged(analysis.LowConfidenceWords, maxLowConfExamples) {
			examples = append(examples, fmt.Sprintf("'%s' (%.2f)", w.Word, w.Confidence))
		}
		parts = append(parts, "  Examples: "+strings.Join(examples, ", "))
	}

	if len(analysis.Gaps) > 0 {
		parts = append(parts, "")
		parts = append(parts, "Significant Pauses/Gaps:")
		gaps := analysis.Gaps
		if len(gaps) > maxGapExamples {
			gaps = gaps[:maxGapExamples]
		}
		for i, gap := range gaps {
			parts = append(parts, fmt.Sprintf(
				"  Gap %d (%s): after '%s' -> before '%s' (%.2fs at %.1fs)",
				i+1, gap.Type, gap.AfterWord, gap.BeforeWord, gap.Duration, gap.Start,
			))
		}
	}

	return strings.Join(parts, "\n")
}

func capFlagged(words []timing.FlaggedWord, max int) []timing.FlaggedWord {
	if len(words) > max {
		return words[:max]
	}
	return words
}
