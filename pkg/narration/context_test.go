package narration

import (
	"strings"
	"testing"

	"demovoice-server/pkg/segmenter"
	"demovoice-server/pkg/session"
	"demovoice-server/pkg/timing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func clickOn(ts int64, text string) session.InteractionEvent {
	return session.InteractionEvent{
		Timestamp: ts,
		Type:      session.EventTypeClick,
		Target:    &session.EventTarget{Tag: "button", Text: text},
	}
}

func TestDescribeEventClickPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		event session.InteractionEvent
		want  string
	}{
		{
			"visible text wins",
			session.InteractionEvent{Type: session.EventTypeClick, Target: &session.EventTarget{
				Text: "Save", Attributes: map[string]string{"data-testid": "save-btn"}, Tag: "BUTTON",
			}},
			"Clicked on 'Save'",
		},
		{
			"test id next",
			session.InteractionEvent{Type: session.EventTypeClick, Target: &session.EventTarget{
				Attributes: map[string]string{"data-testid": "save-btn"}, Tag: "BUTTON",
			}},
			"Clicked on save-btn",
		},
		{
			"tag lowercased last",
			session.InteractionEvent{Type: session.EventTypeClick, Target: &session.EventTarget{Tag: "BUTTON"}},
			"Clicked on button element",
		},
		{
			"no target",
			session.InteractionEvent{Type: session.EventTypeClick},
			"Clicked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeEvent(tt.event))
		})
	}
}

func TestDescribeEventTypeTruncation(t *testing.T) {
	long := strings.Repeat("a", 60)
	event := session.InteractionEvent{
		Type:  session.EventTypeType,
		Value: long,
	}

	desc := describeEvent(event)
	assert.Contains(t, desc, strings.Repeat("a", 50)+"...")
	assert.NotContains(t, desc, strings.Repeat("a", 51))
}

func TestDescribeEventTypeFieldQualifier(t *testing.T) {
	event := session.InteractionEvent{
		Type:   session.EventTypeType,
		Value:  "jane",
		Target: &session.EventTarget{Type: "email"},
	}
	assert.Equal(t, "Typed 'jane' in email field", describeEvent(event))

	event.Target.Attributes = map[string]string{"data-testid": "email-input"}
	assert.Equal(t, "Typed 'jane' in email-input", describeEvent(event))
}

func TestDescribeEventScrollSuppression(t *testing.T) {
	zero := session.InteractionEvent{
		Type:     session.EventTypeScroll,
		Metadata: session.EventMetadata{ScrollPosition: &session.ScrollPosition{X: 0, Y: 0}},
	}
	assert.Equal(t, "", describeEvent(zero))

	moved := session.InteractionEvent{
		Type:     session.EventTypeScroll,
		Metadata: session.EventMetadata{ScrollPosition: &session.ScrollPosition{X: 0, Y: 300}},
	}
	assert.Equal(t, "Scrolled to position (0, 300)", describeEvent(moved))

	noPosition := session.InteractionEvent{Type: session.EventTypeScroll}
	assert.Equal(t, "Scrolled page", describeEvent(noPosition))
}

func TestBuildTimelineFiltersSignificantEvents(t *testing.T) {
	events := []session.InteractionEvent{
		clickOn(0, "Login"),
		{Timestamp: 100, Type: session.EventTypeFocus},
		{Timestamp: 200, Type: session.EventTypeType, Value: "user"},
		{Timestamp: 300, Type: session.EventTypeBlur},
		{Timestamp: 400, Type: session.EventTypeScroll},
		{Timestamp: 500, Type: session.EventTypeStepChange},
	}

	timeline := BuildTimeline(events)

	assert.Equal(t, 6, timeline.TotalEvents)
	assert.Equal(t, 3, timeline.SignificantEvents)
	assert.Equal(t, session.EventTypeClick, timeline.Items[0].Action)
	assert.Equal(t, session.EventTypeType, timeline.Items[1].Action)
	assert.Equal(t, session.EventTypeStepChange, timeline.Items[2].Action)
	assert.Equal(t, 0.5, timeline.Items[2].Seconds)
}

func TestFormatTimelineEmpty(t *testing.T) {
	assert.Equal(t, "No significant actions recorded.", FormatTimeline(Timeline{}))
}

func TestUIElementsSummarySortedAndDeduplicated(t *testing.T) {
	events := []session.InteractionEvent{
		{Type: session.EventTypeClick, Target: &session.EventTarget{Text: "Save"}},
		{Type: session.EventTypeClick, Target: &session.EventTarget{Text: "Save"}},
		{Type: session.EventTypeFocus, Target: &session.EventTarget{
			Attributes: map[string]string{"data-testid": "email-input", "aria-label": "Email address"},
		}},
	}

	summary := UIElementsSummary(events)
	assert.Equal(t, "UI Elements: Email address, Save, email-input", summary)
}

func TestUIElementsSummaryEmpty(t *testing.T) {
	assert.Equal(t, "UI Elements: (none identified)", UIElementsSummary(nil))
}

func TestBuildSessionContext(t *testing.T) {
	sess := &session.RecordingSession{
		SessionID: "s-1",
		StartTime: 0,
		EndTime:   5000,
		URL:       "https://app.example.com",
		Events: []session.InteractionEvent{
			clickOn(0, "Login"),
			clickOn(3000, "Dashboard"),
		},
	}

	steps := segmenter.New().Segment(sess.Events)
	context := BuildSessionContext(sess, steps)

	assert.Contains(t, context, "Recording Session: s-1")
	assert.Contains(t, context, "URL: https://app.example.com")
	assert.Contains(t, context, "Duration: 5.0 seconds")
	assert.Contains(t, context, "Step 1")
	assert.Contains(t, context, "Step 2")
	assert.Contains(t, context, "Clicked on 'Login'")
	assert.Contains(t, context, "[3.0s] Clicked on 'Dashboard'")
}

func TestBuildTimingContextNoData(t *testing.T) {
	assert.Equal(t, "No timing data available.", BuildTimingContext(timing.Analysis{}))
}

func TestBuildTimingContextCapsExamples(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	words := make([]session.WordTiming, 0, 16)
	// Alternate fillers with 1.5s pauses so every pair produces a major gap
	for i := 0; i < 8; i++ {
		text := "um"
		if i%2 == 1 {
			text = "uh"
		}
		start := float64(i) * 2
		words = append(words, session.WordTiming{Word: text, Start: start, End: start + 0.5, Confidence: 0.5})
	}

	analysis := timing.NewAnalyzer(logger).Analyze(words)
	context := BuildTimingContext(analysis)

	assert.Contains(t, context, "Filler Words Detected: 7")
	assert.Contains(t, context, "Significant Pauses/Gaps:")
	assert.Contains(t, context, "Gap 5")
	assert.NotContains(t, context, "Gap 6")
}
