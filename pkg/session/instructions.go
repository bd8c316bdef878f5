package session

import "strings"

// FrontendInstruction is a replay instruction derived from a recorded event,
// consumed by the player frontend for visual effects
type FrontendInstruction struct {
	Timestamp  int64                  `json:"timestamp"`
	Action     string                 `json:"action"`
	Target     map[string]interface{} `json:"target,omitempty"`
	Value      string                 `json:"value,omitempty"`
	Bbox       *BoundingBox           `json:"bbox,omitempty"`
	Selector   string                 `json:"selector,omitempty"`
	Confidence float64                `json:"confidence"`
}

// ProcessRecordingResponse is the result of converting a session's events
// into frontend instructions
type ProcessRecordingResponse struct {
	SessionID    string                 `json:"sessionId"`
	Instructions []FrontendInstruction  `json:"instructions"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// ConvertEvents converts a session's recorded events into frontend replay
// instructions, dropping events that carry no replayable information
func ConvertEvents(s *RecordingSession) *ProcessRecordingResponse {
	instructions := make([]FrontendInstruction, 0, len(s.Events))

	for _, event := range s.Events {
		if instruction := convertEvent(event); instruction != nil {
			instructions = append(instructions, *instruction)
		}
	}

	return &ProcessRecordingResponse{
		SessionID:    s.SessionID,
		Instructions: instructions,
		Metadata: map[string]interface{}{
			"totalEvents":           len(s.Events),
			"instructionsGenerated": len(instructions),
			"duration":              s.Duration(),
			"url":                   s.URL,
		},
	}
}

// convertEvent converts a single event, or returns nil when the event should
// be skipped. Scroll events that never left the origin carry no information.
func convertEvent(event InteractionEvent) *FrontendInstruction {
	if event.Type == EventTypeScroll && event.Metadata.ScrollPosition != nil {
		pos := event.Metadata.ScrollPosition
		if pos.X == 0 && pos.Y == 0 {
			return nil
		}
	}

	instruction := &FrontendInstruction{
		Timestamp:  event.Timestamp,
		Action:     event.Type,
		Value:      event.Value,
		Confidence: 1.0, // recorded events are not inferred
	}

	if event.Target != nil {
		instruction.Selector = event.Target.Selector
		instruction.Bbox = event.Target.Bbox
		instruction.Target = map[string]interface{}{
			"tag":        event.Target.Tag,
			"id":         event.Target.ID,
			"classes":    event.Target.Classes,
			"text":       event.Target.Text,
			"type":       event.Target.Type,
			"name":       event.Target.Name,
			"attributes": event.Target.Attributes,
		}
	}

	return instruction
}

// ExtractText collects visible text content from events (button labels,
// typed values) for downstream consumers
func ExtractText(events []InteractionEvent) string {
	var parts []string

	for _, event := range events {
		switch event.Type {
		case EventTypeClick:
			if event.Target != nil && event.Target.Text != "" {
				parts = append(parts, "Clicked: "+event.Target.Text)
			}
		case EventTypeType:
			if event.Value != "" {
				parts = append(parts, "Typed: "+event.Value)
			}
		case EventTypeFocus:
			if event.Target == nil {
				continue
			}
			if event.Target.Text != "" {
				parts = append(parts, "Focused: "+event.Target.Text)
			} else if testID := event.Target.Attributes["data-testid"]; testID != "" {
				parts = append(parts, "Focused: "+testID)
			}
		}
	}

	return strings.Join(parts, " ")
}
