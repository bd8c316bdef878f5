package session

// Event types recorded during a screen-recording session
const (
	EventTypeClick      = "click"
	EventTypeType       = "type"
	EventTypeFocus      = "focus"
	EventTypeBlur       = "blur"
	EventTypeScroll     = "scroll"
	EventTypeStepChange = "step_change"
)

// BoundingBox holds position and dimensions of a UI element
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EventTarget describes the DOM element an event was dispatched on
type EventTarget struct {
	Tag        string            `json:"tag"`
	ID         string            `json:"id,omitempty"`
	Classes    []string          `json:"classes,omitempty"`
	Text       string            `json:"text,omitempty"`
	Selector   string            `json:"selector"`
	Bbox       *BoundingBox      `json:"bbox,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`

	// For inputs: the input type ('text', 'email', ...) and name attribute
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// ScrollPosition holds scroll coordinates
type ScrollPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport holds viewport dimensions
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EventMetadata carries page context captured alongside an event
type EventMetadata struct {
	URL            string          `json:"url"`
	Viewport       Viewport        `json:"viewport"`
	ScrollPosition *ScrollPosition `json:"scrollPosition,omitempty"`
}

// InteractionEvent is a single recorded DOM interaction.
// Timestamp is milliseconds since recording start; events arrive ordered by
// timestamp but the pipeline tolerates out-of-order and duplicate timestamps.
type InteractionEvent struct {
	Timestamp int64         `json:"timestamp"`
	Type      string        `json:"type"`
	Target    *EventTarget  `json:"target,omitempty"`
	Value     string        `json:"value,omitempty"`
	Metadata  EventMetadata `json:"metadata"`
}

// RecordingSession is a complete screen-recording session with all events.
// StartTime and EndTime are absolute Unix milliseconds; event timestamps are
// relative offsets and are not required to fall within the session window.
type RecordingSession struct {
	SessionID string             `json:"sessionId"`
	StartTime int64              `json:"startTime"`
	EndTime   int64              `json:"endTime"`
	URL       string             `json:"url"`
	Viewport  Viewport           `json:"viewport"`
	Events    []InteractionEvent `json:"events"`
}

// Duration returns the session length in milliseconds
func (s *RecordingSession) Duration() int64 {
	return s.EndTime - s.StartTime
}

// WordTiming is a single word from speech-to-text with timing and confidence.
// Start and End are fractional seconds.
type WordTiming struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
}

// Display returns the punctuated form of the word when available
func (w WordTiming) Display() string {
	if w.PunctuatedWord != "" {
		return w.PunctuatedWord
	}
	return w.Word
}
