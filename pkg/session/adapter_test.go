package session

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestWordsFromDeepgramData(t *testing.T) {
	req := &ProcessRequest{
		DeepgramData: &DeepgramData{
			Words: []WordTiming{
				{Word: "hello", Start: 0, End: 0.5, Confidence: 0.99},
				{Word: "world", Start: 0.6, End: 1.0, Confidence: 0.97},
			},
		},
	}

	words := req.Words()
	assert.Len(t, words, 2)
	assert.Equal(t, "hello", words[0].Word)
}

func TestWordsFromLegacyResponse(t *testing.T) {
	payload := []byte(`{
		"text": "hello world",
		"deepgramResponse": {
			"raw": {
				"results": {
					"channels": [{
						"alternatives": [{
							"transcript": "hello world",
							"words": [
								{"word": "hello", "start": 0, "end": 0.5, "confidence": 0.9},
								{"word": "world", "start": 0.6, "end": 1.0, "confidence": 0.8}
							]
						}]
					}]
				}
			}
		}
	}`)

	var req ProcessRequest
	assert.NoError(t, json.Unmarshal(payload, &req))

	words := req.Words()
	assert.Len(t, words, 2)
	assert.Equal(t, "world", words[1].Word)
	assert.Equal(t, 0.8, words[1].Confidence)
}

func TestWordsPrefersNewFormat(t *testing.T) {
	req := &ProcessRequest{
		DeepgramData: &DeepgramData{
			Words: []WordTiming{{Word: "new", Start: 0, End: 1}},
		},
		DeepgramResponse: &DeepgramLegacyResponse{},
	}

	words := req.Words()
	assert.Len(t, words, 1)
	assert.Equal(t, "new", words[0].Word)
}

func TestWordsEmpty(t *testing.T) {
	req := &ProcessRequest{}
	assert.Empty(t, req.Words())
}

func TestResolveSessionPassthrough(t *testing.T) {
	sess := &RecordingSession{SessionID: "abc-123"}
	req := &ProcessRequest{Session: sess}

	resolved := req.ResolveSession(testLogger())
	assert.Same(t, sess, resolved)
}

func TestResolveSessionWrapsLegacyEvents(t *testing.T) {
	req := &ProcessRequest{
		DomEvents: []InteractionEvent{
			{Timestamp: 0, Type: EventTypeClick},
			{Timestamp: 100, Type: EventTypeType, Value: "hi"},
		},
		Metadata: map[string]interface{}{
			"sessionId": "legacy-42",
			"startTime": float64(1000),
			"endTime":   float64(5000),
			"url":       "https://app.example.com",
			"viewport":  map[string]interface{}{"width": float64(1280), "height": float64(720)},
		},
	}

	resolved := req.ResolveSession(testLogger())
	assert.NotNil(t, resolved)
	assert.Equal(t, "legacy-42", resolved.SessionID)
	assert.Equal(t, int64(1000), resolved.StartTime)
	assert.Equal(t, int64(5000), resolved.EndTime)
	assert.Equal(t, "https://app.example.com", resolved.URL)
	assert.Equal(t, 1280, resolved.Viewport.Width)
	assert.Len(t, resolved.Events, 2)
}

func TestResolveSessionDefaultsWhenMetadataMissing(t *testing.T) {
	req := &ProcessRequest{
		DomEvents: []InteractionEvent{{Timestamp: 0, Type: EventTypeClick}},
	}

	resolved := req.ResolveSession(testLogger())
	assert.NotNil(t, resolved)
	assert.Equal(t, "legacy_session", resolved.SessionID)
	assert.Equal(t, int64(0), resolved.StartTime)
	assert.Equal(t, "unknown", resolved.URL)
	assert.Equal(t, Viewport{}, resolved.Viewport)
}

func TestResolveSessionNilWithoutEvents(t *testing.T) {
	req := &ProcessRequest{}
	assert.Nil(t, req.ResolveSession(testLogger()))
}

func TestSessionID(t *testing.T) {
	req := &ProcessRequest{Session: &RecordingSession{SessionID: "s-1"}}
	assert.Equal(t, "s-1", req.SessionID())

	req = &ProcessRequest{Metadata: map[string]interface{}{"sessionId": "m-2"}}
	assert.Equal(t, "m-2", req.SessionID())

	req = &ProcessRequest{}
	assert.Equal(t, "unknown", req.SessionID())
}

func TestWordTimingDisplay(t *testing.T) {
	w := WordTiming{Word: "hello", PunctuatedWord: "Hello,"}
	assert.Equal(t, "Hello,", w.Display())

	w = WordTiming{Word: "hello"}
	assert.Equal(t, "hello", w.Display())
}
