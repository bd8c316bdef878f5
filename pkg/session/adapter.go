package session

import (
	"github.com/sirupsen/logrus"
)

// ProcessRequest is the full-pipeline request payload. Two generations of
// callers exist: the legacy one sends a raw Deepgram response plus a flat
// domEvents array with separate metadata, the current one sends pre-extracted
// deepgramData plus a RecordingSession. Both shapes are normalized here, once,
// at the boundary.
type ProcessRequest struct {
	// Raw transcript text from speech-to-text
	Text string `json:"text"`

	// Current format: pre-extracted word timings
	DeepgramData *DeepgramData `json:"deepgramData,omitempty"`

	// Legacy format: the raw Deepgram response as forwarded upstream
	DeepgramResponse *DeepgramLegacyResponse `json:"deepgramResponse,omitempty"`

	// Current format: complete recording session
	Session *RecordingSession `json:"session,omitempty"`

	// Legacy format: flat event list, session fields live in Metadata
	DomEvents []InteractionEvent `json:"domEvents,omitempty"`

	// Directory where the rendered audio file is written
	RecordingsPath string `json:"recordingsPath"`

	// Additional metadata (sessionId, startTime, endTime, url, viewport)
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DeepgramData is the pre-extracted word timing payload
type DeepgramData struct {
	Words []WordTiming `json:"words"`
}

// DeepgramLegacyResponse mirrors the raw Deepgram response structure that the
// legacy caller forwards verbatim
type DeepgramLegacyResponse struct {
	Raw struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string       `json:"transcript"`
					Words      []WordTiming `json:"words"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	} `json:"raw"`
}

// Words extracts the word timing sequence from whichever format the request
// carries. Priority: deepgramData.words, then the first alternative of the
// first channel of the raw legacy response, then empty.
func (r *ProcessRequest) Words() []WordTiming {
	if r.DeepgramData != nil && len(r.DeepgramData.Words) > 0 {
		return r.DeepgramData.Words
	}

	if r.DeepgramResponse != nil {
		channels := r.DeepgramResponse.Raw.Results.Channels
		if len(channels) > 0 && len(channels[0].Alternatives) > 0 {
			return channels[0].Alternatives[0].Words
		}
	}

	return nil
}

// ResolveSession returns the canonical RecordingSession for the request. A
// proper session object wins; otherwise a legacy flat event list is wrapped
// into one with defaults for any metadata field the caller omitted. Returns
// nil when no event data is available at all; the pipeline treats that as
// "no DOM context", never as a hard failure.
func (r *ProcessRequest) ResolveSession(logger *logrus.Logger) *RecordingSession {
	if r.Session != nil {
		return r.Session
	}

	if len(r.DomEvents) == 0 {
		return nil
	}

	wrapped := &RecordingSession{
		SessionID: metadataString(r.Metadata, "sessionId", "legacy_session"),
		StartTime: metadataInt64(r.Metadata, "startTime", 0),
		EndTime:   metadataInt64(r.Metadata, "endTime", 0),
		URL:       metadataString(r.Metadata, "url", "unknown"),
		Viewport:  metadataViewport(r.Metadata),
		Events:    r.DomEvents,
	}

	logger.WithFields(logrus.Fields{
		"session_id": wrapped.SessionID,
		"events":     len(wrapped.Events),
	}).Info("Wrapped raw domEvents into RecordingSession")

	return wrapped
}

// SessionID returns the best-effort session identifier for the request
func (r *ProcessRequest) SessionID() string {
	if r.Session != nil && r.Session.SessionID != "" {
		return r.Session.SessionID
	}
	return metadataString(r.Metadata, "sessionId", "unknown")
}

func metadataString(m map[string]interface{}, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func metadataInt64(m map[string]interface{}, key string, fallback int64) int64 {
	if m == nil {
		return fallback
	}
	// JSON numbers decode as float64
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return fallback
	}
}

func metadataViewport(m map[string]interface{}) Viewport {
	if m == nil {
		return Viewport{}
	}
	raw, ok := m["viewport"].(map[string]interface{})
	if !ok {
		return Viewport{}
	}
	return Viewport{
		Width:  int(metadataInt64(raw, "width", 0)),
		Height: int(metadataInt64(raw, "height", 0)),
	}
}
