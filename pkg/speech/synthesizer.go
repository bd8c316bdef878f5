package speech

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"demovoice-server/pkg/config"
	"demovoice-server/pkg/errors"
	"demovoice-server/pkg/metrics"

	"github.com/sirupsen/logrus"
)

// Synthesizer drives chunked synthesis: it splits long narration at sentence
// boundaries, synthesizes each chunk with retry and backoff, and concatenates
// the audio byte streams. MP3 frames concatenate cleanly, so joining
// independently encoded chunks is valid byte-for-byte.
type Synthesizer struct {
	logger     *logrus.Logger
	client     ChunkSynthesizer
	chunkSize  int
	maxRetries int
	retryDelay time.Duration
}

// ChunkSynthesizer issues a single bounded synthesis request
type ChunkSynthesizer interface {
	SynthesizeChunk(ctx context.Context, text, voice string) ([]byte, error)
	Probe(ctx context.Context) error
}

// NewSynthesizer creates a chunked synthesizer around a synthesis client
func NewSynthesizer(logger *logrus.Logger, client ChunkSynthesizer, cfg config.SpeechConfig) *Synthesizer {
	return &Synthesizer{
		logger:     logger,
		client:     client,
		chunkSize:  cfg.ChunkSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Probe checks synthesis API connectivity before committing to a full run
func (s *Synthesizer) Probe(ctx context.Context) error {
	return s.client.Probe(ctx)
}

// Synthesize converts narration text into concatenated audio bytes. Blank
// input returns empty audio immediately. Chunks are synthesized in order,
// sequentially, sharing one pooled client across chunks and retries.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	normalized := EnsureSentenceEnding(text)
	if normalized == "" {
		return []byte{}, nil
	}

	chunks := ChunkText(normalized, s.chunkSize)
	observe := metrics.ObserveSynthesisLatency(voice)
	defer observe()

	s.logger.WithFields(logrus.Fields{
		"text_length": len(normalized),
		"chunks":      len(chunks),
	}).Info("Starting chunked speech synthesis")

	var audio bytes.Buffer
	for i, chunk := range chunks {
		chunkAudio, err := s.synthesizeWithRetry(ctx, chunk, voice)
		if err != nil {
			metrics.RecordSynthesisChunk("error")
			return nil, errors.Wrap(err, fmt.Sprintf("chunk %d/%d failed", i+1, len(chunks)))
		}
		metrics.RecordSynthesisChunk("success")
		audio.Write(chunkAudio)

		s.logger.WithFields(logrus.Fields{
			"chunk":       i + 1,
			"chunk_bytes": len(chunkAudio),
			"total_bytes": audio.Len(),
		}).Debug("Chunk synthesized")
	}

	s.logger.WithField("audio_bytes", audio.Len()).Info("Speech synthesis complete")
	return audio.Bytes(), nil
}

// synthesizeWithRetry attempts one chunk up to the retry budget with linearly
// increasing backoff (delay = base x attempt). The classified error of the
// final attempt propagates with the attempt count.
func (s *Synthesizer) synthesizeWithRetry(ctx context.Context, chunk, voice string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		audio, err := s.client.SynthesizeChunk(ctx, chunk, voice)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		metrics.RecordSynthesisRetry(retryErrorType(err))

		s.logger.WithError(err).WithFields(logrus.Fields{
			"attempt":     attempt,
			"max_retries": s.maxRetries,
		}).Warn("Synthesis attempt failed")

		if attempt < s.maxRetries {
			delay := s.retryDelay * time.Duration(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), "synthesis canceled during backoff")
			}
		}
	}

	return nil, errors.Wrap(lastErr, fmt.Sprintf("all %d attempts failed", s.maxRetries))
}

func retryErrorType(err error) string {
	switch {
	case errors.Is(err, errors.ErrSynthesisTimeout):
		return "timeout"
	case errors.Is(err, errors.ErrSynthesisTransport):
		return "connection"
	case errors.Is(err, errors.ErrAudioTooSmall):
		return "audio_too_small"
	default:
		return "generic"
	}
}
