package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"demovoice-server/pkg/errors"
	"demovoice-server/pkg/messaging"
	"demovoice-server/pkg/metrics"
	"demovoice-server/pkg/narration"
	"demovoice-server/pkg/session"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ScriptGenerator produces a narration script from a transcript and session.
type ScriptGenerator interface {
	Generate(ctx context.Context, rawText string, words []session.WordTiming, sess *session.RecordingSession) narration.Result
}

// SpeechSynthesizer renders a script to audio bytes.
type SpeechSynthesizer interface {
	Probe(ctx context.Context) error
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// ResultPublisher forwards completed results to downstream consumers.
type ResultPublisher interface {
	IsConnected() bool
	PublishResult(result messaging.ResultMessage) error
}

// ProgressNotifier receives stage transitions as a request moves through the
// pipeline. A nil notifier disables progress reporting.
type ProgressNotifier interface {
	BroadcastProgress(sessionID, stage, message string)
}

// Stages reported to progress subscribers during processing
const (
	StageReceived     = "received"
	StageGenerating   = "generating"
	StageSynthesizing = "synthesizing"
	StageComplete     = "complete"
	StageFailed       = "failed"
)

// Result is the outcome of one full processing run. Success tracks script
// generation only: a synthesis failure degrades to the original audio source
// instead of failing the request.
type Result struct {
	RequestID      string                  `json:"request_id"`
	SessionID      string                  `json:"session_id"`
	Script         string                  `json:"script"`
	RawText        string                  `json:"raw_text"`
	Timing         narration.TimingSummary `json:"timing_analysis"`
	DOMContextUsed bool                    `json:"dom_context_used"`
	AudioFile      string                  `json:"audio_file,omitempty"`
	AudioFallback  bool                    `json:"audio_fallback"`
	FallbackReason string                  `json:"fallback_reason,omitempty"`
	Success        bool                    `json:"success"`
	Error          string                  `json:"error,omitempty"`
}

// Pipeline runs the full processing sequence: resolve the session, generate
// the narration script, then synthesize and persist the audio.
type Pipeline struct {
	logger      *logrus.Logger
	generator   ScriptGenerator
	synthesizer SpeechSynthesizer
	publisher   ResultPublisher
	notifier    ProgressNotifier
	outputDir   string
	voice       string
}

// New creates a processing pipeline. publisher may be nil when AMQP
// forwarding is disabled.
func New(logger *logrus.Logger, generator ScriptGenerator, synthesizer SpeechSynthesizer, publisher ResultPublisher, outputDir, voice string) *Pipeline {
	return &Pipeline{
		logger:      logger,
		generator:   generator,
		synthesizer: synthesizer,
		publisher:   publisher,
		outputDir:   outputDir,
		voice:       voice,
	}
}

// SetNotifier attaches a progress notifier for stage updates.
func (p *Pipeline) SetNotifier(notifier ProgressNotifier) {
	p.notifier = notifier
}

func (p *Pipeline) notify(sessionID, stage, message string) {
	if p.notifier == nil {
		return
	}
	p.notifier.BroadcastProgress(sessionID, stage, message)
}

// Process runs the pipeline for one request. It always returns a non-nil
// Result; a script generation failure is terminal and reported through
// Result.Success, while synthesis failures degrade to the audio fallback.
func (p *Pipeline) Process(ctx context.Context, req *session.ProcessRequest) (result *Result) {
	requestID := uuid.New().String()
	status := "error"
	done := metrics.StartPipelineTimer(&status)
	defer done()

	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"recover":    r,
			}).Error("Recovered from panic in processing pipeline")
			result = &Result{
				RequestID: requestID,
				Success:   false,
				Error:     fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	log := p.logger.WithField("request_id", requestID)

	sess := req.ResolveSession(p.logger)
	sessionID := req.SessionID()
	if sess != nil {
		sessionID = sess.SessionID
	}
	words := req.Words()
	metrics.RecordWordsAnalyzed(len(words))

	eventCount := 0
	if sess != nil {
		eventCount = len(sess.Events)
	}
	log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"words":      len(words),
		"events":     eventCount,
	}).Info("Processing recording session")
	p.notify(sessionID, StageReceived, "request accepted")

	p.notify(sessionID, StageGenerating, "generating narration script")
	genResult := p.generator.Generate(ctx, req.Text, words, sess)
	result = &Result{
		RequestID:      requestID,
		SessionID:      sessionID,
		Script:         genResult.Script,
		RawText:        genResult.RawText,
		Timing:         genResult.Timing,
		DOMContextUsed: genResult.DOMContextUsed,
		Success:        genResult.Success,
		Error:          genResult.Error,
	}

	if !genResult.Success {
		metrics.RecordGeneration("error", 0)
		log.WithField("error", genResult.Error).Error("Script generation failed")
		p.notify(sessionID, StageFailed, genResult.Error)
		p.publish(result)
		return result
	}
	metrics.RecordGeneration("success", len(genResult.Script))

	p.notify(sessionID, StageSynthesizing, "synthesizing narration audio")
	p.renderAudio(ctx, log, req, result)

	status = "success"
	p.notify(sessionID, StageComplete, "processing complete")
	p.publish(result)
	return result
}

// renderAudio synthesizes the script and writes the audio file. Every failure
// path here sets the fallback flag instead of failing the request.
func (p *Pipeline) renderAudio(ctx context.Context, log *logrus.Entry, req *session.ProcessRequest, result *Result) {
	if err := p.synthesizer.Probe(ctx); err != nil {
		log.WithError(err).Warn("Speech API unreachable, falling back to original audio")
		metrics.RecordAudioFallback("probe_failed")
		result.AudioFallback = true
		result.FallbackReason = "synthesis service unavailable"
		return
	}

	audio, err := p.synthesizer.Synthesize(ctx, result.Script, p.voice)
	if err != nil {
		log.WithError(err).Warn("Speech synthesis failed, falling back to original audio")
		metrics.RecordAudioFallback(fallbackReason(err))
		metrics.RecordSynthesis("error", 0)
		result.AudioFallback = true
		result.FallbackReason = "synthesis failed"
		return
	}
	metrics.RecordSynthesis("success", len(audio))

	if len(audio) == 0 {
		log.Info("Empty script produced no audio")
		return
	}

	filename := fmt.Sprintf("processed_audio_%s_%d.mp3", result.SessionID, time.Now().UnixMilli())
	outputDir := p.outputDir
	if req.RecordingsPath != "" {
		outputDir = req.RecordingsPath
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.WithError(err).Error("Failed to create recordings directory")
		metrics.RecordAudioFallback("write_failed")
		result.AudioFallback = true
		result.FallbackReason = "could not write audio file"
		return
	}

	path := filepath.Join(outputDir, filename)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		log.WithError(err).Error("Failed to write audio file")
		metrics.RecordAudioFallback("write_failed")
		result.AudioFallback = true
		result.FallbackReason = "could not write audio file"
		return
	}

	log.WithFields(logrus.Fields{
		"audio_file": filename,
		"bytes":      len(audio),
	}).Info("Wrote synthesized audio")
	result.AudioFile = filename
}

// publish forwards the result over AMQP when a connected publisher is
// configured. Publish failures are logged and swallowed.
func (p *Pipeline) publish(result *Result) {
	if p.publisher == nil || !p.publisher.IsConnected() {
		return
	}

	msg := messaging.ResultMessage{
		SessionID:     result.SessionID,
		Script:        result.Script,
		AudioFile:     result.AudioFile,
		AudioFallback: result.AudioFallback,
		Success:       result.Success,
		Error:         result.Error,
		Timestamp:     time.Now(),
	}
	if err := p.publisher.PublishResult(msg); err != nil {
		p.logger.WithError(err).WithField("session_id", result.SessionID).Warn("Failed to publish result")
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrSynthesisTimeout):
		return "synthesis_timeout"
	case errors.Is(err, errors.ErrSynthesisTransport):
		return "synthesis_connection"
	default:
		return "synthesis_failed"
	}
}
