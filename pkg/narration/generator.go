package narration

import (
	"context"
	"fmt"
	"strings"

	"demovoice-server/pkg/segmenter"
	"demovoice-server/pkg/session"
	"demovoice-server/pkg/timing"

	"github.com/sirupsen/logrus"
)

// TextGenerator is the external text-generation capability. Implementations
// take a fully composed prompt and return the generated text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// TimingSummary is the subset of the timing analysis carried in results
type TimingSummary struct {
	TotalDuration    float64 `json:"total_duration"`
	TotalWords       int     `json:"total_words"`
	SpeakingRate     float64 `json:"speaking_rate"`
	NumGaps          int     `json:"num_gaps"`
	AverageGap       float64 `json:"average_gap"`
	NumFillerWords   int     `json:"num_filler_words"`
	NumLowConfidence int     `json:"num_low_confidence"`
	HasTimingData    bool    `json:"has_timing_data"`
}

// Result carries either a generated script or a failure, never both. A
// generation failure is terminal for the request; it is not retried.
type Result struct {
	Script         string        `json:"script"`
	RawText        string        `json:"raw_text"`
	Timing         TimingSummary `json:"timing_analysis"`
	DOMContextUsed bool          `json:"dom_context_used"`
	SessionID      string        `json:"session_id,omitempty"`
	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
}

// Generator orchestrates timing analysis, DOM context building, and the
// external text-generation call into a single narration script
type Generator struct {
	logger    *logrus.Logger
	analyzer  *timing.Analyzer
	segmenter *segmenter.Segmenter
	textGen   TextGenerator
}

// NewGenerator creates a script generator
func NewGenerator(logger *logrus.Logger, textGen TextGenerator) *Generator {
	return &Generator{
		logger:    logger,
		analyzer:  timing.NewAnalyzer(logger),
		segmenter: segmenter.New(),
		textGen:   textGen,
	}
}

// Generate produces a production-ready narration script from the raw
// transcript, word timings, and optional recording session. Failures of the
// underlying generation call are converted into a structured failure result;
// this method never panics past its boundary.
func (g *Generator) Generate(ctx context.Context, rawText string, words []session.WordTiming, sess *session.RecordingSession) Result {
	analysis := g.analyzer.Analyze(words)
	timingContext := BuildTimingContext(analysis)

	var domContext, timelineContext, uiElements string
	domContextUsed := sess != nil && len(sess.Events) > 0

	if domContextUsed {
		steps := g.segmenter.Segment(sess.Events)
		domContext = BuildSessionContext(sess, steps)
		timelineContext = FormatTimeline(BuildTimeline(sess.Events))
		uiElements = UIElementsSummary(sess.Events)

		g.logger.WithFields(logrus.Fields{
			"session_id": sess.SessionID,
			"events":     len(sess.Events),
			"steps":      len(steps),
		}).Info("Built DOM context for script generation")
	} else {
		g.logger.Info("No DOM events available, generating without screen context")
	}

	prompt := buildPrompt(rawText, timingContext, domContext, timelineContext, uiElements)

	generated, err := g.textGen.GenerateText(ctx, prompt)
	if err != nil {
		g.logger.WithError(err).Error("Script generation call failed")
		return Result{
			Script:  fmt.Sprintf("Error generating script: %v", err),
			RawText: rawText,
			Success: false,
			Error:   err.Error(),
		}
	}

	script := CleanScript(generated)

	g.logger.WithFields(logrus.Fields{
		"raw_length":    len(rawText),
		"script_length": len(script),
	}).Info("Script generated")

	result := Result{
		Script:         script,
		RawText:        rawText,
		DOMContextUsed: domContextUsed,
		Success:        true,
		Timing: TimingSummary{
			TotalDuration:    analysis.TotalDuration,
			TotalWords:       analysis.TotalWords,
			SpeakingRate:     analysis.SpeakingRate,
			NumGaps:          len(analysis.Gaps),
			AverageGap:       analysis.AverageGap,
			NumFillerWords:   len(analysis.FillerWords),
			NumLowConfidence: len(analysis.LowConfidenceWords),
			HasTimingData:    analysis.HasTimingData,
		},
	}
	if sess != nil {
		result.SessionID = sess.SessionID
	}
	return result
}

// buildPrompt assembles the generation request from the three context blocks
// plus fixed output instructions
func buildPrompt(rawText, timingContext, domContext, timelineContext, uiElements string) string {
	if domContext == "" {
		domContext = "No DOM events available"
	}

	var optional []string
	if strings.TrimSpace(uiElements) != "" {
		optional = append(optional, "UI ELEMENTS INTERACTED WITH:\n"+uiElements)
	}
	if strings.TrimSpace(timelineContext) != "" {
		optional = append(optional, "TIMELINE OF ACTIONS:\n"+timelineContext)
	}

	sections := []string{
		"You are an AI that creates professional, production-ready product demo scripts.",
		"",
		"You have access to THREE sources of information:",
		"",
		"1. RAW TRANSCRIPT (from speech-to-text):",
		rawText,
		"",
		"2. TIMING ANALYSIS (word-level timing with gaps and filler detection):",
		timingContext,
		"",
		"3. SCREEN RECORDING CONTEXT (DOM events showing user actions):",
		domContext,
	}

	for _, block := range optional {
		sections = append(sections, "", block)
	}

	sections = append(sections,
		"",
		"TASK:",
		"Generate a clean, professional product demo script that:",
		"1. Uses the raw transcript as the base",
		"2. Syncs with timing gaps to create natural pacing",
		"3. References actual UI actions (buttons, inputs, navigation)",
		"4. Fills pauses with meaningful connecting narration",
		"5. Maintains a polished professional tone",
		"6. Removes filler words like \"um\", \"uh\", \"like\"",
		"7. Outputs a clean, single-paragraph narration",
		"",
		"OUTPUT RULES:",
		"- Single continuous paragraph",
		"- No newlines inside the script",
		"- Present tense actions (\"click the button\")",
		"- Reference UI elements when provided",
		"- Keep the action sequence identical to the transcript",
		"- No hallucinated UI elements",
		"- +/-20% length tolerance versus original transcript",
		"- Must be clear, natural, and professional",
		"",
		"PRODUCTION-READY SCRIPT:",
	)

	return strings.Join(sections, "\n")
}
