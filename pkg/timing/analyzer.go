// Package timing analyzes word-level speech timing data: pauses between
// words, disfluencies, low-confidence words, and aggregate speaking
// statistics used to pace generated narration.
package timing

import (
	"strings"

	"demovoice-server/pkg/session"

	"github.com/sirupsen/logrus"
)

// Gap classification thresholds, in seconds
const (
	GapThreshold     = 0.3
	NaturalThreshold = 0.5
	MajorThreshold   = 0.8
)

// LowConfidenceThreshold flags words the transcription engine was unsure about
const LowConfidenceThreshold = 0.8

// Gap classifications
const (
	GapMinor   = "minor"
	GapNatural = "natural"
	GapMajor   = "major"
)

// fillerVocabulary is the fixed set of disfluency tokens flagged for removal
var fillerVocabulary = map[string]bool{
	"um":        true,
	"uh":        true,
	"like":      true,
	"you know":  true,
	"so":        true,
	"well":      true,
	"actually":  true,
	"basically": true,
}

// Gap is a silence interval between two consecutive spoken words
type Gap struct {
	AfterWord  string  `json:"after_word"`
	BeforeWord string  `json:"before_word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Duration   float64 `json:"duration"`
	Position   int     `json:"position"`
	Type       string  `json:"type"`
}

// FlaggedWord is a word flagged as low-confidence or as a disfluency
type FlaggedWord struct {
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence,omitempty"`
	Position   int     `json:"position"`
	Start      float64 `json:"start"`
	Repetition bool    `json:"repetition,omitempty"`
}

// SpeakingSegment is a contiguous run of words with no significant gap
type SpeakingSegment struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	WordCount int     `json:"word_count"`
}

// Analysis is the complete result of analyzing a word timing sequence
type Analysis struct {
	TotalDuration      float64           `json:"total_duration"`
	TotalWords         int               `json:"total_words"`
	Gaps               []Gap             `json:"gaps"`
	AverageGap         float64           `json:"average_gap"`
	SpeakingSegments   []SpeakingSegment `json:"speaking_segments"`
	LowConfidenceWords []FlaggedWord     `json:"low_confidence_words"`
	FillerWords        []FlaggedWord     `json:"filler_words"`
	SpeakingRate       float64           `json:"speaking_rate"`
	HasTimingData      bool              `json:"has_timing_data"`
}

// Analyzer walks word-level timing data and produces an Analysis
type Analyzer struct {
	logger *logrus.Logger
}

// NewAnalyzer creates a timing analyzer
func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze inspects each adjacent word pair for gaps, fillers, repetitions,
// and low confidence, tracks speaking segments, and computes aggregate
// statistics. An empty input yields a zeroed analysis with HasTimingData
// false. All time values are fractional seconds.
func (a *Analyzer) Analyze(words []session.WordTiming) Analysis {
	if len(words) == 0 {
		a.logger.Warn("No word timings provided, returning empty analysis")
		return Analysis{}
	}

	analysis := Analysis{
		TotalWords:    len(words),
		HasTimingData: true,
	}

	var segment *SpeakingSegment
	segmentWords := 0

	for i := 0; i < len(words)-1; i++ {
		current := words[i]
		next := words[i+1]

		gapDuration := next.Start - current.End

		if current.Confidence < LowConfidenceThreshold {
			analysis.LowConfidenceWords = append(analysis.LowConfidenceWords, FlaggedWord{
				Word:       current.Word,
				Confidence: current.Confidence,
				Position:   i,
				Start:      current.Start,
			})
		}

		if fillerVocabulary[strings.ToLower(current.Word)] {
			analysis.FillerWords = append(analysis.FillerWords, FlaggedWord{
				Word:     current.Word,
				Position: i,
				Start:    current.Start,
			})
		}

		// Exact, case-sensitive repetition ("the the")
		if current.Word == next.Word {
			analysis.FillerWords = append(analysis.FillerWords, FlaggedWord{
				Word:       current.Word + " (repeated)",
				Position:   i,
				Start:      current.Start,
				Repetition: true,
			})
		}

		if gapDuration > GapThreshold {
			analysis.Gaps = append(analysis.Gaps, Gap{
				AfterWord:  current.Display(),
				BeforeWord: next.Display(),
				Start:      current.End,
				End:        next.Start,
				Duration:   gapDuration,
				Position:   i,
				Type:       classifyGap(gapDuration),
			})

			if segment != nil {
				segment.End = current.End
				segment.WordCount = segmentWords
				analysis.SpeakingSegments = append(analysis.SpeakingSegments, *segment)
				segment = nil
			}
		} else {
			if segment == nil {
				segment = &SpeakingSegment{Start: current.Start, End: current.End}
				segmentWords = 0
			}
			segmentWords++
			segment.End = current.End
		}
	}

	if segment != nil {
		segment.End = words[len(words)-1].End
		segment.WordCount = segmentWords
		analysis.SpeakingSegments = append(analysis.SpeakingSegments, *segment)
	}

	analysis.TotalDuration = words[len(words)-1].End - words[0].Start
	if len(analysis.Gaps) > 0 {
		var sum float64
		for _, g := range analysis.Gaps {
			sum += g.Duration
		}
		analysis.AverageGap = sum / float64(len(analysis.Gaps))
	}
	if analysis.TotalDuration > 0 {
		analysis.SpeakingRate = float64(len(words)) / analysis.TotalDuration
	}

	a.logger.WithFields(logrus.Fields{
		"total_words":    analysis.TotalWords,
		"total_duration": analysis.TotalDuration,
		"speaking_rate":  analysis.SpeakingRate,
		"gaps":           len(analysis.Gaps),
		"fillers":        len(analysis.FillerWords),
		"low_confidence": len(analysis.LowConfidenceWords),
		"segments":       len(analysis.SpeakingSegments),
	}).Debug("Timing analysis complete")

	return analysis
}

// classifyGap maps a gap duration to its significance class
func classifyGap(duration float64) string {
	switch {
	case duration > MajorThreshold:
		return GapMajor
	case duration >= NaturalThreshold:
		return GapNatural
	default:
		return GapMinor
	}
}
