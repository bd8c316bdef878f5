package narration

import (
	"context"
	"time"

	"demovoice-server/pkg/errors"
	"demovoice-server/pkg/metrics"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// GeminiGenerator implements TextGenerator against the Gemini API
type GeminiGenerator struct {
	logger  *logrus.Logger
	apiKey  string
	model   string
	timeout time.Duration
}

// NewGeminiGenerator creates a Gemini-backed text generator
func NewGeminiGenerator(logger *logrus.Logger, apiKey, model string, timeout time.Duration) *GeminiGenerator {
	return &GeminiGenerator{
		logger:  logger,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

// GenerateText sends the prompt to Gemini and returns the generated text.
// The call is bounded by the configured timeout; it never blocks indefinitely.
func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", errors.Wrap(errors.ErrScriptGeneration, "GEMINI_API_KEY is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	observe := metrics.ObserveGenerationLatency(g.model)
	defer observe()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to create Gemini client")
	}

	g.logger.WithFields(logrus.Fields{
		"model":         g.model,
		"prompt_length": len(prompt),
	}).Debug("Sending generation request")

	result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", errors.Wrap(err, "generation request failed")
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.Wrap(errors.ErrScriptGeneration, "empty response from Gemini")
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	if text == "" {
		return "", errors.Wrap(errors.ErrScriptGeneration, "response contained no text parts")
	}

	return text, nil
}
