package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/davidpenaloza/mvp-farmacias-v2/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LocalityExtractor implements ai.LocalityExtractor using OpenAI-compatible chat APIs.
type LocalityExtractor struct {
	client        llms.Model
	minConfidence float64
	logger        *slog.Logger
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	ExtractedLocation string  `json:"extracted_location"`
	Confidence        float64 `json:"confidence"`
	Reasoning         string  `json:"reasoning"`
}

// newLocalityExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newLocalityExtractor(config *ai.Config) (*LocalityExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat/extraction
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &LocalityExtractor{
		client:        client,
		minConfidence: config.MinConfidence,
		logger:        slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewLocalityExtractor creates a new locality extractor using the provided configuration.
//
// Returns ai.LocalityExtractor interface to enforce abstraction.
func NewLocalityExtractor(config *ai.Config) (ai.LocalityExtractor, error) {
	return newLocalityExtractor(config)
}

// ExtractLocality pulls the locality mentioned in a free-text sentence using an LLM.
// It returns an empty string when the sentence mentions no location, or when the
// model's self-reported confidence falls below the configured minimum.
func (e *LocalityExtractor) ExtractLocality(ctx context.Context, sentence string) (string, error) {
	sentence = scrubString(sentence)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(sentence),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return "", err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return "", nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return "", lastErr
	}

	location := strings.TrimSpace(result.ExtractedLocation)
	if location == "" || result.Confidence < e.minConfidence {
		e.logger.Debug("no confident locality extracted",
			"location", location,
			"confidence", result.Confidence,
			"reasoning", result.Reasoning)
		return "", nil
	}

	e.logger.Debug("extracted locality",
		"location", location,
		"confidence", result.Confidence)
	return location, nil
}
