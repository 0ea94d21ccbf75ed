// ABOUTME: Gemini-backed Generator using the google.golang.org/genai SDK
// ABOUTME: Maps chat history turns to genai contents and extracts the first candidate's text

package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// DefaultGenerationModel is used when the config names no model.
const DefaultGenerationModel = "gemini-1.5-flash"

// ErrNoCandidate is returned when the upstream response contains no usable
// candidate text.
var ErrNoCandidate = errors.New("no usable candidate in response")

// GeminiClient implements Generator against the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a generation client for the given API key.
// An empty model selects DefaultGenerationModel.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" {
		model = DefaultGenerationModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "gemini"),
	}, nil
}

// GenerateText sends the history with the system instruction and returns the
// first candidate's text. Only the first candidate is consulted; a response
// without one yields ErrNoCandidate.
func (c *GeminiClient) GenerateText(ctx context.Context, history []Turn, system string) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		contents = append(contents, genai.NewContentFromText(turn.Text, genai.Role(turn.Role)))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("calling generation API: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoCandidate
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			return part.Text, nil
		}
	}

	c.logger.Debug("candidate held no text part", "model", c.model)
	return "", ErrNoCandidate
}

// Ensure GeminiClient implements Generator
var _ Generator = (*GeminiClient)(nil)
