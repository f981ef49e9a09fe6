package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/willimj3/brief-bank-tool/generate"

	"github.com/google/generative-ai-go/genai"
)

const draftingModel = "gemini-2.0-flash"

// DraftingGenerativeModel is the slice of the genai SDK the drafting client
// needs. It exists so tests can substitute a fake model.
type DraftingGenerativeModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// DraftingClient produces section text through the Gemini generation API.
type DraftingClient struct {
	client *genai.Client
	model  func(temperature float32) DraftingGenerativeModel
}

// NewDraftingClient wraps a genai client for drafting.
func NewDraftingClient(client *genai.Client) *DraftingClient {
	return &DraftingClient{
		client: client,
		model: func(temperature float32) DraftingGenerativeModel {
			m := client.GenerativeModel(draftingModel)
			m.SetTemperature(temperature)
			return m
		},
	}
}

// Draft generates text for one prompt. Transient failures are retried with
// exponential backoff; the generator above adds its own retry layer, so this
// stays conservative.
func (c *DraftingClient) Draft(ctx context.Context, req generate.DraftRequest) (*generate.DraftResponse, error) {
	model := c.model(float32(req.Temperature))

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
		if err != nil {
			lastErr = err
			continue
		}

		text := responseText(resp)
		if strings.TrimSpace(text) == "" {
			lastErr = fmt.Errorf("generation API returned no text")
			continue
		}
		return &generate.DraftResponse{Text: text}, nil
	}

	return nil, fmt.Errorf("failed to generate content after %d attempts: %w", maxRetries, lastErr)
}

// responseText concatenates the text parts of all candidates.
func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}
