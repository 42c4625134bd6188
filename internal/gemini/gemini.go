// Package gemini rewrites Burmese headlines into neutral phrasing using the
// Gemini API. The caller validates the output; this package only produces a
// candidate.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const modelName = "gemini-1.5-flash"

type Client struct {
	client *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Client) Name() string { return "gemini" }

// NeutralTitle asks the model for a calm rephrasing of the headline. The raw
// first candidate is returned untrimmed; sanitation happens upstream.
func (c *Client) NeutralTitle(ctx context.Context, originalTitle string) (string, error) {
	model := c.client.GenerativeModel(modelName)

	prompt := fmt.Sprintf(`You rewrite Burmese news headlines into calm, neutral Burmese.

HEADLINE:
%s

RULES:
- Keep the language Burmese (Myanmar script).
- Remove sensational, alarming or clickbait wording; keep the facts.
- Do not add names, numbers, places or any detail not present in the original.
- If the source of a claim is stated, keep the attribution.
- Answer with the rewritten headline only, one line, no labels or notes.`, originalTitle)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	out := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return strings.TrimSpace(out), nil
}
