// Package openaigen is the OpenAI-backed headline rewriter, interchangeable
// with the Gemini one.
package openaigen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
}

func NewClient(apiKey string) *Client {
	return &Client{client: openai.NewClient(apiKey)}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) NeutralTitle(ctx context.Context, originalTitle string) (string, error) {
	prompt := fmt.Sprintf(`Rewrite this Burmese news headline into calm, neutral Burmese.
Remove sensational or clickbait wording but keep every fact.
Do not add names, numbers or details that are not in the original.
Answer with the rewritten headline only, one line, no comments.

Headline:
%s`, originalTitle)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxCompletionTokens: 200,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
