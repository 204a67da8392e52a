package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	oaoption "github.com/openai/openai-go/option"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI calls the chat completions API.
type OpenAI struct {
	Model string
	// BaseURL overrides the API endpoint (compatible gateways).
	BaseURL string
}

func (o *OpenAI) Generate(ctx context.Context, prompt, apiKey string) (string, error) {
	if apiKey == "" {
		return "", ErrNoAPIKey
	}
	opts := []oaoption.RequestOption{oaoption.WithAPIKey(apiKey), oaoption.WithMaxRetries(0)}
	if o.BaseURL != "" {
		opts = append(opts, oaoption.WithBaseURL(o.BaseURL))
	}
	client := openai.NewClient(opts...)

	res, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:    o.Model,
	})
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", o.Model, err)
	}
	if len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0].Message.Content) == "" {
		return "", ErrEmpty
	}
	return res.Choices[0].Message.Content, nil
}
