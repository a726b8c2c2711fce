package llm

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"historia-diaria/internal/usecase/generate"
)

// OpenAI calls the Chat Completions API. The persona instruction becomes the
// system message and model turns become assistant messages.
type OpenAI struct {
	client *openai.Client
	call   *caller
}

// NewOpenAI creates an OpenAI adapter.
func NewOpenAI(opts Options) (*OpenAI, error) {
	call, err := newCaller("openai", opts)
	if err != nil {
		return nil, err
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), call: call}, nil
}

// Name implements generate.Provider.
func (o *OpenAI) Name() string { return "openai" }

// Generate implements generate.Provider.
func (o *OpenAI) Generate(ctx context.Context, req generate.Request) (string, error) {
	return o.call.do(ctx, req.Model, func(ctx context.Context) (string, error) {
		system, turns := splitPreamble(req.Preamble)

		messages := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
		if system != "" {
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
		}
		for _, t := range turns {
			role := openai.ChatMessageRoleUser
			if t.Role == generate.RoleModel {
				role = openai.ChatMessageRoleAssistant
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text})
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       req.Model,
			Messages:    messages,
			MaxTokens:   int(req.MaxOutputTokens),
			Temperature: req.Temperature,
		})
		if err != nil {
			return "", o.call.classify(req.Model, openAIStatus(err), err)
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
