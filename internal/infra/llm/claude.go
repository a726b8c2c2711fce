package llm

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"historia-diaria/internal/usecase/generate"
)

// Claude calls the Anthropic Messages API. The persona instruction becomes
// the system prompt.
type Claude struct {
	client anthropic.Client
	call   *caller
}

// NewClaude creates a Claude adapter. SDK level retries are disabled; the
// invoker owns the retry policy.
func NewClaude(opts Options) (*Claude, error) {
	call, err := newCaller("claude", opts)
	if err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Claude{client: anthropic.NewClient(reqOpts...), call: call}, nil
}

// Name implements generate.Provider.
func (c *Claude) Name() string { return "claude" }

// Generate implements generate.Provider.
func (c *Claude) Generate(ctx context.Context, req generate.Request) (string, error) {
	return c.call.do(ctx, req.Model, func(ctx context.Context) (string, error) {
		system, turns := splitPreamble(req.Preamble)

		messages := make([]anthropic.MessageParam, 0, len(turns)+1)
		for _, t := range turns {
			if t.Role == generate.RoleModel {
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
				continue
			}
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(req.Model),
			MaxTokens:   int64(req.MaxOutputTokens),
			Temperature: anthropic.Float(float64(req.Temperature)),
			Messages:    messages,
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", c.call.classify(req.Model, claudeStatus(err), err)
		}

		var text string
		for _, block := range message.Content {
			if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
				text += tb.Text
			}
		}
		return text, nil
	})
}

func claudeStatus(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// splitPreamble returns the first user turn as a system instruction and the
// remaining turns, without leading model turns.
func splitPreamble(turns []generate.Turn) (string, []generate.Turn) {
	if len(turns) == 0 || turns[0].Role != generate.RoleUser {
		return "", dropLeadingModelTurns(turns)
	}
	return turns[0].Text, dropLeadingModelTurns(turns[1:])
}

func dropLeadingModelTurns(turns []generate.Turn) []generate.Turn {
	for len(turns) > 0 && turns[0].Role == generate.RoleModel {
		turns = turns[1:]
	}
	return turns
}
