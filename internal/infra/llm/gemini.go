package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"historia-diaria/internal/usecase/generate"
)

// Gemini calls the Gemini API. The preamble is sent as chat history and the
// prompt as the final user turn.
type Gemini struct {
	client *genai.Client
	call   *caller
}

// NewGemini creates a Gemini adapter.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	call, err := newCaller("gemini", opts)
	if err != nil {
		return nil, err
	}

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, call: call}, nil
}

// Name implements generate.Provider.
func (g *Gemini) Name() string { return "gemini" }

// Generate implements generate.Provider.
func (g *Gemini) Generate(ctx context.Context, req generate.Request) (string, error) {
	return g.call.do(ctx, req.Model, func(ctx context.Context) (string, error) {
		cfg := &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(req.Temperature),
			MaxOutputTokens: req.MaxOutputTokens,
		}
		chat, err := g.client.Chats.Create(ctx, req.Model, cfg, geminiHistory(req.Preamble))
		if err != nil {
			return "", g.call.classify(req.Model, 0, err)
		}
		resp, err := chat.SendMessage(ctx, genai.Part{Text: req.Prompt})
		if err != nil {
			return "", g.call.classify(req.Model, geminiStatus(err), err)
		}
		return resp.Text(), nil
	})
}

func geminiHistory(turns []generate.Turn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == generate.RoleModel {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(t.Text, role))
	}
	return history
}

func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
