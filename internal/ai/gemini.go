package ai

import (
	"context"
	"errors"
	"math/rand/v2"

	"google.golang.org/genai"

	appErr "github.com/logicflow/engine/pkg/errors"
)

// Gemini is a Generator backed by the Gemini API. Each call uses one of the
// configured API keys at random.
type Gemini struct {
	clients []*genai.Client
}

var _ Generator = (*Gemini)(nil)

// NewGemini opens one client per API key.
func NewGemini(ctx context.Context, apiKeys []string) (*Gemini, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("gemini: no API keys configured")
	}
	g := &Gemini{clients: make([]*genai.Client, 0, len(apiKeys))}
	for _, key := range apiKeys {
		c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
		if err != nil {
			return nil, err
		}
		g.clients = append(g.clients, c)
	}
	return g, nil
}

func (g *Gemini) Generate(ctx context.Context, model, prompt string) (string, error) {
	c := g.clients[rand.IntN(len(g.clients))]
	resp, err := c.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// Disabled stands in for a provider when no API key is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, string, string) (string, error) {
	return "", appErr.New(appErr.CodeUnavailable, "AI features are not configured")
}
