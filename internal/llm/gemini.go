package llm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// GeminiProvider calls Google Gemini through the genai SDK
type GeminiProvider struct {
	client   *genai.Client
	settings Settings
}

var _ Provider = (*GeminiProvider)(nil)

func NewGeminiProvider(ctx context.Context, apiKey string, settings Settings) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client error: %w", err)
	}

	return &GeminiProvider{client: client, settings: settings}, nil
}

func (p *GeminiProvider) Name() string {
	return fmt.Sprintf("gemini (%s)", p.settings.Model)
}

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	temperature := float32(p.settings.Temperature)
	genConfig := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		genConfig.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.settings.Model, genai.Text(req.Prompt), genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	content := resp.Text()
	logrus.Debugf("gemini response length: %d chars", len(content))
	return content, nil
}
