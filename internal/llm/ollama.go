package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/sirupsen/logrus"
)

// OllamaProvider calls a local Ollama server
type OllamaProvider struct {
	client   *api.Client
	settings Settings
}

var _ Provider = (*OllamaProvider)(nil)

func NewOllamaProvider(baseURL string, settings Settings) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
	}

	return &OllamaProvider{
		client:   api.NewClient(u, http.DefaultClient),
		settings: settings,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return fmt.Sprintf("ollama (%s)", p.settings.Model)
}

func (p *OllamaProvider) Complete(ctx context.Context, req Request) (string, error) {
	var messages []api.Message
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

	stream := false
	chatReq := &api.ChatRequest{
		Model:    p.settings.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": p.settings.Temperature,
			"num_predict": p.settings.MaxTokens,
		},
	}
	if req.JSON {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	var content strings.Builder
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama API error: %w", err)
	}

	logrus.Debugf("ollama response length: %d chars", content.Len())
	return content.String(), nil
}
