package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider talks to OpenAI and OpenAI-compatible endpoints such as Nemotron
type OpenAIProvider struct {
	name     string
	client   *openai.Client
	settings Settings
	jsonMode bool
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider; baseURL overrides the OpenAI endpoint when set
func NewOpenAIProvider(name, apiKey, baseURL string, settings Settings, jsonMode bool) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenAIProvider{
		name:     name,
		client:   openai.NewClientWithConfig(clientConfig),
		settings: settings,
		jsonMode: jsonMode,
	}
}

func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("%s (%s)", p.name, p.settings.Model)
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       p.settings.Model,
		Messages:    messages,
		MaxTokens:   p.settings.MaxTokens,
		Temperature: float32(p.settings.Temperature),
	}
	if req.JSON && p.jsonMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", p.name)
	}

	content := resp.Choices[0].Message.Content
	logrus.Debugf("%s response length: %d chars", p.name, len(content))
	return content, nil
}
