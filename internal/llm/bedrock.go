package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// BedrockProvider calls Claude models hosted on AWS Bedrock
type BedrockProvider struct {
	client   *bedrockruntime.Client
	settings Settings
}

var _ Provider = (*BedrockProvider)(nil)

// NewBedrockProvider loads AWS credentials from the environment or IAM role
func NewBedrockProvider(ctx context.Context, region string, settings Settings) (*BedrockProvider, error) {
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockProvider{
		client:   bedrockruntime.NewFromConfig(cfg),
		settings: settings,
	}, nil
}

func (p *BedrockProvider) Name() string {
	return fmt.Sprintf("bedrock (%s)", p.settings.Model)
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *BedrockProvider) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		System:           req.System,
		Messages:         []bedrockMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:        p.settings.MaxTokens,
		Temperature:      p.settings.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.settings.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock API error: %w", err)
	}

	var decoded bedrockResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode Bedrock response: %w", err)
	}

	var content strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return "", fmt.Errorf("bedrock returned no content")
	}

	logrus.Debugf("bedrock response length: %d chars", content.Len())
	return content.String(), nil
}
