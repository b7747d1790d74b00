package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	sharederrors "github.com/mmsuerkan/kubernetes-thesis/pkg/shared/errors"
)

// bedrockRequest is the Anthropic-on-Bedrock request envelope.
type bedrockRequest struct {
	AnthropicVersion string               `json:"anthropic_version"`
	MaxTokens        int                  `json:"max_tokens"`
	Temperature      float64              `json:"temperature"`
	System           string               `json:"system"`
	Messages         []bedrockMessage     `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// BedrockClient is a secondary/failover LLM backend selected by
// LLMConfig.Provider == "bedrock", used when the primary Anthropic API is
// degraded (spec.md §6's LLM client is provider-agnostic by design).
type BedrockClient struct {
	runtime     *bedrockruntime.Client
	modelID     string
	maxTokens   int
	temperature float64
	tracer      Tracer
}

// NewBedrockClient builds a Client backed by AWS Bedrock's InvokeModel API.
func NewBedrockClient(ctx context.Context, modelID string, maxTokens int, temperature float64, tracer Tracer) (*BedrockClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, sharederrors.ConfigurationError("bedrock", err.Error())
	}
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &BedrockClient{
		runtime:     bedrockruntime.NewFromConfig(cfg),
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		tracer:      tracer,
	}, nil
}

func (c *BedrockClient) Chat(ctx context.Context, system, user string) (string, error) {
	start := time.Now()

	payload, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		System:           system,
		Messages:         []bedrockMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", sharederrors.ParseError("bedrock request", "JSON", err)
	}

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		ContentType: ptr("application/json"),
	})

	c.tracer.OnChat(TraceEvent{Provider: "bedrock", Model: c.modelID, Duration: time.Since(start), Err: err})

	if err != nil {
		return "", sharederrors.NetworkError("bedrock invoke model", c.modelID, err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", sharederrors.ParseError("bedrock response", "JSON", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

func ptr(s string) *string { return &s }
