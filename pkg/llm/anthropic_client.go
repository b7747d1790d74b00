package llm

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	sharederrors "github.com/mmsuerkan/kubernetes-thesis/pkg/shared/errors"
)

// AnthropicClient is the primary LLM backend, selected by
// LLMConfig.Provider == "anthropic".
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	tracer      Tracer
}

// NewAnthropicClient builds a Client backed by the Anthropic Messages API.
func NewAnthropicClient(apiKey, model string, maxTokens int, temperature float64, tracer Tracer) *AnthropicClient {
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: temperature,
		tracer:      tracer,
	}
}

func (c *AnthropicClient) Chat(ctx context.Context, system, user string) (string, error) {
	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})

	c.tracer.OnChat(TraceEvent{Provider: "anthropic", Model: c.model, Duration: time.Since(start), Err: err})

	if err != nil {
		return "", sharederrors.NetworkError("anthropic chat completion", "api.anthropic.com", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
