package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	appErrors "github.com/mmsuerkan/kubernetes-thesis/internal/errors"
	"github.com/mmsuerkan/kubernetes-thesis/internal/config"
)

// NewClient builds the provider-specific Client named by cfg.Provider,
// wrapped in a circuit breaker so a degraded LLM provider trips into a
// StoreUnavailable-style degraded path instead of hanging the orchestrator
// loop (spec.md §5's LLM suspension points; §7's StoreUnavailable model
// extends naturally to "LLM unavailable").
func NewClient(cfg config.LLMConfig, tracer Tracer) (Client, error) {
	var inner Client
	var err error

	switch cfg.Provider {
	case "anthropic":
		inner = NewAnthropicClient(cfg.APIKey(), cfg.Model, cfg.MaxTokens, cfg.Temperature, tracer)
	case "bedrock":
		inner, err = NewBedrockClient(context.Background(), cfg.Model, cfg.MaxTokens, cfg.Temperature, tracer)
		if err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.NewFatalConfigurationError("unsupported LLM provider: " + cfg.Provider)
	}

	return newBreakerClient(inner, cfg.Timeout), nil
}

// breakerClient wraps a Client with a gobreaker circuit breaker.
type breakerClient struct {
	inner   Client
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func newBreakerClient(inner Client, timeout time.Duration) *breakerClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-client",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &breakerClient{inner: inner, cb: cb, timeout: timeout}
}

func (c *breakerClient) Chat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.inner.Chat(ctx, system, user)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", appErrors.NewStoreUnavailableError("llm", err)
		}
		return "", appErrors.NewTransientExecutionError("llm chat failed", err)
	}
	return result.(string), nil
}
