// Package llm implements the LLM client consumed interface of spec.md §6:
// chat(system, user) -> text, plus a tracing hook. Temperature is kept low
// (0.1-0.3) for deterministic plan synthesis.
package llm

import (
	"context"
	"time"
)

// TraceEvent is emitted after every Chat call for observability, the
// "tracing hook" named in spec.md §6.
type TraceEvent struct {
	Provider string
	Model    string
	Duration time.Duration
	Err      error
}

// Tracer receives trace events; nil-safe no-op by default.
type Tracer interface {
	OnChat(event TraceEvent)
}

// NoopTracer discards trace events.
type NoopTracer struct{}

func (NoopTracer) OnChat(TraceEvent) {}

// Client is the LLM client interface the rest of the core depends on.
type Client interface {
	// Chat sends a system/user prompt pair and returns the model's text
	// response. ctx carries the call's deadline (default 60s per spec.md §5).
	Chat(ctx context.Context, system, user string) (string, error)
}
