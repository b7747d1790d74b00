package orchestrator

import (
	"context"
	"strconv"
	"time"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// FeedbackInput is the caller-supplied observation spec.md §6's
// feedback() operation accepts in place of running the loop itself.
type FeedbackInput struct {
	WorkflowID      string
	PodName         string
	Namespace       string
	ErrorClass      types.ErrorClass
	StrategyUsed    string
	ExecutionResult types.ExecutionResult
	Timestamp       time.Time
}

// Feedback records an externally-executed remediation as a Performance
// Sample and an Episode derived solely from the caller's report, without
// re-running analyze/execute (spec.md §6).
func (o *Orchestrator) Feedback(ctx context.Context, in FeedbackInput) types.FeedbackResult {
	success := in.ExecutionResult.Success
	resolutionTime := 0.0

	var newConfidence float64
	if in.StrategyUsed != "" {
		var err error
		newConfidence, err = o.performance.Record(ctx, in.StrategyUsed, success, resolutionTime, 0.5, types.Context(nil))
		if err == nil {
			_ = o.strategies.RecordOutcome(ctx, in.StrategyUsed, types.Outcome{
				Success:        success,
				ResolutionTime: resolutionTime,
				Status:         feedbackStatus(in.ExecutionResult),
			})
			_ = o.learner.RecomputeConfidence(ctx, []string{in.StrategyUsed})
		}
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_ = o.episodic.StoreEpisode(ctx, &types.Episode{
		PodName:      in.PodName,
		Namespace:    in.Namespace,
		ErrorClass:   in.ErrorClass,
		ActionsTaken: in.ExecutionResult.ExecutedCommands,
		Outcome: types.Outcome{
			Success:        success,
			ResolutionTime: resolutionTime,
			Status:         feedbackStatus(in.ExecutionResult),
		},
		StrategyID: in.StrategyUsed,
		Timestamp:  ts,
	})

	return types.FeedbackResult{
		FeedbackProcessed:         true,
		ReflexionUpdated:          true,
		StrategyConfidenceUpdated: newConfidence,
		LearningSummary:           "recorded " + strconv.Itoa(in.ExecutionResult.SuccessCount) + "/" + strconv.Itoa(in.ExecutionResult.TotalCommands) + " successful commands for " + in.PodName,
	}
}

func feedbackStatus(result types.ExecutionResult) string {
	switch {
	case result.Success:
		return "resolved"
	case result.PartialSuccess:
		return "partial"
	default:
		return "failed"
	}
}
