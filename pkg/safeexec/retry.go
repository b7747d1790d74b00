package safeexec

import (
	"context"
	"time"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/k8s"
)

// DefaultTimeout is the per-command timeout when none is configured
// (spec.md §4.5).
const DefaultTimeout = 120 * time.Second

// runWithRetry executes command via driver, retrying up to maxRetries
// times on a non-zero exit with exponential backoff 2^k seconds. A
// context-deadline timeout is never retried for the timeout itself --
// only a completed, non-zero-exit invocation triggers another attempt.
func runWithRetry(ctx context.Context, driver k8s.Driver, command string, timeout time.Duration, dryRun bool, maxRetries int) (k8s.CommandResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var result k8s.CommandResult
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err = driver.Execute(ctx, command, timeout, dryRun)
		if err != nil {
			return result, err
		}
		if result.ExitCode == 0 {
			return result, nil
		}
		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	return result, nil
}
