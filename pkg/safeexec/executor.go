// Package safeexec implements the Safe Executor (spec.md §4.5): command
// validation, risk classification, retry-with-backoff, dry-run, and the
// ordered phase execution of both Plan variants.
package safeexec

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/mmsuerkan/kubernetes-thesis/internal/errors"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/k8s"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/logging"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// Executor is the Safe Executor.
type Executor struct {
	driver     k8s.Driver
	maxRetries int
	timeout    time.Duration
	dryRun     bool
	log        *logrus.Logger
}

// New builds an Executor. maxRetries and timeout of zero take spec.md
// §4.5's defaults (0 retries disabled entirely means every command runs
// once; callers pass the configured N explicitly).
func New(driver k8s.Driver, maxRetries int, timeout time.Duration, dryRun bool, log *logrus.Logger) *Executor {
	return &Executor{driver: driver, maxRetries: maxRetries, timeout: timeout, dryRun: dryRun, log: log}
}

// ExecuteCommandPlan runs phases in order backup -> fix -> validation.
// If fix fails and a rollback exists, rollback runs and validation is
// skipped (spec.md §4.5). stop_on_failure is true for backup/fix, false
// for validation/rollback.
func (e *Executor) ExecuteCommandPlan(ctx context.Context, plan *types.CommandPlan) types.ExecutionReport {
	start := time.Now()
	report := types.ExecutionReport{}

	backupResult := e.runPhase(ctx, "backup", plan.Backup, true)
	report.PerPhaseResults = append(report.PerPhaseResults, backupResult.phase)
	report.Errors = append(report.Errors, backupResult.errors...)

	fixResult := e.runPhase(ctx, "fix", plan.Fix, true)
	report.PerPhaseResults = append(report.PerPhaseResults, fixResult.phase)
	report.Errors = append(report.Errors, fixResult.errors...)
	report.FixSuccess = fixResult.phase.Success

	if !report.FixSuccess && len(plan.Rollback) > 0 {
		rollbackResult := e.runPhase(ctx, "rollback", plan.Rollback, false)
		report.PerPhaseResults = append(report.PerPhaseResults, rollbackResult.phase)
		report.Errors = append(report.Errors, rollbackResult.errors...)
		report.ValidationSuccess = false
	} else {
		validationResult := e.runPhase(ctx, "validation", plan.Validation, false)
		report.PerPhaseResults = append(report.PerPhaseResults, validationResult.phase)
		report.Errors = append(report.Errors, validationResult.errors...)
		report.ValidationSuccess = validationResult.phase.Success
	}

	e.finalize(&report, start)
	return report
}

// ExecuteManifestPlan writes the manifest to a scoped temp file, runs
// the pre-delete command, applies the manifest, runs validations, and
// removes the temp file unconditionally (spec.md §4.5).
func (e *Executor) ExecuteManifestPlan(ctx context.Context, plan *types.ManifestPlan) types.ExecutionReport {
	start := time.Now()
	report := types.ExecutionReport{}

	tmpFile, err := e.writeManifestTempFile(plan.Manifest)
	if err != nil {
		report.Errors = append(report.Errors, types.ExecutionError{Phase: "apply", Command: "write manifest", Stderr: err.Error()})
		e.finalize(&report, start)
		return report
	}
	defer os.Remove(tmpFile)

	preDeleteResult := e.runPhase(ctx, "pre_delete", []string{plan.PreDeleteCommand}, true)
	report.PerPhaseResults = append(report.PerPhaseResults, preDeleteResult.phase)
	report.Errors = append(report.Errors, preDeleteResult.errors...)

	applyResult := e.runApply(ctx, tmpFile)
	report.PerPhaseResults = append(report.PerPhaseResults, applyResult.phase)
	report.Errors = append(report.Errors, applyResult.errors...)
	report.FixSuccess = applyResult.phase.Success

	validationResult := e.runPhase(ctx, "validation", plan.ValidationCommands, false)
	report.PerPhaseResults = append(report.PerPhaseResults, validationResult.phase)
	report.Errors = append(report.Errors, validationResult.errors...)
	report.ValidationSuccess = validationResult.phase.Success

	e.finalize(&report, start)
	return report
}

func (e *Executor) writeManifestTempFile(manifest string) (string, error) {
	f, err := os.CreateTemp("", "remediation-manifest-*.yaml")
	if err != nil {
		return "", appErrors.NewDatabaseError("create temp manifest file", err)
	}
	defer f.Close()

	if _, err := f.WriteString(manifest); err != nil {
		os.Remove(f.Name())
		return "", appErrors.NewDatabaseError("write temp manifest file", err)
	}
	return filepath.Clean(f.Name()), nil
}

type phaseRun struct {
	phase  types.PhaseResult
	errors []types.ExecutionError
}

func (e *Executor) runApply(ctx context.Context, manifestPath string) phaseRun {
	start := time.Now()
	result, err := e.driver.ApplyManifest(ctx, manifestPath, e.effectiveTimeout(), e.dryRun)

	run := phaseRun{phase: types.PhaseResult{Phase: "apply", Commands: 1, Duration: time.Since(start)}}
	if err != nil || result.ExitCode != 0 {
		run.errors = append(run.errors, types.ExecutionError{Phase: "apply", Command: "apply manifest", ExitCode: result.ExitCode, Stderr: errString(err, result.Stderr)})
		return run
	}
	run.phase.Success = true
	run.phase.Successful = 1
	return run
}

// runPhase runs every command in commands through runWithRetry. When
// stopOnFailure is true, the first failed command halts the phase;
// validation and rollback phases run every command regardless.
func (e *Executor) runPhase(ctx context.Context, phase string, commands []string, stopOnFailure bool) phaseRun {
	start := time.Now()
	run := phaseRun{phase: types.PhaseResult{Phase: phase, Commands: len(commands)}}

	if len(commands) == 0 {
		run.phase.Success = true
		run.phase.Duration = time.Since(start)
		return run
	}

	allSucceeded := true
	for _, cmd := range commands {
		if _, _, err := ValidateCommand(cmd); err != nil {
			run.errors = append(run.errors, types.ExecutionError{Phase: phase, Command: cmd, Stderr: err.Error()})
			allSucceeded = false
			if stopOnFailure {
				break
			}
			continue
		}

		result, err := runWithRetry(ctx, e.driver, cmd, e.effectiveTimeout(), e.dryRun, e.maxRetries)
		if err != nil || result.ExitCode != 0 {
			run.errors = append(run.errors, types.ExecutionError{Phase: phase, Command: cmd, ExitCode: result.ExitCode, Stderr: errString(err, result.Stderr)})
			allSucceeded = false
			if stopOnFailure {
				break
			}
			continue
		}
		run.phase.Successful++
	}

	run.phase.Success = allSucceeded
	run.phase.Duration = time.Since(start)
	return run
}

func (e *Executor) effectiveTimeout() time.Duration {
	if e.timeout <= 0 {
		return DefaultTimeout
	}
	return e.timeout
}

func errString(err error, stderr string) string {
	if err != nil {
		return err.Error()
	}
	return stderr
}

func (e *Executor) finalize(report *types.ExecutionReport, start time.Time) {
	report.OverallSuccess = report.FixSuccess && report.ValidationSuccess
	report.TotalExecutionTime = time.Since(start)

	for _, p := range report.PerPhaseResults {
		report.TotalCommands += p.Commands
		report.SuccessfulCommands += p.Successful
	}
	if report.TotalCommands > 0 {
		report.SuccessRate = float64(report.SuccessfulCommands) / float64(report.TotalCommands)
	}

	e.log.WithFields(logging.NewFields().Component("safeexec").Operation("execute_plan").
		Count("total_commands", report.TotalCommands).
		Count("successful_commands", report.SuccessfulCommands).
		Duration(report.TotalExecutionTime).Logrus()).
		Info("plan execution finished")
}
