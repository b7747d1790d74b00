package k8s

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/logging"
)

// KubectlDriver shells out to the kubectl CLI, mirroring the spec's framing
// of the cluster driver as a string-command executor rather than a typed
// client call (Design Notes §9). Execute is wrapped in a circuit breaker
// (spec.md §5's cluster-driver suspension point) so a cluster that's
// consistently failing trips into a fast-failing open state instead of
// letting every incident pay the full command timeout.
type KubectlDriver struct {
	CLIPath string
	Context string
	log     *logrus.Logger
	cb      *gobreaker.CircuitBreaker
}

// NewKubectlDriver builds a Driver backed by the kubectl binary at cliPath.
func NewKubectlDriver(cliPath, kubeContext string, log *logrus.Logger) *KubectlDriver {
	if cliPath == "" {
		cliPath = "kubectl"
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kubectl-driver",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &KubectlDriver{CLIPath: cliPath, Context: kubeContext, log: log, cb: cb}
}

func (d *KubectlDriver) Execute(ctx context.Context, command string, timeout time.Duration, dryRun bool) (CommandResult, error) {
	fields := logging.NewFields().Component("kubectl_driver").Operation("execute")

	if dryRun {
		d.log.WithFields(fields.Logrus()).WithField("command", command).Info("dry-run: skipping command execution")
		return CommandResult{ExitCode: 0, Stdout: "dry-run: " + command}, nil
	}

	result, err := d.cb.Execute(func() (interface{}, error) {
		return d.execute(ctx, command, timeout)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			d.log.WithFields(fields.Logrus()).WithField("command", command).Warn("kubectl circuit breaker open, skipping execution")
			return CommandResult{}, err
		}
		return result.(CommandResult), err
	}
	return result.(CommandResult), nil
}

func (d *KubectlDriver) execute(ctx context.Context, command string, timeout time.Duration) (CommandResult, error) {
	tokens := strings.Fields(command)
	if len(tokens) == 0 {
		return CommandResult{}, nil
	}

	args := tokens[1:]
	if d.Context != "" {
		args = append([]string{"--context", d.Context}, args...)
	}

	childCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(childCtx, d.resolveBinary(tokens[0]), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	result := CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		// Timeout or failed to start; still report, caller decides retry.
		result.ExitCode = -1
		result.Stderr = strings.TrimSpace(result.Stderr + " " + err.Error())
		return result, err
	}

	result.ExitCode = 0
	return result, nil
}

func (d *KubectlDriver) ApplyManifest(ctx context.Context, manifestPath string, timeout time.Duration, dryRun bool) (CommandResult, error) {
	cmd := d.CLIPath + " apply -f " + manifestPath
	if d.Context != "" {
		cmd = d.CLIPath + " --context " + d.Context + " apply -f " + manifestPath
	}
	return d.Execute(ctx, cmd, timeout, dryRun)
}

// resolveBinary ignores the token typed by the caller (enforced elsewhere
// to equal the configured CLI) and always invokes the configured binary,
// so a relocated kubectl install doesn't require rewriting every plan.
func (d *KubectlDriver) resolveBinary(leadingToken string) string {
	if d.CLIPath != "" {
		return d.CLIPath
	}
	return leadingToken
}
