package k8s

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return log
}

func TestKubectlDriver_DryRun(t *testing.T) {
	d := NewKubectlDriver("kubectl", "", testLogger())

	result, err := d.Execute(context.Background(), "kubectl delete pod nginx-test -n default", time.Second, true)
	assert.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "dry-run:")
}

func TestKubectlDriver_EmptyCommand(t *testing.T) {
	d := NewKubectlDriver("kubectl", "", testLogger())

	result, err := d.Execute(context.Background(), "", time.Second, false)
	assert.NoError(t, err)
	assert.Equal(t, CommandResult{}, result)
}

func TestKubectlDriver_ApplyManifest_DryRun(t *testing.T) {
	d := NewKubectlDriver("kubectl", "my-context", testLogger())

	result, err := d.ApplyManifest(context.Background(), "/tmp/manifest.yaml", time.Second, true)
	assert.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestDetectPodTypeHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		podName  string
		expected PodType
	}{
		{"standalone simple name", "nginx-test", PodTypeStandalone},
		{"deployment-managed replicaset-style name", "api-7f9c8b-xkjdq", PodTypeDeploymentManaged},
		{"two parts only", "web-app", PodTypeStandalone},
		{"three parts but short suffix", "web-app-1", PodTypeStandalone},
		{"three parts, non-alphanumeric suffix", "web-app-xk_jd", PodTypeStandalone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPodTypeHeuristic(tt.podName))
		})
	}
}
