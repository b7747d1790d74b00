package safeexec

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/k8s"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

type fakeDriver struct {
	results map[string]k8s.CommandResult
	applyResult k8s.CommandResult
	calls   []string
}

func (f *fakeDriver) Execute(ctx context.Context, command string, timeout time.Duration, dryRun bool) (k8s.CommandResult, error) {
	f.calls = append(f.calls, command)
	if r, ok := f.results[command]; ok {
		return r, nil
	}
	return k8s.CommandResult{ExitCode: 0}, nil
}

func (f *fakeDriver) ApplyManifest(ctx context.Context, manifestPath string, timeout time.Duration, dryRun bool) (k8s.CommandResult, error) {
	f.calls = append(f.calls, "apply:"+manifestPath)
	return f.applyResult, nil
}

func TestValidateCommand_RejectsEmpty(t *testing.T) {
	_, _, err := ValidateCommand("")
	assert.Error(t, err)
}

func TestValidateCommand_RejectsNonClusterCLI(t *testing.T) {
	_, _, err := ValidateCommand("rm -rf /")
	assert.Error(t, err)
}

func TestValidateCommand_RejectsForbiddenOperations(t *testing.T) {
	forbidden := []string{
		"kubectl delete namespace prod",
		"kubectl delete node worker-1",
		"kubectl delete persistentvolume pv-1",
		"kubectl delete clusterrole admin",
		"kubectl delete clusterrolebinding admin-binding",
		"kubectl delete customresourcedefinition foo.example.com",
	}
	for _, cmd := range forbidden {
		_, _, err := ValidateCommand(cmd)
		assert.Error(t, err, cmd)
	}
}

func TestValidateCommand_RiskTiers(t *testing.T) {
	cases := []struct {
		cmd  string
		tier RiskTier
	}{
		{"kubectl delete deployment nginx", RiskHigh},
		{"kubectl scale deployment nginx --replicas=0", RiskHigh},
		{"kubectl exec -it nginx -- sh", RiskHigh},
		{"kubectl delete pod nginx-abc", RiskMedium},
		{"kubectl patch deployment nginx", RiskMedium},
		{"kubectl get pods", RiskLow},
		{"kubectl describe pod nginx", RiskLow},
	}
	for _, tc := range cases {
		tier, _, err := ValidateCommand(tc.cmd)
		require.NoError(t, err, tc.cmd)
		assert.Equal(t, tc.tier, tier, tc.cmd)
	}
}

func TestValidateCommand_DangerousCharWarning(t *testing.T) {
	_, warnings, err := ValidateCommand("kubectl get pods | grep foo")
	require.NoError(t, err)
	assert.Contains(t, warnings, "|")
}

func TestExecuteCommandPlan_AllPhasesSucceed(t *testing.T) {
	driver := &fakeDriver{results: map[string]k8s.CommandResult{}}
	exec := New(driver, 0, time.Second, false, logrus.New())

	plan := &types.CommandPlan{
		Backup:     []string{"kubectl get pod nginx -n default -o yaml"},
		Fix:        []string{"kubectl delete pod nginx -n default"},
		Validation: []string{"kubectl get pod nginx -n default"},
		Rollback:   []string{"kubectl apply -f backup.yaml"},
	}

	report := exec.ExecuteCommandPlan(context.Background(), plan)
	assert.True(t, report.OverallSuccess)
	assert.True(t, report.FixSuccess)
	assert.True(t, report.ValidationSuccess)
	assert.Equal(t, 3, report.TotalCommands)
	assert.Equal(t, 3, report.SuccessfulCommands)
}

func TestExecuteCommandPlan_FixFailureTriggersRollbackAndSkipsValidation(t *testing.T) {
	driver := &fakeDriver{results: map[string]k8s.CommandResult{
		"kubectl delete pod nginx -n default": {ExitCode: 1, Stderr: "not found"},
	}}
	exec := New(driver, 0, time.Second, false, logrus.New())

	plan := &types.CommandPlan{
		Backup:     []string{"kubectl get pod nginx -n default -o yaml"},
		Fix:        []string{"kubectl delete pod nginx -n default"},
		Validation: []string{"kubectl get pod nginx -n default"},
		Rollback:   []string{"kubectl apply -f backup.yaml"},
	}

	report := exec.ExecuteCommandPlan(context.Background(), plan)
	assert.False(t, report.FixSuccess)
	assert.False(t, report.OverallSuccess)

	var ranValidation bool
	for _, call := range driver.calls {
		if call == "kubectl get pod nginx -n default" {
			ranValidation = true
		}
	}
	assert.False(t, ranValidation, "validation should be skipped when rollback runs")

	var ranRollback bool
	for _, call := range driver.calls {
		if call == "kubectl apply -f backup.yaml" {
			ranRollback = true
		}
	}
	assert.True(t, ranRollback)
}

func TestExecuteCommandPlan_InvalidCommandRecordsError(t *testing.T) {
	driver := &fakeDriver{results: map[string]k8s.CommandResult{}}
	exec := New(driver, 0, time.Second, false, logrus.New())

	plan := &types.CommandPlan{
		Fix: []string{"rm -rf /"},
	}

	report := exec.ExecuteCommandPlan(context.Background(), plan)
	assert.False(t, report.FixSuccess)
	require.NotEmpty(t, report.Errors)
	assert.Equal(t, "fix", report.Errors[0].Phase)
}

func TestExecuteManifestPlan_CleansUpTempFile(t *testing.T) {
	driver := &fakeDriver{applyResult: k8s.CommandResult{ExitCode: 0}}
	exec := New(driver, 0, time.Second, false, logrus.New())

	plan := &types.ManifestPlan{
		Manifest:           "apiVersion: v1\nkind: Pod\n",
		PreDeleteCommand:   "kubectl delete pod nginx -n default --ignore-not-found",
		ValidationCommands: []string{"kubectl get pod nginx -n default"},
	}

	report := exec.ExecuteManifestPlan(context.Background(), plan)
	assert.True(t, report.FixSuccess)
	assert.True(t, report.ValidationSuccess)
	assert.True(t, report.OverallSuccess)
}

func TestDryRunBypassesExecution(t *testing.T) {
	driver := &fakeDriver{}
	result, err := runWithRetry(context.Background(), driver, "kubectl get pods", time.Second, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}
