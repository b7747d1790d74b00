package synth

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmsuerkan/kubernetes-thesis/internal/config"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/k8s"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/memory"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

type stubLLM struct {
	response string
	err      error
}

func (s stubLLM) Chat(ctx context.Context, system, user string) (string, error) {
	return s.response, s.err
}

func testIncident() types.Incident {
	return types.Incident{PodName: "nginx-test", Namespace: "default", ErrorClass: types.ErrorClassImagePullBackOff}
}

func TestSynthesizeCommand_ParsesValidLLMOutput(t *testing.T) {
	llmOut := `Here is the plan:
{"backup": ["kubectl get pod nginx-test -n default -o yaml"], "fix": ["kubectl delete pod nginx-test -n default"], "validation": ["kubectl get pod nginx-test -n default"], "rollback": []}
Let me know if you need anything else.`

	s := New(stubLLM{response: llmOut}, memory.NewInMemoryStore(), config.ModeCommand, nil, logrus.New())
	plan, err := s.Synthesize(context.Background(), testIncident(), &types.Strategy{}, nil, k8s.PodTypeStandalone)

	require.NoError(t, err)
	require.NotNil(t, plan.CommandPlan)
	assert.Contains(t, plan.CommandPlan.Fix[0], "delete pod")
}

func TestSynthesizeCommand_FallsBackOnUnparseableOutput(t *testing.T) {
	s := New(stubLLM{response: "not json at all"}, memory.NewInMemoryStore(), config.ModeCommand, nil, logrus.New())
	plan, err := s.Synthesize(context.Background(), testIncident(), &types.Strategy{}, nil, k8s.PodTypeStandalone)

	require.NoError(t, err)
	require.NotNil(t, plan.CommandPlan)
	assert.NotEmpty(t, plan.CommandPlan.Fix, "deterministic fallback plan should still populate fix commands")
}

func TestSynthesizeCommand_StandaloneNeverPatchesDeployment(t *testing.T) {
	s := New(stubLLM{err: assertErr{}}, memory.NewInMemoryStore(), config.ModeCommand, nil, logrus.New())
	plan, err := s.Synthesize(context.Background(), testIncident(), &types.Strategy{}, nil, k8s.PodTypeStandalone)

	require.NoError(t, err)
	for _, cmd := range plan.CommandPlan.Fix {
		assert.NotContains(t, cmd, "patch deployment")
	}
}

func TestSynthesizeCommand_DeploymentManagedNeverDeletesPodDirectly(t *testing.T) {
	s := New(stubLLM{err: assertErr{}}, memory.NewInMemoryStore(), config.ModeCommand, nil, logrus.New())
	plan, err := s.Synthesize(context.Background(), testIncident(), &types.Strategy{}, nil, k8s.PodTypeDeploymentManaged)

	require.NoError(t, err)
	for _, cmd := range plan.CommandPlan.Fix {
		assert.NotContains(t, cmd, "kubectl patch deployment")
		assert.NotContains(t, cmd, "kubectl delete pod")
	}
}

func TestSynthesizeManifest_FallsBackOnUnparseableOutput(t *testing.T) {
	s := New(stubLLM{response: ""}, memory.NewInMemoryStore(), config.ModeManifest, nil, logrus.New())
	plan, err := s.Synthesize(context.Background(), testIncident(), &types.Strategy{}, nil, k8s.PodTypeStandalone)

	require.NoError(t, err)
	require.NotNil(t, plan.ManifestPlan)
	assert.Contains(t, plan.ManifestPlan.Manifest, "kind: Pod")
}

func TestSynthesizeManifest_ParsesFencedYAML(t *testing.T) {
	llmOut := "Here is the manifest:\n```yaml\napiVersion: v1\nkind: Pod\nmetadata:\n  name: nginx-test\n  namespace: default\nspec:\n  containers:\n    - name: nginx-test\n      image: nginx:latest\n```\n"

	s := New(stubLLM{response: llmOut}, memory.NewInMemoryStore(), config.ModeManifest, nil, logrus.New())
	plan, err := s.Synthesize(context.Background(), testIncident(), &types.Strategy{}, nil, k8s.PodTypeStandalone)

	require.NoError(t, err)
	require.NotNil(t, plan.ManifestPlan)
	assert.Contains(t, plan.ManifestPlan.Manifest, "kind: Pod")
	assert.Contains(t, plan.ManifestPlan.PreDeleteCommand, "kubectl delete pod")
}

func TestEmergencyLessonsRetrieval_UsedWhenNoneProvided(t *testing.T) {
	ctx := context.Background()
	episodic := memory.NewInMemoryStore()
	require.NoError(t, episodic.StoreEpisode(ctx, &types.Episode{
		ErrorClass:     types.ErrorClassImagePullBackOff,
		Context:        types.Context{"namespace": "default"},
		LessonsLearned: []string{"always check image tag spelling"},
	}))

	s := New(stubLLM{response: "garbage"}, episodic, config.ModeCommand, nil, logrus.New())
	_, err := s.Synthesize(ctx, testIncident(), &types.Strategy{}, nil, k8s.PodTypeStandalone)
	require.NoError(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "llm unavailable" }
