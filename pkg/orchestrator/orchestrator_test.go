package orchestrator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmsuerkan/kubernetes-thesis/internal/config"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/k8s"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/learner"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/memory"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/observer"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/performance"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/reflector"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/safeexec"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/strategy"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/synth"
)

func TestTransition_HappyPath(t *testing.T) {
	s := StateAnalyzeError
	s = transition(s, EventProceed)
	assert.Equal(t, StateStrategySelection, s)
	s = transition(s, EventProceed)
	assert.Equal(t, StateDecideStrategy, s)
	s = transition(s, EventProceed)
	assert.Equal(t, StateExecuteFix, s)
	s = transition(s, EventProceed)
	assert.Equal(t, StateObserveOutcome, s)
	s = transition(s, EventSkipReflection)
	assert.Equal(t, StateLearnAndEvolve, s)
	s = transition(s, EventSuccess)
	assert.Equal(t, StateEnd, s)
}

func TestTransition_ReflectThenRetry(t *testing.T) {
	s := transition(StateObserveOutcome, EventShouldReflect)
	assert.Equal(t, StateReflectOnAction, s)
	s = transition(s, EventProceed)
	assert.Equal(t, StateLearnAndEvolve, s)
	s = transition(s, EventRetry)
	assert.Equal(t, StateStrategySelection, s)
}

func TestTransition_PanicsOnUndeclaredEdge(t *testing.T) {
	assert.Panics(t, func() { transition(StateEnd, EventRetry) })
}

func TestRoutePostLearning_Success(t *testing.T) {
	v := routePostLearning(true, types.ErrorClassOOMKilled, 1, 0.5, true, 5)
	assert.Equal(t, EventSuccess, v.event)
}

func TestRoutePostLearning_HardCapWins(t *testing.T) {
	v := routePostLearning(false, types.ErrorClassOOMKilled, 5, 0.9, true, 5)
	assert.Equal(t, EventHumanEscalation, v.event)
}

func TestRoutePostLearning_UnknownClassGoesDeepAnalysis(t *testing.T) {
	v := routePostLearning(false, types.ErrorClassOther, 1, 0.9, true, 5)
	assert.Equal(t, EventDeepAnalysis, v.event)
}

func TestRoutePostLearning_LowSelfAwarenessMetaReflects(t *testing.T) {
	v := routePostLearning(false, types.ErrorClassOOMKilled, 2, 0.4, true, 5)
	assert.Equal(t, EventMetaReflect, v.event)
}

func TestRoutePostLearning_RetryWhenBudgetAvailable(t *testing.T) {
	v := routePostLearning(false, types.ErrorClassOOMKilled, 1, 0.3, false, 5)
	assert.Equal(t, EventRetry, v.event)
}

type stubLLM struct{ reply string }

func (s stubLLM) Chat(_ context.Context, _, _ string) (string, error) { return s.reply, nil }

type recordingDriver struct {
	succeed bool
}

func (d *recordingDriver) Execute(_ context.Context, command string, _ time.Duration, _ bool) (k8s.CommandResult, error) {
	if d.succeed {
		return k8s.CommandResult{ExitCode: 0, Stdout: "ok"}, nil
	}
	return k8s.CommandResult{ExitCode: 1, Stderr: "boom"}, nil
}

func (d *recordingDriver) ApplyManifest(_ context.Context, _ string, _ time.Duration, _ bool) (k8s.CommandResult, error) {
	return k8s.CommandResult{ExitCode: 0}, nil
}

func newTestOrchestrator(t *testing.T, succeed bool) *Orchestrator {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	strategies := strategy.NewMemoryStore()
	episodic := memory.NewInMemoryStore()
	perf := performance.NewInMemoryTracker()

	synthLLM := stubLLM{reply: `{"backup": ["kubectl get pod web-1 -n default -o yaml"], "fix": ["kubectl delete pod web-1 -n default"], "validation": ["kubectl get pod web-1 -n default"], "rollback": []}`}
	synthesizer := synth.New(synthLLM, episodic, config.ModeCommand, nil, log)

	driver := &recordingDriver{succeed: succeed}
	executor := safeexec.New(driver, 0, time.Second, false, log)

	obs := observer.New(episodic)
	refl := reflector.New(stubLLM{reply: "I learned that retrying immediately helps. In the future, I will check image tags first."})
	learn := learner.New(strategies, episodic)

	cfg := config.OrchestratorConfig{
		RecursionLimit:              50,
		HardRetryCap:                5,
		ReflectOnSuccessProbability: 0.8,
		PreferPersistentProbability: 0.8,
		PatternDetectionThreshold:   3,
		StrategyConfidenceThreshold: 0.7,
	}

	return New(strategies, episodic, perf, synthesizer, executor, obs, refl, learn, heuristicPodTypeDetector{}, cfg, log)
}

func TestProcess_SucceedsOnFirstAttempt(t *testing.T) {
	o := newTestOrchestrator(t, true)
	result := o.Process(context.Background(), types.Incident{
		PodName:    "web-1",
		Namespace:  "default",
		ErrorClass: types.ErrorClassCrashLoopBackOff,
	})

	assert.True(t, result.Success)
	assert.False(t, result.RequiresHumanIntervention)
	assert.NotEmpty(t, result.WorkflowID)
}

func TestProcess_EscalatesAfterHardRetryCap(t *testing.T) {
	o := newTestOrchestrator(t, false)
	result := o.Process(context.Background(), types.Incident{
		PodName:    "web-2",
		Namespace:  "default",
		ErrorClass: types.ErrorClassOOMKilled,
	})

	assert.False(t, result.Success)
	assert.True(t, result.RequiresHumanIntervention)
	require.NotNil(t, result.Escalation)
	assert.LessOrEqual(t, result.Escalation.AttemptsMade, 6)
}

func TestFeedback_RecordsEpisodeAndUpdatesConfidence(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(t, true)

	s := &types.Strategy{ErrorClass: types.ErrorClassImagePullBackOff, Confidence: 0.5}
	require.NoError(t, o.strategies.Add(ctx, s))

	result := o.Feedback(ctx, FeedbackInput{
		PodName:      "web-3",
		Namespace:    "default",
		ErrorClass:   types.ErrorClassImagePullBackOff,
		StrategyUsed: s.ID,
		ExecutionResult: types.ExecutionResult{
			Success:          true,
			SuccessCount:     2,
			TotalCommands:    2,
			ExecutedCommands: []string{"kubectl delete pod web-3 -n default"},
		},
	})

	assert.True(t, result.FeedbackProcessed)
	assert.True(t, result.ReflexionUpdated)

	episodes, err := o.episodic.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, episodes, 1)
}
