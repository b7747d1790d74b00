// Package synth implements the Plan Synthesiser (spec.md §4.4): it turns
// an incident, a chosen strategy, and retrieved lessons learned into a
// Plan, in either command mode or manifest mode, with deterministic
// fallbacks when the LLM's output can't be trusted.
package synth

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mmsuerkan/kubernetes-thesis/internal/config"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/k8s"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/llm"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/memory"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/logging"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// maxFallbackImage is the emergency image substitution spec.md §4.4
// names for ImagePullBackOff/ErrImagePull.
const maxFallbackImage = "nginx:latest"

// Synthesizer is the Plan Synthesiser.
type Synthesizer struct {
	llm     llm.Client
	episodic memory.Store
	mode    config.SynthesisMode
	policy  *manifestPolicyChecker
	log     *logrus.Logger
}

// New builds a Synthesizer. policy may be nil if the OPA metadata-rule
// checker could not be constructed; manifest validation then relies only
// on successful YAML parsing.
func New(llmClient llm.Client, episodic memory.Store, mode config.SynthesisMode, policy *manifestPolicyChecker, log *logrus.Logger) *Synthesizer {
	return &Synthesizer{llm: llmClient, episodic: episodic, mode: mode, policy: policy, log: log}
}

// NewWithPolicy builds a Synthesizer and its OPA policy checker together,
// the common construction path for production wiring.
func NewWithPolicy(ctx context.Context, llmClient llm.Client, episodic memory.Store, mode config.SynthesisMode, log *logrus.Logger) (*Synthesizer, error) {
	policy, err := newManifestPolicyChecker(ctx)
	if err != nil {
		return nil, err
	}
	return New(llmClient, episodic, mode, policy, log), nil
}

// Synthesize produces a Plan for incident using strategy's actions and
// whatever lessonsLearned the Orchestrator retrieved. If lessonsLearned
// is empty, an emergency secondary retrieval is issued directly against
// Episodic Memory -- spec.md §4.4 frames this as defense against
// upstream plumbing bugs, not a normal code path.
func (s *Synthesizer) Synthesize(ctx context.Context, incident types.Incident, strategy *types.Strategy, lessonsLearned []string, podType k8s.PodType) (*types.Plan, error) {
	if len(lessonsLearned) == 0 {
		lessonsLearned = s.emergencyLessonsRetrieval(ctx, incident)
	}

	switch s.mode {
	case config.ModeManifest:
		return s.synthesizeManifest(ctx, incident, strategy, lessonsLearned)
	default:
		return s.synthesizeCommand(ctx, incident, strategy, lessonsLearned, podType)
	}
}

func (s *Synthesizer) emergencyLessonsRetrieval(ctx context.Context, incident types.Incident) []string {
	episodes, err := s.episodic.Similar(ctx, incident.ErrorClass, types.Context{"namespace": incident.Namespace}, 5)
	if err != nil {
		s.log.WithFields(logging.NewFields().Component("synth").Operation("emergency_lessons_retrieval").Err(err).Logrus()).
			Warn("emergency lessons retrieval failed")
		return nil
	}
	var lessons []string
	for _, ep := range episodes {
		lessons = append(lessons, ep.LessonsLearned...)
	}
	return lessons
}

func (s *Synthesizer) synthesizeCommand(ctx context.Context, incident types.Incident, strategy *types.Strategy, lessonsLearned []string, podType k8s.PodType) (*types.Plan, error) {
	prompt, err := llm.FormatCommandPrompt(map[string]any{
		"error_class":      string(incident.ErrorClass),
		"pod_name":         incident.PodName,
		"namespace":        incident.Namespace,
		"pod_type":         string(podType),
		"strategy_actions": actionsToString(strategy),
		"cluster_snapshot": snapshotToString(incident.ClusterSnapshot),
		"lessons_learned":  lessonsToString(lessonsLearned),
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Chat(ctx, "You are a Kubernetes remediation planner.", prompt)
	var plan *types.CommandPlan
	if err == nil {
		plan, _ = parseCommandPlan(raw)
	}
	if plan == nil {
		s.log.WithFields(logging.NewFields().Component("synth").Operation("synthesize_command").ErrorClass(string(incident.ErrorClass)).Logrus()).
			Warn("LLM command plan unparseable or unavailable, using deterministic fallback")
		plan = defaultCommandPlan(incident.ErrorClass, incident.PodName, incident.Namespace, string(podType))
	}

	return &types.Plan{CommandPlan: plan}, nil
}

func (s *Synthesizer) synthesizeManifest(ctx context.Context, incident types.Incident, strategy *types.Strategy, lessonsLearned []string) (*types.Plan, error) {
	prompt, err := llm.FormatManifestPrompt(map[string]any{
		"error_class":      string(incident.ErrorClass),
		"pod_name":         incident.PodName,
		"namespace":        incident.Namespace,
		"strategy_actions": actionsToString(strategy),
		"cluster_snapshot": snapshotToString(incident.ClusterSnapshot),
		"lessons_learned":  lessonsToString(lessonsLearned),
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Chat(ctx, "You are a Kubernetes remediation planner.", prompt)
	var plan *types.ManifestPlan
	if err == nil {
		plan, _ = s.parseManifestPlan(ctx, raw, incident.PodName, incident.Namespace)
	}
	if plan == nil {
		s.log.WithFields(logging.NewFields().Component("synth").Operation("synthesize_manifest").ErrorClass(string(incident.ErrorClass)).Logrus()).
			Warn("LLM manifest unparseable, policy-violating, or unavailable, using deterministic fallback")
		plan = defaultManifestPlan(incident.ErrorClass, incident.PodName, incident.Namespace, maxFallbackImage)
	}

	return &types.Plan{ManifestPlan: plan}, nil
}

func actionsToString(strategy *types.Strategy) string {
	if strategy == nil || len(strategy.Actions) == 0 {
		return "none specified"
	}
	return fmt.Sprintf("%v", strategy.Actions)
}

func snapshotToString(snap *types.ClusterSnapshot) string {
	if snap == nil {
		return "{}"
	}
	return fmt.Sprintf("%+v", snap)
}

func lessonsToString(lessons []string) string {
	if len(lessons) == 0 {
		return "none yet"
	}
	out := ""
	for i, l := range lessons {
		if i > 0 {
			out += "; "
		}
		out += l
	}
	return out
}
