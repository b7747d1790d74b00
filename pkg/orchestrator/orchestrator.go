package orchestrator

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mmsuerkan/kubernetes-thesis/internal/config"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/k8s"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/learner"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/memory"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/observer"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/performance"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/reflector"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/safeexec"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/logging"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/strategy"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/synth"
)

// clusterSnapshotConfidence is the confidence floor an Incident carrying
// a real ClusterSnapshot is assigned, bypassing synthetic analysis
// (spec.md §6).
const clusterSnapshotConfidence = 0.95

// PodTypeDetector resolves whether a pod is standalone or
// deployment-managed. k8s.OwnerRefResolver implements this against a
// live cluster; tests and environments without cluster access can
// supply a detector backed by k8s.DetectPodTypeHeuristic alone.
type PodTypeDetector interface {
	DetectPodType(ctx context.Context, namespace, podName string) k8s.PodType
}

type heuristicPodTypeDetector struct{}

func (heuristicPodTypeDetector) DetectPodType(_ context.Context, _, podName string) k8s.PodType {
	return k8s.DetectPodTypeHeuristic(podName)
}

// Orchestrator ties the Strategy Store, Episodic Memory, Performance
// Tracker, Plan Synthesiser, Safe Executor, Observer, Reflector, and
// Learner together into the state machine of spec.md §4.9.
type Orchestrator struct {
	strategies  strategy.Store
	episodic    memory.Store
	performance performance.Tracker
	synthesizer *synth.Synthesizer
	executor    *safeexec.Executor
	observer    *observer.Observer
	reflector   *reflector.Reflector
	learner     *learner.Learner
	podTypes    PodTypeDetector
	cfg         config.OrchestratorConfig
	log         *logrus.Logger
	rng         *rand.Rand
}

// New builds an Orchestrator. A nil podTypes falls back to the string
// heuristic of k8s.DetectPodTypeHeuristic.
func New(
	strategies strategy.Store,
	episodic memory.Store,
	perf performance.Tracker,
	synthesizer *synth.Synthesizer,
	executor *safeexec.Executor,
	obs *observer.Observer,
	refl *reflector.Reflector,
	learn *learner.Learner,
	podTypes PodTypeDetector,
	cfg config.OrchestratorConfig,
	log *logrus.Logger,
) *Orchestrator {
	if podTypes == nil {
		podTypes = heuristicPodTypeDetector{}
	}
	return &Orchestrator{
		strategies:  strategies,
		episodic:    episodic,
		performance: perf,
		synthesizer: synthesizer,
		executor:    executor,
		observer:    obs,
		reflector:   refl,
		learner:     learn,
		podTypes:    podTypes,
		cfg:         cfg,
		log:         log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// attempt carries per-incident state across state-machine transitions
// that would otherwise need to be threaded through every function call.
type attempt struct {
	incident        types.Incident
	podType         k8s.PodType
	confidence      float64
	retryCount      int
	strategiesTried []string
	lessonsLearned  []string
	inMemoryPool    []*types.Strategy
	reflections     int
	strategiesNew   int
	lastObservation types.Observation
	trajectory      []float64
}

// Process runs one incident through the full analyze -> select -> execute
// -> observe -> (reflect) -> learn -> route loop, bounded by
// cfg.RecursionLimit graph transitions and cfg.HardRetryCap retries
// (spec.md §6, §4.9, §5).
func (o *Orchestrator) Process(ctx context.Context, incident types.Incident) types.Result {
	workflowID := uuid.NewString()
	start := time.Now()

	recursionLimit := o.cfg.RecursionLimit
	if recursionLimit <= 0 {
		recursionLimit = 50
	}
	hardCap := o.cfg.HardRetryCap
	if hardCap <= 0 {
		hardCap = 5
	}

	at := &attempt{incident: incident}
	at.podType = o.podTypes.DetectPodType(ctx, incident.Namespace, incident.PodName)
	at.confidence = o.analyzeConfidence(incident)

	state := StateAnalyzeError
	var lastReport types.ExecutionReport
	var lastSelection selectionResult

	for transitions := 0; transitions < recursionLimit; transitions++ {
		switch state {
		case StateAnalyzeError:
			state = transition(state, EventProceed)

		case StateStrategySelection:
			at.retryCount++
			sel, err := selectStrategy(ctx, o.strategies, at.inMemoryPool, incident.ErrorClass, types.Context(nil), o.cfg.PreferPersistentProbability, o.rng)
			if err != nil {
				o.log.WithFields(logging.NewFields().Component("orchestrator").Err(err).Logrus()).Warn("strategy store degraded, proceeding with placeholder strategy")
				sel = selectionResult{strategy: genericPlaceholder, reason: reasonGenericPlaceholder}
			}
			lastSelection = sel
			at.strategiesTried = append(at.strategiesTried, sel.strategy.ID)
			if sel.strategy.ID != "" {
				_ = o.performance.RegisterClass(ctx, sel.strategy.ID, incident.ErrorClass)
			}
			state = transition(state, EventProceed)

		case StateDecideStrategy:
			state = transition(state, EventProceed)

		case StateExecuteFix:
			report, err := o.executeFix(ctx, at, lastSelection.strategy)
			if err != nil {
				o.log.WithFields(logging.NewFields().Component("orchestrator").Err(err).Logrus()).Error("plan synthesis failed")
			}
			lastReport = report
			state = transition(state, EventProceed)

		case StateObserveOutcome:
			obs := o.observer.Observe(ctx, observer.Input{
				Report:          lastReport,
				PodStatus:       podStatusFromIncident(incident),
				PodPhase:        podPhaseFromReport(lastReport),
				Namespace:       incident.Namespace,
				ErrorClass:      incident.ErrorClass,
				IncidentContext: types.Context(nil),
				RetryCount:      at.retryCount - 1,
				ResolutionTime:  lastReport.TotalExecutionTime.Seconds(),
				At:              time.Now(),
			})
			at.lastObservation = obs

			shouldReflect := reflector.ShouldReflect(reflector.TriggerInput{
				Success:        lastReport.OverallSuccess,
				RetryCount:     at.retryCount - 1,
				IsFirstAttempt: at.retryCount == 1,
				ResolutionTime: lastReport.TotalExecutionTime.Seconds(),
			}) || obs.AnomalyDetection.UnexpectedSuccess || obs.AnomalyDetection.PatternAnomaly
			if shouldReflect {
				state = transition(state, EventShouldReflect)
			} else {
				state = transition(state, EventSkipReflection)
			}

		case StateReflectOnAction:
			o.runReflection(ctx, at, lastSelection, lastReport)
			state = transition(state, EventProceed)

		case StateLearnAndEvolve:
			o.learnAndEvolve(ctx, at, lastSelection, lastReport)

			hasPersistent, _ := o.hasPersistentStrategies(ctx, incident.ErrorClass)
			verdict := routePostLearning(lastReport.OverallSuccess, incident.ErrorClass, at.retryCount, o.reflector.SelfAwareness(), hasPersistent, hardCap)
			state = transition(state, verdict.event)

		case StateMetaReflect:
			o.runReflection(ctx, at, lastSelection, lastReport)
			if at.retryCount >= hardCap {
				state = transition(state, EventHumanEscalation)
				break
			}
			state = transition(state, EventRetryWithInsights)

		case StateDeepAnalysis:
			state = transition(state, EventProceed)

		case StateHumanEscalation:
			return o.escalate(workflowID, at, lastSelection, lastReport, start)

		case StateEnd:
			return o.finish(workflowID, at, lastSelection, lastReport, start)
		}
	}

	return o.escalate(workflowID, at, lastSelection, lastReport, start)
}

func (o *Orchestrator) analyzeConfidence(incident types.Incident) float64 {
	if incident.ClusterSnapshot != nil {
		return clusterSnapshotConfidence
	}
	return 0.5
}

func (o *Orchestrator) executeFix(ctx context.Context, at *attempt, s *types.Strategy) (types.ExecutionReport, error) {
	lessons := at.lessonsLearned
	if len(lessons) == 0 {
		if recent, err := o.episodic.Similar(ctx, at.incident.ErrorClass, types.Context(nil), 5); err == nil {
			for _, ep := range recent {
				lessons = append(lessons, ep.LessonsLearned...)
			}
		}
	}

	plan, err := o.synthesizer.Synthesize(ctx, at.incident, s, lessons, at.podType)
	if err != nil {
		return types.ExecutionReport{}, err
	}

	switch {
	case plan.CommandPlan != nil:
		report := o.executor.ExecuteCommandPlan(ctx, plan.CommandPlan)
		return report, nil
	case plan.ManifestPlan != nil:
		report := o.executor.ExecuteManifestPlan(ctx, plan.ManifestPlan)
		return report, nil
	default:
		return types.ExecutionReport{}, nil
	}
}

func (o *Orchestrator) runReflection(ctx context.Context, at *attempt, sel selectionResult, report types.ExecutionReport) {
	outcome := "failure"
	if report.OverallSuccess {
		outcome = "success"
	}
	strategyName := ""
	if sel.strategy != nil {
		strategyName = sel.strategy.ID
	}

	reflection := o.reflector.Reflect(ctx, reflector.Input{
		TriggerAction:   strategyName,
		OutcomeObserved: outcome,
		Prompt:          reflectionPrompt(at, sel, report),
		ConfidenceLevel: at.confidence,
	})
	at.reflections++
	at.lessonsLearned = append(at.lessonsLearned, reflection.Insights...)

	if !learner.IsActionable(joinInsights(reflection.Insights)) {
		return
	}
	for _, insight := range reflection.Insights {
		if !learner.IsActionable(insight) {
			continue
		}
		insightType := learner.ClassifyInsight(insight)
		if _, err := o.learner.EvolveStrategy(ctx, "", insightType, insight, at.incident.ErrorClass, reflection.StrategyModifications); err == nil {
			at.strategiesNew++
		}
	}
}

func joinInsights(insights []string) string {
	out := ""
	for i, s := range insights {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

func reflectionPrompt(at *attempt, sel selectionResult, report types.ExecutionReport) string {
	strategyName := "none"
	if sel.strategy != nil {
		strategyName = sel.strategy.ID
	}
	outcome := "failed"
	if report.OverallSuccess {
		outcome = "succeeded"
	}
	obs := at.lastObservation
	return "Pod " + at.incident.PodName + " in namespace " + at.incident.Namespace +
		" hit " + string(at.incident.ErrorClass) + ". Strategy " + strategyName +
		" " + outcome + " after " + report.TotalExecutionTime.String() +
		". Observation quality " + strconv.FormatFloat(obs.Quality, 'f', 2, 64) +
		", anomaly score " + strconv.FormatFloat(obs.AnomalyDetection.AnomalyScore, 'f', 2, 64) + "."
}

// podStatusFromIncident reports the first container status a real
// cluster snapshot carried, or a zero-value status when the incident
// was synthesised without one -- the Observer still runs, it just
// starts from an empty success-metrics axis (spec.md §4.6).
func podStatusFromIncident(incident types.Incident) types.ContainerStatus {
	if incident.ClusterSnapshot != nil && len(incident.ClusterSnapshot.ContainerStatuses) > 0 {
		return incident.ClusterSnapshot.ContainerStatuses[0]
	}
	return types.ContainerStatus{}
}

// podPhaseFromReport approximates the post-execution pod phase from the
// execution outcome when no live cluster read is available.
func podPhaseFromReport(report types.ExecutionReport) string {
	if report.OverallSuccess {
		return "Running"
	}
	return "Unknown"
}

func (o *Orchestrator) learnAndEvolve(ctx context.Context, at *attempt, sel selectionResult, report types.ExecutionReport) {
	confidenceAfter := at.confidence

	if sel.strategy != nil && sel.strategy.ID != "" {
		oldConfidence := sel.strategy.Confidence

		_ = o.strategies.RecordOutcome(ctx, sel.strategy.ID, types.Outcome{
			Success:        report.OverallSuccess,
			ResolutionTime: report.TotalExecutionTime.Seconds(),
			Status:         statusFor(report),
		})

		// spec.md §4.3: the Strategy Store's authoritative confidence
		// equals the Tracker's dynamic confidence at last update time.
		// Apply the Tracker's return value to the store before the EMA
		// below reads it back as "old", so the two formulas compose
		// instead of diverging across a stale store read.
		if dynamicConfidence, err := o.performance.Record(ctx, sel.strategy.ID, report.OverallSuccess, report.TotalExecutionTime.Seconds(), at.confidence, types.Context(nil)); err == nil {
			confidenceAfter = dynamicConfidence
			if current, gerr := o.strategies.GetByID(ctx, sel.strategy.ID); gerr == nil {
				current.Confidence = dynamicConfidence
				_ = o.strategies.Add(ctx, current)
			}
		}

		_ = o.learner.RecomputeConfidence(ctx, []string{sel.strategy.ID})

		if updated, err := o.strategies.GetByID(ctx, sel.strategy.ID); err == nil {
			confidenceAfter = updated.Confidence
			if updated.Confidence != oldConfidence {
				_ = o.strategies.RecordEvolution(ctx, types.EvolutionEntry{
					StrategyID:        sel.strategy.ID,
					Version:           updated.Version,
					ChangeType:        types.EvolutionPerformanceUpdate,
					ChangeDescription: "confidence recomputed after " + statusFor(report) + " outcome",
					OldConfidence:     oldConfidence,
					NewConfidence:     updated.Confidence,
					TriggerEvent:      "learn_and_evolve",
					Timestamp:         time.Now(),
				})
			}
		}
	}

	strategyID := ""
	if sel.strategy != nil {
		strategyID = sel.strategy.ID
	}

	// Appends this episode's own success rate to the Observer's
	// comparative-analysis trajectory for the same error class, giving
	// LearningVelocity a real improvement series instead of a synthetic
	// flat one (spec.md §4.8's "slope of the last five points").
	successSample := 0.0
	if report.OverallSuccess {
		successSample = 1.0
	}
	at.trajectory = append(append([]float64{}, at.lastObservation.ComparativeAnalysis.ImprovementTrajectory...), successSample)

	_ = o.episodic.StoreEpisode(ctx, &types.Episode{
		PodName:           at.incident.PodName,
		Namespace:         at.incident.Namespace,
		ErrorClass:        at.incident.ErrorClass,
		ActionsTaken:      []string{strategyID},
		Outcome:           types.Outcome{Success: report.OverallSuccess, ResolutionTime: report.TotalExecutionTime.Seconds(), Status: statusFor(report)},
		LessonsLearned:    at.lessonsLearned,
		ConfidenceBefore:  at.confidence,
		ConfidenceAfter:   confidenceAfter,
		ReflectionQuality: at.lastObservation.Quality,
		ResolutionTime:    report.TotalExecutionTime.Seconds(),
		InsightsGenerated: len(at.lessonsLearned),
		StrategyID:        strategyID,
		Timestamp:         time.Now(),
	})
}

func statusFor(report types.ExecutionReport) string {
	if report.OverallSuccess {
		return "resolved"
	}
	return "failed"
}

func (o *Orchestrator) hasPersistentStrategies(ctx context.Context, errClass types.ErrorClass) (bool, error) {
	strategies, err := o.strategies.FindFor(ctx, errClass, types.Context(nil))
	if err != nil {
		return false, err
	}
	return len(strategies) > 0, nil
}

func (o *Orchestrator) finish(workflowID string, at *attempt, sel selectionResult, report types.ExecutionReport, start time.Time) types.Result {
	finalStrategy := ""
	if sel.strategy != nil {
		finalStrategy = sel.strategy.ID
	}
	return types.Result{
		WorkflowID:                workflowID,
		Success:                   report.OverallSuccess,
		PodName:                   at.incident.PodName,
		FinalStrategy:             finalStrategy,
		ResolutionTimeSeconds:     time.Since(start).Seconds(),
		RequiresHumanIntervention: false,
		Summary: types.ResultSummary{
			ReflectionsPerformed: at.reflections,
			StrategiesLearned:    at.strategiesNew,
			SelfAwarenessLevel:   o.reflector.SelfAwareness(),
			LearningVelocity:     learner.LearningVelocity(learningTrajectory(at)),
			UsedRealClusterData:  at.incident.ClusterSnapshot != nil,
		},
	}
}

func (o *Orchestrator) escalate(workflowID string, at *attempt, sel selectionResult, report types.ExecutionReport, start time.Time) types.Result {
	finalStrategy := ""
	if sel.strategy != nil {
		finalStrategy = sel.strategy.ID
	}
	lastErr := ""
	if len(report.Errors) > 0 {
		lastErr = report.Errors[len(report.Errors)-1].Stderr
	}
	return types.Result{
		WorkflowID:                workflowID,
		Success:                   false,
		PodName:                   at.incident.PodName,
		FinalStrategy:             finalStrategy,
		ResolutionTimeSeconds:     time.Since(start).Seconds(),
		RequiresHumanIntervention: true,
		Summary: types.ResultSummary{
			ReflectionsPerformed: at.reflections,
			StrategiesLearned:    at.strategiesNew,
			SelfAwarenessLevel:   o.reflector.SelfAwareness(),
			LearningVelocity:     learner.LearningVelocity(learningTrajectory(at)),
			UsedRealClusterData:  at.incident.ClusterSnapshot != nil,
		},
		Escalation: &types.EscalationContext{
			Reason:          "remediation loop exhausted its retry policy",
			AttemptsMade:    at.retryCount,
			StrategiesTried: at.strategiesTried,
			LastError:       lastErr,
			Summary:         "incident " + at.incident.PodName + " requires human intervention after " + strconv.Itoa(at.retryCount) + " attempts",
		},
	}
}

// learningTrajectory returns the per-incident success-rate trajectory
// learnAndEvolve built (the Observer's same-class comparative history
// plus this episode's own outcome, spec.md §4.8's Open-Questions
// resolution). Incidents that never reach learn_and_evolve (escalated
// before a strategy was ever tried) fall back to a flat two-point
// series so LearningVelocity still has at least two points to slope.
func learningTrajectory(at *attempt) []float64 {
	switch len(at.trajectory) {
	case 0:
		return []float64{at.confidence, at.confidence}
	case 1:
		return []float64{at.confidence, at.trajectory[0]}
	default:
		return at.trajectory
	}
}
