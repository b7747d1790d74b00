// Package observer implements the Observer (spec.md §4.6): the
// five-axis post-execution measurement the Reflector and Learner
// consume to judge how a remediation attempt actually went.
package observer

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/memory"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// trajectoryWindow is the sliding window Comparative Analysis reports
// an improvement trajectory over (spec.md §4.6).
const trajectoryWindow = 5

// Observer produces Observations from execution results.
type Observer struct {
	episodic memory.Store
}

// New builds an Observer.
func New(episodic memory.Store) *Observer {
	return &Observer{episodic: episodic}
}

// Input bundles everything Observe needs: the execution report, the
// post-execution cluster snapshot for the pod, retry count, and how
// many seconds the whole attempt took.
type Input struct {
	Report          types.ExecutionReport
	PodStatus       types.ContainerStatus
	PodPhase        string
	Namespace       string
	ErrorClass      types.ErrorClass
	IncidentContext types.Context
	RetryCount      int
	ResolutionTime  float64
	At              time.Time
}

// Observe computes all five axes and the overall data-completeness
// quality score.
func (o *Observer) Observe(ctx context.Context, in Input) types.Observation {
	obs := types.Observation{
		SuccessMetrics:      successMetrics(in),
		Performance:         performanceAxis(in),
		ContextFactors:      contextFactors(in),
		ComparativeAnalysis: o.comparativeAnalysis(ctx, in),
		AnomalyDetection:    anomalyDetection(in),
	}
	obs.Quality = observationQuality(obs)
	return obs
}

func successMetrics(in Input) types.SuccessMetrics {
	restarts := in.PodStatus.RestartCount
	return types.SuccessMetrics{
		PodPhase:       in.PodPhase,
		ContainerReady: in.PodStatus.Ready,
		RestartCount:   restarts,
		StabilityScore: clamp(1-0.1*float64(restarts), 0, 1),
	}
}

func performanceAxis(in Input) types.PerformanceAxis {
	timeEfficiency := clamp(1-in.ResolutionTime/300, 0, 1)
	resourceEfficiency := resourceEfficiencyEstimate(in.Report)
	return types.PerformanceAxis{
		ResolutionTime:  in.ResolutionTime,
		ResourceImpact:  map[string]float64{"commands_run": float64(in.Report.TotalCommands)},
		EfficiencyScore: (timeEfficiency + resourceEfficiency) / 2,
	}
}

// resourceEfficiencyEstimate approximates resource cost as the fraction
// of plan commands that succeeded without needing a retry-driven rerun;
// a plan with a high success rate is assumed to have touched the
// cluster no more than necessary.
func resourceEfficiencyEstimate(report types.ExecutionReport) float64 {
	if report.TotalCommands == 0 {
		return 1
	}
	return clamp(report.SuccessRate, 0, 1)
}

func contextFactors(in Input) types.ContextFactors {
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	return types.ContextFactors{
		HourOfDay:            at.Hour(),
		Weekday:              at.Weekday().String(),
		NamespaceCriticality: namespaceCriticality(in.Namespace),
		ClusterLoadSummary:   clusterLoadSummary(in.Report),
	}
}

func namespaceCriticality(namespace string) string {
	lower := strings.ToLower(namespace)
	switch {
	case strings.Contains(lower, "prod"), strings.Contains(lower, "live"), strings.Contains(lower, "production"):
		return "critical"
	case strings.Contains(lower, "stage"), strings.Contains(lower, "staging"):
		return "medium"
	default:
		return "low"
	}
}

func clusterLoadSummary(report types.ExecutionReport) string {
	if report.TotalCommands == 0 {
		return "idle"
	}
	if report.SuccessRate < 0.5 {
		return "degraded"
	}
	return "nominal"
}

func (o *Observer) comparativeAnalysis(ctx context.Context, in Input) types.ComparativeAnalysis {
	episodes, err := o.episodic.Similar(ctx, in.ErrorClass, in.IncidentContext, trajectoryWindow)
	if err != nil || len(episodes) == 0 {
		return types.ComparativeAnalysis{}
	}

	var trajectory []float64
	var simSum float64
	for _, ep := range episodes {
		trajectory = append(trajectory, ep.ConfidenceAfter)
		simSum += jaccardLikeFloat(ep.ResolutionTime, in.ResolutionTime)
	}

	return types.ComparativeAnalysis{
		SimilarityToPrevious:      trajectory[0],
		SimilarityToHistoricalAvg: simSum / float64(len(episodes)),
		ImprovementTrajectory:     trajectory,
	}
}

// jaccardLikeFloat scores how close two durations are as a [0,1]
// similarity, used only as a lightweight proxy when no richer context
// vector is available for this comparison.
func jaccardLikeFloat(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	diff := math.Abs(a - b)
	maxV := math.Max(a, b)
	if maxV == 0 {
		return 1
	}
	return clamp(1-diff/maxV, 0, 1)
}

func anomalyDetection(in Input) types.AnomalyDetection {
	checks := 0
	detected := 0

	unexpectedSuccess := in.Report.OverallSuccess && in.RetryCount >= 2
	checks++
	if unexpectedSuccess {
		detected++
	}

	timingOutlier := in.ResolutionTime < 5 || in.ResolutionTime > 300
	checks++
	if timingOutlier {
		detected++
	}

	resourceAnomaly := in.PodStatus.RestartCount > 5
	checks++
	if resourceAnomaly {
		detected++
	}

	patternAnomaly := !in.Report.OverallSuccess && in.RetryCount == 0
	checks++
	if patternAnomaly {
		detected++
	}

	return types.AnomalyDetection{
		UnexpectedSuccess: unexpectedSuccess,
		TimingOutlier:     timingOutlier,
		ResourceAnomaly:   resourceAnomaly,
		PatternAnomaly:    patternAnomaly,
		AnomalyScore:      float64(detected) / float64(checks),
	}
}

// observationQuality is the fraction of the five axes that produced
// non-empty data (spec.md §4.6).
func observationQuality(obs types.Observation) float64 {
	axes := 0
	populated := 0

	axes++
	if obs.SuccessMetrics.PodPhase != "" {
		populated++
	}
	axes++
	if obs.Performance.ResolutionTime > 0 || len(obs.Performance.ResourceImpact) > 0 {
		populated++
	}
	axes++
	if obs.ContextFactors.Weekday != "" {
		populated++
	}
	axes++
	if len(obs.ComparativeAnalysis.ImprovementTrajectory) > 0 {
		populated++
	}
	axes++
	if obs.AnomalyDetection.AnomalyScore > 0 || obs.AnomalyDetection.UnexpectedSuccess || obs.AnomalyDetection.TimingOutlier {
		populated++
	}

	return float64(populated) / float64(axes)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
