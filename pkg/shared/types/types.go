// Package types defines the data model shared across the remediation core:
// incidents, cluster snapshots, strategies, episodes, and the execution
// plans the Plan Synthesiser hands to the Safe Executor.
package types

import "time"

// ErrorClass names a Kubernetes pod failure mode the system knows how to address.
type ErrorClass string

const (
	ErrorClassImagePullBackOff        ErrorClass = "ImagePullBackOff"
	ErrorClassCrashLoopBackOff        ErrorClass = "CrashLoopBackOff"
	ErrorClassOOMKilled               ErrorClass = "OOMKilled"
	ErrorClassCreateContainerConfig   ErrorClass = "CreateContainerConfigError"
	ErrorClassErrImagePull            ErrorClass = "ErrImagePull"
	ErrorClassOther                   ErrorClass = "Other"
)

// Event is a recent Warning/Normal cluster event attached to a snapshot.
type Event struct {
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ContainerStatus summarizes one container's last-observed state.
type ContainerStatus struct {
	Name         string `json:"name"`
	Ready        bool   `json:"ready"`
	RestartCount int32  `json:"restart_count"`
	Image        string `json:"image"`
	ExitCode     int32  `json:"exit_code,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// ClusterSnapshot is the optional real-cluster context attached to an Incident.
// Its presence is what lets the analysis layer mark confidence >= 0.95 and
// bypass synthetic analysis (spec.md §6).
type ClusterSnapshot struct {
	PodSpec            map[string]interface{} `json:"pod_spec"`
	Events             []Event                `json:"events"`
	ContainerLogLines  []string                `json:"container_log_lines"`
	ContainerStatuses  []ContainerStatus       `json:"container_statuses"`
}

// Incident is the transient unit of work ingested by the Orchestrator.
type Incident struct {
	PodName         string           `json:"pod_name" validate:"required"`
	Namespace       string           `json:"namespace" validate:"required"`
	ErrorClass      ErrorClass       `json:"error_class" validate:"required"`
	ClusterSnapshot *ClusterSnapshot `json:"cluster_snapshot,omitempty"`
	ThreadID        string           `json:"thread_id,omitempty"`
	UsedRealCluster bool             `json:"used_real_cluster_data"`
}

// Context is the free-form incident qualifier bag strategies and episodes
// are matched and scored against (namespace, pod name shape, severity, ...).
type Context map[string]interface{}

// StrategySource records who/what created a Strategy.
type StrategySource string

const (
	StrategySourceLearned StrategySource = "learned"
	StrategySourceManual  StrategySource = "manual"
	StrategySourceSeed    StrategySource = "seed"
)

// Strategy is the persisted, versioned recipe addressing one error class.
type Strategy struct {
	ID            string          `json:"id" db:"id"`
	ErrorClass    ErrorClass      `json:"error_class" db:"error_class"`
	Conditions    []string        `json:"conditions" db:"conditions"`
	Actions       map[string]any  `json:"actions" db:"actions"`
	Confidence    float64         `json:"confidence" db:"confidence"`
	SuccessRate   float64         `json:"success_rate" db:"success_rate"`
	UsageCount    int             `json:"usage_count" db:"usage_count"`
	Source        StrategySource  `json:"source" db:"source"`
	Context       Context         `json:"context" db:"context"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	LastUsed      time.Time       `json:"last_used" db:"last_used"`
}

// UsageRecord is an append-only record of one strategy application.
type UsageRecord struct {
	StrategyID    string    `json:"strategy_id" db:"strategy_id"`
	PodName       string    `json:"pod_name" db:"pod_name"`
	Namespace     string    `json:"namespace" db:"namespace"`
	Success       bool      `json:"success" db:"success"`
	ExecutionTime float64   `json:"execution_time" db:"execution_time"`
	Feedback      string    `json:"feedback" db:"feedback"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
}

// EvolutionChangeType enumerates why a Strategy Evolution Entry was appended.
type EvolutionChangeType string

const (
	EvolutionCreated          EvolutionChangeType = "created"
	EvolutionPerformanceUpdate EvolutionChangeType = "performance_update"
	EvolutionModified         EvolutionChangeType = "modified"
	EvolutionMerged           EvolutionChangeType = "merged"
)

// EvolutionEntry is the complete audit trail of every strategy mutation.
type EvolutionEntry struct {
	StrategyID        string              `json:"strategy_id" db:"strategy_id"`
	Version           int                 `json:"version" db:"version"`
	ChangeType        EvolutionChangeType `json:"change_type" db:"change_type"`
	ChangeDescription string              `json:"change_description" db:"change_description"`
	OldConfidence     float64             `json:"old_confidence" db:"old_confidence"`
	NewConfidence     float64             `json:"new_confidence" db:"new_confidence"`
	TriggerEvent      string              `json:"trigger_event" db:"trigger_event"`
	Timestamp         time.Time           `json:"timestamp" db:"timestamp"`
}

// Outcome is the terminal status of one episode's remediation attempt.
type Outcome struct {
	Success        bool    `json:"success"`
	ResolutionTime float64 `json:"resolution_time"`
	Status         string  `json:"status"`
}

// Episode is the append-only record of one full loop traversal.
type Episode struct {
	ID                  string     `json:"id" db:"id"`
	PodName             string     `json:"pod_name" db:"pod_name"`
	Namespace           string     `json:"namespace" db:"namespace"`
	ErrorClass          ErrorClass `json:"error_class" db:"error_class"`
	Context             Context    `json:"context" db:"context"`
	ActionsTaken        []string   `json:"actions_taken" db:"actions_taken"`
	Outcome             Outcome    `json:"outcome" db:"outcome"`
	LessonsLearned      []string   `json:"lessons_learned" db:"lessons_learned"`
	ConfidenceBefore    float64    `json:"confidence_before" db:"confidence_before"`
	ConfidenceAfter     float64    `json:"confidence_after" db:"confidence_after"`
	ResolutionTime      float64    `json:"resolution_time" db:"resolution_time"`
	ReflectionQuality   float64    `json:"reflection_quality" db:"reflection_quality"`
	InsightsGenerated   int        `json:"insights_generated" db:"insights_generated"`
	StrategyID          string     `json:"strategy_id" db:"strategy_id"`
	Timestamp           time.Time  `json:"timestamp" db:"timestamp"`
}

// MemoryPatternType enumerates the kind of derived pattern over episodes.
type MemoryPatternType string

const (
	PatternTemporal   MemoryPatternType = "temporal"
	PatternContextual MemoryPatternType = "contextual"
	PatternCausal     MemoryPatternType = "causal"
)

// MemoryPattern is a derived aggregate over episodes.
type MemoryPattern struct {
	ID          string            `json:"id" db:"id"`
	PatternType MemoryPatternType `json:"pattern_type" db:"pattern_type"`
	PatternData map[string]any    `json:"pattern_data" db:"pattern_data"`
	Strength    float64           `json:"strength" db:"strength"`
	Frequency   int               `json:"frequency" db:"frequency"`
	FirstSeen   time.Time         `json:"first_seen" db:"first_seen"`
	LastSeen    time.Time         `json:"last_seen" db:"last_seen"`
}

// AssociationType enumerates why two episodes were linked.
type AssociationType string

const (
	AssociationSimilarContext AssociationType = "similar_context"
	AssociationSimilarOutcome AssociationType = "similar_outcome"
	AssociationCausal         AssociationType = "causal"
)

// MemoryAssociation links two episodes whose context similarity exceeded
// the 0.5 threshold of spec.md §4.2.
type MemoryAssociation struct {
	EpisodeA        string          `json:"episode_a" db:"episode_a"`
	EpisodeB        string          `json:"episode_b" db:"episode_b"`
	AssociationType AssociationType `json:"association_type" db:"association_type"`
	Strength        float64         `json:"strength" db:"strength"`
}

// PerformanceSample drives the Performance Tracker's dynamic confidence.
type PerformanceSample struct {
	StrategyID        string    `json:"strategy_id" db:"strategy_id"`
	Success           bool      `json:"success" db:"success"`
	ResolutionTime    float64   `json:"resolution_time" db:"resolution_time"`
	ConfidenceBefore  float64   `json:"confidence_before" db:"confidence_before"`
	ConfidenceAfter   float64   `json:"confidence_after" db:"confidence_after"`
	Context           Context   `json:"context" db:"context"`
	Timestamp         time.Time `json:"timestamp" db:"timestamp"`
}

// StructuredReflectionBlock is the optional structured block an LLM
// reflection may emit alongside free text (spec.md §4.7).
type StructuredReflectionBlock struct {
	DecisionQualityScore     float64            `json:"decision_quality_score"`
	ExecutionQualityScore    float64            `json:"execution_quality_score"`
	LearningIntegrationScore float64            `json:"learning_integration_score"`
	MainInsights             []string           `json:"main_insights"`
	StrategyModifications    map[string]any     `json:"strategy_modifications"`
	ConfidenceUpdates        map[string]float64 `json:"confidence_updates"`
	KnowledgeGaps            []string           `json:"knowledge_gaps"`
	MetaReflectionQuality    float64            `json:"meta_reflection_quality"`
	OverallReflectionConfidence float64         `json:"overall_reflection_confidence"`
}

// Reflection is the tagged-variant reflection object described in the
// Design Notes (§9): a single struct with an optional structured block
// instead of dict-vs-object polymorphism.
type Reflection struct {
	TriggerAction         string                     `json:"trigger_action"`
	OutcomeObserved       string                     `json:"outcome_observed"`
	ReflectionText        string                     `json:"reflection_text"`
	Insights              []string                   `json:"insights_gained"`
	StrategyModifications map[string]any             `json:"strategy_modifications"`
	ConfidenceLevel       float64                    `json:"confidence_level"`
	MetaQualityScore      float64                    `json:"meta_quality_score"`
	Structured            *StructuredReflectionBlock `json:"structured,omitempty"`
}

// CommandPlan is the four-phase command sequence variant of an Execution Plan.
type CommandPlan struct {
	Backup     []string `json:"backup"`
	Fix        []string `json:"fix"`
	Validation []string `json:"validation"`
	Rollback   []string `json:"rollback"`
}

// ManifestPlan is the full-replacement-manifest variant of an Execution Plan.
type ManifestPlan struct {
	Manifest          string   `json:"manifest"`
	PreDeleteCommand  string   `json:"pre_delete_command"`
	ValidationCommands []string `json:"validation_commands"`
}

// Plan is the tagged union the Plan Synthesiser produces and the Safe
// Executor consumes. Exactly one of CommandPlan/ManifestPlan is non-nil.
type Plan struct {
	CommandPlan  *CommandPlan  `json:"command_plan,omitempty"`
	ManifestPlan *ManifestPlan `json:"manifest_plan,omitempty"`
}

// ExecutionError is one failed command/step recorded in an ExecutionReport.
type ExecutionError struct {
	Phase    string `json:"phase"`
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stderr   string `json:"stderr"`
}

// PhaseResult captures the per-phase outcome of a CommandPlan execution.
type PhaseResult struct {
	Phase      string        `json:"phase"`
	Success    bool          `json:"success"`
	Commands   int           `json:"commands"`
	Successful int           `json:"successful"`
	Duration   time.Duration `json:"duration"`
}

// ExecutionReport is the Safe Executor's result.
type ExecutionReport struct {
	OverallSuccess     bool              `json:"overall_success"`
	FixSuccess         bool              `json:"fix_success"`
	ValidationSuccess  bool              `json:"validation_success"`
	TotalCommands      int               `json:"total_commands"`
	SuccessfulCommands int               `json:"successful_commands"`
	SuccessRate        float64           `json:"success_rate"`
	TotalExecutionTime time.Duration     `json:"total_execution_time"`
	Errors             []ExecutionError  `json:"errors"`
	PerPhaseResults    []PhaseResult     `json:"per_phase_results"`
}

// Observation is the five-axis post-execution measurement (spec.md §4.6).
type Observation struct {
	SuccessMetrics      SuccessMetrics      `json:"success_metrics"`
	Performance         PerformanceAxis     `json:"performance"`
	ContextFactors      ContextFactors      `json:"context_factors"`
	ComparativeAnalysis ComparativeAnalysis `json:"comparative_analysis"`
	AnomalyDetection    AnomalyDetection    `json:"anomaly_detection"`
	Quality             float64             `json:"quality"`
}

type SuccessMetrics struct {
	PodPhase        string  `json:"pod_phase"`
	ContainerReady  bool    `json:"container_ready"`
	RestartCount    int32   `json:"restart_count"`
	StabilityScore  float64 `json:"stability_score"`
}

type PerformanceAxis struct {
	ResolutionTime  float64 `json:"resolution_time"`
	ResourceImpact  map[string]float64 `json:"resource_impact"`
	EfficiencyScore float64 `json:"efficiency_score"`
}

type ContextFactors struct {
	HourOfDay           int    `json:"hour_of_day"`
	Weekday             string `json:"weekday"`
	NamespaceCriticality string `json:"namespace_criticality"`
	ClusterLoadSummary  string `json:"cluster_load_summary"`
}

type ComparativeAnalysis struct {
	SimilarityToPrevious      float64 `json:"similarity_to_previous"`
	SimilarityToHistoricalAvg float64 `json:"similarity_to_historical_avg"`
	ImprovementTrajectory     []float64 `json:"improvement_trajectory"`
}

type AnomalyDetection struct {
	UnexpectedSuccess bool    `json:"unexpected_success"`
	TimingOutlier     bool    `json:"timing_outlier"`
	ResourceAnomaly   bool    `json:"resource_anomaly"`
	PatternAnomaly    bool    `json:"pattern_anomaly"`
	AnomalyScore      float64 `json:"anomaly_score"`
}

// EscalationContext is attached to a Result when human intervention is required.
type EscalationContext struct {
	Reason         string   `json:"reason"`
	AttemptsMade   int      `json:"attempts_made"`
	StrategiesTried []string `json:"strategies_tried"`
	LastError      string   `json:"last_error"`
	Summary        string   `json:"summary"`
}

// ResultSummary is the learning-facing half of a process() Result.
type ResultSummary struct {
	ReflectionsPerformed int     `json:"reflections_performed"`
	StrategiesLearned    int     `json:"strategies_learned"`
	SelfAwarenessLevel   float64 `json:"self_awareness_level"`
	LearningVelocity     float64 `json:"learning_velocity"`
	UsedRealClusterData  bool    `json:"used_real_cluster_data"`
}

// Result is the canonical response of the process() ingress operation.
type Result struct {
	WorkflowID                string             `json:"workflow_id"`
	Success                   bool               `json:"success"`
	PodName                   string             `json:"pod_name"`
	FinalStrategy             string             `json:"final_strategy"`
	ResolutionTimeSeconds     float64            `json:"resolution_time_seconds"`
	RequiresHumanIntervention bool               `json:"requires_human_intervention"`
	Summary                   ResultSummary      `json:"summary"`
	Escalation                *EscalationContext `json:"escalation,omitempty"`
}

// ExecutionResult is the caller-supplied execution feedback (spec.md §6).
type ExecutionResult struct {
	Success          bool     `json:"success"`
	PartialSuccess   bool     `json:"partial_success"`
	SuccessCount     int      `json:"success_count"`
	TotalCommands    int      `json:"total_commands"`
	ExecutedCommands []string `json:"executed_commands"`
}

// FeedbackResult is the response of the feedback() ingress operation.
type FeedbackResult struct {
	FeedbackProcessed        bool    `json:"feedback_processed"`
	ReflexionUpdated         bool    `json:"reflexion_updated"`
	StrategyConfidenceUpdated float64 `json:"strategy_confidence_updated"`
	LearningSummary          string  `json:"learning_summary"`
}
