// Package orchestrator implements the Orchestrator (spec.md §4.9): the
// explicit state machine that ties the Strategy Store, Episodic Memory,
// Performance Tracker, Plan Synthesiser, Safe Executor, Observer,
// Reflector, and Learner into one incident traversal.
package orchestrator

// State is one node of the remediation loop's state machine
// (spec.md §4.9, Design Notes §9: "an explicit state machine enum with
// a pure transition(state, event) -> state function").
type State string

const (
	StateAnalyzeError      State = "analyze_error"
	StateStrategySelection State = "strategy_selection"
	StateDecideStrategy    State = "decide_strategy"
	StateExecuteFix        State = "execute_fix"
	StateObserveOutcome    State = "observe_outcome"
	StateReflectOnAction   State = "reflect_on_action"
	StateLearnAndEvolve    State = "learn_and_evolve"
	StateMetaReflect       State = "meta_reflect"
	StateDeepAnalysis      State = "deep_analysis"
	StateHumanEscalation   State = "human_escalation"
	StateEnd               State = "end"
)

// Event is the tagged variant a state's outward edge resolves to.
type Event string

const (
	EventProceed           Event = "proceed"
	EventShouldReflect     Event = "should_reflect"
	EventSkipReflection    Event = "skip_reflection"
	EventSuccess           Event = "success"
	EventRetry             Event = "retry"
	EventMetaReflect       Event = "meta_reflect"
	EventHumanEscalation   Event = "human_escalation"
	EventDeepAnalysis      Event = "deep_analysis"
	EventRetryWithInsights Event = "retry_with_insights"
)

// transition is the pure state-machine edge function of spec.md §4.9's
// graph. It panics on an (state, event) pair with no declared edge --
// every caller is expected to only emit events a state actually
// supports, the same contract a generated state machine would enforce
// at compile time.
func transition(state State, event Event) State {
	switch state {
	case StateAnalyzeError:
		return StateStrategySelection
	case StateStrategySelection:
		return StateDecideStrategy
	case StateDecideStrategy:
		return StateExecuteFix
	case StateExecuteFix:
		return StateObserveOutcome
	case StateObserveOutcome:
		switch event {
		case EventShouldReflect:
			return StateReflectOnAction
		case EventSkipReflection:
			return StateLearnAndEvolve
		}
	case StateReflectOnAction:
		return StateLearnAndEvolve
	case StateLearnAndEvolve:
		switch event {
		case EventSuccess:
			return StateEnd
		case EventRetry:
			return StateStrategySelection
		case EventMetaReflect:
			return StateMetaReflect
		case EventHumanEscalation:
			return StateHumanEscalation
		case EventDeepAnalysis:
			return StateDeepAnalysis
		}
	case StateMetaReflect:
		switch event {
		case EventRetryWithInsights:
			return StateStrategySelection
		case EventHumanEscalation:
			return StateHumanEscalation
		case EventSuccess:
			return StateEnd
		}
	case StateDeepAnalysis:
		return StateStrategySelection
	case StateHumanEscalation:
		return StateEnd
	}

	panic("orchestrator: no transition declared for state " + string(state) + " on event " + string(event))
}
