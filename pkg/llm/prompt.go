package llm

import (
	"github.com/tmc/langchaingo/prompts"
)

// commandModeTemplate and manifestModeTemplate are langchaingo prompt
// templates; the Plan Synthesiser formats them with the incident, chosen
// strategy, cluster snapshot, and retrieved lessons_learned before sending
// them as the "user" half of a Chat call.
var (
	commandModeTemplate = prompts.NewPromptTemplate(
		`<|system|>
You are a Kubernetes remediation planner. Output strict JSON only.
<|user|>
Error class: {{.error_class}}
Pod: {{.pod_name}} (namespace: {{.namespace}})
Pod type: {{.pod_type}}
Strategy actions: {{.strategy_actions}}
Cluster snapshot: {{.cluster_snapshot}}
Lessons learned from prior incidents of this class: {{.lessons_learned}}

CRITICAL DECISION RULES:
- Windows-portable shell only: no pipes, redirections, or shell operators.
- Standalone pods: use "kubectl delete pod" + "kubectl run"; never "kubectl patch deployment".
- Deployment-managed pods: deployment-level operations only ("kubectl patch deployment", "kubectl scale").

AVAILABLE ACTIONS: delete pod, run pod, patch deployment, scale deployment, rollout restart.

Return a JSON object with exactly four keys: backup, fix, validation, rollback.
Each value is a list of command strings. Include your confidence reasoning
in a short natural-language note before the JSON.
<|assistant|>`,
		[]string{"error_class", "pod_name", "namespace", "pod_type", "strategy_actions", "cluster_snapshot", "lessons_learned"},
	)

	manifestModeTemplate = prompts.NewPromptTemplate(
		`<|system|>
You are a Kubernetes remediation planner. Emit one complete replacement
pod or deployment manifest document, not a patch.
<|user|>
Error class: {{.error_class}}
Pod: {{.pod_name}} (namespace: {{.namespace}})
Strategy actions: {{.strategy_actions}}
Cluster snapshot: {{.cluster_snapshot}}
Lessons learned from prior incidents of this class: {{.lessons_learned}}

HARD RULE: labels and annotations belong only under metadata. Placing them
under spec is invalid and must be rejected.

Preserve every non-faulty field from the original spec. Return the full
manifest document only, plus a one-line pre-delete command and a list of
post-apply validation commands.
<|assistant|>`,
		[]string{"error_class", "pod_name", "namespace", "strategy_actions", "cluster_snapshot", "lessons_learned"},
	)
)

// FormatCommandPrompt renders the command-mode template.
func FormatCommandPrompt(values map[string]any) (string, error) {
	return commandModeTemplate.Format(values)
}

// FormatManifestPrompt renders the manifest-mode template.
func FormatManifestPrompt(values map[string]any) (string, error) {
	return manifestModeTemplate.Format(values)
}
