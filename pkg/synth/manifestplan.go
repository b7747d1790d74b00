package synth

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// parseManifestPlan decodes an LLM completion's manifest document plus
// its pre-delete/validation commands, rejecting any document whose
// labels/annotations are misplaced under spec.
func (s *Synthesizer) parseManifestPlan(ctx context.Context, raw, podName, namespace string) (*types.ManifestPlan, bool) {
	manifest, ok := extractYAMLDocument(raw)
	if !ok {
		return nil, false
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(manifest), &doc); err != nil {
		return nil, false
	}

	if s.policy != nil {
		violations, err := s.policy.Violations(ctx, doc)
		if err == nil && len(violations) > 0 {
			return nil, false
		}
	}

	return &types.ManifestPlan{
		Manifest:         manifest,
		PreDeleteCommand: fmt.Sprintf("kubectl delete pod %s -n %s --ignore-not-found", podName, namespace),
		ValidationCommands: []string{
			fmt.Sprintf("kubectl get pod %s -n %s", podName, namespace),
		},
	}, true
}

// extractYAMLDocument pulls the first YAML/JSON document out of a
// prose-wrapped LLM completion by locating a fenced code block if
// present, else returning the trimmed whole response.
func extractYAMLDocument(raw string) (string, bool) {
	if start := strings.Index(raw, "```"); start >= 0 {
		rest := raw[start+3:]
		rest = strings.TrimPrefix(rest, "yaml\n")
		rest = strings.TrimPrefix(rest, "yml\n")
		if end := strings.Index(rest, "```"); end >= 0 {
			doc := strings.TrimSpace(rest[:end])
			if doc != "" {
				return doc, true
			}
		}
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

// oomFallbackMemoryLimit is the fallback manifest's raised memory limit
// for OOMKilled, matching the 2x-5x raise rule of spec.md §4.4 against
// an assumed unconstrained original (no prior limit is known once the
// LLM output is unusable, so the fallback simply sets a generous floor
// well above the 100Mi minimum).
const oomFallbackMemoryLimit = "1Gi"

// defaultManifestPlan is the deterministic, error-class-specific fallback
// manifest used when the LLM's manifest-mode output fails to parse or
// violates the metadata-placement rule (spec.md §4.4).
func defaultManifestPlan(errClass types.ErrorClass, podName, namespace, image string) *types.ManifestPlan {
	container := fmt.Sprintf(`    - name: %s
      image: %s`, podName, image)
	if errClass == types.ErrorClassOOMKilled {
		container += fmt.Sprintf(`
      resources:
        limits:
          memory: %s
        requests:
          memory: 512Mi`, oomFallbackMemoryLimit)
	}

	manifest := fmt.Sprintf(`apiVersion: v1
kind: Pod
metadata:
  name: %s
  namespace: %s
spec:
  containers:
%s
  restartPolicy: Always
`, podName, namespace, container)

	return &types.ManifestPlan{
		Manifest:         manifest,
		PreDeleteCommand: fmt.Sprintf("kubectl delete pod %s -n %s --ignore-not-found", podName, namespace),
		ValidationCommands: []string{
			fmt.Sprintf("kubectl get pod %s -n %s", podName, namespace),
		},
	}
}
