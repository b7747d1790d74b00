package synth

import (
	"context"

	"github.com/open-policy-agent/opa/rego"
)

// metadataPlacementPolicy rejects a manifest document whose `spec` field
// carries `labels` or `annotations` -- spec.md §4.4's manifest-mode hard
// rule: those belong only under `metadata`.
const metadataPlacementPolicy = `
package manifest

violation[msg] {
	input.spec.labels
	msg := "labels must not appear under spec"
}

violation[msg] {
	input.spec.annotations
	msg := "annotations must not appear under spec"
}
`

// manifestPolicyChecker evaluates the metadata-placement rule against a
// decoded manifest document.
type manifestPolicyChecker struct {
	query rego.PreparedEvalQuery
}

func newManifestPolicyChecker(ctx context.Context) (*manifestPolicyChecker, error) {
	query, err := rego.New(
		rego.Query("data.manifest.violation"),
		rego.Module("manifest_metadata.rego", metadataPlacementPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &manifestPolicyChecker{query: query}, nil
}

// Violations returns every policy violation message for the decoded
// manifest doc, empty when the manifest is valid.
func (c *manifestPolicyChecker) Violations(ctx context.Context, doc map[string]any) ([]string, error) {
	results, err := c.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	var violations []string
	for _, expr := range results[0].Expressions {
		items, ok := expr.Value.([]interface{})
		if !ok {
			continue
		}
		for _, item := range items {
			if msg, ok := item.(string); ok {
				violations = append(violations, msg)
			}
		}
	}
	return violations, nil
}
