package strategy

import (
	"fmt"
	"strings"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// predicate is one parsed `key == 'value'` condition from a Strategy's
// Conditions list (spec.md §4.1).
type predicate struct {
	key   string
	value string
}

// parsePredicate parses a textual condition like `namespace == 'prod'` or
// `error_type == 'OOMKilled'`. Malformed conditions parse to a predicate
// that never matches, rather than erroring -- spec.md §4.1 says unknown
// predicate keys default to non-match but never raise.
func parsePredicate(condition string) predicate {
	parts := strings.SplitN(condition, "==", 2)
	if len(parts) != 2 {
		return predicate{key: "", value: ""}
	}
	key := strings.TrimSpace(parts[0])
	value := strings.Trim(strings.TrimSpace(parts[1]), `'"`)
	return predicate{key: key, value: value}
}

func (p predicate) holds(ctx types.Context) bool {
	if p.key == "" {
		return false
	}
	v, ok := ctx[p.key]
	if !ok {
		return false
	}
	return fmt.Sprintf("%v", v) == p.value
}

// matchesContext reports whether every condition on a strategy holds for
// ctx. A strategy with no conditions always matches (spec.md §4.1).
func matchesContext(conditions []string, ctx types.Context) bool {
	if len(conditions) == 0 {
		return true
	}
	for _, c := range conditions {
		if !parsePredicate(c).holds(ctx) {
			return false
		}
	}
	return true
}
