package safeexec

import (
	"strings"

	appErrors "github.com/mmsuerkan/kubernetes-thesis/internal/errors"
)

// RiskTier classifies a validated command by blast radius (spec.md §4.5).
type RiskTier string

const (
	RiskHigh   RiskTier = "high"
	RiskMedium RiskTier = "medium"
	RiskLow    RiskTier = "low"
)

// clusterCLI is the only leading token a command may start with.
const clusterCLI = "kubectl"

// forbiddenOperations names cluster-scoped deletes the Safe Executor
// refuses outright, regardless of risk tier (spec.md §4.5).
var forbiddenOperations = []string{
	"delete namespace",
	"delete node",
	"delete persistentvolume",
	"delete clusterrole",
	"delete clusterrolebinding",
	"delete customresourcedefinition",
}

// dangerousChars are shell metacharacters the Safe Executor warns about;
// command execution is via argv, not a shell, so these can't actually
// be interpreted, but their presence signals the command was built by
// string concatenation somewhere upstream and deserves a second look.
var dangerousChars = []string{";", "&&", "||", "|", ">", "<", "$", "`"}

// highRiskMarkers and mediumRiskMarkers are substring markers used to
// classify a validated command's risk tier.
var highRiskMarkers = []string{
	"delete deployment", "delete service", "delete secret",
	"--replicas=0", "exec", "port-forward",
}

var mediumRiskMarkers = []string{
	"delete pod", "rollout restart", "patch", "scale", "annotate", "label",
}

var lowRiskMarkers = []string{
	"get", "describe", "logs", "top", "version", "cluster-info", "api-",
}

// ValidateCommand rejects the empty command, any command whose leading
// token is not the cluster CLI, and any forbidden cluster-scoped
// operation. It returns the command's risk tier and any dangerous
// shell-metacharacter warnings found.
func ValidateCommand(command string) (RiskTier, []string, error) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return "", nil, appErrors.NewValidationError("command must not be empty")
	}

	fields := strings.Fields(trimmed)
	if fields[0] != clusterCLI {
		return "", nil, appErrors.NewValidationError("command must start with " + clusterCLI + ": " + command)
	}

	lower := strings.ToLower(trimmed)
	for _, forbidden := range forbiddenOperations {
		if strings.Contains(lower, forbidden) {
			return "", nil, appErrors.NewValidationError("forbidden cluster-scoped operation: " + forbidden)
		}
	}

	return classifyRisk(lower), scanDangerousChars(command), nil
}

func classifyRisk(lower string) RiskTier {
	for _, marker := range highRiskMarkers {
		if strings.Contains(lower, marker) {
			return RiskHigh
		}
	}
	for _, marker := range mediumRiskMarkers {
		if strings.Contains(lower, marker) {
			return RiskMedium
		}
	}
	return RiskLow
}

func scanDangerousChars(command string) []string {
	var found []string
	for _, ch := range dangerousChars {
		if strings.Contains(command, ch) {
			found = append(found, ch)
		}
	}
	return found
}
