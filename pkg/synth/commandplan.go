package synth

import (
	"fmt"
	"strings"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// parseCommandPlan decodes an LLM completion into a CommandPlan, falling
// back to the bracket-scan recovery path before giving up.
func parseCommandPlan(raw string) (*types.CommandPlan, bool) {
	var plan types.CommandPlan
	if !parseJSONWithFallback(raw, &plan) {
		return nil, false
	}
	return &plan, true
}

// defaultCommandPlan is the deterministic, error-class-specific fallback
// used when the LLM's command-mode output is unparseable (spec.md §4.4).
func defaultCommandPlan(errClass types.ErrorClass, podName, namespace, podType string) *types.CommandPlan {
	backup := []string{
		fmt.Sprintf("kubectl get pod %s -n %s -o yaml", podName, namespace),
	}

	switch errClass {
	case types.ErrorClassImagePullBackOff, types.ErrorClassErrImagePull:
		return &types.CommandPlan{
			Backup: backup,
			Fix:    standaloneOrDeployment(podType, podName, namespace, "nginx:latest"),
			Validation: []string{
				fmt.Sprintf("kubectl get pod %s -n %s", podName, namespace),
			},
			Rollback: backup,
		}
	case types.ErrorClassOOMKilled:
		return &types.CommandPlan{
			Backup: backup,
			Fix: []string{
				fmt.Sprintf("kubectl set resources pod %s -n %s --limits=memory=1Gi", podName, namespace),
			},
			Validation: []string{
				fmt.Sprintf("kubectl get pod %s -n %s", podName, namespace),
			},
			Rollback: backup,
		}
	case types.ErrorClassCrashLoopBackOff:
		return &types.CommandPlan{
			Backup: backup,
			Fix: []string{
				fmt.Sprintf("kubectl delete pod %s -n %s", podName, namespace),
			},
			Validation: []string{
				fmt.Sprintf("kubectl get pod %s -n %s", podName, namespace),
			},
			Rollback: backup,
		}
	default:
		return &types.CommandPlan{
			Backup:     backup,
			Fix:        []string{fmt.Sprintf("kubectl describe pod %s -n %s", podName, namespace)},
			Validation: []string{fmt.Sprintf("kubectl get pod %s -n %s", podName, namespace)},
			Rollback:   nil,
		}
	}
}

// standaloneOrDeployment enforces spec.md §4.4's pod-type command
// restriction: standalone pods are deleted and rerun, deployment-managed
// pods are patched at the deployment level, never deleted directly.
func standaloneOrDeployment(podType, podName, namespace, image string) []string {
	if podType == "deployment-managed" {
		deployment := deploymentNameFromPod(podName)
		return []string{
			fmt.Sprintf("kubectl patch deployment %s -n %s --type=json -p [{\"op\":\"replace\",\"path\":\"/spec/template/spec/containers/0/image\",\"value\":\"%s\"}]", deployment, namespace, image),
		}
	}
	return []string{
		fmt.Sprintf("kubectl delete pod %s -n %s", podName, namespace),
		fmt.Sprintf("kubectl run %s -n %s --image=%s", podName, namespace, image),
	}
}

// deploymentNameFromPod strips the two trailing hyphen-separated
// replicaset/pod-hash tokens a deployment-managed pod name carries.
func deploymentNameFromPod(podName string) string {
	parts := strings.Split(podName, "-")
	if len(parts) < 3 {
		return podName
	}
	return strings.Join(parts[:len(parts)-2], "-")
}
