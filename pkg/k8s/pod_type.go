package k8s

import (
	"context"
	"regexp"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// PodType is the classification the Plan Synthesiser uses to decide
// between standalone-pod operations and deployment-level operations
// (spec.md §4.4).
type PodType string

const (
	PodTypeStandalone        PodType = "standalone"
	PodTypeDeploymentManaged PodType = "deployment-managed"
)

// hyphenSegment matches an alphanumeric hyphen-separated name segment.
var hyphenSegment = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// DetectPodTypeHeuristic is the string heuristic of spec.md §4.4:
// "deployment-managed" iff the name has at least three hyphen-separated
// parts and the last two tokens are >= 5 chars and alphanumeric.
//
// Design Notes §9 keeps this only as a fallback for when the authoritative
// ownerReferences lookup (DetectPodType) fails.
func DetectPodTypeHeuristic(podName string) PodType {
	parts := splitHyphens(podName)
	if len(parts) < 3 {
		return PodTypeStandalone
	}

	last := parts[len(parts)-1]
	secondLast := parts[len(parts)-2]
	if len(last) >= 5 && len(secondLast) >= 5 &&
		hyphenSegment.MatchString(last) && hyphenSegment.MatchString(secondLast) {
		return PodTypeDeploymentManaged
	}
	return PodTypeStandalone
}

func splitHyphens(name string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(name); i++ {
		if name[i] == '-' {
			parts = append(parts, name[start:i])
			start = i + 1
		}
	}
	parts = append(parts, name[start:])
	return parts
}

// OwnerRefResolver performs the robust pod-type check Design Notes §9
// prefers: query the cluster for the pod's ownerReferences and classify
// based on whether a ReplicaSet/Deployment (or StatefulSet/DaemonSet, both
// treated as deployment-managed for command-routing purposes) owns it.
type OwnerRefResolver struct {
	clientset kubernetes.Interface
	log       logr.Logger
}

// NewOwnerRefResolver builds a resolver over a client-go clientset.
func NewOwnerRefResolver(clientset kubernetes.Interface, log logr.Logger) *OwnerRefResolver {
	return &OwnerRefResolver{clientset: clientset, log: log}
}

// DetectPodType queries ownerReferences; on any lookup failure it falls
// back to the string heuristic rather than erroring, per Design Notes §9.
func (r *OwnerRefResolver) DetectPodType(ctx context.Context, namespace, podName string) PodType {
	pod, err := r.clientset.CoreV1().Pods(namespace).Get(ctx, podName, metav1.GetOptions{})
	if err != nil {
		r.log.V(1).Info("ownerReferences lookup failed, falling back to heuristic", "pod", podName, "error", err.Error())
		return DetectPodTypeHeuristic(podName)
	}

	if ownedByWorkloadController(pod) {
		return PodTypeDeploymentManaged
	}
	return PodTypeStandalone
}

func ownedByWorkloadController(pod *corev1.Pod) bool {
	for _, ref := range pod.OwnerReferences {
		switch ref.Kind {
		case "ReplicaSet", "Deployment", "StatefulSet", "DaemonSet", "Job", "ReplicationController":
			return true
		}
	}
	return false
}
