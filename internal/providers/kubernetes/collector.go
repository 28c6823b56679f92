package kubernetes

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sclient "k8s.io/client-go/kubernetes"

	"github.com/secgate-io/secgate/internal/models"
)

// CollectPodContexts lists all pods across all namespaces (or a single
// namespace when namespace is non-empty) and builds one evaluation context
// per pod. The clientset parameter is an interface so tests can inject a fake
// clientset.
func CollectPodContexts(ctx context.Context, clientset k8sclient.Interface, info ClusterInfo, namespace string) ([]*models.EvalContext, error) {
	podList, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}

	contexts := make([]*models.EvalContext, 0, len(podList.Items))
	for _, p := range podList.Items {
		contexts = append(contexts, podContext(&p, info))
	}
	return contexts, nil
}

// podContext converts a pod spec into an evaluation context. Container-level
// attributes (privileged, runAsNonRoot, image tags) are folded to the pod
// level: one privileged container makes the pod privileged, and runAsNonRoot
// holds only when every container requires it.
func podContext(p *corev1.Pod, info ClusterInfo) *models.EvalContext {
	privileged := false
	runAsNonRoot := true
	latestImage := false

	for _, c := range p.Spec.Containers {
		if c.SecurityContext != nil && c.SecurityContext.Privileged != nil && *c.SecurityContext.Privileged {
			privileged = true
		}
		if !containerRunsAsNonRoot(p, c) {
			runAsNonRoot = false
		}
		if imageUsesLatestTag(c.Image) {
			latestImage = true
		}
	}
	if len(p.Spec.Containers) == 0 {
		runAsNonRoot = false
	}

	var images []any
	for _, c := range p.Spec.Containers {
		images = append(images, c.Image)
	}

	return &models.EvalContext{
		Name: "pod/" + p.Namespace + "/" + p.Name,
		Subject: models.Attributes{
			"cluster":         info.ContextName,
			"service_account": p.Spec.ServiceAccountName,
		},
		Resource: models.Attributes{
			"type":            "pod",
			"name":            p.Name,
			"namespace":       p.Namespace,
			"privileged":      privileged,
			"run_as_non_root": runAsNonRoot,
			"host_network":    p.Spec.HostNetwork,
			"host_pid":        p.Spec.HostPID,
			"latest_image":    latestImage,
			"images":          images,
		},
		Environment: models.Attributes{
			"provider": "kubernetes",
			"cluster":  info.ContextName,
			"server":   info.Server,
		},
	}
}

// containerRunsAsNonRoot reports whether runAsNonRoot is required for the
// container, honouring the pod-level security context as the fallback.
func containerRunsAsNonRoot(p *corev1.Pod, c corev1.Container) bool {
	if c.SecurityContext != nil && c.SecurityContext.RunAsNonRoot != nil {
		return *c.SecurityContext.RunAsNonRoot
	}
	if p.Spec.SecurityContext != nil && p.Spec.SecurityContext.RunAsNonRoot != nil {
		return *p.Spec.SecurityContext.RunAsNonRoot
	}
	return false
}

// imageUsesLatestTag reports whether an image reference pins no tag or uses
// the mutable :latest tag. Digest references are always pinned.
func imageUsesLatestTag(image string) bool {
	if strings.Contains(image, "@") {
		return false
	}
	slash := strings.LastIndex(image, "/")
	tail := image[slash+1:]
	colon := strings.LastIndex(tail, ":")
	if colon < 0 {
		return true
	}
	return tail[colon+1:] == "latest"
}
