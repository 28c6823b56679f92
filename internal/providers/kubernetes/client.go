// Package kubernetes collects workload state from a cluster and turns each
// pod into an evaluation context for gate scoring.
package kubernetes

import (
	"fmt"
	"os"
	"path/filepath"

	k8sclient "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// ClusterInfo identifies a Kubernetes cluster and the kubeconfig context used
// to connect to it.
type ClusterInfo struct {
	// ContextName is the kubeconfig context name used to connect.
	ContextName string

	// Server is the Kubernetes API server URL resolved from the kubeconfig.
	Server string
}

// KubeClientProvider creates kubernetes clientsets for named kubeconfig
// contexts. It abstracts kubeconfig loading so callers and tests can inject
// any clientset without touching the filesystem.
type KubeClientProvider interface {
	// ClientsetForContext returns a clientset and the resolved ClusterInfo
	// for the given kubeconfig context. Pass an empty string to use the
	// current context from the loaded kubeconfig.
	ClientsetForContext(contextName string) (k8sclient.Interface, ClusterInfo, error)
}

// DefaultKubeClientProvider loads kubeconfig from $KUBECONFIG or
// ~/.kube/config and builds a real kubernetes clientset.
type DefaultKubeClientProvider struct{}

// NewDefaultKubeClientProvider returns a provider backed by the system kubeconfig.
func NewDefaultKubeClientProvider() *DefaultKubeClientProvider {
	return &DefaultKubeClientProvider{}
}

// ClientsetForContext implements KubeClientProvider.
func (p *DefaultKubeClientProvider) ClientsetForContext(contextName string) (k8sclient.Interface, ClusterInfo, error) {
	return LoadClientset(resolveKubeconfigPath(), contextName)
}

// resolveKubeconfigPath returns the effective kubeconfig file path.
// Prefers $KUBECONFIG if set; falls back to ~/.kube/config.
func resolveKubeconfigPath() string {
	if path := os.Getenv("KUBECONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}

// LoadClientset builds a kubernetes clientset from the kubeconfig file at
// path, targeting the given context (empty = current context). It returns the
// clientset and the resolved ClusterInfo (context name + server URL).
func LoadClientset(kubeconfigPath, contextName string) (k8sclient.Interface, ClusterInfo, error) {
	loadingRules := &clientcmd.ClientConfigLoadingRules{
		ExplicitPath: kubeconfigPath,
	}
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}

	cfg := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)

	rawCfg, err := cfg.RawConfig()
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("load kubeconfig %q: %w", kubeconfigPath, err)
	}

	effectiveContext := rawCfg.CurrentContext
	if contextName != "" {
		effectiveContext = contextName
	}

	server := ""
	if ctx, ok := rawCfg.Contexts[effectiveContext]; ok {
		if cluster, ok := rawCfg.Clusters[ctx.Cluster]; ok {
			server = cluster.Server
		}
	}

	restCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("build REST config for context %q: %w", effectiveContext, err)
	}

	clientset, err := k8sclient.NewForConfig(restCfg)
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("build clientset for context %q: %w", effectiveContext, err)
	}

	return clientset, ClusterInfo{
		ContextName: effectiveContext,
		Server:      server,
	}, nil
}
