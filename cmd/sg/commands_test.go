package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sclient "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/secgate-io/secgate/internal/models"
	kube "github.com/secgate-io/secgate/internal/providers/kubernetes"
)

const validPolicyYAML = `
version: 1
name: deploy-gate
rules:
  - id: no-public-buckets
    severity: CRITICAL
    weight: 50
    critical: true
    condition:
      attribute: resource.public
      operator: eq
      value: true
`

const invalidPolicyYAML = `
version: 1
rules:
  - id: broken
    severity: LOUD
    weight: -1
    condition:
      attribute: resource.public
      operator: like
      value: true
`

const allowContextYAML = `
name: release-1
resource:
  public: false
action: deploy
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestPolicyValidate_ValidFile(t *testing.T) {
	path := writeFile(t, "gate.yaml", validPolicyYAML)
	out, err := execute(t, "policy", "validate", path)
	require.NoError(t, err)
	_ = out
}

func TestPolicyValidate_InvalidFile(t *testing.T) {
	path := writeFile(t, "bad.yaml", invalidPolicyYAML)
	_, err := execute(t, "policy", "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestPolicyValidate_MissingFile(t *testing.T) {
	_, err := execute(t, "policy", "validate", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEvaluate_RequiresContextFlag(t *testing.T) {
	_, err := execute(t, "evaluate", "--policy", writeFile(t, "gate.yaml", validPolicyYAML))
	require.Error(t, err)
}

// An allowing evaluation returns exit code 0, i.e. Execute returns nil and
// never calls os.Exit.
func TestEvaluate_AllowVerdictSucceeds(t *testing.T) {
	policyPath := writeFile(t, "gate.yaml", validPolicyYAML)
	contextPath := writeFile(t, "ctx.yaml", allowContextYAML)

	_, err := execute(t, "evaluate", "--policy", policyPath, "--context", contextPath)
	require.NoError(t, err)
}

// Without --report the decision is printed to stdout as a JSON record; the
// table rendering is opt-in.
func TestEvaluate_DefaultOutputIsJSON(t *testing.T) {
	policyPath := writeFile(t, "gate.yaml", validPolicyYAML)
	contextPath := writeFile(t, "ctx.yaml", allowContextYAML)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	_, execErr := execute(t, "evaluate", "--policy", policyPath, "--context", contextPath)
	require.NoError(t, w.Close())
	os.Stdout = old
	require.NoError(t, execErr)

	data, err := io.ReadAll(r)
	require.NoError(t, err)

	var d models.Decision
	require.NoError(t, json.Unmarshal(data, &d))
	assert.Equal(t, models.VerdictAllow, d.Verdict)
	assert.Equal(t, float64(100), d.Score)
}

func TestEvaluate_WritesDecisionFile(t *testing.T) {
	policyPath := writeFile(t, "gate.yaml", validPolicyYAML)
	contextPath := writeFile(t, "ctx.yaml", allowContextYAML)
	outPath := filepath.Join(t.TempDir(), "decision.json")

	_, err := execute(t, "evaluate", "--policy", policyPath, "--context", contextPath, "--output", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var d models.Decision
	require.NoError(t, json.Unmarshal(data, &d))
	assert.Equal(t, models.VerdictAllow, d.Verdict)
	assert.Equal(t, "deploy-gate", d.PolicyName)
	assert.Equal(t, float64(100), d.Score)
}

func TestEvaluate_AppendsAuditLog(t *testing.T) {
	policyPath := writeFile(t, "gate.yaml", validPolicyYAML)
	contextPath := writeFile(t, "ctx.yaml", allowContextYAML)
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")

	_, err := execute(t, "evaluate", "--policy", policyPath, "--context", contextPath, "--audit-log", auditPath)
	require.NoError(t, err)

	data, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var d models.Decision
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &d))
	assert.Equal(t, "release-1", d.Context.Name)
}

func TestLoadPolicyFile_VerboseOverride(t *testing.T) {
	path := writeFile(t, "gate.yaml", validPolicyYAML)

	p, err := loadPolicyFile(path, false)
	require.NoError(t, err)
	assert.False(t, p.Options().Verbose)

	p, err = loadPolicyFile(path, true)
	require.NoError(t, err)
	assert.True(t, p.Options().Verbose)
}

// testKubeProvider implements kube.KubeClientProvider backed by a pre-built
// fake clientset. It records the context name passed to ClientsetForContext
// so tests can assert the flag is forwarded correctly.
type testKubeProvider struct {
	clientset     k8sclient.Interface
	info          kube.ClusterInfo
	calledWithCtx string
}

func (p *testKubeProvider) ClientsetForContext(contextName string) (k8sclient.Interface, kube.ClusterInfo, error) {
	p.calledWithCtx = contextName
	return p.clientset, p.info, nil
}

func TestCollectKubeContexts_ForwardsContextName(t *testing.T) {
	provider := &testKubeProvider{
		clientset: fake.NewSimpleClientset(&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "api-1", Namespace: "payments"},
			Spec:       corev1.PodSpec{Containers: []corev1.Container{{Name: "c", Image: "img:1"}}},
		}),
		info: kube.ClusterInfo{ContextName: "staging"},
	}

	contexts, err := collectKubeContexts(context.Background(), provider, "staging", "")
	require.NoError(t, err)
	assert.Equal(t, "staging", provider.calledWithCtx)
	require.Len(t, contexts, 1)
	assert.Equal(t, "pod/payments/api-1", contexts[0].Name)
}
