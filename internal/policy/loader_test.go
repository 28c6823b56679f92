package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlPolicy = `
version: 1
name: deploy-gate
thresholds:
  approval: 85
  conditional: 55
options:
  verbose: true
rules:
  - id: no-public-buckets
    description: deny public buckets
    category: access_control
    severity: CRITICAL
    weight: 50
    critical: true
    priority: 100
    condition:
      attribute: resource.public
      operator: eq
      value: true
  - id: region-pinned
    severity: MEDIUM
    weight: 10
    condition:
      all:
        - attribute: environment.region
          operator: starts_with
          value: eu-
        - attribute: action
          operator: in
          value: [deploy, promote]
`

const jsonPolicy = `{
  "version": 1,
  "name": "deploy-gate",
  "rules": [
    {
      "id": "mfa-required",
      "severity": "HIGH",
      "weight": 30,
      "condition": {"attribute": "subject.mfa_enabled", "operator": "eq", "value": false}
    }
  ]
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAMLPolicy(t *testing.T) {
	p, err := Load(writeTemp(t, "gate.yaml", yamlPolicy))
	require.NoError(t, err)

	assert.Equal(t, "deploy-gate", p.Name())
	assert.Equal(t, 2, p.RuleCount())
	assert.Equal(t, Thresholds{Approval: 85, Conditional: 55}, p.Thresholds())
	assert.True(t, p.Options().Verbose)

	first := p.Rules()[0]
	assert.Equal(t, "no-public-buckets", first.ID)
	assert.True(t, first.Critical)
	// YAML booleans survive the round trip as Go bools.
	assert.Equal(t, true, first.Condition.Value)
}

func TestLoadJSONPolicy(t *testing.T) {
	p, err := Load(writeTemp(t, "gate.json", jsonPolicy))
	require.NoError(t, err)
	assert.Equal(t, 1, p.RuleCount())
	assert.Equal(t, "mfa-required", p.Rules()[0].ID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeTemp(t, "broken.yaml", "rules: ["))
	assert.Error(t, err)
}

func TestLoadInvalidPolicyListsEveryError(t *testing.T) {
	bad := `
version: 3
rules:
  - id: dup
    severity: LOUD
    weight: -1
    condition: {attribute: a.b, operator: eq, value: 1}
  - id: dup
    severity: LOW
    weight: 1
    condition: {attribute: a.b, operator: eq, value: 1}
`
	_, err := Load(writeTemp(t, "bad.yaml", bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
	assert.Contains(t, err.Error(), "severity")
	assert.Contains(t, err.Error(), "duplicate rule id")
}
