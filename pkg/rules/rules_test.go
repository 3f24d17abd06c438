package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

const defaultRules = `{
  "apply_label": "AutoHandled",
  "rules": [
    {"keywords": ["refund"], "match_mode": "any", "template": "refund.txt", "subject_prefix": "[Billing] "}
  ]
}`

func TestFileStoreLoadsDefaultRules(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "rules.json", defaultRules)

	rs, err := NewFileStore(dir).Load("")
	require.NoError(t, err)

	assert.Equal(t, "AutoHandled", rs.BusinessLabel())
	require.Len(t, rs.Rules, 1)
	assert.Equal(t, []string{"refund"}, rs.Rules[0].Keywords)
	assert.Equal(t, "[Billing] ", rs.Rules[0].SubjectPrefix)
}

func TestFileStoreAccountOverride(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "rules.json", defaultRules)
	writeRuleFile(t, dir, "rules_alice_example_com.json", `{"rules": [{"keywords": ["vip"], "match_mode": "any", "template": "vip.txt"}]}`)

	rs, err := NewFileStore(dir).Load("alice@example.com")
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)
	assert.Equal(t, "vip.txt", rs.Rules[0].Template)
}

func TestFileStoreFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "rules.json", defaultRules)

	rs, err := NewFileStore(dir).Load("bob@example.com")
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)
	assert.Equal(t, "refund.txt", rs.Rules[0].Template)
}

func TestFileStoreMissingFile(t *testing.T) {
	_, err := NewFileStore(t.TempDir()).Load("")
	assert.Error(t, err)
}

func TestBusinessLabelDefault(t *testing.T) {
	rs := &RuleSet{}
	assert.Equal(t, DefaultApplyLabel, rs.BusinessLabel())
}
