package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mailops/autoreply/pkg/config"
)

// DefaultApplyLabel marks originals whose thread received an automated
// reply, when the rule file does not name its own label.
const DefaultApplyLabel = "AutoReplied"

// Match modes for a rule's keyword list.
const (
	MatchAny = "any"
	MatchAll = "all"
)

// Rule is one ordered classification entry. Keywords are matched as
// lowercase substrings against subject+body; a rule with no keywords never
// matches.
type Rule struct {
	Keywords      []string `json:"keywords"`
	MatchMode     string   `json:"match_mode"`
	Template      string   `json:"template"`
	SubjectPrefix string   `json:"subject_prefix"`
}

// RuleSet is the per-account classification configuration, loaded once per
// run and treated as immutable.
type RuleSet struct {
	ApplyLabel string `json:"apply_label"`
	Rules      []Rule `json:"rules"`
}

// BusinessLabel returns the label name used to mark replied originals.
func (rs *RuleSet) BusinessLabel() string {
	if rs.ApplyLabel != "" {
		return rs.ApplyLabel
	}
	return DefaultApplyLabel
}

// FileStore loads rule sets from JSON files in a directory. An account
// named alice@example.com reads rules_alice_example_com.json when present,
// otherwise the shared rules.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Load(account config.AccountKey) (*RuleSet, error) {
	if !account.IsDefault() {
		candidate := filepath.Join(s.dir, fmt.Sprintf("rules_%s.json", account.Safe()))
		if _, err := os.Stat(candidate); err == nil {
			return s.loadFile(candidate)
		}
	}
	return s.loadFile(filepath.Join(s.dir, "rules.json"))
}

func (s *FileStore) loadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}
	return &rs, nil
}
