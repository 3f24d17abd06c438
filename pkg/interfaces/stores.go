package interfaces

import (
	"github.com/mailops/autoreply/pkg/config"
	"github.com/mailops/autoreply/pkg/rules"
	"github.com/mailops/autoreply/pkg/state"
)

// RuleStore loads the rule set for an account, falling back to the default
// set when no account-specific one exists.
type RuleStore interface {
	Load(account config.AccountKey) (*rules.RuleSet, error)
}

// LedgerStore persists the replied-thread ledger for an account. Load on a
// missing record yields an empty ledger; Save rewrites the record in full.
type LedgerStore interface {
	Load(account config.AccountKey) (*state.Ledger, error)
	Save(account config.AccountKey, ledger *state.Ledger) error
}

// Renderer turns a template reference plus a string context into the reply
// body text.
type Renderer interface {
	Render(ref string, context map[string]string) (string, error)
}
