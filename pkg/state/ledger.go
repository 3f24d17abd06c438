// Package state holds the durable per-account record of threads that have
// already received an automated reply. The record is loaded fully at run
// start and rewritten fully on every save; that is correct only under the
// single-writer model one orchestrator run per account guarantees.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mailops/autoreply/pkg/config"
)

// Ledger is the in-memory set of replied thread identifiers. Entries are
// never removed automatically.
type Ledger struct {
	threads map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{threads: make(map[string]struct{})}
}

// HasReplied reports whether a thread has ever received an automated reply.
func (l *Ledger) HasReplied(threadID string) bool {
	_, ok := l.threads[threadID]
	return ok
}

// RecordReplied marks a thread as replied. Persistence is the store's job;
// callers save immediately after a confirmed send.
func (l *Ledger) RecordReplied(threadID string) {
	l.threads[threadID] = struct{}{}
}

// Len returns the number of recorded threads.
func (l *Ledger) Len() int {
	return len(l.threads)
}

// ThreadIDs returns the recorded thread identifiers in sorted order, for
// stable on-disk output.
func (l *Ledger) ThreadIDs() []string {
	ids := make([]string, 0, len(l.threads))
	for id := range l.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ledgerFile is the on-disk shape: {"replied_threads": [...]}.
type ledgerFile struct {
	RepliedThreads []string `json:"replied_threads"`
}

// FileStore keeps one JSON ledger file per account in a directory:
// state.json for the default account, state_<safe>.json otherwise.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(account config.AccountKey) string {
	if account.IsDefault() {
		return filepath.Join(s.dir, "state.json")
	}
	return filepath.Join(s.dir, fmt.Sprintf("state_%s.json", account.Safe()))
}

// Load reads the account's ledger. A missing file yields an empty ledger.
func (s *FileStore) Load(account config.AccountKey) (*Ledger, error) {
	data, err := os.ReadFile(s.path(account))
	if err != nil {
		if os.IsNotExist(err) {
			return NewLedger(), nil
		}
		return nil, fmt.Errorf("failed to read ledger for %s: %w", account, err)
	}
	var f ledgerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse ledger for %s: %w", account, err)
	}
	ledger := NewLedger()
	for _, id := range f.RepliedThreads {
		ledger.RecordReplied(id)
	}
	return ledger, nil
}

// Save rewrites the account's ledger file in full.
func (s *FileStore) Save(account config.AccountKey, ledger *Ledger) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	data, err := json.MarshalIndent(ledgerFile{RepliedThreads: ledger.ThreadIDs()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger for %s: %w", account, err)
	}
	if err := os.WriteFile(s.path(account), data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger for %s: %w", account, err)
	}
	return nil
}
