package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultTimezone    = "Asia/Singapore"
	defaultCredentials = "credentials.json"
	defaultDataDir     = "data"
)

// AccountKey identifies one configured mailbox account. The empty key is
// the single default account. Collaborators resolve it to token/rule/state
// file locations; the core never does path mangling itself.
type AccountKey string

// IsDefault reports whether this is the unnamed single-account setup.
func (a AccountKey) IsDefault() bool {
	return a == ""
}

func (a AccountKey) String() string {
	if a == "" {
		return "default"
	}
	return string(a)
}

// Safe returns a filesystem-safe form of the account name with every
// non-alphanumeric rune mapped to an underscore.
func (a AccountKey) Safe() string {
	var b strings.Builder
	for _, r := range string(a) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Settings is the full configuration surface, resolved once at process
// start and passed down as plain values. Nothing re-reads the environment
// mid-run.
type Settings struct {
	Timezone        *time.Location
	IncludeLabels   []string
	SkipSenders     []string
	DryRun          bool
	DateOverride    string // YYYY-MM-DD, empty means today
	Accounts        []AccountKey
	CredentialsFile string
	TokenDir        string
	RulesDir        string
	StateDir        string
	TemplatesDir    string
}

// FromEnv builds Settings from the process environment. Callers are
// expected to have loaded .env beforehand (godotenv in the command layer).
func FromEnv() (*Settings, error) {
	tzName := envOr("TIMEZONE", defaultTimezone)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}

	s := &Settings{
		Timezone:        loc,
		IncludeLabels:   splitList(envOr("INCLUDE_LABELS", "INBOX")),
		SkipSenders:     lowerAll(splitList(os.Getenv("SKIP_SENDERS"))),
		DryRun:          strings.EqualFold(os.Getenv("DRY_RUN"), "true"),
		Accounts:        ParseAccounts(os.Getenv("ACCOUNTS")),
		CredentialsFile: envOr("GOOGLE_CREDENTIALS_FILE", defaultCredentials),
		TokenDir:        envOr("TOKEN_DIR", "."),
		RulesDir:        envOr("RULES_DIR", defaultDataDir),
		StateDir:        envOr("STATE_DIR", defaultDataDir),
		TemplatesDir:    envOr("TEMPLATES_DIR", "."),
	}
	return s, nil
}

// Validate checks the resolved settings once, before any account runs.
func (s *Settings) Validate() error {
	if s.Timezone == nil {
		return fmt.Errorf("timezone not resolved")
	}
	if s.DateOverride != "" {
		if _, err := time.ParseInLocation("2006-01-02", s.DateOverride, s.Timezone); err != nil {
			return fmt.Errorf("invalid date override %q: %w", s.DateOverride, err)
		}
	}
	if len(s.Accounts) == 0 {
		// Single default account keeps the pre-multi-account layout working.
		s.Accounts = []AccountKey{""}
	}
	return nil
}

// AsOfDate resolves the run's reference date in the configured zone.
func (s *Settings) AsOfDate() (time.Time, error) {
	if s.DateOverride != "" {
		return time.ParseInLocation("2006-01-02", s.DateOverride, s.Timezone)
	}
	return time.Now().In(s.Timezone), nil
}

// ParseAccounts splits a comma-separated account list, dropping blanks.
func ParseAccounts(raw string) []AccountKey {
	var accounts []AccountKey
	for _, part := range splitList(raw) {
		accounts = append(accounts, AccountKey(part))
	}
	return accounts
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.ToLower(s)
	}
	return out
}
