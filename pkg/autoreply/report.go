package autoreply

import (
	"fmt"

	"github.com/mailops/autoreply/pkg/config"
)

// Status classifies the outcome of handling one candidate message.
type Status string

const (
	StatusSkipped    Status = "skipped"
	StatusReplied    Status = "replied"
	StatusTagged     Status = "tagged"
	StatusMarkedRead Status = "marked-read"
	StatusNoAction   Status = "no-action"
	StatusError      Status = "error"
	// StatusAnomaly flags a reply that was delivered but whose ledger
	// write failed; the next run may attempt a resend, so operators need
	// to reconcile these by hand.
	StatusAnomaly Status = "anomaly"
)

// Decision records what happened to one message, with enough context to
// diagnose failures (thread, sender, subject).
type Decision struct {
	MessageID string
	ThreadID  string
	Sender    string
	Subject   string
	Status    Status
	Detail    string
	DryRun    bool
	Err       error
}

func (d Decision) String() string {
	base := fmt.Sprintf("%s message=%s thread=%s sender=%s subject=%q",
		d.Status, d.MessageID, d.ThreadID, d.Sender, d.Subject)
	if d.Detail != "" {
		base += " detail=" + d.Detail
	}
	if d.Err != nil {
		base += " error=" + d.Err.Error()
	}
	return base
}

// Report aggregates one account's run. Err is set when the run aborted
// before or during candidate listing; per-message failures live in
// Decisions instead.
type Report struct {
	Account   config.AccountKey
	Query     string
	Decisions []Decision
	Err       error
}

func (r *Report) add(d Decision) {
	r.Decisions = append(r.Decisions, d)
}

// Count returns how many decisions carry the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Status == status {
			n++
		}
	}
	return n
}

// Summary is a one-line roll-up in the processed/skipped/failed style.
func (r *Report) Summary() string {
	return fmt.Sprintf("account=%s replied=%d tagged=%d marked_read=%d skipped=%d no_action=%d errors=%d anomalies=%d",
		r.Account,
		r.Count(StatusReplied),
		r.Count(StatusTagged),
		r.Count(StatusMarkedRead),
		r.Count(StatusSkipped),
		r.Count(StatusNoAction),
		r.Count(StatusError),
		r.Count(StatusAnomaly))
}
