// Package autoreply contains the classification-and-idempotent-action
// pipeline: per-account orchestration, side-effect execution, and the
// decision report. Mailbox access, rule loading, ledger persistence and
// template rendering are collaborators reached through pkg/interfaces.
package autoreply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailops/autoreply/pkg/config"
	"github.com/mailops/autoreply/pkg/interfaces"
	"github.com/mailops/autoreply/pkg/rules"
)

// Runner drives the batch for one or more accounts. Accounts run
// sequentially: each owns its own token and ledger files, and keeping the
// loop single-flight avoids contention on them.
type Runner struct {
	connector   interfaces.GatewayConnector
	ruleStore   interfaces.RuleStore
	ledgerStore interfaces.LedgerStore
	renderer    interfaces.Renderer
	settings    *config.Settings
	logger      interfaces.Logger
}

func NewRunner(
	connector interfaces.GatewayConnector,
	ruleStore interfaces.RuleStore,
	ledgerStore interfaces.LedgerStore,
	renderer interfaces.Renderer,
	settings *config.Settings,
	logger interfaces.Logger,
) *Runner {
	return &Runner{
		connector:   connector,
		ruleStore:   ruleStore,
		ledgerStore: ledgerStore,
		renderer:    renderer,
		settings:    settings,
		logger:      logger,
	}
}

// RunAll processes every configured account in order. One account's total
// failure (for example an authentication failure) is reported and does not
// stop the remaining accounts.
func (r *Runner) RunAll(ctx context.Context) []Report {
	reports := make([]Report, 0, len(r.settings.Accounts))
	for _, account := range r.settings.Accounts {
		r.logger.Info(fmt.Sprintf("Processing account %s", account))
		report := r.RunAccount(ctx, account)
		if report.Err != nil {
			r.logger.Error(fmt.Sprintf("Account %s failed: %v", account, report.Err))
		}
		r.logger.Info(report.Summary())
		reports = append(reports, report)
	}
	return reports
}

// RunAccount executes one full batch pass for a single account.
func (r *Runner) RunAccount(ctx context.Context, account config.AccountKey) Report {
	report := Report{Account: account}

	gateway, err := r.connector.Connect(ctx, account)
	if err != nil {
		report.Err = fmt.Errorf("failed to connect account %s: %w", account, err)
		return report
	}

	return r.runWithGateway(ctx, account, gateway)
}

func (r *Runner) runWithGateway(ctx context.Context, account config.AccountKey, gateway interfaces.MailboxGateway) Report {
	report := Report{Account: account}

	ruleSet, err := r.ruleStore.Load(account)
	if err != nil {
		report.Err = fmt.Errorf("failed to load rules for %s: %w", account, err)
		return report
	}

	ledger, err := r.ledgerStore.Load(account)
	if err != nil {
		report.Err = fmt.Errorf("failed to load ledger for %s: %w", account, err)
		return report
	}

	asOf, err := r.settings.AsOfDate()
	if err != nil {
		report.Err = err
		return report
	}

	businessLabel := ruleSet.BusinessLabel()
	report.Query = BuildQuery(asOf, businessLabel)
	r.logger.Info(fmt.Sprintf("Query for %s: %s (labels %v)", account, report.Query, r.settings.IncludeLabels))

	applyLabelID, err := gateway.EnsureLabel(ctx, businessLabel)
	if err != nil {
		report.Err = fmt.Errorf("failed to ensure label %q: %w", businessLabel, err)
		return report
	}

	refs, err := gateway.ListUnreadSince(ctx, report.Query, r.settings.IncludeLabels)
	if err != nil {
		// A listing failure aborts this account's run; no partial loop.
		report.Err = fmt.Errorf("failed to list candidate messages: %w", err)
		return report
	}
	r.logger.Info(fmt.Sprintf("Found %d candidate messages for %s", len(refs), account))

	executor := NewExecutor(gateway, r.renderer, ledger, r.ledgerStore, account, applyLabelID, r.settings.DryRun, r.logger)

	for _, ref := range refs {
		decision := r.processMessage(ctx, gateway, executor, ledger, ruleSet, applyLabelID, businessLabel, ref)
		r.logDecision(decision)
		report.add(decision)
	}

	return report
}

// processMessage runs the guard chain and, when the message survives it,
// classification and execution. Failures here stay at message granularity.
func (r *Runner) processMessage(
	ctx context.Context,
	gateway interfaces.MailboxGateway,
	executor *Executor,
	ledger ledgerReader,
	ruleSet *rules.RuleSet,
	applyLabelID string,
	businessLabel string,
	ref interfaces.MessageRef,
) Decision {
	d := Decision{MessageID: ref.ID, ThreadID: ref.ThreadID, DryRun: r.settings.DryRun}

	// The query already excludes the business label; this re-check guards
	// against the label landing between query execution and this message.
	if ref.ThreadID != "" {
		labels, err := gateway.GetThreadLabels(ctx, ref.ThreadID)
		if err != nil {
			r.logger.Debug(fmt.Sprintf("Thread label check failed for %s: %v", ref.ThreadID, err))
		} else if labels[applyLabelID] {
			d.Status = StatusSkipped
			d.Detail = fmt.Sprintf("thread already carries label %q", businessLabel)
			return d
		}
	}

	if ledger.HasReplied(ref.ThreadID) {
		d.Status = StatusSkipped
		d.Detail = "thread already replied to"
		return d
	}

	msg, err := gateway.GetFullMessage(ctx, ref.ID)
	if err != nil {
		d.Status = StatusError
		d.Err = fmt.Errorf("failed to fetch message: %w", err)
		return d
	}
	d.Sender = msg.SenderEmail
	d.Subject = msg.Subject

	if skip, needle := r.senderSkipped(msg.SenderEmail); skip {
		d.Status = StatusSkipped
		d.Detail = fmt.Sprintf("sender matches skip entry %q", needle)
		return d
	}

	outcome := rules.Classify(msg.Subject, msg.Body, ruleSet)
	return executor.Execute(ctx, outcome, msg)
}

// senderSkipped checks the configured skip-list with case-insensitive
// substring matching against the sender address.
func (r *Runner) senderSkipped(senderEmail string) (bool, string) {
	lower := strings.ToLower(senderEmail)
	for _, skip := range r.settings.SkipSenders {
		if skip != "" && strings.Contains(lower, skip) {
			return true, skip
		}
	}
	return false, ""
}

func (r *Runner) logDecision(d Decision) {
	switch d.Status {
	case StatusError:
		r.logger.Error(d.String())
	case StatusAnomaly:
		r.logger.Error("LEDGER INCONSISTENCY: " + d.String())
	case StatusSkipped, StatusNoAction:
		r.logger.Debug(d.String())
	default:
		r.logger.Info(d.String())
	}
}

// ledgerReader is the read side of the dedup ledger used by the guard
// chain; the executor owns the write side.
type ledgerReader interface {
	HasReplied(threadID string) bool
}

// BuildQuery selects unread messages without user labels in the
// [yesterday, tomorrow) window around asOf, excluding threads that already
// carry the business label. The window is deliberately wide; the dedup
// ledger, not the query, is what prevents duplicate replies.
func BuildQuery(asOf time.Time, businessLabel string) string {
	start := asOf.AddDate(0, 0, -1).Format("2006/01/02")
	end := asOf.AddDate(0, 0, 1).Format("2006/01/02")
	return fmt.Sprintf("after:%s before:%s is:unread has:nouserlabels -label:%q", start, end, businessLabel)
}
