package autoreply

import (
	"context"
	"fmt"

	"github.com/mailops/autoreply/pkg/config"
	"github.com/mailops/autoreply/pkg/interfaces"
	"github.com/mailops/autoreply/pkg/rules"
	"github.com/mailops/autoreply/pkg/state"
)

// Labels applied to one-star complaints alongside clearing the unread flag.
const (
	LowRatingLabel = "Negative Review"
	OneStarLabel   = "One Star"
)

// LedgerWriteError marks the consistency gap left when a reply went out
// but recording it failed: the send is externally visible, the ledger is
// not, and a rerun may reply again.
type LedgerWriteError struct {
	ThreadID string
	Err      error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("reply sent on thread %s but ledger write failed: %v", e.ThreadID, e.Err)
}

func (e *LedgerWriteError) Unwrap() error {
	return e.Err
}

// Executor performs the external side effects for one classification
// outcome and commits the ledger after a confirmed send. In dry-run mode
// every would-be mutation becomes a described intent instead, and the
// ledger is never touched.
type Executor struct {
	gateway      interfaces.MailboxGateway
	renderer     interfaces.Renderer
	ledger       *state.Ledger
	ledgerStore  interfaces.LedgerStore
	account      config.AccountKey
	applyLabelID string
	dryRun       bool
	logger       interfaces.Logger
}

func NewExecutor(
	gateway interfaces.MailboxGateway,
	renderer interfaces.Renderer,
	ledger *state.Ledger,
	ledgerStore interfaces.LedgerStore,
	account config.AccountKey,
	applyLabelID string,
	dryRun bool,
	logger interfaces.Logger,
) *Executor {
	return &Executor{
		gateway:      gateway,
		renderer:     renderer,
		ledger:       ledger,
		ledgerStore:  ledgerStore,
		account:      account,
		applyLabelID: applyLabelID,
		dryRun:       dryRun,
		logger:       logger,
	}
}

// Execute dispatches one outcome against one message and returns the
// decision record for the report.
func (e *Executor) Execute(ctx context.Context, outcome rules.Outcome, msg *interfaces.Message) Decision {
	d := Decision{
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		Sender:    msg.SenderEmail,
		Subject:   msg.Subject,
		DryRun:    e.dryRun,
	}

	switch outcome.Action {
	case rules.ActionReply:
		return e.executeReply(ctx, outcome, msg, d)
	case rules.ActionTagLowRating:
		return e.executeTagLowRating(ctx, outcome, msg, d)
	case rules.ActionMarkRead:
		return e.executeMarkRead(ctx, outcome, msg, d)
	default:
		d.Status = StatusNoAction
		if outcome.HasRating {
			d.Detail = fmt.Sprintf("rating %d is unhandled", outcome.Rating)
		} else {
			d.Detail = "no rule matched"
		}
		return d
	}
}

func (e *Executor) executeReply(ctx context.Context, outcome rules.Outcome, msg *interfaces.Message, d Decision) Decision {
	body, err := e.renderer.Render(outcome.Template, map[string]string{
		"sender_name":  msg.SenderName,
		"sender_email": msg.SenderEmail,
		"subject":      msg.Subject,
	})
	if err != nil {
		d.Status = StatusError
		d.Err = fmt.Errorf("failed to render template %s: %w", outcome.Template, err)
		return d
	}

	subject := fmt.Sprintf("%sRe: %s", outcome.SubjectPrefix, msg.Subject)
	inReplyTo := originalMessageID(msg.Headers)

	if e.dryRun {
		d.Status = StatusReplied
		d.Detail = fmt.Sprintf("would send %q to %s, label and mark original read", subject, msg.SenderEmail)
		e.logger.Info(fmt.Sprintf("DRY-RUN reply body for %s:\n%s", msg.SenderEmail, body))
		return d
	}

	sentID, err := e.gateway.SendReply(ctx, msg.ThreadID, msg.SenderEmail, subject, body, inReplyTo)
	if err != nil {
		d.Status = StatusError
		d.Err = fmt.Errorf("failed to send reply on thread %s: %w", msg.ThreadID, err)
		return d
	}

	d.Status = StatusReplied
	d.Detail = fmt.Sprintf("sent %s with subject %q", sentID, subject)

	// The reply is out; label failures must not stop the ledger commit or
	// the thread could be replied to twice.
	if err := e.gateway.ModifyMessage(ctx, msg.ID, []string{e.applyLabelID}, []string{interfaces.SystemLabelUnread}); err != nil {
		e.logger.Warn(fmt.Sprintf("Reply sent but labeling original %s failed: %v", msg.ID, err))
		d.Detail += "; labeling original failed"
	}

	e.ledger.RecordReplied(msg.ThreadID)
	if err := e.ledgerStore.Save(e.account, e.ledger); err != nil {
		d.Status = StatusAnomaly
		d.Err = &LedgerWriteError{ThreadID: msg.ThreadID, Err: err}
		return d
	}

	return d
}

func (e *Executor) executeTagLowRating(ctx context.Context, outcome rules.Outcome, msg *interfaces.Message, d Decision) Decision {
	if e.dryRun {
		d.Status = StatusTagged
		d.Detail = fmt.Sprintf("rating %d: would add labels %q and %q and mark read", outcome.Rating, LowRatingLabel, OneStarLabel)
		return d
	}

	lowID, err := e.gateway.EnsureLabel(ctx, LowRatingLabel)
	if err != nil {
		d.Status = StatusError
		d.Err = fmt.Errorf("failed to ensure label %q: %w", LowRatingLabel, err)
		return d
	}
	oneStarID, err := e.gateway.EnsureLabel(ctx, OneStarLabel)
	if err != nil {
		d.Status = StatusError
		d.Err = fmt.Errorf("failed to ensure label %q: %w", OneStarLabel, err)
		return d
	}

	if err := e.gateway.ModifyMessage(ctx, msg.ID, []string{lowID, oneStarID}, []string{interfaces.SystemLabelUnread}); err != nil {
		d.Status = StatusError
		d.Err = fmt.Errorf("failed to tag low-rating message %s: %w", msg.ID, err)
		return d
	}

	d.Status = StatusTagged
	d.Detail = fmt.Sprintf("rating %d: labeled and marked read", outcome.Rating)
	return d
}

func (e *Executor) executeMarkRead(ctx context.Context, outcome rules.Outcome, msg *interfaces.Message, d Decision) Decision {
	if e.dryRun {
		d.Status = StatusMarkedRead
		d.Detail = fmt.Sprintf("rating %d: would mark read", outcome.Rating)
		return d
	}

	if err := e.gateway.ModifyMessage(ctx, msg.ID, nil, []string{interfaces.SystemLabelUnread}); err != nil {
		d.Status = StatusError
		d.Err = fmt.Errorf("failed to mark message %s read: %w", msg.ID, err)
		return d
	}

	d.Status = StatusMarkedRead
	d.Detail = fmt.Sprintf("rating %d: marked read", outcome.Rating)
	return d
}

// originalMessageID finds the Message-Id header under its common spellings.
func originalMessageID(headers map[string]string) string {
	for _, key := range []string{"Message-Id", "Message-ID", "MessageId"} {
		if v, ok := headers[key]; ok && v != "" {
			return v
		}
	}
	return ""
}
