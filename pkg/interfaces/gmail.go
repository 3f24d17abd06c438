package interfaces

import (
	"context"

	"github.com/mailops/autoreply/pkg/config"
)

// SystemLabelUnread is the provider's unread flag, modelled as a system
// label id.
const SystemLabelUnread = "UNREAD"

// MessageRef is a lightweight listing entry returned by the mailbox query.
// The full message is fetched separately per candidate.
type MessageRef struct {
	ID       string
	ThreadID string
}

// Message is the immutable per-run snapshot of a fetched mail. It is built
// once from the provider payload and never persisted.
type Message struct {
	ID          string
	ThreadID    string
	Subject     string
	From        string // raw From header
	SenderName  string
	SenderEmail string
	Body        string // plain text part, HTML as fallback
	Headers     map[string]string
}

// MailboxGateway is the narrow mailbox surface the pipeline runs against.
// All label and read-state mutations funnel through ModifyMessage so the
// executor's side-effect surface stays small and retry-safe.
type MailboxGateway interface {
	ListUnreadSince(ctx context.Context, query string, includeLabels []string) ([]MessageRef, error)
	GetFullMessage(ctx context.Context, messageID string) (*Message, error)
	GetThreadLabels(ctx context.Context, threadID string) (map[string]bool, error)
	EnsureLabel(ctx context.Context, name string) (string, error)
	SendReply(ctx context.Context, threadID, to, subject, bodyText, inReplyTo string) (string, error)
	ModifyMessage(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error
}

// GatewayConnector authenticates one account and hands back a gateway bound
// to that account's credentials. Accounts never share tokens.
type GatewayConnector interface {
	Connect(ctx context.Context, account config.AccountKey) (MailboxGateway, error)
}
