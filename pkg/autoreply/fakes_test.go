package autoreply

import (
	"context"
	"fmt"

	"github.com/mailops/autoreply/pkg/config"
	"github.com/mailops/autoreply/pkg/interfaces"
	"github.com/mailops/autoreply/pkg/state"
)

type nopLogger struct{}

func (nopLogger) Info(string)  {}
func (nopLogger) Error(string) {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Debug(string) {}

type sentReply struct {
	threadID  string
	to        string
	subject   string
	body      string
	inReplyTo string
}

type modification struct {
	messageID string
	add       []string
	remove    []string
}

// fakeGateway records every mutation so tests can assert on exactly what
// side effects were (or were not) issued.
type fakeGateway struct {
	refs         []interfaces.MessageRef
	listErr      error
	messages     map[string]*interfaces.Message
	getErr       map[string]error
	threadLabels map[string]map[string]bool
	sendErr      error

	sent          []sentReply
	modifications []modification
	ensuredLabels []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		messages:     make(map[string]*interfaces.Message),
		getErr:       make(map[string]error),
		threadLabels: make(map[string]map[string]bool),
	}
}

// labelID is the deterministic id EnsureLabel hands out for a name.
func labelID(name string) string {
	return "id-" + name
}

func (g *fakeGateway) ListUnreadSince(ctx context.Context, query string, includeLabels []string) ([]interfaces.MessageRef, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.refs, nil
}

func (g *fakeGateway) GetFullMessage(ctx context.Context, messageID string) (*interfaces.Message, error) {
	if err := g.getErr[messageID]; err != nil {
		return nil, err
	}
	msg, ok := g.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("no such message %s", messageID)
	}
	return msg, nil
}

func (g *fakeGateway) GetThreadLabels(ctx context.Context, threadID string) (map[string]bool, error) {
	labels, ok := g.threadLabels[threadID]
	if !ok {
		return map[string]bool{}, nil
	}
	return labels, nil
}

func (g *fakeGateway) EnsureLabel(ctx context.Context, name string) (string, error) {
	g.ensuredLabels = append(g.ensuredLabels, name)
	return labelID(name), nil
}

func (g *fakeGateway) SendReply(ctx context.Context, threadID, to, subject, bodyText, inReplyTo string) (string, error) {
	if g.sendErr != nil {
		return "", g.sendErr
	}
	g.sent = append(g.sent, sentReply{threadID: threadID, to: to, subject: subject, body: bodyText, inReplyTo: inReplyTo})
	return fmt.Sprintf("sent-%d", len(g.sent)), nil
}

func (g *fakeGateway) ModifyMessage(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error {
	g.modifications = append(g.modifications, modification{messageID: messageID, add: addLabelIDs, remove: removeLabelIDs})
	return nil
}

type fakeRenderer struct {
	body string
	err  error

	lastRef     string
	lastContext map[string]string
}

func (r *fakeRenderer) Render(ref string, context map[string]string) (string, error) {
	r.lastRef = ref
	r.lastContext = context
	if r.err != nil {
		return "", r.err
	}
	return r.body, nil
}

// fakeLedgerStore keeps ledgers in memory and can be told to fail saves.
type fakeLedgerStore struct {
	ledgers map[config.AccountKey]*state.Ledger
	saveErr error
	saves   int
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{ledgers: make(map[config.AccountKey]*state.Ledger)}
}

func (s *fakeLedgerStore) Load(account config.AccountKey) (*state.Ledger, error) {
	if l, ok := s.ledgers[account]; ok {
		return l, nil
	}
	l := state.NewLedger()
	s.ledgers[account] = l
	return l, nil
}

func (s *fakeLedgerStore) Save(account config.AccountKey, ledger *state.Ledger) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.ledgers[account] = ledger
	return nil
}
