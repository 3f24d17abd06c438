package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mailops/autoreply/pkg/config"
	"github.com/mailops/autoreply/pkg/interfaces"
)

// Connector builds authenticated per-account gateways. Each account keeps
// its own token file so credentials never interleave.
type Connector struct {
	credentialsFile string
	tokenDir        string
	logger          interfaces.Logger
}

func NewConnector(credentialsFile, tokenDir string, logger interfaces.Logger) *Connector {
	return &Connector{
		credentialsFile: credentialsFile,
		tokenDir:        tokenDir,
		logger:          logger,
	}
}

func (c *Connector) tokenPath(account config.AccountKey) string {
	if account.IsDefault() {
		return filepath.Join(c.tokenDir, "token.json")
	}
	return filepath.Join(c.tokenDir, fmt.Sprintf("token_%s.json", account.Safe()))
}

// Connect authenticates the account and returns a gateway bound to it.
func (c *Connector) Connect(ctx context.Context, account config.AccountKey) (interfaces.MailboxGateway, error) {
	b, err := os.ReadFile(c.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	tokenFile := c.tokenPath(account)
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		// No cached token yet, run the OAuth flow once.
		tok, err = getTokenFromWeb(oauthConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
		c.logger.Info(fmt.Sprintf("Saved OAuth token for %s to %s", account, tokenFile))
	}

	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	authed := oauthConfig.Client(ctx, tok)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(authed))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service for %s: %w", account, err)
	}

	return &Client{service: srv, userID: "me"}, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func getTokenFromWeb(oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := oauthConfig.Exchange(context.TODO(), authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Client implements interfaces.MailboxGateway on top of the Gmail API.
type Client struct {
	service *gmail.Service
	userID  string
}

// ListUnreadSince runs the query and pages through the full candidate list.
func (c *Client) ListUnreadSince(ctx context.Context, query string, includeLabels []string) ([]interfaces.MessageRef, error) {
	var refs []interfaces.MessageRef
	pageToken := ""

	for {
		call := c.service.Users.Messages.List(c.userID).Q(query)
		if len(includeLabels) > 0 {
			call = call.LabelIds(includeLabels...)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list messages: %w", err)
		}

		for _, m := range resp.Messages {
			refs = append(refs, interfaces.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return refs, nil
}

// GetFullMessage fetches one message and flattens it into the pipeline's
// snapshot shape: header map, parsed sender, plain-text body with HTML as
// fallback.
func (c *Client) GetFullMessage(ctx context.Context, messageID string) (*interfaces.Message, error) {
	msgCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := c.service.Users.Messages.Get(c.userID, messageID).Format("full").Context(msgCtx).Do()
	if err != nil {
		if !isRetryableError(err) {
			return nil, fmt.Errorf("unable to retrieve message %s: %w", messageID, err)
		}
		time.Sleep(2 * time.Second)
		msgCtx2, cancel2 := context.WithTimeout(ctx, 30*time.Second)
		defer cancel2()
		msg, err = c.service.Users.Messages.Get(c.userID, messageID).Format("full").Context(msgCtx2).Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve message %s after retry: %w", messageID, err)
		}
	}

	out := &interfaces.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Headers:  make(map[string]string),
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			out.Headers[header.Name] = header.Value
			switch strings.ToLower(header.Name) {
			case "subject":
				out.Subject = header.Value
			case "from":
				out.From = header.Value
			}
		}

		plain, html := extractBodies(msg.Payload)
		if plain != "" {
			out.Body = plain
		} else {
			out.Body = html
		}
	}

	out.SenderName, out.SenderEmail = parseSender(out.From)

	return out, nil
}

// parseSender splits a From header into display name and address.
func parseSender(from string) (string, string) {
	if from == "" {
		return "", ""
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		// Bare or malformed header, use it as the address verbatim.
		return "", strings.TrimSpace(from)
	}
	return strings.TrimSpace(addr.Name), strings.TrimSpace(addr.Address)
}

// extractBodies walks the MIME tree collecting the first text/plain and
// text/html parts.
func extractBodies(payload *gmail.MessagePart) (plain, html string) {
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			content := string(data)
			if strings.HasPrefix(payload.MimeType, "text/html") && html == "" {
				html = content
			} else if strings.HasPrefix(payload.MimeType, "text/plain") && plain == "" {
				plain = content
			}
		}
	}

	for _, part := range payload.Parts {
		p, h := extractBodies(part)
		if plain == "" {
			plain = p
		}
		if html == "" {
			html = h
		}
	}

	return plain, html
}

// GetThreadLabels returns the union of label ids across the thread's
// messages, fetched in minimal format.
func (c *Client) GetThreadLabels(ctx context.Context, threadID string) (map[string]bool, error) {
	thr, err := c.service.Users.Threads.Get(c.userID, threadID).Format("minimal").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve thread %s: %w", threadID, err)
	}

	labels := make(map[string]bool)
	for _, msg := range thr.Messages {
		for _, id := range msg.LabelIds {
			labels[id] = true
		}
	}
	return labels, nil
}

// EnsureLabel returns the id of the named user label, creating it if
// missing. Get-or-create keeps repeated runs idempotent.
func (c *Client) EnsureLabel(ctx context.Context, name string) (string, error) {
	resp, err := c.service.Users.Labels.List(c.userID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to list labels: %w", err)
	}
	for _, lb := range resp.Labels {
		if lb.Name == name {
			return lb.Id, nil
		}
	}

	created, err := c.service.Users.Labels.Create(c.userID, &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create label %q: %w", name, err)
	}
	return created.Id, nil
}

// SendReply sends a plain-text reply threaded onto the original
// conversation. inReplyTo is the original Message-Id header value and may
// be empty.
func (c *Client) SendReply(ctx context.Context, threadID, to, subject, bodyText, inReplyTo string) (string, error) {
	var sb strings.Builder
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + encodeHeader(subject) + "\r\n")
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	if inReplyTo != "" {
		sb.WriteString("In-Reply-To: " + inReplyTo + "\r\n")
		sb.WriteString("References: " + inReplyTo + "\r\n")
	}
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(bodyText)

	raw := base64.URLEncoding.EncodeToString([]byte(sb.String()))
	sent, err := c.service.Users.Messages.Send(c.userID, &gmail.Message{
		Raw:      raw,
		ThreadId: threadID,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to send reply on thread %s: %w", threadID, err)
	}
	return sent.Id, nil
}

// encodeHeader RFC 2047-encodes a header value when it carries non-ASCII
// text, which reply subjects regularly do.
func encodeHeader(value string) string {
	for _, r := range value {
		if r > 127 {
			return mime2047Encode(value)
		}
	}
	return value
}

func mime2047Encode(value string) string {
	return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(value)) + "?="
}

// ModifyMessage applies and removes label ids on one message. This is the
// single mutation primitive for labels and read-state.
func (c *Client) ModifyMessage(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error {
	_, err := c.service.Users.Messages.Modify(c.userID, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    addLabelIDs,
		RemoveLabelIds: removeLabelIDs,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to modify message %s: %w", messageID, err)
	}
	return nil
}

// isRetryableError reports whether a Gmail API error is worth one more try.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}

	return strings.Contains(err.Error(), "timeout") ||
		strings.Contains(err.Error(), "deadline exceeded") ||
		strings.Contains(err.Error(), "connection reset")
}
