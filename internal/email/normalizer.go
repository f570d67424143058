// Package email turns raw RFC 5322 payloads into the inbound message shape the
// lead workflow consumes.
package email

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

const (
	PreviewLength = 160
	UnknownSender = "unknown@broccoli.com"
)

// Mailbox identifies the inbox that raw payloads are attributed to.
type Mailbox struct {
	InboxID        string
	OrganizationID string
	PodID          string
}

type Normalizer struct {
	mailbox Mailbox
	now     func() time.Time
	newID   func() string
}

func NewNormalizer(mailbox Mailbox) *Normalizer {
	return &Normalizer{
		mailbox: mailbox,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
}

// Parse normalizes raw. Parse failures are returned as-is; nothing here retries.
func (n *Normalizer) Parse(raw string) (*entity.InboundMessage, error) {
	env, err := enmime.ReadEnvelope(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse raw email: %w", err)
	}

	now := n.now()
	timestamp := now
	if d := env.GetHeader("Date"); d != "" {
		if parsed, err := mail.ParseDate(d); err == nil {
			timestamp = parsed.UTC()
		}
	}

	messageID := strings.TrimSpace(env.GetHeader("Message-ID"))
	if messageID == "" {
		messageID = n.newID()
	}

	threadID := firstNonEmpty(
		strings.TrimSpace(env.GetHeader("In-Reply-To")),
		strings.TrimSpace(env.GetHeader("Thread-Index")),
		messageID,
	)

	size := len(raw)
	msg := &entity.InboundMessage{
		CreatedAt:      timestamp,
		ExtractedHTML:  optional(env.HTML),
		ExtractedText:  optional(env.Text),
		From:           sender(env),
		FromText:       optional(env.GetHeader("From")),
		HTML:           optional(env.HTML),
		InboxID:        n.mailbox.InboxID,
		Labels:         []string{},
		MessageID:      messageID,
		OrganizationID: n.mailbox.OrganizationID,
		PodID:          n.mailbox.PodID,
		Size:           &size,
		SMTPID:         optional(env.GetHeader("X-SMTP-ID")),
		Subject:        optional(env.GetHeader("Subject")),
		Text:           optional(env.Text),
		ThreadID:       threadID,
		Timestamp:      timestamp,
		To:             recipients(env),
		UpdatedAt:      now,
	}

	preview := truncate(previewSource(env), PreviewLength)
	msg.Preview = &preview

	for _, perr := range env.Errors {
		logger.Debug("email parser warning", zap.String("messageId", messageID), zap.String("warning", perr.Error()))
	}
	logger.Info("Parsed incoming email", zap.String("messageId", messageID), zap.String("from", msg.From))

	return msg, nil
}

// previewSource falls back to the subject only when the message carries no
// text body part; an empty text part gives an empty preview.
func previewSource(env *enmime.Envelope) string {
	if env.Text != "" || env.HTML != "" {
		return env.Text
	}
	if env.Root != nil && env.Root.BreadthMatchFirst(func(p *enmime.Part) bool {
		return p.ContentType == "text/plain" || p.ContentType == "text/html"
	}) != nil {
		return ""
	}
	return env.GetHeader("Subject")
}

func sender(env *enmime.Envelope) string {
	addrs, err := env.AddressList("From")
	if err == nil && len(addrs) > 0 {
		if addrs[0].Address != "" {
			return addrs[0].Address
		}
		if addrs[0].Name != "" {
			return addrs[0].Name
		}
	}
	return UnknownSender
}

func recipients(env *enmime.Envelope) []string {
	out := []string{}
	addrs, err := env.AddressList("To")
	if err != nil {
		return out
	}
	for _, a := range addrs {
		if v := firstNonEmpty(a.Address, a.Name); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
