package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osteele/liquid"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

const leadAlertTemplate = `<h2>New lead{% if customer_name != "" %} from {{ customer_name | escape }}{% endif %}</h2>
<table>
  <tr><td>Phone</td><td>{{ customer_number | default: "not provided" | escape }}</td></tr>
  <tr><td>Address</td><td>{{ customer_address | default: "not provided" | escape }}</td></tr>
  <tr><td>Provider</td><td>{{ provider | escape }}</td></tr>
  <tr><td>Status</td><td>{{ status }}</td></tr>
  <tr><td>Received</td><td>{{ created_at }}</td></tr>
</table>
{% if processing_error != "" %}<p><strong>Note:</strong> {{ processing_error | escape }}</p>{% endif %}
{% if dashboard_url != "" %}<p><a href="{{ dashboard_url }}/dashboard/leads">Open the leads dashboard</a></p>{% endif %}`

// NewEmailSender returns a notifier that mails every new lead to alertTo.
func NewEmailSender(host string, port int, user, password, from, alertTo string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		AlertTo:  alertTo,
		dialer:   gomail.NewDialer(host, port, user, password),
	}
}

func (s *EmailSender) NotifyNewLead(ctx context.Context, lead *entity.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := RenderLeadAlert(lead, s.DashboardURL)
	if err != nil {
		return err
	}

	name := deref(lead.CustomerName)
	subject := "New lead received"
	if name != "" {
		subject = fmt.Sprintf("New lead: %s", name)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", splitRecipients(s.AlertTo)...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send lead alert via SMTP: %w", err)
	}

	logger.Info("New lead alert sent", zap.String("leadId", lead.ID), zap.String("to", s.AlertTo))
	return nil
}

func RenderLeadAlert(lead *entity.Lead, dashboardURL string) (string, error) {
	engine := liquid.NewEngine()
	data := leadAlertData(
		lead.ID,
		deref(lead.CustomerName),
		deref(lead.CustomerNumber),
		deref(lead.CustomerAddress),
		lead.Provider,
		string(lead.Status),
		deref(lead.ProcessingError),
		lead.CreatedAt.Format(time.RFC1123),
		dashboardURL,
	)

	out, err := engine.ParseAndRenderString(leadAlertTemplate, data)
	if err != nil {
		return "", fmt.Errorf("render lead alert: %w", err)
	}
	return out, nil
}

func splitRecipients(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
