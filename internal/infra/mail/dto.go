package mail

import "gopkg.in/gomail.v2"

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	AlertTo  string

	// DashboardURL is the API base URL linked from alerts; empty omits the link.
	DashboardURL string

	dialer Dialer
}

type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// leadAlertData is the liquid binding set for the new-lead template.
func leadAlertData(id, name, number, address, provider, status, processingError, createdAt, dashboardURL string) map[string]any {
	return map[string]any{
		"id":               id,
		"customer_name":    name,
		"customer_number":  number,
		"customer_address": address,
		"provider":         provider,
		"status":           status,
		"processing_error": processingError,
		"created_at":       createdAt,
		"dashboard_url":    dashboardURL,
	}
}
