package entity

import "time"

// InboundMessage is an email normalized to the AgentMail message shape,
// whether it arrived pre-parsed by webhook or as a raw payload.
type InboundMessage struct {
	CreatedAt      time.Time `json:"created_at" validate:"required"`
	ExtractedHTML  *string   `json:"extracted_html,omitempty"`
	ExtractedText  *string   `json:"extracted_text,omitempty"`
	From           string    `json:"from" validate:"required"`
	FromText       *string   `json:"from_,omitempty"`
	HTML           *string   `json:"html,omitempty"`
	InboxID        string    `json:"inbox_id" validate:"required"`
	Labels         []string  `json:"labels" validate:"required"`
	MessageID      string    `json:"message_id" validate:"required"`
	OrganizationID string    `json:"organization_id" validate:"required"`
	PodID          string    `json:"pod_id" validate:"required"`
	Preview        *string   `json:"preview,omitempty"`
	Size           *int      `json:"size,omitempty"`
	SMTPID         *string   `json:"smtp_id,omitempty"`
	Subject        *string   `json:"subject,omitempty"`
	Text           *string   `json:"text,omitempty"`
	ThreadID       string    `json:"thread_id" validate:"required"`
	Timestamp      time.Time `json:"timestamp" validate:"required"`
	To             []string  `json:"to" validate:"required"`
	UpdatedAt      time.Time `json:"updated_at" validate:"required"`
}

// Question is the text handed to the classification prompt.
func (m InboundMessage) Question() string {
	for _, v := range []*string{m.ExtractedText, m.Text, m.ExtractedHTML} {
		if v != nil {
			return *v
		}
	}
	return ""
}

type InboundThread struct {
	CreatedAt         time.Time `json:"created_at" validate:"required"`
	InboxID           string    `json:"inbox_id" validate:"required"`
	Labels            []string  `json:"labels" validate:"required"`
	LastMessageID     string    `json:"last_message_id" validate:"required"`
	MessageCount      int       `json:"message_count"`
	OrganizationID    string    `json:"organization_id" validate:"required"`
	PodID             string    `json:"pod_id" validate:"required"`
	Preview           *string   `json:"preview,omitempty"`
	ReceivedTimestamp time.Time `json:"received_timestamp" validate:"required"`
	Recipients        []string  `json:"recipients" validate:"required"`
	Senders           []string  `json:"senders" validate:"required"`
	Size              *int      `json:"size,omitempty"`
	Subject           *string   `json:"subject,omitempty"`
	ThreadID          string    `json:"thread_id" validate:"required"`
	Timestamp         time.Time `json:"timestamp" validate:"required"`
	UpdatedAt         time.Time `json:"updated_at" validate:"required"`
}

// InboundEvent is the AgentMail webhook envelope.
type InboundEvent struct {
	BodyIncluded *bool          `json:"body_included,omitempty"`
	EventID      string         `json:"event_id" validate:"required"`
	EventType    string         `json:"event_type" validate:"required"`
	Message      InboundMessage `json:"message"`
	Thread       InboundThread  `json:"thread"`
	Type         string         `json:"type" validate:"required"`
}

// IncludesBody defaults to true when the field is absent.
func (e InboundEvent) IncludesBody() bool {
	return e.BodyIncluded == nil || *e.BodyIncluded
}
