package entity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrLeadNotFound = errors.New("lead not found")

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
	LeadStatusArchived  LeadStatus = "archived"
)

// LeadStatuses is the full set, in the order the dashboard shows them.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusConverted,
	LeadStatusLost,
	LeadStatusArchived,
}

func (s LeadStatus) Valid() bool {
	for _, v := range LeadStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type ChatChannel string

const (
	ChatChannelSMS      ChatChannel = "sms"
	ChatChannelEmail    ChatChannel = "email"
	ChatChannelWhatsApp ChatChannel = "whatsapp"
	ChatChannelPhone    ChatChannel = "phone"
	ChatChannelWeb      ChatChannel = "web"
	ChatChannelOther    ChatChannel = "other"
)

func (c ChatChannel) Valid() bool {
	switch c {
	case ChatChannelSMS, ChatChannelEmail, ChatChannelWhatsApp, ChatChannelPhone, ChatChannelWeb, ChatChannelOther:
		return true
	}
	return false
}

// Lead mirrors a row of broccoli.leads. Nullable columns are pointers so they
// serialize as JSON null.
type Lead struct {
	ID              string          `json:"id"`
	CustomerName    *string         `json:"customer_name"`
	CustomerNumber  *string         `json:"customer_number"`
	CustomerAddress *string         `json:"customer_address"`
	Provider        string          `json:"provider"`
	ProviderLeadID  *string         `json:"provider_lead_id"`
	OrgID           string          `json:"org_id"`
	Status          LeadStatus      `json:"status"`
	LeadRawData     json.RawMessage `json:"lead_raw_data"`
	ChatChannel     *ChatChannel    `json:"chat_channel"`
	ProcessingError *string         `json:"processing_error"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewLead fills the generated columns. Status defaults to new and the channel
// to email, the only channel the intake pipeline receives today.
func NewLead(provider, orgID string) *Lead {
	now := time.Now().UTC()
	channel := ChatChannelEmail
	return &Lead{
		ID:          uuid.New().String(),
		Provider:    provider,
		OrgID:       orgID,
		Status:      LeadStatusNew,
		ChatChannel: &channel,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (l *Lead) Validate() error {
	if l.Provider == "" {
		return errors.New("provider is required")
	}
	if l.OrgID == "" {
		return errors.New("org_id is required")
	}
	if !l.Status.Valid() {
		return errors.New("status is invalid")
	}
	if l.ChatChannel != nil && !l.ChatChannel.Valid() {
		return errors.New("chat_channel is invalid")
	}
	return nil
}

type LeadFilter struct {
	Status *LeadStatus
	Limit  int
	Offset int
}

type LeadRepositoryInterface interface {
	// Create inserts the lead unless a row with the same provider and
	// provider lead id already exists, in which case that row's id is
	// written back into lead and created is false.
	Create(ctx context.Context, lead *Lead) (created bool, err error)
	List(ctx context.Context, filter LeadFilter) ([]Lead, int, error)
	FindByID(ctx context.Context, id string) (*Lead, error)
	UpdateStatus(ctx context.Context, id string, status LeadStatus) (*Lead, error)
}
