package entity

type LeadProcessingInput struct {
	EventID  string         `json:"eventId" validate:"required"`
	Message  InboundMessage `json:"message"`
	ThreadID string         `json:"threadId,omitempty"`
	InboxID  string         `json:"inboxId,omitempty"`
}

// ProcessedLead is what the model extracted. Every field is optional; a nil
// field means the model did not provide a usable value.
type ProcessedLead struct {
	Email            *string `json:"email,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	CountryCode      *string `json:"countryCode,omitempty"`
	Address          *string `json:"address,omitempty"`
	ServiceRequested *string `json:"serviceRequested,omitempty"`
}

func (p ProcessedLead) IsEmpty() bool {
	return p.Email == nil && p.Phone == nil && p.CountryCode == nil && p.Address == nil && p.ServiceRequested == nil
}

type LeadProcessingResult struct {
	Question       string         `json:"question"`
	PromptResponse string         `json:"promptResponse"`
	MessageID      string         `json:"messageId,omitempty"`
	Lead           *ProcessedLead `json:"lead,omitempty"`
	LeadID         string         `json:"leadId,omitempty"`
	Created        bool           `json:"created"`
}
