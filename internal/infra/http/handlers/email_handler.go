package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/infra/http/middleware"
	"github.com/xavierca1/broccoli-leads/internal/usecase"
)

type EmailReceiver interface {
	ReceiveRaw(ctx context.Context, input usecase.RawEmailInput) (*usecase.ReceiveEmailOutput, error)
	ReceiveEvent(ctx context.Context, event entity.InboundEvent) (*usecase.ReceiveEmailOutput, error)
}

type EmailHandler struct {
	Receiver EmailReceiver
}

func NewEmailHandler(receiver EmailReceiver) *EmailHandler {
	return &EmailHandler{Receiver: receiver}
}

// Test echoes the rawEmail query parameter.
func (h *EmailHandler) Test(w http.ResponseWriter, r *http.Request) {
	input := usecase.TestEmailInput{RawEmail: r.URL.Query().Get("rawEmail")}
	if err := usecase.Validate(input); err != nil {
		writeUseCaseError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": usecase.ReceivedMessage + " " + input.RawEmail,
	})
}

// Receive accepts either a raw envelope ({rawEmail, messageId?, source?}) or
// an AgentMail webhook event and starts the lead workflow.
func (h *EmailHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if !decodeJSON(w, r, &body) {
		return
	}

	var probe struct {
		RawEmail *string `json:"rawEmail"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "Body must be a JSON object")
		return
	}

	var (
		out  *usecase.ReceiveEmailOutput
		err  error
		kind = "event"
	)
	if probe.RawEmail != nil {
		kind = "raw"
		var input usecase.RawEmailInput
		if err := json.Unmarshal(body, &input); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "Invalid raw email envelope")
			return
		}
		out, err = h.Receiver.ReceiveRaw(r.Context(), input)
	} else {
		var event entity.InboundEvent
		if err := json.Unmarshal(body, &event); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "Invalid AgentMail event")
			return
		}
		out, err = h.Receiver.ReceiveEvent(r.Context(), event)
	}
	if err != nil {
		outcome := "rejected"
		if usecase.IsTechnicalError(err) {
			outcome = "failed"
		}
		middleware.RecordEmailReceived(kind, outcome)
		writeUseCaseError(w, r, err)
		return
	}

	status := http.StatusCreated
	if out.Duplicate {
		status = http.StatusOK
		middleware.RecordEmailReceived(kind, "duplicate")
	} else {
		middleware.RecordEmailReceived(kind, "started")
	}
	writeJSON(w, status, out)
}
