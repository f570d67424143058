package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/usecase"
)

const HelloMessage = "Hello from Broccoli Backend!"

type AppHandler struct{}

func NewAppHandler() *AppHandler {
	return &AppHandler{}
}

func (h *AppHandler) Hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(HelloMessage))
}

// CreateClient validates and echoes the payload. Nothing is persisted.
func (h *AppHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateClientInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if err := usecase.Validate(input); err != nil {
		writeUseCaseError(w, r, err)
		return
	}

	logger.Info("Client received", zap.String("email", input.Email))

	writeJSON(w, http.StatusCreated, usecase.CreateClientOutput{
		Message: "Client created",
		Data:    input,
	})
}
