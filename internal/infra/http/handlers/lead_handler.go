package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/usecase"
)

type LeadService interface {
	List(ctx context.Context, input usecase.ListLeadsInput) (*usecase.ListLeadsOutput, error)
	Get(ctx context.Context, id string) (*entity.Lead, error)
	UpdateStatus(ctx context.Context, id string, input usecase.UpdateLeadStatusInput) (*entity.Lead, error)
}

type LeadHandler struct {
	Leads LeadService
}

func NewLeadHandler(leads LeadService) *LeadHandler {
	return &LeadHandler{Leads: leads}
}

// List handles GET /leads?status&limit&offset.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	input, verrs := parseListQuery(r)
	if len(verrs) > 0 {
		writeValidationError(w, r, verrs)
		return
	}

	out, err := h.Leads.List(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// UpdateStatus handles PATCH /leads/{id}/status.
func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadStatusInput
	if !decodeJSON(w, r, &input) {
		return
	}

	lead, err := h.Leads.UpdateStatus(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// parseListQuery applies the defaults and reports parameters that are not
// integers. Range checks are left to the use case.
func parseListQuery(r *http.Request) (usecase.ListLeadsInput, usecase.ValidationErrors) {
	q := r.URL.Query()
	input := usecase.ListLeadsInput{
		Status: q.Get("status"),
		Limit:  usecase.DefaultLeadsLimit,
		Offset: usecase.DefaultLeadsOffset,
	}

	var verrs usecase.ValidationErrors
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			verrs = append(verrs, usecase.ValidationError{Field: "limit", Message: "must be an integer"})
		}
		input.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			verrs = append(verrs, usecase.ValidationError{Field: "offset", Message: "must be an integer"})
		}
		input.Offset = n
	}
	return input, verrs
}
