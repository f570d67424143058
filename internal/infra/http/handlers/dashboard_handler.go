package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/usecase"
)

const DashboardPageSize = 10

//go:embed templates/leads.html
var templateFS embed.FS

var channelLabels = map[entity.ChatChannel]string{
	entity.ChatChannelEmail:    "Email",
	entity.ChatChannelSMS:      "SMS",
	entity.ChatChannelWhatsApp: "WhatsApp",
	entity.ChatChannelPhone:    "Phone",
	entity.ChatChannelWeb:      "Web",
	entity.ChatChannelOther:    "Other",
}

var leadsTemplate = template.Must(template.New("leads.html").Funcs(template.FuncMap{
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"channel": func(c *entity.ChatChannel) string {
		if c == nil {
			return channelLabels[entity.ChatChannelEmail]
		}
		if label, ok := channelLabels[*c]; ok {
			return label
		}
		return string(*c)
	},
}).ParseFS(templateFS, "templates/leads.html"))

type dashboardPage struct {
	Status     string
	Statuses   []entity.LeadStatus
	Leads      []entity.Lead
	Total      int
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevURL    string
	NextURL    string
}

// DashboardHandler renders the lead list as server-side HTML on top of the
// same use case the JSON API uses.
type DashboardHandler struct {
	Leads LeadService
}

func NewDashboardHandler(leads LeadService) *DashboardHandler {
	return &DashboardHandler{Leads: leads}
}

// List handles GET /dashboard/leads?status&page.
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	page := pageNumber(r.URL.Query().Get("page"))

	out, err := h.Leads.List(r.Context(), usecase.ListLeadsInput{
		Status: status,
		Limit:  DashboardPageSize,
		Offset: (page - 1) * DashboardPageSize,
	})
	if err != nil {
		var verrs usecase.ValidationErrors
		if errors.As(err, &verrs) {
			http.Error(w, verrs.Error(), http.StatusBadRequest)
			return
		}
		logger.Error("Failed to load dashboard", zap.Error(err))
		http.Error(w, "Failed to load leads", http.StatusInternalServerError)
		return
	}

	totalPages := (out.Total + DashboardPageSize - 1) / DashboardPageSize
	if totalPages == 0 {
		totalPages = 1
	}

	data := dashboardPage{
		Status:     status,
		Statuses:   entity.LeadStatuses,
		Leads:      out.Leads,
		Total:      out.Total,
		Page:       page,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevURL:    dashboardURL(status, page-1),
		NextURL:    dashboardURL(status, page+1),
	}

	var buf bytes.Buffer
	if err := leadsTemplate.Execute(&buf, data); err != nil {
		logger.Error("Failed to render dashboard", zap.Error(err))
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// UpdateStatus handles the status form and redirects back to the list.
func (h *DashboardHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	_, err := h.Leads.UpdateStatus(r.Context(), id, usecase.UpdateLeadStatusInput{Status: r.PostForm.Get("status")})
	if err != nil {
		switch {
		case usecase.ErrorCode(err) == usecase.CodeNotFound:
			http.Error(w, usecase.NotFoundMessage(id), http.StatusNotFound)
		case usecase.IsTechnicalError(err):
			http.Error(w, "Failed to update lead", http.StatusInternalServerError)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	returnStatus := r.PostForm.Get("return_status")
	if !entity.LeadStatus(returnStatus).Valid() {
		returnStatus = ""
	}
	http.Redirect(w, r, dashboardURL(returnStatus, pageNumber(r.PostForm.Get("return_page"))), http.StatusSeeOther)
}

func pageNumber(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func dashboardURL(status string, page int) string {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return "/dashboard/leads"
	}
	return "/dashboard/leads?" + q.Encode()
}
