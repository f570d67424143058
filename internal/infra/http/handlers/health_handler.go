package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/xavierca1/broccoli-leads/internal/usecase"
)

const healthCheckTimeout = 2 * time.Second

type DBPinger interface {
	PingContext(ctx context.Context) error
}

type BrokerHealth interface {
	Healthy() bool
}

type CachePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness plus the state of each configured
// dependency. Dependencies left nil are reported as "not configured".
type HealthHandler struct {
	DB        DBPinger
	Broker    BrokerHealth
	Cache     CachePinger
	StartTime time.Time
	now       func() time.Time
}

func NewHealthHandler(db DBPinger, broker BrokerHealth, cache CachePinger) *HealthHandler {
	return &HealthHandler{
		DB:        db,
		Broker:    broker,
		Cache:     cache,
		StartTime: time.Now(),
		now:       time.Now,
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	deps := make(map[string]string)

	// Check Database
	if h.DB != nil {
		deps["database"] = probe(h.DB.PingContext(ctx))
	} else {
		deps["database"] = "not configured"
	}

	// Check RabbitMQ
	if h.Broker != nil {
		if h.Broker.Healthy() {
			deps["rabbitmq"] = "healthy"
		} else {
			deps["rabbitmq"] = "unhealthy: connection closed"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	// Check Redis
	if h.Cache != nil {
		deps["redis"] = probe(h.Cache.Ping(ctx))
	} else {
		deps["redis"] = "not configured"
	}

	status := "ok"
	for _, v := range deps {
		if v != "healthy" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	now := h.now()
	response := usecase.HealthStatus{
		Status:       status,
		Timestamp:    now.UTC(),
		Service:      "backend",
		Uptime:       now.Sub(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

func probe(err error) string {
	if err != nil {
		return fmt.Sprintf("unhealthy: %v", err)
	}
	return "healthy"
}
