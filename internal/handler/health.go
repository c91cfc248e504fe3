package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Chin-mayyy/votebank/internal/models"
)

const version = "1.0.0"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles GET /api/health
type HealthHandler struct {
	db        Pinger
	generator string
}

func NewHealthHandler(db Pinger, generator string) *HealthHandler {
	return &HealthHandler{db: db, generator: generator}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok", "sql_generator": h.generator}
	status := "healthy"

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.db == nil {
		checks["database"] = "disabled"
	} else if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unavailable: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	models.WriteJSON(w, code, models.HealthResponse{
		Status:  status,
		Version: version,
		Checks:  checks,
	})
}
