package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Chin-mayyy/votebank/internal/models"
	"github.com/Chin-mayyy/votebank/internal/schema"
)

// Catalog lists the tables questions can be asked about.
type Catalog interface {
	Tables(ctx context.Context) ([]schema.Table, error)
}

// TablesHandler exposes the live voting schema
type TablesHandler struct {
	catalog Catalog
}

func NewTablesHandler(catalog Catalog) *TablesHandler {
	return &TablesHandler{catalog: catalog}
}

// ListTables handles GET /api/tables
func (h *TablesHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.catalog.Tables(r.Context())
	if err != nil {
		models.WriteTypedError(w, models.ErrConnection, "failed to list tables: "+err.Error(), nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"tables": tables,
		"count":  len(tables),
	})
}

// GetTable handles GET /api/tables/{table}
func (h *TablesHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")

	tables, err := h.catalog.Tables(r.Context())
	if err != nil {
		models.WriteTypedError(w, models.ErrConnection, "failed to read table: "+err.Error(), nil)
		return
	}
	for _, t := range tables {
		if t.Name == name {
			models.WriteJSON(w, http.StatusOK, map[string]any{
				"status": "success",
				"table":  t,
				"ddl":    t.DDL(),
			})
			return
		}
	}
	models.WriteError(w, http.StatusNotFound, "table not found: "+name)
}
