package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Chin-mayyy/votebank/internal/models"
	"github.com/Chin-mayyy/votebank/internal/security"
	"github.com/Chin-mayyy/votebank/internal/sqlgen"
)

// ExplainHandler handles POST /api/explain. It needs a generator that can
// explain SQL; without one every request gets 501.
type ExplainHandler struct {
	explainer sqlgen.Explainer
	sqlVal    *security.SQLValidator
}

func NewExplainHandler(explainer sqlgen.Explainer, sqlVal *security.SQLValidator) *ExplainHandler {
	return &ExplainHandler{explainer: explainer, sqlVal: sqlVal}
}

func (h *ExplainHandler) Explain(w http.ResponseWriter, r *http.Request) {
	if h.explainer == nil {
		models.WriteError(w, http.StatusNotImplemented, "SQL explanation requires the remote generator")
		return
	}

	var req models.ExplainRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		models.WriteTypedError(w, models.ErrValidation, "invalid request body: "+err.Error(), nil)
		return
	}
	req.SQL = strings.TrimSpace(req.SQL)
	if err := h.sqlVal.Validate(req.SQL); err != nil {
		models.WriteTypedError(w, models.ErrValidation, err.Error(), nil)
		return
	}

	text, err := h.explainer.ExplainSQL(r.Context(), req.SQL)
	if err != nil {
		models.WriteTypedError(w, models.ErrGeneration, err.Error(), nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.ExplainResponse{SQL: req.SQL, Explanation: text})
}
