package models_test

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Chin-mayyy/votebank/internal/models"
)

// ─── Row ──────────────────────────────────────────────────────────────────────

func TestRowMarshalKeepsColumnOrder(t *testing.T) {
	row := models.Row{
		Columns: []string{"name", "party", "vote_count", "id"},
		Values:  []any{"Asha", "Green", int64(4), int64(1)},
	}
	b, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"name":"Asha","party":"Green","vote_count":4,"id":1}`
	if string(b) != want {
		t.Errorf("Marshal() = %s, want %s", b, want)
	}
}

func TestRowGetAndMap(t *testing.T) {
	row := models.Row{Columns: []string{"total_users"}, Values: []any{int64(3)}}
	v, ok := row.Get("total_users")
	if !ok || v != int64(3) {
		t.Errorf("Get() = %v, %v", v, ok)
	}
	if _, ok := row.Get("missing"); ok {
		t.Error("Get() found a missing column")
	}
	if row.Map()["total_users"] != int64(3) {
		t.Error("Map() lost a value")
	}
}

func TestResultSetJSON(t *testing.T) {
	var empty *models.ResultSet
	if got := empty.JSON(); got != "[]" {
		t.Errorf("nil JSON() = %q", got)
	}
	if empty.Len() != 0 {
		t.Error("nil Len() should be 0")
	}

	rs := &models.ResultSet{
		Columns: []string{"id", "deleted_at"},
		Rows:    []models.Row{{Columns: []string{"id", "deleted_at"}, Values: []any{int64(1), nil}}},
	}
	if got := rs.JSON(); got != `[{"id":1,"deleted_at":null}]` {
		t.Errorf("JSON() = %s", got)
	}
}

func TestRowMarshalNonFiniteFloats(t *testing.T) {
	row := models.Row{
		Columns: []string{"turnout", "ratio", "floor", "share"},
		Values:  []any{math.NaN(), math.Inf(1), math.Inf(-1), float32(math.NaN())},
	}
	b, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"turnout":"NaN","ratio":"+Inf","floor":"-Inf","share":"NaN"}`
	if string(b) != want {
		t.Errorf("Marshal() = %s, want %s", b, want)
	}

	rs := &models.ResultSet{
		Columns: []string{"candidate", "turnout"},
		Rows:    []models.Row{{Columns: []string{"candidate", "turnout"}, Values: []any{"Asha", math.NaN()}}},
	}
	if got := rs.JSON(); got != `[{"candidate":"Asha","turnout":"NaN"}]` {
		t.Errorf("JSON() = %s", got)
	}
}

// ─── Errors ───────────────────────────────────────────────────────────────────

func TestWriteTypedError(t *testing.T) {
	tests := []struct {
		typ  models.ErrorType
		code int
	}{
		{models.ErrValidation, http.StatusBadRequest},
		{models.ErrConnection, http.StatusInternalServerError},
		{models.ErrExecution, http.StatusInternalServerError},
		{models.ErrGeneration, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			rr := httptest.NewRecorder()
			models.WriteTypedError(rr, tt.typ, "boom", map[string]any{"stage": "x"})
			if rr.Code != tt.code {
				t.Errorf("code = %d, want %d", rr.Code, tt.code)
			}
			var body models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Type != tt.typ || body.Error != "boom" || body.Status != "error" {
				t.Errorf("body = %+v", body)
			}
			if body.DebugInfo["stage"] != "x" {
				t.Errorf("debug_info = %v", body.DebugInfo)
			}
		})
	}
}

func TestQueryRequestStreaming(t *testing.T) {
	var req models.QueryRequest
	if err := json.Unmarshal([]byte(`{"question":"  who voted  "}`), &req); err != nil {
		t.Fatal(err)
	}
	req.SetDefaults()
	if req.Question != "who voted" {
		t.Errorf("Question = %q", req.Question)
	}
	if !req.Streaming() {
		t.Error("streaming should be the default")
	}
	if err := json.Unmarshal([]byte(`{"question":"q","stream":false}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.Streaming() {
		t.Error("stream:false should disable streaming")
	}
}
