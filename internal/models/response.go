package models

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// QueryResponse is returned by POST /api/query when streaming is off
type QueryResponse struct {
	SQLQuery        string   `json:"sql_query"`
	Columns         []string `json:"columns"`
	Results         []Row    `json:"results"`
	RowCount        int      `json:"row_count"`
	NaturalResponse string   `json:"natural_response"`
}

// ExplainResponse is returned by POST /api/explain
type ExplainResponse struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation"`
}

// StreamFrame is the payload of one server-sent event.
type StreamFrame struct {
	Response string `json:"response"`
}

// StreamErrorFrame reports a failure after the stream has started.
type StreamErrorFrame struct {
	Error     string         `json:"error"`
	Type      ErrorType      `json:"type"`
	DebugInfo map[string]any `json:"debug_info,omitempty"`
}
