package models

import "strings"

// QueryRequest for POST /api/query
type QueryRequest struct {
	Question string `json:"question"`
	Stream   *bool  `json:"stream,omitempty"` // nil streams
}

func (r *QueryRequest) SetDefaults() {
	r.Question = strings.TrimSpace(r.Question)
}

// Streaming reports whether the answer goes out as server-sent events.
func (r *QueryRequest) Streaming() bool {
	return r.Stream == nil || *r.Stream
}

// ExplainRequest for POST /api/explain
type ExplainRequest struct {
	SQL string `json:"sql"`
}
