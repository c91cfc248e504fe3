package security

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog/log"
)

// AuditEvent describes one answered (or rejected) question.
type AuditEvent struct {
	RequestID string
	Question  string
	ClientKey string
	SQL       string
	Generator string
	RowCount  int
	Duration  time.Duration
	ErrorType string
}

// AuditLogger writes question audit records with the question, SQL and
// client key hashed.
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

func (a *AuditLogger) LogQuestion(e AuditEvent) {
	if a == nil || !a.enabled {
		return
	}
	evt := log.Info().
		Str("event", "question_audit").
		Str("request_id", e.RequestID).
		Str("question_hash", hashStr(e.Question)).
		Str("generator", e.Generator).
		Int("row_count", e.RowCount).
		Int64("duration_ms", e.Duration.Milliseconds()).
		Bool("success", e.ErrorType == "")

	if e.ClientKey != "" {
		evt = evt.Str("client_key_hash", hashStr(e.ClientKey))
	}
	if e.SQL != "" {
		evt = evt.Str("sql_hash", hashStr(e.SQL))
	}
	if e.ErrorType != "" {
		evt = evt.Str("error_type", e.ErrorType)
	}
	evt.Msg("audit")
}

// hashStr returns the first 16 hex chars of the SHA-256 of s.
func hashStr(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
