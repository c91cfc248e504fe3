package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafeSQL is wrapped by every rejection from SQLValidator.
var ErrUnsafeSQL = errors.New("unsafe sql")

var sqlDangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE)\b`),
	regexp.MustCompile(`(?i)\bCOPY\b.*\b(TO|FROM)\b`),
	regexp.MustCompile(`(?i)\bpg_(read_file|ls_dir|sleep|terminate_backend|cancel_backend)\s*\(`),
	regexp.MustCompile(`(?i)\bdblink\w*\s*\(`),
	regexp.MustCompile(`(?i)\bINTO\s+\w+`),
	regexp.MustCompile(`(?i)\bFOR\s+(UPDATE|SHARE)\b`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
}

// tautologies are matched against the raw statement, literals included.
var tautologies = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bor\s+'1'\s*=\s*'1'`),
	regexp.MustCompile(`(?i)\bor\s+1\s*=\s*1\b`),
}

// SQLValidator only lets a single read-only statement through.
type SQLValidator struct{}

func NewSQLValidator() *SQLValidator {
	return &SQLValidator{}
}

// Validate returns nil when sql is a single SELECT (or WITH ... SELECT).
func (v *SQLValidator) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return fmt.Errorf("%w: statement is empty", ErrUnsafeSQL)
	}

	body := strings.TrimRight(trimmed, "; \t\n")
	stripped := stripLiterals(body)
	if strings.Contains(stripped, ";") {
		return fmt.Errorf("%w: multiple statements are not allowed", ErrUnsafeSQL)
	}

	upper := strings.ToUpper(body)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("%w: only SELECT queries are allowed", ErrUnsafeSQL)
	}

	for _, pattern := range sqlDangerousPatterns {
		if pattern.MatchString(stripped) {
			return fmt.Errorf("%w: disallowed pattern %s", ErrUnsafeSQL, pattern.String())
		}
	}
	for _, pattern := range tautologies {
		if pattern.MatchString(body) {
			return fmt.Errorf("%w: tautology %s", ErrUnsafeSQL, pattern.String())
		}
	}
	return nil
}

var stringLiteral = regexp.MustCompile(`'(?:[^']|'')*'`)

// stripLiterals blanks quoted strings so names like 'Drop Party' don't trip
// keyword checks.
func stripLiterals(sql string) string {
	return stringLiteral.ReplaceAllString(sql, "''")
}
