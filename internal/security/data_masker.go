package security

import (
	"fmt"
	"strings"

	"github.com/Chin-mayyy/votebank/internal/models"
)

// DataMasker redacts values of configured columns in result rows. A column
// is sensitive when its name contains one of the configured fragments.
type DataMasker struct {
	fragments []string
}

func NewDataMasker(sensitiveColumns []string) *DataMasker {
	fragments := make([]string, 0, len(sensitiveColumns))
	for _, c := range sensitiveColumns {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			fragments = append(fragments, c)
		}
	}
	return &DataMasker{fragments: fragments}
}

// MaskResultSet returns rs with sensitive values replaced. rs itself is not
// modified; nil stays nil.
func (m *DataMasker) MaskResultSet(rs *models.ResultSet) *models.ResultSet {
	if rs == nil || len(m.fragments) == 0 {
		return rs
	}

	sensitive := make([]bool, len(rs.Columns))
	hit := false
	for i, col := range rs.Columns {
		sensitive[i] = m.IsSensitive(col)
		hit = hit || sensitive[i]
	}
	if !hit {
		return rs
	}

	out := &models.ResultSet{Columns: rs.Columns, Rows: make([]models.Row, len(rs.Rows))}
	for r, row := range rs.Rows {
		values := make([]any, len(row.Values))
		for i, val := range row.Values {
			if i < len(sensitive) && sensitive[i] && val != nil {
				values[i] = maskValue(row.Columns[i], fmt.Sprint(val))
			} else {
				values[i] = val
			}
		}
		out.Rows[r] = models.Row{Columns: row.Columns, Values: values}
	}
	return out
}

func (m *DataMasker) IsSensitive(col string) bool {
	lower := strings.ToLower(col)
	for _, f := range m.fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func maskValue(col, val string) string {
	lower := strings.ToLower(col)
	switch {
	case strings.Contains(lower, "email"):
		return maskEmail(val)
	case strings.Contains(lower, "phone"):
		return maskDigits(val, "***-***-")
	case strings.Contains(lower, "aadhar") || strings.Contains(lower, "voter_id"):
		return maskDigits(val, "XXXX-XXXX-")
	default:
		return "***"
	}
}

// maskEmail: "asha.rao@example.com" → "as***@***.com"
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return "***"
	}
	visible := min(2, len(local))
	ext := domain[strings.LastIndex(domain, ".")+1:]
	return fmt.Sprintf("%s***@***.%s", local[:visible], ext)
}

// maskDigits keeps the last four digits behind prefix.
func maskDigits(val, prefix string) string {
	var digits strings.Builder
	for _, c := range val {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	d := digits.String()
	if len(d) < 4 {
		return "***"
	}
	return prefix + d[len(d)-4:]
}
