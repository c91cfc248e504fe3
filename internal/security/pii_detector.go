package security

import "strings"

// PIIDetector flags questions that ask for sensitive personal data.
type PIIDetector struct {
	keywords []string
}

func NewPIIDetector(keywords []string) *PIIDetector {
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &PIIDetector{keywords: lower}
}

// Detect returns the first keyword found in text.
func (d *PIIDetector) Detect(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}
