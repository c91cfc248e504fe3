package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const MaxQuestionLength = 2000

// ErrInvalidQuestion is wrapped by every rejection from QuestionValidator.
var ErrInvalidQuestion = errors.New("invalid question")

// injectionPatterns catch shell, path traversal and instruction-override
// attempts smuggled into a question.
var injectionPatterns = []*regexp.Regexp{
	// Command execution
	regexp.MustCompile(`(?i)\brm\s+-`),
	regexp.MustCompile(`(?i)\bcurl\s+https?://`),
	regexp.MustCompile(`(?i)\bwget\s+`),
	regexp.MustCompile(`(?i)\bbash\s+-`),
	regexp.MustCompile(`(?i)\bsudo\s+`),

	// Path traversal
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`/etc/(passwd|shadow)`),
	regexp.MustCompile(`id_rsa`),

	// Code execution
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bexec\s*\(`),
	regexp.MustCompile(`(?i)__import__\s*\(`),
	regexp.MustCompile(`(?i)os\.system`),

	// Instruction override
	regexp.MustCompile(`(?i)(ignore|disregard|forget|override)\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)new\s+context\s*:`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+`),
	regexp.MustCompile(`(?i)system\s+prompt`),

	// Raw write statements typed as a question
	regexp.MustCompile(`(?i)\b(drop|truncate|alter)\s+table\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\b`),
	regexp.MustCompile(`(?i)\binsert\s+into\b`),
	regexp.MustCompile(`(?i)\bupdate\s+\w+\s+set\b`),
}

// QuestionValidator screens user questions before any SQL is generated.
type QuestionValidator struct {
	maxLength int
}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{maxLength: MaxQuestionLength}
}

// Validate returns nil for an acceptable question.
func (v *QuestionValidator) Validate(question string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: question cannot be empty", ErrInvalidQuestion)
	}
	if n := utf8.RuneCountInString(question); n > v.maxLength {
		return fmt.Errorf("%w: question too long: %d chars (max %d)", ErrInvalidQuestion, n, v.maxLength)
	}
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(question) {
			return fmt.Errorf("%w: disallowed content in question", ErrInvalidQuestion)
		}
	}
	return nil
}
