package sqlgen

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Chin-mayyy/votebank/internal/llm"
)

const llmSystemPrompt = "You translate questions about a PostgreSQL voting database into SQL. " +
	"Return exactly one read-only SELECT statement on a single line. No markdown, no explanation."

// LLMGenerator prompts a chat completer with the schema and worked examples.
type LLMGenerator struct {
	completer llm.Completer
	maxTokens int

	mu       sync.RWMutex
	ddl      string
	examples []Example
}

func NewLLMGenerator(completer llm.Completer) *LLMGenerator {
	return &LLMGenerator{completer: completer, maxTokens: 400}
}

func (g *LLMGenerator) Name() string { return "llm" }

// Train stores the schema and examples used to build every prompt.
func (g *LLMGenerator) Train(_ context.Context, ddl string, examples []Example) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ddl = ddl
	g.examples = append([]Example(nil), examples...)
	return nil
}

// Prompt builds the user message for a question.
func (g *LLMGenerator) Prompt(question string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var b strings.Builder
	if g.ddl != "" {
		b.WriteString("Schema:\n")
		b.WriteString(g.ddl)
		b.WriteString("\n\n")
	}
	if len(g.examples) > 0 {
		b.WriteString("Examples:\n")
		for _, ex := range g.examples {
			fmt.Fprintf(&b, "Q: %s\nSQL: %s\n", ex.Question, ex.SQL)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Q: %s\nSQL:", strings.TrimSpace(question))
	return b.String()
}

func (g *LLMGenerator) Generate(ctx context.Context, question string) (string, error) {
	out, err := g.completer.Complete(ctx, llm.Request{
		System:    llmSystemPrompt,
		User:      g.Prompt(question),
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	sql := ExtractSQL(out)
	if sql == "" {
		return "", fmt.Errorf("%w: no SQL found in model output", ErrGeneration)
	}
	return sql, nil
}

var (
	reStatementStart = regexp.MustCompile(`(?i)\bSELECT\b|\bWITH\s+\w+\s+AS\s*\(`)
	reSQLFence       = regexp.MustCompile("(?i)```sql")
)

// ExtractSQL pulls one statement out of model output:
//  1. a ```sql fenced block
//  2. any fenced block starting with SELECT or WITH
//  3. the first SELECT/WITH in the text, up to a semicolon or blank line
//
// Returns "" when nothing looks like SQL.
func ExtractSQL(text string) string {
	if loc := reSQLFence.FindStringIndex(text); loc != nil {
		body := text[loc[1]:]
		if end := strings.Index(body, "```"); end != -1 {
			if sql := cleanStatement(body[:end]); sql != "" {
				return sql
			}
		}
	}

	parts := strings.Split(text, "```")
	for i := 1; i < len(parts); i += 2 {
		candidate := strings.TrimSpace(parts[i])
		// drop a language tag line such as "postgresql"
		if nl := strings.Index(candidate, "\n"); nl != -1 && !reStatementStart.MatchString(candidate[:nl]) {
			candidate = candidate[nl+1:]
		}
		up := strings.ToUpper(strings.TrimSpace(candidate))
		if strings.HasPrefix(up, "SELECT") || strings.HasPrefix(up, "WITH") {
			return cleanStatement(candidate)
		}
	}

	loc := reStatementStart.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[0]:]
	if end := strings.Index(rest, "\n\n"); end != -1 {
		rest = rest[:end]
	}
	sql := cleanStatement(rest)
	if !strings.Contains(strings.ToUpper(sql), "FROM") && !strings.HasPrefix(strings.ToUpper(sql), "WITH") {
		return ""
	}
	return sql
}

// cleanStatement keeps the first statement and folds it onto one line.
func cleanStatement(s string) string {
	if i := strings.Index(s, ";"); i != -1 {
		s = s[:i]
	}
	return strings.Join(strings.Fields(s), " ")
}
