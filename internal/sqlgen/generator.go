// Package sqlgen turns natural-language questions about the voting database
// into SQL. Three strategies are available: a remote text-to-SQL service, a
// few-shot prompt against a chat completer, and a deterministic keyword matcher.
package sqlgen

import (
	"context"
	"errors"
)

// ErrGeneration wraps every failure to produce SQL for a question.
var ErrGeneration = errors.New("sql generation failed")

// Generator produces one SQL statement for a question.
type Generator interface {
	Generate(ctx context.Context, question string) (string, error)
	Name() string
}

// Trainer is implemented by generators that learn from the schema and
// example question/SQL pairs before serving.
type Trainer interface {
	Train(ctx context.Context, ddl string, examples []Example) error
}

// Explainer describes what a SQL statement does in plain English.
type Explainer interface {
	ExplainSQL(ctx context.Context, sql string) (string, error)
}

// Example is a question paired with the SQL that answers it.
type Example struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

// DefaultExamples is the fixed training set sent alongside the schema.
var DefaultExamples = []Example{
	{
		Question: "How many votes does each candidate have?",
		SQL:      "SELECT c.name, c.party, COUNT(v.id) as vote_count FROM candidates c LEFT JOIN votes v ON c.id = v.candidate_id GROUP BY c.id, c.name, c.party ORDER BY vote_count DESC",
	},
	{
		Question: "Who are the top 5 candidates by vote count?",
		SQL:      "SELECT c.name, c.party, COUNT(v.id) as vote_count FROM candidates c LEFT JOIN votes v ON c.id = v.candidate_id GROUP BY c.id, c.name, c.party ORDER BY vote_count DESC LIMIT 5",
	},
	{
		Question: "Which users have not voted yet?",
		SQL:      "SELECT u.id, u.name, u.email FROM users u LEFT JOIN votes v ON u.id = v.user_id WHERE v.id IS NULL",
	},
}
