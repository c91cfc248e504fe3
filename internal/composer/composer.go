// Package composer turns a question, its SQL and the result rows into a
// natural-language answer.
package composer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/llm"
	"github.com/Chin-mayyy/votebank/internal/models"
	"github.com/Chin-mayyy/votebank/internal/observability"
)

// SystemPrompt frames every explanation request.
const SystemPrompt = "You are a helpful assistant that explains database query results in natural language. " +
	"Always refer to the specific data in the results when answering."

// Options tune the completion call.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Composer explains query results through a chat completer and degrades to
// a deterministic template when the completer fails.
type Composer struct {
	completer llm.Completer
	opts      Options
}

func New(completer llm.Completer, opts Options) *Composer {
	return &Composer{completer: completer, opts: opts}
}

// UserPrompt renders the completion prompt for one answered question.
func UserPrompt(question, sql string, rs *models.ResultSet) string {
	return fmt.Sprintf(`Given the following:
- User's question: "%s"
- SQL query used: "%s"
- Query results: %s

Please provide a natural language response that explains the results in a clear and concise way. Be specific about the numbers and data shown in the results. If the results are empty, explain that no data was found matching the criteria. Use the actual names, numbers, and values from the results in your explanation.`,
		question, strings.TrimSpace(sql), rs.JSON())
}

// Fallback is the answer used when no completion is available.
func Fallback(question string, rs *models.ResultSet) string {
	return fmt.Sprintf("Based on your question '%s', I found the following results: %s", question, rs.JSON())
}

func (c *Composer) request(question, sql string, rs *models.ResultSet) llm.Request {
	return llm.Request{
		System:      SystemPrompt,
		User:        UserPrompt(question, sql, rs),
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	}
}

// Compose never fails: completion errors are logged and answered with Fallback.
func (c *Composer) Compose(ctx context.Context, question, sql string, rs *models.ResultSet) string {
	if c.completer == nil {
		return c.fallback(question, rs, nil)
	}
	text, err := c.completer.Complete(ctx, c.request(question, sql, rs))
	if err != nil || strings.TrimSpace(text) == "" {
		return c.fallback(question, rs, err)
	}
	return text
}

// Stream forwards completion deltas to onDelta. When the completion fails
// before anything was delivered the fallback is sent as a single delta and
// nil is returned. A failure after the first delta is returned. Errors from
// onDelta are returned unchanged.
func (c *Composer) Stream(ctx context.Context, question, sql string, rs *models.ResultSet, onDelta func(string) error) error {
	if c.completer == nil {
		return onDelta(c.fallback(question, rs, nil))
	}

	delivered := false
	var sinkErr error
	err := c.completer.Stream(ctx, c.request(question, sql, rs), func(delta string) error {
		if err := onDelta(delta); err != nil {
			sinkErr = err
			return err
		}
		delivered = true
		return nil
	})
	switch {
	case sinkErr != nil:
		return sinkErr
	case err == nil && delivered:
		return nil
	case delivered:
		return fmt.Errorf("completion stream interrupted: %w", err)
	}
	return onDelta(c.fallback(question, rs, err))
}

func (c *Composer) fallback(question string, rs *models.ResultSet, err error) string {
	observability.ComposerFallbacksTotal.Inc()
	ev := log.Warn().Str("stage", "compose")
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("Completion unavailable, using fallback answer")
	return Fallback(question, rs)
}
