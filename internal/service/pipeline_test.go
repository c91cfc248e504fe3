package service_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chin-mayyy/votebank/internal/composer"
	"github.com/Chin-mayyy/votebank/internal/database"
	"github.com/Chin-mayyy/votebank/internal/llm"
	"github.com/Chin-mayyy/votebank/internal/models"
	"github.com/Chin-mayyy/votebank/internal/security"
	"github.com/Chin-mayyy/votebank/internal/service"
	"github.com/Chin-mayyy/votebank/internal/sqlgen"
)

var fastRetry = database.RetryPolicy{
	MaxAttempts:     2,
	InitialInterval: time.Millisecond,
	MaxInterval:     time.Millisecond,
	Multiplier:      2,
}

type cannedCompleter struct {
	text string
	err  error
}

func (c cannedCompleter) Complete(context.Context, llm.Request) (string, error) { return c.text, c.err }

func (c cannedCompleter) Stream(_ context.Context, _ llm.Request, onDelta func(string) error) error {
	if c.err != nil {
		return c.err
	}
	return onDelta(c.text)
}

type failingGenerator struct{}

func (failingGenerator) Name() string { return "broken" }

func (failingGenerator) Generate(context.Context, string) (string, error) {
	return "", sqlgen.ErrGeneration
}

type fixedGenerator string

func (g fixedGenerator) Name() string { return "fixed" }

func (g fixedGenerator) Generate(context.Context, string) (string, error) { return string(g), nil }

func newPipeline(t *testing.T, gen sqlgen.Generator, completer llm.Completer) (*service.Pipeline, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p := service.NewPipeline(service.Deps{
		Generator: gen,
		Executor:  database.NewExecutor(db, fastRetry),
		Composer:  composer.New(completer, composer.Options{Temperature: 0.7, MaxTokens: 500}),
		PII:       security.NewPIIDetector([]string{"password"}),
		Masker:    security.NewDataMasker([]string{"email"}),
	})
	return p, mock, db
}

// ─── Process ────────────────────────────────────────────────────────────────

func TestProcessCountUsers(t *testing.T) {
	p, mock, _ := newPipeline(t, sqlgen.NewRuleGenerator(), cannedCompleter{text: "There are 3 users."})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) as total_users FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"total_users"}).AddRow(int64(3)))

	resp, err := p.Process(context.Background(), "How many users are there?")
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) as total_users FROM users", resp.SQLQuery)
	assert.Equal(t, []string{"total_users"}, resp.Columns)
	require.Len(t, resp.Results, 1)
	v, _ := resp.Results[0].Get("total_users")
	assert.Equal(t, int64(3), v)
	assert.Equal(t, 1, resp.RowCount)
	assert.Equal(t, "There are 3 users.", resp.NaturalResponse)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "rules", p.GeneratorName())
}

func TestProcessMasksAndFallsBack(t *testing.T) {
	p, mock, _ := newPipeline(t, sqlgen.NewRuleGenerator(), cannedCompleter{err: errors.New("no key")})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email FROM users ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(int64(1), "Asha", "asha@example.com"))

	resp, err := p.Process(context.Background(), "show users")
	require.NoError(t, err)

	email, _ := resp.Results[0].Get("email")
	assert.Equal(t, "as***@***.com", email)
	assert.Equal(t,
		`Based on your question 'show users', I found the following results: [{"id":1,"name":"Asha","email":"as***@***.com"}]`,
		resp.NaturalResponse)
}

func TestProcessEmptyResult(t *testing.T) {
	p, mock, _ := newPipeline(t, sqlgen.NewRuleGenerator(), cannedCompleter{text: "Everyone has voted."})
	mock.ExpectQuery(regexp.QuoteMeta("WHERE v.id IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	resp, err := p.Process(context.Background(), "Which users have not voted yet?")
	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.RowCount)
}

// ─── Failures ───────────────────────────────────────────────────────────────

func TestPrepareErrorTypes(t *testing.T) {
	tests := []struct {
		name     string
		gen      sqlgen.Generator
		question string
		setup    func(sqlmock.Sqlmock, *sql.DB)
		wantType models.ErrorType
		stage    service.Stage
	}{
		{
			name:     "empty question",
			gen:      sqlgen.NewRuleGenerator(),
			question: "  ",
			wantType: models.ErrValidation,
			stage:    service.StageValidate,
		},
		{
			name:     "sensitive question",
			gen:      sqlgen.NewRuleGenerator(),
			question: "show every password",
			wantType: models.ErrValidation,
			stage:    service.StageValidate,
		},
		{
			name:     "generator failure",
			gen:      failingGenerator{},
			question: "anything",
			wantType: models.ErrGeneration,
			stage:    service.StageGenerate,
		},
		{
			name:     "unsafe generated sql",
			gen:      fixedGenerator("DELETE FROM votes"),
			question: "anything",
			wantType: models.ErrGeneration,
			stage:    service.StageCheckSQL,
		},
		{
			name:     "query error",
			gen:      sqlgen.NewRuleGenerator(),
			question: "list candidates",
			setup: func(m sqlmock.Sqlmock, _ *sql.DB) {
				m.ExpectQuery("SELECT").WillReturnError(errors.New(`relation "candidates" does not exist`))
			},
			wantType: models.ErrExecution,
			stage:    service.StageExecute,
		},
		{
			name:     "database down",
			gen:      sqlgen.NewRuleGenerator(),
			question: "list candidates",
			setup: func(m sqlmock.Sqlmock, db *sql.DB) {
				m.ExpectClose()
				db.Close()
			},
			wantType: models.ErrConnection,
			stage:    service.StageExecute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, mock, db := newPipeline(t, tt.gen, cannedCompleter{text: "unused"})
			if tt.setup != nil {
				tt.setup(mock, db)
			}

			_, err := p.Process(context.Background(), tt.question)
			require.Error(t, err)

			var pe *service.PipelineError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantType, pe.Type)
			assert.Equal(t, tt.stage, pe.Stage)
			assert.Equal(t, tt.wantType, service.ErrorTypeOf(err))
		})
	}
}

func TestErrorTypeOf(t *testing.T) {
	tests := []struct {
		err  error
		want models.ErrorType
	}{
		{nil, ""},
		{database.ErrConnect, models.ErrConnection},
		{database.ErrQuery, models.ErrExecution},
		{sqlgen.ErrGeneration, models.ErrGeneration},
		{security.ErrUnsafeSQL, models.ErrGeneration},
		{security.ErrInvalidQuestion, models.ErrValidation},
		{errors.New("mystery"), models.ErrProcessing},
		{&service.PipelineError{Type: models.ErrStreaming, Err: errors.New("x")}, models.ErrStreaming},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.ErrorTypeOf(tt.err), "%v", tt.err)
	}
}

// ─── Streaming composition ──────────────────────────────────────────────────

func TestComposeStream(t *testing.T) {
	p, mock, _ := newPipeline(t, sqlgen.NewRuleGenerator(), cannedCompleter{text: "Asha leads."})
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY c.party")).
		WillReturnRows(sqlmock.NewRows([]string{"party", "vote_count"}).AddRow("Green", int64(4)))

	prep, err := p.Prepare(context.Background(), "Which party has the most votes?")
	require.NoError(t, err)

	var deltas []string
	require.NoError(t, p.ComposeStream(context.Background(), prep, func(d string) error {
		deltas = append(deltas, d)
		return nil
	}))
	assert.Equal(t, []string{"Asha leads."}, deltas)
}
