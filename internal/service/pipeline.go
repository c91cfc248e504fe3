// Package service runs a question through generation, checking, execution
// and composition.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/composer"
	"github.com/Chin-mayyy/votebank/internal/models"
	"github.com/Chin-mayyy/votebank/internal/observability"
	"github.com/Chin-mayyy/votebank/internal/security"
	"github.com/Chin-mayyy/votebank/internal/sqlgen"
)

// QueryExecutor runs one read-only statement.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) (*models.ResultSet, error)
}

// Deps are the collaborators of a Pipeline. PII and Masker are optional.
type Deps struct {
	Generator sqlgen.Generator
	Executor  QueryExecutor
	Composer  *composer.Composer
	Questions *security.QuestionValidator
	SQL       *security.SQLValidator
	PII       *security.PIIDetector
	Masker    *security.DataMasker
}

type Pipeline struct {
	generator sqlgen.Generator
	executor  QueryExecutor
	composer  *composer.Composer
	questions *security.QuestionValidator
	sqlCheck  *security.SQLValidator
	pii       *security.PIIDetector
	masker    *security.DataMasker
}

func NewPipeline(d Deps) *Pipeline {
	if d.Questions == nil {
		d.Questions = security.NewQuestionValidator()
	}
	if d.SQL == nil {
		d.SQL = security.NewSQLValidator()
	}
	return &Pipeline{
		generator: d.Generator,
		executor:  d.Executor,
		composer:  d.Composer,
		questions: d.Questions,
		sqlCheck:  d.SQL,
		pii:       d.PII,
		masker:    d.Masker,
	}
}

// GeneratorName reports the active SQL generation strategy.
func (p *Pipeline) GeneratorName() string { return p.generator.Name() }

// Prepared is a question whose SQL has been generated and executed.
type Prepared struct {
	Question string
	SQL      string
	Result   *models.ResultSet
}

func fail(stage Stage, typ models.ErrorType, err error) error {
	observability.QueryErrorsTotal.WithLabelValues(string(typ)).Inc()
	log.Warn().Err(err).Str("stage", string(stage)).Str("type", string(typ)).Msg("Question failed")
	return &PipelineError{Type: typ, Stage: stage, Err: err}
}

// Prepare validates the question, generates SQL, checks it and runs it.
// Nothing has been written to the client when it returns.
func (p *Pipeline) Prepare(ctx context.Context, question string) (*Prepared, error) {
	if err := p.questions.Validate(question); err != nil {
		return nil, fail(StageValidate, models.ErrValidation, err)
	}
	if p.pii != nil {
		if kw, found := p.pii.Detect(question); found {
			return nil, fail(StageValidate, models.ErrValidation,
				fmt.Errorf("%w: question asks for sensitive data (%s)", security.ErrInvalidQuestion, kw))
		}
	}

	start := time.Now()
	sql, err := p.generator.Generate(ctx, question)
	observability.ObserveStage(string(StageGenerate), start)
	if err != nil {
		return nil, fail(StageGenerate, models.ErrGeneration, err)
	}
	log.Debug().Str("stage", string(StageGenerate)).Str("generator", p.generator.Name()).Str("sql", sql).Msg("SQL generated")

	if err := p.sqlCheck.Validate(sql); err != nil {
		return nil, fail(StageCheckSQL, models.ErrGeneration, err)
	}

	start = time.Now()
	rs, err := p.executor.Execute(ctx, sql)
	observability.ObserveStage(string(StageExecute), start)
	if err != nil {
		return nil, fail(StageExecute, ErrorTypeOf(err), err)
	}
	log.Debug().Str("stage", string(StageExecute)).Int("rows", rs.Len()).Msg("Query executed")

	if p.masker != nil {
		rs = p.masker.MaskResultSet(rs)
	}
	return &Prepared{Question: question, SQL: sql, Result: rs}, nil
}

// Compose explains a prepared answer. It never fails.
func (p *Pipeline) Compose(ctx context.Context, prep *Prepared) string {
	start := time.Now()
	defer observability.ObserveStage(string(StageCompose), start)
	return p.composer.Compose(ctx, prep.Question, prep.SQL, prep.Result)
}

// ComposeStream explains a prepared answer delta by delta.
func (p *Pipeline) ComposeStream(ctx context.Context, prep *Prepared, onDelta func(string) error) error {
	start := time.Now()
	defer observability.ObserveStage(string(StageCompose), start)
	return p.composer.Stream(ctx, prep.Question, prep.SQL, prep.Result, onDelta)
}

// Response pairs the prepared rows with an answer.
func (prep *Prepared) Response(answer string) *models.QueryResponse {
	rows := []models.Row{}
	var cols []string
	if prep.Result != nil {
		cols = prep.Result.Columns
		if prep.Result.Rows != nil {
			rows = prep.Result.Rows
		}
	}
	return &models.QueryResponse{
		SQLQuery:        prep.SQL,
		Columns:         cols,
		Results:         rows,
		RowCount:        len(rows),
		NaturalResponse: answer,
	}
}

// Process answers a question in one shot.
func (p *Pipeline) Process(ctx context.Context, question string) (*models.QueryResponse, error) {
	prep, err := p.Prepare(ctx, question)
	if err != nil {
		return nil, err
	}
	return prep.Response(p.Compose(ctx, prep)), nil
}
