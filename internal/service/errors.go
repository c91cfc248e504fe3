package service

import (
	"errors"
	"fmt"

	"github.com/Chin-mayyy/votebank/internal/database"
	"github.com/Chin-mayyy/votebank/internal/models"
	"github.com/Chin-mayyy/votebank/internal/security"
	"github.com/Chin-mayyy/votebank/internal/sqlgen"
)

// Stage names a step of the question pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StageGenerate Stage = "generate"
	StageCheckSQL Stage = "check_sql"
	StageExecute  Stage = "execute"
	StageCompose  Stage = "compose"
)

// PipelineError carries the error type reported to the client and the stage
// that failed.
type PipelineError struct {
	Type  models.ErrorType
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ErrorTypeOf classifies any error returned by the pipeline or its parts.
func ErrorTypeOf(err error) models.ErrorType {
	var pe *PipelineError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return pe.Type
	case errors.Is(err, security.ErrInvalidQuestion):
		return models.ErrValidation
	case errors.Is(err, database.ErrConnect):
		return models.ErrConnection
	case errors.Is(err, database.ErrQuery):
		return models.ErrExecution
	case errors.Is(err, sqlgen.ErrGeneration), errors.Is(err, security.ErrUnsafeSQL):
		return models.ErrGeneration
	}
	return models.ErrProcessing
}
