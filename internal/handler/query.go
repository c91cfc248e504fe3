package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/middleware"
	"github.com/Chin-mayyy/votebank/internal/models"
	"github.com/Chin-mayyy/votebank/internal/security"
	"github.com/Chin-mayyy/votebank/internal/service"
	"github.com/Chin-mayyy/votebank/internal/stream"
)

const maxBodyBytes = 64 << 10

// QueryOptions control how answers are delivered.
type QueryOptions struct {
	Mode         stream.Mode
	WordDelay    time.Duration
	Timeout      time.Duration
	APIKeyHeader string
	// DebugEnv is attached to error bodies when set. Leave nil in production.
	DebugEnv map[string]any
}

// QueryHandler handles POST /api/query
type QueryHandler struct {
	pipeline *service.Pipeline
	audit    *security.AuditLogger
	opts     QueryOptions
}

func NewQueryHandler(pipeline *service.Pipeline, audit *security.AuditLogger, opts QueryOptions) *QueryHandler {
	if opts.Mode == "" {
		opts.Mode = stream.ModeWords
	}
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "X-API-Key"
	}
	return &QueryHandler{pipeline: pipeline, audit: audit, opts: opts}
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		models.WriteTypedError(w, models.ErrValidation, "invalid request body: "+err.Error(), nil)
		return
	}
	req.SetDefaults()

	ctx := r.Context()
	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	event := security.AuditEvent{
		RequestID: middleware.GetRequestID(r.Context()),
		Question:  req.Question,
		ClientKey: r.Header.Get(h.opts.APIKeyHeader),
		Generator: h.pipeline.GeneratorName(),
	}

	prep, err := h.pipeline.Prepare(ctx, req.Question)
	if err != nil {
		typ := service.ErrorTypeOf(err)
		event.ErrorType = string(typ)
		event.Duration = time.Since(start)
		h.audit.LogQuestion(event)
		models.WriteTypedError(w, typ, err.Error(), h.debugInfo(err))
		return
	}
	event.SQL = prep.SQL
	event.RowCount = prep.Result.Len()

	if !req.Streaming() {
		resp := prep.Response(h.pipeline.Compose(ctx, prep))
		event.Duration = time.Since(start)
		h.audit.LogQuestion(event)
		models.WriteJSON(w, http.StatusOK, resp)
		return
	}

	em, err := stream.NewEmitter(w)
	if err != nil {
		event.ErrorType = string(models.ErrStreaming)
		h.audit.LogQuestion(event)
		models.WriteTypedError(w, models.ErrStreaming, err.Error(), nil)
		return
	}

	err = h.emit(ctx, r.Context(), em, prep)
	event.Duration = time.Since(start)
	switch {
	case err == nil:
	case r.Context().Err() != nil:
		// client went away; nothing left to write to
		event.ErrorType = string(models.ErrStreaming)
		log.Debug().Err(err).Str("request_id", event.RequestID).Msg("Client disconnected mid-stream")
	default:
		event.ErrorType = string(models.ErrStreaming)
		log.Error().Err(err).Str("request_id", event.RequestID).Msg("Streaming answer failed")
		if sendErr := em.SendError("error streaming response: "+err.Error(), h.debugInfo(err)); sendErr != nil {
			log.Debug().Err(sendErr).Msg("Could not deliver stream error frame")
		}
	}
	h.audit.LogQuestion(event)
}

// emit writes the answer in the configured mode. Composition is bounded by
// work; word pacing only by the client connection.
func (h *QueryHandler) emit(work, client context.Context, em *stream.Emitter, prep *service.Prepared) error {
	switch h.opts.Mode {
	case stream.ModeDelta:
		em.Start()
		return h.pipeline.ComposeStream(work, prep, em.Send)
	case stream.ModeWhole:
		return em.Whole(h.pipeline.Compose(work, prep))
	default:
		return em.Words(client, h.pipeline.Compose(work, prep), h.opts.WordDelay)
	}
}

func (h *QueryHandler) debugInfo(err error) map[string]any {
	if h.opts.DebugEnv == nil {
		return nil
	}
	info := map[string]any{
		"message":     err.Error(),
		"environment": h.opts.DebugEnv,
	}
	var pe *service.PipelineError
	if errors.As(err, &pe) {
		info["stage"] = string(pe.Stage)
	}
	return info
}
