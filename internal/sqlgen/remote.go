package sqlgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRemoteEndpoint = "https://ask.vanna.ai/rpc"
	DefaultRemoteModel    = "votebank"

	trainConcurrency = 4
)

// RemoteConfig holds credentials for the hosted text-to-SQL service.
type RemoteConfig struct {
	Endpoint string
	APIKey   string
	Email    string
	Model    string
	Timeout  time.Duration
}

// RemoteGenerator delegates SQL generation to a hosted text-to-SQL service
// over JSON-RPC. The model (organisation) must be trained before Generate
// returns useful SQL.
type RemoteGenerator struct {
	endpoint string
	apiKey   string
	email    string
	model    string
	client   *http.Client
}

func NewRemoteGenerator(cfg RemoteConfig) (*RemoteGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("remote generator: api key is required")
	}
	if strings.TrimSpace(cfg.Email) == "" {
		return nil, fmt.Errorf("remote generator: email is required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultRemoteEndpoint
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultRemoteModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RemoteGenerator{
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		email:    strings.TrimSpace(cfg.Email),
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (g *RemoteGenerator) Name() string { return "remote" }

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// statusWithID is returned by the training methods.
type statusWithID struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

func (g *RemoteGenerator) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrGeneration, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", ErrGeneration, method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Vanna-Key", g.apiKey)
	req.Header.Set("Vanna-Org", g.model)
	req.Header.Set("Vanna-Email", g.email)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrGeneration, method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", ErrGeneration, method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s failed status=%d body=%s", ErrGeneration, method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrGeneration, method, err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("%w: %s: %s", ErrGeneration, method, parsed.Error.Message)
	}
	if out == nil {
		return nil
	}
	if len(parsed.Result) == 0 || string(parsed.Result) == "null" {
		return fmt.Errorf("%w: %s returned no result", ErrGeneration, method)
	}
	if err := json.Unmarshal(parsed.Result, out); err != nil {
		return fmt.Errorf("%w: decode %s result: %v", ErrGeneration, method, err)
	}
	return nil
}

func (g *RemoteGenerator) train(ctx context.Context, method string, param map[string]string) error {
	var status statusWithID
	if err := g.call(ctx, method, []any{param}, &status); err != nil {
		return err
	}
	if !status.Success {
		return fmt.Errorf("%w: %s rejected: %s", ErrGeneration, method, status.Message)
	}
	return nil
}

// AddDDL uploads schema DDL to the model.
func (g *RemoteGenerator) AddDDL(ctx context.Context, ddl string) error {
	return g.train(ctx, "add_ddl", map[string]string{"data": ddl})
}

// AddQuestionSQL uploads one question/SQL pair.
func (g *RemoteGenerator) AddQuestionSQL(ctx context.Context, ex Example) error {
	return g.train(ctx, "add_sql", map[string]string{
		"question": ex.Question,
		"sql":      ex.SQL,
		"tag":      "Manually Trained",
	})
}

// Train sends the DDL first, then every example concurrently.
func (g *RemoteGenerator) Train(ctx context.Context, ddl string, examples []Example) error {
	if err := g.AddDDL(ctx, ddl); err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(trainConcurrency)
	for _, ex := range examples {
		ex := ex
		eg.Go(func() error {
			return g.AddQuestionSQL(egCtx, ex)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	log.Info().Str("generator", g.Name()).Str("model", g.model).Int("examples", len(examples)).Msg("Remote model trained")
	return nil
}

// Generate returns the service's SQL verbatim apart from surrounding whitespace.
func (g *RemoteGenerator) Generate(ctx context.Context, question string) (string, error) {
	var out struct {
		SQL string `json:"sql"`
	}
	if err := g.call(ctx, "generate_sql", []any{map[string]string{"question": question}}, &out); err != nil {
		return "", err
	}
	sql := strings.TrimSpace(out.SQL)
	if sql == "" {
		return "", fmt.Errorf("%w: remote service returned empty SQL", ErrGeneration)
	}
	return sql, nil
}

// ExplainSQL asks the service to describe a statement.
func (g *RemoteGenerator) ExplainSQL(ctx context.Context, sql string) (string, error) {
	var out struct {
		Data string `json:"data"`
	}
	if err := g.call(ctx, "generate_explanation", []any{map[string]string{"sql": sql}}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Data) == "" {
		return "", fmt.Errorf("%w: remote service returned an empty explanation", ErrGeneration)
	}
	return strings.TrimSpace(out.Data), nil
}
