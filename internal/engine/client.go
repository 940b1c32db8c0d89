package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"prepmate/api/internal/config"
	"prepmate/api/internal/metrics"
)

// HTTPClient talks to the real interview engine. It is stateless between
// calls and safe for concurrent use.
type HTTPClient struct {
	rest   *resty.Client
	cfg    *config.EngineConfig
	logger *zap.Logger
}

func NewHTTPClient(cfg *config.EngineConfig, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		rest:   resty.New().SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		cfg:    cfg,
		logger: logger,
	}
}

func (c *HTTPClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var out GenerateResponse
	if err := c.post(ctx, "generate", c.cfg.GeneratePath, c.cfg.GenerateTimeout, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResponse, error) {
	var out EvaluateResponse
	if err := c.post(ctx, "evaluate", c.cfg.EvaluatePath, c.cfg.EvaluateTimeout, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Check(ctx context.Context, req CheckRequest) (*CheckResponse, error) {
	var out CheckResponse
	if err := c.post(ctx, "check", c.cfg.CheckPath, c.cfg.GenerateTimeout, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// post performs the single outbound call and classifies failures. No retry
// happens here; callers decide whether a failure is fatal for the session.
func (c *HTTPClient) post(ctx context.Context, endpoint, path string, timeout time.Duration, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(path)
	if err != nil {
		metrics.ObserveEngineRequest(endpoint, "network_error")
		c.logger.Warn("interview engine unreachable", zap.String("endpoint", endpoint), zap.Error(err))
		return unavailableError(fmt.Sprintf("Network error contacting interview engine: %v", err))
	}

	code := resp.StatusCode()
	if code < 200 || code >= 300 {
		metrics.ObserveEngineRequest(endpoint, "bad_status")
		body := strings.TrimSpace(resp.String())
		c.logger.Warn("interview engine rejected call",
			zap.String("endpoint", endpoint), zap.Int("status", code))
		if code >= 400 && code < 500 {
			if body == "" {
				body = "Bad request to interview engine."
			}
			return badRequestError(body)
		}
		return unavailableError(fmt.Sprintf("Interview engine error %d: %s", code, body))
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		metrics.ObserveEngineRequest(endpoint, "bad_json")
		return unavailableError("Invalid JSON received from interview engine.")
	}
	metrics.ObserveEngineRequest(endpoint, "ok")
	return nil
}
