package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TutorChat/internal/backend"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "tutorchat/evaluation"

// maxErrorBody bounds how much of a failed response is kept in the error
const maxErrorBody = 512

// HTTPClient implements Client over the JSON HTTP API of the evaluation service
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter

	duration metric.Float64Histogram
	failures metric.Int64Counter
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = d
	}
}

// WithTracer sets the tracer used for request spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *HTTPClient) {
		c.tracer = tracer
	}
}

// WithMeter sets the meter used for request metrics
func WithMeter(meter metric.Meter) Option {
	return func(c *HTTPClient) {
		c.meter = meter
	}
}

// NewHTTPClient creates a new client for the service rooted at baseURL,
// e.g. http://localhost:8000/api/v1/exercises
func NewHTTPClient(baseURL string, logger *slog.Logger, opts ...Option) (*HTTPClient, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	client := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(client)
	}

	client.duration, err = client.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	client.failures, err = client.meter.Int64Counter(
		"evaluation.transport_errors",
		metric.WithDescription("Failed calls to the evaluation service"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failure counter: %w", err)
	}

	logger.Info("created evaluation HTTP client", "url", client.baseURL)
	return client, nil
}

// FetchNextTask requests the next task from GET /next
func (c *HTTPClient) FetchNextTask(ctx context.Context) (string, error) {
	ctx, span := c.tracer.Start(ctx, "evaluation.fetch_next_task")
	defer span.End()

	var resp backend.TaskResponse
	if err := c.sendRequest(ctx, "next", http.MethodGet, nil, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch next task failed")
		return "", err
	}

	c.logger.Debug("fetched next task", "length", len(resp.TaskText))
	return resp.TaskText, nil
}

// CheckTranslation posts a translation to POST /check and returns the
// undecoded result payload
func (c *HTTPClient) CheckTranslation(ctx context.Context, studentText, taskText string) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "evaluation.check_translation")
	defer span.End()

	var resp backend.CheckResponse
	req := backend.NewCheckRequest(studentText, taskText)
	if err := c.sendRequest(ctx, "check", http.MethodPost, req, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check translation failed")
		return nil, err
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		err := c.fail(ctx, "check", c.baseURL+"/check", http.StatusOK, errors.New("response has no result"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "check translation failed")
		return nil, err
	}

	c.logger.Debug("checked translation", "result_bytes", len(resp.Result))
	return resp.Result, nil
}

// sendRequest performs one JSON round trip. Every failure is reported as a
// *TransportError.
func (c *HTTPClient) sendRequest(ctx context.Context, op, method string, body interface{}, out interface{}) error {
	endpoint := c.baseURL + "/" + op

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return c.fail(ctx, op, endpoint, 0, fmt.Errorf("failed to marshal request: %w", err))
		}
		reqBody = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return c.fail(ctx, op, endpoint, 0, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	c.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("operation", op)))
	if err != nil {
		return c.fail(ctx, op, endpoint, 0, fmt.Errorf("failed to send request: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return c.fail(ctx, op, endpoint, httpResp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return c.fail(ctx, op, endpoint, httpResp.StatusCode, fmt.Errorf("API error: %s - %s", httpResp.Status, string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return c.fail(ctx, op, endpoint, httpResp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	return nil
}

func (c *HTTPClient) fail(ctx context.Context, op, endpoint string, status int, err error) error {
	c.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	c.logger.Warn("evaluation request failed", "operation", op, "url", endpoint, "status", status, "error", err)
	return &TransportError{Op: op, URL: endpoint, StatusCode: status, Err: err}
}
