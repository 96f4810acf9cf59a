package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"
)

// DefaultTimeout bounds a prediction round trip.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a backend response is read.
const maxBodyBytes = 1 << 20

// Client posts feature vectors to the prediction backend.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *logs.Logger
	metrics *metrics.Registry
}

type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests. The client's own
// Timeout is left alone; the request deadline comes from the context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(
	baseURL string,
	logger *logs.Logger,
	reg *metrics.Registry,
	opts ...Option,
) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		client:  &http.Client{},
		logger:  logger,
		metrics: reg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint is the URL a subsystem's predictions are posted to.
func (c *Client) Endpoint(s Subsystem) string {
	return c.baseURL + "/predict/" + string(s)
}

// Timeout reports the per-request deadline.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Predict sends one POST and validates the answer. It never retries.
//
// Every failure is an *Error:
// - deadline expiry is KindTimeout
// - any other transport problem is KindTransport
// - a non-2xx status is KindServer with the backend's message
// - a 2xx without a numeric predicted_rul is KindContract
func (c *Client) Predict(ctx context.Context, subsystem Subsystem, fv FeatureVector) (Result, error) {
	start := time.Now()
	c.metrics.Inc(metrics.PredictionRequestsTotal)

	res, err := c.do(ctx, subsystem, fv)

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		c.recordFailure(subsystem, err)
	} else {
		c.metrics.Inc(metrics.PredictionSuccessTotal)
		c.logger.With(string(subsystem)).Debug(fmt.Sprintf("prediction succeeded: rul=%.2f", res.PredictedRUL))
	}
	c.metrics.ObserveLatency(string(subsystem), outcome, time.Since(start))

	return res, err
}

func (c *Client) do(ctx context.Context, subsystem Subsystem, fv FeatureVector) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(fv)
	if err != nil {
		return Result{}, transportError(fmt.Errorf("marshal feature vector: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.Endpoint(subsystem),
		bytes.NewReader(body),
	)
	if err != nil {
		return Result{}, transportError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, c.classify(ctx, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, c.classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(payload)
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
		}
		return Result{}, &Error{
			Kind:       KindServer,
			Message:    msg,
			StatusCode: resp.StatusCode,
		}
	}

	return DecodeResult(payload)
}

// classify separates our own deadline firing from other transport errors.
func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err)
	}
	return transportError(err)
}

func (c *Client) recordFailure(subsystem Subsystem, err error) {
	c.metrics.Inc(metrics.PredictionFailuresTotal)

	switch KindOf(err) {
	case KindTimeout:
		c.metrics.Inc(metrics.PredictionTimeoutsTotal)
	case KindTransport:
		c.metrics.Inc(metrics.PredictionTransportTotal)
	case KindServer:
		c.metrics.Inc(metrics.PredictionServerErrTotal)
	case KindContract:
		c.metrics.Inc(metrics.ContractViolationsTotal)
	}

	detail := err.Error()
	if cause := errors.Unwrap(err); cause != nil {
		detail += " (" + cause.Error() + ")"
	}
	c.logger.With(string(subsystem)).Warn("prediction failed: " + detail)
}
