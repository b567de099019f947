// Package potability provides the HTTP client for the remote potability
// prediction service. Every outcome of a prediction call — success,
// transport failure, server error, malformed body — is normalized into a
// single PredictionResponse shape so callers never branch on error types.
package potability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hydrosense/potability-cli/internal/model"
)

const (
	defaultBaseURL      = "http://localhost:8000"
	predictPath         = "/predict"
	defaultMaxAttempts  = 3
	defaultBaseTimeout  = 10 * time.Second
	reachabilityTimeout = 5 * time.Second
)

// Client defines the prediction service operations.
type Client interface {
	// Predict sends the nine measurements to the service. The returned
	// response is never nil: transient failures are retried per the client's
	// RetryPolicy, and exhausted or non-retryable failures come back as a
	// failure PredictionResponse.
	Predict(ctx context.Context, input model.WaterQualityInput) *model.PredictionResponse
	// CheckReachable performs a single bounded GET against the service root
	// and reports whether it answered 2xx. It never returns an error; it is
	// a connectivity indicator, not a gate.
	CheckReachable(ctx context.Context) bool
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *httpClient) {
		c.policy = p
	}
}

// WithMaxAttempts adjusts only the attempt bound of the retry policy.
func WithMaxAttempts(n int) Option {
	return func(c *httpClient) {
		c.policy.MaxAttempts = n
	}
}

// WithLimiter applies an outbound rate limiter, shared across callers in
// batch mode.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	policy  RetryPolicy
	limiter *rate.Limiter
}

// NewClient creates a prediction service client. The underlying http.Client
// carries no overall timeout; the retry policy's growing per-attempt
// deadline bounds each request instead.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		policy:  DefaultRetryPolicy(),
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError carries the failure classification and the user-facing message;
// technical detail goes to Details and the log, never to the message.
type apiError struct {
	kind    model.ErrorKind
	msg     string
	details []string
}

func (e *apiError) Error() string { return e.msg }

func (c *httpClient) Predict(ctx context.Context, input model.WaterQualityInput) *model.PredictionResponse {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return failureFrom(err)
		}
	}

	body, err := json.Marshal(input)
	if err != nil {
		return model.NewFailure(model.ErrUnknown, "could not encode prediction request", err.Error())
	}

	var resp *model.PredictionResponse
	err = c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(body))
		if err != nil {
			return &apiError{kind: model.ErrUnknown, msg: "could not build prediction request", details: []string{err.Error()}}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		httpResp, err := c.http.Do(req)
		if err != nil {
			kind := model.ErrNetworkUnreachable
			msg := "unable to reach the prediction service — check your connection"
			if errors.Is(err, context.DeadlineExceeded) {
				kind = model.ErrTimeout
				msg = "the prediction service did not respond in time"
			}
			zap.L().Warn("prediction request failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return Transient(&apiError{kind: kind, msg: msg, details: []string{err.Error()}})
		}

		data, readErr := io.ReadAll(httpResp.Body)
		_ = httpResp.Body.Close()
		if readErr != nil {
			return Transient(&apiError{
				kind:    model.ErrNetworkUnreachable,
				msg:     "unable to reach the prediction service — check your connection",
				details: []string{readErr.Error()},
			})
		}

		switch {
		case httpResp.StatusCode == http.StatusTooManyRequests:
			zap.L().Warn("prediction service rate limited", zap.Int("attempt", attempt))
			return Transient(&apiError{
				kind: model.ErrRateLimited,
				msg:  "the prediction service is busy — please try again",
			})
		case httpResp.StatusCode >= 500:
			zap.L().Warn("prediction service error",
				zap.Int("status", httpResp.StatusCode),
				zap.Int("attempt", attempt),
			)
			return Transient(&apiError{
				kind:    model.ErrServerError,
				msg:     "the prediction service hit an internal error",
				details: []string{fmt.Sprintf("HTTP %d", httpResp.StatusCode)},
			})
		case httpResp.StatusCode >= 400:
			msg, details := parseErrorBody(data, httpResp.StatusCode)
			return &apiError{kind: model.ErrClientError, msg: msg, details: details}
		}

		var decoded model.PredictionResponse
		if err := json.Unmarshal(data, &decoded); err != nil {
			return &apiError{kind: model.ErrMalformedResponse, msg: "invalid response format", details: []string{err.Error()}}
		}
		if decoded.Success && decoded.Prediction == nil {
			return &apiError{kind: model.ErrMalformedResponse, msg: "invalid response format", details: []string{"success response missing prediction"}}
		}
		if !decoded.Success {
			decoded.Kind = model.ErrUnknown
		}
		if decoded.Timestamp == "" {
			decoded.Timestamp = model.Now()
		}
		decoded.Source = model.SourceRemote
		resp = &decoded
		return nil
	})
	if err != nil {
		return failureFrom(err)
	}
	return resp
}

func (c *httpClient) CheckReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, reachabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// failureFrom converts a classified error into a failure PredictionResponse.
func failureFrom(err error) *model.PredictionResponse {
	var ae *apiError
	if errors.As(err, &ae) {
		return model.NewFailure(ae.kind, ae.msg, ae.details...)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewFailure(model.ErrTimeout, "the prediction service did not respond in time", err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return model.NewFailure(model.ErrUnknown, "prediction cancelled", err.Error())
	}
	return model.NewFailure(model.ErrUnknown, "prediction failed", err.Error())
}

// parseErrorBody extracts a message from a 4xx body. It accepts both the
// service's own failure shape ({"error": ...}) and FastAPI validation
// errors ({"detail": string} or {"detail": [{"msg": ...}, ...]}).
func parseErrorBody(data []byte, status int) (string, []string) {
	var probe struct {
		Error   string          `json:"error"`
		Details []string        `json:"details"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &probe); err == nil {
		if probe.Error != "" {
			return probe.Error, probe.Details
		}
		if len(probe.Detail) > 0 {
			var s string
			if json.Unmarshal(probe.Detail, &s) == nil && s != "" {
				return s, nil
			}
			var items []struct {
				Msg string `json:"msg"`
			}
			if json.Unmarshal(probe.Detail, &items) == nil && len(items) > 0 {
				details := make([]string, 0, len(items))
				for _, it := range items {
					if it.Msg != "" {
						details = append(details, it.Msg)
					}
				}
				return "the prediction service rejected the request", details
			}
		}
	}
	return fmt.Sprintf("the prediction service rejected the request (HTTP %d)", status), nil
}
