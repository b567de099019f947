package potability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosense/potability-cli/internal/model"
)

func sampleInput() model.WaterQualityInput {
	return model.WaterQualityInput{
		PH:              7.2,
		Hardness:        120,
		Solids:          800,
		Chloramines:     2.5,
		Sulfate:         150,
		Conductivity:    300,
		OrganicCarbon:   1.5,
		Trihalomethanes: 40,
		Turbidity:       0.8,
	}
}

func successBody() string {
	return `{
		"success": true,
		"prediction": {
			"potability_score": 0.82,
			"is_potable": true,
			"confidence": 0.9,
			"risk_level": "LOW",
			"status": "POTABLE"
		},
		"recommendation": "Safe to drink.",
		"warnings": [],
		"model_info": {"model_type": "random_forest", "standardization_used": true},
		"timestamp": "2026-08-01T00:00:00Z"
	}`
}

// fastPolicy retries without sleeping so tests stay quick.
func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    attempts,
		Delay:          func(int) time.Duration { return 0 },
		AttemptTimeout: GrowingTimeout(time.Second, time.Second),
	}
}

func TestPredict_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.InDelta(t, 7.2, body["ph"], 1e-9)
		assert.Len(t, body, 9)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(successBody()))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy(3)))
	resp := client.Predict(context.Background(), sampleInput())

	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Prediction)
	assert.InDelta(t, 0.82, resp.Prediction.PotabilityScore, 1e-9)
	assert.Equal(t, model.RiskLow, resp.Prediction.RiskLevel)
	assert.Equal(t, model.SourceRemote, resp.Source)
}

func TestPredict_RetriesServerErrorThenSucceeds(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(successBody()))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy(3)))
	resp := client.Predict(context.Background(), sampleInput())

	assert.True(t, resp.Success)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestPredict_ExhaustsRetriesOnTimeout(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	policy := RetryPolicy{
		MaxAttempts:    2,
		Delay:          func(int) time.Duration { return 0 },
		AttemptTimeout: func(int) time.Duration { return 30 * time.Millisecond },
	}
	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(policy))
	resp := client.Predict(context.Background(), sampleInput())

	assert.False(t, resp.Success)
	assert.Equal(t, model.ErrTimeout, resp.Kind)
	assert.Equal(t, "the prediction service did not respond in time", resp.Error)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestPredict_NetworkUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy(2)))
	resp := client.Predict(context.Background(), sampleInput())

	assert.False(t, resp.Success)
	assert.Equal(t, model.ErrNetworkUnreachable, resp.Kind)
	assert.Contains(t, resp.Error, "unable to reach the prediction service")
}

func TestPredict_RateLimitedRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy(3)))
	resp := client.Predict(context.Background(), sampleInput())

	assert.False(t, resp.Success)
	assert.Equal(t, model.ErrRateLimited, resp.Kind)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestPredict_ClientErrorNoRetry(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": [{"msg": "ph must be a number"}, {"msg": "turbidity required"}]}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy(3)))
	resp := client.Predict(context.Background(), sampleInput())

	assert.False(t, resp.Success)
	assert.Equal(t, model.ErrClientError, resp.Kind)
	assert.Equal(t, "the prediction service rejected the request", resp.Error)
	assert.Equal(t, []string{"ph must be a number", "turbidity required"}, resp.Details)
	assert.Equal(t, int32(1), attempts.Load(), "4xx must not be retried")
}

func TestPredict_ClientErrorDetailString(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "missing field ph"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy(1)))
	resp := client.Predict(context.Background(), sampleInput())

	assert.False(t, resp.Success)
	assert.Equal(t, "missing field ph", resp.Error)
}

func TestPredict_ClientErrorUnparseableBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy(1)))
	resp := client.Predict(context.Background(), sampleInput())

	assert.False(t, resp.Success)
	assert.Equal(t, "the prediction service rejected the request (HTTP 400)", resp.Error)
}

func TestPredict_MalformedSuccessBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy(1)))
	resp := client.Predict(context.Background(), sampleInput())

	assert.False(t, resp.Success)
	assert.Equal(t, model.ErrMalformedResponse, resp.Kind)
	assert.Equal(t, "invalid response format", resp.Error)
}

func TestPredict_SuccessMissingPrediction(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy(1)))
	resp := client.Predict(context.Background(), sampleInput())

	assert.False(t, resp.Success)
	assert.Equal(t, model.ErrMalformedResponse, resp.Kind)
}

func TestCheckReachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	assert.True(t, client.CheckReachable(context.Background()))

	srv.Close()
	assert.False(t, client.CheckReachable(context.Background()))
}

func TestCheckReachable_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	assert.False(t, client.CheckReachable(context.Background()))
}
