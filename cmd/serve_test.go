package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosense/potability-cli/internal/enhance"
	"github.com/hydrosense/potability-cli/internal/model"
	"github.com/hydrosense/potability-cli/internal/registry"
	"github.com/hydrosense/potability-cli/internal/store"
	"github.com/hydrosense/potability-cli/internal/validation"
)

// stubClient satisfies potability.Client without network access.
type stubClient struct {
	reachable bool
	resp      *model.PredictionResponse
}

func (s *stubClient) Predict(ctx context.Context, input model.WaterQualityInput) *model.PredictionResponse {
	return s.resp
}

func (s *stubClient) CheckReachable(ctx context.Context) bool { return s.reachable }

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu      sync.Mutex
	last    *model.WaterQualityInput
	records []store.Record
}

func (m *memStore) Migrate(ctx context.Context) error { return nil }
func (m *memStore) Close() error                      { return nil }

func (m *memStore) SaveLastInput(ctx context.Context, input model.WaterQualityInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &input
	return nil
}

func (m *memStore) LastInput(ctx context.Context) (*model.WaterQualityInput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, nil
}

func (m *memStore) RecordPrediction(ctx context.Context, rec *store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) ListPredictions(ctx context.Context, limit int) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Record(nil), m.records...), nil
}

func decodeJSON(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func newTestEnv(client *stubClient) *appEnv {
	reg := registry.Default()
	engine := validation.New(reg)
	return &appEnv{
		Registry: reg,
		Engine:   engine,
		Client:   client,
		Enhancer: enhance.New(enhance.DefaultPolicy(), engine, client),
		Store:    &memStore{},
	}
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(newTestEnv(&stubClient{reachable: true})))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRouter_Parameters(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(newTestEnv(&stubClient{})))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/parameters")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var params []map[string]any
	require.NoError(t, decodeJSON(resp, &params))
	require.Len(t, params, 9)
	assert.Equal(t, "ph", params[0]["key"])
	assert.Equal(t, "turbidity", params[8]["key"])
}

func TestRouter_Predict_LocalVerdict(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(newTestEnv(&stubClient{})))
	defer srv.Close()

	body := `{
		"ph": "7.2", "hardness": "120", "solids": "500",
		"chloramines": "2", "sulfate": "150", "conductivity": "300",
		"organic_carbon": "1.5", "trihalomethanes": "40", "turbidity": "0.5"
	}`
	resp, err := http.Post(srv.URL+"/api/v1/predict", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded model.PredictionResponse
	require.NoError(t, decodeJSON(resp, &decoded))
	assert.True(t, decoded.Success)
	require.NotNil(t, decoded.Prediction)
	assert.Equal(t, model.StatusPotable, decoded.Prediction.Status)
}

func TestRouter_Predict_ValidationFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(newTestEnv(&stubClient{})))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/predict", "application/json", strings.NewReader(`{"ph": "15"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var decoded model.PredictionResponse
	require.NoError(t, decodeJSON(resp, &decoded))
	assert.False(t, decoded.Success)
	assert.Contains(t, decoded.Details, "ph: out of range: 0-14 pH")
	assert.Contains(t, decoded.Details, "turbidity: required")
}

func TestRouter_Predict_BadBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(newTestEnv(&stubClient{})))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/predict", "application/json", strings.NewReader(`{broken`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_History(t *testing.T) {
	t.Parallel()

	env := newTestEnv(&stubClient{})
	st := env.Store.(*memStore)
	st.records = append(st.records, store.Record{ID: "rec-1", Source: model.SourceLocal})

	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/history?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var records []store.Record
	require.NoError(t, decodeJSON(resp, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].ID)
}

func TestRouter_History_BadLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(newTestEnv(&stubClient{})))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/history?limit=minus-one")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusForKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, statusForKind(model.ErrValidationFailed))
	assert.Equal(t, http.StatusConflict, statusForKind(model.ErrBusy))
	assert.Equal(t, http.StatusGatewayTimeout, statusForKind(model.ErrTimeout))
	assert.Equal(t, http.StatusTooManyRequests, statusForKind(model.ErrRateLimited))
	assert.Equal(t, http.StatusBadGateway, statusForKind(model.ErrNetworkUnreachable))
	assert.Equal(t, http.StatusInternalServerError, statusForKind(model.ErrUnknown))
}
