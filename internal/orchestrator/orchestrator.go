// Package orchestrator runs the full prediction flow as a small state
// machine: validate, persist the input, pick the local or remote path,
// enhance, and record the outcome. A single orchestrator serves one
// prediction at a time and rejects concurrent requests.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hydrosense/potability-cli/internal/enhance"
	"github.com/hydrosense/potability-cli/internal/model"
	"github.com/hydrosense/potability-cli/internal/store"
	"github.com/hydrosense/potability-cli/internal/validation"
)

// State names the phases of a prediction run.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateLocalVerdict State = "local_verdict"
	StateRemoteCall   State = "remote_call"
	StateEnhancing    State = "enhancing"
	StateComplete     State = "complete"
	StateError        State = "error"
)

// Orchestrator drives raw text input through validation, prediction, and
// persistence. It is safe for concurrent use; overlapping Predict calls are
// rejected with a busy failure rather than queued.
type Orchestrator struct {
	mu    sync.Mutex
	busy  bool
	state State
	last  *model.PredictionResponse

	engine   *validation.Engine
	enhancer *enhance.Enhancer
	store    store.Store
}

// New creates an orchestrator. The store may be nil; persistence is then
// skipped entirely.
func New(engine *validation.Engine, enhancer *enhance.Enhancer, st store.Store) *Orchestrator {
	return &Orchestrator{
		state:    StateIdle,
		engine:   engine,
		enhancer: enhancer,
		store:    st,
	}
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Last returns the most recent completed response, or nil before the first
// run finishes.
func (o *Orchestrator) Last() *model.PredictionResponse {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Predict runs the full flow on raw text input keyed by wire name. It never
// returns nil: every outcome, including validation failures and the busy
// rejection, is a PredictionResponse.
func (o *Orchestrator) Predict(ctx context.Context, raw map[string]string) *model.PredictionResponse {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		zap.L().Warn("prediction rejected, another run is in progress")
		return model.NewFailure(model.ErrBusy, "a prediction is already in progress — please wait")
	}
	o.busy = true
	o.state = StateValidating
	o.mu.Unlock()

	resp := o.run(ctx, raw)

	o.mu.Lock()
	o.busy = false
	if resp.Success {
		o.state = StateComplete
	} else {
		o.state = StateError
	}
	o.last = resp
	o.mu.Unlock()
	return resp
}

func (o *Orchestrator) run(ctx context.Context, raw map[string]string) *model.PredictionResponse {
	results := o.engine.ValidateAll(raw)

	values := make(map[string]float64, len(results))
	var details []string
	for _, key := range model.ParameterKeys {
		res, ok := results[key]
		if !ok {
			details = append(details, fmt.Sprintf("%s: required", key))
			continue
		}
		if !res.Valid() {
			details = append(details, fmt.Sprintf("%s: %s", key, res.Err))
			continue
		}
		values[key] = res.Value
	}
	var extras []string
	for key, res := range results {
		if !contains(model.ParameterKeys, key) {
			extras = append(extras, fmt.Sprintf("%s: %s", key, res.Err))
		}
	}
	sort.Strings(extras)
	details = append(details, extras...)
	if len(details) > 0 {
		return model.NewFailure(model.ErrValidationFailed, "the input did not pass validation", details...)
	}

	input, err := model.InputFromValues(values)
	if err != nil {
		return model.NewFailure(model.ErrValidationFailed, "the input did not pass validation", err.Error())
	}

	if o.store != nil {
		if err := o.store.SaveLastInput(ctx, input); err != nil {
			zap.L().Warn("could not cache last input", zap.Error(err))
		}
	}

	if o.engine.IsFullyCompliant(input) {
		o.setState(StateLocalVerdict)
	} else {
		o.setState(StateRemoteCall)
	}

	resp := o.enhancer.Enhance(ctx, input)
	o.setState(StateEnhancing)

	if resp.Success && o.store != nil {
		rec := &store.Record{Input: input, Response: *resp, Source: resp.Source}
		if err := o.store.RecordPrediction(ctx, rec); err != nil {
			zap.L().Warn("could not record prediction", zap.Error(err))
		}
	}
	return resp
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
