package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hydrosense/potability-cli/internal/config"
	"github.com/hydrosense/potability-cli/internal/enhance"
	"github.com/hydrosense/potability-cli/internal/orchestrator"
	"github.com/hydrosense/potability-cli/internal/registry"
	"github.com/hydrosense/potability-cli/internal/store"
	"github.com/hydrosense/potability-cli/internal/validation"
	"github.com/hydrosense/potability-cli/pkg/potability"
)

// appEnv holds everything the commands need: the parameter registry, the
// validation engine, the service client, the enhancer, and the store.
type appEnv struct {
	Registry *registry.Registry
	Engine   *validation.Engine
	Client   potability.Client
	Enhancer *enhance.Enhancer
	Store    store.Store
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv builds the application environment from config. Callers should
// defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	reg := registry.Default()
	if cfg.Registry.File != "" {
		overrides, err := registry.LoadOverrides(cfg.Registry.File)
		if err != nil {
			return nil, eris.Wrap(err, "load registry overrides")
		}
		if len(overrides) > 0 {
			if err := reg.ApplyOverrides(overrides); err != nil {
				return nil, eris.Wrap(err, "apply registry overrides")
			}
			zap.L().Info("registry overrides applied",
				zap.String("file", cfg.Registry.File),
				zap.Int("count", len(overrides)),
			)
		}
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	engine := validation.New(reg)
	client := newServiceClient()
	enhancer := enhance.New(policyFromConfig(cfg.Policy), engine, client)

	return &appEnv{
		Registry: reg,
		Engine:   engine,
		Client:   client,
		Enhancer: enhancer,
		Store:    st,
	}, nil
}

// newServiceClient builds the prediction service client from config.
func newServiceClient() potability.Client {
	opts := []potability.Option{
		potability.WithBaseURL(cfg.Service.BaseURL),
		potability.WithRetryPolicy(potability.RetryPolicy{
			MaxAttempts: cfg.Service.MaxAttempts,
			Delay:       potability.LinearDelay(time.Second),
			AttemptTimeout: potability.GrowingTimeout(
				time.Duration(cfg.Service.TimeoutSecs)*time.Second,
				time.Duration(cfg.Service.TimeoutGrowthSecs)*time.Second,
			),
		}),
	}
	if cfg.Service.RateLimit > 0 {
		burst := cfg.Service.RateBurst
		if burst < 1 {
			burst = 1
		}
		opts = append(opts, potability.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Service.RateLimit), burst)))
	}
	return potability.NewClient(opts...)
}

// newOrchestrator wires a fresh orchestrator over the environment.
func (e *appEnv) newOrchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(e.Engine, e.Enhancer, e.Store)
}

func policyFromConfig(pc config.PolicyConfig) enhance.Policy {
	return enhance.Policy{
		OverrideThreshold: pc.OverrideThreshold,
		LowRiskThreshold:  pc.LowRiskThreshold,
		ScoreBase:         pc.ScoreBase,
		ScoreSpan:         pc.ScoreSpan,
		ConfidenceBase:    pc.ConfidenceBase,
		ConfidenceSpan:    pc.ConfidenceSpan,
		LocalScore:        pc.LocalScore,
		LocalConfidence:   pc.LocalConfidence,
	}
}
