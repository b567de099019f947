package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hydrosense/potability-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP API over the environment. Split out so tests can
// exercise the handlers with httptest.
func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "ok",
			"service_reachable": env.Client.CheckReachable(req.Context()),
		})
	})

	r.Get("/api/v1/parameters", func(w http.ResponseWriter, req *http.Request) {
		type param struct {
			Key        string  `json:"key"`
			Label      string  `json:"label"`
			Unit       string  `json:"unit"`
			Min        float64 `json:"min"`
			Max        float64 `json:"max"`
			OptimalMin float64 `json:"optimal_min"`
			OptimalMax float64 `json:"optimal_max"`
			Note       string  `json:"note,omitempty"`
		}
		all := env.Registry.All()
		out := make([]param, 0, len(all))
		for _, p := range all {
			out = append(out, param{
				Key: p.Key, Label: p.Label, Unit: p.Unit,
				Min: p.Min, Max: p.Max,
				OptimalMin: p.OptimalMin, OptimalMax: p.OptimalMax,
				Note: p.OptimalNote,
			})
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Post("/api/v1/predict", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, model.NewFailure(
				model.ErrValidationFailed, "invalid request body", err.Error(),
			))
			return
		}
		for _, key := range model.ParameterKeys {
			if _, set := body[key]; !set {
				body[key] = ""
			}
		}

		// A fresh orchestrator per request; concurrency is bounded by the
		// server, not the busy check.
		resp := env.newOrchestrator().Predict(req.Context(), body)
		status := http.StatusOK
		if !resp.Success {
			status = statusForKind(resp.Kind)
		}
		writeJSON(w, status, resp)
	})

	r.Get("/api/v1/history", func(w http.ResponseWriter, req *http.Request) {
		limit := 0
		if s := req.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}

		records, err := env.Store.ListPredictions(req.Context(), limit)
		if err != nil {
			zap.L().Error("history query failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load history"})
			return
		}
		writeJSON(w, http.StatusOK, records)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForKind maps failure kinds onto HTTP statuses for the serve API.
func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.ErrValidationFailed, model.ErrRequiredFieldMissing,
		model.ErrNotANumber, model.ErrOutOfRange, model.ErrClientError:
		return http.StatusBadRequest
	case model.ErrBusy:
		return http.StatusConflict
	case model.ErrTimeout:
		return http.StatusGatewayTimeout
	case model.ErrRateLimited:
		return http.StatusTooManyRequests
	case model.ErrNetworkUnreachable, model.ErrServerError, model.ErrMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
