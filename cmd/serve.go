package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadline-labs/mailscout-cli/internal/model"
	"github.com/leadline-labs/mailscout-cli/internal/monitoring"
	"github.com/leadline-labs/mailscout-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for finder runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.Enabled {
			collector := monitoring.NewCollector(env.Store)
			alerter := monitoring.NewAlerter(cfg.Monitoring)
			go monitoring.NewChecker(collector, alerter, cfg.Monitoring).Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(ctx, env),
			ReadHeaderTimeout: 10 * time.Second,
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

func newRouter(ctx context.Context, env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)
	r.Get("/metrics", handleMetrics(env))
	r.Post("/runs", handleCreateRun(ctx, env))
	r.Get("/runs", handleListRuns(env))
	r.Get("/runs/{id}", handleGetRun(env))
	r.Get("/runs/{id}/results", handleGetResults(env))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleMetrics(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lookback := cfg.Monitoring.LookbackWindowHours
		if lookback <= 0 {
			lookback = 24
		}
		snap, err := monitoring.NewCollector(env.Store).Collect(r.Context(), lookback)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to collect metrics")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// createRunRequest is the POST /runs body. Contacts are submitted inline
// rather than by file path so remote callers can use the API.
type createRunRequest struct {
	Source   string `json:"source"`
	Contacts []struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Company   string `json:"company"`
	} `json:"contacts"`
}

func handleCreateRun(serverCtx context.Context, env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Contacts) == 0 {
			writeError(w, http.StatusBadRequest, "contacts is required")
			return
		}

		source := req.Source
		if source == "" {
			source = "api"
		}

		contacts := make([]model.Contact, len(req.Contacts))
		for i, c := range req.Contacts {
			contacts[i] = model.Contact{
				RowIndex:  i,
				FirstName: c.FirstName,
				LastName:  c.LastName,
				Company:   c.Company,
			}
		}

		run, err := env.Store.CreateRun(r.Context(), source)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create run")
			return
		}

		// Process asynchronously; the run record tracks progress. The
		// request context dies with the response, so the pipeline runs
		// on the server context.
		go runPipelineAsync(serverCtx, env, run.ID, contacts)

		writeJSON(w, http.StatusAccepted, map[string]any{
			"run_id": run.ID,
			"status": run.Status,
		})
	}
}

func runPipelineAsync(ctx context.Context, env *pipelineEnv, runID string, contacts []model.Contact) {
	if err := env.Store.UpdateRunStatus(ctx, runID, model.RunStatusRunning); err != nil {
		zap.L().Warn("failed to mark run running", zap.Error(err))
	}

	out, err := env.Runner.Run(ctx, contacts)
	if err != nil {
		zap.L().Error("api run failed", zap.String("run_id", runID), zap.Error(err))
		if statusErr := env.Store.UpdateRunStatus(ctx, runID, model.RunStatusFailed); statusErr != nil {
			zap.L().Warn("failed to mark run failed", zap.Error(statusErr))
		}
		return
	}

	if err := env.Store.SaveResults(ctx, runID, out.Results); err != nil {
		zap.L().Error("failed to save results", zap.String("run_id", runID), zap.Error(err))
		return
	}
	if err := env.Store.CompleteRun(ctx, runID, out.Stats); err != nil {
		zap.L().Error("failed to complete run", zap.String("run_id", runID), zap.Error(err))
		return
	}
	zap.L().Info("api run complete",
		zap.String("run_id", runID),
		zap.Int("found", out.Stats.Found),
		zap.Int("total", out.Stats.Total),
	)
}

func handleListRuns(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.RunFilter{
			Status: model.RunStatus(r.URL.Query().Get("status")),
			Limit:  50,
		}
		runs, err := env.Store.ListRuns(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

func handleGetRun(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := env.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func handleGetResults(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := env.Store.GetRun(r.Context(), id); err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		results, err := env.Store.ListResults(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list results")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
