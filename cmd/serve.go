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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
	"github.com/sentaiment/report-cli/internal/reconcile"
	"github.com/sentaiment/report-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server for report requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newServeRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("server listening", zap.Int("port", port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}
	},
}

// newServeRouter builds the webhook server's routes on top of a store.
func newServeRouter(st store.Store) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhook/report", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Company   string           `json:"company"`
			Fragments []map[string]any `json:"fragments"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if len(body.Fragments) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fragments are required"})
			return
		}

		run, err := st.CreateRun(req.Context(), body.Company)
		if err != nil {
			zap.L().Error("webhook: create run failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
			return
		}

		fragments := make([]model.Fragment, 0, len(body.Fragments))
		for _, f := range body.Fragments {
			fragments = append(fragments, model.Fragment{Branch: "webhook", Data: f})
		}

		// Reconcile asynchronously; the webhook caller only needs the run id.
		go func() {
			bg := context.WithoutCancel(req.Context())
			if err := st.UpdateRunStatus(bg, run.ID, model.RunStatusReconciling); err != nil {
				zap.L().Error("webhook: update status failed", zap.Error(err))
			}
			doc := reconcile.New(reconcile.WithCompany(body.Company)).Reconcile(fragments)
			if err := st.CompleteRun(bg, run.ID, doc); err != nil {
				zap.L().Error("webhook: complete run failed",
					zap.String("run_id", run.ID),
					zap.Error(err),
				)
				// Mark the run failed so callers polling /runs/{id} are not
				// left watching "reconciling" forever.
				if ferr := st.FailRun(bg, run.ID, err.Error()); ferr != nil {
					zap.L().Error("webhook: fail run failed",
						zap.String("run_id", run.ID),
						zap.Error(ferr),
					)
				}
				return
			}
			zap.L().Info("webhook: run complete",
				zap.String("run_id", run.ID),
				zap.String("company", doc.Company),
				zap.Int("scenarios", doc.Metadata.TotalScenarios),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"run_id": run.ID,
		})
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
