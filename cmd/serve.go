package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datavex/intel-cli/internal/model"
	"github.com/datavex/intel-cli/internal/pipeline"
	"github.com/datavex/intel-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan and query API",
	Long: `Starts the HTTP API: scan submission (one at a time, 429 when busy),
scan status, and the scored company listings. Submitted scans run in the
background; poll the scan endpoint for progress.`,
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
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newAPI(env).router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("serving", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// api is the HTTP surface over the pipeline, store, and cache.
type api struct {
	env *appEnv
}

func newAPI(env *appEnv) *api {
	return &api{env: env}
}

func (a *api) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", a.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scan", a.handleSubmitScan)
		r.Get("/scan/{id}", a.handleGetScan)
		r.Get("/companies", a.handleListCompanies)
		r.Get("/companies/{key}", a.handleGetCompany)
		r.Get("/companies/{key}/signals", a.handleCompanySignals)
	})
	return r
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scanRequest struct {
	Company string `json:"company"`
}

// handleSubmitScan accepts a scan, runs it in the background, and returns
// 202 immediately. A scan already in flight yields 429 with its id.
func (a *api) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Company) == "" {
		writeError(w, http.StatusBadRequest, "company is required")
		return
	}

	scan, err := a.env.pipeline.Submit(r.Context(), req.Company)
	if err != nil {
		var busy *pipeline.BusyError
		if errors.As(err, &busy) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "a scan is already in flight",
				"in_flight_scan_id": busy.ScanID,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	go func() {
		// Detached from the request: the scan outlives the HTTP exchange.
		if _, err := a.env.pipeline.Run(context.Background(), scan); err != nil {
			zap.L().Error("background scan failed",
				zap.String("scan", scan.ID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"scan_id":     scan.ID,
		"company_key": scan.CompanyKey,
		"status":      string(model.ScanStatusQueued),
	})
}

func (a *api) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scan, err := a.env.store.GetScan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (a *api) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minScore, _ := strconv.Atoi(q.Get("min_score"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	recs, err := a.env.store.ListCompanies(r.Context(), store.CompanyFilter{
		MinScore:   minScore,
		Confidence: model.Priority(strings.ToUpper(q.Get("confidence"))),
		Sort:       q.Get("sort"),
		Limit:      limit,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	for i := range recs {
		recs[i].Data = nil
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *api) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	rec, err := a.env.store.GetCompany(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleCompanySignals exposes the cached SIGNALS and SCORING payloads with
// their provenance tags.
func (a *api) handleCompanySignals(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	signals, err := a.env.cache.Get(r.Context(), key, model.StageSignals)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	scoring, err := a.env.cache.Get(r.Context(), key, model.StageScoring)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if signals == nil && scoring == nil {
		writeError(w, http.StatusNotFound, "no cached signals for company")
		return
	}

	sources, err := a.env.cache.Sources(r.Context(), key)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"company_key": key,
		"signals":     signals,
		"scoring":     scoring,
		"sources":     sources,
	})
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
