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

	"github.com/sells-group/dealflow-cli/internal/deal"
	"github.com/sells-group/dealflow-cli/internal/matcher"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/pipeline"
	"github.com/sells-group/dealflow-cli/internal/scoring"
	"github.com/sells-group/dealflow-cli/internal/store"
	"github.com/sells-group/dealflow-cli/pkg/crm"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the matching webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stageMap, err := loadStageMap()
		if err != nil {
			return err
		}

		var syncer *crm.Syncer
		if cfg.CRM.ClientID != "" {
			client, err := initCRM()
			if err != nil {
				return err
			}
			syncer = crm.NewSyncer(client)
		}

		runner := matcher.NewRunner(st, scoring.NewEngine(cfg.Scoring), initResolver(), cfg.Match)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(ctx, st, runner, pipeline.NewMachine(stageMap), syncer),
		}

		// Graceful shutdown. The signal context is already cancelled here,
		// so the drain gets its own deadline.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(ctx context.Context, st store.Store, runner *matcher.Runner, machine *pipeline.Machine, syncer *crm.Syncer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhook/match", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			BuyerID    string `json:"buyer_id"`
			PropertyID string `json:"property_id"`
			MinScore   int    `json:"min_score"`
			RefreshAll bool   `json:"refresh_all"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		// The batch can grow large; run it detached from the request, bound
		// to the server lifetime instead.
		go func() {
			result, err := runner.Run(ctx, matcher.Request{
				BuyerID:    body.BuyerID,
				PropertyID: body.PropertyID,
				MinScore:   body.MinScore,
				RefreshAll: body.RefreshAll,
			})
			if err != nil {
				zap.L().Error("webhook match run failed", zap.Error(err))
				return
			}
			zap.L().Info("webhook match run complete",
				zap.Int("created", result.Created),
				zap.Int("updated", result.Updated),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	})

	r.Post("/matches/{id}/stage", func(w http.ResponseWriter, req *http.Request) {
		matchID := chi.URLParam(req, "id")
		var body struct {
			Stage string `json:"stage"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		target := model.DealStage(body.Stage)
		if !target.Known() || target == model.StageUnset {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown stage %q", body.Stage))
			return
		}

		match, err := st.GetMatchByID(req.Context(), matchID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if match == nil {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}

		oldSyncID := match.SyncID
		intent, err := machine.Advance(match, target, time.Now().UTC())
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}

		syncID := oldSyncID
		if syncer != nil {
			newID, err := syncer.Apply(req.Context(), *intent, oldSyncID)
			if err != nil {
				zap.L().Warn("crm sync failed, stage saved locally only", zap.Error(err))
				syncID = ""
			} else {
				syncID = newID
			}
		}

		if err := st.UpdateMatchStage(req.Context(), match.ID, target, syncID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		activity := match.Activities[len(match.Activities)-1]
		if err := st.AppendActivity(req.Context(), activity); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		match.SyncID = syncID
		writeJSON(w, http.StatusOK, match)
	})

	r.Get("/matches/{id}", func(w http.ResponseWriter, req *http.Request) {
		match, err := st.GetMatchByID(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if match == nil {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		activities, err := st.ListActivities(req.Context(), match.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		match.Activities = activities
		writeJSON(w, http.StatusOK, match)
	})

	r.Get("/deals", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		filter := store.MatchFilter{
			BuyerID:    q.Get("buyer"),
			PropertyID: q.Get("property"),
			Stage:      model.DealStage(q.Get("stage")),
		}

		projector := deal.NewProjector(st)
		var (
			deals []deal.Deal
			err   error
		)
		if q.Get("stale") == "true" {
			deals, err = projector.Stale(req.Context(), filter)
		} else {
			deals, err = projector.Build(req.Context(), filter)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		deal.SortByUrgency(deals)
		writeJSON(w, http.StatusOK, map[string]any{"deals": deals, "count": len(deals)})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
