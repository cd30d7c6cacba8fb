package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/codec"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/ingest"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/logging"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/metrics"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/state"
)

// maxBody bounds request bodies.
const maxBody = 8 << 20

// #region api
// API serves estimates over HTTP/JSON. The store is optional; routes that
// need it answer 503 without one.
type API struct {
	engine  *engine.Engine
	store   *state.Store
	ingest  *ingest.Ingester
	metrics *metrics.Metrics
	log     *slog.Logger
	start   time.Time
}

// New creates an API. store and logger may be nil.
func New(e *engine.Engine, store *state.Store, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{engine: e, store: store, log: logger, start: time.Now()}
	if store != nil {
		a.ingest = ingest.NewIngester(store, logger)
	}
	return a
}

// WithMetrics instruments every route and serves m at /metrics.
func (a *API) WithMetrics(m *metrics.Metrics) *API {
	a.metrics = m
	return a
}

// Router returns the route table.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
		r.Use(a.instrument)
	}
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/estimate", a.handleEstimate).Methods(http.MethodPost)
	r.HandleFunc("/v1/timeline", a.handleTimeline).Methods(http.MethodPost)
	r.HandleFunc("/v1/users/{user}/events", a.handleAddEvents).Methods(http.MethodPost)
	r.HandleFunc("/v1/users/{user}/snapshots", a.handleListSnapshots).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/{user}/rollback/{version}", a.handleRollback).Methods(http.MethodPost)
	r.HandleFunc("/v1/snapshots/{version}", a.handleSnapshot).Methods(http.MethodGet)
	return r
}

// Handler wraps the router with access logging to w and panic recovery.
func (a *API) Handler(w io.Writer) http.Handler {
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))
	return handlers.LoggingHandler(w, recovery(a.Router()))
}

func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		a.metrics.WrapHandler(route, next).ServeHTTP(w, r)
	})
}

// #endregion api

// #region estimate
func (a *API) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req codec.EstimateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}
	if req.Persist && (a.store == nil || req.UserID == "") {
		a.writeError(w, http.StatusPreconditionFailed, "persist requires a store and a user_id")
		return
	}
	h, ok := a.history(w, req.UserID, req.Events)
	if !ok {
		return
	}

	res := a.engine.Estimate(h, req.At)
	a.metrics.ObserveResult("http", res)
	resp := codec.EstimateResponse{Result: res}
	if req.Persist {
		id, err := codec.Persist(a.store, req.UserID, req.Events, res)
		if err != nil {
			a.log.Error("persist estimate", "user", req.UserID, "error", err)
			a.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.VersionID = id
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleTimeline(w http.ResponseWriter, r *http.Request) {
	var req codec.TimelineRequest
	if !a.decode(w, r, &req) {
		return
	}
	h, ok := a.history(w, req.UserID, req.Events)
	if !ok {
		return
	}
	points, err := a.engine.Timeline(h, req.From, req.To, req.Step())
	if errors.Is(err, engine.ErrTimeline) {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, codec.TimelineResponse{Points: points})
}

// #endregion estimate

// #region store-routes
func (a *API) handleAddEvents(w http.ResponseWriter, r *http.Request) {
	if !a.needStore(w) {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := a.ingest.Handle(mux.Vars(r)["user"], body)
	a.metrics.ObserveIngest("http", n, err)
	if errors.Is(err, ingest.ErrPayload) {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"stored": n})
}

type snapshotView struct {
	VersionID   string             `json:"version_id"`
	ParentID    string             `json:"parent_id,omitempty"`
	QueryTime   time.Time          `json:"query_time"`
	State       string             `json:"state"`
	Scores      map[string]float64 `json:"scores"`
	Confidence  map[string]float64 `json:"confidence"`
	Adjustments int                `json:"adjustments"`
	CreatedAt   time.Time          `json:"created_at"`
}

func (a *API) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if !a.needStore(w) {
		return
	}
	last := 20
	if v := r.URL.Query().Get("last"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			a.writeError(w, http.StatusBadRequest, "last must be a positive integer")
			return
		}
		last = n
	}
	snaps, err := a.store.ListSnapshotsWithLog(mux.Vars(r)["user"], last)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]snapshotView, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, snapshotView{
			VersionID:   s.VersionID,
			ParentID:    s.ParentID,
			QueryTime:   s.QueryTime,
			State:       s.State,
			Scores:      s.Scores.Map(),
			Confidence:  s.Confidence.Map(),
			Adjustments: s.Adjustments,
			CreatedAt:   s.CreatedAt,
		})
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !a.needStore(w) {
		return
	}
	snap, err := a.store.GetSnapshot(mux.Vars(r)["version"])
	if errors.Is(err, sql.ErrNoRows) {
		a.writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	adjs, err := logging.Adjustments(a.store.DB(), snap.VersionID)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"version_id":  snap.VersionID,
		"parent_id":   snap.ParentID,
		"user_id":     snap.UserID,
		"result":      json.RawMessage(snap.ResultJSON),
		"adjustments": adjs,
	})
}

func (a *API) handleRollback(w http.ResponseWriter, r *http.Request) {
	if !a.needStore(w) {
		return
	}
	vars := mux.Vars(r)
	err := a.store.Rollback(vars["user"], vars["version"])
	if errors.Is(err, sql.ErrNoRows) {
		a.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusConflict, err.Error())
		return
	}
	a.log.Info("rollback", "user", vars["user"], "version", vars["version"])
	a.writeJSON(w, http.StatusOK, map[string]any{"active": vars["version"]})
}

// #endregion store-routes

// #region helpers
func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime_s": int(time.Since(a.start).Seconds()),
		"store":    a.store != nil,
	})
}

func (a *API) history(w http.ResponseWriter, userID string, evs []event.Event) (event.History, bool) {
	if len(evs) > 0 || a.store == nil {
		event.AssignIDs(evs)
		return event.NewHistory(evs), true
	}
	if userID == "" {
		a.writeError(w, http.StatusBadRequest, "user_id or events required")
		return event.History{}, false
	}
	h, err := a.store.History(userID)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return event.History{}, false
	}
	return h, true
}

func (a *API) needStore(w http.ResponseWriter) bool {
	if a.store == nil {
		a.writeError(w, http.StatusServiceUnavailable, "no store configured")
		return false
	}
	return true
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("error encoding JSON response", "err", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]any{"error": msg})
}

// #endregion helpers
