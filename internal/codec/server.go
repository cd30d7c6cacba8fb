package codec

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/logging"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/metrics"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/state"
)

// #region server
// Server implements EstimatorServer on top of an engine and an optional
// store. Without a store, requests must carry their events.
type Server struct {
	engine  *engine.Engine
	store   *state.Store
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewServer creates a server. store and logger may be nil.
func NewServer(e *engine.Engine, store *state.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: e, store: store, log: logger}
}

// WithMetrics records every estimate on m.
func (s *Server) WithMetrics(m *metrics.Metrics) *Server {
	s.metrics = m
	return s
}

// Register attaches the service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&EstimatorServiceDesc, s)
}

// #endregion server

// #region estimate
// Estimate evaluates one point in time.
func (s *Server) Estimate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req EstimateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}
	if req.Persist && (s.store == nil || req.UserID == "") {
		return nil, status.Error(codes.FailedPrecondition, "persist requires a store and a user_id")
	}
	h, err := s.history(req.UserID, req.Events)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	res := s.engine.Estimate(h, req.At)
	s.metrics.ObserveResult("grpc", res)
	resp := EstimateResponse{Result: res}
	if req.Persist {
		id, err := Persist(s.store, req.UserID, req.Events, res)
		if err != nil {
			s.log.Error("persist estimate", "user", req.UserID, "error", err)
			return nil, status.Error(codes.Internal, err.Error())
		}
		resp.VersionID = id
	}
	s.log.Info("estimate",
		"user", req.UserID,
		"at", req.At.Format(time.RFC3339),
		"events", h.Len(),
		"skipped", len(res.Skipped),
		"state", res.Balance.State,
		"version", resp.VersionID,
	)
	return toStruct(resp)
}

// #endregion estimate

// #region timeline
// Timeline evaluates a range of points.
func (s *Server) Timeline(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req TimelineRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	h, err := s.history(req.UserID, req.Events)
	if err != nil {
		return nil, err
	}
	points, err := s.engine.Timeline(h, req.From, req.To, req.Step())
	if errors.Is(err, engine.ErrTimeline) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	s.log.Info("timeline", "user", req.UserID, "points", len(points), "events", h.Len())
	return toStruct(TimelineResponse{Points: points})
}

// #endregion timeline

// #region helpers
// history assigns IDs to inline events so results and persisted rows agree.
func (s *Server) history(userID string, evs []event.Event) (event.History, error) {
	if len(evs) > 0 || s.store == nil {
		event.AssignIDs(evs)
		return event.NewHistory(evs), nil
	}
	if userID == "" {
		return event.History{}, status.Error(codes.InvalidArgument, "user_id or events required")
	}
	h, err := s.store.History(userID)
	if err != nil {
		return event.History{}, status.Error(codes.Internal, err.Error())
	}
	return h, nil
}

// Persist stores any inline events, then the snapshot and its adjustment
// log, and returns the new version ID.
func Persist(store *state.Store, userID string, evs []event.Event, res engine.Result) (string, error) {
	if len(evs) > 0 {
		if _, err := store.AddEvents(userID, evs); err != nil {
			return "", err
		}
	}
	rec, err := state.NewSnapshot(userID, res)
	if err != nil {
		return "", err
	}
	rec, err = store.CommitSnapshot(rec)
	if err != nil {
		return "", err
	}
	if _, err := logging.LogResult(store.DB(), rec.VersionID, res); err != nil {
		return "", err
	}
	return rec.VersionID, nil
}

// #endregion helpers
