package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/combatsim/internal/game/catalog"
	"github.com/cory-johannsen/combatsim/internal/simulation"
)

// DefaultHistoryLimit caps History when the request names no limit.
const DefaultHistoryLimit = 50

// Server implements SimulatorServer over a simulation.Service.
type Server struct {
	svc    *simulation.Service
	logger *zap.Logger
}

// NewServer creates a Server.
//
// Precondition: svc and logger must be non-nil.
func NewServer(svc *simulation.Service, logger *zap.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// Run implements SimulatorServer.
func (s *Server) Run(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := requestFrom(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec, err := s.svc.RunSync(ctx, req)
	if err != nil && rec == nil {
		return nil, s.toStatus("Run", err)
	}
	// A failed run still carries its record; the failure is in rec.Error.
	out, err := recordStruct(rec)
	if err != nil {
		return nil, s.toStatus("Run", err)
	}
	return out, nil
}

// Submit implements SimulatorServer.
func (s *Server) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := requestFrom(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, err := s.svc.Submit(ctx, req)
	if err != nil {
		return nil, s.toStatus("Submit", err)
	}
	return structpb.NewStruct(map[string]any{"id": id})
}

// Status implements SimulatorServer.
func (s *Server) Status(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := in.GetFields()["id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	rec, err := s.svc.Status(ctx, id)
	if err != nil {
		return nil, s.toStatus("Status", err)
	}
	out, err := recordStruct(rec)
	if err != nil {
		return nil, s.toStatus("Status", err)
	}
	return out, nil
}

// Batch implements SimulatorServer.
func (s *Server) Batch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := requestFrom(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	runs, err := intField(in.GetFields(), "runs")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.svc.RunBatch(ctx, req, runs)
	if err != nil {
		return nil, s.toStatus("Batch", err)
	}
	out, err := toStruct(res, map[string]uint64{"base_seed": res.BaseSeed})
	if err != nil {
		return nil, s.toStatus("Batch", err)
	}
	return out, nil
}

// History implements SimulatorServer.
func (s *Server) History(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	limit, err := intField(in.GetFields(), "limit")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	recs, err := s.svc.History(ctx, limit)
	if err != nil {
		return nil, s.toStatus("History", err)
	}
	list := make([]any, 0, len(recs))
	for _, rec := range recs {
		m, err := recordMap(rec)
		if err != nil {
			return nil, s.toStatus("History", err)
		}
		list = append(list, m)
	}
	out, err := structpb.NewStruct(map[string]any{"simulations": list})
	if err != nil {
		return nil, s.toStatus("History", err)
	}
	return out, nil
}

// toStatus maps service errors onto gRPC codes.
func (s *Server) toStatus(method string, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, simulation.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, simulation.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Error("simulator rpc failed", zap.String("method", method), zap.Error(err))
	return status.Error(codes.Internal, err.Error())
}
