package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/wyfcoding/heston/internal/simulation/application"
)

// Server gRPC 服务实现
type Server struct {
	app    *application.SimulationService
	health *health.Server
}

// NewServer 创建服务并注册到 s，同时注册标准健康检查服务
func NewServer(s *grpc.Server, app *application.SimulationService) *Server {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	srv := &Server{app: app, health: hs}
	RegisterSimulationServiceServer(s, srv)
	return srv
}

// Shutdown 将所有服务的健康状态置为 NOT_SERVING，应在 GracefulStop 之前调用
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

func (s *Server) CreateSimulation(ctx context.Context, req *CreateSimulationRequest) (*SimulationResponse, error) {
	dto, err := s.app.CreateSimulation(ctx, req.CreateSimulationCommand)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SimulationResponse{Simulation: dto}, nil
}

func (s *Server) RunBatch(ctx context.Context, req *RunBatchRequest) (*SimulationResponse, error) {
	dto, err := s.app.RunBatch(ctx, application.RunBatchCommand{ID: req.SimulationID, BatchSize: req.BatchSize})
	if err != nil {
		return nil, toStatus(err)
	}
	return &SimulationResponse{Simulation: dto}, nil
}

func (s *Server) GetSimulation(ctx context.Context, req *GetSimulationRequest) (*SimulationResponse, error) {
	dto, err := s.app.GetSimulation(ctx, req.SimulationID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SimulationResponse{Simulation: dto}, nil
}

func (s *Server) GetPercentilePath(ctx context.Context, req *GetPercentilePathRequest) (*PercentilePathResponse, error) {
	path, err := s.app.GetPercentilePath(ctx, req.SimulationID, req.Percentile)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PercentilePathResponse{Path: path}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, application.ErrSimulationNotFound),
		errors.Is(err, application.ErrPercentileUnavailable):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, application.ErrTooManySessions):
		return status.Error(codes.ResourceExhausted, err.Error())
	case application.IsClientError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
