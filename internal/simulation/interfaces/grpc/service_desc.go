package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wyfcoding/heston/internal/simulation/application"
)

// ServiceName gRPC 服务全名
const ServiceName = "heston.v1.SimulationService"

const (
	CreateSimulationMethod  = "/" + ServiceName + "/CreateSimulation"
	RunBatchMethod          = "/" + ServiceName + "/RunBatch"
	GetSimulationMethod     = "/" + ServiceName + "/GetSimulation"
	GetPercentilePathMethod = "/" + ServiceName + "/GetPercentilePath"
)

// CreateSimulationRequest 创建会话请求
type CreateSimulationRequest struct {
	application.CreateSimulationCommand
}

// RunBatchRequest 执行批次请求
type RunBatchRequest struct {
	SimulationID string `json:"simulation_id"`
	BatchSize    int    `json:"batch_size"`
}

// GetSimulationRequest 查询会话请求
type GetSimulationRequest struct {
	SimulationID string `json:"simulation_id"`
}

// GetPercentilePathRequest 查询百分位路径请求
type GetPercentilePathRequest struct {
	SimulationID string `json:"simulation_id"`
	Percentile   int    `json:"percentile"`
}

// SimulationResponse 会话状态响应
type SimulationResponse struct {
	Simulation *application.SimulationDTO `json:"simulation"`
}

// PercentilePathResponse 百分位路径响应
type PercentilePathResponse struct {
	Path *application.PercentilePathDTO `json:"path"`
}

// SimulationServiceServer 服务端接口
type SimulationServiceServer interface {
	CreateSimulation(context.Context, *CreateSimulationRequest) (*SimulationResponse, error)
	RunBatch(context.Context, *RunBatchRequest) (*SimulationResponse, error)
	GetSimulation(context.Context, *GetSimulationRequest) (*SimulationResponse, error)
	GetPercentilePath(context.Context, *GetPercentilePathRequest) (*PercentilePathResponse, error)
}

// SimulationServiceDesc 服务描述
var SimulationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSimulation", Handler: createSimulationHandler},
		{MethodName: "RunBatch", Handler: runBatchHandler},
		{MethodName: "GetSimulation", Handler: getSimulationHandler},
		{MethodName: "GetPercentilePath", Handler: getPercentilePathHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "heston/v1/simulation",
}

// RegisterSimulationServiceServer 注册服务实现
func RegisterSimulationServiceServer(s grpc.ServiceRegistrar, srv SimulationServiceServer) {
	s.RegisterService(&SimulationServiceDesc, srv)
}

func createSimulationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateSimulationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServiceServer).CreateSimulation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateSimulationMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServiceServer).CreateSimulation(ctx, req.(*CreateSimulationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func runBatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RunBatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServiceServer).RunBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RunBatchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServiceServer).RunBatch(ctx, req.(*RunBatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getSimulationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSimulationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServiceServer).GetSimulation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetSimulationMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServiceServer).GetSimulation(ctx, req.(*GetSimulationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getPercentilePathHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetPercentilePathRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServiceServer).GetPercentilePath(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetPercentilePathMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServiceServer).GetPercentilePath(ctx, req.(*GetPercentilePathRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// SimulationServiceClient 客户端，所有调用使用 JSON 编码
type SimulationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSimulationServiceClient 创建客户端
func NewSimulationServiceClient(cc grpc.ClientConnInterface) *SimulationServiceClient {
	return &SimulationServiceClient{cc: cc}
}

func (c *SimulationServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *SimulationServiceClient) CreateSimulation(ctx context.Context, in *CreateSimulationRequest, opts ...grpc.CallOption) (*SimulationResponse, error) {
	out := new(SimulationResponse)
	if err := c.invoke(ctx, CreateSimulationMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SimulationServiceClient) RunBatch(ctx context.Context, in *RunBatchRequest, opts ...grpc.CallOption) (*SimulationResponse, error) {
	out := new(SimulationResponse)
	if err := c.invoke(ctx, RunBatchMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SimulationServiceClient) GetSimulation(ctx context.Context, in *GetSimulationRequest, opts ...grpc.CallOption) (*SimulationResponse, error) {
	out := new(SimulationResponse)
	if err := c.invoke(ctx, GetSimulationMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SimulationServiceClient) GetPercentilePath(ctx context.Context, in *GetPercentilePathRequest, opts ...grpc.CallOption) (*PercentilePathResponse, error) {
	out := new(PercentilePathResponse)
	if err := c.invoke(ctx, GetPercentilePathMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
