package simd

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// SweepServiceName is the fully qualified gRPC service name. Requests and
// responses are google.protobuf.Struct messages.
const SweepServiceName = "inheritance.v1.SweepService"

// SweepServiceServer is the server API for the sweep service.
type SweepServiceServer interface {
	CreateRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetResults(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(SweepServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	fullMethod := "/" + SweepServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SweepServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SweepServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SweepServiceDesc describes the sweep service for grpc.Server.RegisterService.
var SweepServiceDesc = grpc.ServiceDesc{
	ServiceName: SweepServiceName,
	HandlerType: (*SweepServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateRun", Handler: unaryHandler("CreateRun", SweepServiceServer.CreateRun)},
		{MethodName: "StartRun", Handler: unaryHandler("StartRun", SweepServiceServer.StartRun)},
		{MethodName: "StopRun", Handler: unaryHandler("StopRun", SweepServiceServer.StopRun)},
		{MethodName: "GetRun", Handler: unaryHandler("GetRun", SweepServiceServer.GetRun)},
		{MethodName: "ListRuns", Handler: unaryHandler("ListRuns", SweepServiceServer.ListRuns)},
		{MethodName: "GetResults", Handler: unaryHandler("GetResults", SweepServiceServer.GetResults)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inheritance/v1/sweep.proto",
}

// RegisterSweepServiceServer registers srv on s.
func RegisterSweepServiceServer(s grpc.ServiceRegistrar, srv SweepServiceServer) {
	s.RegisterService(&SweepServiceDesc, srv)
}

// SweepServiceClient calls the sweep service over a client connection.
type SweepServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSweepServiceClient(cc grpc.ClientConnInterface) *SweepServiceClient {
	return &SweepServiceClient{cc: cc}
}

func (c *SweepServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+SweepServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SweepServiceClient) CreateRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateRun", in, opts...)
}

func (c *SweepServiceClient) StartRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StartRun", in, opts...)
}

func (c *SweepServiceClient) StopRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StopRun", in, opts...)
}

func (c *SweepServiceClient) GetRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetRun", in, opts...)
}

func (c *SweepServiceClient) ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListRuns", in, opts...)
}

func (c *SweepServiceClient) GetResults(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetResults", in, opts...)
}
