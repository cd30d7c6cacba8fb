package codec

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-desc
// ServiceName is the fully qualified gRPC service name.
const ServiceName = "primitive.v1.Estimator"

const (
	estimateMethod = "/" + ServiceName + "/Estimate"
	timelineMethod = "/" + ServiceName + "/Timeline"
)

// EstimatorServer is the server API for the estimator service. Requests
// and responses are JSON objects carried as google.protobuf.Struct.
type EstimatorServer interface {
	Estimate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Timeline(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// EstimatorServiceDesc describes the service for grpc.Server.RegisterService.
var EstimatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EstimatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Estimate", Handler: estimateHandler},
		{MethodName: "Timeline", Handler: timelineHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "primitive/v1/estimator.proto",
}

func estimateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EstimatorServer).Estimate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: estimateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EstimatorServer).Estimate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func timelineHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EstimatorServer).Timeline(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: timelineMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EstimatorServer).Timeline(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc

// #region service-client
// EstimatorClient is the client API for the estimator service.
type EstimatorClient interface {
	Estimate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Timeline(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type estimatorClient struct {
	cc grpc.ClientConnInterface
}

// NewEstimatorClient wraps a connection in the service client API.
func NewEstimatorClient(cc grpc.ClientConnInterface) EstimatorClient {
	return &estimatorClient{cc: cc}
}

func (c *estimatorClient) Estimate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, estimateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *estimatorClient) Timeline(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, timelineMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion service-client
