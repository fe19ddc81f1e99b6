// Package gameserver exposes the simulation service over gRPC as
// combatsim.v1.Simulator. Messages are google.protobuf.Struct values
// carrying the same JSON shapes as the HTTP API.
package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "combatsim.v1.Simulator"

// SimulatorServer is the server API for combatsim.v1.Simulator.
type SimulatorServer interface {
	// Run runs an encounter to completion and returns its record.
	Run(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Submit queues an encounter and returns {"id": ...}.
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Status returns the record for {"id": ...}.
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Batch runs {"runs": n} seeded replicas and returns the aggregate.
	Batch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// History lists recent records as {"simulations": [...]}.
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterSimulatorServer registers srv on s.
func RegisterSimulatorServer(s grpc.ServiceRegistrar, srv SimulatorServer) {
	s.RegisterService(&Simulator_ServiceDesc, srv)
}

func unaryHandler(method string, call func(SimulatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SimulatorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SimulatorServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Simulator_ServiceDesc is the grpc.ServiceDesc for combatsim.v1.Simulator.
var Simulator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Run", SimulatorServer.Run),
		unaryHandler("Submit", SimulatorServer.Submit),
		unaryHandler("Status", SimulatorServer.Status),
		unaryHandler("Batch", SimulatorServer.Batch),
		unaryHandler("History", SimulatorServer.History),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "combatsim/v1/simulator.proto",
}

// SimulatorClient is the client API for combatsim.v1.Simulator.
type SimulatorClient struct {
	cc grpc.ClientConnInterface
}

// NewSimulatorClient returns a client over cc.
func NewSimulatorClient(cc grpc.ClientConnInterface) *SimulatorClient {
	return &SimulatorClient{cc: cc}
}

func (c *SimulatorClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Run calls Simulator.Run.
func (c *SimulatorClient) Run(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Run", in, opts...)
}

// Submit calls Simulator.Submit.
func (c *SimulatorClient) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Submit", in, opts...)
}

// Status calls Simulator.Status.
func (c *SimulatorClient) Status(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Status", in, opts...)
}

// Batch calls Simulator.Batch.
func (c *SimulatorClient) Batch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Batch", in, opts...)
}

// History calls Simulator.History.
func (c *SimulatorClient) History(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "History", in, opts...)
}
