package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "flaketriage.v1.FlakeTriage"

// Full method names, as seen by interceptors.
const (
	TriageMethod           = "/" + ServiceName + "/Triage"
	ExplainTestMethod      = "/" + ServiceName + "/ExplainTest"
	GetReportMethod        = "/" + ServiceName + "/GetReport"
	CloseStaleIssuesMethod = "/" + ServiceName + "/CloseStaleIssues"
)

// FlakeTriageServer is the server API for the FlakeTriage service. Requests and responses
// are google.protobuf.Struct documents.
type FlakeTriageServer interface {
	Triage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExplainTest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseStaleIssues(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterFlakeTriageServer registers srv on s.
func RegisterFlakeTriageServer(s grpc.ServiceRegistrar, srv FlakeTriageServer) {
	s.RegisterService(&FlakeTriageServiceDesc, srv)
}

// FlakeTriageServiceDesc describes the FlakeTriage service for grpc.Server.
var FlakeTriageServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FlakeTriageServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Triage", Handler: unaryHandler(TriageMethod, FlakeTriageServer.Triage)},
		{MethodName: "ExplainTest", Handler: unaryHandler(ExplainTestMethod, FlakeTriageServer.ExplainTest)},
		{MethodName: "GetReport", Handler: unaryHandler(GetReportMethod, FlakeTriageServer.GetReport)},
		{MethodName: "CloseStaleIssues", Handler: unaryHandler(CloseStaleIssuesMethod, FlakeTriageServer.CloseStaleIssues)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flaketriage/v1/flake_triage.proto",
}

type unaryMethod func(FlakeTriageServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler returns a MethodDesc.Handler that decodes a Struct and runs call behind the
// server's interceptor chain.
func unaryHandler(fullMethod string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FlakeTriageServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FlakeTriageServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// FlakeTriageClient is the client API for the FlakeTriage service.
type FlakeTriageClient struct {
	cc grpc.ClientConnInterface
}

// NewFlakeTriageClient wraps a client connection.
func NewFlakeTriageClient(cc grpc.ClientConnInterface) *FlakeTriageClient {
	return &FlakeTriageClient{cc: cc}
}

// Triage submits a test run.
func (c *FlakeTriageClient) Triage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, TriageMethod, in, opts...)
}

// ExplainTest asks whether a single failure is known flaky.
func (c *FlakeTriageClient) ExplainTest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ExplainTestMethod, in, opts...)
}

// GetReport fetches a stored report.
func (c *FlakeTriageClient) GetReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetReportMethod, in, opts...)
}

// CloseStaleIssues triggers a stale issue sweep.
func (c *FlakeTriageClient) CloseStaleIssues(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CloseStaleIssuesMethod, in, opts...)
}

func (c *FlakeTriageClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
