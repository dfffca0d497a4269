package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "rulebuilder.v1.BuilderAPI"

// BuilderAPIServer is the server API for the builder service.
// Requests and responses are JSON-shaped structpb.Struct messages.
type BuilderAPIServer interface {
	OpenSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Edit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Collect(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Catalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(BuilderAPIServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BuilderAPIServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(BuilderAPIServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// BuilderAPIServiceDesc describes the builder service for grpc.Server.RegisterService.
var BuilderAPIServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BuilderAPIServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("OpenSession", BuilderAPIServer.OpenSession),
		unaryHandler("Edit", BuilderAPIServer.Edit),
		unaryHandler("Collect", BuilderAPIServer.Collect),
		unaryHandler("CloseSession", BuilderAPIServer.CloseSession),
		unaryHandler("Catalog", BuilderAPIServer.Catalog),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rulebuilder/v1/builder.proto",
}

// RegisterBuilderAPIServer registers srv on s.
func RegisterBuilderAPIServer(s grpc.ServiceRegistrar, srv BuilderAPIServer) {
	s.RegisterService(&BuilderAPIServiceDesc, srv)
}

// BuilderAPIClient calls the builder service.
type BuilderAPIClient struct {
	cc grpc.ClientConnInterface
}

// NewBuilderAPIClient returns a client over cc.
func NewBuilderAPIClient(cc grpc.ClientConnInterface) *BuilderAPIClient {
	return &BuilderAPIClient{cc: cc}
}

// Call invokes method with req.
func (c *BuilderAPIClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
