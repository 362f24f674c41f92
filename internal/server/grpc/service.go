package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the control API.
const ServiceName = "encrypter.v1.Vault"

// Method names of the control API. Requests and responses are
// google.protobuf.Struct messages.
const (
	MethodEncrypt = "Encrypt"
	MethodDecrypt = "Decrypt"
	MethodList    = "List"
	MethodGet     = "Get"
	MethodDelete  = "Delete"
)

// FullMethod returns the path a client invokes for method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// VaultServer is the server side of the control API.
type VaultServer interface {
	Encrypt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Decrypt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(s VaultServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(VaultServer), ctx, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodEncrypt, Handler: unaryHandler(MethodEncrypt, VaultServer.Encrypt)},
		{MethodName: MethodDecrypt, Handler: unaryHandler(MethodDecrypt, VaultServer.Decrypt)},
		{MethodName: MethodList, Handler: unaryHandler(MethodList, VaultServer.List)},
		{MethodName: MethodGet, Handler: unaryHandler(MethodGet, VaultServer.Get)},
		{MethodName: MethodDelete, Handler: unaryHandler(MethodDelete, VaultServer.Delete)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "encrypter/v1/vault.proto",
}

// RegisterVaultServer registers srv on s.
func RegisterVaultServer(s grpc.ServiceRegistrar, srv VaultServer) {
	s.RegisterService(&serviceDesc, srv)
}
