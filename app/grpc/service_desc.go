package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-topups/app/types"
	"google.golang.org/grpc"
)

const ServiceName = "topups.TopUpsService"

type TopUpsServiceServer interface {
	Health(context.Context, *types.HealthRequest) (*types.HealthResponse, error)
	CreateCheckout(context.Context, *types.CreateCheckoutRequest) (*types.CheckoutResponse, error)
	GetCheckout(context.Context, *types.GetCheckoutRequest) (*types.CheckoutResponse, error)
	ListCheckouts(context.Context, *types.ListCheckoutsRequest) (*types.ListCheckoutsResponse, error)
	CheckCheckout(context.Context, *types.CheckCheckoutRequest) (*types.CheckCheckoutResponse, error)
}

func RegisterTopUpsServiceServer(s grpc.ServiceRegistrar, srv TopUpsServiceServer) {
	s.RegisterService(&TopUpsServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc.MethodDesc.
func unaryHandler[Req any, Resp any](
	method string,
	call func(srv TopUpsServiceServer, ctx context.Context, req *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TopUpsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TopUpsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var TopUpsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TopUpsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Health",
			Handler:    unaryHandler("Health", TopUpsServiceServer.Health),
		},
		{
			MethodName: "CreateCheckout",
			Handler:    unaryHandler("CreateCheckout", TopUpsServiceServer.CreateCheckout),
		},
		{
			MethodName: "GetCheckout",
			Handler:    unaryHandler("GetCheckout", TopUpsServiceServer.GetCheckout),
		},
		{
			MethodName: "ListCheckouts",
			Handler:    unaryHandler("ListCheckouts", TopUpsServiceServer.ListCheckouts),
		},
		{
			MethodName: "CheckCheckout",
			Handler:    unaryHandler("CheckCheckout", TopUpsServiceServer.CheckCheckout),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "topups",
}
