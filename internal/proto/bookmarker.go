package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const mergeBookmarksMethod = "/bookmarker.v1.Bookmarker/MergeBookmarks"

type (
	BookmarkerServer interface {
		MergeBookmarks(context.Context, *structpb.ListValue) (*structpb.Struct, error)
	}

	BookmarkerClient interface {
		MergeBookmarks(ctx context.Context, in *structpb.ListValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	}

	bookmarkerClient struct {
		cc grpc.ClientConnInterface
	}
)

func NewBookmarkerClient(cc grpc.ClientConnInterface) BookmarkerClient {
	return &bookmarkerClient{cc}
}

func (c *bookmarkerClient) MergeBookmarks(ctx context.Context, in *structpb.ListValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, mergeBookmarksMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterBookmarkerServer(s grpc.ServiceRegistrar, srv BookmarkerServer) {
	s.RegisterService(&bookmarkerServiceDesc, srv)
}

func mergeBookmarksHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookmarkerServer).MergeBookmarks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: mergeBookmarksMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookmarkerServer).MergeBookmarks(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}

var bookmarkerServiceDesc = grpc.ServiceDesc{
	ServiceName: "bookmarker.v1.Bookmarker",
	HandlerType: (*BookmarkerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "MergeBookmarks",
			Handler:    mergeBookmarksHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookmarker/v1/bookmarker.proto",
}
