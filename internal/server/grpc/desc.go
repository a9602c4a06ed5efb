package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "vidgraph.v1.VidGraph"

// Method names.
const (
	MethodLogin             = "Login"
	MethodMe                = "Me"
	MethodFollow            = "Follow"
	MethodUnfollow          = "Unfollow"
	MethodListFollowing     = "ListFollowing"
	MethodListFollowers     = "ListFollowers"
	MethodListFriends       = "ListFriends"
	MethodFollowStatus      = "FollowStatus"
	MethodSearchUsers       = "SearchUsers"
	MethodUserStats         = "UserStats"
	MethodListConversations = "ListConversations"
	MethodListMessages      = "ListMessages"
	MethodSendMessage       = "SendMessage"

	MethodListNotifications    = "ListNotifications"
	MethodUnreadCount          = "UnreadCount"
	MethodMarkNotificationRead = "MarkNotificationRead"
	MethodMarkAllNotifications = "MarkAllNotificationsRead"
)

// VidGraphServer is the server API. Requests and responses are
// google.protobuf.Struct messages; see package convert for their fields.
type VidGraphServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Me(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Follow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Unfollow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFollowing(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFollowers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFriends(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FollowStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UserStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListConversations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UnreadCount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkNotificationRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkAllNotificationsRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(VidGraphServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	full := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VidGraphServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VidGraphServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the VidGraph service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VidGraphServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodLogin, VidGraphServer.Login),
		unary(MethodMe, VidGraphServer.Me),
		unary(MethodFollow, VidGraphServer.Follow),
		unary(MethodUnfollow, VidGraphServer.Unfollow),
		unary(MethodListFollowing, VidGraphServer.ListFollowing),
		unary(MethodListFollowers, VidGraphServer.ListFollowers),
		unary(MethodListFriends, VidGraphServer.ListFriends),
		unary(MethodFollowStatus, VidGraphServer.FollowStatus),
		unary(MethodSearchUsers, VidGraphServer.SearchUsers),
		unary(MethodUserStats, VidGraphServer.UserStats),
		unary(MethodListConversations, VidGraphServer.ListConversations),
		unary(MethodListMessages, VidGraphServer.ListMessages),
		unary(MethodSendMessage, VidGraphServer.SendMessage),
		unary(MethodListNotifications, VidGraphServer.ListNotifications),
		unary(MethodUnreadCount, VidGraphServer.UnreadCount),
		unary(MethodMarkNotificationRead, VidGraphServer.MarkNotificationRead),
		unary(MethodMarkAllNotifications, VidGraphServer.MarkAllNotificationsRead),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vidgraph/v1/vidgraph.proto",
}

// RegisterVidGraphServer registers srv on s.
func RegisterVidGraphServer(s grpc.ServiceRegistrar, srv VidGraphServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns "/vidgraph.v1.VidGraph/<name>".
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

// Client calls VidGraph methods over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Call invokes method with req. A nil req sends an empty struct.
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
