// Package grpcserver exposes the VidGraph gRPC API handlers.
package grpcserver

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/vidgraph/internal/convert"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	auth          service.AuthService
	social        service.SocialService
	messages      service.MessageService
	notifications service.NotificationService
	log           *zap.Logger
}

var _ VidGraphServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, social service.SocialService, messages service.MessageService, notifications service.NotificationService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, social: social, messages: messages, notifications: notifications, log: log}
}

// fail maps err to a status and logs anything that ends up Internal.
func (s *Server) fail(op string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.log.Error("request failed", zap.String("op", op), zap.Error(err))
	}
	return st
}

// --- Auth ---

// Login exchanges a signed initData assertion for a session credential.
func (s *Server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := convert.StringField(req, "initData")
	if strings.TrimSpace(raw) == "" {
		return nil, status.Error(codes.InvalidArgument, "initData is required")
	}
	sess, u, err := s.auth.Login(ctx, raw, convert.StringField(req, "bot"))
	if err != nil {
		return nil, s.fail("login", err)
	}
	return convert.ToProtoLogin(sess, u), nil
}

// Me returns the caller's account.
func (s *Server) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.auth.Me(ctx, sess.SubjectID)
	if err != nil {
		return nil, s.fail("me", err)
	}
	return convert.ToProtoUser(u), nil
}

// --- Graph ---

func (s *Server) Follow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	target, err := convert.IDField(req, "userId")
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.social.Follow(ctx, sess.SubjectID, target)
	if err != nil {
		return nil, s.fail("follow", err)
	}
	return convert.ToProtoFollowResult(res), nil
}

func (s *Server) Unfollow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	target, err := convert.IDField(req, "userId")
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.social.Unfollow(ctx, sess.SubjectID, target)
	if err != nil {
		return nil, s.fail("unfollow", err)
	}
	return convert.ToProtoFollowResult(res), nil
}

// ListFollowing lists whom userId follows; userId defaults to the caller.
func (s *Server) ListFollowing(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.listEdges(ctx, req, "following", s.social.ListFollowing)
}

// ListFollowers lists who follows userId; userId defaults to the caller.
func (s *Server) ListFollowers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.listEdges(ctx, req, "followers", s.social.ListFollowers)
}

type cardLister = func(ctx context.Context, user model.InternalID, page, size int) (model.Page[model.UserCard], error)

func (s *Server) listEdges(ctx context.Context, req *structpb.Struct, op string, list cardLister) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	user, ok, err := convert.OptionalIDField(req, "userId")
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		user = sess.SubjectID
	}
	page, size, err := convert.PageFields(req)
	if err != nil {
		return nil, toStatus(err)
	}
	p, err := list(ctx, user, page, size)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return convert.ToProtoCardPage(p), nil
}

// ListFriends lists the caller's mutual follows.
func (s *Server) ListFriends(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	page, size, err := convert.PageFields(req)
	if err != nil {
		return nil, toStatus(err)
	}
	p, err := s.social.ListFriends(ctx, sess.SubjectID, page, size)
	if err != nil {
		return nil, s.fail("friends", err)
	}
	return convert.ToProtoCardPage(p), nil
}

func (s *Server) FollowStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	target, err := convert.IDField(req, "userId")
	if err != nil {
		return nil, toStatus(err)
	}
	st, err := s.social.FollowStatus(ctx, sess.SubjectID, target)
	if err != nil {
		return nil, s.fail("status", err)
	}
	return convert.ToProtoFollowStatus(st), nil
}

// SearchUsers is public.
func (s *Server) SearchUsers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, size, err := convert.PageFields(req)
	if err != nil {
		return nil, toStatus(err)
	}
	p, err := s.social.SearchUsers(ctx, convert.StringField(req, "keyword"), page, size)
	if err != nil {
		return nil, s.fail("search", err)
	}
	return convert.ToProtoCardPage(p), nil
}

// UserStats is public.
func (s *Server) UserStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := convert.IDField(req, "userId")
	if err != nil {
		return nil, toStatus(err)
	}
	st, err := s.social.Stats(ctx, user)
	if err != nil {
		return nil, s.fail("stats", err)
	}
	return convert.ToProtoUserStats(st), nil
}

// --- Messages ---

func (s *Server) ListConversations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	page, size, err := convert.PageFields(req)
	if err != nil {
		return nil, toStatus(err)
	}
	p, err := s.messages.ListConversations(ctx, sess.SubjectID, page, size)
	if err != nil {
		return nil, s.fail("conversations", err)
	}
	return convert.ToProtoConversationPage(p), nil
}

// ListMessages returns the thread with userId and marks what the caller received as read.
func (s *Server) ListMessages(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	other, err := convert.IDField(req, "userId")
	if err != nil {
		return nil, toStatus(err)
	}
	page, size, err := convert.PageFields(req)
	if err != nil {
		return nil, toStatus(err)
	}
	th, err := s.messages.ListMessages(ctx, sess.SubjectID, other, page, size)
	if err != nil {
		return nil, s.fail("messages", err)
	}
	return convert.ToProtoThread(th), nil
}

func (s *Server) SendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	to, err := convert.IDField(req, "userId")
	if err != nil {
		return nil, toStatus(err)
	}
	v, err := s.messages.Send(ctx, sess.SubjectID, to, convert.StringField(req, "content"), convert.StringField(req, "messageType"))
	if err != nil {
		return nil, s.fail("send", err)
	}
	return convert.ToProtoSent(v), nil
}

// --- Notifications ---

// ListNotifications pages the caller's notifications, optionally of one type.
func (s *Server) ListNotifications(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	typ, err := convert.NotificationTypeField(req, "type")
	if err != nil {
		return nil, toStatus(err)
	}
	page, size, err := convert.PageFields(req)
	if err != nil {
		return nil, toStatus(err)
	}
	p, err := s.notifications.ListNotifications(ctx, sess.SubjectID, typ, page, size)
	if err != nil {
		return nil, s.fail("notifications", err)
	}
	return convert.ToProtoNotificationPage(p), nil
}

func (s *Server) UnreadCount(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.notifications.UnreadCount(ctx, sess.SubjectID)
	if err != nil {
		return nil, s.fail("unread", err)
	}
	return convert.ToProtoUnreadCounts(c), nil
}

// MarkNotificationRead marks one of the caller's notifications read.
func (s *Server) MarkNotificationRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.RecordIDField(req, "id")
	if err != nil {
		return nil, toStatus(err)
	}
	n, err := s.notifications.MarkRead(ctx, sess.SubjectID, id)
	if err != nil {
		return nil, s.fail("mark read", err)
	}
	return convert.ToProtoMarked(n), nil
}

func (s *Server) MarkAllNotificationsRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	typ, err := convert.NotificationTypeField(req, "type")
	if err != nil {
		return nil, toStatus(err)
	}
	n, err := s.notifications.MarkAllRead(ctx, sess.SubjectID, typ)
	if err != nil {
		return nil, s.fail("mark all read", err)
	}
	return convert.ToProtoMarked(n), nil
}
