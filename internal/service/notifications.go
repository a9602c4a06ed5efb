package service

import (
	"context"
	"fmt"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/metrics"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/repository"
)

// NotificationService lists and acknowledges the caller's notifications.
// An empty type selects every type.
type NotificationService interface {
	ListNotifications(ctx context.Context, self model.InternalID, typ model.NotificationType, page, size int) (model.Page[model.NotificationView], error)
	UnreadCount(ctx context.Context, self model.InternalID) (model.UnreadCounts, error)
	MarkRead(ctx context.Context, self model.InternalID, id int64) (int64, error)
	MarkAllRead(ctx context.Context, self model.InternalID, typ model.NotificationType) (int64, error)
}

// Notifier records a notification for its receiver.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}

type NotificationServiceImpl struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	rec           metrics.Recorder
}

var (
	_ NotificationService = (*NotificationServiceImpl)(nil)
	_ Notifier            = (*NotificationServiceImpl)(nil)
)

// NewNotificationService constructs NotificationService.
func NewNotificationService(users repository.UserRepository, notifications repository.NotificationRepository, rec metrics.Recorder) *NotificationServiceImpl {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &NotificationServiceImpl{users: users, notifications: notifications, rec: rec}
}

func checkType(typ model.NotificationType) error {
	if typ != "" && !typ.Valid() {
		return fmt.Errorf("%w: unknown notification type %q", errs.ErrInvalidArgument, typ)
	}
	return nil
}

// ListNotifications returns a page of self's notifications, newest first,
// with sender cards attached. Listing does not mark anything read.
func (s *NotificationServiceImpl) ListNotifications(ctx context.Context, self model.InternalID, typ model.NotificationType, page, size int) (model.Page[model.NotificationView], error) {
	page, size = normalizePage(page, size)
	if err := checkType(typ); err != nil {
		return model.Page[model.NotificationView]{}, err
	}
	me, err := lookupUser(ctx, s.users, self)
	if err != nil || me == nil {
		return emptyPage[model.NotificationView](page, size), err
	}

	total, err := s.notifications.Count(ctx, me.ExternalID, typ)
	if err != nil {
		return model.Page[model.NotificationView]{}, err
	}
	found, err := s.notifications.List(ctx, me.ExternalID, typ, offsetOf(page, size), size)
	if err != nil {
		return model.Page[model.NotificationView]{}, err
	}

	var senders []model.ExternalID
	seen := map[model.ExternalID]bool{}
	for _, n := range found {
		if n.Sender != 0 && !seen[n.Sender] {
			seen[n.Sender] = true
			senders = append(senders, n.Sender)
		}
	}
	cards, err := loadCards(ctx, s.users, senders)
	if err != nil {
		return model.Page[model.NotificationView]{}, err
	}

	views := make([]model.NotificationView, 0, len(found))
	for _, n := range found {
		v := model.NotificationView{Notification: n}
		if c, ok := cards[n.Sender]; ok {
			v.From = &c
		}
		views = append(views, v)
	}
	return countedPage(views, page, size, total), nil
}

// UnreadCount reports self's unread notifications in total and per type.
// An unknown caller has nothing unread.
func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, self model.InternalID) (model.UnreadCounts, error) {
	me, err := lookupUser(ctx, s.users, self)
	if err != nil || me == nil {
		return model.UnreadCounts{}, err
	}
	byType, err := s.notifications.CountUnreadByType(ctx, me.ExternalID)
	if err != nil {
		return model.UnreadCounts{}, err
	}

	out := model.UnreadCounts{
		Likes:    byType[model.NotifyLike],
		Comments: byType[model.NotifyComment],
		Follows:  byType[model.NotifyFollow],
		System:   byType[model.NotifySystem],
	}
	for _, n := range byType {
		out.Total += n
	}
	return out, nil
}

// MarkRead flags notification id as read when self is its receiver. Another
// user's id, an unknown id and a repeat all succeed with zero changes.
func (s *NotificationServiceImpl) MarkRead(ctx context.Context, self model.InternalID, id int64) (int64, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: notification id must be positive", errs.ErrInvalidArgument)
	}
	me, err := s.users.GetByID(ctx, self)
	if err != nil {
		return 0, notFoundAs(err, errs.ErrSessionInvalid)
	}
	n, err := s.notifications.MarkRead(ctx, id, me.ExternalID)
	if err != nil {
		return 0, err
	}
	s.rec.RecordNotificationsRead(n)
	return n, nil
}

// MarkAllRead flags self's unread notifications of typ as read. Only unread
// rows are written, so repeating it changes nothing.
func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context, self model.InternalID, typ model.NotificationType) (int64, error) {
	if err := checkType(typ); err != nil {
		return 0, err
	}
	me, err := s.users.GetByID(ctx, self)
	if err != nil {
		return 0, notFoundAs(err, errs.ErrSessionInvalid)
	}
	n, err := s.notifications.MarkAllRead(ctx, me.ExternalID, typ)
	if err != nil {
		return 0, err
	}
	s.rec.RecordNotificationsRead(n)
	return n, nil
}

// Notify stores n as unread. Receiver and a known type are required; a
// zero Sender marks a system notification. A user is never notified of
// their own action.
func (s *NotificationServiceImpl) Notify(ctx context.Context, n *model.Notification) error {
	if n.Receiver == 0 || !n.Type.Valid() {
		return errs.ErrInvalidArgument
	}
	if n.Sender == n.Receiver {
		return nil
	}
	return s.notifications.Create(ctx, n)
}
