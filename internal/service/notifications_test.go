package service

import (
	"context"
	"errors"
	"testing"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
)

func newNotifying(n int) (*memStore, *NotificationServiceImpl, *recorder) {
	st := newStore()
	for i := 1; i <= n; i++ {
		st.addUser(model.InternalID(i), model.ExternalID(100+i), "user"+string(rune('a'+i-1)))
	}
	rec := &recorder{}
	return st, NewNotificationService(fakeUsers{st}, fakeNotifications{st}, rec), rec
}

func mustNotify(t *testing.T, s *NotificationServiceImpl, to, from model.ExternalID, typ model.NotificationType) int64 {
	t.Helper()
	n := &model.Notification{Receiver: to, Sender: from, Type: typ, Content: string(typ)}
	if err := s.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify(%d <- %d, %s): %v", to, from, typ, err)
	}
	return n.ID
}

// seedInbox gives user 1 two likes, one of each other type, and user 2 one like.
func seedInbox(t *testing.T, s *NotificationServiceImpl) (firstLike int64) {
	t.Helper()
	firstLike = mustNotify(t, s, 101, 102, model.NotifyLike)
	mustNotify(t, s, 101, 103, model.NotifyLike)
	mustNotify(t, s, 101, 102, model.NotifyComment)
	mustNotify(t, s, 101, 103, model.NotifyFollow)
	mustNotify(t, s, 101, 102, model.NotifyMention)
	mustNotify(t, s, 101, 0, model.NotifySystem)
	mustNotify(t, s, 102, 101, model.NotifyLike)
	return firstLike
}

func TestNotifications_UnreadCountsByType(t *testing.T) {
	t.Parallel()
	_, s, _ := newNotifying(3)
	ctx := context.Background()
	firstLike := seedInbox(t, s)

	got, err := s.UnreadCount(ctx, 1)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	want := model.UnreadCounts{Total: 6, Likes: 2, Comments: 1, Follows: 1, System: 1}
	if got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}

	if _, err := s.MarkRead(ctx, 1, firstLike); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	got, _ = s.UnreadCount(ctx, 1)
	if got.Total != 5 || got.Likes != 1 {
		t.Fatalf("after one read: %+v", got)
	}

	other, _ := s.UnreadCount(ctx, 2)
	if other != (model.UnreadCounts{Total: 1, Likes: 1}) {
		t.Fatalf("user 2 counts = %+v", other)
	}

	ghost, err := s.UnreadCount(ctx, 99)
	if err != nil || ghost != (model.UnreadCounts{}) {
		t.Fatalf("unknown caller: %+v, %v", ghost, err)
	}
}

func TestNotifications_MarkAllRead_Idempotent(t *testing.T) {
	t.Parallel()
	st, s, rec := newNotifying(3)
	ctx := context.Background()
	seedInbox(t, s)

	n, err := s.MarkAllRead(ctx, 1, model.NotifyLike)
	if err != nil || n != 2 {
		t.Fatalf("MarkAllRead(like) = %d, %v; want 2", n, err)
	}
	if n, _ = s.MarkAllRead(ctx, 1, model.NotifyLike); n != 0 {
		t.Fatalf("repeat MarkAllRead(like) = %d, want 0", n)
	}

	if n, _ = s.MarkAllRead(ctx, 1, ""); n != 4 {
		t.Fatalf("MarkAllRead(all) = %d, want 4", n)
	}
	if n, _ = s.MarkAllRead(ctx, 1, ""); n != 0 {
		t.Fatalf("repeat MarkAllRead(all) = %d, want 0", n)
	}

	if st.noteWrites != 6 || rec.notesRead != 6 {
		t.Fatalf("writes=%d metric=%d, want 6", st.noteWrites, rec.notesRead)
	}
	counts, _ := s.UnreadCount(ctx, 1)
	if counts.Total != 0 {
		t.Fatalf("unread after mark all: %+v", counts)
	}
	if counts, _ = s.UnreadCount(ctx, 2); counts.Total != 1 {
		t.Fatalf("other receiver touched: %+v", counts)
	}

	if _, err := s.MarkAllRead(ctx, 1, "poke"); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("unknown type: %v", err)
	}
	if _, err := s.MarkAllRead(ctx, 99, ""); !errors.Is(err, errs.ErrSessionInvalid) {
		t.Fatalf("unknown caller: %v", err)
	}
}

func TestNotifications_MarkRead_ScopedToReceiver(t *testing.T) {
	t.Parallel()
	_, s, _ := newNotifying(2)
	ctx := context.Background()
	id := mustNotify(t, s, 102, 101, model.NotifyComment)

	if n, err := s.MarkRead(ctx, 1, id); err != nil || n != 0 {
		t.Fatalf("non-receiver MarkRead = %d, %v; want 0, nil", n, err)
	}
	if c, _ := s.UnreadCount(ctx, 2); c.Comments != 1 {
		t.Fatalf("non-receiver changed state: %+v", c)
	}

	if n, err := s.MarkRead(ctx, 2, id); err != nil || n != 1 {
		t.Fatalf("receiver MarkRead = %d, %v; want 1", n, err)
	}
	if n, _ := s.MarkRead(ctx, 2, id); n != 0 {
		t.Fatalf("repeat MarkRead = %d, want 0", n)
	}
	if n, _ := s.MarkRead(ctx, 2, 12345); n != 0 {
		t.Fatalf("unknown id MarkRead = %d, want 0", n)
	}

	if _, err := s.MarkRead(ctx, 2, 0); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("zero id: %v", err)
	}
	if _, err := s.MarkRead(ctx, 99, id); !errors.Is(err, errs.ErrSessionInvalid) {
		t.Fatalf("unknown caller: %v", err)
	}
}

func TestNotifications_List(t *testing.T) {
	t.Parallel()
	_, s, _ := newNotifying(3)
	ctx := context.Background()
	seedInbox(t, s)
	mustNotify(t, s, 101, 999, model.NotifyLike) // sender account gone

	all, err := s.ListNotifications(ctx, 1, "", 1, 4)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if all.Total != 7 || len(all.List) != 4 || !all.HasMore {
		t.Fatalf("page 1 = total %d len %d more %v", all.Total, len(all.List), all.HasMore)
	}
	if all.List[0].Sender != 999 || all.List[0].From != nil {
		t.Fatalf("newest first with no card for a deleted sender: %+v", all.List[0])
	}
	if all.List[1].Type != model.NotifySystem || all.List[1].From != nil {
		t.Fatalf("system notification: %+v", all.List[1])
	}
	if all.List[2].From == nil || all.List[2].From.ID != 2 {
		t.Fatalf("mention sender card: %+v", all.List[2])
	}

	likes, err := s.ListNotifications(ctx, 1, model.NotifyLike, 1, 20)
	if err != nil {
		t.Fatalf("ListNotifications(like): %v", err)
	}
	if likes.Total != 3 || len(likes.List) != 3 || likes.HasMore {
		t.Fatalf("likes = %+v", likes)
	}
	for _, v := range likes.List {
		if v.Type != model.NotifyLike || v.Receiver != 101 {
			t.Fatalf("filter leaked %+v", v)
		}
	}

	// Listing leaves everything unread.
	if c, _ := s.UnreadCount(ctx, 1); c.Total != 7 {
		t.Fatalf("listing marked read: %+v", c)
	}

	if _, err := s.ListNotifications(ctx, 1, "poke", 1, 20); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("unknown type: %v", err)
	}
	ghost, err := s.ListNotifications(ctx, 99, "", 0, 0)
	if err != nil || len(ghost.List) != 0 || ghost.Page != 1 || ghost.PageSize != DefaultPageSize {
		t.Fatalf("unknown caller: %+v, %v", ghost, err)
	}
}

func TestNotify_Validation(t *testing.T) {
	t.Parallel()
	st, s, _ := newNotifying(1)
	ctx := context.Background()

	if err := s.Notify(ctx, &model.Notification{Type: model.NotifyLike}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("no receiver: %v", err)
	}
	if err := s.Notify(ctx, &model.Notification{Receiver: 101, Type: "poke"}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("bad type: %v", err)
	}
	if err := s.Notify(ctx, &model.Notification{Receiver: 101, Sender: 101, Type: model.NotifyLike}); err != nil {
		t.Fatalf("self notification: %v", err)
	}
	if len(st.notes) != 0 {
		t.Fatalf("stored %d notifications, want 0", len(st.notes))
	}
}

type notifierFunc func(context.Context, *model.Notification) error

func (f notifierFunc) Notify(ctx context.Context, n *model.Notification) error { return f(ctx, n) }

func TestSocial_Follow_NotifiesNewEdges(t *testing.T) {
	t.Parallel()
	st, social, _ := graph(2)
	notes := NewNotificationService(fakeUsers{st}, fakeNotifications{st}, nil)
	social.NotifyFollows(notes)
	ctx := context.Background()

	mustFollow(t, social, 1, 2)
	mustFollow(t, social, 1, 2)

	got, err := notes.ListNotifications(ctx, 2, model.NotifyFollow, 1, 20)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if got.Total != 1 || got.List[0].Sender != 101 || got.List[0].From == nil || got.List[0].From.ID != 1 {
		t.Fatalf("follow notifications = %+v", got)
	}

	boom := errors.New("notify down")
	social.NotifyFollows(notifierFunc(func(context.Context, *model.Notification) error { return boom }))
	if _, err := social.Follow(ctx, 2, 1); !errors.Is(err, boom) {
		t.Fatalf("Follow with failing notifier: %v", err)
	}
	// The edge exists, so the retry is a no-op and notifies nobody.
	if _, err := social.Follow(ctx, 2, 1); err != nil {
		t.Fatalf("retry: %v", err)
	}
}
