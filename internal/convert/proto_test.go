package convert

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func TestIDField(t *testing.T) {
	t.Parallel()

	req := mustStruct(t, map[string]any{
		"str":      "42",
		"num":      7.0,
		"big":      "9007199254740993",
		"zero":     "0",
		"neg":      -3.0,
		"frac":     1.5,
		"word":     "abc",
		"bool":     true,
		"blank":    "  ",
		"nullable": nil,
	})

	for key, want := range map[string]model.InternalID{"str": 42, "num": 7, "big": 9007199254740993} {
		got, err := IDField(req, key)
		if err != nil || got != want {
			t.Fatalf("IDField(%s) = %d, %v; want %d", key, got, err, want)
		}
	}
	for _, key := range []string{"zero", "neg", "frac", "word", "bool", "blank", "nullable", "missing"} {
		if _, err := IDField(req, key); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Fatalf("IDField(%s): want ErrInvalidArgument, got %v", key, err)
		}
	}

	if _, ok, err := OptionalIDField(req, "missing"); ok || err != nil {
		t.Fatalf("missing optional: ok=%v err=%v", ok, err)
	}
	if _, ok, err := OptionalIDField(req, "nullable"); ok || err != nil {
		t.Fatalf("null optional: ok=%v err=%v", ok, err)
	}
	if _, _, err := OptionalIDField(req, "word"); err == nil {
		t.Fatalf("bad optional must fail")
	}
}

func TestPageFields(t *testing.T) {
	t.Parallel()

	page, size, err := PageFields(mustStruct(t, map[string]any{"page": "3", "pageSize": 15.0}))
	if err != nil || page != 3 || size != 15 {
		t.Fatalf("PageFields = %d,%d,%v", page, size, err)
	}
	page, size, err = PageFields(&structpb.Struct{})
	if err != nil || page != 0 || size != 0 {
		t.Fatalf("empty = %d,%d,%v", page, size, err)
	}
	if _, _, err := PageFields(mustStruct(t, map[string]any{"pageSize": "lots"})); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	if _, _, err := PageFields(mustStruct(t, map[string]any{"page": 1e12})); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("out of range: want ErrInvalidArgument, got %v", err)
	}
	if StringField(nil, "x") != "" {
		t.Fatalf("nil request must read as empty")
	}
}

func TestToProtoLogin(t *testing.T) {
	t.Parallel()

	exp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	u := model.User{ID: 5, ExternalID: 12345678901, Handle: "V00000005", FirstName: "Ann", AllowMessages: true}
	out := ToProtoLogin(model.Session{Token: "tok", ExpiresAt: exp}, u).AsMap()

	if out["accessToken"] != "tok" || out["tokenType"] != "Bearer" {
		t.Fatalf("token fields = %v", out)
	}
	if out["expiresAt"] != "2025-03-01T11:00:00Z" {
		t.Fatalf("expiresAt = %v", out["expiresAt"])
	}
	user := out["user"].(map[string]any)
	if user["id"] != "5" || user["telegramId"] != "12345678901" || user["allowMessages"] != true {
		t.Fatalf("user = %v", user)
	}
	if user["createdAt"] != nil {
		t.Fatalf("zero time must be null, got %v", user["createdAt"])
	}
}

func TestToProtoCardPage(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := model.Page[model.UserCard]{
		List:     []model.UserCard{{ID: 1, Handle: "a", FollowedAt: at}, {ID: 2, Handle: "b"}},
		Page:     1,
		PageSize: 2,
		Total:    3,
		HasMore:  true,
	}
	out := ToProtoCardPage(p).AsMap()
	if out["total"] != 3.0 || out["hasMore"] != true || out["pageSize"] != 2.0 {
		t.Fatalf("page fields = %v", out)
	}
	list := out["list"].([]any)
	first, second := list[0].(map[string]any), list[1].(map[string]any)
	if first["followedAt"] != "2025-01-02T03:04:05Z" {
		t.Fatalf("followedAt = %v", first["followedAt"])
	}
	if _, ok := second["followedAt"]; ok {
		t.Fatalf("unset followedAt must be omitted")
	}

	// Search pages do not compute a total.
	p.Total = -1
	if _, ok := ToProtoCardPage(p).AsMap()["total"]; ok {
		t.Fatalf("negative total must be omitted")
	}

	empty := ToProtoCardPage(model.Page[model.UserCard]{Page: 1, PageSize: 20}).AsMap()
	if l, ok := empty["list"].([]any); !ok || len(l) != 0 {
		t.Fatalf("empty list must be an empty array, got %#v", empty["list"])
	}
}

func TestToProtoConversationsAndThread(t *testing.T) {
	t.Parallel()

	last := model.MessageView{ID: 9, Content: "hi", MessageType: "text", IsMine: true}
	conv := ToProtoConversationPage(model.Page[model.Conversation]{
		List: []model.Conversation{
			{Counterpart: 200, User: &model.UserCard{ID: 2}, LastMessage: last, UnreadCount: 4},
			{Counterpart: 300, LastMessage: last},
		},
		Page: 1, PageSize: 20, Total: 2,
	}).AsMap()
	list := conv["list"].([]any)
	c0 := list[0].(map[string]any)
	if c0["unreadCount"] != 4.0 || c0["user"].(map[string]any)["id"] != "2" {
		t.Fatalf("conversation = %v", c0)
	}
	if c0["lastMessage"].(map[string]any)["id"] != "9" {
		t.Fatalf("last message = %v", c0["lastMessage"])
	}
	if c0["userId"] != "2" {
		t.Fatalf("userId = %v", c0["userId"])
	}
	c1 := list[1].(map[string]any)
	if c1["user"] != nil || c1["userId"] != nil {
		t.Fatalf("missing card must be null: %v", c1)
	}

	th := ToProtoThread(model.Thread{
		Page:      model.Page[model.MessageView]{List: []model.MessageView{last}, Page: 1, PageSize: 20, Total: 1},
		OtherUser: &model.UserCard{ID: 2, Handle: "b"},
	}).AsMap()
	if th["otherUser"].(map[string]any)["handle"] != "b" || len(th["list"].([]any)) != 1 {
		t.Fatalf("thread = %v", th)
	}

	sent := ToProtoSent(last).AsMap()
	if sent["success"] != true || sent["messageId"] != "9" {
		t.Fatalf("sent = %v", sent)
	}
}

func TestToProtoGraph(t *testing.T) {
	t.Parallel()

	st := ToProtoFollowStatus(model.FollowStatus{IsFollowing: true, IsFollowedBy: true, IsFriend: true}).AsMap()
	if st["isFriend"] != true {
		t.Fatalf("status = %v", st)
	}
	r := ToProtoFollowResult(model.FollowResult{Success: true}).AsMap()
	if r["success"] != true || r["isFollowing"] != false {
		t.Fatalf("result = %v", r)
	}
	s := ToProtoUserStats(model.UserStats{FollowingCount: 2, FollowersCount: 5}).AsMap()
	if s["followingCount"] != 2.0 || s["followersCount"] != 5.0 {
		t.Fatalf("stats = %v", s)
	}
	if ToProtoUser(model.User{ID: 1}).AsMap()["user"].(map[string]any)["id"] != "1" {
		t.Fatalf("user wrapper")
	}
}

func TestToProtoNotifications(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := ToProtoNotificationPage(model.Page[model.NotificationView]{
		List: []model.NotificationView{
			{
				Notification: model.Notification{ID: 7, Type: model.NotifyLike, RelatedID: 55, RelatedType: "video", CreatedAt: at},
				From:         &model.UserCard{ID: 3, Nickname: "Cy"},
			},
			{Notification: model.Notification{ID: 8, Type: model.NotifySystem, Content: "welcome", IsRead: true}},
		},
		Page: 1, PageSize: 20, Total: 2,
	}).AsMap()
	if p["total"] != 2.0 {
		t.Fatalf("page = %v", p)
	}
	list := p["list"].([]any)
	n0 := list[0].(map[string]any)
	if n0["id"] != "7" || n0["type"] != "like" || n0["relatedId"] != "55" || n0["relatedType"] != "video" {
		t.Fatalf("like = %v", n0)
	}
	if n0["sender"].(map[string]any)["nickname"] != "Cy" || n0["createdAt"] != "2025-01-02T03:04:05Z" {
		t.Fatalf("like sender = %v", n0)
	}
	n1 := list[1].(map[string]any)
	if n1["sender"] != nil || n1["relatedId"] != nil || n1["relatedType"] != nil || n1["isRead"] != true {
		t.Fatalf("system = %v", n1)
	}

	c := ToProtoUnreadCounts(model.UnreadCounts{Total: 5, Likes: 2, Comments: 1, Follows: 1}).AsMap()
	if c["total"] != 5.0 || c["likes"] != 2.0 || c["system"] != 0.0 {
		t.Fatalf("counts = %v", c)
	}
	m := ToProtoMarked(3).AsMap()
	if m["success"] != true || m["updated"] != 3.0 {
		t.Fatalf("marked = %v", m)
	}
}

func TestNotificationTypeField(t *testing.T) {
	t.Parallel()

	typ, err := NotificationTypeField(mustStruct(t, map[string]any{"type": " follow "}), "type")
	if err != nil || typ != model.NotifyFollow {
		t.Fatalf("follow: %q, %v", typ, err)
	}
	typ, err = NotificationTypeField(mustStruct(t, map[string]any{}), "type")
	if err != nil || typ != "" {
		t.Fatalf("absent: %q, %v", typ, err)
	}
	if _, err := NotificationTypeField(mustStruct(t, map[string]any{"type": "poke"}), "type"); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("unknown: %v", err)
	}
}
