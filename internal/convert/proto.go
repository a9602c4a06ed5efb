// Package convert maps domain records to and from the google.protobuf.Struct
// messages carried on the wire. Ids travel as decimal strings and times as
// RFC 3339 strings in UTC.
package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
)

// --- helpers ---

type object map[string]*structpb.Value

func (o object) proto() *structpb.Struct { return &structpb.Struct{Fields: o} }

func str(s string) *structpb.Value { return structpb.NewStringValue(s) }

func num(n int) *structpb.Value { return structpb.NewNumberValue(float64(n)) }

func flag(b bool) *structpb.Value { return structpb.NewBoolValue(b) }

func nested(o object) *structpb.Value { return structpb.NewStructValue(o.proto()) }

func ts(t time.Time) *structpb.Value {
	if t.IsZero() {
		return structpb.NewNullValue()
	}
	return str(t.UTC().Format(time.RFC3339Nano))
}

func list[T any](items []T, f func(T) object) *structpb.Value {
	vs := make([]*structpb.Value, 0, len(items))
	for _, it := range items {
		vs = append(vs, nested(f(it)))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vs})
}

func page[T any](p model.Page[T], f func(T) object) object {
	o := object{
		"list":     list(p.List, f),
		"page":     num(p.Page),
		"pageSize": num(p.PageSize),
		"hasMore":  flag(p.HasMore),
	}
	if p.Total >= 0 {
		o["total"] = num(p.Total)
	}
	return o
}

// --- users ---

func user(u model.User) object {
	return object{
		"id":            str(u.ID.String()),
		"telegramId":    str(u.ExternalID.String()),
		"handle":        str(u.Handle),
		"username":      str(u.Username),
		"firstName":     str(u.FirstName),
		"lastName":      str(u.LastName),
		"avatarUrl":     str(u.AvatarURL),
		"isVip":         flag(u.IsVIP),
		"isCreator":     flag(u.IsCreator),
		"allowMessages": flag(u.AllowMessages),
		"createdAt":     ts(u.CreatedAt),
	}
}

func card(c model.UserCard) object {
	o := object{
		"id":        str(c.ID.String()),
		"handle":    str(c.Handle),
		"username":  str(c.Username),
		"nickname":  str(c.Nickname),
		"avatarUrl": str(c.AvatarURL),
		"isVip":     flag(c.IsVIP),
		"isCreator": flag(c.IsCreator),
	}
	if !c.FollowedAt.IsZero() {
		o["followedAt"] = ts(c.FollowedAt)
	}
	return o
}

// ToProtoUser wraps a full account record.
func ToProtoUser(u model.User) *structpb.Struct {
	return object{"user": nested(user(u))}.proto()
}

// ToProtoLogin renders a login result. The token is the only secret in it.
func ToProtoLogin(s model.Session, u model.User) *structpb.Struct {
	return object{
		"accessToken": str(s.Token),
		"tokenType":   str("Bearer"),
		"expiresAt":   ts(s.ExpiresAt),
		"user":        nested(user(u)),
	}.proto()
}

// ToProtoCardPage renders a page of user cards.
func ToProtoCardPage(p model.Page[model.UserCard]) *structpb.Struct {
	return page(p, card).proto()
}

// --- graph ---

func ToProtoFollowResult(r model.FollowResult) *structpb.Struct {
	return object{"success": flag(r.Success), "isFollowing": flag(r.IsFollowing)}.proto()
}

func ToProtoFollowStatus(s model.FollowStatus) *structpb.Struct {
	return object{
		"isFollowing":  flag(s.IsFollowing),
		"isFollowedBy": flag(s.IsFollowedBy),
		"isFriend":     flag(s.IsFriend),
	}.proto()
}

func ToProtoUserStats(s model.UserStats) *structpb.Struct {
	return object{
		"followingCount": num(s.FollowingCount),
		"followersCount": num(s.FollowersCount),
	}.proto()
}

// --- messages ---

func message(m model.MessageView) object {
	return object{
		"id":          str(strconv.FormatInt(m.ID, 10)),
		"content":     str(m.Content),
		"messageType": str(m.MessageType),
		"isRead":      flag(m.IsRead),
		"isMine":      flag(m.IsMine),
		"createdAt":   ts(m.CreatedAt),
	}
}

func conversation(c model.Conversation) object {
	o := object{
		"userId":      structpb.NewNullValue(),
		"lastMessage": nested(message(c.LastMessage)),
		"unreadCount": num(c.UnreadCount),
		"user":        structpb.NewNullValue(),
	}
	// userId is the counterpart's internal id, usable with ListMessages.
	if c.User != nil {
		o["userId"] = str(c.User.ID.String())
		o["user"] = nested(card(*c.User))
	}
	return o
}

// ToProtoConversationPage renders a page of conversation summaries.
func ToProtoConversationPage(p model.Page[model.Conversation]) *structpb.Struct {
	return page(p, conversation).proto()
}

// ToProtoThread renders a page of a thread with the counterpart's card.
func ToProtoThread(t model.Thread) *structpb.Struct {
	o := page(t.Page, message)
	o["otherUser"] = structpb.NewNullValue()
	if t.OtherUser != nil {
		o["otherUser"] = nested(card(*t.OtherUser))
	}
	return o.proto()
}

// ToProtoSent renders the sender's view of a stored message.
func ToProtoSent(m model.MessageView) *structpb.Struct {
	return object{
		"success":   flag(true),
		"messageId": str(strconv.FormatInt(m.ID, 10)),
		"message":   nested(message(m)),
	}.proto()
}

// --- notifications ---

func notification(n model.NotificationView) object {
	o := object{
		"id":          str(strconv.FormatInt(n.ID, 10)),
		"type":        str(string(n.Type)),
		"content":     str(n.Content),
		"relatedId":   structpb.NewNullValue(),
		"relatedType": structpb.NewNullValue(),
		"isRead":      flag(n.IsRead),
		"createdAt":   ts(n.CreatedAt),
		"sender":      structpb.NewNullValue(),
	}
	if n.RelatedID != 0 {
		o["relatedId"] = str(strconv.FormatInt(n.RelatedID, 10))
	}
	if n.RelatedType != "" {
		o["relatedType"] = str(n.RelatedType)
	}
	if n.From != nil {
		o["sender"] = nested(card(*n.From))
	}
	return o
}

// ToProtoNotificationPage renders a page of notifications with sender cards.
func ToProtoNotificationPage(p model.Page[model.NotificationView]) *structpb.Struct {
	return page(p, notification).proto()
}

func ToProtoUnreadCounts(c model.UnreadCounts) *structpb.Struct {
	return object{
		"total":    num(c.Total),
		"likes":    num(c.Likes),
		"comments": num(c.Comments),
		"follows":  num(c.Follows),
		"system":   num(c.System),
	}.proto()
}

// ToProtoMarked acknowledges a mark-read request with the number of rows it changed.
func ToProtoMarked(n int64) *structpb.Struct {
	return object{"success": flag(true), "updated": num(int(n))}.proto()
}

// --- requests ---

// StringField returns a string field, or "" when absent or not a string.
func StringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// IDField reads a required internal id given as a decimal string or an integral number.
func IDField(req *structpb.Struct, key string) (model.InternalID, error) {
	id, ok, err := OptionalIDField(req, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", errs.ErrInvalidArgument, key)
	}
	return id, nil
}

// RecordIDField is IDField for row ids such as notification ids.
func RecordIDField(req *structpb.Struct, key string) (int64, error) {
	id, err := IDField(req, key)
	return int64(id), err
}

// OptionalIDField is IDField for fields that may be omitted.
func OptionalIDField(req *structpb.Struct, key string) (model.InternalID, bool, error) {
	n, ok, err := integer(req, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if n <= 0 {
		return 0, false, fmt.Errorf("%w: %s must be positive", errs.ErrInvalidArgument, key)
	}
	return model.InternalID(n), true, nil
}

// IntField reads an optional integer; absent yields 0.
func IntField(req *structpb.Struct, key string) (int, error) {
	n, _, err := integer(req, key)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s out of range", errs.ErrInvalidArgument, key)
	}
	return int(n), nil
}

// NotificationTypeField reads an optional notification type; absent means every type.
func NotificationTypeField(req *structpb.Struct, key string) (model.NotificationType, error) {
	t := model.NotificationType(strings.TrimSpace(StringField(req, key)))
	if t != "" && !t.Valid() {
		return "", fmt.Errorf("%w: unknown %s %q", errs.ErrInvalidArgument, key, t)
	}
	return t, nil
}

// PageFields reads page and pageSize.
func PageFields(req *structpb.Struct) (page, size int, err error) {
	if page, err = IntField(req, "page"); err != nil {
		return 0, 0, err
	}
	if size, err = IntField(req, "pageSize"); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func integer(req *structpb.Struct, key string) (int64, bool, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, false, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, false, nil
	case *structpb.Value_StringValue:
		s := strings.TrimSpace(k.StringValue)
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %s is not an integer", errs.ErrInvalidArgument, key)
		}
		return n, true, nil
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, false, fmt.Errorf("%w: %s is not an integer", errs.ErrInvalidArgument, key)
		}
		return int64(f), true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s has the wrong type", errs.ErrInvalidArgument, key)
	}
}
