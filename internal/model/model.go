// Package model defines domain entities used by services and repositories.
package model

import (
	"strconv"
	"time"
)

// ExternalID is the identifier assigned by the external identity platform.
// Follow edges and messages are keyed by it.
type ExternalID int64

// InternalID is the primary key of a provisioned account.
// Session credentials carry it as their subject.
type InternalID int64

func (id ExternalID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id InternalID) String() string { return strconv.FormatInt(int64(id), 10) }

// Principal is the identity asserted by the external platform after verification.
type Principal struct {
	ExternalID ExternalID
	FirstName  string
	LastName   string // optional
	Username   string // optional
	AvatarURL  string // optional
	AuthDate   time.Time
}

// Session is an issued, immutable session credential.
type Session struct {
	Token          string     // signed, opaque to callers
	TokenID        string     // jti
	SubjectID      InternalID // internal account
	ExternalID     ExternalID
	PlatformHandle string
	IssuedAt       time.Time
	ExpiresAt      time.Time
}

// User is a provisioned account.
type User struct {
	ID            InternalID
	ExternalID    ExternalID // unique
	Handle        string     // public handle, unique
	Username      string
	FirstName     string
	LastName      string
	AvatarURL     string
	IsVIP         bool
	IsCreator     bool
	AllowMessages bool // privacy: accept direct messages
	CreatedAt     time.Time
}

// ProfileSync carries the mutable profile fields refreshed on every login.
type ProfileSync struct {
	Username  string
	FirstName string
	LastName  string
	AvatarURL string // empty keeps the stored value
}

// UserCard is the public projection of a user shown in lists.
type UserCard struct {
	ID        InternalID
	Handle    string
	Username  string
	Nickname  string
	AvatarURL string
	IsVIP     bool
	IsCreator bool
	// FollowedAt is set for following/followers listings.
	FollowedAt time.Time
}

// Card projects a user to its public card.
func (u User) Card() UserCard {
	return UserCard{
		ID:        u.ID,
		Handle:    u.Handle,
		Username:  u.Username,
		Nickname:  u.FirstName,
		AvatarURL: u.AvatarURL,
		IsVIP:     u.IsVIP,
		IsCreator: u.IsCreator,
	}
}

// Edge is a directed follow relation.
type Edge struct {
	Follower  ExternalID
	Following ExternalID
	CreatedAt time.Time
}

// EdgeFilter selects edges. Zero fields are unconstrained.
type EdgeFilter struct {
	Follower   ExternalID
	Following  ExternalID
	FollowerIn []ExternalID // non-nil restricts followers to the set (empty set matches nothing)
}

// FollowResult is the success shape of follow and unfollow.
type FollowResult struct {
	Success     bool
	IsFollowing bool
}

// FollowStatus describes the relation between two users.
type FollowStatus struct {
	IsFollowing  bool
	IsFollowedBy bool
	IsFriend     bool
}

// UserStats holds live relationship counters.
type UserStats struct {
	FollowingCount int
	FollowersCount int
}

// Message is a direct message. Only IsRead ever changes, false to true.
type Message struct {
	ID          int64
	Sender      ExternalID
	Receiver    ExternalID
	Content     string
	MessageType string
	IsRead      bool
	CreatedAt   time.Time
}

// MessageView is a message seen from one participant.
type MessageView struct {
	ID          int64
	Content     string
	MessageType string
	IsRead      bool
	IsMine      bool
	CreatedAt   time.Time
}

// View projects m from self's point of view.
func (m Message) View(self ExternalID) MessageView {
	return MessageView{
		ID:          m.ID,
		Content:     m.Content,
		MessageType: m.MessageType,
		IsRead:      m.IsRead,
		IsMine:      m.Sender == self,
		CreatedAt:   m.CreatedAt,
	}
}

// Conversation is derived per query from the message set, never stored.
type Conversation struct {
	Counterpart ExternalID
	User        *UserCard // nil if the counterpart account is gone
	LastMessage MessageView
	UnreadCount int
}

// Thread is one page of a bidirectional message thread.
type Thread struct {
	Page[MessageView]
	OtherUser *UserCard
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotifyLike    NotificationType = "like"
	NotifyComment NotificationType = "comment"
	NotifyFollow  NotificationType = "follow"
	NotifyMention NotificationType = "mention"
	NotifySystem  NotificationType = "system"
)

// Valid reports whether t is a known type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyLike, NotifyComment, NotifyFollow, NotifyMention, NotifySystem:
		return true
	}
	return false
}

// Notification is an event addressed to one receiver. Sender is zero for
// system notifications. Like messages, only IsRead changes after insert.
type Notification struct {
	ID          int64
	Receiver    ExternalID
	Sender      ExternalID
	Type        NotificationType
	Content     string
	RelatedID   int64 // zero when absent
	RelatedType string
	IsRead      bool
	CreatedAt   time.Time
}

// NotificationView is a notification with the sender's card attached.
type NotificationView struct {
	Notification
	From *UserCard // nil for system notifications or deleted senders
}

// UnreadCounts holds unread notification counters. Mentions count toward
// Total only.
type UnreadCounts struct {
	Total    int
	Likes    int
	Comments int
	Follows  int
	System   int
}

// Page is an offset-paginated result.
type Page[T any] struct {
	List     []T
	Page     int
	PageSize int
	Total    int // -1 when not computed
	HasMore  bool
}
