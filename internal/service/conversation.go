package service

import (
	"cmp"
	"slices"

	"github.com/and161185/vidgraph/internal/model"
)

// AggregateConversations folds self's messages into one summary per
// counterpart: the latest message and the count of unread messages self
// received. The result is sorted by latest message time, newest first, with
// the higher message id winning ties. Messages not involving self are ignored.
func AggregateConversations(self model.ExternalID, msgs []model.Message) []model.Conversation {
	type summary struct {
		last   model.Message
		unread int
	}
	groups := make(map[model.ExternalID]summary)
	for _, m := range msgs {
		other, ok := counterpart(self, m)
		if !ok {
			continue
		}
		g, seen := groups[other]
		if !seen || newer(m, g.last) {
			g.last = m
		}
		if m.Receiver == self && m.Sender != self && !m.IsRead {
			g.unread++
		}
		groups[other] = g
	}

	out := make([]model.Conversation, 0, len(groups))
	for other, g := range groups {
		out = append(out, model.Conversation{
			Counterpart: other,
			LastMessage: g.last.View(self),
			UnreadCount: g.unread,
		})
	}
	slices.SortFunc(out, func(a, b model.Conversation) int {
		if c := b.LastMessage.CreatedAt.Compare(a.LastMessage.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.LastMessage.ID, a.LastMessage.ID)
	})
	return out
}

func counterpart(self model.ExternalID, m model.Message) (model.ExternalID, bool) {
	switch self {
	case m.Sender:
		return m.Receiver, true
	case m.Receiver:
		return m.Sender, true
	default:
		return 0, false
	}
}

func newer(a, b model.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
