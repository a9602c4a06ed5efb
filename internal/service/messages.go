package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/metrics"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/repository"
)

const (
	DefaultMessageType = "text"
	MaxContentRunes    = 4000
)

// MessageService aggregates direct messages into conversations and threads.
type MessageService interface {
	ListConversations(ctx context.Context, self model.InternalID, page, size int) (model.Page[model.Conversation], error)
	ListMessages(ctx context.Context, self, other model.InternalID, page, size int) (model.Thread, error)
	Send(ctx context.Context, from, to model.InternalID, content, messageType string) (model.MessageView, error)
}

type MessageServiceImpl struct {
	users    repository.UserRepository
	messages repository.MessageRepository
	rec      metrics.Recorder
}

// NewMessageService constructs MessageService.
func NewMessageService(users repository.UserRepository, messages repository.MessageRepository, rec metrics.Recorder) *MessageServiceImpl {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &MessageServiceImpl{users: users, messages: messages, rec: rec}
}

// ListConversations reads every message involving self and reduces them in
// memory. Total counts counterparts, not messages.
func (s *MessageServiceImpl) ListConversations(ctx context.Context, self model.InternalID, page, size int) (model.Page[model.Conversation], error) {
	page, size = normalizePage(page, size)
	me, err := lookupUser(ctx, s.users, self)
	if err != nil || me == nil {
		return emptyPage[model.Conversation](page, size), err
	}

	msgs, err := s.messages.ListInvolving(ctx, me.ExternalID)
	if err != nil {
		return model.Page[model.Conversation]{}, err
	}
	out := paginate(AggregateConversations(me.ExternalID, msgs), page, size)

	ids := make([]model.ExternalID, 0, len(out.List))
	for _, c := range out.List {
		ids = append(ids, c.Counterpart)
	}
	cards, err := loadCards(ctx, s.users, ids)
	if err != nil {
		return model.Page[model.Conversation]{}, err
	}
	for i := range out.List {
		if c, ok := cards[out.List[i].Counterpart]; ok {
			out.List[i].User = &c
		}
	}
	return out, nil
}

// ListMessages returns a page of the self<->other thread, newest first, then
// marks everything other sent to self as read. Re-reading writes nothing new.
func (s *MessageServiceImpl) ListMessages(ctx context.Context, self, other model.InternalID, page, size int) (model.Thread, error) {
	page, size = normalizePage(page, size)
	empty := model.Thread{Page: emptyPage[model.MessageView](page, size)}

	me, err := lookupUser(ctx, s.users, self)
	if err != nil || me == nil {
		return empty, err
	}
	them, err := lookupUser(ctx, s.users, other)
	if err != nil || them == nil {
		return empty, err
	}

	total, err := s.messages.CountThread(ctx, me.ExternalID, them.ExternalID)
	if err != nil {
		return model.Thread{}, err
	}
	msgs, err := s.messages.ListThread(ctx, me.ExternalID, them.ExternalID, offsetOf(page, size), size)
	if err != nil {
		return model.Thread{}, err
	}
	views := make([]model.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, m.View(me.ExternalID))
	}

	n, err := s.messages.MarkRead(ctx, them.ExternalID, me.ExternalID)
	if err != nil {
		return model.Thread{}, err
	}
	s.rec.RecordMarkedRead(n)

	card := them.Card()
	return model.Thread{Page: countedPage(views, page, size, total), OtherUser: &card}, nil
}

// Send stores a message from -> to if the recipient accepts direct messages.
func (s *MessageServiceImpl) Send(ctx context.Context, from, to model.InternalID, content, messageType string) (model.MessageView, error) {
	if strings.TrimSpace(content) == "" || utf8.RuneCountInString(content) > MaxContentRunes {
		return model.MessageView{}, errs.ErrInvalidArgument
	}
	if from == to {
		return model.MessageView{}, errs.ErrInvalidArgument
	}
	if messageType == "" {
		messageType = DefaultMessageType
	}

	me, err := s.users.GetByID(ctx, from)
	if err != nil {
		return model.MessageView{}, notFoundAs(err, errs.ErrSessionInvalid)
	}
	recipient, err := s.users.GetByID(ctx, to)
	if err != nil {
		return model.MessageView{}, notFoundAs(err, errs.ErrRecipientNotFound)
	}
	if !recipient.AllowMessages {
		return model.MessageView{}, errs.ErrMessagingNotAllowed
	}

	m := &model.Message{
		Sender:      me.ExternalID,
		Receiver:    recipient.ExternalID,
		Content:     content,
		MessageType: messageType,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return model.MessageView{}, err
	}
	s.rec.RecordMessageSent()
	return m.View(me.ExternalID), nil
}
