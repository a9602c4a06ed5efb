package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/metrics"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/repository"
)

// SocialService maintains the follow graph. Callers pass internal ids;
// edges are keyed by external ids and translated here.
type SocialService interface {
	Follow(ctx context.Context, current, target model.InternalID) (model.FollowResult, error)
	Unfollow(ctx context.Context, current, target model.InternalID) (model.FollowResult, error)
	ListFollowing(ctx context.Context, user model.InternalID, page, size int) (model.Page[model.UserCard], error)
	ListFollowers(ctx context.Context, user model.InternalID, page, size int) (model.Page[model.UserCard], error)
	ListFriends(ctx context.Context, user model.InternalID, page, size int) (model.Page[model.UserCard], error)
	FollowStatus(ctx context.Context, current, target model.InternalID) (model.FollowStatus, error)
	SearchUsers(ctx context.Context, keyword string, page, size int) (model.Page[model.UserCard], error)
	Stats(ctx context.Context, user model.InternalID) (model.UserStats, error)
}

type SocialServiceImpl struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	rec     metrics.Recorder

	notifier Notifier
}

// NewSocialService constructs SocialService.
func NewSocialService(users repository.UserRepository, follows repository.FollowRepository, rec metrics.Recorder) *SocialServiceImpl {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &SocialServiceImpl{users: users, follows: follows, rec: rec}
}

// NotifyFollows makes Follow notify the target of every new edge.
func (s *SocialServiceImpl) NotifyFollows(n Notifier) *SocialServiceImpl {
	s.notifier = n
	return s
}

// Follow creates current -> target. Following twice is a success and
// notifies nobody. A failed notification fails the call; the edge stays,
// so a retry succeeds as a no-op.
func (s *SocialServiceImpl) Follow(ctx context.Context, current, target model.InternalID) (model.FollowResult, error) {
	if current == target {
		return model.FollowResult{}, errs.ErrSelfFollowForbidden
	}
	me, err := s.users.GetByID(ctx, current)
	if err != nil {
		return model.FollowResult{}, notFoundAs(err, errs.ErrSessionInvalid)
	}
	other, err := s.users.GetByID(ctx, target)
	if err != nil {
		return model.FollowResult{}, notFoundAs(err, errs.ErrTargetNotFound)
	}

	result := metrics.ResultCreated
	if err := s.follows.Create(ctx, me.ExternalID, other.ExternalID); err != nil {
		if !errors.Is(err, errs.ErrAlreadyExists) {
			return model.FollowResult{}, err
		}
		result = metrics.ResultNoop
	}
	s.rec.RecordFollowTransition(metrics.OpFollow, result)

	if result == metrics.ResultCreated && s.notifier != nil {
		n := &model.Notification{Receiver: other.ExternalID, Sender: me.ExternalID, Type: model.NotifyFollow}
		if err := s.notifier.Notify(ctx, n); err != nil {
			return model.FollowResult{}, fmt.Errorf("notify follow: %w", err)
		}
	}
	return model.FollowResult{Success: true, IsFollowing: true}, nil
}

// Unfollow removes current -> target. A missing edge or user is a success.
func (s *SocialServiceImpl) Unfollow(ctx context.Context, current, target model.InternalID) (model.FollowResult, error) {
	done := model.FollowResult{Success: true, IsFollowing: false}

	me, other, err := s.pair(ctx, current, target)
	if err != nil {
		return model.FollowResult{}, err
	}
	if me == nil || other == nil {
		s.rec.RecordFollowTransition(metrics.OpUnfollow, metrics.ResultNoop)
		return done, nil
	}

	removed, err := s.follows.Delete(ctx, me.ExternalID, other.ExternalID)
	if err != nil {
		return model.FollowResult{}, err
	}
	if removed {
		s.rec.RecordFollowTransition(metrics.OpUnfollow, metrics.ResultRemoved)
	} else {
		s.rec.RecordFollowTransition(metrics.OpUnfollow, metrics.ResultNoop)
	}
	return done, nil
}

// ListFollowing lists whom user follows, most recent first.
func (s *SocialServiceImpl) ListFollowing(ctx context.Context, user model.InternalID, page, size int) (model.Page[model.UserCard], error) {
	page, size = normalizePage(page, size)
	u, err := s.lookup(ctx, user)
	if err != nil || u == nil {
		return emptyPage[model.UserCard](page, size), err
	}
	return s.edgePage(ctx, model.EdgeFilter{Follower: u.ExternalID}, func(e model.Edge) model.ExternalID { return e.Following }, page, size)
}

// ListFollowers lists who follows user, most recent first.
func (s *SocialServiceImpl) ListFollowers(ctx context.Context, user model.InternalID, page, size int) (model.Page[model.UserCard], error) {
	page, size = normalizePage(page, size)
	u, err := s.lookup(ctx, user)
	if err != nil || u == nil {
		return emptyPage[model.UserCard](page, size), err
	}
	return s.edgePage(ctx, model.EdgeFilter{Following: u.ExternalID}, func(e model.Edge) model.ExternalID { return e.Follower }, page, size)
}

// ListFriends lists users with edges in both directions. Outgoing targets
// form the candidate set; incoming edges from candidates are the friends.
func (s *SocialServiceImpl) ListFriends(ctx context.Context, user model.InternalID, page, size int) (model.Page[model.UserCard], error) {
	page, size = normalizePage(page, size)
	u, err := s.lookup(ctx, user)
	if err != nil || u == nil {
		return emptyPage[model.UserCard](page, size), err
	}

	candidates, err := s.follows.Targets(ctx, u.ExternalID)
	if err != nil {
		return model.Page[model.UserCard]{}, err
	}
	if len(candidates) == 0 {
		return countedPage[model.UserCard](nil, page, size, 0), nil
	}
	f := model.EdgeFilter{Following: u.ExternalID, FollowerIn: candidates}
	return s.edgePage(ctx, f, func(e model.Edge) model.ExternalID { return e.Follower }, page, size)
}

// FollowStatus reports both directions between current and target.
// An unknown target reports no relation.
func (s *SocialServiceImpl) FollowStatus(ctx context.Context, current, target model.InternalID) (model.FollowStatus, error) {
	me, err := s.users.GetByID(ctx, current)
	if err != nil {
		return model.FollowStatus{}, notFoundAs(err, errs.ErrSessionInvalid)
	}
	other, err := s.lookup(ctx, target)
	if err != nil || other == nil || other.ID == me.ID {
		return model.FollowStatus{}, err
	}

	out, err := s.follows.Exists(ctx, me.ExternalID, other.ExternalID)
	if err != nil {
		return model.FollowStatus{}, err
	}
	in, err := s.follows.Exists(ctx, other.ExternalID, me.ExternalID)
	if err != nil {
		return model.FollowStatus{}, err
	}
	return model.FollowStatus{IsFollowing: out, IsFollowedBy: in, IsFriend: out && in}, nil
}

// SearchUsers matches keyword case-insensitively against username, first
// name and handle. A blank keyword never reaches storage. Total is not
// computed; HasMore means the page came back full.
func (s *SocialServiceImpl) SearchUsers(ctx context.Context, keyword string, page, size int) (model.Page[model.UserCard], error) {
	page, size = normalizePage(page, size)
	out := emptyPage[model.UserCard](page, size)
	out.Total = -1

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return out, nil
	}
	users, err := s.users.Search(ctx, keyword, offsetOf(page, size), size)
	if err != nil {
		return model.Page[model.UserCard]{}, err
	}
	for _, u := range users {
		out.List = append(out.List, u.Card())
	}
	out.HasMore = len(users) == size
	return out, nil
}

// Stats counts edges live.
func (s *SocialServiceImpl) Stats(ctx context.Context, user model.InternalID) (model.UserStats, error) {
	u, err := s.users.GetByID(ctx, user)
	if err != nil {
		return model.UserStats{}, notFoundAs(err, errs.ErrTargetNotFound)
	}
	following, err := s.follows.Count(ctx, model.EdgeFilter{Follower: u.ExternalID})
	if err != nil {
		return model.UserStats{}, err
	}
	followers, err := s.follows.Count(ctx, model.EdgeFilter{Following: u.ExternalID})
	if err != nil {
		return model.UserStats{}, err
	}
	return model.UserStats{FollowingCount: following, FollowersCount: followers}, nil
}

// edgePage counts and lists edges matching f and resolves the side picked by other.
// Edges whose account no longer exists are dropped from the list.
func (s *SocialServiceImpl) edgePage(ctx context.Context, f model.EdgeFilter, other func(model.Edge) model.ExternalID, page, size int) (model.Page[model.UserCard], error) {
	total, err := s.follows.Count(ctx, f)
	if err != nil {
		return model.Page[model.UserCard]{}, err
	}
	if total == 0 {
		return countedPage[model.UserCard](nil, page, size, 0), nil
	}
	edges, err := s.follows.List(ctx, f, offsetOf(page, size), size)
	if err != nil {
		return model.Page[model.UserCard]{}, err
	}

	ids := make([]model.ExternalID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, other(e))
	}
	cards, err := s.cards(ctx, ids)
	if err != nil {
		return model.Page[model.UserCard]{}, err
	}

	list := make([]model.UserCard, 0, len(edges))
	for _, e := range edges {
		c, ok := cards[other(e)]
		if !ok {
			continue
		}
		c.FollowedAt = e.CreatedAt
		list = append(list, c)
	}
	return countedPage(list, page, size, total), nil
}

func (s *SocialServiceImpl) cards(ctx context.Context, ids []model.ExternalID) (map[model.ExternalID]model.UserCard, error) {
	return loadCards(ctx, s.users, ids)
}

// lookup returns nil without error when the user does not exist.
func (s *SocialServiceImpl) lookup(ctx context.Context, id model.InternalID) (*model.User, error) {
	return lookupUser(ctx, s.users, id)
}

func (s *SocialServiceImpl) pair(ctx context.Context, a, b model.InternalID) (*model.User, *model.User, error) {
	ua, err := s.lookup(ctx, a)
	if err != nil || ua == nil {
		return nil, nil, err
	}
	ub, err := s.lookup(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	return ua, ub, nil
}

func lookupUser(ctx context.Context, users repository.UserRepository, id model.InternalID) (*model.User, error) {
	u, err := users.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func loadCards(ctx context.Context, users repository.UserRepository, ids []model.ExternalID) (map[model.ExternalID]model.UserCard, error) {
	out := make(map[model.ExternalID]model.UserCard, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := users.ListByExternalIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		out[u.ExternalID] = u.Card()
	}
	return out, nil
}

// notFoundAs replaces errs.ErrNotFound with target and passes other errors through.
func notFoundAs(err, target error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return target
	}
	return err
}
