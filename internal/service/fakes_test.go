package service

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/repository"
)

// memStore backs the fake repositories with one shared state, so services
// wired together see each other's writes like they would through Postgres.
type memStore struct {
	mu    sync.Mutex
	clock time.Time

	users map[model.InternalID]*model.User
	edges map[[2]model.ExternalID]time.Time
	msgs  []model.Message
	notes []model.Notification

	nextMsg  int64
	nextNote int64

	// error injection
	getErr    error
	createErr error

	searchCalls int
	markWrites  int64
	noteWrites  int64
	syncs       []model.ProfileSync
}

func newStore() *memStore {
	return &memStore{
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		users: map[model.InternalID]*model.User{},
		edges: map[[2]model.ExternalID]time.Time{},
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) addUser(id model.InternalID, ext model.ExternalID, handle string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{
		ID:            id,
		ExternalID:    ext,
		Handle:        handle,
		Username:      handle,
		FirstName:     strings.ToUpper(handle[:1]) + handle[1:],
		AllowMessages: true,
		CreatedAt:     s.tick(),
	}
	s.users[id] = u
	return u
}

func (s *memStore) edgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

func (s *memStore) byExt(ext model.ExternalID) *model.User {
	for _, u := range s.users {
		if u.ExternalID == ext {
			return u
		}
	}
	return nil
}

type fakeUsers struct{ *memStore }

var _ repository.UserRepository = fakeUsers{}

func (f fakeUsers) GetByID(_ context.Context, id model.InternalID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) GetByExternalID(_ context.Context, ext model.ExternalID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u := f.byExt(ext)
	if u == nil {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) ListByExternalIDs(_ context.Context, ids []model.ExternalID) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u := f.byExt(id); u != nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f fakeUsers) SyncProfile(_ context.Context, id model.InternalID, p model.ProfileSync) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	f.syncs = append(f.syncs, p)
	u.FirstName = p.FirstName
	if p.Username != "" {
		u.Username = p.Username
	}
	if p.LastName != "" {
		u.LastName = p.LastName
	}
	if p.AvatarURL != "" {
		u.AvatarURL = p.AvatarURL
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) Search(_ context.Context, keyword string, offset, limit int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	kw := strings.ToLower(keyword)
	var all []model.User
	for _, u := range f.users {
		for _, field := range []string{u.Username, u.FirstName, u.Handle} {
			if strings.Contains(strings.ToLower(field), kw) {
				all = append(all, *u)
				break
			}
		}
	}
	slices.SortFunc(all, func(a, b model.User) int { return cmp.Compare(a.ID, b.ID) })
	from := min(offset, len(all))
	to := min(from+limit, len(all))
	return all[from:to], nil
}

type fakeFollows struct{ *memStore }

var _ repository.FollowRepository = fakeFollows{}

func (f fakeFollows) Create(_ context.Context, follower, following model.ExternalID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	key := [2]model.ExternalID{follower, following}
	if _, ok := f.edges[key]; ok {
		return errs.ErrAlreadyExists
	}
	f.edges[key] = f.tick()
	return nil
}

func (f fakeFollows) Delete(_ context.Context, follower, following model.ExternalID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]model.ExternalID{follower, following}
	_, ok := f.edges[key]
	delete(f.edges, key)
	return ok, nil
}

func (f fakeFollows) Exists(_ context.Context, follower, following model.ExternalID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.edges[[2]model.ExternalID{follower, following}]
	return ok, nil
}

func (f fakeFollows) Targets(_ context.Context, follower model.ExternalID) ([]model.ExternalID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExternalID
	for k := range f.edges {
		if k[0] == follower {
			out = append(out, k[1])
		}
	}
	return out, nil
}

func (f fakeFollows) match(flt model.EdgeFilter) []model.Edge {
	var out []model.Edge
	for k, ts := range f.edges {
		if flt.Follower != 0 && k[0] != flt.Follower {
			continue
		}
		if flt.Following != 0 && k[1] != flt.Following {
			continue
		}
		if flt.FollowerIn != nil && !slices.Contains(flt.FollowerIn, k[0]) {
			continue
		}
		out = append(out, model.Edge{Follower: k[0], Following: k[1], CreatedAt: ts})
	}
	slices.SortFunc(out, func(a, b model.Edge) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Follower, b.Follower); c != 0 {
			return c
		}
		return cmp.Compare(a.Following, b.Following)
	})
	return out
}

func (f fakeFollows) Count(_ context.Context, flt model.EdgeFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.match(flt)), nil
}

func (f fakeFollows) List(_ context.Context, flt model.EdgeFilter, offset, limit int) ([]model.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.match(flt)
	from := min(offset, len(all))
	to := min(from+limit, len(all))
	return all[from:to], nil
}

type fakeMessages struct{ *memStore }

var _ repository.MessageRepository = fakeMessages{}

func (f fakeMessages) Create(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextMsg++
	m.ID = f.nextMsg
	m.IsRead = false
	m.CreatedAt = f.tick()
	f.msgs = append(f.msgs, *m)
	return nil
}

func (f fakeMessages) sorted(keep func(model.Message) bool) []model.Message {
	var out []model.Message
	for _, m := range f.msgs {
		if keep(m) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b model.Message) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (f fakeMessages) ListInvolving(_ context.Context, user model.ExternalID) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(m model.Message) bool { return m.Sender == user || m.Receiver == user }), nil
}

func inThread(a, b model.ExternalID) func(model.Message) bool {
	return func(m model.Message) bool {
		return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
	}
}

func (f fakeMessages) ListThread(_ context.Context, a, b model.ExternalID, offset, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted(inThread(a, b))
	from := min(offset, len(all))
	to := min(from+limit, len(all))
	return all[from:to], nil
}

func (f fakeMessages) CountThread(_ context.Context, a, b model.ExternalID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sorted(inThread(a, b))), nil
}

func (f fakeMessages) MarkRead(_ context.Context, from, to model.ExternalID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.msgs {
		m := &f.msgs[i]
		if m.Sender == from && m.Receiver == to && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	f.markWrites += n
	return n, nil
}

type fakeNotifications struct{ *memStore }

var _ repository.NotificationRepository = fakeNotifications{}

func (f fakeNotifications) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextNote++
	n.ID = f.nextNote
	n.IsRead = false
	n.CreatedAt = f.tick()
	f.notes = append(f.notes, *n)
	return nil
}

func (f fakeNotifications) matching(receiver model.ExternalID, typ model.NotificationType) []model.Notification {
	var out []model.Notification
	for _, n := range f.notes {
		if n.Receiver == receiver && (typ == "" || n.Type == typ) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b model.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (f fakeNotifications) List(_ context.Context, receiver model.ExternalID, typ model.NotificationType, offset, limit int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matching(receiver, typ)
	from := min(offset, len(all))
	to := min(from+limit, len(all))
	return all[from:to], nil
}

func (f fakeNotifications) Count(_ context.Context, receiver model.ExternalID, typ model.NotificationType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matching(receiver, typ)), nil
}

func (f fakeNotifications) CountUnreadByType(_ context.Context, receiver model.ExternalID) (map[model.NotificationType]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[model.NotificationType]int{}
	for _, n := range f.notes {
		if n.Receiver == receiver && !n.IsRead {
			out[n.Type]++
		}
	}
	return out, nil
}

func (f fakeNotifications) MarkRead(_ context.Context, id int64, receiver model.ExternalID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notes {
		n := &f.notes[i]
		if n.ID == id && n.Receiver == receiver && !n.IsRead {
			n.IsRead = true
			f.noteWrites++
			return 1, nil
		}
	}
	return 0, nil
}

func (f fakeNotifications) MarkAllRead(_ context.Context, receiver model.ExternalID, typ model.NotificationType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var changed int64
	for i := range f.notes {
		n := &f.notes[i]
		if n.Receiver == receiver && !n.IsRead && (typ == "" || n.Type == typ) {
			n.IsRead = true
			changed++
		}
	}
	f.noteWrites += changed
	return changed, nil
}

// recorder counts calls to metrics.Recorder.
type recorder struct {
	mu          sync.Mutex
	authReasons []string
	follows     map[string]int
	sent        int
	markedRead  int64
	notesRead   int64
}

func (r *recorder) RecordRequest(string, string, time.Duration) {}

func (r *recorder) RecordAuthFailure(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authReasons = append(r.authReasons, reason)
}

func (r *recorder) RecordFollowTransition(op, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.follows == nil {
		r.follows = map[string]int{}
	}
	r.follows[op+"/"+result]++
}

func (r *recorder) RecordMessageSent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent++
}

func (r *recorder) RecordMarkedRead(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedRead += n
}

func (r *recorder) RecordNotificationsRead(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notesRead += n
}
