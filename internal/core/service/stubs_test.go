package service

import (
	"context"
	"sync"
	"time"

	"github.com/placequest/placequest-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.User
	createErr error
	findErr   error
	updates   int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Preferences = domain.MergePreferences(nil, u.Preferences)
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.byID {
		if u.Email == user.Email || u.Username == user.Username {
			return domain.ErrUserExists
		}
	}
	r.byID[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Exists(_ context.Context, email, username string) (bool, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var emailTaken, usernameTaken bool
	for _, u := range r.byID {
		emailTaken = emailTaken || u.Email == email
		usernameTaken = usernameTaken || u.Username == username
	}
	return emailTaken, usernameTaken, nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.byID[user.ID] = cloneUser(user)
	r.updates++
	return nil
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// stubTokenRepo mirrors the Mongo collection: unique digest, unique user_id.
type stubTokenRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.AccessToken
	findErr error
	deletes []string
	touches int
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{byID: make(map[string]*domain.AccessToken)}
}

func cloneToken(t *domain.AccessToken) *domain.AccessToken {
	clone := *t
	clone.Abilities = append([]string(nil), t.Abilities...)
	return &clone
}

func (r *stubTokenRepo) Create(_ context.Context, token *domain.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.UserID == token.UserID || t.Digest == token.Digest {
			return domain.ErrDuplicateToken
		}
	}
	r.byID[token.ID] = cloneToken(token)
	return nil
}

func (r *stubTokenRepo) FindByDigest(_ context.Context, digest string) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, t := range r.byID {
		if t.Digest == digest {
			return cloneToken(t), nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *stubTokenRepo) FindByID(_ context.Context, id string) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return cloneToken(t), nil
}

func (r *stubTokenRepo) FindByUser(_ context.Context, userID string) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.UserID == userID {
			return cloneToken(t), nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *stubTokenRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byID[id]; ok {
		t.LastUsedAt = at
		r.touches++
	}
	return nil
}

func (r *stubTokenRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	r.deletes = append(r.deletes, id)
	return nil
}

func (r *stubTokenRepo) countFor(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.byID {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// syncToucher applies touches straight to the repository.
type syncToucher struct {
	repo *stubTokenRepo
}

func (s syncToucher) Touch(id string, at time.Time) {
	_ = s.repo.Touch(context.Background(), id, at)
}

// keyedLocker is a process-local SessionLocker used to exercise the lock path.
type keyedLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{held: make(map[string]bool)}
}

func (l *keyedLocker) Acquire(_ context.Context, userID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[userID] {
		return nil, domain.ErrLoginInProgress
	}
	l.held[userID] = true
	l.acquired++
	return func() {
		l.mu.Lock()
		delete(l.held, userID)
		l.mu.Unlock()
	}, nil
}

// fakeClock is a settable time source shared by the services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
