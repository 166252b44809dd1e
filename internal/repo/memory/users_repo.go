package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/usershub/internal/domain/user"
)

// UsersRepo is a process local store used when no database is configured and in tests.
// It enforces the same unique email constraint the postgres schema does.
type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		nextID: 1,
		items:  make(map[int64]user.User),
	}
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(email, 0) {
		return user.User{}, user.ErrEmailTaken
	}

	u := user.User{
		ID:           r.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	r.items[u.ID] = u
	r.nextID++

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id int64, changes user.Changes) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if changes.Email != nil && r.emailTakenLocked(*changes.Email, id) {
		return user.User{}, user.ErrEmailTaken
	}

	if changes.Name != nil {
		u.Name = *changes.Name
	}
	if changes.Email != nil {
		u.Email = *changes.Email
	}
	if changes.Role != nil {
		u.Role = *changes.Role
	}

	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	delete(r.items, id)

	return u, nil
}

func (r *UsersRepo) emailTakenLocked(email string, exceptID int64) bool {
	for _, u := range r.items {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}
