// Package memory provides an in-process user repository for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/duynhne/user-management/internal/core/domain"
)

// UserRepository keeps users in a map guarded by a RWMutex.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	nextID int64
}

var _ domain.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a repository preloaded with seed. Generated ids
// continue after the highest seeded id.
func NewUserRepository(seed ...domain.User) *UserRepository {
	r := &UserRepository{
		users:  make(map[int64]domain.User, len(seed)),
		nextID: 1,
	}
	for _, u := range seed {
		r.users[u.ID] = u
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
	}
	return r
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, in domain.UserInput) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u := in.ToUser(r.nextID)
	r.users[u.ID] = *u
	r.nextID++
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, in domain.UserInput) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return nil, domain.ErrUserNotFound
	}
	u := in.ToUser(id)
	r.users[id] = *u
	return u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}
