// Package memory keeps admin users and sessions in process memory. It backs
// the memory store driver used in development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"blog-cms/internal/auth/domain/model"
)

// AuthRepository is an in-memory AuthRepository
type AuthRepository struct {
	mu       sync.RWMutex
	users    map[string]model.AdminUser
	sessions map[string]model.Session
}

// NewAuthRepository creates an empty repository
func NewAuthRepository() *AuthRepository {
	return &AuthRepository{
		users:    make(map[string]model.AdminUser),
		sessions: make(map[string]model.Session),
	}
}

func cloneUser(u model.AdminUser) *model.AdminUser {
	u.Roles = append([]string(nil), u.Roles...)
	return &u
}

func (r *AuthRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *AuthRepository) CreateUser(ctx context.Context, user *model.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists || r.emailTaken(user.Email, "") {
		return model.ErrEmailTaken
	}
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r *AuthRepository) GetUserByID(ctx context.Context, id string) (*model.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *AuthRepository) ListUsers(ctx context.Context, limit, offset int) ([]*model.AdminUser, error) {
	r.mu.RLock()
	all := make([]*model.AdminUser, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, cloneUser(u))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	if offset >= len(all) {
		return []*model.AdminUser{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *AuthRepository) CountUsers(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *AuthRepository) UpdateUser(ctx context.Context, user *model.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return model.ErrUserNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return model.ErrEmailTaken
	}
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

func (r *AuthRepository) DeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *AuthRepository) CreateSession(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *AuthRepository) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return &s, nil
}

func (r *AuthRepository) DeleteSession(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return model.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *AuthRepository) DeleteUserSessions(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}
