package memory

import (
	"context"
	"strings"

	"storefront-service/internal/users"
)

type userStore struct {
	s *Store
}

func (u userStore) InsertUser(ctx context.Context, user *users.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.st.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return users.ErrEmailTaken
		}
	}
	user.ID = u.s.id()
	user.CreatedAt = u.s.now()
	u.s.st.users[user.ID] = *user
	return nil
}

func (u userStore) GetByEmail(ctx context.Context, email string) (users.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.st.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (u userStore) GetByID(ctx context.Context, id int64) (users.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.st.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return user, nil
}

func (u userStore) UpdateProfile(ctx context.Context, id int64, p users.Profile) (users.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.st.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	user.FirstName, user.LastName, user.Phone = p.FirstName, p.LastName, p.Phone
	user.Country, user.State, user.City = p.Country, p.State, p.City
	user.Address, user.Postcode = p.Address, p.Postcode
	u.s.st.users[id] = user
	return user, nil
}

func (u userStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.st.users[id]
	if !ok {
		return users.ErrNotFound
	}
	user.PasswordHash = passwordHash
	u.s.st.users[id] = user
	return nil
}
