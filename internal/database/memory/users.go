package memory

import (
	"context"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
)

type userStore struct {
	*Store
}

func (u *userStore) Create(ctx context.Context, user *entity.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, taken := u.emails[user.Email]; taken {
		return entity.ErrEmailTaken
	}

	u.nextUser++
	user.ID = u.nextUser
	stored := *user
	u.users[user.ID] = &stored
	u.emails[user.Email] = user.ID
	onRollback(ctx, func() {
		delete(u.users, stored.ID)
		delete(u.emails, stored.Email)
	})
	return nil
}

func (u *userStore) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.users[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (u *userStore) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	id, ok := u.emails[email]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	out := *u.users[id]
	return &out, nil
}

func (u *userStore) Update(ctx context.Context, user *entity.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	current, ok := u.users[user.ID]
	if !ok {
		return entity.ErrUserNotFound
	}
	if owner, taken := u.emails[user.Email]; taken && owner != user.ID {
		return entity.ErrEmailTaken
	}

	prev := *current
	newEmail := user.Email
	delete(u.emails, current.Email)
	*current = *user
	u.emails[newEmail] = user.ID
	onRollback(ctx, func() {
		delete(u.emails, newEmail)
		*u.users[prev.ID] = prev
		u.emails[prev.Email] = prev.ID
	})
	return nil
}

func (u *userStore) UpgradeGuest(ctx context.Context, user *entity.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	current, ok := u.users[user.ID]
	if !ok {
		return entity.ErrUserNotFound
	}
	if current.IsRegistered {
		return entity.ErrAlreadyRegistered
	}

	prev := *current
	*current = *user
	current.Email = prev.Email
	current.IsRegistered = true
	onRollback(ctx, func() {
		*u.users[prev.ID] = prev
	})
	return nil
}
