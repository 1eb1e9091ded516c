package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-console/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users.filter(nil) {
		if usr.Email == email && !isExcluded(usr.ID, excludedIDs) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = repo.db.nextID(PrefixUser)
	repo.db.users.put(usr.ID, usr)
	return cloneUser(usr), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users.get(id); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := repo.db.users.filter(func(usr user.User) bool { return usr.Email == email })
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.users.filter(filter.Match), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.users.has(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users.put(usr.ID, usr)
	return cloneUser(usr), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.users.has(id) {
		return user.ErrNotFound
	}
	repo.db.users.remove(id)
	return nil
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, excl := range excludedIDs {
		if excl == id {
			return true
		}
	}
	return false
}
