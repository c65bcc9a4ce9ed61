package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/jkazadi/kampus/core"
	"github.com/jkazadi/kampus/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		users = append(users, *usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := func(usr user.User) bool {
		for _, excl := range excludedUsers {
			if usr.ID == excl.ID {
				return true
			}
		}
		return false
	}
	for _, usr := range repo.query() {
		if excluded(usr) {
			continue
		}
		if strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = newID()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	switch {
	case filter.ID != "":
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
	case filter.Username != "":
		for _, usr := range repo.query() {
			if strings.EqualFold(usr.Username, filter.Username) {
				return usr, nil
			}
		}
	case filter.Email != "":
		for _, usr := range repo.query() {
			if strings.EqualFold(usr.Email, filter.Email) {
				return usr, nil
			}
		}
	case len(filter.UsernameOrEmail) > 0:
		for _, usr := range repo.query() {
			for _, val := range filter.UsernameOrEmail {
				if strings.EqualFold(usr.Username, val) || strings.EqualFold(usr.Email, val) {
					return usr, nil
				}
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := repo.query()
	if filter == nil || filter.IsEmpty() {
		return users, nil
	}

	matchRole := func(usr user.User) bool {
		if len(filter.Roles) == 0 {
			return true
		}
		for _, role := range filter.Roles {
			for _, r := range usr.Roles {
				if r == role {
					return true
				}
			}
		}
		return false
	}
	matchSearch := func(usr user.User) bool {
		if filter.Search == "" {
			return true
		}
		s := strings.ToLower(filter.Search)
		return strings.Contains(strings.ToLower(usr.Name), s) ||
			strings.Contains(strings.ToLower(usr.Username), s) ||
			strings.Contains(strings.ToLower(usr.Email), s)
	}

	matches := make([]user.User, 0, len(users))
	for _, usr := range users {
		if !matchSearch(usr) || !matchRole(usr) {
			continue
		}
		if filter.IsActive != nil && usr.Active() != *filter.IsActive {
			continue
		}
		if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		matches = append(matches, usr)
	}
	return matches, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, existing := range repo.db.users {
		if strings.EqualFold(existing.Email, usr.Email) {
			usr.ID = id
			usr.CreatedAt = existing.CreatedAt
			repo.db.users[id] = &usr
			return usr, nil
		}
	}
	usr.ID = newID()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.users[id]; ok {
			delete(repo.db.users, id)
			n++
		}
	}
	return n, nil
}

// GetUserIDByEmail resolves webhook submitters.
func (repo *userRepository) GetUserIDByEmail(ctx context.Context, email string) (string, error) {
	usr, err := repo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		return "", err
	}
	return usr.ID, nil
}
