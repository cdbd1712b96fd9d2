package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) EntityType() entity.Type { return entity.TypeUser }

// byUUID must be called with the read lock held.
func (repo *userRepository) byUUID(uuid string) (user.User, bool) {
	for _, usr := range repo.db.users {
		if usr.UUID == uuid {
			return usr, true
		}
	}
	return user.User{}, false
}

func (repo *userRepository) ByModelID(_ context.Context, modelID string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if usr, ok := repo.byUUID(modelID); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) AllMatching(_ context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if id := filter.InstitutionID(); id != 0 && usr.InstitutionID != id {
			continue
		}
		if active := filter.Active(); active != nil && usr.Active != *active {
			continue
		}
		if name := filter.Name(); name != "" &&
			!containsFold(usr.Name, name) && !containsFold(usr.Username, name) && !containsFold(usr.Email, name) {
			continue
		}
		if role := filter.GetString(user.FilterAttrRole); role != "" && !usr.HasRole(role) {
			continue
		}
		users = append(users, usr)
	}

	asc := true
	for _, ord := range ords {
		if ord.Field == "username" {
			asc = ord.Ascending
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if asc {
			return users[i].Username < users[j].Username
		}
		return users[i].Username > users[j].Username
	})
	return users, nil
}

func (repo *userRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]user.User, error) {
	users := make([]user.User, 0, len(keys))
	for _, key := range keys {
		if usr, err := repo.ByModelID(ctx, key.ModelID); err == nil {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *userRepository) CreateNew(_ context.Context, m user.Mod) (user.User, error) {
	usr, err := user.NewUser(m)
	if err != nil {
		return user.User{}, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = repo.db.nextPK()
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) Save(ctx context.Context, modelID string, m user.Mod) (user.User, error) {
	orig, err := repo.ByModelID(ctx, modelID)
	if err != nil {
		return user.User{}, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr := orig.Apply(m)
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) SetActive(_ context.Context, modelID string, active bool) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.byUUID(modelID)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Active = active
	usr.UpdatedAt = time.Now().UTC()
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetByUsernameOrEmail(_ context.Context, usernameOrEmail string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, usr := range repo.db.users {
		if usr.Username == usernameOrEmail || usr.Email == usernameOrEmail {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excluded ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
outer:
	for _, usr := range repo.db.users {
		if usr.Username != username && usr.Email != email {
			continue
		}
		for _, excl := range excluded {
			if excl.UUID == usr.UUID {
				continue outer
			}
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored, ok := repo.byUUID(usr.UUID)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	stored.LastLogin = time.Now().UTC()
	repo.db.users[stored.ID] = stored
	return stored, nil
}

func (repo *userRepository) SetPassword(_ context.Context, modelID string, hash []byte) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.byUUID(modelID)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.PasswordHash = hash
	usr.UpdatedAt = time.Now().UTC()
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) Delete(_ context.Context, modelID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.byUUID(modelID)
	if !ok {
		return user.ErrNotFound
	}
	delete(repo.db.users, usr.ID)
	return nil
}
