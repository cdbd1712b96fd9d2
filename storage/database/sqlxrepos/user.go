package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/user"
)

const userCols = `id, uuid, institution_id, name, username, email, language, timezone,
	active, password_hash, created_at, updated_at, last_login`

var userOrderings = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) EntityType() entity.Type { return entity.TypeUser }

func (repo *userRepository) ByModelID(ctx context.Context, modelID string) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, "SELECT "+userCols+" FROM \"user\" WHERE uuid = $1", modelID)
	if err != nil {
		return user.User{}, notFoundErr(err)
	}
	return repo.withRoles(ctx, usr)
}

func (repo *userRepository) AllMatching(ctx context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]user.User, error) {
	cond := new(conditions)
	if id := filter.InstitutionID(); id != 0 {
		cond.add("institution_id = $%d", id)
	}
	if active := filter.Active(); active != nil {
		cond.add("active = $%d", *active)
	}
	if name := filter.Name(); name != "" {
		cond.add("(name ILIKE $%[1]d OR username ILIKE $%[1]d OR email ILIKE $%[1]d)", "%"+name+"%")
	}
	if role := filter.GetString(user.FilterAttrRole); role != "" {
		cond.add("id IN (SELECT user_id FROM user_role WHERE role = $%d)", role)
	}

	q := "SELECT " + userCols + " FROM \"user\"" + cond.where() +
		orderClause(ords, userOrderings, "username ASC")
	users := make([]user.User, 0)
	if err := repo.db.SelectContext(ctx, &users, q, cond.args...); err != nil {
		return nil, err
	}
	return repo.allWithRoles(ctx, users)
}

func (repo *userRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]user.User, error) {
	uuids := make([]string, 0, len(keys))
	for _, key := range keys {
		uuids = append(uuids, key.ModelID)
	}
	users := make([]user.User, 0, len(uuids))
	err := repo.db.SelectContext(ctx, &users,
		"SELECT "+userCols+" FROM \"user\" WHERE uuid = ANY($1) ORDER BY username", pq.Array(uuids))
	if err != nil {
		return nil, err
	}
	return repo.allWithRoles(ctx, users)
}

func (repo *userRepository) CreateNew(ctx context.Context, m user.Mod) (user.User, error) {
	usr, err := user.NewUser(m)
	if err != nil {
		return user.User{}, errors.Wrap(err, "hashing password")
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.GetContext(ctx, &usr.ID,
		`INSERT INTO "user" (uuid, institution_id, name, username, email, language, timezone,
			active, password_hash, created_at, updated_at, last_login)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		usr.UUID, usr.InstitutionID, usr.Name, usr.Username, usr.Email, usr.Language, usr.Timezone,
		usr.Active, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	if err = saveRoles(ctx, tx, usr.ID, usr.Roles); err != nil {
		return user.User{}, err
	}
	return usr, errors.Wrap(tx.Commit(), "committing user")
}

func (repo *userRepository) Save(ctx context.Context, modelID string, m user.Mod) (user.User, error) {
	orig, err := repo.ByModelID(ctx, modelID)
	if err != nil {
		return user.User{}, err
	}
	usr := orig.Apply(m)

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`UPDATE "user" SET institution_id = $2, name = $3, username = $4, email = $5,
			language = $6, timezone = $7, updated_at = $8 WHERE id = $1`,
		usr.ID, usr.InstitutionID, usr.Name, usr.Username, usr.Email,
		usr.Language, usr.Timezone, usr.UpdatedAt)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM user_role WHERE user_id = $1`, usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "clearing roles")
	}
	if err = saveRoles(ctx, tx, usr.ID, usr.Roles); err != nil {
		return user.User{}, err
	}
	return usr, errors.Wrap(tx.Commit(), "committing user")
}

func (repo *userRepository) SetActive(ctx context.Context, modelID string, active bool) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr,
		"UPDATE \"user\" SET active = $2, updated_at = now() WHERE uuid = $1 RETURNING "+userCols,
		modelID, active)
	if err != nil {
		return user.User{}, notFoundErr(err)
	}
	return repo.withRoles(ctx, usr)
}

func (repo *userRepository) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr,
		"SELECT "+userCols+" FROM \"user\" WHERE username = $1 OR email = $1", usernameOrEmail)
	if err != nil {
		return user.User{}, notFoundErr(err)
	}
	return repo.withRoles(ctx, usr)
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excluded ...user.User) error {
	excludedUUIDs := make([]string, 0, len(excluded))
	for _, usr := range excluded {
		excludedUUIDs = append(excludedUUIDs, usr.UUID)
	}

	var matches []user.User
	err := repo.db.SelectContext(ctx, &matches,
		`SELECT id, uuid, username, email, password_hash FROM "user"
		 WHERE (username = $1 OR email = $2) AND NOT (uuid = ANY($3))`,
		username, email, pq.Array(excludedUUIDs))
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, match := range matches {
		if match.Username == username {
			return user.ErrUsernameExists
		}
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	usr.LastLogin = time.Now().UTC()
	_, err := repo.db.ExecContext(ctx,
		`UPDATE "user" SET last_login = $2 WHERE uuid = $1`, usr.UUID, usr.LastLogin)
	return usr, errors.Wrap(err, "setting last login")
}

func (repo *userRepository) SetPassword(ctx context.Context, modelID string, hash []byte) (user.User, error) {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE "user" SET password_hash = $2, updated_at = now() WHERE uuid = $1`, modelID, hash)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting password")
	}
	return repo.ByModelID(ctx, modelID)
}

func (repo *userRepository) Delete(ctx context.Context, modelID string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE uuid = $1`, modelID)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// withRoles loads the roles of a single user.
func (repo *userRepository) withRoles(ctx context.Context, usr user.User) (user.User, error) {
	users, err := repo.allWithRoles(ctx, []user.User{usr})
	if err != nil {
		return user.User{}, err
	}
	return users[0], nil
}

// allWithRoles attaches roles to a result set with a single query.
func (repo *userRepository) allWithRoles(ctx context.Context, users []user.User) ([]user.User, error) {
	if len(users) == 0 {
		return users, nil
	}
	ids := make([]int64, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}

	var rows []struct {
		UserID int64  `db:"user_id"`
		Role   string `db:"role"`
	}
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT user_id, role FROM user_role WHERE user_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "loading roles")
	}

	byID := make(map[int64][]string, len(users))
	for _, row := range rows {
		byID[row.UserID] = append(byID[row.UserID], row.Role)
	}
	for i := range users {
		users[i].Roles = byID[users[i].ID]
	}
	return users, nil
}

func saveRoles(ctx context.Context, tx *sqlx.Tx, userID int64, roles []string) error {
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_role (user_id, role) VALUES ($1, $2)`, userID, role); err != nil {
			return errors.Wrap(err, "inserting role")
		}
	}
	return nil
}
