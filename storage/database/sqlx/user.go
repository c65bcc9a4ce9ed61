package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core"
	"github.com/jkazadi/kampus/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	AvatarURL    null.String    `db:"avatar_url"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    time.Time      `db:"last_login"`
}

func (r userRow) toDomain() user.User {
	isActive := r.IsActive
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     &isActive,
		Roles:        r.Roles,
		AvatarURL:    r.AvatarURL,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin,
	}
}

var userCols = []string{
	"id", "name", "username", "email", "is_active", "roles",
	"avatar_url", "password_hash", "created_at", "updated_at", "last_login",
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	check := func(col, val string, errExists error) error {
		qb := psql.Select("COUNT(*)").From("users").Where(sq.Eq{col: val})
		if len(exclIDs) > 0 {
			qb = qb.Where(sq.NotEq{"id": exclIDs})
		}
		query, args, err := qb.ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		var count int
		if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
			return errors.Wrap(err, "checking uniqueness")
		}
		if count > 0 {
			return errExists
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert("users").
		Columns("name", "username", "email", "is_active", "roles", "avatar_url", "password_hash", "created_at", "updated_at", "last_login").
		Values(usr.Name, usr.Username, usr.Email, usr.Active(), pq.StringArray(usr.Roles), usr.AvatarURL,
			usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin).
		Suffix("RETURNING " + sqlxColumns(userCols)).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return row.toDomain(), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	qb := psql.Select(userCols...).From("users")
	switch {
	case filter.ID != "":
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		qb = qb.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		qb = qb.Where("LOWER(email) = LOWER(?)", filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		or := make(sq.Or, 0, 2*len(filter.UsernameOrEmail))
		for _, val := range filter.UsernameOrEmail {
			or = append(or, sq.Expr("LOWER(username) = LOWER(?)", val), sq.Expr("LOWER(email) = LOWER(?)", val))
		}
		qb = qb.Where(or)
	default:
		return user.User{}, user.ErrNotFound
	}

	query, args, err := qb.Limit(1).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toDomain(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	qb := psql.Select(userCols...).From("users")
	if filter != nil {
		if filter.Search != "" {
			search := "%" + filter.Search + "%"
			qb = qb.Where(sq.Or{
				sq.Expr("name ILIKE ?", search),
				sq.Expr("username ILIKE ?", search),
				sq.Expr("email ILIKE ?", search),
			})
		}
		if len(filter.Roles) > 0 {
			qb = qb.Where("roles && ?", pq.StringArray(filter.Roles))
		}
		if filter.IsActive != nil {
			qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom})
		}
		if !filter.CreatedTo.IsZero() {
			qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo})
		}
	}
	if len(ordering) > 0 {
		for _, ord := range ordering {
			qb = qb.OrderBy(ord.String())
		}
	} else {
		qb = qb.OrderBy("created_at DESC")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []userRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Update("users").
		Set("name", usr.Name).
		Set("username", usr.Username).
		Set("email", usr.Email).
		Set("is_active", usr.Active()).
		Set("roles", pq.StringArray(usr.Roles)).
		Set("avatar_url", usr.AvatarURL).
		Set("password_hash", usr.PasswordHash).
		Set("updated_at", usr.UpdatedAt).
		Set("last_login", usr.LastLogin).
		Where(sq.Eq{"id": usr.ID}).
		Suffix("RETURNING " + sqlxColumns(userCols)).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return row.toDomain(), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert("users").
		Columns("name", "username", "email", "is_active", "roles", "avatar_url", "password_hash", "created_at", "updated_at", "last_login").
		Values(usr.Name, usr.Username, usr.Email, usr.Active(), pq.StringArray(usr.Roles), usr.AvatarURL,
			usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin).
		Suffix("ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, roles = EXCLUDED.roles, is_active = EXCLUDED.is_active, "+
			"password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at").
		Suffix("RETURNING " + sqlxColumns(userCols)).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "upserting user")
	}
	return row.toDomain(), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := psql.Delete("users").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting users")
}

// GetUserIDByEmail resolves webhook submitters.
func (repo userRepository) GetUserIDByEmail(ctx context.Context, email string) (string, error) {
	usr, err := repo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		return "", err
	}
	return usr.ID, nil
}
