package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/philosothon/philosothon/core"
	"github.com/philosothon/philosothon/core/user"
)

const (
	userColumns = `id, first_name, last_name, email, is_active, roles, password_hash, email_confirmed_at, created_at, updated_at, last_login`

	insertUserQuery = `INSERT INTO "user" (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM "user" WHERE id = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM "user" WHERE email = $1`

	emailExistsQuery = `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1 AND id <> ALL($2::uuid[]))`

	updateUserQuery = `UPDATE "user" SET first_name = $2, last_name = $3, email = $4, is_active = $5, roles = $6, ` +
		`password_hash = $7, email_confirmed_at = $8, updated_at = $9, last_login = $10 WHERE id = $1`

	deleteUsersQuery = `DELETE FROM "user" WHERE id = ANY($1::uuid[])`
)

var userOrderings = map[string]string{
	"created_at": "created_at",
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
	"last_login": "last_login",
}

type userRow struct {
	ID               string         `db:"id"`
	FirstName        string         `db:"first_name"`
	LastName         string         `db:"last_name"`
	Email            string         `db:"email"`
	IsActive         bool           `db:"is_active"`
	Roles            pq.StringArray `db:"roles"`
	PasswordHash     []byte         `db:"password_hash"`
	EmailConfirmedAt null.Time      `db:"email_confirmed_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	LastLogin        null.Time      `db:"last_login"`
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

func (row userRow) user() user.User {
	usr := user.User{
		ID:           row.ID,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Email:        row.Email,
		IsActive:     row.IsActive,
		Roles:        []string(row.Roles),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.EmailConfirmedAt.Valid {
		usr.EmailConfirmedAt = row.EmailConfirmedAt.Time.UTC()
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	_, err := repo.db.ExecContext(ctx, insertUserQuery,
		usr.ID, usr.FirstName, usr.LastName, usr.Email, usr.IsActive, pq.StringArray(usr.Roles), usr.PasswordHash,
		nullTime(usr.EmailConfirmedAt), usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), nullTime(usr.LastLogin))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, getUserByIDQuery, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, getUserByEmailQuery, email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by email")
	}
	return row.user(), nil
}

func (repo *userRepository) EmailExists(ctx context.Context, email string, excludedIDs ...string) (bool, error) {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, emailExistsQuery, email, pq.StringArray(excludedIDs)); err != nil {
		return false, errors.Wrap(err, "checking email uniqueness")
	}
	return exists, nil
}

// filterUsersQuery builds the SELECT for filter; placeholders are numbered in order of args.
func filterUsersQuery(filter user.QueryFilter, ords []core.DBOrdering) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// users with first name, last name or email matching the search keyword
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(first_name ILIKE %s OR last_name ILIKE %s OR email ILIKE %s)", p, p, p))
	}
	// users with any role that starts with any of the provided roles
	if len(filter.Roles) > 0 {
		patterns := make(pq.StringArray, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			patterns = append(patterns, role+"%")
		}
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ANY(%s::text[]))", arg(patterns)))
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = "+arg(*filter.IsActive))
	}
	if filter.Confirmed != nil {
		if *filter.Confirmed {
			where = append(where, "email_confirmed_at IS NOT NULL")
		} else {
			where = append(where, "email_confirmed_at IS NULL")
		}
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, "created_at >= "+arg(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, "created_at <= "+arg(filter.CreatedTo.UTC()))
	}

	q := `SELECT ` + userColumns + ` FROM "user"`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.OrderByClause(ords, userOrderings, core.DBOrdering{Field: "created_at"})
	return q, args
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ords ...core.DBOrdering) ([]user.User, error) {
	q, args := filterUsersQuery(filter, ords)
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.ExecContext(ctx, updateUserQuery,
		usr.ID, usr.FirstName, usr.LastName, usr.Email, usr.IsActive, pq.StringArray(usr.Roles), usr.PasswordHash,
		nullTime(usr.EmailConfirmedAt), usr.UpdatedAt.UTC(), nullTime(usr.LastLogin))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, deleteUsersQuery, pq.StringArray(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
