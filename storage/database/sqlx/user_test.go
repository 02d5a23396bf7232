package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philosothon/philosothon/core"
	"github.com/philosothon/philosothon/core/user"
)

const adaID = "7b0c9c1e-6a55-4e8f-9a57-0d3c4b1a2f10"

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "there were unfulfilled expectations")
		_ = db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

func quote(q string) string { return regexp.QuoteMeta(q) }

var userRowColumns = []string{
	"id", "first_name", "last_name", "email", "is_active", "roles", "password_hash",
	"email_confirmed_at", "created_at", "updated_at", "last_login",
}

func TestUserRepository_CreateUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()
	usr := user.User{
		ID:           adaID,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@test.test",
		IsActive:     true,
		Roles:        []string{user.RoleParticipant},
		PasswordHash: []byte("hash"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(quote(insertUserQuery)).
		WithArgs(adaID, "Ada", "Lovelace", "ada@test.test", true, pq.StringArray{user.RoleParticipant}, []byte("hash"),
			nil, sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	got, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	assert.Equal(t, usr, got)

	mock.ExpectExec(quote(insertUserQuery)).WillReturnError(&pq.Error{Code: pqUniqueViolation})
	_, err = repo.CreateUser(context.Background(), usr)
	assert.Equal(t, user.ErrEmailExists, err)
}

func TestUserRepository_Get(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	confirmed := created.Add(time.Hour)

	_, err := repo.GetUserByID(ctx, "not-a-uuid")
	assert.Equal(t, user.ErrNotFound, err)

	mock.ExpectQuery(quote(getUserByIDQuery)).
		WithArgs(adaID).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			adaID, "Ada", "Lovelace", "ada@test.test", true, []byte("{admin:,participant:}"), []byte("hash"),
			confirmed, created, created, nil,
		))
	usr, err := repo.GetUserByID(ctx, adaID)
	require.NoError(t, err)
	assert.Equal(t, user.User{
		ID:               adaID,
		FirstName:        "Ada",
		LastName:         "Lovelace",
		Email:            "ada@test.test",
		IsActive:         true,
		Roles:            []string{user.RoleAdmin, user.RoleParticipant},
		PasswordHash:     []byte("hash"),
		EmailConfirmedAt: confirmed,
		CreatedAt:        created,
		UpdatedAt:        created,
	}, usr)
	assert.True(t, usr.LastLogin.IsZero())

	mock.ExpectQuery(quote(getUserByEmailQuery)).
		WithArgs("nobody@test.test").
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	_, err = repo.GetUserByEmail(ctx, "nobody@test.test")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUserRepository_EmailExists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(quote(emailExistsQuery)).
		WithArgs("ada@test.test", pq.StringArray{adaID}).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := repo.EmailExists(context.Background(), "ada@test.test", adaID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFilterUsersQuery(t *testing.T) {
	active, confirmed := true, false
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	base := `SELECT ` + userColumns + ` FROM "user"`

	tests := []struct {
		name     string
		filter   user.QueryFilter
		ords     []core.DBOrdering
		wantQ    string
		wantArgs []interface{}
	}{
		{
			name:  "empty",
			wantQ: base + " ORDER BY created_at DESC",
		},
		{
			name:     "search and roles",
			filter:   user.QueryFilter{Search: "ada", Roles: []string{"admin:"}},
			ords:     []core.DBOrdering{{Field: "email", Ascending: true}, {Field: "password_hash"}},
			wantQ:    base + ` WHERE (first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1) AND EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ANY($2::text[])) ORDER BY email ASC`,
			wantArgs: []interface{}{"%ada%", pq.StringArray{"admin:%"}},
		},
		{
			name:     "flags and range",
			filter:   user.QueryFilter{IsActive: &active, Confirmed: &confirmed, CreatedFrom: from},
			wantQ:    base + ` WHERE is_active = $1 AND email_confirmed_at IS NULL AND created_at >= $2 ORDER BY created_at DESC`,
			wantArgs: []interface{}{true, from},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := filterUsersQuery(tt.filter, tt.ords)
			assert.Equal(t, tt.wantQ, q)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestUserRepository_FilterUsers(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(quote(`SELECT ` + userColumns + ` FROM "user" WHERE (first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1) ORDER BY created_at DESC`)).
		WithArgs("%lovelace%").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(adaID, "Ada", "Lovelace", "ada@test.test", true, []byte("{participant:}"), []byte("h"), nil, now, now, now).
			AddRow("0d5b1c1e-6a55-4e8f-9a57-0d3c4b1a2f11", "Byron", "Lovelace", "byron@test.test", false, []byte("{}"), []byte("h"), nil, now, now, nil))

	users, err := repo.FilterUsers(context.Background(), user.QueryFilter{Search: "lovelace"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ada@test.test", users[0].Email)
	assert.False(t, users[1].IsActive)
	assert.Empty(t, users[1].Roles)
}

func TestUserRepository_UpdateDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	usr := user.User{ID: adaID, FirstName: "Ada", LastName: "King", Email: "ada@test.test", IsActive: true, UpdatedAt: time.Now()}

	mock.ExpectExec(quote(updateUserQuery)).
		WithArgs(adaID, "Ada", "King", "ada@test.test", true, pq.StringArray(nil), []byte(nil), nil, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	got, err := repo.UpdateUser(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, "King", got.LastName)

	mock.ExpectExec(quote(updateUserQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = repo.UpdateUser(ctx, usr)
	assert.Equal(t, user.ErrNotFound, err)

	mock.ExpectExec(quote(updateUserQuery)).WillReturnError(&pq.Error{Code: pqUniqueViolation})
	_, err = repo.UpdateUser(ctx, usr)
	assert.Equal(t, user.ErrEmailExists, err)

	mock.ExpectExec(quote(deleteUsersQuery)).
		WithArgs(pq.StringArray{adaID}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.DeleteUsersByID(ctx, adaID))

	// nothing to delete, no query
	assert.NoError(t, repo.DeleteUsersByID(ctx))
}
