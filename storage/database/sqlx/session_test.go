package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philosothon/philosothon/core/registration"
)

func TestSessionStore(t *testing.T) {
	db, mock := newMock(t)
	store := NewSessionStore(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	sess := registration.NewSession("tg:42", &registration.Identity{UserID: "u1", Email: "ada@test.test", Confirmed: true})
	sess.Answers["program"] = registration.TextAnswer("Philosophy")
	sess.CreatedAt, sess.UpdatedAt = now, now

	t.Run("create", func(t *testing.T) {
		mock.ExpectExec(quote(insertSessionQuery)).
			WithArgs("tg:42", "u1", sqlmock.AnyArg(), int64(1), now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		created, err := store.CreateSession(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.Version)
	})

	t.Run("get", func(t *testing.T) {
		stale := sess
		stale.Version = 1
		state, err := json.Marshal(stale)
		require.NoError(t, err)

		mock.ExpectQuery(quote(getSessionQuery)).
			WithArgs("tg:42").
			WillReturnRows(sqlmock.NewRows([]string{"state", "version", "created_at", "updated_at"}).
				AddRow(state, int64(5), now, now.Add(time.Minute)))
		got, err := store.GetSession(ctx, "tg:42")
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Version, "the version column wins")
		assert.Equal(t, now.Add(time.Minute), got.UpdatedAt)
		assert.Equal(t, "Philosophy", got.Answers["program"].Text)
		assert.Equal(t, "u1", got.IdentityKey())
	})

	t.Run("get missing", func(t *testing.T) {
		mock.ExpectQuery(quote(getSessionByIdentityQuery)).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"state", "version", "created_at", "updated_at"}))
		_, err := store.FindSessionByIdentity(ctx, "nobody")
		assert.Equal(t, registration.ErrSessionNotFound, err)
	})

	t.Run("update", func(t *testing.T) {
		current := sess
		current.Version = 3
		mock.ExpectExec(quote(updateSessionQuery)).
			WithArgs("tg:42", int64(3), "u1", sqlmock.AnyArg(), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		updated, err := store.UpdateSession(ctx, current)
		require.NoError(t, err)
		assert.Equal(t, int64(4), updated.Version)
	})

	t.Run("update conflict", func(t *testing.T) {
		mock.ExpectExec(quote(updateSessionQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(quote(sessionExistsQuery)).
			WithArgs("tg:42").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		_, err := store.UpdateSession(ctx, sess)
		assert.Equal(t, registration.ErrVersionConflict, err)
	})

	t.Run("update missing", func(t *testing.T) {
		mock.ExpectExec(quote(updateSessionQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(quote(sessionExistsQuery)).
			WithArgs("tg:42").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		_, err := store.UpdateSession(ctx, sess)
		assert.Equal(t, registration.ErrSessionNotFound, err)
	})

	t.Run("anonymous sessions have no identity", func(t *testing.T) {
		anon := registration.NewSession("web:1", nil)
		mock.ExpectExec(quote(insertSessionQuery)).
			WithArgs("web:1", nil, sqlmock.AnyArg(), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		_, err := store.CreateSession(ctx, anon)
		assert.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectExec(quote(deleteSessionQuery)).WithArgs("tg:42").WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, store.DeleteSession(ctx, "tg:42"))
	})
}
