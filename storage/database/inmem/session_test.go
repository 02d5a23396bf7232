package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philosothon/philosothon/core/registration"
)

func TestSessionStore_VersionCheck(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(Open())

	sess, err := store.CreateSession(ctx, registration.NewSession("s1", nil))
	require.NoError(t, err)
	assert.EqualValues(t, 1, sess.Version)

	_, err = store.CreateSession(ctx, registration.NewSession("s1", nil))
	assert.Error(t, err)

	first := sess
	first.Stage = registration.StageEarlyAuth
	saved, err := store.UpdateSession(ctx, first)
	require.NoError(t, err)
	assert.EqualValues(t, 2, saved.Version)

	// a writer holding the old version loses
	stale := sess
	stale.Stage = registration.StageQuestioning
	_, err = store.UpdateSession(ctx, stale)
	assert.ErrorIs(t, err, registration.ErrVersionConflict)

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, registration.StageEarlyAuth, got.Stage)

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	_, err = store.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, registration.ErrSessionNotFound)

	_, err = store.UpdateSession(ctx, saved)
	assert.ErrorIs(t, err, registration.ErrSessionNotFound)
}

func TestSessionStore_FindSessionByIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(Open())

	now := time.Now()
	older := registration.NewSession("old", &registration.Identity{UserID: "u1", Email: "a@test.test", Confirmed: true})
	older.UpdatedAt = now.Add(-time.Hour)
	newer := registration.NewSession("new", &registration.Identity{UserID: "u1", Email: "a@test.test", Confirmed: true})
	newer.UpdatedAt = now
	pending := registration.NewSession("pending", &registration.Identity{Email: "b@test.test"})

	for _, s := range []registration.Session{older, newer, pending} {
		_, err := store.CreateSession(ctx, s)
		require.NoError(t, err)
	}

	got, err := store.FindSessionByIdentity(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)

	got, err = store.FindSessionByIdentity(ctx, "b@test.test")
	require.NoError(t, err)
	assert.Equal(t, "pending", got.ID)

	_, err = store.FindSessionByIdentity(ctx, "nobody")
	assert.ErrorIs(t, err, registration.ErrSessionNotFound)
}

func TestSessionStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(Open())

	sess := registration.NewSession("s1", nil)
	sess.Answers["program"] = registration.TextAnswer("Philosophy")
	_, err := store.CreateSession(ctx, sess)
	require.NoError(t, err)

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	got.Answers["program"] = registration.TextAnswer("Physics")

	again, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Philosophy", again.Answers["program"].Text)
}
