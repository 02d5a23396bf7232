package firebasestore

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philosothon/philosothon/core/registration"
)

func TestEncodeKey(t *testing.T) {
	for _, id := range []string{"tg:42", "ada.lovelace@test.test", "a/b#c$d[e]"} {
		key := encodeKey(id)
		assert.False(t, strings.ContainsAny(key, ".#$[]/"), key)

		decoded, err := base64.RawURLEncoding.DecodeString(key)
		require.NoError(t, err)
		assert.Equal(t, id, string(decoded))
	}
}

func TestSessionRecord(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	sess := registration.NewSession("tg:42", &registration.Identity{UserID: "u1", Email: "ada@test.test", Confirmed: true})
	sess.Stage = registration.StageQuestioning
	sess.QuestionIndex = 2
	sess.Answers["year"] = registration.NumberAnswer(3)
	sess.Version = 7
	sess.CreatedAt, sess.UpdatedAt = now, now.Add(time.Minute)

	rec, err := newSessionRecord(sess)
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.Identity)
	assert.Equal(t, int64(7), rec.Version)

	got, err := rec.session()
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	_, err = (&sessionRecord{State: "{"}).session()
	assert.Error(t, err)
}

func TestLatestRecord(t *testing.T) {
	assert.Nil(t, latestRecord(nil))

	older := &sessionRecord{State: "{}", UpdatedAt: 10}
	newer := &sessionRecord{State: "{}", UpdatedAt: 20}
	assert.Same(t, newer, latestRecord(map[string]*sessionRecord{"a": older, "b": newer, "c": nil}))
}

func TestCheckVersion(t *testing.T) {
	assert.Equal(t, registration.ErrSessionNotFound, checkVersion(nil, 1))
	assert.Equal(t, registration.ErrVersionConflict, checkVersion(&sessionRecord{Version: 2}, 1))
	assert.NoError(t, checkVersion(&sessionRecord{Version: 2}, 2))
}
