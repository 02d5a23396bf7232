package sqlxrepos

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/philosothon/philosothon/core/registration"
)

const (
	insertSessionQuery = `INSERT INTO wizard_session (id, identity, state, version, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`

	getSessionQuery           = `SELECT state, version, created_at, updated_at FROM wizard_session WHERE id = $1`
	getSessionByIdentityQuery = `SELECT state, version, created_at, updated_at FROM wizard_session WHERE identity = $1 ORDER BY updated_at DESC LIMIT 1`
	sessionExistsQuery        = `SELECT EXISTS (SELECT 1 FROM wizard_session WHERE id = $1)`
	deleteSessionQuery        = `DELETE FROM wizard_session WHERE id = $1`

	updateSessionQuery = `UPDATE wizard_session SET identity = $3, state = $4, version = version + 1, updated_at = $5 WHERE id = $1 AND version = $2`
)

type sessionRow struct {
	State     []byte    `db:"state"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row sessionRow) session() (registration.Session, error) {
	var sess registration.Session
	if err := json.Unmarshal(row.State, &sess); err != nil {
		return registration.Session{}, errors.Wrap(err, "decoding session state")
	}
	if sess.Answers == nil {
		sess.Answers = make(registration.AnswerSet)
	}
	// the columns are authoritative
	sess.Version = row.Version
	sess.CreatedAt = row.CreatedAt.UTC()
	sess.UpdatedAt = row.UpdatedAt.UTC()
	return sess, nil
}

type sessionStore struct {
	db *sqlx.DB
}

var _ registration.SessionStore = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(db *sqlx.DB) registration.SessionStore {
	return &sessionStore{db: db}
}

func identityColumn(sess registration.Session) null.String {
	key := sess.IdentityKey()
	return null.NewString(key, key != "")
}

func (store *sessionStore) CreateSession(ctx context.Context, sess registration.Session) (registration.Session, error) {
	sess.Version = 1
	state, err := json.Marshal(sess)
	if err != nil {
		return registration.Session{}, errors.Wrap(err, "encoding session state")
	}
	_, err = store.db.ExecContext(ctx, insertSessionQuery,
		sess.ID, identityColumn(sess), string(state), sess.Version, sess.CreatedAt.UTC(), sess.UpdatedAt.UTC())
	if err != nil {
		return registration.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (store *sessionStore) get(ctx context.Context, q string, arg interface{}) (registration.Session, error) {
	var row sessionRow
	if err := store.db.GetContext(ctx, &row, q, arg); err != nil {
		return registration.Session{}, trapNoRowsErr(err, registration.ErrSessionNotFound, "finding session")
	}
	return row.session()
}

func (store *sessionStore) GetSession(ctx context.Context, id string) (registration.Session, error) {
	return store.get(ctx, getSessionQuery, id)
}

func (store *sessionStore) FindSessionByIdentity(ctx context.Context, key string) (registration.Session, error) {
	return store.get(ctx, getSessionByIdentityQuery, key)
}

func (store *sessionStore) UpdateSession(ctx context.Context, sess registration.Session) (registration.Session, error) {
	expected := sess.Version
	sess.Version++
	state, err := json.Marshal(sess)
	if err != nil {
		return registration.Session{}, errors.Wrap(err, "encoding session state")
	}

	res, err := store.db.ExecContext(ctx, updateSessionQuery,
		sess.ID, expected, identityColumn(sess), string(state), sess.UpdatedAt.UTC())
	if err != nil {
		return registration.Session{}, errors.Wrap(err, "updating session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return registration.Session{}, errors.Wrap(err, "updating session")
	}
	if n > 0 {
		return sess, nil
	}

	// nothing updated: either the session is gone or its version moved on
	var exists bool
	if err = store.db.GetContext(ctx, &exists, sessionExistsQuery, sess.ID); err != nil {
		return registration.Session{}, errors.Wrap(err, "checking session")
	}
	if !exists {
		return registration.Session{}, registration.ErrSessionNotFound
	}
	return registration.Session{}, registration.ErrVersionConflict
}

func (store *sessionStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := store.db.ExecContext(ctx, deleteSessionQuery, id); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}
