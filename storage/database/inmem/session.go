package inmemdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/philosothon/philosothon/core/registration"
)

type sessionStore struct {
	db *sessionTable
}

var _ registration.SessionStore = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(db *DB) registration.SessionStore {
	return &sessionStore{db: db.session}
}

func (store *sessionStore) CreateSession(_ context.Context, sess registration.Session) (registration.Session, error) {
	store.db.Lock()
	defer store.db.Unlock()

	if _, ok := store.db.table[sess.ID]; ok {
		return registration.Session{}, errors.Errorf("session %q already exists", sess.ID)
	}
	sess.Version = 1
	stored := sess.Clone()
	store.db.table[sess.ID] = &stored
	return stored.Clone(), nil
}

func (store *sessionStore) GetSession(_ context.Context, id string) (registration.Session, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	if sess, ok := store.db.table[id]; ok {
		return sess.Clone(), nil
	}
	return registration.Session{}, registration.ErrSessionNotFound
}

func (store *sessionStore) FindSessionByIdentity(_ context.Context, key string) (registration.Session, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	var found *registration.Session
	for _, sess := range store.db.table {
		if sess.IdentityKey() != key {
			continue
		}
		if found == nil || sess.UpdatedAt.After(found.UpdatedAt) {
			found = sess
		}
	}
	if found == nil {
		return registration.Session{}, registration.ErrSessionNotFound
	}
	return found.Clone(), nil
}

func (store *sessionStore) UpdateSession(_ context.Context, sess registration.Session) (registration.Session, error) {
	store.db.Lock()
	defer store.db.Unlock()

	current, ok := store.db.table[sess.ID]
	if !ok {
		return registration.Session{}, registration.ErrSessionNotFound
	}
	if current.Version != sess.Version {
		return registration.Session{}, registration.ErrVersionConflict
	}
	sess.Version++
	stored := sess.Clone()
	store.db.table[sess.ID] = &stored
	return stored.Clone(), nil
}

func (store *sessionStore) DeleteSession(_ context.Context, id string) error {
	store.db.Lock()
	defer store.db.Unlock()
	delete(store.db.table, id)
	return nil
}
