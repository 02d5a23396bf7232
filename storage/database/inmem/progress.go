package inmemdb

import (
	"context"

	"github.com/philosothon/philosothon/core/registration"
)

type progressStore struct {
	db *progressTable
}

var _ registration.ProgressStore = (*progressStore)(nil) // interface compliance check

func NewProgressStore(db *DB) registration.ProgressStore {
	return &progressStore{db: db.progress}
}

func (store *progressStore) SaveProgress(_ context.Context, key string, answers registration.AnswerSet) error {
	store.db.Lock()
	defer store.db.Unlock()
	store.db.table[key] = answers.Clone()
	return nil
}

func (store *progressStore) LoadProgress(_ context.Context, key string) (registration.AnswerSet, bool, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	answers, ok := store.db.table[key]
	if !ok {
		return nil, false, nil
	}
	return answers.Clone(), true, nil
}

func (store *progressStore) ClearProgress(_ context.Context, key string) error {
	store.db.Lock()
	defer store.db.Unlock()
	delete(store.db.table, key)
	return nil
}
