package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/philosothon/philosothon/core/registration"
)

const (
	upsertProgressQuery = `INSERT INTO registration_progress (identity_key, answers, updated_at) VALUES ($1, $2, $3) ` +
		`ON CONFLICT (identity_key) DO UPDATE SET answers = EXCLUDED.answers, updated_at = EXCLUDED.updated_at`
	getProgressQuery    = `SELECT answers FROM registration_progress WHERE identity_key = $1`
	deleteProgressQuery = `DELETE FROM registration_progress WHERE identity_key = $1`
)

type progressStore struct {
	db *sqlx.DB
}

var _ registration.ProgressStore = (*progressStore)(nil) // interface compliance check

func NewProgressStore(db *sqlx.DB) registration.ProgressStore {
	return &progressStore{db: db}
}

func (store *progressStore) SaveProgress(ctx context.Context, key string, answers registration.AnswerSet) error {
	if answers == nil {
		answers = make(registration.AnswerSet)
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return errors.Wrap(err, "encoding answers")
	}
	if _, err = store.db.ExecContext(ctx, upsertProgressQuery, key, string(data), time.Now().UTC()); err != nil {
		return errors.Wrap(err, "saving progress")
	}
	return nil
}

func (store *progressStore) LoadProgress(ctx context.Context, key string) (registration.AnswerSet, bool, error) {
	var data []byte
	if err := store.db.GetContext(ctx, &data, getProgressQuery, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "loading progress")
	}
	var answers registration.AnswerSet
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, false, errors.Wrap(err, "decoding answers")
	}
	return answers, true, nil
}

func (store *progressStore) ClearProgress(ctx context.Context, key string) error {
	if _, err := store.db.ExecContext(ctx, deleteProgressQuery, key); err != nil {
		return errors.Wrap(err, "clearing progress")
	}
	return nil
}
