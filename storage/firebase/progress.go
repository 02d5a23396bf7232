package firebasestore

import (
	"context"
	"time"

	"firebase.google.com/go/v4/db"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/philosothon/philosothon/core/registration"
)

type progressRecord struct {
	Answers   string `json:"answers"`
	UpdatedAt int64  `json:"updated_at"` // unix ms
}

// nodes reads and writes JSON values under child keys of one database path.
type nodes interface {
	set(ctx context.Context, key string, v interface{}) error
	get(ctx context.Context, key string, v interface{}) error
	delete(ctx context.Context, key string) error
}

type refNodes struct {
	ref *db.Ref
}

func (n refNodes) set(ctx context.Context, key string, v interface{}) error {
	return n.ref.Child(encodeKey(key)).Set(ctx, v)
}

func (n refNodes) get(ctx context.Context, key string, v interface{}) error {
	return n.ref.Child(encodeKey(key)).Get(ctx, v)
}

func (n refNodes) delete(ctx context.Context, key string) error {
	return n.ref.Child(encodeKey(key)).Delete(ctx)
}

type progressStore struct {
	nodes nodes
}

var _ registration.ProgressStore = (*progressStore)(nil) // interface compliance check

func NewProgressStore(client *Client) registration.ProgressStore {
	return &progressStore{nodes: refNodes{ref: client.db.NewRef(progressPath)}}
}

func (store *progressStore) SaveProgress(ctx context.Context, key string, answers registration.AnswerSet) error {
	if answers == nil {
		answers = make(registration.AnswerSet)
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return errors.Wrap(err, "encoding answers")
	}
	rec := progressRecord{Answers: string(data), UpdatedAt: time.Now().UnixMilli()}
	if err = store.nodes.set(ctx, key, rec); err != nil {
		return errors.Wrap(err, "saving progress")
	}
	return nil
}

func (store *progressStore) LoadProgress(ctx context.Context, key string) (registration.AnswerSet, bool, error) {
	var rec *progressRecord
	if err := store.nodes.get(ctx, key, &rec); err != nil {
		return nil, false, errors.Wrap(err, "loading progress")
	}
	if rec == nil {
		return nil, false, nil
	}
	var answers registration.AnswerSet
	if err := json.Unmarshal([]byte(rec.Answers), &answers); err != nil {
		return nil, false, errors.Wrap(err, "decoding answers")
	}
	return answers, true, nil
}

func (store *progressStore) ClearProgress(ctx context.Context, key string) error {
	if err := store.nodes.delete(ctx, key); err != nil {
		return errors.Wrap(err, "clearing progress")
	}
	return nil
}
