package firebasestore

import (
	"context"
	"time"

	"firebase.google.com/go/v4/db"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/philosothon/philosothon/core/registration"
)

// sessionRecord is the stored form of a session; the state is the JSON-encoded session.
type sessionRecord struct {
	Identity  string `json:"identity,omitempty"`
	State     string `json:"state"`
	Version   int64  `json:"version"`
	CreatedAt int64  `json:"created_at"` // unix ms
	UpdatedAt int64  `json:"updated_at"` // unix ms
}

func newSessionRecord(sess registration.Session) (*sessionRecord, error) {
	state, err := json.Marshal(sess)
	if err != nil {
		return nil, errors.Wrap(err, "encoding session state")
	}
	return &sessionRecord{
		Identity:  sess.IdentityKey(),
		State:     string(state),
		Version:   sess.Version,
		CreatedAt: sess.CreatedAt.UnixMilli(),
		UpdatedAt: sess.UpdatedAt.UnixMilli(),
	}, nil
}

func (rec *sessionRecord) session() (registration.Session, error) {
	var sess registration.Session
	if err := json.Unmarshal([]byte(rec.State), &sess); err != nil {
		return registration.Session{}, errors.Wrap(err, "decoding session state")
	}
	if sess.Answers == nil {
		sess.Answers = make(registration.AnswerSet)
	}
	sess.Version = rec.Version
	sess.CreatedAt = time.UnixMilli(rec.CreatedAt).UTC()
	sess.UpdatedAt = time.UnixMilli(rec.UpdatedAt).UTC()
	return sess, nil
}

type sessionStore struct {
	ref *db.Ref
}

var _ registration.SessionStore = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(client *Client) registration.SessionStore {
	return &sessionStore{ref: client.db.NewRef(sessionsPath)}
}

func (store *sessionStore) CreateSession(ctx context.Context, sess registration.Session) (registration.Session, error) {
	sess.Version = 1
	rec, err := newSessionRecord(sess)
	if err != nil {
		return registration.Session{}, err
	}
	err = store.ref.Child(encodeKey(sess.ID)).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current *sessionRecord
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		if current != nil {
			return nil, errors.Errorf("session %q already exists", sess.ID)
		}
		return rec, nil
	})
	if err != nil {
		return registration.Session{}, errors.Wrap(err, "creating session")
	}
	return sess, nil
}

func (store *sessionStore) GetSession(ctx context.Context, id string) (registration.Session, error) {
	var rec *sessionRecord
	if err := store.ref.Child(encodeKey(id)).Get(ctx, &rec); err != nil {
		return registration.Session{}, errors.Wrap(err, "getting session")
	}
	if rec == nil {
		return registration.Session{}, registration.ErrSessionNotFound
	}
	return rec.session()
}

func (store *sessionStore) FindSessionByIdentity(ctx context.Context, key string) (registration.Session, error) {
	var recs map[string]*sessionRecord
	if err := store.ref.OrderByChild("identity").EqualTo(key).Get(ctx, &recs); err != nil {
		return registration.Session{}, errors.Wrap(err, "querying sessions")
	}
	latest := latestRecord(recs)
	if latest == nil {
		return registration.Session{}, registration.ErrSessionNotFound
	}
	return latest.session()
}

func latestRecord(recs map[string]*sessionRecord) *sessionRecord {
	var latest *sessionRecord
	for _, rec := range recs {
		if rec != nil && (latest == nil || rec.UpdatedAt > latest.UpdatedAt) {
			latest = rec
		}
	}
	return latest
}

// UpdateSession runs the version check inside a database transaction.
func (store *sessionStore) UpdateSession(ctx context.Context, sess registration.Session) (registration.Session, error) {
	expected := sess.Version
	sess.Version++
	rec, err := newSessionRecord(sess)
	if err != nil {
		return registration.Session{}, err
	}

	err = store.ref.Child(encodeKey(sess.ID)).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current *sessionRecord
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		return rec, checkVersion(current, expected)
	})
	if err != nil {
		if errors.Is(err, registration.ErrSessionNotFound) || errors.Is(err, registration.ErrVersionConflict) {
			return registration.Session{}, err
		}
		return registration.Session{}, errors.Wrap(err, "updating session")
	}
	return sess, nil
}

func checkVersion(current *sessionRecord, expected int64) error {
	if current == nil {
		return registration.ErrSessionNotFound
	}
	if current.Version != expected {
		return registration.ErrVersionConflict
	}
	return nil
}

func (store *sessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := store.ref.Child(encodeKey(id)).Delete(ctx); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}
