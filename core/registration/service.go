package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/philosothon/philosothon/core"
)

// Service runs wizard sessions against a SessionStore: every input loads the session,
// applies one transition and saves it back under optimistic version control.
type Service struct {
	wizard   *Wizard
	sessions SessionStore
	regs     Repository
	logger   core.Logger
}

func NewService(wizard *Wizard, sessions SessionStore, regs Repository, logger core.Logger) *Service {
	return &Service{
		wizard:   wizard,
		sessions: sessions,
		regs:     regs,
		logger:   logger,
	}
}

func (svc *Service) Catalog() *Catalog { return svc.wizard.Catalog() }

func (svc *Service) Wizard() *Wizard { return svc.wizard }

// keys lists every key a session of this identity may be stored under:
// the user ID once confirmed, the email while confirmation is pending.
func (i Identity) keys() []string {
	var keys []string
	if i.UserID != "" {
		keys = append(keys, i.UserID)
	}
	if i.Email != "" && i.Email != i.UserID {
		keys = append(keys, i.Email)
	}
	return keys
}

// Start creates a session. A random ID is used when id is empty.
// When ident already has a session, under its user ID or its email, that session is
// returned instead of a new one.
func (svc *Service) Start(ctx context.Context, id string, ident *Identity) (Session, Reply, error) {
	if ident != nil {
		for _, key := range ident.keys() {
			sess, err := svc.sessions.FindSessionByIdentity(ctx, key)
			switch {
			case err == nil:
				return sess, svc.wizard.Status(sess), nil
			case !errors.Is(err, ErrSessionNotFound):
				return Session{}, Reply{}, pkgerrors.Wrap(err, "finding session by identity")
			}
		}
	}

	if id == "" {
		id = uuid.NewString()
	}
	sess := NewSession(id, ident)
	now := time.Now().UTC()
	sess.CreatedAt, sess.UpdatedAt = now, now

	sess, err := svc.sessions.CreateSession(ctx, sess)
	if err != nil {
		return Session{}, Reply{}, pkgerrors.Wrap(err, "creating session")
	}
	return sess, svc.wizard.Status(sess), nil
}

// Get returns the session and a description of its current step.
func (svc *Service) Get(ctx context.Context, id string) (Session, Reply, error) {
	sess, err := svc.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, Reply{}, err
	}
	return sess, svc.wizard.Status(sess), nil
}

// Input applies text to the session. A non-zero version must match the stored one.
func (svc *Service) Input(ctx context.Context, id string, version int64, text string) (Session, Reply, error) {
	sess, err := svc.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, Reply{}, err
	}
	if version != 0 && version != sess.Version {
		return sess, Reply{}, ErrVersionConflict
	}

	next, reply := svc.wizard.Handle(ctx, sess, text)
	if reply.Err != nil {
		svc.logger.Error(
			fmt.Sprintf("registration wizard: %v", reply.Err),
			reply.Err,
			map[string]interface{}{"session": id, "stage": string(sess.Stage)},
		)
	}

	if reply.Ended {
		if err = svc.sessions.DeleteSession(ctx, id); err != nil {
			return sess, Reply{}, pkgerrors.Wrap(err, "deleting session")
		}
		return next, reply, nil
	}

	next.UpdatedAt = time.Now().UTC()
	saved, err := svc.sessions.UpdateSession(ctx, next)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return sess, Reply{}, err
		}
		return sess, Reply{}, pkgerrors.Wrap(err, "updating session")
	}
	return saved, reply, nil
}

// Converse feeds text to the session with the given ID, creating it first if needed.
// Empty text only describes the current step. Used by transports with stable conversation IDs.
func (svc *Service) Converse(ctx context.Context, id, text string) (Reply, error) {
	sess, err := svc.sessions.GetSession(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		var reply Reply
		if sess, reply, err = svc.Start(ctx, id, nil); err != nil {
			return Reply{}, err
		}
		if text == "" {
			return reply, nil
		}
	} else if err != nil {
		return Reply{}, err
	}

	if text == "" {
		return svc.wizard.Status(sess), nil
	}
	_, reply, err := svc.Input(ctx, id, sess.Version, text)
	return reply, err
}

func (svc *Service) ListRegistrations(ctx context.Context, filter QueryFilter) ([]Registration, error) {
	filter.Search = core.CleanString(filter.Search, true /* lower */)
	return svc.regs.FilterRegistrations(ctx, filter)
}

func (svc *Service) GetRegistration(ctx context.Context, id string) (Registration, error) {
	return svc.regs.GetRegistrationByID(ctx, id)
}
