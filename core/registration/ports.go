package registration

import (
	"context"
	"errors"
	"time"

	"github.com/philosothon/philosothon/core/user"
)

var (
	// errors
	ErrSessionNotFound    = errors.New("registration session not found")
	ErrVersionConflict    = errors.New("registration session was modified concurrently")
	ErrNotFound           = errors.New("registration not found")
	ErrAlreadyRegistered  = errors.New("a registration for this account already exists")
	ErrAccountExists      = errors.New("an account with this email already exists")
	ErrIncompleteAnswers  = errors.New("required questions are unanswered")
	ErrUnknownIdentity    = errors.New("no account is bound to this session")
	errQuestionOutOfRange = errors.New("question index out of range")
	errUnknownStage       = errors.New("unknown stage")
	errNoIdentityKey      = errors.New("session has no identity key")
)

type (
	// Registration is a submitted registration.
	Registration struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		Email       string    `json:"email"`
		Answers     AnswerSet `json:"answers"`
		SubmittedAt time.Time `json:"submitted_at"` // UTC
	}

	QueryFilter struct {
		Search        string    `query:"search"` // email
		SubmittedFrom time.Time `query:"submitted_from"`
		SubmittedTo   time.Time `query:"submitted_to"`
	}

	// ProgressStore persists in-progress answers keyed by identity (user ID or email).
	ProgressStore interface {
		SaveProgress(ctx context.Context, key string, answers AnswerSet) error
		// LoadProgress returns found=false when nothing is saved for key.
		LoadProgress(ctx context.Context, key string) (answers AnswerSet, found bool, err error)
		ClearProgress(ctx context.Context, key string) error
	}

	// SessionStore persists wizard sessions between requests.
	// UpdateSession only succeeds when sess.Version equals the stored version; the stored
	// version is then incremented. Otherwise it returns ErrVersionConflict.
	SessionStore interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		FindSessionByIdentity(ctx context.Context, key string) (Session, error)
		UpdateSession(ctx context.Context, sess Session) (Session, error)
		DeleteSession(ctx context.Context, id string) error
	}

	// Repository stores submitted registrations.
	Repository interface {
		// CreateRegistration returns ErrAlreadyRegistered when the email already registered.
		CreateRegistration(ctx context.Context, reg Registration) (Registration, error)
		GetRegistrationByID(ctx context.Context, id string) (Registration, error)
		FilterRegistrations(ctx context.Context, filter QueryFilter) ([]Registration, error)
	}

	// Adapter is everything the wizard needs from the outside world.
	Adapter interface {
		ProgressStore
		// CreateAccount returns ErrAccountExists when the email is taken.
		CreateAccount(ctx context.Context, acct user.NewAccount) (accountID string, err error)
		CheckConfirmed(ctx context.Context, email string) (bool, error)
		ResendConfirmation(ctx context.Context, email string) error
		SubmitRegistration(ctx context.Context, key string, answers AnswerSet) (registrationID string, err error)
	}
)
