package registration

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/philosothon/philosothon/core"
	"github.com/philosothon/philosothon/core/user"
)

// Accounts is the part of the account service the wizard needs; *user.Service implements it.
type Accounts interface {
	CreateAccount(ctx context.Context, acct user.NewAccount) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	ResendConfirmation(ctx context.Context, email string) error
}

type storeAdapter struct {
	ProgressStore
	accounts Accounts
	regs     Repository
	mailSvc  core.EmailService
}

var _ Adapter = (*storeAdapter)(nil)

// NewAdapter wires the wizard to the account service and the stores.
func NewAdapter(progress ProgressStore, accounts Accounts, regs Repository, mailSvc core.EmailService) Adapter {
	return &storeAdapter{
		ProgressStore: progress,
		accounts:      accounts,
		regs:          regs,
		mailSvc:       mailSvc,
	}
}

func (a *storeAdapter) CreateAccount(ctx context.Context, acct user.NewAccount) (string, error) {
	usr, err := a.accounts.CreateAccount(ctx, acct)
	if err != nil {
		if errors.Is(err, user.ErrEmailExists) {
			return "", ErrAccountExists
		}
		return "", err
	}
	return usr.ID, nil
}

func (a *storeAdapter) CheckConfirmed(ctx context.Context, email string) (bool, error) {
	usr, err := a.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, ErrUnknownIdentity
		}
		return false, err
	}
	return usr.IsConfirmed(), nil
}

func (a *storeAdapter) ResendConfirmation(ctx context.Context, email string) error {
	return a.accounts.ResendConfirmation(ctx, email)
}

func (a *storeAdapter) SubmitRegistration(ctx context.Context, key string, answers AnswerSet) (string, error) {
	usr, err := a.accounts.GetByID(ctx, key)
	if errors.Is(err, user.ErrNotFound) {
		// sessions bound without a user ID are keyed by email
		usr, err = a.accounts.GetByEmail(ctx, key)
	}
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrUnknownIdentity
		}
		return "", pkgerrors.Wrap(err, "finding user")
	}

	reg, err := a.regs.CreateRegistration(ctx, Registration{
		ID:          uuid.NewString(),
		UserID:      usr.ID,
		Email:       usr.Email,
		Answers:     answers.Clone(),
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	a.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name(), Address: usr.Email}},
		Subject:      "Registration received",
		TemplateName: "registration_received",
		TemplateData: map[string]interface{}{
			"Name":           usr.FirstName,
			"RegistrationID": reg.ID,
		},
	})
	return reg.ID, nil
}
