package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/philosothon/philosothon/core"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAlreadyConfirmed     = errors.New("email address already confirmed")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

type Repository interface {
	CreateUser(ctx context.Context, usr User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	EmailExists(ctx context.Context, email string, excludedIDs ...string) (bool, error)
	// FilterUsers applies AND operation on available QueryFilter fields.
	// QueryFilter.Search does a case-insensitive match on the names or the email.
	FilterUsers(ctx context.Context, filter QueryFilter, ords ...core.DBOrdering) ([]User, error)
	UpdateUser(ctx context.Context, usr User) (User, error)
	DeleteUsersByID(ctx context.Context, ids ...string) error
}

type Service struct {
	repo          Repository
	mailSvc       core.EmailService
	validate      *validator.Validate
	confirmTokens tokenGenerator
	resetTokens   tokenGenerator
}

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) *Service {
	return &Service{
		repo:          repo,
		mailSvc:       mailSvc,
		validate:      validate,
		confirmTokens: newConfirmTokenGenerator(conf.SecretKey, conf.EmailConfirmTimeoutDelta),
		resetTokens:   newResetTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclIDs ...string) error {
	exists, err := svc.repo.EmailExists(ctx, email, exclIDs...)
	if err != nil {
		return err
	}
	if exists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

// Create adds a user from the back-office. Password policy is enforced by NewUser validation.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:        uuid.NewString(),
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(usr.Roles) == 0 {
		usr.Roles = []string{RoleParticipant}
	}
	if nu.Confirmed {
		usr.EmailConfirmedAt = now
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// CreateAccount registers an unconfirmed participant and sends the confirmation email.
func (svc *Service) CreateAccount(ctx context.Context, na NewAccount) (User, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, na.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr, err := svc.repo.CreateUser(ctx, User{
		ID:           uuid.NewString(),
		FirstName:    na.FirstName,
		LastName:     na.LastName,
		Email:        na.Email,
		IsActive:     true,
		Roles:        []string{RoleParticipant},
		PasswordHash: na.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return User{}, err
	}
	svc.sendConfirmationMail(usr)
	return usr, nil
}

func (svc *Service) IsConfirmed(ctx context.Context, email string) (bool, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return usr.IsConfirmed(), nil
}

func (svc *Service) ResendConfirmation(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.IsConfirmed() {
		return ErrAlreadyConfirmed
	}
	// delivered synchronously so the caller can report a failure
	msg := svc.tokenMail(usr, svc.confirmTokens, "Confirm your email address", "confirm_email")
	if err = svc.mailSvc.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending confirmation email: %w", err)
	}
	return nil
}

// ConfirmEmail marks the user's email as confirmed. Confirming twice is a no-op.
func (svc *Service) ConfirmEmail(ctx context.Context, uid, token string) (User, error) {
	usr, err := svc.userFromUID(ctx, uid)
	if err != nil {
		return User{}, err
	}
	if usr.IsConfirmed() {
		return usr, nil
	}
	if err = svc.confirmTokens.VerifyToken(usr, token); err != nil {
		return User{}, invalidTokenError(err)
	}

	now := time.Now().UTC()
	usr.EmailConfirmedAt = now
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return usr, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	if err := svc.validate.Struct(rp); err != nil {
		return User{}, err
	}
	usr, err := svc.userFromUID(ctx, rp.UID)
	if err != nil {
		return User{}, err
	}
	if err = svc.resetTokens.VerifyToken(usr, rp.Token); err != nil {
		return User{}, invalidTokenError(err)
	}
	if err = ValidatePassword(rp.Password, usr.FirstName, usr.LastName, usr.Email); err != nil {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "password", Error: err.Error()})
	}
	return svc.SetPassword(ctx, usr, rp.Password)
}

// SetPassword replaces the user's password without checking the policy.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ords ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.FilterUsers(ctx, filter, ords...)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = uu.Validate(usr, svc.validate); err != nil {
		return User{}, err
	}
	if err = svc.checkUniqueness(ctx, uu.Email, id); err != nil {
		return User{}, err
	}

	if usr.Email != uu.Email {
		usr.EmailConfirmedAt = time.Time{}
	}
	usr.FirstName = uu.FirstName
	usr.LastName = uu.LastName
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *Service) userFromUID(ctx context.Context, uid string) (User, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return User{}, invalidTokenError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, invalidTokenError(errInvalidToken)
		}
		return User{}, err
	}
	return usr, nil
}

func invalidTokenError(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
}

func (svc *Service) sendConfirmationMail(usr User) {
	svc.mailSvc.SendMessages(svc.tokenMail(usr, svc.confirmTokens, "Confirm your email address", "confirm_email"))
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(svc.tokenMail(usr, svc.resetTokens, "Password Reset", "password_reset"))
}

func (svc *Service) tokenMail(usr User, tokens tokenGenerator, subject, tmpl string) *core.EmailMessage {
	token, err := tokens.MakeToken(usr)
	if err != nil {
		panic(fmt.Sprintf("user.tokenMail(%s): %v", tmpl, err))
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name(), Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: map[string]interface{}{
			"Name":  usr.FirstName,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	}
}
