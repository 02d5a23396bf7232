package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/philosothon/philosothon/core/registration"
)

const (
	registrationColumns = `id, user_id, email, answers, submitted_at`

	insertRegistrationQuery  = `INSERT INTO registration (` + registrationColumns + `) VALUES ($1, $2, $3, $4, $5)`
	getRegistrationQuery     = `SELECT ` + registrationColumns + ` FROM registration WHERE id = $1`
	selectRegistrationsQuery = `SELECT ` + registrationColumns + ` FROM registration`
)

type registrationRow struct {
	ID          string      `db:"id"`
	UserID      null.String `db:"user_id"`
	Email       string      `db:"email"`
	Answers     []byte      `db:"answers"`
	SubmittedAt time.Time   `db:"submitted_at"`
}

func (row registrationRow) registration() (registration.Registration, error) {
	reg := registration.Registration{
		ID:          row.ID,
		UserID:      row.UserID.String,
		Email:       row.Email,
		SubmittedAt: row.SubmittedAt.UTC(),
	}
	if err := json.Unmarshal(row.Answers, &reg.Answers); err != nil {
		return registration.Registration{}, errors.Wrap(err, "decoding answers")
	}
	return reg, nil
}

type registrationRepository struct {
	db *sqlx.DB
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *sqlx.DB) registration.Repository {
	return &registrationRepository{db: db}
}

func (repo *registrationRepository) CreateRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	data, err := json.Marshal(reg.Answers)
	if err != nil {
		return registration.Registration{}, errors.Wrap(err, "encoding answers")
	}
	_, err = repo.db.ExecContext(ctx, insertRegistrationQuery,
		reg.ID, null.NewString(reg.UserID, reg.UserID != ""), reg.Email, string(data), reg.SubmittedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return registration.Registration{}, registration.ErrAlreadyRegistered
		}
		return registration.Registration{}, errors.Wrap(err, "inserting registration")
	}
	return reg, nil
}

func (repo *registrationRepository) GetRegistrationByID(ctx context.Context, id string) (registration.Registration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return registration.Registration{}, registration.ErrNotFound
	}
	var row registrationRow
	if err := repo.db.GetContext(ctx, &row, getRegistrationQuery, id); err != nil {
		return registration.Registration{}, trapNoRowsErr(err, registration.ErrNotFound, "finding registration")
	}
	return row.registration()
}

func filterRegistrationsQuery(filter registration.QueryFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		where = append(where, "email ILIKE "+arg("%"+filter.Search+"%"))
	}
	if !filter.SubmittedFrom.IsZero() {
		where = append(where, "submitted_at >= "+arg(filter.SubmittedFrom.UTC()))
	}
	if !filter.SubmittedTo.IsZero() {
		where = append(where, "submitted_at <= "+arg(filter.SubmittedTo.UTC()))
	}

	q := selectRegistrationsQuery
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q + " ORDER BY submitted_at DESC", args
}

func (repo *registrationRepository) FilterRegistrations(ctx context.Context, filter registration.QueryFilter) ([]registration.Registration, error) {
	q, args := filterRegistrationsQuery(filter)
	var rows []registrationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	regs := make([]registration.Registration, 0, len(rows))
	for _, row := range rows {
		reg, err := row.registration()
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}
