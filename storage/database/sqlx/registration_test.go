package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philosothon/philosothon/core/registration"
)

const regID = "2f4a8c1e-1b55-4e8f-9a57-0d3c4b1a2f99"

func TestRegistrationRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRegistrationRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	reg := registration.Registration{
		ID:          regID,
		UserID:      adaID,
		Email:       "ada@test.test",
		Answers:     registration.AnswerSet{"year": registration.NumberAnswer(3)},
		SubmittedAt: now,
	}

	mock.ExpectExec(quote(insertRegistrationQuery)).
		WithArgs(regID, adaID, "ada@test.test", `{"year":{"kind":"number","number":3}}`, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	created, err := repo.CreateRegistration(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, reg, created)

	mock.ExpectExec(quote(insertRegistrationQuery)).WillReturnError(&pq.Error{Code: pqUniqueViolation})
	_, err = repo.CreateRegistration(ctx, reg)
	assert.Equal(t, registration.ErrAlreadyRegistered, err)

	cols := []string{"id", "user_id", "email", "answers", "submitted_at"}
	_, err = repo.GetRegistrationByID(ctx, "nope")
	assert.Equal(t, registration.ErrNotFound, err, "not a uuid")

	const unknownID = "00000000-0000-4000-8000-000000000000"
	mock.ExpectQuery(quote(getRegistrationQuery)).
		WithArgs(unknownID).
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.GetRegistrationByID(ctx, unknownID)
	assert.Equal(t, registration.ErrNotFound, err)

	mock.ExpectQuery(quote(getRegistrationQuery)).
		WithArgs(regID).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(regID, adaID, "ada@test.test", []byte(`{"year":{"kind":"number","number":3}}`), now))
	got, err := repo.GetRegistrationByID(ctx, regID)
	require.NoError(t, err)
	assert.Equal(t, reg, got)

	mock.ExpectQuery(quote(selectRegistrationsQuery+` WHERE email ILIKE $1 AND submitted_at >= $2 ORDER BY submitted_at DESC`)).
		WithArgs("%ada%", now).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(regID, nil, "ada@test.test", []byte(`{}`), now))
	regs, err := repo.FilterRegistrations(ctx, registration.QueryFilter{Search: "ada", SubmittedFrom: now})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Empty(t, regs[0].UserID, "the account was deleted")
}
