package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeVerifyToken(t *testing.T) {
	timeout := 3 * 24 * time.Hour
	gen := newResetTokenGenerator("secret", timeout)

	now := time.Now()
	usr := User{
		ID:        "7b0c9c1e-6a55-4e8f-9a57-0d3c4b1a2f10",
		FirstName: "Simone",
		LastName:  "Weil",
		Email:     "simone@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	require.NoError(t, usr.SetPassword("pwd"))

	validToken, err := gen.MakeToken(usr)
	require.NoError(t, err)

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := gen.MakeToken(usr)
	NowFunc = time.Now // reset
	require.NoError(t, err)

	loggedIn := usr
	loggedIn.LastLogin = now.Add(time.Hour)

	otherPurpose, err := newConfirmTokenGenerator("secret", timeout).MakeToken(usr)
	require.NoError(t, err)

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "used after login", usr: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "other purpose", usr: usr, token: otherPurpose, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, gen.VerifyToken(tt.usr, tt.token))
		})
	}
}

func TestConfirmTokenIgnoresLogin(t *testing.T) {
	gen := newConfirmTokenGenerator("secret", 24*time.Hour)
	usr := User{ID: "u1", Email: "u1@test.test"}

	token, err := gen.MakeToken(usr)
	require.NoError(t, err)

	usr.LastLogin = time.Now()
	assert.NoError(t, gen.VerifyToken(usr, token))

	usr.EmailConfirmedAt = time.Now()
	assert.Equal(t, errInvalidToken, gen.VerifyToken(usr, token))
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "7b0c9c1e-6a55-4e8f-9a57-0d3c4b1a2f10"}
	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)

	_, err = decodeUID("%%%")
	assert.Error(t, err)
}
