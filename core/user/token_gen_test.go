package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
)

func TestMakeVerifyToken(t *testing.T) {
	tg := tokenGenerator{secretKey: "secret", timeout: 3 * 24 * time.Hour}

	now := time.Now().UTC()
	usr := User{
		ID:        "USR001",
		Name:      "T",
		Email:     "t@test.test",
		Role:      access.RoleStudent,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	require.NoError(t, usr.SetPassword("pwd"))

	validToken, err := tg.makeToken(usr)
	require.NoError(t, err)

	// generate an expired token
	dayLate := tg.timeout + (24 * time.Hour)
	core.NowFunc = func() time.Time { return time.Now().UTC().Add(-dayLate) }
	expiredToken, err := tg.makeToken(usr)
	core.NowFunc = func() time.Time { return time.Now().UTC() } // reset
	require.NoError(t, err)

	otherSecret := tokenGenerator{secretKey: "other", timeout: tg.timeout}
	loggedIn := usr
	loggedIn.LastLogin = now.Add(time.Minute)

	tests := []struct {
		name    string
		tg      tokenGenerator
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", tg: tg, usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", tg: tg, usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", tg: tg, usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", tg: tg, usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", tg: tg, usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "other secret", tg: otherSecret, usr: usr, token: validToken, wantErr: errInvalidToken},
		{name: "used after login", tg: tg, usr: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "expired token", tg: tg, usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", tg: tg, usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.tg.verifyToken(tt.usr, tt.token))
		})
	}
}
