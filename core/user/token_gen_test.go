package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	now := time.Now()
	usr := User{
		ID:        1,
		UUID:      "b6e1f1a2-9d35-4bfb-9b4d-111111111111",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := 4 * 24 * time.Hour
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	NowFunc = time.Now // reset

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
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{UUID: "b6e1f1a2-9d35-4bfb-9b4d-222222222222"}
	uid := EncodeUID(usr)
	got, err := decodeUID(uid)
	if err != nil {
		t.Fatalf("decodeUID() failed: %v", err)
	}
	if got != usr.UUID {
		t.Errorf("decodeUID() = %v; want %v", got, usr.UUID)
	}
	if _, err = decodeUID("%%%"); err == nil {
		t.Error("decodeUID() expected error on invalid input")
	}
}

func TestTokenInvalidation(t *testing.T) {
	usr := User{UUID: "b6e1f1a2-9d35-4bfb-9b4d-333333333333"}
	_ = usr.SetPassword("pwd")

	token, err := MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	if err = verifyToken(usr, token); err != nil {
		t.Fatalf("verifyToken() error = %v; want nil", err)
	}

	// a password change invalidates the token
	changed := usr
	_ = changed.SetPassword("new-pwd")
	if err = verifyToken(changed, token); err != errInvalidToken {
		t.Errorf("verifyToken() after password change error = %v, want %v", err, errInvalidToken)
	}

	// a login invalidates the token
	loggedIn := usr
	loggedIn.LastLogin = time.Now().UTC()
	if err = verifyToken(loggedIn, token); err != errInvalidToken {
		t.Errorf("verifyToken() after login error = %v, want %v", err, errInvalidToken)
	}
}
