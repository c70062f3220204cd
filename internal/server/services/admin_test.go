package services

import (
	"context"
	"testing"

	"github.com/edustack/identity/internal/server/models"
)

func (e *env) seedAdmin(t *testing.T, username, pass string) models.Admin {
	t.Helper()
	admin, err := e.admins.Create(context.Background(), &models.Admin{
		Username:     username,
		PasswordHash: e.hash(t, pass),
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return *admin
}

func TestAdminSignIn(t *testing.T) {
	e := newEnv(t)
	seeded := e.seedAdmin(t, "root", "rootpw")

	res, err := e.adm.SignIn(context.Background(), "root", "rootpw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusOK || res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("admin signin did not issue tokens: %+v", res)
	}
	if res.AccountID != seeded.ID {
		t.Errorf("got id %q, want %q", res.AccountID, seeded.ID)
	}

	res, err = e.adm.SignIn(context.Background(), "root", "wrong")
	wantResult(t, res, err, StatusUnauthorized, MsgBadCredentials)

	res, err = e.adm.SignIn(context.Background(), "nobody", "rootpw")
	wantResult(t, res, err, StatusUnauthorized, MsgBadCredentials)
}

func TestAdminAuthenticate(t *testing.T) {
	e := newEnv(t)
	seeded := e.seedAdmin(t, "root", "rootpw")

	res, err := e.adm.SignIn(context.Background(), "root", "rootpw")
	if err != nil || res.Status != StatusOK {
		t.Fatalf("signin: %v %+v", err, res)
	}

	got, err := e.adm.Authenticate(context.Background(), res.AccessToken)
	if err != nil || got.Status != StatusOK || got.AccountID != seeded.ID {
		t.Fatalf("authenticate: %v %+v", err, got)
	}
}

// A user token lacks the admin role claim and must be refused on admin
// surfaces even though it verifies.
func TestAdminAuthenticate_UserTokenRejected(t *testing.T) {
	e := newEnv(t)
	e.seedAdmin(t, "root", "rootpw")
	e.seedVerified(t, "user@example.com", "pw")

	res, err := e.svc.SignIn(context.Background(), "user@example.com", "pw")
	if err != nil || res.Status != StatusOK {
		t.Fatalf("signin: %v %+v", err, res)
	}

	got, err := e.adm.Authenticate(context.Background(), res.AccessToken)
	wantResult(t, got, err, StatusForbidden, MsgAdminRequired)
}

func TestAdminAuthenticate_RevokedAndMissing(t *testing.T) {
	e := newEnv(t)
	e.seedAdmin(t, "root", "rootpw")

	res, err := e.adm.SignIn(context.Background(), "root", "rootpw")
	if err != nil || res.Status != StatusOK {
		t.Fatalf("signin: %v %+v", err, res)
	}

	// Sign-out applies to admin tokens the same way.
	if _, err := e.svc.SignOut(context.Background(), res.AccessToken); err != nil {
		t.Fatal(err)
	}
	got, err := e.adm.Authenticate(context.Background(), res.AccessToken)
	wantResult(t, got, err, StatusUnauthorized, MsgRevoked)

	// Token for a deleted admin.
	fresh, err := e.adm.SignIn(context.Background(), "root", "rootpw")
	if err != nil || fresh.Status != StatusOK {
		t.Fatalf("signin: %v %+v", err, fresh)
	}
	e.admins.rows = nil
	got, err = e.adm.Authenticate(context.Background(), fresh.AccessToken)
	wantResult(t, got, err, StatusUnauthorized, MsgNotFound)
}

func TestAdminRefresh(t *testing.T) {
	e := newEnv(t)
	seeded := e.seedAdmin(t, "root", "rootpw")

	res, err := e.adm.SignIn(context.Background(), "root", "rootpw")
	if err != nil || res.Status != StatusOK {
		t.Fatalf("signin: %v %+v", err, res)
	}
	oldRefresh := res.RefreshToken

	next, err := e.adm.Refresh(context.Background(), oldRefresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.Status != StatusOK || next.AccessToken == "" || next.RefreshToken == "" {
		t.Fatalf("refresh did not issue a pair: %+v", next)
	}
	if next.AccountID != seeded.ID {
		t.Errorf("got id %q, want %q", next.AccountID, seeded.ID)
	}

	// The fresh access token still carries the role.
	got, err := e.adm.Authenticate(context.Background(), next.AccessToken)
	if err != nil || got.Status != StatusOK {
		t.Fatalf("authenticate after refresh: %v %+v", err, got)
	}

	// The spent token is single-use.
	again, err := e.adm.Refresh(context.Background(), oldRefresh)
	wantResult(t, again, err, StatusUnauthorized, MsgRevoked)
}

// An account refresh token must not mint an admin pair.
func TestAdminRefresh_UserTokenRejected(t *testing.T) {
	e := newEnv(t)
	e.seedVerified(t, "user@example.com", "pw")

	res, err := e.svc.SignIn(context.Background(), "user@example.com", "pw")
	if err != nil || res.Status != StatusOK {
		t.Fatalf("signin: %v %+v", err, res)
	}

	got, err := e.adm.Refresh(context.Background(), res.RefreshToken)
	wantResult(t, got, err, StatusForbidden, MsgAdminRequired)
}

func TestAdminSeed(t *testing.T) {
	t.Run("creates first admin", func(t *testing.T) {
		e := newEnv(t)
		if err := e.adm.Seed(context.Background(), "root", "rootpw"); err != nil {
			t.Fatal(err)
		}
		admin, err := e.admins.GetByUsername(context.Background(), "root")
		if err != nil {
			t.Fatalf("admin not seeded: %v", err)
		}
		if !e.adm.hasher.Verify("rootpw", admin.PasswordHash) {
			t.Error("seeded hash does not match password")
		}
	})

	t.Run("noop when admins exist", func(t *testing.T) {
		e := newEnv(t)
		e.seedAdmin(t, "existing", "pw")
		if err := e.adm.Seed(context.Background(), "root", "rootpw"); err != nil {
			t.Fatal(err)
		}
		if len(e.admins.rows) != 1 {
			t.Fatalf("got %d admins, want 1", len(e.admins.rows))
		}
	})

	t.Run("noop without credentials", func(t *testing.T) {
		e := newEnv(t)
		if err := e.adm.Seed(context.Background(), "", ""); err != nil {
			t.Fatal(err)
		}
		if len(e.admins.rows) != 0 {
			t.Error("nothing should be seeded")
		}
	})
}
