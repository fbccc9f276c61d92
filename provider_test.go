package authsession

import (
	"context"
	"errors"
	"testing"

	"github.com/prathamesh-patil-5090/authsession/oauth"
)

func TestSyncCreatesMissingUser(t *testing.T) {
	f := newFixture(t, nil)

	id, err := f.ctrl.adapter.SyncExternalIdentity(context.Background(), oauth.Identity{
		Provider: "google",
		Subject:  "g-1",
		Email:    "New@X.com",
		Name:     "New User",
		Picture:  "p.png",
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if id.UserID == "" {
		t.Fatal("expected a minted user id")
	}

	u := f.dir.get("new@x.com")
	if u.Provider != ProviderGoogle || u.Role != RoleUser {
		t.Fatalf("created record wrong: %+v", u)
	}
	if f.dir.created != 1 {
		t.Fatalf("expected 1 create, got %d", f.dir.created)
	}
}

// A credentials account signing in through GitHub with the same email
// is upgraded in place, never duplicated.
func TestSyncUpgradesCredentialsAccount(t *testing.T) {
	f := newFixture(t, nil)
	u := f.addCredentialsUser(t, "b@y.com", "correct-horse-battery")

	id, err := f.ctrl.adapter.SyncExternalIdentity(context.Background(), oauth.Identity{
		Provider: "github",
		Subject:  "5090",
		Email:    "b@y.com",
		Name:     "Octo",
		Picture:  "new.png",
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if id.UserID != u.ID {
		t.Fatalf("expected existing user %q, got %q", u.ID, id.UserID)
	}

	after := f.dir.get("b@y.com")
	if after.Provider != ProviderGitHub {
		t.Fatalf("provider tag = %q, want github", after.Provider)
	}
	if after.Picture != "new.png" {
		t.Fatalf("avatar not refreshed: %q", after.Picture)
	}
	if f.dir.created != 0 {
		t.Fatal("duplicate user created")
	}
}

func TestSyncNeverDowngradesProvider(t *testing.T) {
	f := newFixture(t, nil)
	f.dir.put(UserRecord{
		ID:       "u-1",
		Email:    "g@x.com",
		Provider: ProviderGoogle,
		Role:     RoleUser,
		Picture:  "orig.png",
	})

	_, err := f.ctrl.adapter.SyncExternalIdentity(context.Background(), oauth.Identity{
		Provider: "github",
		Subject:  "1",
		Email:    "g@x.com",
		Picture:  "other.png",
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	after := f.dir.get("g@x.com")
	if after.Provider != ProviderGoogle {
		t.Fatalf("google account re-tagged to %q", after.Provider)
	}
	if after.Picture != "orig.png" {
		t.Fatal("avatar rewritten without an upgrade")
	}
}

func TestUpgradeTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Provider
		want     bool
	}{
		{ProviderCredentials, ProviderGoogle, true},
		{ProviderCredentials, ProviderGitHub, true},
		{ProviderCredentials, ProviderCredentials, false},
		{ProviderGoogle, ProviderGitHub, false},
		{ProviderGoogle, ProviderCredentials, false},
		{ProviderGitHub, ProviderGoogle, false},
	}
	for _, tc := range cases {
		if got := upgradeAllowed(tc.from, tc.to); got != tc.want {
			t.Fatalf("upgradeAllowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSyncFailsClosed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.dir.failFind = errors.New("db down")
	_, err := f.ctrl.adapter.SyncExternalIdentity(ctx, oauth.Identity{
		Provider: "google", Subject: "g-1", Email: "a@x.com",
	})
	if !errors.Is(err, ErrSignInBlocked) {
		t.Fatalf("lookup failure: expected ErrSignInBlocked, got %v", err)
	}

	f.dir.failFind = nil
	f.dir.failCrea = errors.New("db down")
	_, err = f.ctrl.adapter.SyncExternalIdentity(ctx, oauth.Identity{
		Provider: "google", Subject: "g-1", Email: "a@x.com",
	})
	if !errors.Is(err, ErrSignInBlocked) {
		t.Fatalf("create failure: expected ErrSignInBlocked, got %v", err)
	}

	f.addCredentialsUser(t, "b@y.com", "correct-horse-battery")
	f.dir.failCrea = nil
	f.dir.failUpd = errors.New("db down")
	_, err = f.ctrl.adapter.SyncExternalIdentity(ctx, oauth.Identity{
		Provider: "github", Subject: "5090", Email: "b@y.com",
	})
	if !errors.Is(err, ErrSignInBlocked) {
		t.Fatalf("upgrade failure: expected ErrSignInBlocked, got %v", err)
	}
}

func TestSyncRejectsUnknownProvider(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.ctrl.adapter.SyncExternalIdentity(context.Background(), oauth.Identity{
		Provider: "myspace", Subject: "1", Email: "a@x.com",
	})
	if !errors.Is(err, ErrProviderUnknown) {
		t.Fatalf("expected ErrProviderUnknown, got %v", err)
	}
}
