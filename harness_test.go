package authsession

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/prathamesh-patil-5090/authsession/password"
	"github.com/prathamesh-patil-5090/authsession/token"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// nopStore satisfies token.Store without any backing storage.
type nopStore struct{}

func (nopStore) Create(context.Context, string, string, time.Time) error { return nil }
func (nopStore) Validate(context.Context, string) (string, error) {
	return "", token.ErrTokenNotFound
}
func (nopStore) Rotate(context.Context, string, string, time.Time) (string, error) {
	return "", token.ErrTokenRotated
}
func (nopStore) Revoke(context.Context, string) error    { return nil }
func (nopStore) RevokeAll(context.Context, string) error { return nil }

// memDirectory is an in-memory Directory with injectable failures.
type memDirectory struct {
	mu       sync.Mutex
	byEmail  map[string]*UserRecord
	failFind error
	failCrea error
	failUpd  error
	created  int
}

func newMemDirectory() *memDirectory {
	return &memDirectory{byEmail: make(map[string]*UserRecord)}
}

func (d *memDirectory) put(u UserRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := u
	d.byEmail[u.Email] = &cp
}

func (d *memDirectory) get(email string) UserRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.byEmail[email]
}

func (d *memDirectory) FindUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFind != nil {
		return nil, d.failFind
	}
	u, ok := d.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (d *memDirectory) CreateUser(ctx context.Context, input CreateUserInput) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCrea != nil {
		return "", d.failCrea
	}
	d.created++
	d.byEmail[input.Email] = &UserRecord{
		ID:       input.ID,
		Email:    input.Email,
		Name:     input.Name,
		Picture:  input.Picture,
		Provider: input.Provider,
		Role:     input.Role,
	}
	return input.ID, nil
}

func (d *memDirectory) UpdateUserProvider(ctx context.Context, userID string, provider Provider, picture string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failUpd != nil {
		return d.failUpd
	}
	for _, u := range d.byEmail {
		if u.ID == userID {
			u.Provider = provider
			u.Picture = picture
			return nil
		}
	}
	return nil
}

// fixture bundles a built controller with its fakes and a settable
// clock.
type fixture struct {
	ctrl *Controller
	dir  *memDirectory
	mr   *miniredis.Miniredis
	sink *ChannelSink

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) setNow(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func lowCostParams() password.Params {
	return password.Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := defaultConfig()
	cfg.Session.Secret = testSecret
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	sink := NewChannelSink(64)
	dir := newMemDirectory()
	ctrl, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(dir).
		WithPasswordParams(lowCostParams()).
		WithAuditSink(sink).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(ctrl.Close)

	f := &fixture{
		ctrl: ctrl,
		dir:  dir,
		mr:   mr,
		sink: sink,
		now:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	ctrl.now = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	return f
}

// addCredentialsUser stores an account with a usable password hash.
func (f *fixture) addCredentialsUser(t *testing.T, email, pass string) UserRecord {
	t.Helper()

	hash, err := f.ctrl.verifier.hasher.Hash(pass)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	u := UserRecord{
		ID:           "user-" + email,
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Provider:     ProviderCredentials,
		Role:         RoleUser,
	}
	f.dir.put(u)
	return u
}
