package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, cfg), mr
}

func TestSignInThrottleBlocksAfterBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableSignInThrottle: true,
		MaxSignInAttempts:    3,
		SignInCooldown:       time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.RecordSignInFailure(ctx, "ada@example.com"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if err := l.RecordSignInFailure(ctx, "ada@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckSignIn(ctx, "ada@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on check, got %v", err)
	}

	// Other identifiers are unaffected.
	if err := l.CheckSignIn(ctx, "bob@example.com"); err != nil {
		t.Fatalf("unrelated identifier throttled: %v", err)
	}
}

func TestSignInThrottleResets(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableSignInThrottle: true,
		MaxSignInAttempts:    1,
		SignInCooldown:       time.Minute,
	})
	ctx := context.Background()

	_ = l.RecordSignInFailure(ctx, "ada@example.com")
	if err := l.ResetSignIn(ctx, "ada@example.com"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	n, err := l.SignInAttempts(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("attempts lookup failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 attempts after reset, got %d", n)
	}
}

func TestSignInWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		EnableSignInThrottle: true,
		MaxSignInAttempts:    1,
		SignInCooldown:       time.Minute,
	})
	ctx := context.Background()

	_ = l.RecordSignInFailure(ctx, "ada@example.com")
	if err := l.RecordSignInFailure(ctx, "ada@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckSignIn(ctx, "ada@example.com"); err != nil {
		t.Fatalf("expected clean window after cooldown, got %v", err)
	}
}

func TestRefreshThrottle(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableRefreshThrottle: true,
		MaxRefreshAttempts:    2,
		RefreshCooldown:       time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckRefresh(ctx, "user-1"); err != nil {
			t.Fatalf("refresh %d throttled early: %v", i, err)
		}
	}
	if err := l.CheckRefresh(ctx, "user-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestDisabledThrottlesAreNoOps(t *testing.T) {
	l, _ := newTestLimiter(t, Config{})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := l.RecordSignInFailure(ctx, "ada@example.com"); err != nil {
			t.Fatalf("disabled sign-in throttle returned %v", err)
		}
		if err := l.CheckRefresh(ctx, "user-1"); err != nil {
			t.Fatalf("disabled refresh throttle returned %v", err)
		}
	}
}

func TestRedisDownIsWrapped(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		EnableSignInThrottle: true,
		MaxSignInAttempts:    3,
		SignInCooldown:       time.Minute,
	})
	mr.Close()

	err := l.RecordSignInFailure(context.Background(), "ada@example.com")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
