package authsession

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// DefaultAccessTTL is the fixed lifetime of a session token before
	// it must be refreshed. Access tokens are never revoked
	// server-side, so this is also the revocation granularity.
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRefreshWindow is the refresh-token lifetime applied when
	// no window is configured or the configured string does not parse.
	DefaultRefreshWindow = 7 * 24 * time.Hour
)

// Config tunes the session lifecycle. Zero values fall back to the
// defaults applied by defaultConfig.
type Config struct {
	Session  SessionConfig
	Tokens   TokenConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// SessionConfig covers the signed session token.
type SessionConfig struct {
	Secret      []byte // HS256 signing secret, at least 32 bytes
	Issuer      string
	AccessTTL   time.Duration // default 15m
	MaxTokenAge time.Duration // oldest decodable token, default = refresh window
}

// TokenConfig covers the server-side refresh token.
type TokenConfig struct {
	// RefreshWindow is a duration string such as "7d", "12h", "30m",
	// "45s". Strings that do not parse fall back to seven days; see
	// ParseDurationOr.
	RefreshWindow string
	RedisPrefix   string
}

// SecurityConfig tunes the optional sign-in and refresh throttles.
type SecurityConfig struct {
	EnableSignInThrottle  bool
	MaxSignInAttempts     int
	SignInCooldown        time.Duration
	EnableRefreshThrottle bool
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
}

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Issuer:    "authsession",
			AccessTTL: DefaultAccessTTL,
		},
		Tokens: TokenConfig{
			RefreshWindow: "7d",
		},
		Security: SecurityConfig{
			MaxSignInAttempts:  5,
			SignInCooldown:     15 * time.Minute,
			MaxRefreshAttempts: 30,
			RefreshCooldown:    time.Minute,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = cloneBytes(cfg.Session.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if len(c.Session.Secret) < 32 {
		return errors.New("Session.Secret must be at least 32 bytes")
	}
	if c.Session.AccessTTL <= 0 {
		return errors.New("Session.AccessTTL must be positive")
	}
	if c.Security.EnableSignInThrottle {
		if c.Security.MaxSignInAttempts <= 0 {
			return errors.New("Security.MaxSignInAttempts must be positive when the sign-in throttle is enabled")
		}
		if c.Security.SignInCooldown <= 0 {
			return errors.New("Security.SignInCooldown must be positive when the sign-in throttle is enabled")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security.MaxRefreshAttempts must be positive when the refresh throttle is enabled")
		}
		if c.Security.RefreshCooldown <= 0 {
			return errors.New("Security.RefreshCooldown must be positive when the refresh throttle is enabled")
		}
	}
	return nil
}

// refreshWindow resolves the configured refresh window, applying the
// documented seven-day fallback for unparseable strings.
func (c *Config) refreshWindow() time.Duration {
	return ParseDurationOr(c.Tokens.RefreshWindow, DefaultRefreshWindow)
}

var durationPattern = regexp.MustCompile(`^(\d+)(d|h|m|s)$`)

// ErrDurationFormat is returned by ParseDuration for strings outside
// the <digits><d|h|m|s> format.
var ErrDurationFormat = errors.New("invalid duration format")

// ParseDuration parses a window string such as "7d", "12h", "30m" or
// "45s". A bare number without a unit is an error; callers that want
// lenient behavior use ParseDurationOr.
func ParseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrDurationFormat, s)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrDurationFormat, s)
	}

	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	default:
		return time.Duration(n) * time.Second, nil
	}
}

// ParseDurationOr parses s and substitutes fallback when it does not
// parse. This is the lenient policy used for the refresh window: a
// misconfigured duration degrades to the fallback instead of taking
// the auth path down.
func ParseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
