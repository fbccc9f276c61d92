package authsession

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/prathamesh-patil-5090/authsession/claims"
	"github.com/prathamesh-patil-5090/authsession/internal/rate"
	"github.com/prathamesh-patil-5090/authsession/oauth"
	"github.com/prathamesh-patil-5090/authsession/password"
	"github.com/prathamesh-patil-5090/authsession/token"
)

// Builder assembles a [Controller]. Configure it during initialization
// and call Build once.
type Builder struct {
	config Config

	redisClient *redis.Client
	pgPool      *pgxpool.Pool
	store       token.Store

	directory Directory
	providers map[Provider]oauth.Client

	passwordParams *password.Params
	auditSink      AuditSink
	logger         *slog.Logger

	built bool
}

// New starts a builder with defaults applied.
func New() *Builder {
	return &Builder{
		config:    defaultConfig(),
		providers: make(map[Provider]oauth.Client),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the session signing secret.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.Session.Secret = cloneBytes(secret)
	return b
}

// WithRedis supplies the Redis client used for the refresh token store
// and the throttles.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redisClient = client
	return b
}

// WithPostgres supplies a pgx pool; the refresh token store runs on
// Postgres instead of Redis.
func (b *Builder) WithPostgres(pool *pgxpool.Pool) *Builder {
	b.pgPool = pool
	return b
}

// WithStore supplies a custom refresh token store, overriding the
// Redis and Postgres wiring.
func (b *Builder) WithStore(store token.Store) *Builder {
	b.store = store
	return b
}

// WithDirectory supplies the user storage. Required.
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithOAuthProvider registers an external provider client under its
// name.
func (b *Builder) WithOAuthProvider(p Provider, client oauth.Client) *Builder {
	b.providers[p] = client
	return b
}

// WithPasswordParams overrides the argon2id cost parameters.
func (b *Builder) WithPasswordParams(p password.Params) *Builder {
	b.passwordParams = &p
	return b
}

// WithAuditSink sets the audit destination. Events are only delivered
// when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration and wires the controller.
func (b *Builder) Build() (*Controller, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, errors.New("directory required")
	}

	store := b.store
	switch {
	case store != nil:
	case b.redisClient != nil:
		store = token.NewRedisStore(b.redisClient, cfg.Tokens.RedisPrefix)
	case b.pgPool != nil:
		store = token.NewPostgresStore(b.pgPool)
	default:
		return nil, errors.New("token store required: provide redis, postgres, or a custom store")
	}

	var limiter *rate.Limiter
	if cfg.Security.EnableSignInThrottle || cfg.Security.EnableRefreshThrottle {
		if b.redisClient == nil {
			return nil, errors.New("throttles require a redis client")
		}
		limiter = rate.New(b.redisClient, rate.Config{
			EnableSignInThrottle:  cfg.Security.EnableSignInThrottle,
			EnableRefreshThrottle: cfg.Security.EnableRefreshThrottle,
			MaxSignInAttempts:     cfg.Security.MaxSignInAttempts,
			SignInCooldown:        cfg.Security.SignInCooldown,
			MaxRefreshAttempts:    cfg.Security.MaxRefreshAttempts,
			RefreshCooldown:       cfg.Security.RefreshCooldown,
		})
	}

	maxAge := cfg.Session.MaxTokenAge
	if maxAge <= 0 {
		maxAge = cfg.refreshWindow()
	}
	codec, err := claims.NewCodec(cfg.Session.Secret, cfg.Session.Issuer, maxAge)
	if err != nil {
		return nil, err
	}

	params := password.DefaultParams()
	if b.passwordParams != nil {
		params = *b.passwordParams
	}
	hasher, err := password.NewHasher(params)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	ctrl := &Controller{
		config:    cfg,
		codec:     codec,
		store:     store,
		verifier:  NewCredentialVerifier(b.directory, hasher, logger),
		adapter:   NewAdapter(b.directory, logger),
		providers: b.providers,
		limiter:   limiter,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger,
		now:       time.Now,
	}

	b.built = true

	return ctrl, nil
}
