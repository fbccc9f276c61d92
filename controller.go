package authsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prathamesh-patil-5090/authsession/claims"
	"github.com/prathamesh-patil-5090/authsession/internal/rate"
	"github.com/prathamesh-patil-5090/authsession/oauth"
	"github.com/prathamesh-patil-5090/authsession/token"
)

// FailureKind is the internal diagnostic carried beside the public
// error tag. The payload only ever exposes the coarse tags from the
// claims package; FailureKind exists for metrics and audit, never for
// access-control decisions.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTokenMissing
	FailureTokenNotFound
	FailureRotationRace
	FailureStoreUnavailable
	FailureRateLimited
	FailureOwnerMismatch
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTokenMissing:
		return "token_missing"
	case FailureTokenNotFound:
		return "token_not_found"
	case FailureRotationRace:
		return "rotation_race"
	case FailureStoreUnavailable:
		return "store_unavailable"
	case FailureRateLimited:
		return "rate_limited"
	case FailureOwnerMismatch:
		return "owner_mismatch"
	default:
		return "unknown"
	}
}

// Controller drives the session lifecycle: initial sign-in, per-request
// resolution, refresh rotation, and revocation. Build one through
// [New]; a Controller is safe for concurrent use.
type Controller struct {
	config    Config
	codec     *claims.Codec
	store     token.Store
	verifier  *CredentialVerifier
	adapter   *Adapter
	providers map[Provider]oauth.Client
	limiter   *rate.Limiter
	audit     *auditDispatcher
	metrics   *Metrics
	logger    *slog.Logger

	now func() time.Time
}

// SignInWithCredentials verifies the email/password pair and, on
// success, issues a fresh session payload with a newly stored refresh
// token. A non-match returns ErrInvalidCredentials; the caller cannot
// tell an unknown email from a wrong password.
func (c *Controller) SignInWithCredentials(ctx context.Context, email, pass string) (claims.Payload, error) {
	if c == nil {
		return claims.Payload{}, ErrControllerNotReady
	}

	identifier := normalizeEmail(email)
	if c.limiter != nil {
		if err := c.limiter.CheckSignIn(ctx, identifier); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				c.metrics.Inc(MetricSignInRateLimited)
				return claims.Payload{}, ErrSignInRateLimited
			}
			// Throttle storage down: let the attempt through rather
			// than lock every user out.
			c.logger.WarnContext(ctx, "sign-in throttle unavailable", "err", err)
		}
	}

	id, ok := c.verifier.Verify(ctx, identifier, pass)
	if !ok {
		c.metrics.Inc(MetricSignInFailure)
		c.emitAudit(ctx, AuditEvent{
			Timestamp: c.now(),
			EventType: AuditSignInFailure,
			Provider:  string(ProviderCredentials),
		})
		if c.limiter != nil {
			if err := c.limiter.RecordSignInFailure(ctx, identifier); errors.Is(err, rate.ErrRateLimited) {
				return claims.Payload{}, ErrSignInRateLimited
			}
		}
		return claims.Payload{}, ErrInvalidCredentials
	}

	if c.limiter != nil {
		if err := c.limiter.ResetSignIn(ctx, identifier); err != nil {
			c.logger.WarnContext(ctx, "sign-in throttle reset failed", "err", err)
		}
	}

	return c.issue(ctx, id, ProviderCredentials), nil
}

// SignInExternal resolves an OAuth profile through the provider
// adapter and issues a session. A sync failure blocks the sign-in: the
// returned payload carries the SignInError tag and the error is
// ErrSignInBlocked.
func (c *Controller) SignInExternal(ctx context.Context, profile oauth.Identity) (claims.Payload, error) {
	if c == nil {
		return claims.Payload{}, ErrControllerNotReady
	}

	id, err := c.adapter.SyncExternalIdentity(ctx, profile)
	if err != nil {
		c.metrics.Inc(MetricSignInBlocked)
		c.emitAudit(ctx, AuditEvent{
			Timestamp: c.now(),
			EventType: AuditSignInBlocked,
			Provider:  profile.Provider,
			Error:     err.Error(),
		})
		return claims.Payload{Error: claims.ErrorSignIn}, err
	}

	return c.issue(ctx, id, Provider(profile.Provider)), nil
}

// ExchangeCode swaps an authorization code with the named provider and
// signs the resulting profile in.
func (c *Controller) ExchangeCode(ctx context.Context, provider Provider, code string) (claims.Payload, error) {
	if c == nil {
		return claims.Payload{}, ErrControllerNotReady
	}

	client, ok := c.providers[provider]
	if !ok {
		return claims.Payload{}, fmt.Errorf("%w: %q", ErrProviderUnknown, provider)
	}

	profile, err := client.Exchange(ctx, code)
	if err != nil {
		c.metrics.Inc(MetricSignInFailure)
		c.emitAudit(ctx, AuditEvent{
			Timestamp: c.now(),
			EventType: AuditSignInFailure,
			Provider:  string(provider),
			Error:     err.Error(),
		})
		return claims.Payload{Error: claims.ErrorSignIn}, err
	}

	return c.SignInExternal(ctx, profile)
}

// AuthCodeURL builds the consent URL for the named provider.
func (c *Controller) AuthCodeURL(provider Provider, state string) (string, error) {
	client, ok := c.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderUnknown, provider)
	}
	return client.AuthCodeURL(state), nil
}

// issue mints the session payload for a resolved identity: a refresh
// token is generated and stored (clearing the user's prior tokens) and
// the access expiry is set to now + AccessTTL. Any failure yields a
// payload tagged SignInError with no tokens minted.
func (c *Controller) issue(ctx context.Context, id Identity, provider Provider) claims.Payload {
	now := c.now()
	p := claims.Payload{
		UserID:  id.UserID,
		Name:    id.Name,
		Email:   id.Email,
		Picture: id.Picture,
	}

	tok, err := token.New()
	if err == nil {
		err = c.store.Create(ctx, id.UserID, tok, now.Add(c.config.refreshWindow()))
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "session issuance failed", "user_id", id.UserID, "err", err)
		c.metrics.Inc(MetricSignInFailure)
		c.emitAudit(ctx, AuditEvent{
			Timestamp: now,
			EventType: AuditSignInFailure,
			UserID:    id.UserID,
			Provider:  string(provider),
			Error:     err.Error(),
		})
		p.Error = claims.ErrorSignIn
		return p
	}

	p.RefreshToken = tok
	p.AccessTokenExpires = now.Add(c.config.Session.AccessTTL).Unix()
	p.Error = claims.ErrorNone

	c.metrics.Inc(MetricSignInSuccess)
	c.emitAudit(ctx, AuditEvent{
		Timestamp: now,
		EventType: AuditSignInSuccess,
		UserID:    id.UserID,
		Provider:  string(provider),
		Success:   true,
	})
	return p
}

// Resolve advances a session payload by one lifecycle step. It is
// called once per incoming request.
//
// A payload whose expiry is still in the future is returned unchanged,
// with zero store access. An expired payload is refreshed through
// token rotation when possible; every refresh failure is collapsed to
// an error tag on the payload, so callers never see a Go error from
// this path. The returned FailureKind says what actually happened and
// feeds metrics and audit only.
func (c *Controller) Resolve(ctx context.Context, p claims.Payload) (claims.Payload, FailureKind) {
	if c == nil {
		return p, FailureStoreUnavailable
	}

	now := c.now()
	if p.Fresh(now.Unix()) {
		c.metrics.Inc(MetricPassThrough)
		return p, FailureNone
	}

	if p.RefreshToken == "" {
		c.metrics.Inc(MetricRefreshMissing)
		p.Error = claims.ErrorRefreshTokenMissing
		return p, FailureTokenMissing
	}

	if c.limiter != nil {
		if err := c.limiter.CheckRefresh(ctx, p.UserID); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				c.metrics.Inc(MetricRefreshRateLimited)
				return c.expireRefresh(ctx, p, FailureRateLimited, err)
			}
			c.logger.WarnContext(ctx, "refresh throttle unavailable", "err", err)
		}
	}

	userID, err := c.store.Validate(ctx, p.RefreshToken)
	if err != nil {
		kind := FailureTokenNotFound
		if errors.Is(err, token.ErrStoreUnavailable) {
			kind = FailureStoreUnavailable
			c.metrics.Inc(MetricStoreUnavailable)
		}
		return c.expireRefresh(ctx, p, kind, err)
	}
	if userID != p.UserID {
		// A token that validates but belongs to someone else is not
		// refreshable under any circumstances.
		return c.expireRefresh(ctx, p, FailureOwnerMismatch,
			fmt.Errorf("refresh token owned by another user"))
	}

	newTok, err := c.store.Rotate(ctx, p.RefreshToken, p.UserID, now.Add(c.config.refreshWindow()))
	if err != nil {
		kind := FailureTokenNotFound
		switch {
		case errors.Is(err, token.ErrTokenRotated):
			kind = FailureRotationRace
			c.metrics.Inc(MetricRotationRace)
			c.emitAudit(ctx, AuditEvent{
				Timestamp: now,
				EventType: AuditRotationRace,
				UserID:    p.UserID,
				Error:     err.Error(),
			})
		case errors.Is(err, token.ErrStoreUnavailable):
			kind = FailureStoreUnavailable
			c.metrics.Inc(MetricStoreUnavailable)
		}
		return c.expireRefresh(ctx, p, kind, err)
	}

	p.RefreshToken = newTok
	p.AccessTokenExpires = now.Add(c.config.Session.AccessTTL).Unix()
	p.Error = claims.ErrorNone

	c.metrics.Inc(MetricRefreshSuccess)
	c.emitAudit(ctx, AuditEvent{
		Timestamp: now,
		EventType: AuditRefreshSuccess,
		UserID:    p.UserID,
		Success:   true,
	})
	return p, FailureNone
}

// expireRefresh collapses a refresh failure to the public
// RefreshTokenExpired tag after logging and auditing the real cause.
func (c *Controller) expireRefresh(ctx context.Context, p claims.Payload, kind FailureKind, cause error) (claims.Payload, FailureKind) {
	c.logger.WarnContext(ctx, "refresh failed",
		"user_id", p.UserID, "kind", kind.String(), "err", cause)
	if kind != FailureRotationRace {
		c.metrics.Inc(MetricRefreshExpired)
		c.emitAudit(ctx, AuditEvent{
			Timestamp: c.now(),
			EventType: AuditRefreshFailure,
			UserID:    p.UserID,
			Error:     cause.Error(),
			Metadata:  map[string]string{"kind": kind.String()},
		})
	}

	p.Error = claims.ErrorRefreshTokenExpired
	return p, kind
}

// Encode signs the payload into a compact session token string.
func (c *Controller) Encode(p claims.Payload) (string, error) {
	if c == nil {
		return "", ErrControllerNotReady
	}
	return c.codec.Encode(p)
}

// Decode verifies and parses a session token string.
func (c *Controller) Decode(tokenStr string) (claims.Payload, error) {
	if c == nil {
		return claims.Payload{}, ErrControllerNotReady
	}
	return c.codec.Decode(tokenStr)
}

// SignOut revokes the refresh token carried by the payload. Revoking
// an already-absent token is a no-op. The access token stays valid
// until its expiry; revocation granularity is AccessTTL.
func (c *Controller) SignOut(ctx context.Context, p claims.Payload) error {
	if c == nil {
		return ErrControllerNotReady
	}
	if p.RefreshToken == "" {
		return nil
	}

	if err := c.store.Revoke(ctx, p.RefreshToken); err != nil {
		return err
	}

	c.metrics.Inc(MetricSignOut)
	c.emitAudit(ctx, AuditEvent{
		Timestamp: c.now(),
		EventType: AuditSignOut,
		UserID:    p.UserID,
		Success:   true,
	})
	return nil
}

// RevokeAllSessions deletes every refresh token for the user. Already
// issued access tokens ride out their remaining TTL.
func (c *Controller) RevokeAllSessions(ctx context.Context, userID string) error {
	if c == nil {
		return ErrControllerNotReady
	}

	if err := c.store.RevokeAll(ctx, userID); err != nil {
		return err
	}

	c.metrics.Inc(MetricRevokeAll)
	c.emitAudit(ctx, AuditEvent{
		Timestamp: c.now(),
		EventType: AuditRevokeAll,
		UserID:    userID,
		Success:   true,
	})
	return nil
}

// Metrics returns a snapshot of the lifecycle counters.
func (c *Controller) Metrics() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return c.metrics.Snapshot()
}

// Close flushes and stops the audit dispatcher.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.audit.Close()
}

func (c *Controller) emitAudit(ctx context.Context, event AuditEvent) {
	c.audit.Emit(ctx, event)
}
