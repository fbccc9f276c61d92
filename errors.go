package authsession

import "errors"

var (
	// ErrInvalidCredentials is returned by credential sign-in when the
	// email/password pair does not match any account. Unknown emails
	// and wrong passwords are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSignInBlocked is returned when external identity sync fails
	// and the sign-in must not proceed.
	ErrSignInBlocked = errors.New("sign-in blocked")
	// ErrSignInRateLimited is returned when the sign-in throttle for
	// the identifier is exhausted.
	ErrSignInRateLimited = errors.New("sign-in rate limited")
	// ErrProviderUnknown is returned for a provider name outside the
	// configured set.
	ErrProviderUnknown = errors.New("unknown provider")
	// ErrControllerNotReady is returned when a controller method is
	// called on a nil or unbuilt controller.
	ErrControllerNotReady = errors.New("controller not initialized")
)
