package claims

// ErrorTag marks a session payload as unauthenticated. Consumers must
// treat any non-empty tag as "not signed in" — no partial-trust state.
type ErrorTag string

const (
	// ErrorNone is the zero tag on a healthy payload.
	ErrorNone ErrorTag = ""
	// ErrorSignIn marks a payload whose identity resolution or initial
	// token issuance failed.
	ErrorSignIn ErrorTag = "SignInError"
	// ErrorRefreshTokenMissing marks an expired payload that carried no
	// refresh token.
	ErrorRefreshTokenMissing ErrorTag = "RefreshTokenMissing"
	// ErrorRefreshTokenExpired marks an expired payload whose refresh
	// token was unknown, expired, or failed validation/rotation.
	ErrorRefreshTokenExpired ErrorTag = "RefreshTokenExpired"
)

// Payload is the decoded session token claim set.
//
// Payload instances are value types; the lifecycle controller returns
// modified copies and never mutates the caller's copy in place.
type Payload struct {
	UserID             string
	Name               string
	Email              string
	Picture            string
	AccessTokenExpires int64 // epoch seconds; trusted without store access while in the future
	RefreshToken       string
	Error              ErrorTag
}

// Fresh reports whether the payload can be trusted without consulting
// the token store at the given epoch-seconds instant.
func (p Payload) Fresh(nowUnix int64) bool {
	return p.AccessTokenExpires > 0 && nowUnix < p.AccessTokenExpires
}
