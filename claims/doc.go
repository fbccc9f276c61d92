// Package claims defines the session payload carried inside the signed
// session token and the JWT codec that encodes it.
//
// The payload is a cached, signed claim set: it can be trusted without a
// store round-trip only while AccessTokenExpires is in the future. Once
// that window lapses the embedded refresh token must be re-validated
// against the token store by the lifecycle controller.
package claims
