// Package authsession manages the lifecycle of web sessions backed by
// short-lived signed session tokens and server-side rotating refresh
// tokens.
//
// The root package exposes the [Controller], built through [New] and
// the [Builder]. Mechanism lives in subpackages: claims (session token
// codec), token (refresh token store and rotation), password (argon2id
// hashing), oauth (external provider exchange).
//
// A session token is trusted without any store access until its
// embedded expiry passes. After that, [Controller.Resolve] attempts a
// refresh-token rotation; failures collapse to an error tag carried
// inside the payload rather than surfacing as Go errors, so the
// serialization layer never sees a broken session.
package authsession
