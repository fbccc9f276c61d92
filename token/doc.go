// Package token implements refresh-token persistence and rotation.
//
// The store is the sole source of truth for refresh-token validity. A
// record maps an opaque random token string to its owning user id and
// expiry. Create clears all prior records for the user (first-issuance
// path); Rotate atomically replaces exactly one record and fails when
// the old token has already been consumed, so concurrent refreshes have
// a single winner.
//
// Two backends are provided: a Redis store using Lua compare-and-swap
// scripts, and a PostgreSQL store using conditional delete-and-insert
// inside a transaction.
package token
