// Package rate provides Redis-backed fixed-window throttles for the
// sign-in and refresh paths.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key
// prefixes:
//   - as:si: — sign-in attempts per identifier
//   - as:rf: — refresh attempts per user
//
// Throttle state lives in Redis so limits hold across processes. A
// Redis outage surfaces as ErrRedisUnavailable; callers decide whether
// to fail open or closed.
package rate
