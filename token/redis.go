package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Token records are stored as "<expiresAtMillis>|<userID>" under a
// per-token key, with a per-user set indexing the user's tokens for
// RevokeAll. Expiry is enforced by value comparison, not only by Redis
// TTL, so a not-yet-collected expired row is still inert.

const createScript = `
local tokens = redis.call("SMEMBERS", KEYS[1])
for _, t in ipairs(tokens) do
  redis.call("DEL", ARGV[1] .. t)
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], ARGV[3])
if tonumber(ARGV[4]) > tonumber(ARGV[5]) then
  redis.call("PEXPIREAT", KEYS[2], ARGV[4])
end
redis.call("SADD", KEYS[1], ARGV[2])
return 1
`

const rotateScript = `
local cur = redis.call("GET", KEYS[1])
if not cur then
  return 0
end
local sep = string.find(cur, "|", 1, true)
if not sep then
  redis.call("DEL", KEYS[1])
  return 0
end
local expires = tonumber(string.sub(cur, 1, sep - 1))
local owner = string.sub(cur, sep + 1)
if owner ~= ARGV[6] then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[3], ARGV[1])
if not expires or expires <= tonumber(ARGV[5]) then
  return 0
end
redis.call("SET", KEYS[2], ARGV[3])
if tonumber(ARGV[4]) > tonumber(ARGV[5]) then
  redis.call("PEXPIREAT", KEYS[2], ARGV[4])
end
redis.call("SADD", KEYS[3], ARGV[2])
return 1
`

const revokeScript = `
local cur = redis.call("GET", KEYS[1])
if not cur then
  return 0
end
redis.call("DEL", KEYS[1])
local sep = string.find(cur, "|", 1, true)
if sep then
  redis.call("SREM", ARGV[2] .. string.sub(cur, sep + 1), ARGV[1])
end
return 1
`

const revokeAllScript = `
local tokens = redis.call("SMEMBERS", KEYS[1])
for _, t in ipairs(tokens) do
  redis.call("DEL", ARGV[1] .. t)
end
redis.call("DEL", KEYS[1])
return #tokens
`

var (
	createLua    = redis.NewScript(createScript)
	rotateLua    = redis.NewScript(rotateScript)
	revokeLua    = redis.NewScript(revokeScript)
	revokeAllLua = redis.NewScript(revokeAllScript)
)

// RedisStore is a Redis-backed [Store]. Rotation and first-issuance are
// Lua scripts, so each operation is atomic on the server regardless of
// how many records it touches.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore]. prefix namespaces all keys;
// when empty the default "art" namespace is used.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "art"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisStore) tokenKey(tok string) string {
	return s.prefix + ":t:" + tok
}

func (s *RedisStore) tokenKeyPrefix() string {
	return s.prefix + ":t:"
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func encodeValue(userID string, expiresAt time.Time) string {
	return strconv.FormatInt(expiresAt.UnixMilli(), 10) + "|" + userID
}

func decodeValue(v string) (userID string, expiresMilli int64, ok bool) {
	sep := strings.IndexByte(v, '|')
	if sep < 0 {
		return "", 0, false
	}
	ms, err := strconv.ParseInt(v[:sep], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return v[sep+1:], ms, true
}

// Create deletes all prior records for userID and inserts the new one,
// atomically.
func (s *RedisStore) Create(ctx context.Context, userID, tok string, expiresAt time.Time) error {
	err := createLua.Run(ctx, s.redis,
		[]string{s.userKey(userID), s.tokenKey(tok)},
		s.tokenKeyPrefix(),
		tok,
		encodeValue(userID, expiresAt),
		expiresAt.UnixMilli(),
		time.Now().UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Validate returns the owning user id for a non-expired token. An
// expired row is revoked lazily and reported as not found.
func (s *RedisStore) Validate(ctx context.Context, tok string) (string, error) {
	v, err := s.redis.Get(ctx, s.tokenKey(tok)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	userID, expiresMilli, ok := decodeValue(v)
	if !ok {
		return "", ErrTokenNotFound
	}
	if expiresMilli <= time.Now().UnixMilli() {
		_ = s.Revoke(ctx, tok)
		return "", ErrTokenNotFound
	}

	return userID, nil
}

// Rotate consumes oldTok and inserts a fresh token for userID. The Lua
// compare-and-swap guarantees a single winner: when oldTok is already
// gone, expired, or owned by another user the call fails with
// ErrTokenRotated and inserts nothing.
func (s *RedisStore) Rotate(ctx context.Context, oldTok, userID string, expiresAt time.Time) (string, error) {
	newTok, err := New()
	if err != nil {
		return "", err
	}

	res, err := rotateLua.Run(ctx, s.redis,
		[]string{s.tokenKey(oldTok), s.tokenKey(newTok), s.userKey(userID)},
		oldTok,
		newTok,
		encodeValue(userID, expiresAt),
		expiresAt.UnixMilli(),
		time.Now().UnixMilli(),
		userID,
	).Int64()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if res != 1 {
		return "", ErrTokenRotated
	}

	return newTok, nil
}

// Revoke deletes a single record and its user-set index entry. Missing
// tokens are not an error.
func (s *RedisStore) Revoke(ctx context.Context, tok string) error {
	err := revokeLua.Run(ctx, s.redis,
		[]string{s.tokenKey(tok)},
		tok,
		s.prefix+":u:",
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeAll deletes every record for the user. Used for global
// sign-out and security response.
func (s *RedisStore) RevokeAll(ctx context.Context, userID string) error {
	err := revokeAllLua.Run(ctx, s.redis,
		[]string{s.userKey(userID)},
		s.tokenKeyPrefix(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
