package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	appendStatusNoUser    int64 = 0
	appendStatusDuplicate int64 = 1
	appendStatusAppended  int64 = 2

	replaceStatusNotFound  int64 = 0
	replaceStatusDuplicate int64 = 1
	replaceStatusReplaced  int64 = 2
)

const createUserScript = `
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[2], "id", ARGV[1], "email", ARGV[2], "name", ARGV[3], "pw", ARGV[4], "created", ARGV[5])
return 1
`

var createUserLua = redis.NewScript(createUserScript)

const appendSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("ZSCORE", KEYS[2], ARGV[1]) then
  return 1
end
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[1])
return 2
`

var appendSessionLua = redis.NewScript(appendSessionScript)

const replaceSessionScript = `
if not redis.call("ZSCORE", KEYS[1], ARGV[1]) then
  return 0
end
if redis.call("ZSCORE", KEYS[1], ARGV[2]) then
  return 1
end
redis.call("ZREM", KEYS[1], ARGV[1])
redis.call("ZADD", KEYS[1], ARGV[3], ARGV[2])
return 2
`

var replaceSessionLua = redis.NewScript(replaceSessionScript)

const updatePasswordScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "pw", ARGV[1])
return 1
`

var updatePasswordLua = redis.NewScript(updatePasswordScript)

// RedisStore keeps each user in a hash, an email index as plain keys, and the
// session list in a sorted set scored by creation time in milliseconds.
// Rotation is a single Lua compare-and-swap over that sorted set.
//
// The store needs a single Redis node (or a Sentinel-managed primary). User
// creation writes the email index and the user hash in one script, and those
// keys hash to different cluster slots, so Redis Cluster would reject it with
// CROSSSLOT.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a [RedisStore]. prefix namespaces every key; empty selects "ff".
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ff"
	}
	return &RedisStore{redis: rdb, prefix: prefix}
}

func (s *RedisStore) userKey(id string) string {
	return s.prefix + ":u:{" + id + "}"
}

func (s *RedisStore) sessionsKey(id string) string {
	return s.prefix + ":s:{" + id + "}"
}

func (s *RedisStore) emailKey(email string) string {
	return s.prefix + ":e:" + email
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// CreateUser stores u and claims its email atomically. Sessions on u are ignored;
// callers add them with Append.
func (s *RedisStore) CreateUser(ctx context.Context, u *User) error {
	res, err := createUserLua.Run(
		ctx,
		s.redis,
		[]string{s.emailKey(u.Email), s.userKey(u.ID)},
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.CreatedAt.UnixMilli(),
	).Int64()
	if err != nil {
		return unavailable(err)
	}
	if res == 0 {
		return ErrEmailTaken
	}
	return nil
}

// GetUserByID reads the user hash and session list in one pipeline.
func (s *RedisStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	pipe := s.redis.Pipeline()
	fieldsCmd := pipe.HGetAll(ctx, s.userKey(id))
	sessionsCmd := pipe.ZRangeWithScores(ctx, s.sessionsKey(id), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable(err)
	}

	fields, err := fieldsCmd.Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}

	created, err := strconv.ParseInt(fields["created"], 10, 64)
	if err != nil {
		return nil, unavailable(fmt.Errorf("corrupt user record %s", id))
	}

	members, err := sessionsCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable(err)
	}
	sessions := make([]Session, 0, len(members))
	for _, z := range members {
		tokenID, ok := z.Member.(string)
		if !ok {
			continue
		}
		sessions = append(sessions, Session{
			TokenID:   tokenID,
			CreatedAt: time.UnixMilli(int64(z.Score)).UTC(),
		})
	}

	return &User{
		ID:           fields["id"],
		Email:        fields["email"],
		PasswordHash: fields["pw"],
		Name:         fields["name"],
		Sessions:     sessions,
		CreatedAt:    time.UnixMilli(created).UTC(),
	}, nil
}

func (s *RedisStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable(err)
	}
	return s.GetUserByID(ctx, id)
}

// Append adds sess to the user's list.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) Append(ctx context.Context, userID string, sess Session) error {
	res, err := appendSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(userID), s.sessionsKey(userID)},
		sess.TokenID,
		sess.CreatedAt.UnixMilli(),
	).Int64()
	if err != nil {
		return unavailable(err)
	}

	switch res {
	case appendStatusAppended:
		return nil
	case appendStatusDuplicate:
		return ErrDuplicateSession
	case appendStatusNoUser:
		return ErrUserNotFound
	default:
		return fmt.Errorf("%w: unknown append script status", ErrStoreUnavailable)
	}
}

func (s *RedisStore) Remove(ctx context.Context, userID, tokenID string) (bool, error) {
	n, err := s.redis.ZRem(ctx, s.sessionsKey(userID), tokenID).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// Replace swaps oldTokenID for next in one compare-and-swap script. Exactly one of
// several concurrent callers presenting the same oldTokenID succeeds.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) Replace(ctx context.Context, userID, oldTokenID string, next Session) error {
	res, err := replaceSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.sessionsKey(userID)},
		oldTokenID,
		next.TokenID,
		next.CreatedAt.UnixMilli(),
	).Int64()
	if err != nil {
		return unavailable(err)
	}

	switch res {
	case replaceStatusReplaced:
		return nil
	case replaceStatusNotFound:
		return ErrSessionNotFound
	case replaceStatusDuplicate:
		return ErrDuplicateSession
	default:
		return fmt.Errorf("%w: unknown replace script status", ErrStoreUnavailable)
	}
}

func (s *RedisStore) Contains(ctx context.Context, userID, tokenID string) (bool, error) {
	_, err := s.redis.ZScore(ctx, s.sessionsKey(userID), tokenID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, unavailable(err)
	}
	return true, nil
}

// Prune removes every session created strictly before createdBefore.
func (s *RedisStore) Prune(ctx context.Context, userID string, createdBefore time.Time) (int, error) {
	max := "(" + strconv.FormatInt(createdBefore.UnixMilli(), 10)
	n, err := s.redis.ZRemRangeByScore(ctx, s.sessionsKey(userID), "-inf", max).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}

func (s *RedisStore) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	res, err := updatePasswordLua.Run(ctx, s.redis, []string{s.userKey(userID)}, hash).Int64()
	if err != nil {
		return unavailable(err)
	}
	if res == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}
