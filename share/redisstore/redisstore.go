// Package redisstore implements share.Store on Redis. Each link is a hash;
// redeem and revoke run as Lua scripts so the check and the update are one
// server-side step.
package redisstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/redis"
	"github.com/kbukum/filevault/share"
	"github.com/kbukum/filevault/storage"
)

// DefaultRetention keeps a link readable this long after it expires.
const DefaultRetention = 7 * 24 * time.Hour

const (
	fieldFileID       = "file_id"
	fieldOwnerID      = "owner_id"
	fieldClass        = "class"
	fieldPath         = "path"
	fieldMaterialized = "materialized_path"
	fieldExpiresAt    = "expires_at_ms"
	fieldMax          = "max_redemptions"
	fieldCount        = "redemption_count"
	fieldRevokedAt    = "revoked_at_ms"
	fieldCreatedAt    = "created_at_ms"
)

// KEYS[1] link hash, KEYS[2] file index set, KEYS[3] copy schedule.
// ARGV[1] retention deadline ms, ARGV[2] now ms, ARGV[3] token,
// ARGV[4] copy member or '', ARGV[5] expires ms, ARGV[6..] fields.
var createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 6))
if ARGV[4] ~= '' then
  redis.call('ZADD', KEYS[3], ARGV[5], ARGV[4])
end
redis.call('PEXPIREAT', KEYS[1], ARGV[1])
if KEYS[2] ~= '' then
  redis.call('SADD', KEYS[2], ARGV[3])
  local want = tonumber(ARGV[1]) - tonumber(ARGV[2])
  local ttl = redis.call('PTTL', KEYS[2])
  if ttl < want then
    redis.call('PEXPIRE', KEYS[2], want)
  end
end
return 1
`)

// Redeem status codes; a positive result is the new redemption count.
const (
	statusNotFound  = -1
	statusRevoked   = -2
	statusExpired   = -3
	statusExhausted = -4
)

// KEYS[1] link hash. ARGV[1] now ms.
var redeemScript = goredis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'expires_at_ms', 'max_redemptions', 'redemption_count', 'revoked_at_ms')
if not h[1] then
  return -1
end
if h[4] and tonumber(h[4]) > 0 then
  return -2
end
if tonumber(ARGV[1]) >= tonumber(h[1]) then
  return -3
end
if tonumber(h[3]) >= tonumber(h[2]) then
  return -4
end
return redis.call('HINCRBY', KEYS[1], 'redemption_count', 1)
`)

// KEYS[1] link hash. ARGV[1] revoked-at ms.
var revokeScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSETNX', KEYS[1], 'revoked_at_ms', ARGV[1])
return 1
`)

// KEYS[1] copy schedule, KEYS[2] link hash. ARGV[1] copy member.
var takeCopyScript = goredis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
  return 0
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  redis.call('HSET', KEYS[2], 'materialized_path', '')
end
return 1
`)

// Store implements share.Store on Redis.
type Store struct {
	client    *redis.Client
	retention time.Duration
	log       *logger.Logger
}

// ensure Store satisfies share.Store.
var _ share.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRetention sets how long links stay readable after expiry.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l.WithComponent("share.redis") }
}

// New creates a Store backed by client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, retention: DefaultRetention, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) linkKey(token string) string {
	return s.client.Key("share", token)
}

func (s *Store) fileKey(fileID string) string {
	return s.client.Key("share", "file", fileID)
}

// copiesKey is a sorted set of "token path" members scored by expiry. The
// path lives in the member so a copy is still found after its link hash has
// aged out.
func (s *Store) copiesKey() string {
	return s.client.Key("share", "copies")
}

func (s *Store) Create(ctx context.Context, link *share.Link) error {
	fileKey := ""
	if link.FileID != "" {
		fileKey = s.fileKey(link.FileID)
	}
	member := ""
	if link.MaterializedPath != "" {
		member = link.Token + " " + link.MaterializedPath
	}
	deadline := link.ExpiresAt.Add(s.retention).UnixMilli()
	args := []interface{}{deadline, time.Now().UnixMilli(), link.Token, member, link.ExpiresAt.UnixMilli()}
	args = append(args, encode(link)...)

	created, err := createScript.Run(ctx, s.client.Unwrap(),
		[]string{s.linkKey(link.Token), fileKey, s.copiesKey()}, args...).Int64()
	if err != nil {
		return s.unavailable("create", err)
	}
	if created == 0 {
		return errors.AlreadyExists("share link")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, token string) (*share.Link, error) {
	fields, err := s.client.Unwrap().HGetAll(ctx, s.linkKey(token)).Result()
	if err != nil {
		return nil, s.unavailable("get", err)
	}
	if len(fields) == 0 {
		return nil, errors.NotFound("share link", "")
	}
	return decode(token, fields), nil
}

func (s *Store) Redeem(ctx context.Context, token string, now time.Time) (*share.Link, error) {
	status, err := redeemScript.Run(ctx, s.client.Unwrap(),
		[]string{s.linkKey(token)}, now.UnixMilli()).Int64()
	if err != nil {
		return nil, s.unavailable("redeem", err)
	}

	switch status {
	case statusNotFound:
		return nil, errors.NotFound("share link", "")
	case statusRevoked:
		return nil, share.RedeemError(share.StateRevoked)
	case statusExpired:
		return nil, share.RedeemError(share.StateExpired)
	case statusExhausted:
		return nil, share.RedeemError(share.StateExhausted)
	}

	link, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	link.RedemptionCount = int(status)
	return link, nil
}

func (s *Store) Revoke(ctx context.Context, token string, at time.Time) (*share.Link, error) {
	ok, err := revokeScript.Run(ctx, s.client.Unwrap(),
		[]string{s.linkKey(token)}, at.UnixMilli()).Int64()
	if err != nil {
		return nil, s.unavailable("revoke", err)
	}
	if ok == 0 {
		return nil, errors.NotFound("share link", "")
	}
	return s.Get(ctx, token)
}

func (s *Store) ListByFile(ctx context.Context, fileID string) ([]*share.Link, error) {
	rdb := s.client.Unwrap()
	tokens, err := rdb.SMembers(ctx, s.fileKey(fileID)).Result()
	if err != nil {
		return nil, s.unavailable("list", err)
	}

	out := make([]*share.Link, 0, len(tokens))
	var stale []interface{}
	for _, token := range tokens {
		link, err := s.Get(ctx, token)
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			stale = append(stale, token)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	if len(stale) > 0 {
		if err := rdb.SRem(ctx, s.fileKey(fileID), stale...).Err(); err != nil {
			s.log.Warn("failed to prune share index", logger.ErrorFields("list", err))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) TakeExpiredCopies(ctx context.Context, now time.Time, limit int) ([]share.Copy, error) {
	rdb := s.client.Unwrap()
	members, err := rdb.ZRangeByScore(ctx, s.copiesKey(), &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, s.unavailable("sweep", err)
	}

	out := make([]share.Copy, 0, len(members))
	for _, m := range members {
		token, path, ok := strings.Cut(m, " ")
		if !ok {
			continue
		}
		taken, err := takeCopyScript.Run(ctx, rdb, []string{s.copiesKey(), s.linkKey(token)}, m).Int64()
		if err != nil {
			return out, s.unavailable("sweep", err)
		}
		if taken == 1 {
			out = append(out, share.Copy{Token: token, Path: path})
		}
	}
	return out, nil
}

func (s *Store) unavailable(op string, err error) error {
	s.log.Error("redis share store failed", logger.ErrorFields(op, err))
	return errors.BackendUnavailable("share store", err)
}

func encode(l *share.Link) []interface{} {
	return []interface{}{
		fieldFileID, l.FileID,
		fieldOwnerID, l.OwnerID,
		fieldClass, string(l.Object.Class),
		fieldPath, l.Object.Path,
		fieldMaterialized, l.MaterializedPath,
		fieldExpiresAt, l.ExpiresAt.UnixMilli(),
		fieldMax, l.MaxRedemptions,
		fieldCount, l.RedemptionCount,
		fieldCreatedAt, l.CreatedAt.UnixMilli(),
	}
}

func decode(token string, f map[string]string) *share.Link {
	l := &share.Link{
		Token:            token,
		Object:           share.ObjectRef{Class: storage.Class(f[fieldClass]), Path: f[fieldPath]},
		FileID:           f[fieldFileID],
		OwnerID:          f[fieldOwnerID],
		ExpiresAt:        fromMillis(f[fieldExpiresAt]),
		MaxRedemptions:   atoi(f[fieldMax]),
		RedemptionCount:  atoi(f[fieldCount]),
		MaterializedPath: f[fieldMaterialized],
		CreatedAt:        fromMillis(f[fieldCreatedAt]),
	}
	if ms, _ := strconv.ParseInt(f[fieldRevokedAt], 10, 64); ms > 0 {
		l.RevokedAt = time.UnixMilli(ms).UTC()
	}
	return l
}

func fromMillis(s string) time.Time {
	ms, _ := strconv.ParseInt(s, 10, 64)
	return time.UnixMilli(ms).UTC()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
