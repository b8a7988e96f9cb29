package refresh

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/classhub/trustgate/internal/core"
)

var _ core.RefreshStore = (*RedisStore)(nil)

const DefaultKeyPrefix = "trustgate:refresh:"

// RedisStore keeps refresh records in Redis so any issuer replica can rotate them.
// Redis TTLs bound storage to the refresh lifetime.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	clock  clockwork.Clock
}

func NewRedisStore(client redis.UniversalClient, prefix string, clock clockwork.Clock) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		clock:  clock,
	}
}

func (r *RedisStore) tokenKey(hash string) string { return r.prefix + "token:" + hash }
func (r *RedisStore) usedKey(hash string) string  { return r.prefix + "used:" + hash }
func (r *RedisStore) familyKey(fid string) string { return r.prefix + "family:" + fid }

func (r *RedisStore) Save(ctx context.Context, hash string, rec core.RefreshRecord) error {
	ttl := rec.ExpiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return fmt.Errorf("refresh record for %s already expired", rec.Subject)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding refresh record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.tokenKey(hash), data, ttl)
	pipe.SAdd(ctx, r.familyKey(rec.FamilyID), hash)
	pipe.Expire(ctx, r.familyKey(rec.FamilyID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: saving refresh record: %w", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

// consumeScript moves a record from its token key to the used marker, keeping
// the remaining TTL. Replies {1, record}, {2, marker} for a reuse or {0}.
var consumeScript = redis.NewScript(`
local data = redis.call("GET", KEYS[1])
if data then
  local ttl = redis.call("PTTL", KEYS[1])
  redis.call("DEL", KEYS[1])
  if ttl > 0 then
    redis.call("SET", KEYS[2], data, "PX", ttl)
  end
  return {1, data}
end
local marker = redis.call("GET", KEYS[2])
if marker then
  return {2, marker}
end
return {0}
`)

const (
	consumeMissing = 0
	consumeFresh   = 1
	consumeReused  = 2
)

func (r *RedisStore) Consume(ctx context.Context, hash string) (*core.RefreshRecord, error) {
	reply, err := consumeScript.Run(ctx, r.client, []string{r.tokenKey(hash), r.usedKey(hash)}).Slice()
	if err != nil {
		return nil, fmt.Errorf("%w: consuming refresh record: %w", core.ErrUpstreamUnavailable, err)
	}
	if len(reply) == 0 {
		return nil, fmt.Errorf("%w: empty consume reply", core.ErrUpstreamUnavailable)
	}
	state, _ := reply[0].(int64)
	if state == consumeMissing {
		return nil, core.ErrInvalidRefreshToken
	}
	if len(reply) < 2 {
		return nil, fmt.Errorf("%w: consume reply without record", core.ErrUpstreamUnavailable)
	}
	data, _ := reply[1].(string)

	var rec core.RefreshRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decoding refresh record: %w", err)
	}
	if state == consumeReused {
		return &core.RefreshRecord{FamilyID: rec.FamilyID, Subject: rec.Subject}, core.ErrRefreshReused
	}
	if !r.clock.Now().Before(rec.ExpiresAt) {
		return nil, core.ErrInvalidRefreshToken
	}
	return &rec, nil
}

func (r *RedisStore) RevokeFamily(ctx context.Context, familyID string) error {
	hashes, err := r.client.SMembers(ctx, r.familyKey(familyID)).Result()
	if err != nil {
		return fmt.Errorf("%w: listing refresh family: %w", core.ErrUpstreamUnavailable, err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, r.tokenKey(h))
	}
	keys = append(keys, r.familyKey(familyID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: revoking refresh family: %w", core.ErrUpstreamUnavailable, err)
	}
	return nil
}
