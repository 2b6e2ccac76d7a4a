package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tokensafe/internal/ledger"
	"tokensafe/pkg/platform/sentinel"
)

// Redis key prefix for record blobs.
const recordKeyPrefix = "rec:"

// RedisRecordStore persists records as raw blobs keyed by address. SETNX
// gives create-if-absent; a Lua script guards Write so it never creates.
type RedisRecordStore struct {
	client *redis.Client
}

func NewRedisRecordStore(client *redis.Client) *RedisRecordStore {
	return &RedisRecordStore{client: client}
}

// writeIfExists replaces the value only when the key is present, returning
// the number of keys updated. Keeps Write atomic without a WATCH loop.
var writeIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	redis.call("SET", KEYS[1], ARGV[1])
	return 1
end
return 0
`)

func (s *RedisRecordStore) Create(ctx context.Context, addr ledger.Address, size int, data []byte) error {
	if len(data) != size {
		return fmt.Errorf("create %s: data length %d does not match declared size %d", addr, len(data), size)
	}
	ok, err := s.client.SetNX(ctx, recordKeyPrefix+addr.String(), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create %s: %w", addr, err)
	}
	if !ok {
		return fmt.Errorf("create %s: %w", addr, sentinel.ErrAlreadyExists)
	}
	return nil
}

func (s *RedisRecordStore) Read(ctx context.Context, addr ledger.Address) ([]byte, error) {
	data, err := s.client.Get(ctx, recordKeyPrefix+addr.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read %s: %w", addr, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", addr, err)
	}
	return data, nil
}

func (s *RedisRecordStore) Write(ctx context.Context, addr ledger.Address, data []byte) error {
	updated, err := writeIfExists.Run(ctx, s.client, []string{recordKeyPrefix + addr.String()}, data).Int()
	if err != nil {
		return fmt.Errorf("write %s: %w", addr, err)
	}
	if updated == 0 {
		return fmt.Errorf("write %s: %w", addr, sentinel.ErrNotFound)
	}
	return nil
}
