package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore shares entries between processes. Data keys embed the namespace
// generation and the key epoch, so bumping either counter with INCR makes
// every older value unreachable atomically.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	log    logrus.FieldLogger
}

var _ Store = (*RedisStore)(nil)

const (
	scanBatch = 200
	// Bounds the lifetime of entries orphaned by a crashed writer.
	entryTTL = time.Hour
)

func NewRedisStore(rdb *redis.Client, prefix string, log logrus.FieldLogger) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix + "cache:", log: log}
}

func (s *RedisStore) GetOrCompute(ctx context.Context, key Key, loader Loader) ([]byte, error) {
	gen, epoch, err := s.counters(ctx, key)
	if err != nil {
		// Without counters nothing can be stored safely; serve from the loader.
		s.log.WithError(err).WithField("key", key.String()).Warn("cache counters unavailable")
		return loader(ctx)
	}

	dk := s.dataKey(key, gen, epoch)
	data, err := s.rdb.Get(ctx, dk).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.WithError(err).WithField("key", key.String()).Warn("cache read failed")
	}

	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, dk, v, entryTTL).Err(); err != nil {
		s.log.WithError(err).WithField("key", key.String()).Warn("cache write failed")
		return v, nil
	}
	s.dropIfStale(ctx, key, dk, gen, epoch)
	return v, nil
}

// dropIfStale deletes a value written under counters that an eviction bumped
// while the loader ran. The eviction's purge has already passed that key.
func (s *RedisStore) dropIfStale(ctx context.Context, key Key, dk string, gen, epoch int64) {
	nowGen, nowEpoch, err := s.counters(ctx, key)
	if err == nil && nowGen == gen && nowEpoch == epoch {
		return
	}
	if err := s.rdb.Del(ctx, dk).Err(); err != nil {
		s.log.WithError(err).WithField("key", key.String()).Warn("cache cleanup failed")
	}
}

func (s *RedisStore) Evict(ctx context.Context, key Key) error {
	gen, err := s.readCounter(ctx, s.genKey(key.Namespace))
	if err != nil {
		return fmt.Errorf("evict %s: %w", key, err)
	}
	epoch, err := s.rdb.Incr(ctx, s.epochKey(key)).Result()
	if err != nil {
		return fmt.Errorf("evict %s: %w", key, err)
	}
	// The old value is already unreachable; deleting it only frees memory.
	if err := s.rdb.Del(ctx, s.dataKey(key, gen, epoch-1)).Err(); err != nil {
		s.log.WithError(err).WithField("key", key.String()).Warn("cache cleanup failed")
	}
	return nil
}

func (s *RedisStore) EvictNamespace(ctx context.Context, namespace string) error {
	gen, err := s.rdb.Incr(ctx, s.genKey(namespace)).Result()
	if err != nil {
		return fmt.Errorf("evict namespace %s: %w", namespace, err)
	}
	if err := s.purge(ctx, s.prefix+namespace+":"+strconv.FormatInt(gen-1, 10)+":*"); err != nil {
		s.log.WithError(err).WithField("namespace", namespace).Warn("cache cleanup failed")
	}
	return nil
}

func (s *RedisStore) purge(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Unlink(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisStore) counters(ctx context.Context, key Key) (gen, epoch int64, err error) {
	vals, err := s.rdb.MGet(ctx, s.genKey(key.Namespace), s.epochKey(key)).Result()
	if err != nil {
		return 0, 0, err
	}
	if gen, err = parseCounter(vals[0]); err != nil {
		return 0, 0, err
	}
	if epoch, err = parseCounter(vals[1]); err != nil {
		return 0, 0, err
	}
	return gen, epoch, nil
}

func (s *RedisStore) readCounter(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func parseCounter(v interface{}) (int64, error) {
	if v == nil {
		return 0, nil
	}
	str, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected counter type %T", v)
	}
	return strconv.ParseInt(str, 10, 64)
}

func (s *RedisStore) genKey(namespace string) string {
	return s.prefix + "gen:" + namespace
}

func (s *RedisStore) epochKey(key Key) string {
	return s.prefix + "epoch:" + key.Namespace + ":" + key.ID
}

func (s *RedisStore) dataKey(key Key, gen, epoch int64) string {
	return fmt.Sprintf("%s%s:%d:%d:%s", s.prefix, key.Namespace, gen, epoch, key.ID)
}
