package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const runsIndexKey = "feedsim:runs"

func runKey(id string) string {
	return fmt.Sprintf("feedsim:run:%s", id)
}

// RedisStore implements Store on Redis. Each run is a JSON blob and a sorted
// set indexes run IDs by creation time.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis creates a store on an existing client. A positive ttl expires runs.
func NewRedis(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) SaveRun(ctx context.Context, run *Run) error {
	prepare(run)
	b, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, runKey(run.ID), b, s.ttl)
		pipe.ZAdd(ctx, runsIndexKey, redis.Z{
			Score:  float64(run.CreatedAt.UnixMilli()),
			Member: run.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (s *RedisStore) GetRun(ctx context.Context, id string) (*Run, error) {
	b, err := s.rdb.Get(ctx, runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	var run Run
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns the newest runs without their results. Index entries whose
// run has expired are pruned, and the page keeps reading older entries until
// it is full or the index is exhausted.
func (s *RedisStore) ListRuns(ctx context.Context, opts ListOpts) ([]Run, error) {
	limit := listLimit(opts)
	runs := make([]Run, 0, limit)
	var stale []any

	for start := int64(0); len(runs) < limit; {
		ids, err := s.rdb.ZRevRange(ctx, runsIndexKey, start, start+int64(limit)-1).Result()
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		start += int64(len(ids))

		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = runKey(id)
		}
		values, err := s.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}

		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				stale = append(stale, ids[i])
				continue
			}
			if len(runs) == limit {
				continue
			}
			var run Run
			if err := json.Unmarshal([]byte(raw), &run); err != nil {
				return nil, fmt.Errorf("decode run %s: %w", ids[i], err)
			}
			run.Results = nil
			runs = append(runs, run)
		}
	}

	if len(stale) > 0 {
		_ = s.rdb.ZRem(ctx, runsIndexKey, stale...).Err()
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs, nil
}

func (s *RedisStore) DeleteRun(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, runKey(id))
		pipe.ZRem(ctx, runsIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}
