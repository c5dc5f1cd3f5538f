package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisRunStore is a RunStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>run:<id>                => gob-encoded run
//	<prefix>idx:all                 => ZSET of run IDs scored by start time
//	<prefix>idx:plan:<plan>         => ZSET of run IDs for a given plan
//	<prefix>idx:status:<status>     => ZSET of run IDs for a given status
type RedisRunStore struct {
	client redis.UniversalClient
	prefix string
}

var _ RunStore = (*RedisRunStore)(nil)

// NewRedisRunStore creates a RedisRunStore.
// prefix is optional and defaults to "plano:".
func NewRedisRunStore(client redis.UniversalClient, prefix string) *RedisRunStore {
	if prefix == "" {
		prefix = "plano:"
	}
	return &RedisRunStore{client: client, prefix: prefix}
}

func (s *RedisRunStore) keyRun(id string) string       { return s.prefix + "run:" + id }
func (s *RedisRunStore) keyAll() string                { return s.prefix + "idx:all" }
func (s *RedisRunStore) keyPlan(plan string) string    { return s.prefix + "idx:plan:" + plan }
func (s *RedisRunStore) keyStatus(st RunStatus) string { return s.prefix + "idx:status:" + string(st) }

func encodeRedisPayload(rec *RunRecord) ([]byte, error) {
	e, err := encodeRun(rec)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisPayload(data []byte) (*RunRecord, error) {
	var e encodedRun
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return nil, err
	}
	return e.decode()
}

func (s *RedisRunStore) SaveRun(ctx context.Context, rec *RunRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	payload, err := encodeRedisPayload(rec)
	if err != nil {
		return err
	}

	// A replaced record may have changed plan or status; drop its old index
	// entries.
	old, err := s.GetRun(ctx, rec.ID)
	if err != nil && !errors.Is(err, ErrRunNotFound) {
		return err
	}

	score := float64(rec.Started.UnixNano())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if old != nil {
			pipe.ZRem(ctx, s.keyPlan(old.Plan), rec.ID)
			pipe.ZRem(ctx, s.keyStatus(old.Status), rec.ID)
		}
		pipe.Set(ctx, s.keyRun(rec.ID), payload, 0)
		pipe.ZAdd(ctx, s.keyAll(), redis.Z{Score: score, Member: rec.ID})
		pipe.ZAdd(ctx, s.keyPlan(rec.Plan), redis.Z{Score: score, Member: rec.ID})
		pipe.ZAdd(ctx, s.keyStatus(rec.Status), redis.Z{Score: score, Member: rec.ID})
		return nil
	})
	return err
}

func (s *RedisRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	data, err := s.client.Get(ctx, s.keyRun(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRedisPayload(data)
}

func (s *RedisRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	index := s.keyAll()
	switch {
	case filter.Plan != "":
		index = s.keyPlan(filter.Plan)
	case filter.Status != "":
		index = s.keyStatus(filter.Status)
	}

	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keyRun(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var out []*RunRecord
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Index entry without a record.
			continue
		}
		rec, err := decodeRedisPayload([]byte(str))
		if err != nil {
			return nil, err
		}
		if filter.match(rec) {
			out = append(out, rec)
		}
	}
	return sortAndLimit(out, filter.Limit), nil
}
