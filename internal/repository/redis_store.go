package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/model"
)

// maxTxRetries bounds optimistic-lock retries on concurrent collection writes.
const maxTxRetries = 10

// RedisStore stores each collection as one JSON value under a fixed key,
// mirroring whole-collection read/replace. Upserts use WATCH so two writers
// never drop each other's records.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an open client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func (r *RedisStore) GetStudents(ctx context.Context) ([]model.Student, error) {
	students := []model.Student{}
	if _, err := r.load(ctx, r.rdb, config.StorageKey.Students, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *RedisStore) SaveStudent(ctx context.Context, s model.Student) error {
	return r.update(ctx, config.StorageKey.Students, func(tx *redis.Tx) (any, error) {
		students := []model.Student{}
		if _, err := r.load(ctx, tx, config.StorageKey.Students, &students); err != nil {
			return nil, err
		}
		return upsertStudent(students, s), nil
	})
}

func (r *RedisStore) DeleteStudent(ctx context.Context, id string) error {
	return r.update(ctx, config.StorageKey.Students, func(tx *redis.Tx) (any, error) {
		students := []model.Student{}
		if _, err := r.load(ctx, tx, config.StorageKey.Students, &students); err != nil {
			return nil, err
		}
		for i := range students {
			if students[i].ID == id {
				return append(students[:i], students[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *RedisStore) GetQuestions(ctx context.Context) ([]model.Question, error) {
	questions := []model.Question{}
	if _, err := r.load(ctx, r.rdb, config.StorageKey.Questions, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *RedisStore) SaveQuestion(ctx context.Context, q model.Question) error {
	return r.update(ctx, config.StorageKey.Questions, func(tx *redis.Tx) (any, error) {
		questions := []model.Question{}
		if _, err := r.load(ctx, tx, config.StorageKey.Questions, &questions); err != nil {
			return nil, err
		}
		return upsertQuestion(questions, q), nil
	})
}

func (r *RedisStore) DeleteQuestion(ctx context.Context, id string) error {
	return r.update(ctx, config.StorageKey.Questions, func(tx *redis.Tx) (any, error) {
		questions := []model.Question{}
		if _, err := r.load(ctx, tx, config.StorageKey.Questions, &questions); err != nil {
			return nil, err
		}
		for i := range questions {
			if questions[i].ID == id {
				return append(questions[:i], questions[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *RedisStore) GetExamConfig(ctx context.Context) (model.ExamConfig, error) {
	cfg := model.DefaultExamConfig()
	found, err := r.load(ctx, r.rdb, config.StorageKey.Config, &cfg)
	if err != nil || !found {
		return model.DefaultExamConfig(), err
	}
	return cfg, nil
}

func (r *RedisStore) SaveExamConfig(ctx context.Context, cfg model.ExamConfig) error {
	return r.put(ctx, config.StorageKey.Config, cfg)
}

func (r *RedisStore) GetSubjects(ctx context.Context) ([]string, error) {
	var subjects []string
	found, err := r.load(ctx, r.rdb, config.StorageKey.Subjects, &subjects)
	if err != nil {
		return nil, err
	}
	if !found {
		return defaultSubjects(), nil
	}
	return subjects, nil
}

func (r *RedisStore) SaveSubjects(ctx context.Context, subjects []string) error {
	return r.put(ctx, config.StorageKey.Subjects, subjects)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) load(ctx context.Context, c getter, key string, dst any) (bool, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStore) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, data, 0).Err()
}

// update runs a read-modify-write of key under WATCH, retrying on conflict.
func (r *RedisStore) update(ctx context.Context, key string, fn func(tx *redis.Tx) (any, error)) error {
	txf := func(tx *redis.Tx) error {
		next, err := fn(tx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: too many concurrent writers", key)
}
