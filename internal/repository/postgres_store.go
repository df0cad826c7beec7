package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/model"
)

// PostgresStore keeps records as JSONB documents. The schema lives in
// migrations/ and is applied with cmd/migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresStore) GetStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx, `SELECT data FROM students ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var s model.Student
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func (r *PostgresStore) SaveStudent(ctx context.Context, s model.Student) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO students (id, code, status, data, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET code = EXCLUDED.code, status = EXCLUDED.status, data = EXCLUDED.data, updated_at = NOW()`,
		s.ID, s.Code, string(s.Status), data,
	)
	return err
}

func (r *PostgresStore) DeleteStudent(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresStore) GetQuestions(ctx context.Context) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx, `SELECT data FROM questions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var q model.Question
		if err := json.Unmarshal(data, &q); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *PostgresStore) SaveQuestion(ctx context.Context, q model.Question) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO questions (id, subject, data, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET subject = EXCLUDED.subject, data = EXCLUDED.data, updated_at = NOW()`,
		q.ID, q.SubjectOrDefault(), data,
	)
	return err
}

func (r *PostgresStore) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresStore) GetExamConfig(ctx context.Context) (model.ExamConfig, error) {
	cfg := model.DefaultExamConfig()
	found, err := r.getSetting(ctx, config.StorageKey.Config, &cfg)
	if err != nil || !found {
		return model.DefaultExamConfig(), err
	}
	return cfg, nil
}

func (r *PostgresStore) SaveExamConfig(ctx context.Context, cfg model.ExamConfig) error {
	return r.putSetting(ctx, config.StorageKey.Config, cfg)
}

func (r *PostgresStore) GetSubjects(ctx context.Context) ([]string, error) {
	var subjects []string
	found, err := r.getSetting(ctx, config.StorageKey.Subjects, &subjects)
	if err != nil {
		return nil, err
	}
	if !found {
		return defaultSubjects(), nil
	}
	return subjects, nil
}

func (r *PostgresStore) SaveSubjects(ctx context.Context, subjects []string) error {
	return r.putSetting(ctx, config.StorageKey.Subjects, subjects)
}

func (r *PostgresStore) getSetting(ctx context.Context, key string, dst any) (bool, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM settings WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get setting %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

func (r *PostgresStore) putSetting(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO settings (key, data, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		key, data,
	)
	return err
}
