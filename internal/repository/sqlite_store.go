package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists each record as a JSON document in a local SQLite file.
// Insertion order is kept through the autoincrement seq column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at path.
// Pass ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetStudents(ctx context.Context) ([]model.Student, error) {
	out := []model.Student{}
	err := s.scanAll(ctx, "students", func(data []byte) error {
		var st model.Student
		if err := json.Unmarshal(data, &st); err != nil {
			return err
		}
		out = append(out, st)
		return nil
	})
	return out, err
}

func (s *SQLiteStore) SaveStudent(ctx context.Context, st model.Student) error {
	return s.upsert(ctx, "students", st.ID, st)
}

func (s *SQLiteStore) DeleteStudent(ctx context.Context, id string) error {
	return s.delete(ctx, "students", id)
}

func (s *SQLiteStore) GetQuestions(ctx context.Context) ([]model.Question, error) {
	out := []model.Question{}
	err := s.scanAll(ctx, "questions", func(data []byte) error {
		var q model.Question
		if err := json.Unmarshal(data, &q); err != nil {
			return err
		}
		out = append(out, q)
		return nil
	})
	return out, err
}

func (s *SQLiteStore) SaveQuestion(ctx context.Context, q model.Question) error {
	return s.upsert(ctx, "questions", q.ID, q)
}

func (s *SQLiteStore) DeleteQuestion(ctx context.Context, id string) error {
	return s.delete(ctx, "questions", id)
}

func (s *SQLiteStore) GetExamConfig(ctx context.Context) (model.ExamConfig, error) {
	cfg := model.DefaultExamConfig()
	found, err := s.getSetting(ctx, config.StorageKey.Config, &cfg)
	if err != nil || !found {
		return model.DefaultExamConfig(), err
	}
	return cfg, nil
}

func (s *SQLiteStore) SaveExamConfig(ctx context.Context, cfg model.ExamConfig) error {
	return s.putSetting(ctx, config.StorageKey.Config, cfg)
}

func (s *SQLiteStore) GetSubjects(ctx context.Context) ([]string, error) {
	var subjects []string
	found, err := s.getSetting(ctx, config.StorageKey.Subjects, &subjects)
	if err != nil {
		return nil, err
	}
	if !found {
		return defaultSubjects(), nil
	}
	return subjects, nil
}

func (s *SQLiteStore) SaveSubjects(ctx context.Context, subjects []string) error {
	return s.putSetting(ctx, config.StorageKey.Subjects, subjects)
}

// table is always one of the constant names above, never user input.
func (s *SQLiteStore) scanAll(ctx context.Context, table string, fn func([]byte) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM `+table+` ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		if err := fn(data); err != nil {
			return fmt.Errorf("decode %s: %w", table, err)
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) upsert(ctx context.Context, table, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, data) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		id, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteStore) delete(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) getSetting(ctx context.Context, key string, dst any) (bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) putSetting(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, data) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data`,
		key, string(data),
	)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}
