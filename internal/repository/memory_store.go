package repository

import (
	"context"
	"sync"

	"github.com/grahaedukasi/graha-cbt/internal/model"
)

// MemoryStore keeps every collection in process memory. Used for tests and
// STORAGE_DRIVER=memory.
type MemoryStore struct {
	mu        sync.RWMutex
	students  []model.Student
	questions []model.Question
	config    *model.ExamConfig
	subjects  []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) GetStudents(_ context.Context) ([]model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Student, len(m.students))
	for i, s := range m.students {
		out[i] = s.Clone()
	}
	return out, nil
}

func (m *MemoryStore) SaveStudent(_ context.Context, s model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students = upsertStudent(m.students, s.Clone())
	return nil
}

func (m *MemoryStore) DeleteStudent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.students {
		if m.students[i].ID == id {
			m.students = append(m.students[:i], m.students[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) GetQuestions(_ context.Context) ([]model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Question(nil), m.questions...), nil
}

func (m *MemoryStore) SaveQuestion(_ context.Context, q model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = upsertQuestion(m.questions, q)
	return nil
}

func (m *MemoryStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.questions {
		if m.questions[i].ID == id {
			m.questions = append(m.questions[:i], m.questions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) GetExamConfig(_ context.Context) (model.ExamConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return model.DefaultExamConfig(), nil
	}
	return *m.config, nil
}

func (m *MemoryStore) SaveExamConfig(_ context.Context, cfg model.ExamConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = &cfg
	return nil
}

func (m *MemoryStore) GetSubjects(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.subjects == nil {
		return defaultSubjects(), nil
	}
	return append([]string(nil), m.subjects...), nil
}

func (m *MemoryStore) SaveSubjects(_ context.Context, subjects []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append([]string{}, subjects...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
