// Package repository persists the CBT collections. Every backend implements
// Store with whole-record upsert semantics keyed by id.
package repository

import (
	"context"
	"errors"

	"github.com/grahaedukasi/graha-cbt/internal/model"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the storage port consumed by the services and the session controller.
type Store interface {
	GetStudents(ctx context.Context) ([]model.Student, error)
	SaveStudent(ctx context.Context, s model.Student) error
	DeleteStudent(ctx context.Context, id string) error

	GetQuestions(ctx context.Context) ([]model.Question, error)
	SaveQuestion(ctx context.Context, q model.Question) error
	DeleteQuestion(ctx context.Context, id string) error

	GetExamConfig(ctx context.Context) (model.ExamConfig, error)
	SaveExamConfig(ctx context.Context, cfg model.ExamConfig) error

	GetSubjects(ctx context.Context) ([]string, error)
	SaveSubjects(ctx context.Context, subjects []string) error

	Close() error
}

// FindStudent returns the student with id from s.
func FindStudent(ctx context.Context, s Store, id string) (model.Student, error) {
	students, err := s.GetStudents(ctx)
	if err != nil {
		return model.Student{}, err
	}
	for _, st := range students {
		if st.ID == id {
			return st, nil
		}
	}
	return model.Student{}, ErrNotFound
}

// FindQuestion returns the question with id from s.
func FindQuestion(ctx context.Context, s Store, id string) (model.Question, error) {
	questions, err := s.GetQuestions(ctx)
	if err != nil {
		return model.Question{}, err
	}
	for _, q := range questions {
		if q.ID == id {
			return q, nil
		}
	}
	return model.Question{}, ErrNotFound
}

func upsertStudent(list []model.Student, s model.Student) []model.Student {
	for i := range list {
		if list[i].ID == s.ID {
			list[i] = s
			return list
		}
	}
	return append(list, s)
}

func upsertQuestion(list []model.Question, q model.Question) []model.Question {
	for i := range list {
		if list[i].ID == q.ID {
			list[i] = q
			return list
		}
	}
	return append(list, q)
}

func defaultSubjects() []string {
	return append([]string(nil), model.DefaultSubjects...)
}
