package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/repository"
)

type SubjectService struct {
	store repository.Store
	log   zerolog.Logger
}

func NewSubjectService(store repository.Store, log zerolog.Logger) *SubjectService {
	return &SubjectService{
		store: store,
		log:   log.With().Str("component", "subject_service").Logger(),
	}
}

func (s *SubjectService) GetAll(ctx context.Context) ([]string, error) {
	return s.store.GetSubjects(ctx)
}

// Replace stores subjects after trimming blanks and case-insensitive duplicates.
// The first spelling of a duplicate wins.
func (s *SubjectService) Replace(ctx context.Context, subjects []string) ([]string, error) {
	seen := make(map[string]bool, len(subjects))
	out := make([]string, 0, len(subjects))
	for _, sub := range subjects {
		sub = strings.TrimSpace(sub)
		key := strings.ToLower(sub)
		if sub == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sub)
	}
	if len(out) == 0 {
		return nil, invalid("subjects", "Minimal 1 mata pelajaran wajib diisi")
	}

	if err := s.store.SaveSubjects(ctx, out); err != nil {
		return nil, fmt.Errorf("save subjects: %w", err)
	}
	s.log.Info().Int("count", len(out)).Msg("Subjects updated")
	return out, nil
}
