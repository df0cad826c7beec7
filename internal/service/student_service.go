package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/response"
	"github.com/grahaedukasi/graha-cbt/internal/schedule"
	"github.com/grahaedukasi/graha-cbt/internal/scoring"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultSchool is stored when a student is registered without a school.
	DefaultSchool = "-"
)

// StudentService handles student management and results.
type StudentService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(store repository.Store, log zerolog.Logger) *StudentService {
	return &StudentService{
		store: store,
		log:   log.With().Str("component", "student_service").Logger(),
	}
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id string) (model.Student, error) {
	st, err := repository.FindStudent(ctx, s.store, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Student{}, ErrStudentNotFound
	}
	return st, err
}

// ListStudents returns one page of students, optionally filtered by a
// case-insensitive search over name, class and code.
func (s *StudentService) ListStudents(ctx context.Context, search string, page, perPage int) ([]model.Student, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	all, err := s.store.GetStudents(ctx)
	if err != nil {
		return nil, nil, err
	}

	search = strings.ToLower(strings.TrimSpace(search))
	filtered := all[:0]
	for _, st := range all {
		if search == "" ||
			strings.Contains(strings.ToLower(st.Name), search) ||
			strings.Contains(strings.ToLower(st.ClassName), search) ||
			strings.Contains(strings.ToLower(st.Code), search) {
			filtered = append(filtered, st)
		}
	}

	total := len(filtered)
	offset := (page - 1) * perPage
	if offset > total {
		offset = total
	}
	end := offset + perPage
	if end > total {
		end = total
	}

	return filtered[offset:end], response.NewPagination(page, perPage, total), nil
}

// Create registers a student with a fresh unique access code.
func (s *StudentService) Create(ctx context.Context, req model.CreateStudentRequest) (model.Student, error) {
	existing, err := s.store.GetStudents(ctx)
	if err != nil {
		return model.Student{}, err
	}
	st, err := newStudent(req, codesOf(existing))
	if err != nil {
		return model.Student{}, err
	}
	if err := s.store.SaveStudent(ctx, st); err != nil {
		return model.Student{}, fmt.Errorf("save student: %w", err)
	}
	return st, nil
}

// Import registers every row with a name and class; other rows are skipped.
func (s *StudentService) Import(ctx context.Context, rows []model.CreateStudentRequest) (ImportResult, error) {
	existing, err := s.store.GetStudents(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	codes := codesOf(existing)

	var res ImportResult
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" || strings.TrimSpace(row.ClassName) == "" {
			res.Skipped++
			continue
		}
		st, err := newStudent(row, codes)
		if err != nil {
			return res, err
		}
		if err := s.store.SaveStudent(ctx, st); err != nil {
			return res, fmt.Errorf("save imported student: %w", err)
		}
		codes[st.Code] = true
		res.Imported++
	}

	s.log.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("Students imported")
	return res, nil
}

// Delete removes a student and their answers.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteStudent(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrStudentNotFound
	}
	return err
}

// Reset returns a student to not_started, clearing answers, startTime and score.
func (s *StudentService) Reset(ctx context.Context, id string) (model.Student, error) {
	st, err := s.GetByID(ctx, id)
	if err != nil {
		return model.Student{}, err
	}
	st.Reset()
	if err := s.store.SaveStudent(ctx, st); err != nil {
		return model.Student{}, fmt.Errorf("save student: %w", err)
	}
	s.log.Info().Str("student_id", id).Msg("Student exam reset")
	return st, nil
}

// ResultView is the read-only result page for a completed student.
type ResultView struct {
	Student       model.Student       `json:"student"`
	Score         int                 `json:"score"`
	MaxScore      float64             `json:"maxScore"`
	ActiveSubject string              `json:"activeSubject,omitempty"`
	Breakdown     []scoring.Breakdown `json:"breakdown"`
}

// Result returns the stored score plus a per-question breakdown over the
// questions of activeSubject (all questions when empty).
func (s *StudentService) Result(ctx context.Context, id, activeSubject string) (*ResultView, error) {
	st, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status != model.StudentStatusCompleted {
		return nil, ErrNotCompleted
	}

	bank, err := s.store.GetQuestions(ctx)
	if err != nil {
		return nil, err
	}
	questions := schedule.FilterBySubject(bank, activeSubject)

	view := &ResultView{
		Student:       st,
		Score:         st.Score,
		ActiveSubject: activeSubject,
		Breakdown:     scoring.BreakdownFor(st, questions),
	}
	for _, q := range questions {
		view.MaxScore += q.Points
	}
	return view, nil
}

func newStudent(req model.CreateStudentRequest, taken map[string]bool) (model.Student, error) {
	code, err := generateCode(taken)
	if err != nil {
		return model.Student{}, err
	}
	school := strings.TrimSpace(req.School)
	if school == "" {
		school = DefaultSchool
	}
	return model.Student{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		ClassName: strings.TrimSpace(req.ClassName),
		School:    school,
		Code:      code,
		Status:    model.StudentStatusNotStarted,
		Answers:   []model.Answer{},
	}, nil
}

func codesOf(students []model.Student) map[string]bool {
	codes := make(map[string]bool, len(students))
	for _, st := range students {
		codes[strings.ToUpper(st.Code)] = true
	}
	return codes
}

// generateCode returns a random uppercase access code not present in taken.
func generateCode(taken map[string]bool) (string, error) {
	limit := big.NewInt(int64(len(codeAlphabet)))
	for attempt := 0; attempt < 100; attempt++ {
		var b strings.Builder
		for i := 0; i < codeLength; i++ {
			n, err := rand.Int(rand.Reader, limit)
			if err != nil {
				return "", fmt.Errorf("generate code: %w", err)
			}
			b.WriteByte(codeAlphabet[n.Int64()])
		}
		if code := b.String(); !taken[code] {
			return code, nil
		}
	}
	return "", errors.New("generate code: exhausted attempts")
}
