package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/schedule"
)

// QuestionService handles question bank authoring and delivery.
type QuestionService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(store repository.Store, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		store: store,
		log:   log.With().Str("component", "question_service").Logger(),
	}
}

// List returns the bank, optionally narrowed to one subject.
func (s *QuestionService) List(ctx context.Context, subject string) ([]model.Question, error) {
	questions, err := s.store.GetQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if subject == "" || subject == "all" {
		return questions, nil
	}
	return schedule.FilterBySubject(questions, subject), nil
}

// Get returns a single question.
func (s *QuestionService) Get(ctx context.Context, id string) (model.Question, error) {
	q, err := repository.FindQuestion(ctx, s.store, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Question{}, ErrQuestionNotFound
	}
	return q, err
}

// Create validates and stores a new question.
func (s *QuestionService) Create(ctx context.Context, req model.QuestionRequest) (model.Question, error) {
	q, err := BuildQuestion(req)
	if err != nil {
		return model.Question{}, err
	}
	q.ID = uuid.New().String()
	if err := s.store.SaveQuestion(ctx, q); err != nil {
		return model.Question{}, fmt.Errorf("save question: %w", err)
	}
	return q, nil
}

// Update replaces an existing question.
func (s *QuestionService) Update(ctx context.Context, id string, req model.QuestionRequest) (model.Question, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return model.Question{}, err
	}
	q, err := BuildQuestion(req)
	if err != nil {
		return model.Question{}, err
	}
	q.ID = id
	if err := s.store.SaveQuestion(ctx, q); err != nil {
		return model.Question{}, fmt.Errorf("save question: %w", err)
	}
	return q, nil
}

// Delete removes a question. Answers that still reference it are skipped at scoring.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteQuestion(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrQuestionNotFound
	}
	return err
}

// BuildQuestion applies the authoring rules to req. Blank options, pairs
// and items are dropped before the minimum counts are checked.
func BuildQuestion(req model.QuestionRequest) (model.Question, error) {
	if strings.TrimSpace(req.Text) == "" {
		return model.Question{}, invalid("text", "Pertanyaan wajib diisi")
	}
	if req.Points <= 0 {
		return model.Question{}, invalid("points", "Poin harus lebih dari 0")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return model.Question{}, invalid("subject", "Mata Pelajaran wajib diisi")
	}

	q := model.Question{
		Text:     req.Text,
		Subject:  strings.TrimSpace(req.Subject),
		ImageURL: req.ImageURL,
		Type:     req.Type,
		Points:   req.Points,
	}

	switch req.Type {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeMultiSelect:
		options, correct := compactOptions(req.Options, req.CorrectOptions)
		if len(options) < 2 {
			return model.Question{}, invalid("options", "Minimal 2 opsi jawaban wajib diisi.")
		}
		if len(correct) == 0 {
			return model.Question{}, invalid("correctOptions", "Pilih minimal satu jawaban yang benar.")
		}
		if req.Type == model.QuestionTypeMultipleChoice && len(correct) != 1 {
			return model.Question{}, invalid("correctOptions", "Pilihan ganda harus memiliki tepat satu jawaban benar.")
		}
		q.Options = options
		q.CorrectOptions = correct

	case model.QuestionTypeMatching:
		var matches []model.MatchPair
		for _, m := range req.Matches {
			if strings.TrimSpace(m.Left) != "" && strings.TrimSpace(m.Right) != "" {
				matches = append(matches, m)
			}
		}
		if len(matches) < 1 {
			return model.Question{}, invalid("matches", "Minimal 1 pasangan wajib diisi.")
		}
		q.Matches = matches

	case model.QuestionTypeOrdering:
		var items []string
		for _, it := range req.OrderItems {
			if strings.TrimSpace(it) != "" {
				items = append(items, it)
			}
		}
		if len(items) < 2 {
			return model.Question{}, invalid("orderItems", "Minimal 2 item urutan wajib diisi.")
		}
		q.OrderItems = items

	case model.QuestionTypeEssay:
		q.Keywords = ParseKeywords(req.Keywords)

	default:
		return model.Question{}, invalid("type", "Tipe soal tidak dikenal")
	}

	return q, nil
}

// compactOptions drops blank options and remaps correct indices onto the
// remaining ones. Indices pointing at blank or missing options are dropped.
func compactOptions(raw []string, correct []int) ([]string, []int) {
	remap := make(map[int]int, len(raw))
	options := make([]string, 0, len(raw))
	for i, o := range raw {
		if strings.TrimSpace(o) == "" {
			continue
		}
		remap[i] = len(options)
		options = append(options, o)
	}

	seen := make(map[int]bool, len(correct))
	out := make([]int, 0, len(correct))
	for _, c := range correct {
		n, ok := remap[c]
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return options, out
}

// ParseKeywords splits a comma-separated keyword string, dropping blanks.
func ParseKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// importedQuestion is the loose shape accepted by JSON import.
type importedQuestion struct {
	Text           string             `json:"text"`
	Type           model.QuestionType `json:"type"`
	Points         float64            `json:"points"`
	Subject        string             `json:"subject"`
	ImageURL       string             `json:"imageUrl"`
	Options        []string           `json:"options"`
	CorrectOptions []int              `json:"correctOptions"`
	Matches        []model.MatchPair  `json:"matches"`
	OrderItems     []string           `json:"orderItems"`
	Keywords       []string           `json:"keywords"`
}

// Import loads a JSON array of questions. Entries missing text, type or
// points are skipped; a missing subject becomes the default subject.
func (s *QuestionService) Import(ctx context.Context, data []byte) (ImportResult, error) {
	var items []importedQuestion
	if err := json.Unmarshal(data, &items); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}

	var res ImportResult
	for _, it := range items {
		if strings.TrimSpace(it.Text) == "" || !it.Type.Valid() || it.Points <= 0 {
			res.Skipped++
			continue
		}
		subject := strings.TrimSpace(it.Subject)
		if subject == "" {
			subject = model.DefaultSubject
		}
		q := model.Question{
			ID:             uuid.New().String(),
			Text:           it.Text,
			Type:           it.Type,
			Points:         it.Points,
			Subject:        subject,
			ImageURL:       it.ImageURL,
			Options:        it.Options,
			CorrectOptions: it.CorrectOptions,
			Matches:        it.Matches,
			OrderItems:     it.OrderItems,
			Keywords:       it.Keywords,
		}
		if err := s.store.SaveQuestion(ctx, q); err != nil {
			return res, fmt.Errorf("save imported question: %w", err)
		}
		res.Imported++
	}

	s.log.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("Questions imported")
	return res, nil
}

// ForStudent strips answer keys and scrambles matching right-hand sides.
// The scramble is stable per student so a reload shows the same layout.
// The permutation itself stays on the server: a matching pair is correct
// when both sides share an index, so sending it would reveal the key.
// Students answer with display positions, see PairsFromDisplay.
func ForStudent(studentID string, questions []model.Question) []model.QuestionForStudent {
	out := make([]model.QuestionForStudent, 0, len(questions))
	for _, q := range questions {
		fs := model.QuestionForStudent{
			ID:       q.ID,
			Text:     q.Text,
			Subject:  q.SubjectOrDefault(),
			ImageURL: q.ImageURL,
			Type:     q.Type,
			Points:   q.Points,
		}
		switch q.Type {
		case model.QuestionTypeMultipleChoice, model.QuestionTypeMultiSelect:
			fs.Options = q.Options
		case model.QuestionTypeMatching:
			order := scramble(studentID+"/"+q.ID, len(q.Matches))
			fs.Lefts = make([]string, len(q.Matches))
			fs.Rights = make([]string, len(q.Matches))
			for i, m := range q.Matches {
				fs.Lefts[i] = m.Left
			}
			for pos, idx := range order {
				fs.Rights[pos] = q.Matches[idx].Right
			}
		case model.QuestionTypeOrdering:
			fs.OrderItems = q.OrderItems
		case model.QuestionTypeEssay:
		}
		out = append(out, fs)
	}
	return out
}

func rightOrder(studentID string, q model.Question) []int {
	return scramble(studentID+"/"+q.ID, len(q.Matches))
}

// PairsFromDisplay maps right-hand display positions chosen by studentID
// back to indices into q.Matches. Positions outside the list become -1,
// which never scores.
func PairsFromDisplay(studentID string, q model.Question, pairs []model.PairAnswer) []model.PairAnswer {
	if len(pairs) == 0 {
		return pairs
	}
	order := rightOrder(studentID, q)
	out := make([]model.PairAnswer, len(pairs))
	for i, p := range pairs {
		right := -1
		if p.RightIndex >= 0 && p.RightIndex < len(order) {
			right = order[p.RightIndex]
		}
		out[i] = model.PairAnswer{LeftIndex: p.LeftIndex, RightIndex: right}
	}
	return out
}

// PairsToDisplay is the inverse of PairsFromDisplay.
func PairsToDisplay(studentID string, q model.Question, pairs []model.PairAnswer) []model.PairAnswer {
	if len(pairs) == 0 {
		return pairs
	}
	order := rightOrder(studentID, q)
	position := make([]int, len(order))
	for pos, idx := range order {
		position[idx] = pos
	}
	out := make([]model.PairAnswer, len(pairs))
	for i, p := range pairs {
		pos := -1
		if p.RightIndex >= 0 && p.RightIndex < len(position) {
			pos = position[p.RightIndex]
		}
		out[i] = model.PairAnswer{LeftIndex: p.LeftIndex, RightIndex: pos}
	}
	return out
}

// scramble returns a permutation of 0..n-1 seeded from key.
func scramble(key string, n int) []int {
	h := fnv.New64a()
	h.Write([]byte(key))
	seed := h.Sum64()
	r := rand.New(rand.NewPCG(seed, seed>>1|1))
	return r.Perm(n)
}
