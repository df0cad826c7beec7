package repository

import (
	"context"
	"fmt"

	"github.com/grahaedukasi/graha-cbt/internal/model"
)

// SampleQuestions is the starter bank loaded into an empty installation.
func SampleQuestions() []model.Question {
	return []model.Question{
		{
			ID:             "q1",
			Type:           model.QuestionTypeMultipleChoice,
			Subject:        "IPS",
			Text:           "Ibu kota negara Indonesia yang baru bernama...",
			Points:         10,
			Options:        []string{"Jakarta", "Nusantara", "Bandung", "Surabaya"},
			CorrectOptions: []int{1},
		},
		{
			ID:             "q2",
			Type:           model.QuestionTypeMultiSelect,
			Subject:        "IPA",
			Text:           "Manakah dari berikut ini yang merupakan hewan mamalia? (Pilih lebih dari satu)",
			Points:         10,
			Options:        []string{"Ayam", "Kucing", "Sapi", "Buaya"},
			CorrectOptions: []int{1, 2},
		},
		{
			ID:         "q3",
			Type:       model.QuestionTypeOrdering,
			Subject:    "IPA",
			Text:       "Urutkan tahapan metamorfosis kupu-kupu dengan benar.",
			Points:     15,
			OrderItems: []string{"Telur", "Ulat (Larva)", "Kepompong (Pupa)", "Kupu-kupu"},
		},
		{
			ID:      "q4",
			Type:    model.QuestionTypeMatching,
			Subject: "IPS",
			Text:    "Pasangkan nama provinsi dengan ibu kotanya.",
			Points:  15,
			Matches: []model.MatchPair{
				{Left: "Jawa Barat", Right: "Bandung"},
				{Left: "Jawa Timur", Right: "Surabaya"},
				{Left: "Bali", Right: "Denpasar"},
			},
		},
		{
			ID:       "q5",
			Type:     model.QuestionTypeEssay,
			Subject:  "Bahasa Indonesia",
			Text:     "Jelaskan mengapa kita harus menjaga kebersihan lingkungan!",
			Points:   20,
			Keywords: []string{"sehat", "banjir", "nyaman", "penyakit"},
		},
		{
			ID:             "q6",
			Type:           model.QuestionTypeMultipleChoice,
			Subject:        "Matematika",
			Text:           "Hasil dari 12 x 5 adalah...",
			Points:         10,
			Options:        []string{"50", "55", "60", "65"},
			CorrectOptions: []int{2},
		},
	}
}

// SeedIfEmpty loads SampleQuestions when the bank is empty. It returns the
// number of questions inserted.
func SeedIfEmpty(ctx context.Context, s Store) (int, error) {
	existing, err := s.GetQuestions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load questions: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	samples := SampleQuestions()
	for _, q := range samples {
		if err := s.SaveQuestion(ctx, q); err != nil {
			return 0, fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	return len(samples), nil
}
