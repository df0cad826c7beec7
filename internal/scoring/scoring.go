// Package scoring grades answers against the question bank.
//
// Every function here is pure and total: malformed or partial input never
// produces an error, it earns zero credit.
package scoring

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/grahaedukasi/graha-cbt/internal/model"
)

// essayFallbackMinRunes is the trimmed length an essay must exceed to earn
// full points when the question defines no keywords.
const essayFallbackMinRunes = 10

// Evaluate returns the points earned by a for q, in [0, q.Points].
// Matching questions may return a fractional value; rounding happens in
// AggregateScore.
func Evaluate(q model.Question, a model.Answer) float64 {
	points := q.Points
	if points <= 0 {
		return 0
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		return scoreMultipleChoice(q, a, points)
	case model.QuestionTypeMultiSelect:
		return scoreMultiSelect(q, a, points)
	case model.QuestionTypeOrdering:
		return scoreOrdering(q, a, points)
	case model.QuestionTypeMatching:
		return scoreMatching(q, a, points)
	case model.QuestionTypeEssay:
		return scoreEssay(q, a, points)
	default:
		return 0
	}
}

// AggregateScore sums Evaluate over the student's answers whose question
// exists in questions and rounds the total. Answers to unknown questions
// are skipped; questions without an answer contribute nothing.
func AggregateScore(student model.Student, questions []model.Question) int {
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	total := 0.0
	seen := make(map[string]struct{}, len(student.Answers))
	for _, a := range student.Answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		// Answers are unique by question id; a duplicated record is ignored.
		if _, dup := seen[a.QuestionID]; dup {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		total += Evaluate(q, a)
	}
	return int(math.Round(total))
}

func scoreMultipleChoice(q model.Question, a model.Answer, points float64) float64 {
	if len(a.SelectedOptions) == 0 || len(q.CorrectOptions) == 0 {
		return 0
	}
	if a.SelectedOptions[0] == q.CorrectOptions[0] {
		return points
	}
	return 0
}

func scoreMultiSelect(q model.Question, a model.Answer, points float64) float64 {
	if len(a.SelectedOptions) == 0 {
		return 0
	}
	correct := intSet(q.CorrectOptions)
	selected := intSet(a.SelectedOptions)
	if len(correct) == 0 || len(correct) != len(selected) {
		return 0
	}
	for idx := range correct {
		if _, ok := selected[idx]; !ok {
			return 0
		}
	}
	return points
}

func scoreOrdering(q model.Question, a model.Answer, points float64) float64 {
	n := len(q.OrderItems)
	if n == 0 || len(a.OrderSequence) != n {
		return 0
	}
	for pos, idx := range a.OrderSequence {
		if idx != pos {
			return 0
		}
	}
	return points
}

func scoreMatching(q model.Question, a model.Answer, points float64) float64 {
	total := len(q.Matches)
	if total == 0 || len(a.Pairs) == 0 {
		return 0
	}

	// At most one pair counts per left index; the last recorded one wins.
	chosen := make(map[int]int, len(a.Pairs))
	for _, p := range a.Pairs {
		if p.LeftIndex < 0 || p.LeftIndex >= total {
			continue
		}
		chosen[p.LeftIndex] = p.RightIndex
	}

	correct := 0
	for left, right := range chosen {
		if left == right {
			correct++
		}
	}
	return float64(correct) / float64(total) * points
}

func scoreEssay(q model.Question, a model.Answer, points float64) float64 {
	if len(q.Keywords) == 0 {
		if utf8.RuneCountInString(strings.TrimSpace(a.TextAnswer)) > essayFallbackMinRunes {
			return points
		}
		return 0
	}

	text := strings.ToLower(a.TextAnswer)
	matched := 0
	for _, kw := range q.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			matched++
		}
	}
	ratio := math.Min(1, float64(matched)/float64(len(q.Keywords)))
	return math.Round(ratio * points)
}

func intSet(values []int) map[int]struct{} {
	set := make(map[int]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
