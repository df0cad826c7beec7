package scoring

import (
	"strings"

	"github.com/grahaedukasi/graha-cbt/internal/model"
)

// IsAnswered reports whether a counts as an answer to q for progress
// indicators and the unanswered warning. A nil answer is never answered.
//
// Ordering questions count as answered as soon as a record exists, whatever
// its content: the exam screen always shows a starting order, so there is
// no "empty" ordering answer.
func IsAnswered(q model.Question, a *model.Answer) bool {
	if a == nil {
		return false
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeMultiSelect:
		return len(a.SelectedOptions) > 0
	case model.QuestionTypeEssay:
		return strings.TrimSpace(a.TextAnswer) != ""
	case model.QuestionTypeMatching:
		return len(a.Pairs) > 0
	case model.QuestionTypeOrdering:
		return true
	default:
		return false
	}
}

// Breakdown is the per-question result shown on the student result page.
type Breakdown struct {
	QuestionID string  `json:"questionId"`
	Type       string  `json:"type"`
	Subject    string  `json:"subject"`
	Answered   bool    `json:"answered"`
	Earned     float64 `json:"earned"`
	Points     float64 `json:"points"`
}

// BreakdownFor evaluates every question in questions against the student's
// answers, in question order.
func BreakdownFor(student model.Student, questions []model.Question) []Breakdown {
	out := make([]Breakdown, 0, len(questions))
	for _, q := range questions {
		item := Breakdown{
			QuestionID: q.ID,
			Type:       string(q.Type),
			Subject:    q.SubjectOrDefault(),
			Points:     q.Points,
		}
		if a, ok := student.AnswerFor(q.ID); ok {
			item.Answered = IsAnswered(q, &a)
			item.Earned = Evaluate(q, a)
		}
		out = append(out, item)
	}
	return out
}
