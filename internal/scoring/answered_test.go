package scoring

import (
	"testing"

	"github.com/grahaedukasi/graha-cbt/internal/model"
)

func TestIsAnswered(t *testing.T) {
	mc := model.Question{Type: model.QuestionTypeMultipleChoice}
	ms := model.Question{Type: model.QuestionTypeMultiSelect}
	essay := model.Question{Type: model.QuestionTypeEssay}
	match := model.Question{Type: model.QuestionTypeMatching}
	order := model.Question{Type: model.QuestionTypeOrdering}

	tests := []struct {
		name string
		q    model.Question
		a    *model.Answer
		want bool
	}{
		{name: "no record", q: mc, a: nil, want: false},
		{name: "choice selected", q: mc, a: &model.Answer{SelectedOptions: []int{0}}, want: true},
		{name: "choice empty", q: ms, a: &model.Answer{SelectedOptions: []int{}}, want: false},
		{name: "essay text", q: essay, a: &model.Answer{TextAnswer: "jawaban"}, want: true},
		{name: "essay whitespace", q: essay, a: &model.Answer{TextAnswer: "  \n\t"}, want: false},
		{name: "matching one pair", q: match, a: &model.Answer{Pairs: []model.PairAnswer{{LeftIndex: 0, RightIndex: 1}}}, want: true},
		{name: "matching none", q: match, a: &model.Answer{}, want: false},
		{name: "ordering empty record", q: order, a: &model.Answer{}, want: true},
		{name: "ordering no record", q: order, a: nil, want: false},
		{name: "unknown type", q: model.Question{Type: "other"}, a: &model.Answer{TextAnswer: "x"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAnswered(tc.q, tc.a); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBreakdownFor(t *testing.T) {
	bank := sampleBank()
	student := model.Student{Answers: []model.Answer{{QuestionID: "mc", SelectedOptions: []int{0}}}}

	got := BreakdownFor(student, bank)
	if len(got) != len(bank) {
		t.Fatalf("expected %d items, got %d", len(bank), len(got))
	}
	if !got[0].Answered || got[0].Earned != 10 {
		t.Fatalf("unexpected first item: %+v", got[0])
	}
	if got[1].Answered || got[1].Earned != 0 {
		t.Fatalf("unexpected second item: %+v", got[1])
	}
	if got[2].Subject != model.DefaultSubject {
		t.Fatalf("expected default subject, got %q", got[2].Subject)
	}
}
