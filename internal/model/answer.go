package model

// PairAnswer records the right index a student chose for one left index.
type PairAnswer struct {
	LeftIndex  int `json:"leftIndex"`
	RightIndex int `json:"rightIndex"`
}

// Answer is a student's response to one question. Only the fields relevant
// to the referenced question's type are set; an unanswered field is nil or empty.
type Answer struct {
	QuestionID      string       `json:"questionId"`
	SelectedOptions []int        `json:"selectedOptions,omitempty"`
	TextAnswer      string       `json:"textAnswer,omitempty"`
	Pairs           []PairAnswer `json:"pairs,omitempty"`
	OrderSequence   []int        `json:"orderSequence,omitempty"`
}

// AnswerRequest is the payload a student sends when changing an answer.
type AnswerRequest struct {
	QuestionID      string       `json:"questionId" binding:"required,max=100"`
	SelectedOptions []int        `json:"selectedOptions" binding:"omitempty,dive,min=0"`
	TextAnswer      string       `json:"textAnswer" binding:"max=20000"`
	Pairs           []PairAnswer `json:"pairs"`
	OrderSequence   []int        `json:"orderSequence" binding:"omitempty,dive,min=0"`
}

// ToAnswer converts the request into a stored answer.
func (r AnswerRequest) ToAnswer() Answer {
	return Answer{
		QuestionID:      r.QuestionID,
		SelectedOptions: r.SelectedOptions,
		TextAnswer:      r.TextAnswer,
		Pairs:           r.Pairs,
		OrderSequence:   r.OrderSequence,
	}
}
