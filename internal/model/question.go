package model

// QuestionType is the discriminant of the question payload.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeMultiSelect    QuestionType = "multi_select"
	QuestionTypeMatching       QuestionType = "matching"
	QuestionTypeOrdering       QuestionType = "ordering"
	QuestionTypeEssay          QuestionType = "essay"
)

// QuestionTypes lists every supported type in authoring order.
var QuestionTypes = []QuestionType{
	QuestionTypeMultipleChoice,
	QuestionTypeMultiSelect,
	QuestionTypeMatching,
	QuestionTypeOrdering,
	QuestionTypeEssay,
}

// Valid reports whether t is one of the supported question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeMultiSelect, QuestionTypeMatching,
		QuestionTypeOrdering, QuestionTypeEssay:
		return true
	}
	return false
}

// DefaultSubject is assigned to questions authored without a subject.
const DefaultSubject = "Umum"

// MatchPair is one left/right pair of a matching question. The right side
// is shown scrambled; pair i is answered correctly by pairing left i with right i.
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Question is a single bank question. Only the payload fields relevant to
// Type are populated; the others stay nil.
type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Subject  string       `json:"subject,omitempty"`
	ImageURL string       `json:"imageUrl,omitempty"`
	Type     QuestionType `json:"type"`
	Points   float64      `json:"points"`

	// multiple_choice and multi_select
	Options        []string `json:"options,omitempty"`
	CorrectOptions []int    `json:"correctOptions,omitempty"`

	// matching
	Matches []MatchPair `json:"matches,omitempty"`

	// ordering, listed in the correct order
	OrderItems []string `json:"orderItems,omitempty"`

	// essay
	Keywords []string `json:"keywords,omitempty"`
}

// SubjectOrDefault returns the question subject, falling back to DefaultSubject.
func (q Question) SubjectOrDefault() string {
	if q.Subject == "" {
		return DefaultSubject
	}
	return q.Subject
}

// QuestionForStudent is a question without its answer key, sent to students.
// Matching right-hand sides are delivered in a scrambled order; answers
// refer to them by display position.
type QuestionForStudent struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Subject    string       `json:"subject"`
	ImageURL   string       `json:"imageUrl,omitempty"`
	Type       QuestionType `json:"type"`
	Points     float64      `json:"points"`
	Options    []string     `json:"options,omitempty"`
	Lefts      []string     `json:"lefts,omitempty"`
	Rights     []string     `json:"rights,omitempty"`
	OrderItems []string     `json:"orderItems,omitempty"`
}

// QuestionRequest is the authoring payload for creating or updating a question.
// Keywords is the comma-separated string typed into the essay form.
type QuestionRequest struct {
	Text           string       `json:"text" binding:"required,max=5000"`
	Subject        string       `json:"subject" binding:"required,max=100"`
	ImageURL       string       `json:"imageUrl" binding:"omitempty,max=700000"`
	Type           QuestionType `json:"type" binding:"required,oneof=multiple_choice multi_select matching ordering essay"`
	Points         float64      `json:"points" binding:"required,gt=0"`
	Options        []string     `json:"options"`
	CorrectOptions []int        `json:"correctOptions"`
	Matches        []MatchPair  `json:"matches"`
	OrderItems     []string     `json:"orderItems"`
	Keywords       string       `json:"keywords"`
}
