package model

import "time"

// StudentStatus enumerates a student's exam progress.
type StudentStatus string

const (
	StudentStatusNotStarted StudentStatus = "not_started"
	StudentStatusInProgress StudentStatus = "in_progress"
	StudentStatusCompleted  StudentStatus = "completed"
)

// Student is an exam participant together with their embedded answers.
type Student struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Code      string        `json:"code"`
	ClassName string        `json:"className"`
	School    string        `json:"school"`
	Status    StudentStatus `json:"status"`
	StartTime *time.Time    `json:"startTime,omitempty"`
	Answers   []Answer      `json:"answers"`
	Score     int           `json:"score"`
	// Reached lists ordering questions already shown to the student.
	Reached []string `json:"reached,omitempty"`
}

// AnswerFor returns the student's answer to questionID, if any.
func (s *Student) AnswerFor(questionID string) (Answer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// HasReached reports whether questionID is in Reached.
func (s *Student) HasReached(questionID string) bool {
	for _, id := range s.Reached {
		if id == questionID {
			return true
		}
	}
	return false
}

// UpsertAnswer replaces the answer for ans.QuestionID or appends it.
// Insertion order of first answers is preserved.
func (s *Student) UpsertAnswer(ans Answer) {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == ans.QuestionID {
			s.Answers[i] = ans
			return
		}
	}
	s.Answers = append(s.Answers, ans)
}

// Reset returns the student to a fresh not_started state, keeping identity.
func (s *Student) Reset() {
	s.Status = StudentStatusNotStarted
	s.StartTime = nil
	s.Answers = []Answer{}
	s.Score = 0
	s.Reached = nil
}

// Clone returns a deep copy so callers can mutate answers without aliasing.
func (s Student) Clone() Student {
	out := s
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	if s.Reached != nil {
		out.Reached = append([]string(nil), s.Reached...)
	}
	out.Answers = make([]Answer, len(s.Answers))
	for i, a := range s.Answers {
		out.Answers[i] = a.clone()
	}
	return out
}

func (a Answer) clone() Answer {
	out := a
	if a.SelectedOptions != nil {
		out.SelectedOptions = append([]int(nil), a.SelectedOptions...)
	}
	if a.Pairs != nil {
		out.Pairs = append([]PairAnswer(nil), a.Pairs...)
	}
	if a.OrderSequence != nil {
		out.OrderSequence = append([]int(nil), a.OrderSequence...)
	}
	return out
}

// CreateStudentRequest is the payload for registering a student.
type CreateStudentRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=100"`
	ClassName string `json:"className" binding:"required,max=50"`
	School    string `json:"school" binding:"omitempty,max=150"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Code string `json:"code" binding:"required,min=4,max=20"`
}

// AdminLoginRequest is the payload for administrator authentication.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}
