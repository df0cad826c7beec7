package model

// DefaultSubjects seeds the subject list on first use.
var DefaultSubjects = []string{"Matematika", "Bahasa Indonesia", "IPA", "IPS", "PKN", "Bahasa Inggris"}

// UpdateSubjectsRequest replaces the whole subject list.
type UpdateSubjectsRequest struct {
	Subjects []string `json:"subjects" binding:"required,min=1,dive,required,max=100"`
}
