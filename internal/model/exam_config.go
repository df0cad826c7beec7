package model

import "time"

// SubjectSchedule restricts access to one subject's questions to a time window.
type SubjectSchedule struct {
	ID             string     `json:"id"`
	Subject        string     `json:"subject"`
	ScheduledStart *time.Time `json:"scheduledStart"`
	ScheduledEnd   *time.Time `json:"scheduledEnd"`
}

// ExamConfig is the process-wide exam configuration.
// When SubjectSchedules is non-empty it overrides the global window.
type ExamConfig struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	DurationMinutes  int               `json:"durationMinutes"`
	ScheduledStart   *time.Time        `json:"scheduledStart,omitempty"`
	ScheduledEnd     *time.Time        `json:"scheduledEnd,omitempty"`
	SubjectSchedules []SubjectSchedule `json:"subjectSchedules"`
}

// Duration returns the configured session length.
func (c ExamConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// DefaultExamConfig is used until an administrator saves a configuration.
func DefaultExamConfig() ExamConfig {
	return ExamConfig{
		Title:            "TRY OUT TKA SD - GRAHA EDUKASI",
		Description:      "Tes Kemampuan Akademik untuk persiapan ujian sekolah.",
		DurationMinutes:  90,
		SubjectSchedules: []SubjectSchedule{},
	}
}

// UpdateExamConfigRequest is the payload for saving the exam configuration.
type UpdateExamConfigRequest struct {
	Title            string                  `json:"title" binding:"required,min=3,max=255"`
	Description      string                  `json:"description" binding:"max=2000"`
	DurationMinutes  int                     `json:"durationMinutes" binding:"required,min=1,max=480"`
	ScheduledStart   *time.Time              `json:"scheduledStart" binding:"omitempty"`
	ScheduledEnd     *time.Time              `json:"scheduledEnd" binding:"omitempty,gtfield=ScheduledStart"`
	SubjectSchedules []SubjectScheduleRequest `json:"subjectSchedules" binding:"omitempty,dive"`
}

// SubjectScheduleRequest is one subject window in UpdateExamConfigRequest.
type SubjectScheduleRequest struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject" binding:"required,max=100"`
	ScheduledStart time.Time `json:"scheduledStart" binding:"required"`
	ScheduledEnd   time.Time `json:"scheduledEnd" binding:"required,gtfield=ScheduledStart"`
}
