// Package schedule decides whether students may log in and which subject
// session is currently live.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/grahaedukasi/graha-cbt/internal/model"
)

// DenialReason classifies why login was refused.
type DenialReason string

const (
	ReasonNone            DenialReason = ""
	ReasonNotYetOpen      DenialReason = "not_yet_open"
	ReasonAlreadyClosed   DenialReason = "already_closed"
	ReasonNoActiveSubject DenialReason = "no_active_subject"
)

// displayLayout renders schedule times in the Indonesian day-first style.
const displayLayout = "02/01/2006 15.04"

// Decision is the outcome of IsLoginAllowed.
type Decision struct {
	Allowed bool `json:"allowed"`
	// ActiveSubject scopes the session to one subject; empty means all questions.
	ActiveSubject string       `json:"activeSubject,omitempty"`
	Reason        DenialReason `json:"reason,omitempty"`
	Message       string       `json:"message,omitempty"`
}

// IsLoginAllowed evaluates the exam configuration at now for a student
// with the given status.
//
// Subject schedules, when present, fully replace the global window. If
// several subject windows contain now the first one in list order wins.
// That tie-break is arbitrary; overlapping windows should be avoided when
// authoring. A completed student bypasses the global end check so results
// remain viewable, but not the start check.
func IsLoginAllowed(cfg model.ExamConfig, status model.StudentStatus, now time.Time) Decision {
	if len(cfg.SubjectSchedules) > 0 {
		if sch, ok := ActiveSchedule(cfg, now); ok {
			return Decision{Allowed: true, ActiveSubject: sch.Subject}
		}
		return Decision{
			Reason:  ReasonNoActiveSubject,
			Message: "Tidak ada sesi ujian mata pelajaran yang aktif saat ini.",
		}
	}

	if cfg.ScheduledStart != nil && now.Before(*cfg.ScheduledStart) {
		return Decision{
			Reason:  ReasonNotYetOpen,
			Message: fmt.Sprintf("Ujian belum dibuka. Jadwal mulai: %s", cfg.ScheduledStart.In(now.Location()).Format(displayLayout)),
		}
	}

	if cfg.ScheduledEnd != nil && status != model.StudentStatusCompleted && now.After(*cfg.ScheduledEnd) {
		return Decision{
			Reason:  ReasonAlreadyClosed,
			Message: fmt.Sprintf("Ujian telah berakhir pada: %s", cfg.ScheduledEnd.In(now.Location()).Format(displayLayout)),
		}
	}

	return Decision{Allowed: true}
}

// ActiveSchedule returns the first subject schedule whose inclusive window
// contains now. Schedules with a missing bound never match.
func ActiveSchedule(cfg model.ExamConfig, now time.Time) (model.SubjectSchedule, bool) {
	for _, sch := range cfg.SubjectSchedules {
		if sch.ScheduledStart == nil || sch.ScheduledEnd == nil {
			continue
		}
		if !now.Before(*sch.ScheduledStart) && !now.After(*sch.ScheduledEnd) {
			return sch, true
		}
	}
	return model.SubjectSchedule{}, false
}

// MatchesSubject reports whether a question subject belongs to the active
// subject session. The comparison is case-insensitive and exact.
func MatchesSubject(questionSubject, activeSubject string) bool {
	return strings.EqualFold(questionSubject, activeSubject)
}

// FilterBySubject keeps the questions of the active subject, preserving order.
// An empty activeSubject keeps every question.
func FilterBySubject(questions []model.Question, activeSubject string) []model.Question {
	if activeSubject == "" {
		return questions
	}
	out := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		if MatchesSubject(q.Subject, activeSubject) {
			out = append(out, q)
		}
	}
	return out
}
