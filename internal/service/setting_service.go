package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/schedule"
)

// SettingService manages the exam configuration and its schedules.
type SettingService struct {
	store repository.Store
	clk   clock.Clock
	log   zerolog.Logger
}

func NewSettingService(store repository.Store, clk clock.Clock, log zerolog.Logger) *SettingService {
	return &SettingService{
		store: store,
		clk:   clk,
		log:   log.With().Str("component", "setting_service").Logger(),
	}
}

func (s *SettingService) GetExamConfig(ctx context.Context) (model.ExamConfig, error) {
	cfg, err := s.store.GetExamConfig(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get exam config")
		return model.ExamConfig{}, err
	}
	return cfg, nil
}

// SaveExamConfig replaces the exam configuration. Schedules without an id
// get a fresh one; windows whose end is not after the start are rejected.
func (s *SettingService) SaveExamConfig(ctx context.Context, req model.UpdateExamConfigRequest) (model.ExamConfig, error) {
	if req.ScheduledStart != nil && req.ScheduledEnd != nil && !req.ScheduledEnd.After(*req.ScheduledStart) {
		return model.ExamConfig{}, invalid("scheduledEnd", "Waktu selesai harus setelah waktu mulai")
	}

	cfg := model.ExamConfig{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		DurationMinutes:  req.DurationMinutes,
		ScheduledStart:   req.ScheduledStart,
		ScheduledEnd:     req.ScheduledEnd,
		SubjectSchedules: make([]model.SubjectSchedule, 0, len(req.SubjectSchedules)),
	}

	for i, sr := range req.SubjectSchedules {
		if strings.TrimSpace(sr.Subject) == "" {
			return model.ExamConfig{}, invalid(fmt.Sprintf("subjectSchedules[%d].subject", i), "Mata Pelajaran wajib diisi")
		}
		if !sr.ScheduledEnd.After(sr.ScheduledStart) {
			return model.ExamConfig{}, invalid(fmt.Sprintf("subjectSchedules[%d].scheduledEnd", i), "Waktu selesai harus setelah waktu mulai")
		}
		id := sr.ID
		if id == "" {
			id = uuid.New().String()
		}
		start, end := sr.ScheduledStart, sr.ScheduledEnd
		cfg.SubjectSchedules = append(cfg.SubjectSchedules, model.SubjectSchedule{
			ID:             id,
			Subject:        strings.TrimSpace(sr.Subject),
			ScheduledStart: &start,
			ScheduledEnd:   &end,
		})
	}

	if err := s.store.SaveExamConfig(ctx, cfg); err != nil {
		s.log.Error().Err(err).Msg("failed to save exam config")
		return model.ExamConfig{}, fmt.Errorf("save exam config: %w", err)
	}

	s.log.Info().
		Int("duration_minutes", cfg.DurationMinutes).
		Int("subject_schedules", len(cfg.SubjectSchedules)).
		Msg("Exam config updated")
	return cfg, nil
}

// ScheduleStatus describes which window, if any, is open right now.
type ScheduleStatus struct {
	Now           time.Time              `json:"now"`
	ActiveSubject string                 `json:"activeSubject,omitempty"`
	Active        *model.SubjectSchedule `json:"active,omitempty"`
	Decision      schedule.Decision      `json:"decision"`
}

// CurrentSchedule evaluates the gate for a fresh student at the current time.
func (s *SettingService) CurrentSchedule(ctx context.Context) (*ScheduleStatus, error) {
	cfg, err := s.GetExamConfig(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clk.Now()
	st := &ScheduleStatus{
		Now:      now,
		Decision: schedule.IsLoginAllowed(cfg, model.StudentStatusNotStarted, now),
	}
	if active, ok := schedule.ActiveSchedule(cfg, now); ok {
		st.Active = &active
		st.ActiveSubject = active.Subject
	}
	return st, nil
}
