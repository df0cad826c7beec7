package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
)

func TestSettingService_SaveExamConfig(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingService(repository.NewMemoryStore(), clock.NewFake(at(9, 30)), zerolog.Nop())

	cfg, err := svc.SaveExamConfig(ctx, model.UpdateExamConfigRequest{
		Title:           " Try Out ",
		DurationMinutes: 60,
		SubjectSchedules: []model.SubjectScheduleRequest{
			{Subject: "Matematika", ScheduledStart: at(9, 0), ScheduledEnd: at(10, 0)},
			{ID: "keep", Subject: "IPA", ScheduledStart: at(10, 0), ScheduledEnd: at(11, 0)},
		},
	})
	if err != nil {
		t.Fatalf("SaveExamConfig: %v", err)
	}
	if cfg.Title != "Try Out" || cfg.Duration() != time.Hour {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SubjectSchedules[0].ID == "" || cfg.SubjectSchedules[1].ID != "keep" {
		t.Fatalf("schedule ids = %q, %q", cfg.SubjectSchedules[0].ID, cfg.SubjectSchedules[1].ID)
	}

	stored, err := svc.GetExamConfig(ctx)
	if err != nil {
		t.Fatalf("GetExamConfig: %v", err)
	}
	if len(stored.SubjectSchedules) != 2 {
		t.Fatalf("stored schedules = %d, want 2", len(stored.SubjectSchedules))
	}

	status, err := svc.CurrentSchedule(ctx)
	if err != nil {
		t.Fatalf("CurrentSchedule: %v", err)
	}
	if status.ActiveSubject != "Matematika" || !status.Decision.Allowed {
		t.Fatalf("status = %+v", status)
	}
}

func TestSettingService_RejectsInvertedWindows(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingService(repository.NewMemoryStore(), clock.NewFake(at(9, 0)), zerolog.Nop())

	tests := []struct {
		name string
		req  model.UpdateExamConfigRequest
	}{
		{
			name: "global window",
			req: model.UpdateExamConfigRequest{
				Title: "x", DurationMinutes: 30,
				ScheduledStart: ptr(at(10, 0)), ScheduledEnd: ptr(at(10, 0)),
			},
		},
		{
			name: "subject window",
			req: model.UpdateExamConfigRequest{
				Title: "x", DurationMinutes: 30,
				SubjectSchedules: []model.SubjectScheduleRequest{
					{Subject: "IPA", ScheduledStart: at(11, 0), ScheduledEnd: at(10, 0)},
				},
			},
		},
		{
			name: "blank subject",
			req: model.UpdateExamConfigRequest{
				Title: "x", DurationMinutes: 30,
				SubjectSchedules: []model.SubjectScheduleRequest{
					{Subject: "  ", ScheduledStart: at(9, 0), ScheduledEnd: at(10, 0)},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *ValidationError
			if _, err := svc.SaveExamConfig(ctx, tt.req); !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestSubjectService_Replace(t *testing.T) {
	ctx := context.Background()
	svc := NewSubjectService(repository.NewMemoryStore(), zerolog.Nop())

	defaults, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if !reflect.DeepEqual(defaults, model.DefaultSubjects) {
		t.Fatalf("defaults = %v", defaults)
	}

	got, err := svc.Replace(ctx, []string{" IPA ", "Seni", "ipa", "", "Seni"})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"IPA", "Seni"}) {
		t.Fatalf("subjects = %v", got)
	}

	if _, err := svc.Replace(ctx, []string{" ", ""}); err == nil {
		t.Fatal("expected an all-blank list to be rejected")
	}
}
