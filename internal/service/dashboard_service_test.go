package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
)

func TestDashboardService_Summary(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	for _, st := range []model.Student{
		{ID: "s2", Name: "Siti", ClassName: "6A", Code: "SIT001", Status: model.StudentStatusCompleted, Score: 20},
		{ID: "s3", Name: "Andi", ClassName: "6B", Code: "AND001", Status: model.StudentStatusCompleted, Score: 45},
	} {
		if err := f.store.SaveStudent(ctx, st); err != nil {
			t.Fatalf("SaveStudent: %v", err)
		}
	}

	if _, err := f.svc.Start(ctx, "s1", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}

	settings := NewSettingService(f.store, f.clk, zerolog.Nop())
	dash := NewDashboardService(f.store, f.svc, settings)

	data, err := dash.GetDashboardData(ctx)
	if err != nil {
		t.Fatalf("GetDashboardData: %v", err)
	}

	if data.TotalStudents != 3 {
		t.Fatalf("total students = %d, want 3", data.TotalStudents)
	}
	if data.TotalQuestions != len(repository.SampleQuestions()) {
		t.Fatalf("total questions = %d", data.TotalQuestions)
	}
	if data.StatusCounts[model.StudentStatusCompleted] != 2 {
		t.Fatalf("completed = %d, want 2", data.StatusCounts[model.StudentStatusCompleted])
	}
	if data.AverageScore != 32.5 {
		t.Fatalf("average = %v, want 32.5", data.AverageScore)
	}
	if len(data.TopScores) != 2 || data.TopScores[0].ID != "s3" {
		t.Fatalf("top scores = %+v", data.TopScores)
	}
	if data.LiveSessions != 1 {
		t.Fatalf("live sessions = %d, want 1", data.LiveSessions)
	}

	progress := dash.LiveProgress()
	if len(progress) != 1 || progress[0].StudentID != "s1" || progress[0].State != "active" {
		t.Fatalf("progress = %+v", progress)
	}
	if progress[0].TotalQuestions != data.TotalQuestions {
		t.Fatalf("progress total = %d", progress[0].TotalQuestions)
	}
}

func TestDashboardService_Empty(t *testing.T) {
	f := newSessionFixture(t)
	settings := NewSettingService(f.store, f.clk, zerolog.Nop())
	dash := NewDashboardService(f.store, f.svc, settings)

	data, err := dash.GetDashboardData(context.Background())
	if err != nil {
		t.Fatalf("GetDashboardData: %v", err)
	}
	if data.AverageScore != 0 || len(data.TopScores) != 0 {
		t.Fatalf("unexpected data: %+v", data)
	}
	if got := dash.LiveProgress(); len(got) != 0 {
		t.Fatalf("progress = %+v", got)
	}
}
