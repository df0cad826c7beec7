package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/schedule"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 5, 4, hour, min, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		BcryptCost:        bcrypt.MinCost,
		AdminEmail:        "admin@grahaedukasi.id",
		AdminPasswordHash: string(hash),
	}
}

func newAuthFixture(t *testing.T, now time.Time, cfg model.ExamConfig, students ...model.Student) (*AuthService, *clock.Fake) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	for _, st := range students {
		if err := store.SaveStudent(ctx, st); err != nil {
			t.Fatalf("save student: %v", err)
		}
	}
	if err := store.SaveExamConfig(ctx, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	clk := clock.NewFake(now)
	return NewAuthService(testConfig(t), store, clk, zerolog.Nop()), clk
}

func TestStudentLogin_SubjectSchedule(t *testing.T) {
	cfg := model.DefaultExamConfig()
	cfg.SubjectSchedules = []model.SubjectSchedule{
		{ID: "m", Subject: "Matematika", ScheduledStart: ptr(at(9, 0)), ScheduledEnd: ptr(at(10, 0))},
	}
	student := model.Student{ID: "s1", Name: "Budi", Code: "ABC123", Status: model.StudentStatusNotStarted}
	svc, _ := newAuthFixture(t, at(9, 30), cfg, student)

	res, err := svc.StudentLogin(context.Background(), "  abc123 ")
	if err != nil {
		t.Fatalf("StudentLogin: %v", err)
	}
	if res.ActiveSubject != "Matematika" {
		t.Fatalf("active subject = %q, want Matematika", res.ActiveSubject)
	}
	if res.NextView != ViewConfirmBio {
		t.Fatalf("next view = %q, want %q", res.NextView, ViewConfirmBio)
	}

	claims, err := svc.ValidateToken(res.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "s1" || claims.TokenType != TokenTypeStudent || claims.ActiveSubject != "Matematika" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestStudentLogin_Rejections(t *testing.T) {
	cfg := model.DefaultExamConfig()
	cfg.ScheduledStart = ptr(at(8, 0))
	cfg.ScheduledEnd = ptr(at(9, 0))
	student := model.Student{ID: "s1", Code: "ABC123", Status: model.StudentStatusNotStarted}

	tests := []struct {
		name   string
		now    time.Time
		code   string
		reason schedule.DenialReason
		notFnd bool
	}{
		{name: "unknown code", now: at(8, 30), code: "ZZZ999", notFnd: true},
		{name: "empty code", now: at(8, 30), code: "  ", notFnd: true},
		{name: "before start", now: at(7, 59), code: "ABC123", reason: schedule.ReasonNotYetOpen},
		{name: "after end", now: at(9, 1), code: "ABC123", reason: schedule.ReasonAlreadyClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAuthFixture(t, tt.now, cfg, student)
			_, err := svc.StudentLogin(context.Background(), tt.code)
			if tt.notFnd {
				if !errors.Is(err, ErrStudentNotFound) {
					t.Fatalf("err = %v, want ErrStudentNotFound", err)
				}
				return
			}
			var denied *ScheduleDeniedError
			if !errors.As(err, &denied) {
				t.Fatalf("err = %v, want ScheduleDeniedError", err)
			}
			if denied.Decision.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", denied.Decision.Reason, tt.reason)
			}
		})
	}
}

func TestStudentLogin_CompletedGoesToResult(t *testing.T) {
	cfg := model.DefaultExamConfig()
	cfg.ScheduledStart = ptr(at(8, 0))
	cfg.ScheduledEnd = ptr(at(9, 0))
	student := model.Student{ID: "s1", Code: "ABC123", Status: model.StudentStatusCompleted, Score: 70}
	svc, _ := newAuthFixture(t, at(12, 0), cfg, student)

	res, err := svc.StudentLogin(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("StudentLogin: %v", err)
	}
	if res.NextView != ViewResult {
		t.Fatalf("next view = %q, want %q", res.NextView, ViewResult)
	}
}

func TestAdminLogin(t *testing.T) {
	svc, _ := newAuthFixture(t, at(9, 0), model.DefaultExamConfig())

	token, err := svc.AdminLogin("Admin@GrahaEdukasi.id", "rahasia123")
	if err != nil {
		t.Fatalf("AdminLogin: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != TokenTypeAdmin {
		t.Fatalf("token type = %q, want admin", claims.TokenType)
	}

	if _, err := svc.AdminLogin("admin@grahaedukasi.id", "salah-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := svc.AdminLogin("other@grahaedukasi.id", "rahasia123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong email err = %v", err)
	}
}

func TestValidateToken_ExpiresWithClock(t *testing.T) {
	student := model.Student{ID: "s1", Code: "ABC123", Status: model.StudentStatusNotStarted}
	svc, clk := newAuthFixture(t, at(9, 0), model.DefaultExamConfig(), student)

	res, err := svc.StudentLogin(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("StudentLogin: %v", err)
	}

	clk.Advance(2 * time.Hour)
	if _, err := svc.ValidateToken(res.Token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
