package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/handler"
	"github.com/grahaedukasi/graha-cbt/internal/metrics"
	"github.com/grahaedukasi/graha-cbt/internal/middleware"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/service"
	"github.com/grahaedukasi/graha-cbt/internal/validator"
	"github.com/grahaedukasi/graha-cbt/internal/worker"
)

const adminPassword = "rahasia123"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	metrics.Init()
	os.Exit(m.Run())
}

func at(h, m int) time.Time {
	return time.Date(2026, 5, 4, h, m, 0, 0, time.UTC)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type testServer struct {
	t        *testing.T
	engine   *gin.Engine
	sessions *service.ExamSessionService
}

func newTestServer(t *testing.T, now time.Time) *testServer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := &config.Config{
		GinMode:            gin.TestMode,
		StorageDriver:      config.StorageMemory,
		JWTSecret:          "test-secret",
		JWTExpiry:          time.Hour,
		BcryptCost:         bcrypt.MinCost,
		AdminEmail:         "admin@grahaedukasi.id",
		AdminPasswordHash:  string(hash),
		TickInterval:       time.Second,
		AutosaveInterval:   time.Minute,
		LowTimeWarning:     time.Minute,
		SchedulePoll:       time.Minute,
		LoginRatePerMinute: 100,
	}

	log := zerolog.Nop()
	store := repository.NewMemoryStore()
	clk := clock.NewFake(now)

	authService := service.NewAuthService(cfg, store, clk, log)
	studentService := service.NewStudentService(store, log)
	questionService := service.NewQuestionService(store, log)
	settingService := service.NewSettingService(store, clk, log)
	subjectService := service.NewSubjectService(store, log)
	reportService := service.NewReportService(store, studentService, log)
	sessionService := service.NewExamSessionService(cfg, store, clk, log)
	scheduleWorker := worker.NewScheduleWorker(settingService, clk, cfg.SchedulePoll, log)
	t.Cleanup(sessionService.Shutdown)

	handlers := &Handlers{
		Auth:          handler.NewAuthHandler(authService, studentService, log),
		StudentPortal: handler.NewStudentPortalHandler(sessionService, studentService, log),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService, reportService, sessionService, log),
		Question:      handler.NewQuestionHandler(questionService, log),
		Media:         handler.NewMediaHandler(service.NewMediaService(), log),
		WS:            handler.NewWSHandler(sessionService, log, nil),
		Setting:       handler.NewSettingHandler(settingService, log),
		Subject:       handler.NewSubjectHandler(subjectService, log),
		System:        handler.NewSystemHandler(sessionService, scheduleWorker, cfg.StorageDriver, log),
		Dashboard:     handler.NewDashboardHandler(service.NewDashboardService(store, sessionService, settingService), log),
	}
	limiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute, time.Minute)

	return &testServer{
		t:        t,
		engine:   SetupRouter(authService, studentService, limiter, handlers, cfg),
		sessions: sessionService,
	}
}

// do sends body as JSON and decodes the envelope's data into out when set.
func (s *testServer) do(method, path, token string, body, out interface{}) (int, string) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && json.Unmarshal(rec.Body.Bytes(), &env) == nil {
		if env.Error != nil {
			return rec.Code, env.Error.Code
		}
		if out != nil {
			if err := json.Unmarshal(env.Data, out); err != nil {
				s.t.Fatalf("%s %s: decode data: %v", method, path, err)
			}
		}
	}
	return rec.Code, ""
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	var res struct {
		Token string `json:"token"`
	}
	code, errCode := s.do(http.MethodPost, "/api/v1/auth/admin/login", "", gin.H{
		"email": "admin@grahaedukasi.id", "password": adminPassword,
	}, &res)
	if code != http.StatusOK {
		s.t.Fatalf("admin login = %d %s", code, errCode)
	}
	return res.Token
}

func TestExamFlow(t *testing.T) {
	srv := newTestServer(t, at(9, 30))
	admin := srv.adminToken()

	if code, errCode := srv.do(http.MethodPut, "/api/v1/admin/exam-config", admin, gin.H{
		"title":           "Try Out",
		"durationMinutes": 30,
		"subjectSchedules": []gin.H{
			{"subject": "IPA", "scheduledStart": at(9, 0), "scheduledEnd": at(10, 0)},
		},
	}, nil); code != http.StatusOK {
		t.Fatalf("save config = %d %s", code, errCode)
	}

	var created struct {
		Question struct {
			ID string `json:"id"`
		} `json:"question"`
	}
	if code, errCode := srv.do(http.MethodPost, "/api/v1/admin/questions", admin, gin.H{
		"text":           "Hewan pemakan tumbuhan disebut?",
		"subject":        "IPA",
		"type":           "multiple_choice",
		"points":         10,
		"options":        []string{"Karnivora", "Herbivora", "Omnivora"},
		"correctOptions": []int{1},
	}, &created); code != http.StatusCreated {
		t.Fatalf("create question = %d %s", code, errCode)
	}

	var student struct {
		Student struct {
			ID   string `json:"id"`
			Code string `json:"code"`
		} `json:"student"`
	}
	if code, errCode := srv.do(http.MethodPost, "/api/v1/admin/students", admin, gin.H{
		"name": "Budi Santoso", "className": "6A", "school": "SD Graha",
	}, &student); code != http.StatusCreated {
		t.Fatalf("create student = %d %s", code, errCode)
	}

	var login struct {
		Token         string `json:"token"`
		ActiveSubject string `json:"activeSubject"`
	}
	if code, errCode := srv.do(http.MethodPost, "/api/v1/auth/student/login", "", gin.H{
		"code": student.Student.Code,
	}, &login); code != http.StatusOK {
		t.Fatalf("student login = %d %s", code, errCode)
	}
	if login.ActiveSubject != "IPA" {
		t.Fatalf("active subject = %q", login.ActiveSubject)
	}
	tok := login.Token

	var state struct {
		Total     int `json:"total"`
		Questions []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	if code, errCode := srv.do(http.MethodPost, "/api/v1/student/exam/start", tok, nil, &state); code != http.StatusOK {
		t.Fatalf("start = %d %s", code, errCode)
	}
	if state.Total != 1 || state.Questions[0].ID != created.Question.ID {
		t.Fatalf("unexpected state: %+v", state)
	}

	// Confirming before requesting is refused.
	if code, errCode := srv.do(http.MethodPost, "/api/v1/student/exam/finish/confirm", tok, nil, nil); code != http.StatusConflict || errCode != "FINISH_NOT_REQUESTED" {
		t.Fatalf("early confirm = %d %s", code, errCode)
	}

	if code, errCode := srv.do(http.MethodPut, "/api/v1/student/exam/answers", tok, gin.H{
		"questionId":      created.Question.ID,
		"selectedOptions": []int{1},
	}, nil); code != http.StatusOK {
		t.Fatalf("answer = %d %s", code, errCode)
	}

	var dialog struct {
		Dialog struct {
			Unanswered []int `json:"unanswered"`
		} `json:"dialog"`
	}
	if code, errCode := srv.do(http.MethodPost, "/api/v1/student/exam/finish", tok, nil, &dialog); code != http.StatusOK {
		t.Fatalf("finish = %d %s", code, errCode)
	}
	if len(dialog.Dialog.Unanswered) != 0 {
		t.Fatalf("unanswered = %v", dialog.Dialog.Unanswered)
	}

	var done struct {
		Status string `json:"status"`
		Score  int    `json:"score"`
	}
	if code, errCode := srv.do(http.MethodPost, "/api/v1/student/exam/finish/confirm", tok, nil, &done); code != http.StatusOK {
		t.Fatalf("confirm = %d %s", code, errCode)
	}
	if done.Status != "completed" || done.Score != 10 {
		t.Fatalf("result = %+v", done)
	}

	var result struct {
		Score     int `json:"score"`
		Breakdown []struct {
			Earned float64 `json:"earned"`
		} `json:"breakdown"`
	}
	if code, errCode := srv.do(http.MethodGet, "/api/v1/student/result", tok, nil, &result); code != http.StatusOK {
		t.Fatalf("result = %d %s", code, errCode)
	}
	if result.Score != 10 || len(result.Breakdown) != 1 {
		t.Fatalf("result view = %+v", result)
	}

	// Logging back in after completion leads to the result page, and the
	// exam cannot be re-entered.
	var relogin struct {
		Token    string `json:"token"`
		NextView string `json:"nextView"`
	}
	if code, errCode := srv.do(http.MethodPost, "/api/v1/auth/student/login", "", gin.H{
		"code": student.Student.Code,
	}, &relogin); code != http.StatusOK || relogin.NextView != "result" {
		t.Fatalf("relogin = %d %s %+v", code, errCode, relogin)
	}
	if code, errCode := srv.do(http.MethodPost, "/api/v1/student/exam/start", relogin.Token, nil, nil); code != http.StatusConflict || errCode != "EXAM_ALREADY_COMPLETED" {
		t.Fatalf("restart = %d %s", code, errCode)
	}

	// Reset lets the student sit the exam again.
	if code, errCode := srv.do(http.MethodPost, "/api/v1/admin/students/"+student.Student.ID+"/reset", admin, nil, nil); code != http.StatusOK {
		t.Fatalf("reset = %d %s", code, errCode)
	}
	if code, errCode := srv.do(http.MethodPost, "/api/v1/student/exam/start", relogin.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("start after reset = %d %s", code, errCode)
	}
}

func TestScheduleGate(t *testing.T) {
	srv := newTestServer(t, at(8, 0))
	admin := srv.adminToken()

	srv.do(http.MethodPut, "/api/v1/admin/exam-config", admin, gin.H{
		"title":           "Try Out",
		"durationMinutes": 30,
		"subjectSchedules": []gin.H{
			{"subject": "IPA", "scheduledStart": at(9, 0), "scheduledEnd": at(10, 0)},
		},
	}, nil)

	var student struct {
		Student struct {
			Code string `json:"code"`
		} `json:"student"`
	}
	srv.do(http.MethodPost, "/api/v1/admin/students", admin, gin.H{"name": "Siti", "className": "6B"}, &student)

	code, errCode := srv.do(http.MethodPost, "/api/v1/auth/student/login", "", gin.H{"code": student.Student.Code}, nil)
	if code != http.StatusForbidden || errCode != "NO_ACTIVE_SUBJECT" {
		t.Fatalf("login outside window = %d %s", code, errCode)
	}

	var sched struct {
		ActiveSubject string `json:"activeSubject"`
	}
	if code, _ := srv.do(http.MethodGet, "/api/v1/public/schedule", "", nil, &sched); code != http.StatusOK || sched.ActiveSubject != "" {
		t.Fatalf("schedule = %d %+v", code, sched)
	}
}

func TestAuthBoundaries(t *testing.T) {
	srv := newTestServer(t, at(9, 0))

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{"student route without token", http.MethodGet, "/api/v1/student/exam/state", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"admin route without token", http.MethodGet, "/api/v1/admin/students", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"garbage token", http.MethodGet, "/api/v1/admin/students", "not-a-jwt", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"admin token on student route", http.MethodGet, "/api/v1/student/exam/state", srv.adminToken(), http.StatusForbidden, "STUDENT_ACCESS_ONLY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, errCode := srv.do(tt.method, tt.path, tt.token, nil, nil)
			if code != tt.status || errCode != tt.code {
				t.Fatalf("got %d %s, want %d %s", code, errCode, tt.status, tt.code)
			}
		})
	}

	if code, errCode := srv.do(http.MethodPost, "/api/v1/auth/admin/login", "", gin.H{
		"email": "admin@grahaedukasi.id", "password": "salah-sandi",
	}, nil); code != http.StatusUnauthorized || errCode != "INVALID_CREDENTIALS" {
		t.Fatalf("bad admin login = %d %s", code, errCode)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, at(9, 0))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	var body struct {
		Status       string `json:"status"`
		LiveSessions int    `json:"liveSessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.LiveSessions != 0 {
		t.Fatalf("body = %+v", body)
	}
}

func TestAdminDashboard(t *testing.T) {
	srv := newTestServer(t, at(9, 0))

	if code, _ := srv.do(http.MethodGet, "/api/v1/admin/dashboard", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous dashboard = %d, want 401", code)
	}

	var data struct {
		TotalStudents int            `json:"totalStudents"`
		StatusCounts  map[string]int `json:"statusCounts"`
		LiveSessions  int            `json:"liveSessions"`
	}
	code, errCode := srv.do(http.MethodGet, "/api/v1/admin/dashboard", srv.adminToken(), nil, &data)
	if code != http.StatusOK {
		t.Fatalf("dashboard = %d %s", code, errCode)
	}
	if data.LiveSessions != 0 {
		t.Fatalf("live sessions = %d", data.LiveSessions)
	}
	if _, ok := data.StatusCounts["not_started"]; !ok {
		t.Fatalf("status counts missing not_started: %+v", data.StatusCounts)
	}
}
