package service

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
)

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	TotalStudents      int                         `json:"totalStudents"`
	TotalQuestions     int                         `json:"totalQuestions"`
	QuestionsBySubject map[string]int              `json:"questionsBySubject"`
	StatusCounts       map[model.StudentStatus]int `json:"statusCounts"`
	AverageScore       float64                     `json:"averageScore"`
	TopScores          []ScoreEntry                `json:"topScores"`
	LiveSessions       int                         `json:"liveSessions"`
	Schedule           *ScheduleStatus             `json:"schedule"`
}

// ScoreEntry is one completed student on the leaderboard.
type ScoreEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ClassName string `json:"className"`
	Score     int    `json:"score"`
}

// LiveProgress is one running session as shown on the live monitor.
type LiveProgress struct {
	StudentID        string `json:"studentId"`
	Name             string `json:"name"`
	ClassName        string `json:"className"`
	ActiveSubject    string `json:"activeSubject,omitempty"`
	AnsweredCount    int    `json:"answeredCount"`
	TotalQuestions   int    `json:"totalQuestions"`
	RemainingSeconds int    `json:"remainingSeconds"`
	State            string `json:"state"`
}

const topScoreLimit = 5

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	store    repository.Store
	sessions *ExamSessionService
	settings *SettingService
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store repository.Store, sessions *ExamSessionService, settings *SettingService) *DashboardService {
	return &DashboardService{store: store, sessions: sessions, settings: settings}
}

// GetDashboardData loads students, questions and the schedule concurrently
// and summarizes them.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	var (
		students  []model.Student
		questions []model.Question
		schedule  *ScheduleStatus
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = s.store.GetStudents(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		questions, err = s.store.GetQuestions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		schedule, err = s.settings.CurrentSchedule(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := &DashboardData{
		TotalStudents:      len(students),
		TotalQuestions:     len(questions),
		QuestionsBySubject: make(map[string]int),
		StatusCounts: map[model.StudentStatus]int{
			model.StudentStatusNotStarted: 0,
			model.StudentStatusInProgress: 0,
			model.StudentStatusCompleted:  0,
		},
		TopScores:    []ScoreEntry{},
		LiveSessions: s.sessions.LiveCount(),
		Schedule:     schedule,
	}

	for _, q := range questions {
		data.QuestionsBySubject[q.Subject]++
	}

	total := 0
	for _, st := range students {
		data.StatusCounts[st.Status]++
		if st.Status != model.StudentStatusCompleted {
			continue
		}
		total += st.Score
		data.TopScores = append(data.TopScores, ScoreEntry{
			ID: st.ID, Name: st.Name, ClassName: st.ClassName, Score: st.Score,
		})
	}

	if done := data.StatusCounts[model.StudentStatusCompleted]; done > 0 {
		data.AverageScore = math.Round(float64(total)/float64(done)*100) / 100
	}

	sort.SliceStable(data.TopScores, func(i, j int) bool {
		return data.TopScores[i].Score > data.TopScores[j].Score
	})
	if len(data.TopScores) > topScoreLimit {
		data.TopScores = data.TopScores[:topScoreLimit]
	}

	return data, nil
}

// LiveProgress lists every running session.
func (s *DashboardService) LiveProgress() []LiveProgress {
	views := s.sessions.Snapshots()
	out := make([]LiveProgress, 0, len(views))
	for _, v := range views {
		out = append(out, LiveProgress{
			StudentID:        v.Student.ID,
			Name:             v.Student.Name,
			ClassName:        v.Student.ClassName,
			ActiveSubject:    v.ActiveSubject,
			AnsweredCount:    v.AnsweredCount,
			TotalQuestions:   v.Total,
			RemainingSeconds: v.RemainingSeconds,
			State:            v.State,
		})
	}
	return out
}
