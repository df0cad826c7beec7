package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/middleware"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/response"
	"github.com/grahaedukasi/graha-cbt/internal/service"
	"github.com/grahaedukasi/graha-cbt/internal/validator"
)

// StudentPortalHandler serves the exam page and the result page.
type StudentPortalHandler struct {
	sessionService *service.ExamSessionService
	studentService *service.StudentService
	log            zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(sessionService *service.ExamSessionService, studentService *service.StudentService, log zerolog.Logger) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService: sessionService,
		studentService: studentService,
		log:            log.With().Str("component", "student_portal_handler").Logger(),
	}
}

type navigateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// StartExam godoc
// POST /api/v1/student/exam/start
// Enters the exam after biodata confirmation. Re-entering resumes the
// running session with the original start time.
func (h *StudentPortalHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	state, err := h.sessionService.Start(c.Request.Context(), claims.Subject, claims.ActiveSubject)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// GetState godoc
// GET /api/v1/student/exam/state
func (h *StudentPortalHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	state, err := h.sessionService.State(claims.Subject)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SaveAnswer godoc
// PUT /api/v1/student/exam/answers
// Records one answer and persists the record immediately.
func (h *StudentPortalHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.sessionService.Answer(c.Request.Context(), claims.Subject, req.ToAnswer())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// Navigate godoc
// POST /api/v1/student/exam/navigate
func (h *StudentPortalHandler) Navigate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req navigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.sessionService.Navigate(c.Request.Context(), claims.Subject, *req.Index)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// RequestFinish godoc
// POST /api/v1/student/exam/finish
// Returns the confirmation dialog, listing unanswered questions if any.
func (h *StudentPortalHandler) RequestFinish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	dialog, err := h.sessionService.RequestFinish(claims.Subject)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"dialog": dialog})
}

// CancelFinish godoc
// POST /api/v1/student/exam/finish/cancel
func (h *StudentPortalHandler) CancelFinish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.sessionService.CancelFinish(claims.Subject); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ConfirmFinish godoc
// POST /api/v1/student/exam/finish/confirm
// Scores and submits the attempt.
func (h *StudentPortalHandler) ConfirmFinish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	student, err := h.sessionService.ConfirmFinish(c.Request.Context(), claims.Subject)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status": student.Status,
		"score":  student.Score,
	})
}

// DismissWarning godoc
// POST /api/v1/student/exam/warning/dismiss
func (h *StudentPortalHandler) DismissWarning(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.sessionService.DismissWarning(claims.Subject); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// LeaveExam godoc
// POST /api/v1/student/exam/leave
// Stops the session timers without submitting.
func (h *StudentPortalHandler) LeaveExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	h.sessionService.Leave(claims.Subject)
	response.Success(c, http.StatusOK, gin.H{})
}

// GetResult godoc
// GET /api/v1/student/result
// Returns the score and per-question breakdown for the session subject.
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.studentService.Result(c.Request.Context(), claims.Subject, claims.ActiveSubject)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}
