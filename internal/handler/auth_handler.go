package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/middleware"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/response"
	"github.com/grahaedukasi/graha-cbt/internal/service"
	"github.com/grahaedukasi/graha-cbt/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	studentService *service.StudentService
	log            zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, studentService *service.StudentService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		studentService: studentService,
		log:            log.With().Str("component", "auth_handler").Logger(),
	}
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Looks up the access code, applies the schedule gate and returns a JWT
// carrying the active subject.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.authService.StudentLogin(c.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidAccessCode)
			return
		}
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetStudentProfile godoc
// GET /api/v1/auth/student/me
// Returns the student's biodata for the confirmation screen.
func (h *AuthHandler) GetStudentProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), claims.Subject)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"student": gin.H{
			"id":        student.ID,
			"name":      student.Name,
			"className": student.ClassName,
			"school":    student.School,
			"status":    student.Status,
		},
		"activeSubject": claims.ActiveSubject,
	})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Validates email + password, returns an admin JWT.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.authService.AdminLogin(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"token": token})
}
