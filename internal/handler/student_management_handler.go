package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/response"
	"github.com/grahaedukasi/graha-cbt/internal/service"
	"github.com/grahaedukasi/graha-cbt/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StudentManagementHandler handles admin-facing student management.
type StudentManagementHandler struct {
	studentService *service.StudentService
	reportService  *service.ReportService
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewStudentManagementHandler creates a new StudentManagementHandler.
func NewStudentManagementHandler(
	studentService *service.StudentService,
	reportService *service.ReportService,
	sessionService *service.ExamSessionService,
	log zerolog.Logger,
) *StudentManagementHandler {
	return &StudentManagementHandler{
		studentService: studentService,
		reportService:  reportService,
		sessionService: sessionService,
		log:            log.With().Str("component", "student_management_handler").Logger(),
	}
}

// ListStudents godoc
// GET /api/v1/admin/students?search=&page=&per_page=
func (h *StudentManagementHandler) ListStudents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	students, pagination, err := h.studentService.ListStudents(c.Request.Context(), c.Query("search"), page, perPage)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	if students == nil {
		students = []model.Student{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students}, pagination)
}

// GetStudent godoc
// GET /api/v1/admin/students/:id
func (h *StudentManagementHandler) GetStudent(c *gin.Context) {
	student, err := h.studentService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// CreateStudent godoc
// POST /api/v1/admin/students
// Registers a student and generates their access code.
func (h *StudentManagementHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// ImportStudents godoc
// POST /api/v1/admin/students/import
// Accepts an XLSX roster as multipart "file", or a JSON array of students.
func (h *StudentManagementHandler) ImportStudents(c *gin.Context) {
	if file, header, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
			return
		}
		res, err := h.reportService.ImportStudents(c.Request.Context(), file)
		if err != nil {
			failFromError(c, h.log, err)
			return
		}
		response.Success(c, http.StatusOK, res)
		return
	}

	var rows []model.CreateStudentRequest
	if err := c.ShouldBindJSON(&rows); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	res, err := h.studentService.Import(c.Request.Context(), rows)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ExportStudents godoc
// GET /api/v1/admin/students/export
// Downloads every student with status and score as XLSX.
func (h *StudentManagementHandler) ExportStudents(c *gin.Context) {
	data, err := h.reportService.ExportStudents(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="hasil-ujian-%s.xlsx"`, time.Now().Format("20060102")))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ResetStudent godoc
// POST /api/v1/admin/students/:id/reset
// Clears answers, start time and score, and stops any running session.
func (h *StudentManagementHandler) ResetStudent(c *gin.Context) {
	id := c.Param("id")
	h.sessionService.Leave(id)

	student, err := h.studentService.Reset(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// DeleteStudent godoc
// DELETE /api/v1/admin/students/:id
func (h *StudentManagementHandler) DeleteStudent(c *gin.Context) {
	id := c.Param("id")
	h.sessionService.Leave(id)

	if err := h.studentService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student deleted"})
}
