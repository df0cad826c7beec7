package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/response"
	"github.com/grahaedukasi/graha-cbt/internal/service"
	"github.com/grahaedukasi/graha-cbt/internal/validator"
)

type SettingHandler struct {
	settingService *service.SettingService
	log            zerolog.Logger
}

func NewSettingHandler(settingService *service.SettingService, log zerolog.Logger) *SettingHandler {
	return &SettingHandler{
		settingService: settingService,
		log:            log.With().Str("component", "setting_handler").Logger(),
	}
}

// GetExamConfig godoc
// GET /api/v1/admin/exam-config
func (h *SettingHandler) GetExamConfig(c *gin.Context) {
	cfg, err := h.settingService.GetExamConfig(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"config": cfg})
}

// UpdateExamConfig godoc
// PUT /api/v1/admin/exam-config
func (h *SettingHandler) UpdateExamConfig(c *gin.Context) {
	var req model.UpdateExamConfigRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cfg, err := h.settingService.SaveExamConfig(c.Request.Context(), req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"config": cfg})
}

// GetPublicConfig godoc
// GET /api/v1/public/config
// Title, description, duration and the schedule currently in force.
func (h *SettingHandler) GetPublicConfig(c *gin.Context) {
	cfg, err := h.settingService.GetExamConfig(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	status, err := h.settingService.CurrentSchedule(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"title":           cfg.Title,
		"description":     cfg.Description,
		"durationMinutes": cfg.DurationMinutes,
		"schedule":        status,
	})
}
