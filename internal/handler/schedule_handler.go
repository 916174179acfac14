package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

// ScheduleHandler exposes per-term schedule views and exports.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Teacher godoc
// @Summary Get a teacher's schedule for a term
// @Tags Schedules
// @Produce json
// @Param id path string true "Teacher profile ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedule [get]
func (h *ScheduleHandler) Teacher(c *gin.Context) {
	termID, ok := requireTermID(c)
	if !ok {
		return
	}
	schedule, err := h.schedules.TeacherSchedule(c.Request.Context(), c.Param("id"), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Classroom godoc
// @Summary Get a classroom's schedule for a term
// @Tags Schedules
// @Produce json
// @Param id path string true "Classroom ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/schedule [get]
func (h *ScheduleHandler) Classroom(c *gin.Context) {
	termID, ok := requireTermID(c)
	if !ok {
		return
	}
	schedule, err := h.schedules.ClassroomSchedule(c.Request.Context(), c.Param("id"), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// ExportTeacher godoc
// @Summary Export a teacher's schedule as CSV or PDF
// @Tags Schedules
// @Produce octet-stream
// @Param id path string true "Teacher profile ID"
// @Param termId query string true "Term ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /teachers/{id}/schedule/export [get]
func (h *ScheduleHandler) ExportTeacher(c *gin.Context) {
	termID, ok := requireTermID(c)
	if !ok {
		return
	}
	result, err := h.schedules.ExportTeacherSchedule(c.Request.Context(), c.Param("id"), termID, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, result)
}

// ExportClassroom godoc
// @Summary Export a classroom's schedule as CSV or PDF
// @Tags Schedules
// @Produce octet-stream
// @Param id path string true "Classroom ID"
// @Param termId query string true "Term ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /classrooms/{id}/schedule/export [get]
func (h *ScheduleHandler) ExportClassroom(c *gin.Context) {
	termID, ok := requireTermID(c)
	if !ok {
		return
	}
	result, err := h.schedules.ExportClassroomSchedule(c.Request.Context(), c.Param("id"), termID, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, result)
}

func requireTermID(c *gin.Context) (string, bool) {
	termID := strings.TrimSpace(c.Query("termId"))
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return "", false
	}
	return termID, true
}

func exportFormat(c *gin.Context) service.ExportFormat {
	return service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
}

func serveExport(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
