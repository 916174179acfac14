package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
)

type scheduleEntriesMock struct {
	entries []models.ScheduleEntry
}

func (m *scheduleEntriesMock) ListByTeacher(ctx context.Context, teacherProfileID, termID string) ([]models.ScheduleEntry, error) {
	return m.entries, nil
}

func (m *scheduleEntriesMock) ListByClassroom(ctx context.Context, classroomID, termID string) ([]models.ScheduleEntry, error) {
	return m.entries, nil
}

type termBreaksMock struct{}

func (termBreaksMock) ListBreakTimesByTerm(ctx context.Context, termID string) ([]models.BreakTime, error) {
	return nil, nil
}

type existsMock struct{}

func (existsMock) TeacherProfileExists(ctx context.Context, id string) (bool, error) {
	return true, nil
}

func (existsMock) ClassroomExists(ctx context.Context, id string) (bool, error) { return true, nil }

func newScheduleHandler(entries []models.ScheduleEntry) *ScheduleHandler {
	svc := service.NewScheduleService(&scheduleEntriesMock{entries: entries}, termBreaksMock{}, existsMock{}, nil, nil)
	return NewScheduleHandler(svc)
}

func getRequest(t *testing.T, handlerFn gin.HandlerFunc, target, id string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: id}}
	handlerFn(c)
	return w
}

func TestScheduleHandlerTeacher(t *testing.T) {
	handler := newScheduleHandler([]models.ScheduleEntry{{ID: "entry-1", SubjectName: "Math"}})

	w := getRequest(t, handler.Teacher, "/teachers/profile-1/schedule?termId=term-1", "profile-1")
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.Schedule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Periods, 1)
	assert.Equal(t, "Math", envelope.Data.Periods[0].SubjectName)
}

func TestScheduleHandlerTermIDRequired(t *testing.T) {
	handler := newScheduleHandler(nil)

	w := getRequest(t, handler.Classroom, "/classrooms/room-1/schedule", "room-1")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerExportCSV(t *testing.T) {
	handler := newScheduleHandler(nil)

	w := getRequest(t, handler.ExportTeacher, "/teachers/profile-1/schedule/export?termId=term-1&format=csv", "profile-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "teacher-schedule-profile-1.csv")
}

func TestScheduleHandlerExportBadFormat(t *testing.T) {
	handler := newScheduleHandler(nil)

	w := getRequest(t, handler.ExportClassroom, "/classrooms/room-1/schedule/export?termId=term-1&format=xlsx", "room-1")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
