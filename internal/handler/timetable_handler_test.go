package handler

import (
	"bytes"
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
	"github.com/noah-isme/timetable-api/pkg/clock"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type conflictProbeMock struct {
	hits []models.Period
}

func (m *conflictProbeMock) FindConflicts(ctx context.Context, q models.PeriodConflictQuery) ([]models.Period, error) {
	return m.hits, nil
}

func availabilityHandler(hits []models.Period) *TimetableHandler {
	availability := service.NewAvailabilityService(&conflictProbeMock{hits: hits}, nil, nil)
	return NewTimetableHandler(nil, availability, nil)
}

func postJSON(t *testing.T, handlerFn gin.HandlerFunc, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	handlerFn(c)
	return w
}

func TestTimetableHandlerCheckAvailabilityOK(t *testing.T) {
	handler := availabilityHandler(nil)

	body := `{"period":{"day_of_week":1,"start_time":"08:00","end_time":"09:30","teacher_id":"profile-1","classroom_id":"room-1"}}`
	w := postJSON(t, handler.CheckAvailability, "/timetables/availability", body)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.AvailabilityResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.IsAvailable)
}

func TestTimetableHandlerCheckAvailabilityConflict(t *testing.T) {
	start, _ := clock.Parse("08:00")
	end, _ := clock.Parse("09:30")
	handler := availabilityHandler([]models.Period{{
		DayOfWeek: 1, StartTime: start, EndTime: end,
		TeacherProfileID: "profile-1", ClassroomID: "room-1",
	}})

	body := `{"period":{"day_of_week":1,"start_time":"09:00","end_time":"10:00","teacher_id":"profile-1","classroom_id":"room-1"}}`
	w := postJSON(t, handler.CheckAvailability, "/timetables/availability", body)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.AvailabilityResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.IsAvailable)
	require.Len(t, envelope.Data.Conflicts, 2)
	assert.Equal(t, models.ConflictTeacher, envelope.Data.Conflicts[0].Type)
}

func TestTimetableHandlerCheckAvailabilityBadPayload(t *testing.T) {
	handler := availabilityHandler(nil)

	w := postJSON(t, handler.CheckAvailability, "/timetables/availability", `{"period":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestTimetableHandlerCheckAvailabilityInvalidTimes(t *testing.T) {
	handler := availabilityHandler(nil)

	body := `{"period":{"day_of_week":1,"start_time":"09:30","end_time":"08:00","teacher_id":"profile-1","classroom_id":"room-1"}}`
	w := postJSON(t, handler.CheckAvailability, "/timetables/availability", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
