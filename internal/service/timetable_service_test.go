package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableRepoStub struct {
	byID      map[string]*models.Timetable
	byKey     map[string]*models.Timetable
	breaks    map[string][]models.BreakTime
	created   []*models.Timetable
	deleted   []string
	listItems []models.Timetable
	listTotal int
}

func newTimetableRepoStub() *timetableRepoStub {
	return &timetableRepoStub{
		byID:   map[string]*models.Timetable{},
		byKey:  map[string]*models.Timetable{},
		breaks: map[string][]models.BreakTime{},
	}
}

func keyOf(termID, classGroupID, classID string) string {
	return termID + "|" + classGroupID + "|" + classID
}

func (s *timetableRepoStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	if tt, ok := s.byID[id]; ok {
		cp := *tt
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *timetableRepoStub) FindByKey(ctx context.Context, termID, classGroupID, classID string) (*models.Timetable, error) {
	if tt, ok := s.byKey[keyOf(termID, classGroupID, classID)]; ok {
		cp := *tt
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *timetableRepoStub) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	return s.listItems, s.listTotal, nil
}

func (s *timetableRepoStub) CreateWithChildren(ctx context.Context, timetable *models.Timetable, periods []models.Period, breakTimes []models.BreakTime) error {
	timetable.ID = "tt-new"
	cp := *timetable
	s.created = append(s.created, timetable)
	s.byID[timetable.ID] = &cp
	s.byKey[keyOf(timetable.TermID, timetable.ClassGroupID, timetable.ClassID)] = &cp
	return nil
}

func (s *timetableRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

func (s *timetableRepoStub) ListBreakTimes(ctx context.Context, timetableID string) ([]models.BreakTime, error) {
	return s.breaks[timetableID], nil
}

type childPeriodsStub struct {
	byTimetable map[string][]models.Period
}

func (s *childPeriodsStub) ListByTimetable(ctx context.Context, timetableID string) ([]models.Period, error) {
	return s.byTimetable[timetableID], nil
}

type fullLookupStub struct {
	missing map[string]bool
}

func (s *fullLookupStub) check(id string) (bool, error) { return !s.missing[id], nil }

func (s *fullLookupStub) TermExists(ctx context.Context, id string) (bool, error) {
	return s.check(id)
}
func (s *fullLookupStub) ClassGroupExists(ctx context.Context, id string) (bool, error) {
	return s.check(id)
}
func (s *fullLookupStub) ClassExists(ctx context.Context, id string) (bool, error) { return s.check(id) }
func (s *fullLookupStub) SubjectExists(ctx context.Context, id string) (bool, error) {
	return s.check(id)
}
func (s *fullLookupStub) ClassroomExists(ctx context.Context, id string) (bool, error) {
	return s.check(id)
}
func (s *fullLookupStub) TeacherProfileExists(ctx context.Context, id string) (bool, error) {
	return s.check(id)
}

func newTimetableService(repo *timetableRepoStub, lookups *fullLookupStub) (*TimetableService, *childPeriodsStub) {
	if lookups == nil {
		lookups = &fullLookupStub{missing: map[string]bool{}}
	}
	periods := &childPeriodsStub{byTimetable: map[string][]models.Period{}}
	return NewTimetableService(repo, periods, lookups, nil, nil, nil), periods
}

func timetableReq() CreateTimetableRequest {
	return CreateTimetableRequest{
		TermID:       "term-1",
		ClassGroupID: "group-1",
		ClassID:      "class-1",
		Periods: []TimetablePeriodInput{
			{DayOfWeek: 1, StartTime: "08:00", EndTime: "09:30", SubjectID: "subject-1", TeacherID: "profile-1", ClassroomID: "room-1"},
		},
		BreakTimes: []TimetableBreakInput{
			{DayOfWeek: 1, StartTime: "10:15", EndTime: "10:30", Type: models.BreakTypeShort},
		},
	}
}

func TestTimetableCreatePersistsChildren(t *testing.T) {
	repo := newTimetableRepoStub()
	svc, _ := newTimetableService(repo, nil)

	timetable, err := svc.Create(context.Background(), timetableReq())
	require.NoError(t, err)
	assert.Equal(t, "tt-new", timetable.ID)
	require.Len(t, timetable.Periods, 1)
	assert.Equal(t, 90, timetable.Periods[0].DurationMinutes)
	require.Len(t, timetable.BreakTimes, 1)
	require.Len(t, repo.created, 1)
}

func TestTimetableCreateUpsertReturnsExisting(t *testing.T) {
	repo := newTimetableRepoStub()
	existing := &models.Timetable{ID: "tt-1", TermID: "term-1", ClassGroupID: "group-1", ClassID: "class-1"}
	repo.byID["tt-1"] = existing
	repo.byKey[keyOf("term-1", "group-1", "class-1")] = existing
	repo.breaks["tt-1"] = []models.BreakTime{{ID: "bt-1", TimetableID: "tt-1", DayOfWeek: 1, StartTime: "10:15", EndTime: "10:30", Type: models.BreakTypeShort}}
	svc, periods := newTimetableService(repo, nil)
	stored := storedPeriod(1, "07:00", "08:00")
	stored.TimetableID = "tt-1"
	periods.byTimetable["tt-1"] = []models.Period{stored}

	// The submitted children are ignored: the stored timetable wins.
	timetable, err := svc.Create(context.Background(), timetableReq())
	require.NoError(t, err)
	assert.Equal(t, "tt-1", timetable.ID)
	assert.Empty(t, repo.created)
	require.Len(t, timetable.Periods, 1)
	assert.Equal(t, stored.StartTime, timetable.Periods[0].StartTime)
}

func TestTimetableCreateUnknownReference(t *testing.T) {
	repo := newTimetableRepoStub()
	svc, _ := newTimetableService(repo, &fullLookupStub{missing: map[string]bool{"class-1": true}})

	_, err := svc.Create(context.Background(), timetableReq())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "class-1")
}

func TestTimetableCreateInvalidPeriod(t *testing.T) {
	repo := newTimetableRepoStub()
	svc, _ := newTimetableService(repo, nil)

	req := timetableReq()
	req.Periods[0].EndTime = "08:00"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableCreateCanonicalizesBreakTimes(t *testing.T) {
	repo := newTimetableRepoStub()
	svc, _ := newTimetableService(repo, nil)

	req := timetableReq()
	// Unpadded break bounds are accepted and stored zero-padded; "9:00" would
	// otherwise sort after "10:00" in the lexical break rule.
	req.BreakTimes = []TimetableBreakInput{
		{DayOfWeek: 1, StartTime: "9:00", EndTime: "10:00", Type: models.BreakTypeLunch},
	}
	timetable, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, timetable.BreakTimes, 1)
	assert.Equal(t, "09:00", timetable.BreakTimes[0].StartTime)
	assert.Equal(t, "10:00", timetable.BreakTimes[0].EndTime)
}

func TestTimetableCreateInvalidBreak(t *testing.T) {
	repo := newTimetableRepoStub()
	svc, _ := newTimetableService(repo, nil)

	req := timetableReq()
	req.BreakTimes[0].EndTime = "10:15"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableGetWithChildren(t *testing.T) {
	repo := newTimetableRepoStub()
	repo.byID["tt-1"] = &models.Timetable{ID: "tt-1"}
	repo.breaks["tt-1"] = []models.BreakTime{{ID: "bt-1", TimetableID: "tt-1"}}
	svc, periods := newTimetableService(repo, nil)
	periods.byTimetable["tt-1"] = []models.Period{storedPeriod(1, "08:00", "09:30")}

	timetable, err := svc.Get(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Len(t, timetable.Periods, 1)
	assert.Len(t, timetable.BreakTimes, 1)

	_, err = svc.Get(context.Background(), "tt-missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableListPagination(t *testing.T) {
	repo := newTimetableRepoStub()
	repo.listItems = []models.Timetable{{ID: "tt-1"}, {ID: "tt-2"}}
	repo.listTotal = 12
	svc, _ := newTimetableService(repo, nil)

	items, pagination, err := svc.List(context.Background(), models.TimetableFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 12, pagination.TotalCount)
}

func TestTimetableDelete(t *testing.T) {
	repo := newTimetableRepoStub()
	repo.byID["tt-1"] = &models.Timetable{ID: "tt-1"}
	svc, _ := newTimetableService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), "tt-1"))
	assert.Equal(t, []string{"tt-1"}, repo.deleted)

	err := svc.Delete(context.Background(), "tt-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
