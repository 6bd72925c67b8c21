package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/internal/repository"
	appErrors "github.com/trainova/classtrack-api/pkg/errors"
)

type mockClassStore struct {
	classes    map[int64]models.ClassRecord
	nextID     int64
	createErr  error
	updateErr  error
	codeProbes []string
	statsCalls int
	lastFrom   models.Date
	lastTo     models.Date
}

func newMockClassStore() *mockClassStore {
	return &mockClassStore{classes: make(map[int64]models.ClassRecord), nextID: 1}
}

func (m *mockClassStore) seed(rec models.ClassRecord) int64 {
	id := m.nextID
	m.nextID++
	rec.ClassID = &id
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.UpdatedAt = rec.CreatedAt
	m.classes[id] = rec
	return id
}

func (m *mockClassStore) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, int, error) {
	out := make([]models.ClassRecord, 0, len(m.classes))
	for _, rec := range m.classes {
		out = append(out, rec)
	}
	return out, len(out), nil
}

func (m *mockClassStore) FindByID(ctx context.Context, id int64) (*models.ClassRecord, error) {
	if rec, ok := m.classes[id]; ok {
		return &rec, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassStore) FindByClassCode(ctx context.Context, code string) (*models.ClassRecord, error) {
	for _, rec := range m.classes {
		if strings.EqualFold(rec.ClassCode, code) {
			found := rec
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassStore) ClassCodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	m.codeProbes = append(m.codeProbes, code)
	for id, rec := range m.classes {
		if excludeID > 0 && id == excludeID {
			continue
		}
		if strings.EqualFold(rec.ClassCode, code) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClassStore) Create(ctx context.Context, rec *models.ClassRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	id := m.nextID
	m.nextID++
	now := time.Now().UTC()
	rec.ClassID = &id
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.classes[id] = *rec
	return nil
}

func (m *mockClassStore) Update(ctx context.Context, rec *models.ClassRecord) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if rec.ClassID == nil {
		return sql.ErrNoRows
	}
	if _, ok := m.classes[*rec.ClassID]; !ok {
		return sql.ErrNoRows
	}
	rec.UpdatedAt = time.Now().UTC()
	m.classes[*rec.ClassID] = *rec
	return nil
}

func (m *mockClassStore) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := m.classes[id]; !ok {
		return false, nil
	}
	delete(m.classes, id)
	return true, nil
}

func (m *mockClassStore) FindByAgentID(ctx context.Context, agentID int64) ([]models.ClassRecord, error) {
	var out []models.ClassRecord
	for _, rec := range m.classes {
		if rec.ClassAgent == agentID || rec.InitialClassAgent == agentID || rec.BackupAgentIDs.Contains(agentID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockClassStore) FindBySupervisorID(ctx context.Context, supervisorID int64) ([]models.ClassRecord, error) {
	var out []models.ClassRecord
	for _, rec := range m.classes {
		if rec.ProjectSupervisorID == supervisorID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockClassStore) FindByClientID(ctx context.Context, clientID int64) ([]models.ClassRecord, error) {
	var out []models.ClassRecord
	for _, rec := range m.classes {
		if rec.ClientID == clientID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockClassStore) FindByLearnerID(ctx context.Context, learnerID int64) ([]models.ClassRecord, error) {
	var out []models.ClassRecord
	for _, rec := range m.classes {
		if rec.LearnerIDs.Contains(learnerID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockClassStore) FindByDateRange(ctx context.Context, from, to models.Date) ([]models.ClassRecord, error) {
	m.lastFrom, m.lastTo = from, to
	var out []models.ClassRecord
	for _, rec := range m.classes {
		if !rec.OriginalStartDate.Time.Before(from.Time) && !rec.OriginalStartDate.Time.After(to.Time) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockClassStore) Statistics(ctx context.Context) (*models.ClassStatistics, error) {
	m.statsCalls++
	return &models.ClassStatistics{TotalClasses: len(m.classes)}, nil
}

type mockCacheRepo struct {
	data map[string][]byte
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{data: make(map[string][]byte)}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		for key := range m.data {
			if strings.HasPrefix(key, prefix) {
				delete(m.data, key)
			}
		}
		return nil
	}
	delete(m.data, pattern)
	return nil
}

func newClassService(repo *mockClassStore) *ClassService {
	return NewClassService(repo, nil, nil, validator.New(), zap.NewNop(), 0)
}

func assertErrorCode(t *testing.T, err error, code string) *appErrors.Error {
	t.Helper()
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func validCreateInput() map[string]interface{} {
	return map[string]interface{}{
		"client_id":             11,
		"class_type":            "Employability Skills",
		"class_subject":         "Workplace Readiness",
		"class_code":            "EMP-011-0001",
		"class_duration":        30,
		"original_start_date":   models.DateOf(time.Now()).String(),
		"class_agent":           9,
		"project_supervisor_id": 4,
	}
}

func TestClassServiceCreate(t *testing.T) {
	repo := newMockClassStore()
	svc := newClassService(repo)

	rec, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NotNil(t, rec.ClassID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.UpdatedAt.IsZero())
	assert.Equal(t, int64(9), rec.InitialClassAgent)
	assert.Len(t, repo.classes, 1)
}

func TestClassServiceCreateMissingFields(t *testing.T) {
	repo := newMockClassStore()
	svc := newClassService(repo)

	_, err := svc.Create(context.Background(), map[string]interface{}{"class_subject": "Workplace Readiness"})
	appErr := assertErrorCode(t, err, appErrors.ErrValidation.Code)
	assert.Contains(t, appErr.Fields, "client_id")
	assert.Contains(t, appErr.Fields, "class_code")
	assert.Empty(t, repo.classes)
	assert.Empty(t, repo.codeProbes, "shape validation must fail before any uniqueness lookup")
}

func TestClassServiceCreateBusinessRuleViolations(t *testing.T) {
	repo := newMockClassStore()
	svc := newClassService(repo)

	input := validCreateInput()
	input["seta_funded"] = true
	learners := make([]interface{}, 0, models.MaxLearners+1)
	for i := 0; i < models.MaxLearners+1; i++ {
		learners = append(learners, i+1)
	}
	input["learner_ids"] = learners

	_, err := svc.Create(context.Background(), input)
	appErr := assertErrorCode(t, err, appErrors.ErrBusinessRule.Code)
	require.Len(t, appErr.Details, 2)
	assert.Contains(t, appErr.Error(), "SETA is required")
	assert.Empty(t, repo.codeProbes)
}

func TestClassServiceCreateBoundaryRoster(t *testing.T) {
	repo := newMockClassStore()
	svc := newClassService(repo)

	input := validCreateInput()
	learners := make([]interface{}, 0, models.MaxLearners)
	for i := 0; i < models.MaxLearners; i++ {
		learners = append(learners, i+1)
	}
	input["learner_ids"] = learners

	rec, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, rec.LearnerIDs, models.MaxLearners)
}

func TestClassServiceCreateDuplicateCode(t *testing.T) {
	repo := newMockClassStore()
	repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001"})
	svc := newClassService(repo)

	_, err := svc.Create(context.Background(), validCreateInput())
	assertErrorCode(t, err, appErrors.ErrConflict.Code)
	assert.Len(t, repo.classes, 1, "first record must stay untouched")
}

func TestClassServiceCreateDuplicateFromStorage(t *testing.T) {
	repo := newMockClassStore()
	repo.createErr = repository.ErrDuplicateClassCode
	svc := newClassService(repo)

	_, err := svc.Create(context.Background(), validCreateInput())
	assertErrorCode(t, err, appErrors.ErrConflict.Code)
}

func TestClassServiceCreateIgnoresInboundID(t *testing.T) {
	repo := newMockClassStore()
	svc := newClassService(repo)

	input := validCreateInput()
	input["class_id"] = 999

	rec, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, rec.ClassID)
	assert.Equal(t, int64(1), *rec.ClassID)
}

func TestClassServiceUpdateMergesFields(t *testing.T) {
	repo := newMockClassStore()
	id := repo.seed(models.ClassRecord{
		ClientID:            11,
		ClassType:           "Employability Skills",
		ClassSubject:        "Workplace Readiness",
		ClassCode:           "EMP-011-0001",
		ClassDuration:       30,
		OriginalStartDate:   models.NewDate(2025, time.March, 1),
		ClassAgent:          9,
		InitialClassAgent:   9,
		ProjectSupervisorID: 4,
	})
	svc := newClassService(repo)

	updated, err := svc.Update(context.Background(), id, map[string]interface{}{"class_duration": 45})
	require.NoError(t, err)
	assert.Equal(t, 45, updated.ClassDuration)
	assert.Equal(t, "EMP-011-0001", updated.ClassCode)
	assert.Equal(t, "Workplace Readiness", updated.ClassSubject)
	require.NotNil(t, updated.ClassID)
	assert.Equal(t, id, *updated.ClassID)
	assert.Empty(t, repo.codeProbes, "unchanged code must not trigger a uniqueness lookup")
}

func TestClassServiceUpdateRejectsZeroDuration(t *testing.T) {
	repo := newMockClassStore()
	id := repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001", ClassDuration: 30, OriginalStartDate: models.NewDate(2025, time.March, 1)})
	svc := newClassService(repo)

	_, err := svc.Update(context.Background(), id, map[string]interface{}{"class_duration": 0})
	appErr := assertErrorCode(t, err, appErrors.ErrBusinessRule.Code)
	assert.Contains(t, appErr.Error(), "duration must be between 1 and 365")
}

func TestClassServiceUpdateNotFound(t *testing.T) {
	repo := newMockClassStore()
	svc := newClassService(repo)

	_, err := svc.Update(context.Background(), 42, map[string]interface{}{"class_duration": 10})
	assertErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestClassServiceUpdateCodeChangeConflict(t *testing.T) {
	repo := newMockClassStore()
	repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001", ClassDuration: 30, OriginalStartDate: models.NewDate(2025, time.March, 1)})
	id := repo.seed(models.ClassRecord{ClassCode: "EMP-011-0002", ClassDuration: 30, OriginalStartDate: models.NewDate(2025, time.March, 1)})
	svc := newClassService(repo)

	_, err := svc.Update(context.Background(), id, map[string]interface{}{"class_code": "EMP-011-0001"})
	assertErrorCode(t, err, appErrors.ErrConflict.Code)
	assert.Equal(t, []string{"EMP-011-0001"}, repo.codeProbes)
}

func TestClassServiceUpdateCodeChangeAllowed(t *testing.T) {
	repo := newMockClassStore()
	id := repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001", ClassDuration: 30, OriginalStartDate: models.NewDate(2025, time.March, 1)})
	svc := newClassService(repo)

	updated, err := svc.Update(context.Background(), id, map[string]interface{}{"class_code": "EMP-011-0009"})
	require.NoError(t, err)
	assert.Equal(t, "EMP-011-0009", updated.ClassCode)
}

func TestClassServiceDelete(t *testing.T) {
	repo := newMockClassStore()
	id := repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001"})
	svc := newClassService(repo)

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Empty(t, repo.classes)

	err := svc.Delete(context.Background(), id)
	assertErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestClassServiceAppendNote(t *testing.T) {
	repo := newMockClassStore()
	id := repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001"})
	svc := newClassService(repo)

	actor := models.Identity{UserID: "u-1", FullName: "Thandi Nkosi"}
	rec, err := svc.AppendNote(context.Background(), id, AppendNoteRequest{Type: "general", Note: "Venue confirmed"}, actor)
	require.NoError(t, err)
	require.Len(t, rec.ClassNotesData, 1)
	note := rec.ClassNotesData[0]
	assert.Equal(t, "general", note.Type)
	assert.Equal(t, "Venue confirmed", note.Note)
	assert.Equal(t, "Thandi Nkosi", note.User)
	assert.Equal(t, models.DateOf(time.Now()).String(), note.Date)
	assert.Len(t, repo.classes[id].ClassNotesData, 1)
}

func TestClassServiceAppendNoteRequiresBody(t *testing.T) {
	repo := newMockClassStore()
	id := repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001"})
	svc := newClassService(repo)

	_, err := svc.AppendNote(context.Background(), id, AppendNoteRequest{Type: "general"}, models.Identity{})
	assertErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestClassServiceReplaceSchedule(t *testing.T) {
	repo := newMockClassStore()
	id := repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001"})
	svc := newClassService(repo)

	rec, err := svc.ReplaceSchedule(context.Background(), id, ReplaceScheduleRequest{
		Days:      []string{"Monday", "Wednesday"},
		StartTime: "09:00",
		EndTime:   "15:00",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday", "Wednesday"}, rec.ScheduleData.Days)
	assert.Equal(t, "09:00", rec.ScheduleData.StartTime)
}

func TestClassServiceUpcoming(t *testing.T) {
	repo := newMockClassStore()
	today := models.DateOf(time.Now())
	repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001", OriginalStartDate: today.AddDays(5)})
	repo.seed(models.ClassRecord{ClassCode: "EMP-011-0002", OriginalStartDate: today.AddDays(90)})
	svc := newClassService(repo)

	records, err := svc.Upcoming(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, today.String(), repo.lastFrom.String())
	assert.Equal(t, today.AddDays(30).String(), repo.lastTo.String())
}

func TestClassServiceStatisticsReadThrough(t *testing.T) {
	repo := newMockClassStore()
	repo.seed(models.ClassRecord{ClassCode: "EMP-011-0009"})
	cache := NewCacheService(newMockCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewClassService(repo, cache, nil, validator.New(), zap.NewNop(), time.Minute)

	stats, fromCache, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 1, stats.TotalClasses)
	assert.Equal(t, 1, repo.statsCalls)

	_, fromCache, err = svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, 1, repo.statsCalls)

	_, err = svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	_, fromCache, err = svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, fromCache, "writes must invalidate the cached statistics")
	assert.Equal(t, 2, repo.statsCalls)
}

func TestClassServiceGenerateClassCode(t *testing.T) {
	repo := newMockClassStore()
	repo.seed(models.ClassRecord{ClassCode: "EMP-011-0001"})
	svc := newClassService(repo)

	code, err := svc.GenerateClassCode(context.Background(), 11, "Employability Skills")
	require.NoError(t, err)
	assert.Equal(t, "EMP-011-0002", code)

	code, err = svc.GenerateClassCode(context.Background(), 7, "IT")
	require.NoError(t, err)
	assert.Equal(t, "ITX-007-0001", code)
}

func TestClassServiceGenerateClassCodeRequiresInput(t *testing.T) {
	repo := newMockClassStore()
	svc := newClassService(repo)

	_, err := svc.GenerateClassCode(context.Background(), 0, "Employability Skills")
	assertErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestCalculateEndDate(t *testing.T) {
	end := CalculateEndDate(models.NewDate(2025, time.February, 1), 30)
	assert.Equal(t, "2025-03-03", end.String())
}

func TestClassProgress(t *testing.T) {
	rec := &models.ClassRecord{
		OriginalStartDate: models.NewDate(2025, time.February, 1),
		ClassDuration:     30,
	}
	day := func(d string) time.Time {
		parsed, err := models.ParseDate(d)
		require.NoError(t, err)
		return parsed.Time
	}

	assert.Equal(t, 0, ClassProgress(rec, day("2025-01-31")))
	assert.Equal(t, 0, ClassProgress(rec, day("2025-02-01")))
	assert.Equal(t, 50, ClassProgress(rec, day("2025-02-16")))
	assert.Equal(t, 100, ClassProgress(rec, day("2025-03-03")))
	assert.Equal(t, 100, ClassProgress(rec, day("2025-04-01")))
}

func TestIsClassActive(t *testing.T) {
	rec := &models.ClassRecord{
		OriginalStartDate: models.NewDate(2025, time.February, 1),
		ClassDuration:     30,
	}
	day := func(d string) time.Time {
		parsed, err := models.ParseDate(d)
		require.NoError(t, err)
		return parsed.Time
	}

	assert.False(t, IsClassActive(rec, day("2025-01-31")))
	assert.True(t, IsClassActive(rec, day("2025-02-01")))
	assert.True(t, IsClassActive(rec, day("2025-03-02")))
	assert.False(t, IsClassActive(rec, day("2025-03-03")))
}
