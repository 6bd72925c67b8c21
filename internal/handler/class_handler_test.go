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

	"github.com/trainova/classtrack-api/internal/middleware"
	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/internal/service"
	appErrors "github.com/trainova/classtrack-api/pkg/errors"
)

type fakeClassSrv struct {
	record     *models.ClassRecord
	records    []models.ClassRecord
	pagination *models.Pagination
	stats      *models.ClassStatistics
	statsHit   bool
	code       string
	err        error

	lastFilter models.ClassFilter
	lastID     int64
	lastInput  map[string]interface{}
	lastNote   service.AppendNoteRequest
	lastActor  models.Identity
	lastDays   int
}

func (f *fakeClassSrv) List(_ context.Context, filter models.ClassFilter) ([]models.ClassRecord, *models.Pagination, error) {
	f.lastFilter = filter
	return f.records, f.pagination, f.err
}

func (f *fakeClassSrv) Get(_ context.Context, id int64) (*models.ClassRecord, error) {
	f.lastID = id
	return f.record, f.err
}

func (f *fakeClassSrv) GetByCode(_ context.Context, code string) (*models.ClassRecord, error) {
	return f.record, f.err
}

func (f *fakeClassSrv) Create(_ context.Context, input map[string]interface{}) (*models.ClassRecord, error) {
	f.lastInput = input
	return f.record, f.err
}

func (f *fakeClassSrv) Update(_ context.Context, id int64, input map[string]interface{}) (*models.ClassRecord, error) {
	f.lastID = id
	f.lastInput = input
	return f.record, f.err
}

func (f *fakeClassSrv) Delete(_ context.Context, id int64) error {
	f.lastID = id
	return f.err
}

func (f *fakeClassSrv) AppendNote(_ context.Context, id int64, req service.AppendNoteRequest, actor models.Identity) (*models.ClassRecord, error) {
	f.lastID = id
	f.lastNote = req
	f.lastActor = actor
	return f.record, f.err
}

func (f *fakeClassSrv) ReplaceSchedule(_ context.Context, id int64, _ service.ReplaceScheduleRequest) (*models.ClassRecord, error) {
	f.lastID = id
	return f.record, f.err
}

func (f *fakeClassSrv) Upcoming(_ context.Context, days int) ([]models.ClassRecord, error) {
	f.lastDays = days
	return f.records, f.err
}

func (f *fakeClassSrv) ByAgent(_ context.Context, id int64) ([]models.ClassRecord, error) {
	f.lastID = id
	return f.records, f.err
}

func (f *fakeClassSrv) BySupervisor(_ context.Context, id int64) ([]models.ClassRecord, error) {
	f.lastID = id
	return f.records, f.err
}

func (f *fakeClassSrv) ByClient(_ context.Context, id int64) ([]models.ClassRecord, error) {
	f.lastID = id
	return f.records, f.err
}

func (f *fakeClassSrv) ByLearner(_ context.Context, id int64) ([]models.ClassRecord, error) {
	f.lastID = id
	return f.records, f.err
}

func (f *fakeClassSrv) Statistics(context.Context) (*models.ClassStatistics, bool, error) {
	return f.stats, f.statsHit, f.err
}

func (f *fakeClassSrv) GenerateClassCode(_ context.Context, clientID int64, classType string) (string, error) {
	f.lastID = clientID
	return f.code, f.err
}

func newGinContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBufferString("")
	} else {
		reader = bytes.NewBufferString(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, rec
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func TestClassHandlerListParsesFilters(t *testing.T) {
	srv := &fakeClassSrv{records: []models.ClassRecord{{ClassCode: "EMP-011-0001"}}}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodGet, "/classes?client_id=11&class_type=EMP&class_types=EMP,AET&agent_id=9&supervisor_id=4&search=emp&page=2&limit=10", "")
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, srv.lastFilter.ClientID) {
		assert.Equal(t, int64(11), *srv.lastFilter.ClientID)
	}
	assert.Equal(t, "EMP", srv.lastFilter.ClassType)
	assert.Equal(t, []string{"EMP", "AET"}, srv.lastFilter.ClassTypes)
	if assert.NotNil(t, srv.lastFilter.ClassAgent) {
		assert.Equal(t, int64(9), *srv.lastFilter.ClassAgent)
	}
	if assert.NotNil(t, srv.lastFilter.ProjectSupervisorID) {
		assert.Equal(t, int64(4), *srv.lastFilter.ProjectSupervisorID)
	}
	assert.Equal(t, "emp", srv.lastFilter.Search)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 10, srv.lastFilter.PageSize)
}

func TestClassHandlerGetInvalidID(t *testing.T) {
	h := NewClassHandler(&fakeClassSrv{})

	c, rec := newGinContext(http.MethodGet, "/classes/abc", "")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassHandlerGetNotFound(t *testing.T) {
	srv := &fakeClassSrv{err: appErrors.Clone(appErrors.ErrNotFound, "class record not found")}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodGet, "/classes/42", "")
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(42), srv.lastID)
}

func TestClassHandlerCreate(t *testing.T) {
	srv := &fakeClassSrv{record: &models.ClassRecord{ClassCode: "EMP-011-0002"}}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodPost, "/classes", `{"class_code":"EMP-011-0002","client_id":11}`)
	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "EMP-011-0002", srv.lastInput["class_code"])

	var envelope responseEnvelope
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "EMP-011-0002", envelope.Data["class_code"])
}

func TestClassHandlerCreateRejectsMalformedJSON(t *testing.T) {
	h := NewClassHandler(&fakeClassSrv{})

	c, rec := newGinContext(http.MethodPost, "/classes", `{"class_code":`)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassHandlerUpdate(t *testing.T) {
	srv := &fakeClassSrv{record: &models.ClassRecord{ClassDuration: 45}}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodPut, "/classes/3", `{"class_duration":45}`)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), srv.lastID)
	assert.Equal(t, float64(45), srv.lastInput["class_duration"])
}

func TestClassHandlerDelete(t *testing.T) {
	srv := &fakeClassSrv{}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodDelete, "/classes/5", "")
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	h.Delete(c)
	// Bodyless responses leave the status buffered in gin's writer; flush it
	// to the recorder as the engine does at the end of the handler chain.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(5), srv.lastID)
}

func TestClassHandlerAppendNotePassesActor(t *testing.T) {
	srv := &fakeClassSrv{record: &models.ClassRecord{ClassCode: "EMP-011-0001"}}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodPost, "/classes/5/notes", `{"type":"Class Visit","note":"Generator failure on site"}`)
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Set(middleware.ContextIdentityKey, models.Identity{UserID: "u-9", FullName: "Thandi Nkosi", Role: models.RoleCoordinator})
	h.AppendNote(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Class Visit", srv.lastNote.Type)
	assert.Equal(t, "Generator failure on site", srv.lastNote.Note)
	assert.Equal(t, "u-9", srv.lastActor.UserID)
	assert.Equal(t, "Thandi Nkosi", srv.lastActor.FullName)
}

func TestClassHandlerReplaceSchedule(t *testing.T) {
	srv := &fakeClassSrv{record: &models.ClassRecord{ClassCode: "EMP-011-0001"}}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodPut, "/classes/5/schedule", `{"days":["Monday"],"start_time":"09:00","end_time":"15:00"}`)
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	h.ReplaceSchedule(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), srv.lastID)
}

func TestClassHandlerUpcomingDefaultsWindow(t *testing.T) {
	srv := &fakeClassSrv{records: []models.ClassRecord{}}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodGet, "/schedule/upcoming", "")
	h.Upcoming(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, srv.lastDays)
}

func TestClassHandlerUpcomingRejectsBadDays(t *testing.T) {
	h := NewClassHandler(&fakeClassSrv{})

	c, rec := newGinContext(http.MethodGet, "/schedule/upcoming?days=-3", "")
	h.Upcoming(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassHandlerStatisticsMeta(t *testing.T) {
	srv := &fakeClassSrv{stats: &models.ClassStatistics{TotalClasses: 12}, statsHit: true}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodGet, "/statistics/classes", "")
	h.Statistics(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, float64(12), envelope.Data["total_classes"])
}

func TestClassHandlerGenerateCodeRequiresClient(t *testing.T) {
	h := NewClassHandler(&fakeClassSrv{code: "EMP-011-0003"})

	c, rec := newGinContext(http.MethodGet, "/class-codes/generate?class_type=EMP", "")
	h.GenerateCode(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassHandlerGenerateCode(t *testing.T) {
	srv := &fakeClassSrv{code: "EMP-011-0003"}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodGet, "/class-codes/generate?client_id=11&class_type=EMP", "")
	h.GenerateCode(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(11), srv.lastID)
	var envelope responseEnvelope
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "EMP-011-0003", envelope.Data["class_code"])
}

func TestClassHandlerByAgent(t *testing.T) {
	srv := &fakeClassSrv{records: []models.ClassRecord{{ClassCode: "EMP-011-0001"}, {ClassCode: "EMP-011-0002"}}}
	h := NewClassHandler(srv)

	c, rec := newGinContext(http.MethodGet, "/agents/9/classes", "")
	c.Params = gin.Params{{Key: "id", Value: "9"}}
	h.ByAgent(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), srv.lastID)
}

func TestClassHandlerGetByCodeRequiresValue(t *testing.T) {
	h := NewClassHandler(&fakeClassSrv{})

	c, rec := newGinContext(http.MethodGet, "/class-code/%20", "")
	c.Params = gin.Params{{Key: "code", Value: "  "}}
	h.GetByCode(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
