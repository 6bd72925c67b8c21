package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trainova/classtrack-api/internal/middleware"
	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/internal/service"
	appErrors "github.com/trainova/classtrack-api/pkg/errors"
	"github.com/trainova/classtrack-api/pkg/response"
)

type classService interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.ClassRecord, error)
	GetByCode(ctx context.Context, code string) (*models.ClassRecord, error)
	Create(ctx context.Context, input map[string]interface{}) (*models.ClassRecord, error)
	Update(ctx context.Context, id int64, input map[string]interface{}) (*models.ClassRecord, error)
	Delete(ctx context.Context, id int64) error
	AppendNote(ctx context.Context, id int64, req service.AppendNoteRequest, actor models.Identity) (*models.ClassRecord, error)
	ReplaceSchedule(ctx context.Context, id int64, req service.ReplaceScheduleRequest) (*models.ClassRecord, error)
	Upcoming(ctx context.Context, days int) ([]models.ClassRecord, error)
	ByAgent(ctx context.Context, agentID int64) ([]models.ClassRecord, error)
	BySupervisor(ctx context.Context, supervisorID int64) ([]models.ClassRecord, error)
	ByClient(ctx context.Context, clientID int64) ([]models.ClassRecord, error)
	ByLearner(ctx context.Context, learnerID int64) ([]models.ClassRecord, error)
	Statistics(ctx context.Context) (*models.ClassStatistics, bool, error)
	GenerateClassCode(ctx context.Context, clientID int64, classType string) (string, error)
}

// ClassHandler exposes class record endpoints.
type ClassHandler struct {
	classes classService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(classes classService) *ClassHandler {
	return &ClassHandler{classes: classes}
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}

// List godoc
// @Summary List class records
// @Tags Classes
// @Produce json
// @Param client_id query int false "Filter by client"
// @Param class_type query string false "Filter by class type"
// @Param class_types query string false "Comma-separated class types"
// @Param agent_id query int false "Filter by assigned agent"
// @Param supervisor_id query int false "Filter by project supervisor"
// @Param search query string false "Search class code or subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var filter models.ClassFilter
	if raw := c.Query("client_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ClientID = &id
		}
	}
	filter.ClassType = strings.TrimSpace(c.Query("class_type"))
	if raw := c.Query("class_types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				filter.ClassTypes = append(filter.ClassTypes, trimmed)
			}
		}
	}
	if raw := c.Query("agent_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ClassAgent = &id
		}
	}
	if raw := c.Query("supervisor_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ProjectSupervisorID = &id
		}
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	records, pagination, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get class record detail
// @Tags Classes
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.classes.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// GetByCode godoc
// @Summary Get class record by class code
// @Tags Classes
// @Produce json
// @Param code path string true "Class code"
// @Success 200 {object} response.Envelope
// @Router /class-code/{code} [get]
func (h *ClassHandler) GetByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class code required"))
		return
	}
	record, err := h.classes.GetByCode(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Create class record
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body map[string]interface{} true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var input map[string]interface{}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.classes.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Update class record
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path int true "Class ID"
// @Param payload body map[string]interface{} true "Changed fields"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var input map[string]interface{}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.classes.Update(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete class record
// @Tags Classes
// @Produce json
// @Param id path int true "Class ID"
// @Success 204
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.classes.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AppendNote godoc
// @Summary Append a note to a class record
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path int true "Class ID"
// @Param payload body service.AppendNoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/notes [post]
func (h *ClassHandler) AppendNote(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AppendNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.classes.AppendNote(c.Request.Context(), id, req, identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ReplaceSchedule godoc
// @Summary Replace the schedule of a class record
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path int true "Class ID"
// @Param payload body service.ReplaceScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/schedule [put]
func (h *ClassHandler) ReplaceSchedule(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ReplaceScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.classes.ReplaceSchedule(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Upcoming godoc
// @Summary List classes starting within the coming days
// @Tags Classes
// @Produce json
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} response.Envelope
// @Router /schedule/upcoming [get]
func (h *ClassHandler) Upcoming(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be a positive number"))
			return
		}
		days = parsed
	}
	records, err := h.classes.Upcoming(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Statistics godoc
// @Summary Aggregate statistics over class records
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statistics/classes [get]
func (h *ClassHandler) Statistics(c *gin.Context) {
	start := time.Now()
	stats, cacheHit, err := h.classes.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, stats, nil, meta)
}

// GenerateCode godoc
// @Summary Suggest the next free class code
// @Tags Classes
// @Produce json
// @Param client_id query int true "Client ID"
// @Param class_type query string true "Class type"
// @Success 200 {object} response.Envelope
// @Router /class-codes/generate [get]
func (h *ClassHandler) GenerateCode(c *gin.Context) {
	clientID, err := strconv.ParseInt(c.Query("client_id"), 10, 64)
	if err != nil || clientID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "client_id is required"))
		return
	}
	classType := strings.TrimSpace(c.Query("class_type"))
	code, err := h.classes.GenerateClassCode(c.Request.Context(), clientID, classType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"class_code": code}, nil)
}

// ByAgent godoc
// @Summary List classes assigned to an agent
// @Tags Classes
// @Produce json
// @Param id path int true "Agent ID"
// @Success 200 {object} response.Envelope
// @Router /agents/{id}/classes [get]
func (h *ClassHandler) ByAgent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.classes.ByAgent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// BySupervisor godoc
// @Summary List classes overseen by a project supervisor
// @Tags Classes
// @Produce json
// @Param id path int true "Supervisor ID"
// @Success 200 {object} response.Envelope
// @Router /supervisors/{id}/classes [get]
func (h *ClassHandler) BySupervisor(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.classes.BySupervisor(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ByClient godoc
// @Summary List classes delivered for a client
// @Tags Classes
// @Produce json
// @Param id path int true "Client ID"
// @Success 200 {object} response.Envelope
// @Router /clients/{id}/classes [get]
func (h *ClassHandler) ByClient(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.classes.ByClient(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ByLearner godoc
// @Summary List classes a learner is enrolled in
// @Tags Classes
// @Produce json
// @Param id path int true "Learner ID"
// @Success 200 {object} response.Envelope
// @Router /learners/{id}/classes [get]
func (h *ClassHandler) ByLearner(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.classes.ByLearner(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
