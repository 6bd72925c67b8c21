package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trainova/classtrack-api/internal/service"
	appErrors "github.com/trainova/classtrack-api/pkg/errors"
	"github.com/trainova/classtrack-api/pkg/response"
)

// RefdataHandler serves the lookup lists backing class capture forms.
type RefdataHandler struct {
	refdata *service.RefdataService
}

// NewRefdataHandler constructs the handler.
func NewRefdataHandler(refdata *service.RefdataService) *RefdataHandler {
	return &RefdataHandler{refdata: refdata}
}

// Clients godoc
// @Summary List client companies
// @Tags Refdata
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /refdata/clients [get]
func (h *RefdataHandler) Clients(c *gin.Context) {
	items, err := h.refdata.Clients(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Agents godoc
// @Summary List facilitation agents
// @Tags Refdata
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /refdata/agents [get]
func (h *RefdataHandler) Agents(c *gin.Context) {
	items, err := h.refdata.Agents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Supervisors godoc
// @Summary List project supervisors
// @Tags Refdata
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /refdata/supervisors [get]
func (h *RefdataHandler) Supervisors(c *gin.Context) {
	items, err := h.refdata.Supervisors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Learners godoc
// @Summary List learners
// @Tags Refdata
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /refdata/learners [get]
func (h *RefdataHandler) Learners(c *gin.Context) {
	items, err := h.refdata.Learners(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// SetaBodies godoc
// @Summary List SETA accreditation bodies
// @Tags Refdata
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /refdata/seta-bodies [get]
func (h *RefdataHandler) SetaBodies(c *gin.Context) {
	items, err := h.refdata.SetaBodies(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ClassTypes godoc
// @Summary List class types
// @Tags Refdata
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /refdata/class-types [get]
func (h *RefdataHandler) ClassTypes(c *gin.Context) {
	items, err := h.refdata.ClassTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ClassSubjects godoc
// @Summary List class subjects, optionally narrowed to one class type
// @Tags Refdata
// @Produce json
// @Param class_type query string false "Class type code"
// @Success 200 {object} response.Envelope
// @Router /refdata/class-subjects [get]
func (h *RefdataHandler) ClassSubjects(c *gin.Context) {
	classType := strings.TrimSpace(c.Query("class_type"))
	items, err := h.refdata.ClassSubjects(c.Request.Context(), classType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Holidays godoc
// @Summary List public holidays for a year
// @Tags Refdata
// @Produce json
// @Param year query int false "Year (defaults to the current year)"
// @Success 200 {object} response.Envelope
// @Router /refdata/holidays [get]
func (h *RefdataHandler) Holidays(c *gin.Context) {
	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2100 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid year"))
			return
		}
		year = parsed
	}
	items, err := h.refdata.Holidays(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Invalidate godoc
// @Summary Drop cached reference data
// @Tags Refdata
// @Produce json
// @Success 204
// @Router /refdata/invalidate [post]
func (h *RefdataHandler) Invalidate(c *gin.Context) {
	if err := h.refdata.Invalidate(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
