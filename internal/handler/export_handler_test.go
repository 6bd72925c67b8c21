package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/trainova/classtrack-api/internal/dto"
	"github.com/trainova/classtrack-api/internal/middleware"
	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/internal/service"
	appErrors "github.com/trainova/classtrack-api/pkg/errors"
)

type exportServiceMock struct {
	createResp  *dto.ExportJobResponse
	createErr   error
	statusResp  *dto.ExportStatusResponse
	statusErr   error
	download    *service.ExportDownload
	downloadErr error

	lastActor models.Identity
}

func (m *exportServiceMock) CreateJob(_ context.Context, _ dto.ExportRequest, actor models.Identity) (*dto.ExportJobResponse, error) {
	m.lastActor = actor
	return m.createResp, m.createErr
}

func (m *exportServiceMock) GetStatus(_ context.Context, _ string, actor models.Identity) (*dto.ExportStatusResponse, error) {
	m.lastActor = actor
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) ResolveDownload(context.Context, string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func TestExportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{
		createResp: &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued, Progress: 0},
	}
	handler := NewExportHandler(mockSvc)

	payload, _ := json.Marshal(dto.ExportRequest{Type: models.ExportTypeClassList, Format: models.ExportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/exports/generate", string(payload))
	c.Set(middleware.ContextIdentityKey, models.Identity{UserID: "admin", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "admin", mockSvc.lastActor.UserID)
}

func TestExportHandlerCreateRejectsMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/exports/generate", `{"type":`)
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	url := "/api/v1/exports/download/token"
	mockSvc := &exportServiceMock{
		statusResp: &dto.ExportStatusResponse{ID: "job-1", Status: models.ExportStatusFinished, Progress: 100, ResultURL: &url},
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/status/job-1", "")
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextIdentityKey, models.Identity{UserID: "admin", Role: models.RoleAdmin})

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "FINISHED", envelope.Data["status"])
	require.Equal(t, url, envelope.Data["result_url"])
}

func TestExportHandlerStatusRequiresID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{})

	c, w := newGinContext(http.MethodGet, "/exports/status/", "")
	handler.Status(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp(t.TempDir(), "export*.csv")
	require.NoError(t, err)
	_, _ = file.WriteString("Class Code,Client\nEMP-011-0001,Acme Mining\n")
	_, _ = file.Seek(0, 0)

	mockSvc := &exportServiceMock{
		download: &service.ExportDownload{
			File:      file,
			Filename:  "class_list_all_20250301_090000.csv",
			Format:    models.ExportFormatCSV,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/download/token", "")
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "class_list_all_20250301_090000.csv")
	require.Contains(t, w.Body.String(), "EMP-011-0001")
}

func TestExportHandlerDownloadInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{
		downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token"),
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/download/bad", "")
	c.Params = gin.Params{{Key: "token", Value: "bad"}}

	handler.Download(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
