package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/pkg/export"
	"github.com/trainova/classtrack-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *mockClassStore, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	repo := newMockClassStore()
	svc := NewExportService(repo, newMockRefdataStore(), store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, repo, store
}

func TestExportServiceGenerateClassListCSV(t *testing.T) {
	svc, repo, store := newExportServiceForTest(t)
	repo.seed(models.ClassRecord{
		ClientID:            11,
		SiteID:              "JHB-01",
		ClassType:           "Employability Skills",
		ClassSubject:        "Workplace Readiness",
		ClassCode:           "EMP-011-0001",
		ClassDuration:       30,
		OriginalStartDate:   models.NewDate(2025, time.February, 1),
		ClassAgent:          9,
		ProjectSupervisorID: 4,
		LearnerIDs:          models.Int64List{7, 8},
	})
	repo.seed(models.ClassRecord{
		ClientID:            11,
		ClassType:           "Employability Skills",
		ClassSubject:        "Workplace Readiness",
		ClassCode:           "EMP-011-0002",
		ClassDuration:       14,
		OriginalStartDate:   models.NewDate(2025, time.March, 1),
		ClassAgent:          9,
		ProjectSupervisorID: 4,
	})

	job := &models.ExportJob{
		ID:        "job-1",
		Type:      models.ExportTypeClassList,
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/exports/download/")
	require.Equal(t, models.ExportFormatCSV, result.Format)

	path := store.Path(result.RelativePath)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "Class Code")
	require.Contains(t, string(content), "EMP-011-0001")
	require.Contains(t, string(content), "EMP-011-0002")
}

func TestExportServiceGenerateRosterPDF(t *testing.T) {
	svc, repo, store := newExportServiceForTest(t)
	id := repo.seed(models.ClassRecord{
		ClientID:          11,
		ClassCode:         "EMP-011-0001",
		ClassDuration:     30,
		OriginalStartDate: models.NewDate(2025, time.February, 1),
		LearnerIDs:        models.Int64List{7, 8},
	})

	job := &models.ExportJob{
		ID:        "job-2",
		Type:      models.ExportTypeClassRoster,
		Params:    models.ExportJobParams{Format: models.ExportFormatPDF, ClassID: &id},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ExportFormatPDF, result.Format)

	path := filepath.Clean(store.Path(result.RelativePath))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceRosterRequiresClass(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	job := &models.ExportJob{
		ID:     "job-3",
		Type:   models.ExportTypeClassRoster,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}
	_, err := svc.Generate(context.Background(), job)
	require.ErrorContains(t, err, "class id required")
}

func TestExportServiceRosterUnknownClass(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	missing := int64(99)
	job := &models.ExportJob{
		ID:     "job-4",
		Type:   models.ExportTypeClassRoster,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV, ClassID: &missing},
	}
	_, err := svc.Generate(context.Background(), job)
	require.ErrorContains(t, err, "not found")
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	job := &models.ExportJob{
		ID:     "job-5",
		Type:   models.ExportTypeClassList,
		Params: models.ExportJobParams{Format: models.ExportFormat("xlsx")},
	}
	_, err := svc.Generate(context.Background(), job)
	require.ErrorContains(t, err, "unsupported format")
}
