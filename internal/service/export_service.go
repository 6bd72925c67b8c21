package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/pkg/export"
	"github.com/trainova/classtrack-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds class datasets and persists rendered files.
type ExportService struct {
	classes classStore
	refdata refdataStore
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(classes classStore, refdata refdataStore, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		classes: classes,
		refdata: refdata,
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/exports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to the configured ResultTTL
// when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeClassList:
		return s.buildClassListDataset(ctx, job.Params)
	case models.ExportTypeClassRoster:
		return s.buildClassRosterDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildClassListDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	filter := models.ClassFilter{ClassType: params.ClassType}
	if params.ClientID != nil {
		filter.ClientID = params.ClientID
	}
	records, err := s.collectClasses(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	now := time.Now()
	rows := make([]map[string]string, 0, len(records))
	for i := range records {
		rec := &records[i]
		rows = append(rows, map[string]string{
			"Class Code":      rec.ClassCode,
			"Client":          strconv.FormatInt(rec.ClientID, 10),
			"Site":            rec.SiteID,
			"Class Type":      rec.ClassType,
			"Subject":         rec.ClassSubject,
			"Start Date":      rec.OriginalStartDate.String(),
			"End Date":        CalculateEndDate(rec.OriginalStartDate, rec.ClassDuration).String(),
			"Duration (days)": strconv.Itoa(rec.ClassDuration),
			"Agent":           strconv.FormatInt(rec.ClassAgent, 10),
			"Supervisor":      strconv.FormatInt(rec.ProjectSupervisorID, 10),
			"Learners":        strconv.Itoa(len(rec.LearnerIDs)),
			"Progress (%)":    strconv.Itoa(ClassProgress(rec, now)),
			"Status":          classStatus(rec, now),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Class Code", "Client", "Site", "Class Type", "Subject", "Start Date", "End Date",
			"Duration (days)", "Agent", "Supervisor", "Learners", "Progress (%)", "Status"},
		Rows: rows,
	}
	return dataset, "Class List", nil
}

func (s *ExportService) buildClassRosterDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	if params.ClassID == nil {
		return export.Dataset{}, "", fmt.Errorf("class id required for roster export")
	}
	rec, err := s.classes.FindByID(ctx, *params.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.Dataset{}, "", fmt.Errorf("class %d not found", *params.ClassID)
		}
		return export.Dataset{}, "", err
	}

	names := make(map[int64]string)
	if s.refdata != nil {
		learners, err := s.refdata.ListLearners(ctx)
		if err != nil {
			s.logger.Warn("resolve learner names", zap.Error(err))
		}
		for _, learner := range learners {
			names[learner.ID] = learner.Name
		}
	}

	rows := make([]map[string]string, 0, len(rec.LearnerIDs))
	for _, learnerID := range rec.LearnerIDs {
		rows = append(rows, map[string]string{
			"Learner ID":   strconv.FormatInt(learnerID, 10),
			"Learner Name": names[learnerID],
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Learner ID", "Learner Name"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Class Roster %s", rec.ClassCode)
	return dataset, title, nil
}

// collectClasses pages through the class listing until every matching record
// is gathered. Exports are not bounded by the listing page cap.
func (s *ExportService) collectClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error) {
	filter.Page = 1
	filter.PageSize = 100

	var out []models.ClassRecord
	for {
		page, total, err := s.classes.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) == 0 || len(out) >= total {
			return out, nil
		}
		filter.Page++
	}
}

func classStatus(rec *models.ClassRecord, now time.Time) string {
	switch {
	case rec.OriginalStartDate.IsZero():
		return "Unscheduled"
	case IsClassActive(rec, now):
		return "Active"
	case models.DateOf(now).Time.Before(rec.OriginalStartDate.Time):
		return "Upcoming"
	default:
		return "Completed"
	}
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	switch {
	case job.Params.ClassID != nil:
		scope = fmt.Sprintf("class_%d", *job.Params.ClassID)
	case job.Params.ClientID != nil:
		scope = fmt.Sprintf("client_%d", *job.Params.ClientID)
	case job.Params.ClassType != "":
		scope = sanitizeFilename(strings.ToLower(job.Params.ClassType))
	}
	return fmt.Sprintf("%s_%s_%s.%s", job.Type, scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
