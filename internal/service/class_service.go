package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/internal/repository"
	"github.com/trainova/classtrack-api/internal/validation"
	appErrors "github.com/trainova/classtrack-api/pkg/errors"
)

// statisticsCacheKey holds the aggregated class statistics payload in Redis.
const statisticsCacheKey = "classes:statistics"

// maxCodeSequence bounds the probe when generating class codes.
const maxCodeSequence = 9999

type classStore interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, int, error)
	FindByID(ctx context.Context, id int64) (*models.ClassRecord, error)
	FindByClassCode(ctx context.Context, code string) (*models.ClassRecord, error)
	ClassCodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
	Create(ctx context.Context, rec *models.ClassRecord) error
	Update(ctx context.Context, rec *models.ClassRecord) error
	Delete(ctx context.Context, id int64) (bool, error)
	FindByAgentID(ctx context.Context, agentID int64) ([]models.ClassRecord, error)
	FindBySupervisorID(ctx context.Context, supervisorID int64) ([]models.ClassRecord, error)
	FindByClientID(ctx context.Context, clientID int64) ([]models.ClassRecord, error)
	FindByLearnerID(ctx context.Context, learnerID int64) ([]models.ClassRecord, error)
	FindByDateRange(ctx context.Context, from, to models.Date) ([]models.ClassRecord, error)
	Statistics(ctx context.Context) (*models.ClassStatistics, error)
}

// AppendNoteRequest adds one note to a class history.
type AppendNoteRequest struct {
	Type string `json:"type" validate:"required"`
	Note string `json:"note" validate:"required"`
}

// ReplaceScheduleRequest swaps the weekly delivery schedule of a class.
type ReplaceScheduleRequest struct {
	Days       []string           `json:"days" validate:"required,min=1,dive,required"`
	StartTime  string             `json:"start_time" validate:"required"`
	EndTime    string             `json:"end_time" validate:"required"`
	BreakTimes []models.BreakTime `json:"break_times"`
}

// ClassService coordinates the class record pipeline. Every mutating
// operation runs shape validation, then cross-field business rules, then the
// class-code uniqueness pre-check, then persists. The storage unique
// constraint stays the authoritative guard behind the pre-check.
type ClassService struct {
	repo      classStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	statsTTL  time.Duration
}

// NewClassService constructs ClassService.
func NewClassService(repo classStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, statsTTL time.Duration) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	return &ClassService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, statsTTL: statsTTL}
}

// List returns one page of classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one class by id.
func (s *ClassService) Get(ctx context.Context, id int64) (*models.ClassRecord, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return rec, nil
}

// GetByCode returns one class by its class code, case-insensitively.
func (s *ClassService) GetByCode(ctx context.Context, code string) (*models.ClassRecord, error) {
	rec, err := s.repo.FindByClassCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return rec, nil
}

// Create validates and persists a new class built from loosely-typed input.
// Identity and timestamps are storage-assigned; any inbound class_id is
// discarded.
func (s *ClassService) Create(ctx context.Context, input map[string]interface{}) (*models.ClassRecord, error) {
	rec := models.NewClassRecordFromInput(input)
	rec.ClassID = nil
	rec.CreatedAt = time.Time{}
	rec.UpdatedAt = time.Time{}

	if fields := validation.ForCreate(rec); len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}
	if violations := validation.BusinessRules(rec, validation.ModeCreate, time.Now()); len(violations) > 0 {
		return nil, appErrors.BusinessRule(violations)
	}

	exists, err := s.repo.ClassCodeExists(ctx, rec.ClassCode, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class code already exists")
	}

	// The assigned agent at creation time is the initial agent unless the
	// caller recorded one explicitly.
	if rec.InitialClassAgent == 0 {
		rec.InitialClassAgent = rec.ClassAgent
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateClassCode) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.invalidateStatistics(ctx)
	return rec, nil
}

// Update merges the input over the stored record, re-validates, and persists.
// The class code uniqueness check runs only when the code actually changes.
func (s *ClassService) Update(ctx context.Context, id int64, input map[string]interface{}) (*models.ClassRecord, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	merged := existing.WithInput(input)
	merged.ClassID = existing.ClassID
	merged.CreatedAt = existing.CreatedAt

	if fields := validation.ForUpdate(&merged); len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}
	if violations := validation.BusinessRules(&merged, validation.ModeUpdate, time.Now()); len(violations) > 0 {
		return nil, appErrors.BusinessRule(violations)
	}

	if !strings.EqualFold(merged.ClassCode, existing.ClassCode) {
		exists, err := s.repo.ClassCodeExists(ctx, merged.ClassCode, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class code")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class code already exists")
		}
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		case errors.Is(err, repository.ErrDuplicateClassCode):
			return nil, appErrors.Clone(appErrors.ErrConflict, "class code already exists")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
		}
	}
	s.invalidateStatistics(ctx)
	return &merged, nil
}

// Delete removes a class. Deleting a class that does not exist is a normal
// not-found outcome, not a storage failure.
func (s *ClassService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	s.invalidateStatistics(ctx)
	return nil
}

// AppendNote adds one note to the class history, stamped with the current
// date and the acting user.
func (s *ClassService) AppendNote(ctx context.Context, id int64, req AppendNoteRequest, actor models.Identity) (*models.ClassRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.ClassNotesData = append(rec.ClassNotesData, models.ClassNote{
		Type: req.Type,
		Note: req.Note,
		Date: models.DateOf(time.Now()).String(),
		User: actor.DisplayName(),
	})

	if err := s.repo.Update(ctx, rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append class note")
	}
	return rec, nil
}

// ReplaceSchedule swaps the weekly schedule of a class.
func (s *ClassService) ReplaceSchedule(ctx context.Context, id int64, req ReplaceScheduleRequest) (*models.ClassRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	schedule := models.ScheduleData{
		Days:       req.Days,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		BreakTimes: req.BreakTimes,
	}
	rec.ScheduleData = schedule

	if err := s.repo.Update(ctx, rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace class schedule")
	}
	return rec, nil
}

// Upcoming lists classes starting within the next given number of days.
func (s *ClassService) Upcoming(ctx context.Context, days int) ([]models.ClassRecord, error) {
	if days <= 0 {
		days = 30
	}
	from := models.DateOf(time.Now())
	to := from.AddDays(days)
	records, err := s.repo.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming classes")
	}
	return records, nil
}

// ByAgent lists classes where the agent is primary, initial, or backup.
func (s *ClassService) ByAgent(ctx context.Context, agentID int64) ([]models.ClassRecord, error) {
	records, err := s.repo.FindByAgentID(ctx, agentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes by agent")
	}
	return records, nil
}

// BySupervisor lists classes under one project supervisor.
func (s *ClassService) BySupervisor(ctx context.Context, supervisorID int64) ([]models.ClassRecord, error) {
	records, err := s.repo.FindBySupervisorID(ctx, supervisorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes by supervisor")
	}
	return records, nil
}

// ByClient lists classes delivered for one client.
func (s *ClassService) ByClient(ctx context.Context, clientID int64) ([]models.ClassRecord, error) {
	records, err := s.repo.FindByClientID(ctx, clientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes by client")
	}
	return records, nil
}

// ByLearner lists classes whose roster contains the learner.
func (s *ClassService) ByLearner(ctx context.Context, learnerID int64) ([]models.ClassRecord, error) {
	records, err := s.repo.FindByLearnerID(ctx, learnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes by learner")
	}
	return records, nil
}

// Statistics returns the aggregated counters, read through the cache. The
// boolean reports whether the payload came from cache.
func (s *ClassService) Statistics(ctx context.Context) (*models.ClassStatistics, bool, error) {
	var cached models.ClassStatistics
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, statisticsCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class statistics")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("class_statistics", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, statisticsCacheKey, stats, s.statsTTL); err != nil {
			s.logger.Warn("cache class statistics", zap.Error(err))
		}
	}
	return stats, false, nil
}

// GenerateClassCode produces the next free code for a client and class type:
// a three-letter type prefix, the zero-padded client id, and the smallest
// unused four-digit sequence probed against the uniqueness check.
func (s *ClassService) GenerateClassCode(ctx context.Context, clientID int64, classType string) (string, error) {
	if clientID <= 0 || classType == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "client and class type are required to generate a class code")
	}

	base := fmt.Sprintf("%s-%03d", classTypePrefix(classType), clientID)
	for seq := 1; seq <= maxCodeSequence; seq++ {
		candidate := fmt.Sprintf("%s-%04d", base, seq)
		exists, err := s.repo.ClassCodeExists(ctx, candidate, 0)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to probe class code")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", appErrors.Wrap(fmt.Errorf("sequence space exhausted for %s", base), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no class code available")
}

func (s *ClassService) invalidateStatistics(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, statisticsCacheKey); err != nil {
		s.logger.Warn("invalidate class statistics cache", zap.Error(err))
	}
}

// classTypePrefix uppercases the first three letters of the class type,
// padding with X when the name is shorter.
func classTypePrefix(classType string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(classType) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	for b.Len() < 3 {
		b.WriteByte('X')
	}
	return b.String()
}

// CalculateEndDate returns the exclusive end of a class: the start date moved
// forward by the full duration.
func CalculateEndDate(start models.Date, durationDays int) models.Date {
	return start.AddDays(durationDays)
}

// ClassProgress reports delivery progress as a whole percentage: 0 before the
// start date, 100 at or after the end date, linear in elapsed days between.
func ClassProgress(rec *models.ClassRecord, now time.Time) int {
	if rec == nil || rec.OriginalStartDate.IsZero() {
		return 0
	}
	start := rec.OriginalStartDate
	end := CalculateEndDate(start, rec.ClassDuration)
	today := models.DateOf(now)

	if today.Time.Before(start.Time) {
		return 0
	}
	if !today.Time.Before(end.Time) {
		return 100
	}
	elapsed := today.Time.Sub(start.Time).Hours() / 24
	return int(math.Round(elapsed / float64(rec.ClassDuration) * 100))
}

// IsClassActive reports whether the class is being delivered now: the current
// date is inside [start, end).
func IsClassActive(rec *models.ClassRecord, now time.Time) bool {
	if rec == nil || rec.OriginalStartDate.IsZero() || rec.ClassDuration < 1 {
		return false
	}
	start := rec.OriginalStartDate
	end := CalculateEndDate(start, rec.ClassDuration)
	today := models.DateOf(now)
	return !today.Time.Before(start.Time) && today.Time.Before(end.Time)
}
