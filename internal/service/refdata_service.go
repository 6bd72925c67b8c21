package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trainova/classtrack-api/internal/models"
	appErrors "github.com/trainova/classtrack-api/pkg/errors"
)

type refdataStore interface {
	ListClients(ctx context.Context) ([]models.ReferenceItem, error)
	ListAgents(ctx context.Context) ([]models.ReferenceItem, error)
	ListSupervisors(ctx context.Context) ([]models.ReferenceItem, error)
	ListLearners(ctx context.Context) ([]models.ReferenceItem, error)
	ListSetaBodies(ctx context.Context) ([]models.ReferenceItem, error)
	ListClassTypes(ctx context.Context) ([]models.ClassTypeRef, error)
	ListClassSubjects(ctx context.Context, classType string) ([]models.ClassSubjectRef, error)
	ListHolidays(ctx context.Context, year int) ([]models.Holiday, error)
}

// RefdataService serves the reference listings behind dropdowns and
// validation. Reads go through the cache; a miss or cache failure falls back
// to the database so reference data stays available without Redis.
type RefdataService struct {
	repo   refdataStore
	cache  *CacheService
	logger *zap.Logger
	ttl    time.Duration
}

// NewRefdataService constructs a reference-data service.
func NewRefdataService(repo refdataStore, cache *CacheService, logger *zap.Logger, ttl time.Duration) *RefdataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RefdataService{repo: repo, cache: cache, logger: logger, ttl: ttl}
}

// Clients lists client companies.
func (s *RefdataService) Clients(ctx context.Context) ([]models.ReferenceItem, error) {
	key := makeRefdataKey("clients")
	var cached []models.ReferenceItem
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clients")
	}
	s.cacheSet(ctx, key, items)
	return items, nil
}

// Agents lists training agents.
func (s *RefdataService) Agents(ctx context.Context) ([]models.ReferenceItem, error) {
	key := makeRefdataKey("agents")
	var cached []models.ReferenceItem
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListAgents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list agents")
	}
	s.cacheSet(ctx, key, items)
	return items, nil
}

// Supervisors lists project supervisors.
func (s *RefdataService) Supervisors(ctx context.Context) ([]models.ReferenceItem, error) {
	key := makeRefdataKey("supervisors")
	var cached []models.ReferenceItem
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListSupervisors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list supervisors")
	}
	s.cacheSet(ctx, key, items)
	return items, nil
}

// Learners lists registered learners.
func (s *RefdataService) Learners(ctx context.Context) ([]models.ReferenceItem, error) {
	key := makeRefdataKey("learners")
	var cached []models.ReferenceItem
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListLearners(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list learners")
	}
	s.cacheSet(ctx, key, items)
	return items, nil
}

// SetaBodies lists the SETA accreditation bodies.
func (s *RefdataService) SetaBodies(ctx context.Context) ([]models.ReferenceItem, error) {
	key := makeRefdataKey("seta_bodies")
	var cached []models.ReferenceItem
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListSetaBodies(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list seta bodies")
	}
	s.cacheSet(ctx, key, items)
	return items, nil
}

// ClassTypes lists class types with their code prefixes.
func (s *RefdataService) ClassTypes(ctx context.Context) ([]models.ClassTypeRef, error) {
	key := makeRefdataKey("class_types")
	var cached []models.ClassTypeRef
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListClassTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class types")
	}
	s.cacheSet(ctx, key, items)
	return items, nil
}

// ClassSubjects lists subjects, optionally for one class type.
func (s *RefdataService) ClassSubjects(ctx context.Context, classType string) ([]models.ClassSubjectRef, error) {
	key := makeRefdataKey("class_subjects", classType)
	var cached []models.ClassSubjectRef
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListClassSubjects(ctx, classType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class subjects")
	}
	s.cacheSet(ctx, key, items)
	return items, nil
}

// Holidays lists public holidays, optionally for one calendar year.
func (s *RefdataService) Holidays(ctx context.Context, year int) ([]models.Holiday, error) {
	key := makeRefdataKey("holidays", yearKey(year))
	var cached []models.Holiday
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	items, err := s.repo.ListHolidays(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	s.cacheSet(ctx, key, items)
	return items, nil
}

// Invalidate drops every cached reference listing.
func (s *RefdataService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, "refdata:*")
}

func (s *RefdataService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("refdata cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *RefdataService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("refdata cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func makeRefdataKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("refdata")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func yearKey(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}
