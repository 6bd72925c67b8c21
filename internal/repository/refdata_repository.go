package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trainova/classtrack-api/internal/models"
)

// RefdataRepository reads the reference tables backing dropdowns and
// validation: clients, agents, supervisors, learners, SETA bodies, class
// types and subjects, and public holidays. All reads are ordered by name so
// listings render stably.
type RefdataRepository struct {
	db *sqlx.DB
}

// NewRefdataRepository constructs a reference-data repository.
func NewRefdataRepository(db *sqlx.DB) *RefdataRepository {
	return &RefdataRepository{db: db}
}

// ListClients returns every client company.
func (r *RefdataRepository) ListClients(ctx context.Context) ([]models.ReferenceItem, error) {
	const query = `SELECT id, name FROM clients ORDER BY name ASC`
	var items []models.ReferenceItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return items, nil
}

// ListAgents returns every training agent.
func (r *RefdataRepository) ListAgents(ctx context.Context) ([]models.ReferenceItem, error) {
	const query = `SELECT id, name FROM agents ORDER BY name ASC`
	var items []models.ReferenceItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return items, nil
}

// ListSupervisors returns every project supervisor.
func (r *RefdataRepository) ListSupervisors(ctx context.Context) ([]models.ReferenceItem, error) {
	const query = `SELECT id, name FROM supervisors ORDER BY name ASC`
	var items []models.ReferenceItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list supervisors: %w", err)
	}
	return items, nil
}

// ListLearners returns every registered learner.
func (r *RefdataRepository) ListLearners(ctx context.Context) ([]models.ReferenceItem, error) {
	const query = `SELECT id, name FROM learners ORDER BY name ASC`
	var items []models.ReferenceItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	return items, nil
}

// ListSetaBodies returns the SETA accreditation bodies.
func (r *RefdataRepository) ListSetaBodies(ctx context.Context) ([]models.ReferenceItem, error) {
	const query = `SELECT id, name FROM seta_bodies ORDER BY name ASC`
	var items []models.ReferenceItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list seta bodies: %w", err)
	}
	return items, nil
}

// ListClassTypes returns the class types with their code prefixes.
func (r *RefdataRepository) ListClassTypes(ctx context.Context) ([]models.ClassTypeRef, error) {
	const query = `SELECT id, code, name FROM class_types ORDER BY name ASC`
	var items []models.ClassTypeRef
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list class types: %w", err)
	}
	return items, nil
}

// ListClassSubjects returns the subjects, optionally restricted to one class
// type.
func (r *RefdataRepository) ListClassSubjects(ctx context.Context, classType string) ([]models.ClassSubjectRef, error) {
	query := `SELECT id, class_type, name FROM class_subjects`
	var args []interface{}
	if classType != "" {
		query += ` WHERE class_type = $1`
		args = append(args, classType)
	}
	query += ` ORDER BY name ASC`

	var items []models.ClassSubjectRef
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return items, nil
}

// ListHolidays returns public holidays, optionally for one calendar year.
func (r *RefdataRepository) ListHolidays(ctx context.Context, year int) ([]models.Holiday, error) {
	query := `SELECT id, name, holiday_date FROM public_holidays`
	var args []interface{}
	if year > 0 {
		query += ` WHERE EXTRACT(YEAR FROM holiday_date) = $1`
		args = append(args, year)
	}
	query += ` ORDER BY holiday_date ASC`

	var items []models.Holiday
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return items, nil
}
