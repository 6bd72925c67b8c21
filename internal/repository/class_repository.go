package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trainova/classtrack-api/internal/models"
)

// ErrDuplicateClassCode is returned when an insert or update trips the
// unique constraint on class_code. The storage constraint is the
// authoritative guard behind the service-level pre-check.
var ErrDuplicateClassCode = errors.New("class code already exists")

const classCodeConstraint = "class_records_class_code_key"

const classColumns = `class_id, client_id, site_id, class_type, class_subject, class_code,
        class_duration, original_start_date, delivery_date, qa_visit_dates, stop_restart_dates,
        seta_funded, seta, exam_class, exam_type, class_agent, initial_class_agent,
        project_supervisor_id, backup_agent_ids, learner_ids, schedule_data, class_notes_data,
        created_at, updated_at`

// ClassRepository is the persistence mapper for class records: the only
// component issuing SQL against the class_records table.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// buildFilter renders the WHERE fragment shared by List and Count.
func buildFilter(filter models.ClassFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, *filter.ClientID)
	}
	if filter.ClassType != "" {
		conditions = append(conditions, fmt.Sprintf("class_type = $%d", len(args)+1))
		args = append(args, filter.ClassType)
	}
	if len(filter.ClassTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("class_type = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ClassTypes))
	}
	if filter.ClassAgent != nil {
		conditions = append(conditions, fmt.Sprintf("class_agent = $%d", len(args)+1))
		args = append(args, *filter.ClassAgent)
	}
	if filter.ProjectSupervisorID != nil {
		conditions = append(conditions, fmt.Sprintf("project_supervisor_id = $%d", len(args)+1))
		args = append(args, *filter.ProjectSupervisorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(class_code ILIKE $%d OR class_subject ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of class records matching the filter, most recently
// created first, together with the total matching count.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, int, error) {
	where, args := buildFilter(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM class_records %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		classColumns, where, size, offset)
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class records: %w", err)
	}

	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Count returns the number of class records matching the filter.
func (r *ClassRepository) Count(ctx context.Context, filter models.ClassFilter) (int, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf("SELECT COUNT(*) FROM class_records %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count class records: %w", err)
	}
	return total, nil
}

// FindByID returns the class record with the given id, or sql.ErrNoRows.
func (r *ClassRepository) FindByID(ctx context.Context, id int64) (*models.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM class_records WHERE class_id = $1", classColumns)
	var rec models.ClassRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindByClassCode returns the record carrying the given code
// (case-insensitive), or sql.ErrNoRows.
func (r *ClassRepository) FindByClassCode(ctx context.Context, code string) (*models.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM class_records WHERE LOWER(class_code) = LOWER($1)", classColumns)
	var rec models.ClassRecord
	if err := r.db.GetContext(ctx, &rec, query, code); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClassCodeExists reports whether another record already uses the code.
// excludeID > 0 leaves a record's own row out of the check, which is what
// update-in-place needs.
func (r *ClassRepository) ClassCodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM class_records WHERE LOWER(class_code) = LOWER($1)"
	args := []interface{}{code}
	if excludeID > 0 {
		query += " AND class_id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class code: %w", err)
	}
	return true, nil
}

// Create inserts the record and fills in the storage-assigned identity and
// timestamps. A class_code collision surfaces as ErrDuplicateClassCode.
func (r *ClassRepository) Create(ctx context.Context, rec *models.ClassRecord) error {
	const query = `INSERT INTO class_records (client_id, site_id, class_type, class_subject, class_code,
        class_duration, original_start_date, delivery_date, qa_visit_dates, stop_restart_dates,
        seta_funded, seta, exam_class, exam_type, class_agent, initial_class_agent,
        project_supervisor_id, backup_agent_ids, learner_ids, schedule_data, class_notes_data)
        VALUES (:client_id, :site_id, :class_type, :class_subject, :class_code,
        :class_duration, :original_start_date, :delivery_date, :qa_visit_dates, :stop_restart_dates,
        :seta_funded, :seta, :exam_class, :exam_type, :class_agent, :initial_class_agent,
        :project_supervisor_id, :backup_agent_ids, :learner_ids, :schedule_data, :class_notes_data)
        RETURNING class_id, created_at, updated_at`

	rows, err := r.db.NamedQueryContext(ctx, query, rec)
	if err != nil {
		if isUniqueViolation(err, classCodeConstraint) {
			return ErrDuplicateClassCode
		}
		return fmt.Errorf("create class record: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	if !rows.Next() {
		return fmt.Errorf("create class record: no identity returned")
	}
	if err := rows.Scan(&rec.ClassID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return fmt.Errorf("scan created class record: %w", err)
	}
	return nil
}

// Update rewrites every mutable column of an existing record and refreshes
// updated_at. class_id and created_at never change. A missing row is
// reported as sql.ErrNoRows, a code collision as ErrDuplicateClassCode.
func (r *ClassRepository) Update(ctx context.Context, rec *models.ClassRecord) error {
	if rec.ClassID == nil {
		return fmt.Errorf("update class record: missing class_id")
	}
	rec.UpdatedAt = time.Now().UTC()

	const query = `UPDATE class_records SET client_id = :client_id, site_id = :site_id,
        class_type = :class_type, class_subject = :class_subject, class_code = :class_code,
        class_duration = :class_duration, original_start_date = :original_start_date,
        delivery_date = :delivery_date, qa_visit_dates = :qa_visit_dates,
        stop_restart_dates = :stop_restart_dates, seta_funded = :seta_funded, seta = :seta,
        exam_class = :exam_class, exam_type = :exam_type, class_agent = :class_agent,
        initial_class_agent = :initial_class_agent, project_supervisor_id = :project_supervisor_id,
        backup_agent_ids = :backup_agent_ids, learner_ids = :learner_ids,
        schedule_data = :schedule_data, class_notes_data = :class_notes_data,
        updated_at = :updated_at WHERE class_id = :class_id`

	result, err := r.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		if isUniqueViolation(err, classCodeConstraint) {
			return ErrDuplicateClassCode
		}
		return fmt.Errorf("update class record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update class record: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the record and reports whether a row went away.
func (r *ClassRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM class_records WHERE class_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete class record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete class record: %w", err)
	}
	return affected > 0, nil
}

// FindByAgentID returns classes where the agent is primary, initial, or a
// backup. Backup membership is tested inside the serialized id list, not
// against a scalar column.
func (r *ClassRepository) FindByAgentID(ctx context.Context, agentID int64) ([]models.ClassRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_records
        WHERE class_agent = $1 OR initial_class_agent = $1 OR backup_agent_ids @> $2::jsonb
        ORDER BY created_at DESC`, classColumns)
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, agentID, fmt.Sprintf("[%d]", agentID)); err != nil {
		return nil, fmt.Errorf("list classes by agent: %w", err)
	}
	return records, nil
}

// FindBySupervisorID returns classes run under the given project supervisor.
func (r *ClassRepository) FindBySupervisorID(ctx context.Context, supervisorID int64) ([]models.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM class_records WHERE project_supervisor_id = $1 ORDER BY created_at DESC", classColumns)
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, supervisorID); err != nil {
		return nil, fmt.Errorf("list classes by supervisor: %w", err)
	}
	return records, nil
}

// FindByClientID returns classes delivered for the given client.
func (r *ClassRepository) FindByClientID(ctx context.Context, clientID int64) ([]models.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM class_records WHERE client_id = $1 ORDER BY created_at DESC", classColumns)
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, clientID); err != nil {
		return nil, fmt.Errorf("list classes by client: %w", err)
	}
	return records, nil
}

// FindByLearnerID returns classes whose roster contains the learner. The
// roster is a serialized id list, so membership uses JSONB containment.
func (r *ClassRepository) FindByLearnerID(ctx context.Context, learnerID int64) ([]models.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM class_records WHERE learner_ids @> $1::jsonb ORDER BY created_at DESC", classColumns)
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, fmt.Sprintf("[%d]", learnerID)); err != nil {
		return nil, fmt.Errorf("list classes by learner: %w", err)
	}
	return records, nil
}

// FindByDateRange returns classes starting inside [from, to], soonest first.
func (r *ClassRepository) FindByDateRange(ctx context.Context, from, to models.Date) ([]models.ClassRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_records
        WHERE original_start_date >= $1 AND original_start_date <= $2
        ORDER BY original_start_date ASC`, classColumns)
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, from, to); err != nil {
		return nil, fmt.Errorf("list classes by date range: %w", err)
	}
	return records, nil
}

// Statistics aggregates counters over every class record.
func (r *ClassRepository) Statistics(ctx context.Context) (*models.ClassStatistics, error) {
	const totalsQuery = `SELECT COUNT(*) AS total_classes,
        COUNT(*) FILTER (WHERE seta_funded) AS seta_funded_count,
        COUNT(*) FILTER (WHERE exam_class) AS exam_class_count,
        COALESCE(SUM(jsonb_array_length(learner_ids)), 0) AS total_learners,
        COUNT(*) FILTER (WHERE original_start_date > CURRENT_DATE) AS upcoming_classes
        FROM class_records`

	var stats models.ClassStatistics
	if err := r.db.GetContext(ctx, &stats, totalsQuery); err != nil {
		return nil, fmt.Errorf("class statistics totals: %w", err)
	}

	const byTypeQuery = `SELECT class_type, COUNT(*) AS count FROM class_records
        GROUP BY class_type ORDER BY count DESC, class_type ASC`
	if err := r.db.SelectContext(ctx, &stats.ClassesByType, byTypeQuery); err != nil {
		return nil, fmt.Errorf("class statistics by type: %w", err)
	}
	return &stats, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
