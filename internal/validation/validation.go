// Package validation holds the pure rule checks for class records. Nothing
// here performs I/O; uniqueness and persistence concerns live in the service
// and repository layers.
package validation

import (
	"fmt"
	"regexp"
	"time"

	"github.com/trainova/classtrack-api/internal/models"
)

// Mode selects which rule set applies to a record.
type Mode int

const (
	// ModeCreate applies the full rule set for new records.
	ModeCreate Mode = iota
	// ModeUpdate relaxes create-only rules such as the start-date floor.
	ModeUpdate
)

// classCodePattern is the accepted class code character set.
var classCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ForCreate checks that every field required to create a class is present.
// It returns a map of field name to message; an empty map means the record
// passes. Cross-field business rules are deliberately not checked here so
// that required-field failures surface before any uniqueness lookup.
func ForCreate(rec *models.ClassRecord) map[string]string {
	errs := make(map[string]string)
	if rec == nil {
		errs["class"] = "class payload is required"
		return errs
	}
	if rec.ClientID == 0 {
		errs["client_id"] = "client is required"
	}
	if rec.ClassType == "" {
		errs["class_type"] = "class type is required"
	}
	if rec.ClassSubject == "" {
		errs["class_subject"] = "class subject is required"
	}
	if rec.ClassCode == "" {
		errs["class_code"] = "class code is required"
	}
	if rec.ClassDuration == 0 {
		errs["class_duration"] = "class duration is required"
	}
	if rec.OriginalStartDate.IsZero() {
		errs["original_start_date"] = "original start date is required"
	}
	if rec.ClassAgent == 0 {
		errs["class_agent"] = "class agent is required"
	}
	if rec.ProjectSupervisorID == 0 {
		errs["project_supervisor_id"] = "project supervisor is required"
	}
	return errs
}

// ForUpdate checks a merged update record. All business fields are optional;
// only the identity and the structural sanity of values that are set matter.
// Range and cross-field policy stays with BusinessRules so that callers get
// one aggregated report instead of piecemeal failures.
func ForUpdate(rec *models.ClassRecord) map[string]string {
	errs := make(map[string]string)
	if rec == nil {
		errs["class"] = "class payload is required"
		return errs
	}
	if rec.ClassID == nil {
		errs["class_id"] = "class id is required"
	}
	if rec.ClassDuration < 0 {
		errs["class_duration"] = "class duration must be a whole number of days"
	}
	return errs
}

// BusinessRules evaluates the cross-field invariants on a record and returns
// every violated rule. Violations are collected, not short-circuited, so the
// caller can report them together. The start-date floor applies only in
// ModeCreate: existing classes legitimately have start dates in the past.
func BusinessRules(rec *models.ClassRecord, mode Mode, now time.Time) []string {
	if rec == nil {
		return []string{"class payload is required"}
	}

	var violations []string

	if rec.SetaFunded && rec.Seta == "" {
		violations = append(violations, "SETA is required when the class is SETA funded")
	}
	if rec.ExamClass && rec.ExamType == "" {
		violations = append(violations, "exam type is required for exam classes")
	}
	if len(rec.LearnerIDs) > models.MaxLearners {
		violations = append(violations, fmt.Sprintf("a class can have at most %d learners", models.MaxLearners))
	}
	if len(rec.BackupAgentIDs) > models.MaxBackupAgents {
		violations = append(violations, fmt.Sprintf("a class can have at most %d backup agents", models.MaxBackupAgents))
	}
	if rec.ClassDuration < 1 || rec.ClassDuration > 365 {
		violations = append(violations, "duration must be between 1 and 365")
	}
	if rec.DeliveryDate != nil && !rec.DeliveryDate.IsZero() && !rec.OriginalStartDate.IsZero() &&
		!rec.DeliveryDate.Time.After(rec.OriginalStartDate.Time) {
		violations = append(violations, "delivery date must be after the original start date")
	}
	if mode == ModeCreate && !rec.OriginalStartDate.IsZero() &&
		rec.OriginalStartDate.Time.Before(models.DateOf(now).Time) {
		violations = append(violations, "original start date cannot be in the past")
	}
	if rec.ClassCode != "" && !classCodePattern.MatchString(rec.ClassCode) {
		violations = append(violations, "class code may only contain letters, digits, hyphens and underscores")
	}

	return violations
}
