package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Caps enforced on class rosters and backup agent assignments.
const (
	MaxLearners     = 30
	MaxBackupAgents = 5
)

// ClassRecord is the central training-class entity. Sub-document fields carry
// their own JSONB encodings so the record maps onto a single flat row.
type ClassRecord struct {
	ClassID             *int64          `db:"class_id" json:"class_id,omitempty"`
	ClientID            int64           `db:"client_id" json:"client_id"`
	SiteID              string          `db:"site_id" json:"site_id"`
	ClassType           string          `db:"class_type" json:"class_type"`
	ClassSubject        string          `db:"class_subject" json:"class_subject"`
	ClassCode           string          `db:"class_code" json:"class_code"`
	ClassDuration       int             `db:"class_duration" json:"class_duration"`
	OriginalStartDate   Date            `db:"original_start_date" json:"original_start_date"`
	DeliveryDate        *Date           `db:"delivery_date" json:"delivery_date,omitempty"`
	QAVisitDates        string          `db:"qa_visit_dates" json:"qa_visit_dates"`
	StopRestartDates    StopRestartList `db:"stop_restart_dates" json:"stop_restart_dates"`
	SetaFunded          bool            `db:"seta_funded" json:"seta_funded"`
	Seta                string          `db:"seta" json:"seta"`
	ExamClass           bool            `db:"exam_class" json:"exam_class"`
	ExamType            string          `db:"exam_type" json:"exam_type"`
	ClassAgent          int64           `db:"class_agent" json:"class_agent"`
	InitialClassAgent   int64           `db:"initial_class_agent" json:"initial_class_agent"`
	ProjectSupervisorID int64           `db:"project_supervisor_id" json:"project_supervisor_id"`
	BackupAgentIDs      Int64List       `db:"backup_agent_ids" json:"backup_agent_ids"`
	LearnerIDs          Int64List       `db:"learner_ids" json:"learner_ids"`
	ScheduleData        ScheduleData    `db:"schedule_data" json:"schedule_data"`
	ClassNotesData      ClassNoteList   `db:"class_notes_data" json:"class_notes_data"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// SameEntity reports whether both records refer to the same persisted class.
// Records without an assigned id are never the same entity.
func (r *ClassRecord) SameEntity(other *ClassRecord) bool {
	if r == nil || other == nil || r.ClassID == nil || other.ClassID == nil {
		return false
	}
	return *r.ClassID == *other.ClassID
}

// ClassFilter defines filter criteria for listing class records. Pointer
// fields are conjunctive when set; Search matches class_code and
// class_subject case-insensitively.
type ClassFilter struct {
	ClientID            *int64
	ClassType           string
	ClassTypes          []string
	ClassAgent          *int64
	ProjectSupervisorID *int64
	Search              string
	Page                int
	PageSize            int
}

// ClassTypeCount is one row of the per-type statistics breakdown.
type ClassTypeCount struct {
	ClassType string `db:"class_type" json:"class_type"`
	Count     int    `db:"count" json:"count"`
}

// ClassStatistics aggregates counters over all class records.
type ClassStatistics struct {
	TotalClasses    int              `db:"total_classes" json:"total_classes"`
	SetaFundedCount int              `db:"seta_funded_count" json:"seta_funded_count"`
	ExamClassCount  int              `db:"exam_class_count" json:"exam_class_count"`
	TotalLearners   int              `db:"total_learners" json:"total_learners"`
	UpcomingClasses int              `db:"upcoming_classes" json:"upcoming_classes"`
	ClassesByType   []ClassTypeCount `json:"classes_by_type"`
}

// Int64List is a set of integer references stored as a JSONB array.
type Int64List []int64

// Contains reports membership in the list.
func (l Int64List) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Value marshals the list to JSON for persistence. A nil list encodes as [].
func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		l = Int64List{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal id list: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB array payload. Malformed payloads default to the
// empty list rather than failing the read.
func (l *Int64List) Scan(value interface{}) error {
	data, ok := rawJSONBytes(value)
	if !ok {
		return fmt.Errorf("unsupported type %T for Int64List", value)
	}
	if len(data) == 0 {
		*l = Int64List{}
		return nil
	}
	var parsed Int64List
	if err := json.Unmarshal(data, &parsed); err != nil || parsed == nil {
		*l = Int64List{}
		return nil
	}
	*l = parsed
	return nil
}

// BreakTime is one break window within a class day.
type BreakTime struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ScheduleData captures the weekly delivery pattern of a class: the weekdays
// it runs on, the daily time window, and break windows inside it.
type ScheduleData struct {
	Days       []string    `json:"days"`
	StartTime  string      `json:"start_time"`
	EndTime    string      `json:"end_time"`
	BreakTimes []BreakTime `json:"break_times"`
}

// IsEmpty reports whether no schedule has been captured.
func (s ScheduleData) IsEmpty() bool {
	return len(s.Days) == 0 && s.StartTime == "" && s.EndTime == "" && len(s.BreakTimes) == 0
}

func (s ScheduleData) canonical() ScheduleData {
	if s.Days == nil {
		s.Days = []string{}
	}
	if s.BreakTimes == nil {
		s.BreakTimes = []BreakTime{}
	}
	return s
}

// Value marshals the schedule to its canonical JSON object.
func (s ScheduleData) Value() (driver.Value, error) {
	data, err := json.Marshal(s.canonical())
	if err != nil {
		return nil, fmt.Errorf("marshal schedule data: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB schedule object, defaulting to empty on malformed
// payloads.
func (s *ScheduleData) Scan(value interface{}) error {
	data, ok := rawJSONBytes(value)
	if !ok {
		return fmt.Errorf("unsupported type %T for ScheduleData", value)
	}
	if len(data) == 0 {
		*s = ScheduleData{}.canonical()
		return nil
	}
	var parsed ScheduleData
	if err := json.Unmarshal(data, &parsed); err != nil {
		*s = ScheduleData{}.canonical()
		return nil
	}
	*s = parsed.canonical()
	return nil
}

// ClassNote is one dated annotation on a class. Date stays a free-form string
// to match what data entry historically produced.
type ClassNote struct {
	Type string `json:"type"`
	Note string `json:"note"`
	Date string `json:"date"`
	User string `json:"user"`
}

// ClassNoteList is the ordered note history stored as a JSONB array.
type ClassNoteList []ClassNote

// Value marshals the notes to JSON. A nil list encodes as [].
func (l ClassNoteList) Value() (driver.Value, error) {
	if l == nil {
		l = ClassNoteList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal class notes: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB notes array, defaulting to empty on malformed
// payloads.
func (l *ClassNoteList) Scan(value interface{}) error {
	data, ok := rawJSONBytes(value)
	if !ok {
		return fmt.Errorf("unsupported type %T for ClassNoteList", value)
	}
	if len(data) == 0 {
		*l = ClassNoteList{}
		return nil
	}
	var parsed ClassNoteList
	if err := json.Unmarshal(data, &parsed); err != nil || parsed == nil {
		*l = ClassNoteList{}
		return nil
	}
	*l = parsed
	return nil
}

// StopRestart is one suspended delivery window.
type StopRestart struct {
	StopDate    string `json:"stop_date"`
	RestartDate string `json:"restart_date"`
}

// StopRestartList is the ordered stop/restart history stored as JSONB.
type StopRestartList []StopRestart

// Value marshals the list to JSON. A nil list encodes as [].
func (l StopRestartList) Value() (driver.Value, error) {
	if l == nil {
		l = StopRestartList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal stop/restart dates: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB stop/restart array, defaulting to empty on
// malformed payloads.
func (l *StopRestartList) Scan(value interface{}) error {
	data, ok := rawJSONBytes(value)
	if !ok {
		return fmt.Errorf("unsupported type %T for StopRestartList", value)
	}
	if len(data) == 0 {
		*l = StopRestartList{}
		return nil
	}
	var parsed StopRestartList
	if err := json.Unmarshal(data, &parsed); err != nil || parsed == nil {
		*l = StopRestartList{}
		return nil
	}
	*l = parsed
	return nil
}

func rawJSONBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}
