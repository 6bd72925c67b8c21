package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// NewClassRecordFromInput hydrates a ClassRecord from loosely-typed input such
// as decoded JSON or form data. Missing keys take the field's empty form,
// integer-like and boolean-like values coerce, and sub-documents arriving as
// serialized strings are parsed. Malformed sub-documents default to empty
// rather than failing hydration.
func NewClassRecordFromInput(input map[string]interface{}) *ClassRecord {
	rec := emptyClassRecord().WithInput(input)
	return &rec
}

func emptyClassRecord() ClassRecord {
	return ClassRecord{
		StopRestartDates: StopRestartList{},
		BackupAgentIDs:   Int64List{},
		LearnerIDs:       Int64List{},
		ScheduleData:     ScheduleData{}.canonical(),
		ClassNotesData:   ClassNoteList{},
	}
}

// WithInput returns a copy of the record with every key present in the input
// applied over it. Keys absent from the input leave the receiver's value in
// place, which is what makes partial updates merge instead of overwrite.
func (r ClassRecord) WithInput(input map[string]interface{}) ClassRecord {
	if input == nil {
		return r
	}

	if raw, ok := input["class_id"]; ok {
		if id, valid := coerceInt64(raw); valid {
			r.ClassID = &id
		}
	}
	if raw, ok := input["client_id"]; ok {
		r.ClientID, _ = coerceInt64(raw)
	}
	if raw, ok := input["site_id"]; ok {
		r.SiteID = coerceString(raw)
	}
	if raw, ok := input["class_type"]; ok {
		r.ClassType = coerceString(raw)
	}
	if raw, ok := input["class_subject"]; ok {
		r.ClassSubject = coerceString(raw)
	}
	if raw, ok := input["class_code"]; ok {
		r.ClassCode = coerceString(raw)
	}
	if raw, ok := input["class_duration"]; ok {
		duration, _ := coerceInt64(raw)
		r.ClassDuration = int(duration)
	}
	if raw, ok := input["original_start_date"]; ok {
		if d, valid := coerceDate(raw); valid {
			r.OriginalStartDate = d
		} else if isExplicitClear(raw) {
			r.OriginalStartDate = Date{}
		}
	}
	if raw, ok := input["delivery_date"]; ok {
		if d, valid := coerceDate(raw); valid && !d.IsZero() {
			r.DeliveryDate = &d
		} else if isExplicitClear(raw) {
			r.DeliveryDate = nil
		}
	}
	if raw, ok := input["qa_visit_dates"]; ok {
		r.QAVisitDates = coerceString(raw)
	}
	if raw, ok := input["stop_restart_dates"]; ok {
		list := StopRestartList{}
		decodeSubDocument(raw, &list)
		if list == nil {
			list = StopRestartList{}
		}
		r.StopRestartDates = list
	}
	if raw, ok := input["seta_funded"]; ok {
		r.SetaFunded = coerceBool(raw)
	}
	if raw, ok := input["seta"]; ok {
		r.Seta = coerceString(raw)
	}
	if raw, ok := input["exam_class"]; ok {
		r.ExamClass = coerceBool(raw)
	}
	if raw, ok := input["exam_type"]; ok {
		r.ExamType = coerceString(raw)
	}
	if raw, ok := input["class_agent"]; ok {
		r.ClassAgent, _ = coerceInt64(raw)
	}
	if raw, ok := input["initial_class_agent"]; ok {
		r.InitialClassAgent, _ = coerceInt64(raw)
	}
	if raw, ok := input["project_supervisor_id"]; ok {
		r.ProjectSupervisorID, _ = coerceInt64(raw)
	}
	if raw, ok := input["backup_agent_ids"]; ok {
		r.BackupAgentIDs = coerceIDList(raw)
	}
	if raw, ok := input["learner_ids"]; ok {
		r.LearnerIDs = coerceIDList(raw)
	}
	if raw, ok := input["schedule_data"]; ok {
		schedule := ScheduleData{}
		decodeSubDocument(raw, &schedule)
		r.ScheduleData = schedule.canonical()
	}
	if raw, ok := input["class_notes_data"]; ok {
		notes := ClassNoteList{}
		decodeSubDocument(raw, &notes)
		if notes == nil {
			notes = ClassNoteList{}
		}
		r.ClassNotesData = notes
	}

	return r
}

// decodeSubDocument fills dest from a raw value that may be an already-decoded
// structure or a serialized JSON string. Returns whether decoding succeeded;
// dest is left untouched on failure.
func decodeSubDocument(raw interface{}, dest interface{}) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false
		}
		return json.Unmarshal([]byte(trimmed), dest) == nil
	case []byte:
		return json.Unmarshal(v, dest) == nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return false
		}
		return json.Unmarshal(data, dest) == nil
	}
}

// coerceIDList reads a set of integer ids from a decoded array, a JSON string,
// or a comma-separated string. Duplicates collapse, order is preserved.
func coerceIDList(raw interface{}) Int64List {
	out := Int64List{}
	seen := make(map[int64]struct{})
	add := func(id int64) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if id, ok := coerceInt64(item); ok {
				add(id)
			}
		}
	case []int64:
		for _, id := range v {
			add(id)
		}
	case Int64List:
		for _, id := range v {
			add(id)
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			break
		}
		var parsed []interface{}
		if json.Unmarshal([]byte(trimmed), &parsed) == nil {
			for _, item := range parsed {
				if id, ok := coerceInt64(item); ok {
					add(id)
				}
			}
			break
		}
		for _, part := range strings.Split(trimmed, ",") {
			if id, ok := coerceInt64(part); ok {
				add(id)
			}
		}
	}

	return out
}

func coerceInt64(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func coerceBool(raw interface{}) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on", "y":
			return true
		}
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f != 0
		}
	}
	return false
}

func coerceString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < math.MaxInt64 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// coerceDate reports whether raw carried a usable calendar date. Unparseable
// non-empty values return false so the caller can leave the field as it was
// instead of silently zeroing it; explicit clears are detected separately.
func coerceDate(raw interface{}) (Date, bool) {
	switch v := raw.(type) {
	case Date:
		return v, true
	case *Date:
		if v != nil {
			return *v, true
		}
	case time.Time:
		return DateOf(v), true
	case string:
		if d, err := ParseDate(v); err == nil {
			return d, true
		}
	}
	return Date{}, false
}

// isExplicitClear distinguishes "remove this value" from a value that merely
// failed to parse.
func isExplicitClear(raw interface{}) bool {
	if raw == nil {
		return true
	}
	s, ok := raw.(string)
	return ok && strings.TrimSpace(s) == ""
}
