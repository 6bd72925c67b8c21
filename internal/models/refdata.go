package models

// ReferenceItem is one {id, name} entry from a reference table. Clients,
// agents, supervisors, learners and SETA bodies all share this shape.
type ReferenceItem struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ClassTypeRef describes one class type together with its code prefix used
// when generating class codes.
type ClassTypeRef struct {
	ID   int64  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// ClassSubjectRef is one subject offered under a class type.
type ClassSubjectRef struct {
	ID        int64  `db:"id" json:"id"`
	ClassType string `db:"class_type" json:"class_type"`
	Name      string `db:"name" json:"name"`
}

// Holiday is one public holiday classes are not delivered on.
type Holiday struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Date Date   `db:"holiday_date" json:"date"`
}
