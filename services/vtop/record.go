package vtop

import (
	"context"
	"encoding/json"
	"time"
)

// Field names a column of the student record, the names are shared with
// the llm service reading the same rows.
type Field string

const (
	FieldProfile      Field = "profile"
	FieldSemester     Field = "semester"
	FieldTimetable    Field = "timetable"
	FieldMarks        Field = "marks"
	FieldAttendance   Field = "attendance"
	FieldGradeHistory Field = "grade_history"
	FieldCreditsInfo  Field = "credits_info"
	FieldGradesCount  Field = "grades_count"
	FieldCgpaDetails  Field = "cgpa_details"
)

// WholeFields are read as a single document.
var WholeFields = []Field{
	FieldProfile,
	FieldSemester,
	FieldGradeHistory,
	FieldCreditsInfo,
	FieldGradesCount,
}

// SemesterFields are keyed by semester code and can be narrowed to one
// semester.
var SemesterFields = []Field{
	FieldMarks,
	FieldCgpaDetails,
	FieldTimetable,
	FieldAttendance,
}

// StudentRecord is everything scraped for one student. A nil field means
// the field could not be scraped and is stored as null.
type StudentRecord struct {
	RegNo        string
	Profile      json.RawMessage
	Semester     json.RawMessage
	Timetable    json.RawMessage
	Marks        json.RawMessage
	Attendance   json.RawMessage
	GradeHistory json.RawMessage
	CreditsInfo  json.RawMessage
	GradesCount  json.RawMessage
	CgpaDetails  json.RawMessage
	ScrapedAt    time.Time
}

// Field returns the document stored under name, ok is false for unknown
// names.
func (r StudentRecord) Field(name Field) (value json.RawMessage, ok bool) {
	switch name {
	case FieldProfile:
		return r.Profile, true
	case FieldSemester:
		return r.Semester, true
	case FieldTimetable:
		return r.Timetable, true
	case FieldMarks:
		return r.Marks, true
	case FieldAttendance:
		return r.Attendance, true
	case FieldGradeHistory:
		return r.GradeHistory, true
	case FieldCreditsInfo:
		return r.CreditsInfo, true
	case FieldGradesCount:
		return r.GradesCount, true
	case FieldCgpaDetails:
		return r.CgpaDetails, true
	}
	return nil, false
}

// RecordStore persists one StudentRecord per registration number.
type RecordStore interface {
	// Upsert replaces the whole record of record.RegNo, atomically.
	Upsert(ctx context.Context, record StudentRecord) error
	// Get returns ErrRecordNotFound if there is no record.
	Get(ctx context.Context, regNo string) (StudentRecord, error)
	// Delete succeeds when there is no record.
	Delete(ctx context.Context, regNo string) error
}

// encodeField marshals v, a nil value becomes a nil document.
func encodeField(v any) (json.RawMessage, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(out) == "null" {
		return nil, nil
	}
	return out, nil
}
