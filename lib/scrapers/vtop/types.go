package vtop

import (
	"encoding/json"
	"strconv"
	"strings"
)

// persisted key spellings (including "attendence", "couse" and "decalred")
// are shared with the llm service reading the same rows.

type Profile struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registration_number"`
	BranchName         string `json:"branch_name"`
}

type SemesterOption struct {
	Code string
	Name string
}

type TimetableEntry struct {
	SlotInfo   string `json:"slot_info"`
	CourseName string `json:"course_name"`
	CourseCode string `json:"course_code"`
	Details    string `json:"details"`
}

var Weekdays = []string{
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
	"sunday",
}

// Timetable maps a weekday in Weekdays to the classes held on it.
type Timetable map[string][]TimetableEntry

func NewTimetable() Timetable {
	t := make(Timetable, len(Weekdays))
	for _, day := range Weekdays {
		t[day] = []TimetableEntry{}
	}
	return t
}

func (t Timetable) add(day string, entry TimetableEntry) {
	for _, existing := range t[day] {
		if existing == entry {
			return
		}
	}
	t[day] = append(t[day], entry)
}

// Score is a cell of the marks table, it is a number when the cell parses
// as one, the raw text otherwise and null when the cell is empty.
type Score struct {
	Number *float64
	Raw    string
}

func ParseScore(text string) Score {
	text = strings.TrimSpace(text)
	if text == "" {
		return Score{}
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Score{Raw: text}
	}
	return Score{Number: &value, Raw: text}
}

func (s Score) IsNull() bool {
	return s.Number == nil && s.Raw == ""
}

func (s Score) String() string {
	if s.Number != nil {
		return strconv.FormatFloat(*s.Number, 'f', -1, 64)
	}
	return s.Raw
}

func (s Score) MarshalJSON() ([]byte, error) {
	if s.Number != nil {
		return json.Marshal(*s.Number)
	}
	if s.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s.Raw)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var value any
	err := json.Unmarshal(data, &value)
	if err != nil {
		return err
	}
	switch v := value.(type) {
	case nil:
		*s = Score{}
	case float64:
		*s = Score{Number: &v, Raw: strconv.FormatFloat(v, 'f', -1, 64)}
	case string:
		*s = Score{Raw: v}
	default:
		*s = Score{Raw: string(data)}
	}
	return nil
}

type Assessment struct {
	MaxMarks       Score `json:"max_marks"`
	MaxWeightage   Score `json:"max_weightage"`
	ScoredMarks    Score `json:"scored_marks"`
	WeightageMarks Score `json:"weightage_marks"`
}

type CourseMarks struct {
	CourseName  string                `json:"course_name"`
	Assessments map[string]Assessment `json:"assessments"`
}

// Marks maps a course code to its assessments.
type Marks map[string]CourseMarks

type CourseAttendance struct {
	CourseName           string `json:"course_name"`
	TotalClass           string `json:"total_class"`
	AttendedClass        string `json:"attended_class"`
	AttendancePercentage string `json:"attendence_percentage"`
}

// Attendance maps a course code to its attendance.
type Attendance map[string]CourseAttendance

type CourseGrade struct {
	CourseName     string `json:"couse_name"`
	CourseType     string `json:"course_type"`
	Credit         string `json:"credit"`
	Grade          string `json:"grade"`
	ExamMonth      string `json:"exam_month"`
	ResultDeclared string `json:"result_decalred"`
}

// GradeHistory maps a course code to its effective grade.
type GradeHistory map[string]CourseGrade

type CreditsInfo struct {
	Registered float64 `json:"registered"`
	Earned     float64 `json:"earned"`
	Cgpa       float64 `json:"cgpa"`
}

type GradesCount struct {
	S int `json:"s-grades"`
	A int `json:"a-grades"`
	B int `json:"b-grades"`
	C int `json:"c-grades"`
	D int `json:"d-grades"`
	E int `json:"e-grades"`
	F int `json:"f-grades"`
	N int `json:"n-grades"`
}

// CgpaDetails is the aggregate row at the bottom of the grade history page.
type CgpaDetails struct {
	Credits CreditsInfo
	Grades  GradesCount
}
