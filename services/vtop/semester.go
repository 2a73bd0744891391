package vtop

import (
	"fmt"
	"strconv"
	"strings"
)

type SemesterDetail struct {
	StudyYear          string `json:"study_year"`
	SemesterInYear     string `json:"semester_in_year"`
	CumulativeSemester string `json:"cumulative_semester"`
}

// SemesterDescriptor places a semester relative to the student's
// admission.
type SemesterDescriptor struct {
	Name               string         `json:"name"`
	StudyYear          int            `json:"study_year"`
	SemesterInYear     int            `json:"semester_in_year"`
	CumulativeSemester int            `json:"cumulative_semester"`
	Detail             SemesterDetail `json:"detail"`
}

// Ordinal renders 1 as "1st", 12 as "12th" and so on. Zero and negative
// values are semesters outside the regular schedule and render as "Extra".
func Ordinal(n int) string {
	if n <= 0 {
		return "Extra"
	}
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// AdmissionYear reads the admission year from the first two digits of a
// registration number.
func AdmissionYear(regNo string) (int, error) {
	if len(regNo) < 2 {
		return 0, fmt.Errorf("registration number '%s' is too short", regNo)
	}
	yy, err := strconv.Atoi(regNo[:2])
	if err != nil {
		return 0, fmt.Errorf("registration number '%s' does not start with the admission year: %w", regNo, err)
	}
	return 2000 + yy, nil
}

// DescribeSemester derives the descriptor of the semester with the given
// code (like CH20232401, the academic year starts at the third character)
// and display name.
func DescribeSemester(regNo, code, name string) (SemesterDescriptor, error) {
	admission, err := AdmissionYear(regNo)
	if err != nil {
		return SemesterDescriptor{}, err
	}
	if len(code) < 6 {
		return SemesterDescriptor{}, fmt.Errorf("semester code '%s' is too short", code)
	}
	academicYear, err := strconv.Atoi(code[2:6])
	if err != nil {
		return SemesterDescriptor{}, fmt.Errorf("semester code '%s' has no academic year: %w", code, err)
	}

	studyYear := academicYear - admission + 1
	semesterInYear := 0
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "fall"):
		semesterInYear = 1
	case strings.Contains(lower, "winter"):
		semesterInYear = 2
	}
	cumulative := (studyYear-1)*2 + semesterInYear

	return SemesterDescriptor{
		Name:               name,
		StudyYear:          studyYear,
		SemesterInYear:     semesterInYear,
		CumulativeSemester: cumulative,
		Detail: SemesterDetail{
			StudyYear:          fmt.Sprintf("This is the %s year since admission (%d).", Ordinal(studyYear), admission),
			SemesterInYear:     fmt.Sprintf("This semester is the %s semester of that academic year.", Ordinal(semesterInYear)),
			CumulativeSemester: fmt.Sprintf("This is the %s semester overall since starting the degree.", Ordinal(cumulative)),
		},
	}, nil
}
