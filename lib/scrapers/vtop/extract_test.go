package vtop

import (
	"strconv"
	"testing"
	"vtop-backend/lib/scrapers/vtop/vtoptest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var emptyPage = []byte("<html><body><p>nothing here</p></body></html>")

func number(v float64) Score {
	return ParseScore(strconv.FormatFloat(v, 'f', -1, 64))
}

func TestExtractCsrf(t *testing.T) {
	csrf, err := ExtractOpenPageCsrf(vtoptest.Render("open_page", "{{csrf}}", "open-token"))
	require.NoError(t, err)
	require.Equal(t, "open-token", csrf)

	csrf, err = ExtractContentCsrf(vtoptest.Render("content", "{{csrf}}", "content-token", "{{user}}", "22BCE1001"))
	require.NoError(t, err)
	require.Equal(t, "content-token", csrf)

	// the landing form is not the logout form
	_, err = ExtractContentCsrf(vtoptest.Render("open_page", "{{csrf}}", "open-token"))
	require.ErrorIs(t, err, ErrAnchorNotFound)

	_, err = ExtractOpenPageCsrf(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)

	_, err = ExtractOpenPageCsrf(vtoptest.Render("open_page", "{{csrf}}", ""))
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestExtractCaptcha(t *testing.T) {
	captcha, err := ExtractCaptcha(vtoptest.Render("prelogin", "{{csrf}}", "x"))
	require.NoError(t, err)
	require.Equal(t, "data:image/jpeg;base64,/9j/4AAQSkZJRgABAQAAAQABAAD/2wBDAAEBAQ==", captcha)

	_, err = ExtractCaptcha(vtoptest.Render("prelogin_recaptcha", "{{csrf}}", "x"))
	require.ErrorIs(t, err, ErrAnchorNotFound)

	_, err = ExtractCaptcha(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestExtractLoginError(t *testing.T) {
	banner, err := ExtractLoginError(vtoptest.Render("login_error", "{{csrf}}", "x"))
	require.NoError(t, err)
	require.Equal(t, "Invalid Username/Password, Please try again", banner)

	_, err = ExtractLoginError(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestExtractProfile(t *testing.T) {
	profile, err := ExtractProfile(vtoptest.Render("profile", "{{name}}", "ADA LOVELACE", "{{user}}", "22BCE1001"))
	require.NoError(t, err)
	require.Equal(t, Profile{
		Name:               "ADA LOVELACE",
		RegistrationNumber: "22BCE1001",
		BranchName:         "Computer Science and Engineering",
	}, profile)

	_, err = ExtractProfile(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestExtractSemesters(t *testing.T) {
	semesters, err := ExtractSemesters(vtoptest.Page("semesters"))
	require.NoError(t, err)
	require.Equal(t, []SemesterOption{
		{Code: "CH20232405", Name: "Winter Semester 2023-24"},
		{Code: "CH20232401", Name: "Fall Semester 2023-24"},
	}, semesters)

	_, err = ExtractSemesters(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestExtractTimetable(t *testing.T) {
	timetable, err := ExtractTimetable(vtoptest.Page("timetable"))
	require.NoError(t, err)

	expected := NewTimetable()
	expected["monday"] = []TimetableEntry{
		{SlotInfo: "A1", CourseName: "Problem Solving and Programming", CourseCode: "CSE1001", Details: "ETH-AB1-405-ALL"},
		{SlotInfo: "B1", CourseName: "Calculus for Engineers", CourseCode: "MAT1011", Details: "TH-AB2-301-ALL"},
		{SlotInfo: "L1", CourseName: "Problem Solving and Programming", CourseCode: "CSE1001", Details: "ELA-AB1-606-ALL"},
	}
	expected["tuesday"] = []TimetableEntry{
		{SlotInfo: "C1", CourseName: "Unknown Course (PHY1001)", CourseCode: "PHY1001", Details: "TH-AB1-105-ALL"},
	}
	if diff := cmp.Diff(expected, timetable); diff != "" {
		t.Fatalf("timetable mismatch (-want +got):\n%s", diff)
	}

	_, err = ExtractTimetable(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestRegisteredCourses(t *testing.T) {
	doc, err := parse(vtoptest.Page("timetable"))
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"CSE1001": "Problem Solving and Programming",
		"MAT1011": "Calculus for Engineers",
		"CSE1901": "Technical Answers for Real World Problems",
	}, registeredCourses(doc))
}

func TestExtractMarks(t *testing.T) {
	marks, err := ExtractMarks(vtoptest.Page("marks"))
	require.NoError(t, err)

	expected := Marks{
		"CSE1001": {
			CourseName: "Problem Solving and Programming",
			Assessments: map[string]Assessment{
				"CAT-1": {
					MaxMarks:       number(50),
					MaxWeightage:   number(15),
					ScoredMarks:    number(42.5),
					WeightageMarks: number(12.75),
				},
				"Digital Assignment": {
					MaxMarks:       number(10),
					MaxWeightage:   number(10),
					ScoredMarks:    Score{},
					WeightageMarks: Score{Raw: "AB"},
				},
			},
		},
		"MAT1011": {
			CourseName: "Calculus for Engineers",
			Assessments: map[string]Assessment{
				"Quiz-1": {
					MaxMarks:       number(10),
					MaxWeightage:   number(10),
					ScoredMarks:    number(9),
					WeightageMarks: number(9),
				},
			},
		},
	}
	if diff := cmp.Diff(expected, marks); diff != "" {
		t.Fatalf("marks mismatch (-want +got):\n%s", diff)
	}

	_, err = ExtractMarks(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestExtractAttendance(t *testing.T) {
	attendance, err := ExtractAttendance(vtoptest.Page("attendance"))
	require.NoError(t, err)
	require.Equal(t, Attendance{
		"CSE1001": {
			CourseName:           "Problem Solving and Programming",
			AttendedClass:        "28",
			TotalClass:           "30",
			AttendancePercentage: "93",
		},
		"MAT1011": {
			CourseName:           "Calculus for Engineers",
			AttendedClass:        "20",
			TotalClass:           "27",
			AttendancePercentage: "74",
		},
	}, attendance)

	_, err = ExtractAttendance(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestExtractGrades(t *testing.T) {
	history, err := ExtractGradeHistory(vtoptest.Page("grade_history"))
	require.NoError(t, err)
	require.Equal(t, GradeHistory{
		"CSE1001": {
			CourseName:     "Problem Solving and Programming",
			CourseType:     "ETH",
			Credit:         "3",
			Grade:          "A",
			ExamMonth:      "Nov-2023",
			ResultDeclared: "03-Jan-2024",
		},
		"MAT1011": {
			CourseName:     "Calculus for Engineers",
			CourseType:     "ETL",
			Credit:         "4",
			Grade:          "S",
			ExamMonth:      "Nov-2023",
			ResultDeclared: "03-Jan-2024",
		},
	}, history)

	details, err := ExtractCgpaDetails(vtoptest.Page("grade_history"))
	require.NoError(t, err)
	require.Equal(t, CgpaDetails{
		Credits: CreditsInfo{Registered: 7, Earned: 7, Cgpa: 9.43},
		Grades:  GradesCount{S: 1, A: 1},
	}, details)

	_, err = ExtractGradeHistory(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
	_, err = ExtractCgpaDetails(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestExtractGpa(t *testing.T) {
	gpa, err := ExtractGpa(vtoptest.Page("grade_view"))
	require.NoError(t, err)
	require.Equal(t, 9.07, gpa)

	gpa, err = ExtractGpa([]byte("<div>Semester GPA : 8.5 (provisional)</div>"))
	require.NoError(t, err)
	require.Equal(t, 8.5, gpa)

	_, err = ExtractGpa(emptyPage)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestScoreJSON(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "42.5", expected: "42.5"},
		{in: "AB", expected: `"AB"`},
		{in: "", expected: "null"},
		{in: " 7 ", expected: "7"},
	}
	for _, test := range testCases {
		out, err := ParseScore(test.in).MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, test.expected, string(out))

		var parsed Score
		require.NoError(t, parsed.UnmarshalJSON(out))
		require.Equal(t, ParseScore(test.in).String(), parsed.String())
	}
}
