package vtop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrdinal(t *testing.T) {
	testCases := []struct {
		in       int
		expected string
	}{
		{in: -1, expected: "Extra"},
		{in: 0, expected: "Extra"},
		{in: 1, expected: "1st"},
		{in: 2, expected: "2nd"},
		{in: 3, expected: "3rd"},
		{in: 4, expected: "4th"},
		{in: 10, expected: "10th"},
		{in: 11, expected: "11th"},
		{in: 12, expected: "12th"},
		{in: 13, expected: "13th"},
		{in: 21, expected: "21st"},
		{in: 22, expected: "22nd"},
		{in: 111, expected: "111th"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, Ordinal(test.in), "Ordinal(%d)", test.in)
	}
}

func TestDescribeSemester(t *testing.T) {
	testCases := []struct {
		code     string
		name     string
		expected SemesterDescriptor
	}{
		{
			code: "CH20232401",
			name: "Fall Semester 2023-24",
			expected: SemesterDescriptor{
				Name:               "Fall Semester 2023-24",
				StudyYear:          2,
				SemesterInYear:     1,
				CumulativeSemester: 3,
				Detail: SemesterDetail{
					StudyYear:          "This is the 2nd year since admission (2022).",
					SemesterInYear:     "This semester is the 1st semester of that academic year.",
					CumulativeSemester: "This is the 3rd semester overall since starting the degree.",
				},
			},
		},
		{
			code: "CH20232405",
			name: "WINTER SEMESTER 2023-24",
			expected: SemesterDescriptor{
				Name:               "WINTER SEMESTER 2023-24",
				StudyYear:          2,
				SemesterInYear:     2,
				CumulativeSemester: 4,
				Detail: SemesterDetail{
					StudyYear:          "This is the 2nd year since admission (2022).",
					SemesterInYear:     "This semester is the 2nd semester of that academic year.",
					CumulativeSemester: "This is the 4th semester overall since starting the degree.",
				},
			},
		},
		{
			code: "CH20232409",
			name: "Summer Semester 2024",
			expected: SemesterDescriptor{
				Name:               "Summer Semester 2024",
				StudyYear:          2,
				SemesterInYear:     0,
				CumulativeSemester: 2,
				Detail: SemesterDetail{
					StudyYear:          "This is the 2nd year since admission (2022).",
					SemesterInYear:     "This semester is the Extra semester of that academic year.",
					CumulativeSemester: "This is the 2nd semester overall since starting the degree.",
				},
			},
		},
		{
			code: "CH20212217",
			name: "Fall Semester 2021-22",
			expected: SemesterDescriptor{
				Name:               "Fall Semester 2021-22",
				StudyYear:          0,
				SemesterInYear:     1,
				CumulativeSemester: -1,
				Detail: SemesterDetail{
					StudyYear:          "This is the Extra year since admission (2022).",
					SemesterInYear:     "This semester is the 1st semester of that academic year.",
					CumulativeSemester: "This is the Extra semester overall since starting the degree.",
				},
			},
		},
	}

	for _, test := range testCases {
		descriptor, err := DescribeSemester("22BCE1001", test.code, test.name)
		require.NoError(t, err)
		require.Equal(t, test.expected, descriptor)
	}
}

func TestDescribeSemesterInvalid(t *testing.T) {
	_, err := DescribeSemester("B", "CH20232401", "Fall")
	require.Error(t, err)
	_, err = DescribeSemester("XXBCE1001", "CH20232401", "Fall")
	require.Error(t, err)
	_, err = DescribeSemester("22BCE1001", "CH20", "Fall")
	require.Error(t, err)
	_, err = DescribeSemester("22BCE1001", "CHYEAR2401", "Fall")
	require.Error(t, err)
}
