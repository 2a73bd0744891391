package vtop

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func storeRecord(t testing.TB, env testEnv, record StudentRecord) {
	t.Helper()
	record.RegNo = testUser
	record.ScrapedAt = time.Unix(0, 0)
	require.NoError(t, env.records.Upsert(context.Background(), record))
}

func TestGetField(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()
	ctx := context.Background()

	_, err := env.service.GetField(ctx, testUser, FieldProfile)
	require.ErrorIs(t, err, ErrRecordNotFound)

	storeRecord(t, env, StudentRecord{
		Profile:     json.RawMessage(`{"name":"ADA LOVELACE"}`),
		GradesCount: json.RawMessage(`null`),
		CreditsInfo: json.RawMessage(`{}`),
		Semester:    json.RawMessage(`{not json`),
	})

	doc, err := env.service.GetField(ctx, testUser, FieldProfile)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"ADA LOVELACE"}`, string(doc))

	// only missing documents are absent, an empty one is returned as is
	doc, err = env.service.GetField(ctx, testUser, FieldCreditsInfo)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(doc))

	_, err = env.service.GetField(ctx, testUser, FieldGradesCount)
	require.ErrorIs(t, err, ErrRecordNotFound)
	_, err = env.service.GetField(ctx, testUser, FieldGradeHistory)
	require.ErrorIs(t, err, ErrRecordNotFound)
	_, err = env.service.GetField(ctx, testUser, FieldSemester)
	require.ErrorIs(t, err, ErrRecordNotFound)

	_, err = env.service.GetField(ctx, testUser, Field("password"))
	require.Error(t, err)

	// per semester fields are only read through GetSemesterField
	_, err = env.service.GetField(ctx, testUser, FieldMarks)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrRecordNotFound)
}

func TestGetSemesterField(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()
	ctx := context.Background()

	storeRecord(t, env, StudentRecord{
		Marks:       json.RawMessage(`{"CH20232401":{},"CH20232405":{"MAT1011":{"course_name":"Calculus for Engineers","assessments":{}}}}`),
		CgpaDetails: json.RawMessage(`{"CH20232401":0,"CH20232405":9.07,"cgpa":9.43}`),
		Attendance:  json.RawMessage(`{}`),
		Timetable:   json.RawMessage(`[]`),
	})

	testCases := []struct {
		field    Field
		semester string
		expected string
	}{
		{field: FieldMarks, semester: "", expected: `{"CH20232401":{},"CH20232405":{"MAT1011":{"course_name":"Calculus for Engineers","assessments":{}}}}`},
		{field: FieldMarks, semester: winter, expected: `{"MAT1011":{"course_name":"Calculus for Engineers","assessments":{}}}`},
		{field: FieldMarks, semester: fall},
		{field: FieldMarks, semester: "CH20242501"},
		{field: FieldCgpaDetails, semester: winter, expected: `9.07`},
		{field: FieldCgpaDetails, semester: "cgpa", expected: `9.43`},
		{field: FieldCgpaDetails, semester: fall},
		{field: FieldAttendance, semester: ""},
		{field: FieldAttendance, semester: fall},
		{field: FieldTimetable, semester: fall},
	}
	for _, test := range testCases {
		doc, err := env.service.GetSemesterField(ctx, testUser, test.field, test.semester)
		if test.expected == "" {
			require.ErrorIs(t, err, ErrRecordNotFound, "%s %s", test.field, test.semester)
			continue
		}
		require.NoError(t, err, "%s %s", test.field, test.semester)
		require.JSONEq(t, test.expected, string(doc))
	}

	_, err := env.service.GetSemesterField(ctx, testUser, FieldProfile, "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrRecordNotFound)
}

func TestCourses(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()
	ctx := context.Background()

	_, err := env.service.Courses(ctx, testUser)
	require.ErrorIs(t, err, ErrRecordNotFound)

	storeRecord(t, env, StudentRecord{
		Timetable: json.RawMessage(`{
			"CH20232405": {
				"monday": [
					{"slot_info":"A1","course_code":"CSE1001","course_name":"Problem Solving","details":""},
					{"slot_info":"B1","course_code":"","course_name":"Nameless","details":""}
				],
				"tuesday": [
					{"slot_info":"C1","course_code":"MAT1011","course_name":"","details":""}
				]
			},
			"CH20232401": {
				"monday": [
					{"slot_info":"A1","course_code":"CSE1001","course_name":"Problem Solving and Programming","details":""},
					{"slot_info":"C1","course_code":"MAT1011","course_name":"Calculus for Engineers","details":""}
				],
				"friday": "not a list"
			}
		}`),
	})

	courses, err := env.service.Courses(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"CSE1001": "Problem Solving",
		"MAT1011": "Calculus for Engineers",
	}, courses)

	storeRecord(t, env, StudentRecord{})
	_, err = env.service.Courses(ctx, testUser)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestObjectMembersKeepsOrder(t *testing.T) {
	members, err := objectMembers(json.RawMessage(`{"b":1,"a":{"x":[1,2]},"c":null}`))
	require.NoError(t, err)
	require.Len(t, members, 3)
	require.Equal(t, "b", members[0].key)
	require.Equal(t, "a", members[1].key)
	require.JSONEq(t, `{"x":[1,2]}`, string(members[1].value))
	require.Equal(t, "c", members[2].key)

	_, err = objectMembers(json.RawMessage(`[1,2]`))
	require.Error(t, err)
}
