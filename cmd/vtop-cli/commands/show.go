package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"vtop-backend/lib/scrapers/vtop"
	"vtop-backend/lib/serviceutil"
	"vtop-backend/lib/sqliteutil"
	"vtop-backend/services/session"
	vtopservice "vtop-backend/services/vtop"
	"vtop-backend/services/vtop/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <reg_no> [--db <path/to/output.db>]",
	Short: "Prints the stored profile, semesters, gpa and courses of a student.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		regNo := args[0]

		database, err := sqliteutil.OpenDB(db.Schema, *dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		sessions, err := session.NewStore(session.Options{})
		if err != nil {
			serviceutil.Fatal("failed to create session store", err)
		}
		service := vtopservice.NewService(vtopservice.Options{
			Sessions: sessions,
			Records:  vtopservice.NewSqlStore(database),
		})

		doc, err := service.GetField(ctx, regNo, vtopservice.FieldProfile)
		if errors.Is(err, vtopservice.ErrRecordNotFound) {
			fmt.Printf("no record stored for %s\n", regNo)
			return
		}
		if err != nil {
			serviceutil.Fatal("failed to read profile", err)
		}
		var profile vtop.Profile
		err = json.Unmarshal(doc, &profile)
		if err != nil {
			serviceutil.Fatal("failed to decode profile", err)
		}
		t := newTable()
		t.AppendHeader(table.Row{"Name", "Registration number", "Branch"})
		t.AppendRow(table.Row{profile.Name, profile.RegistrationNumber, profile.BranchName})
		t.Render()

		var semesters map[string]vtopservice.SemesterDescriptor
		doc, err = service.GetField(ctx, regNo, vtopservice.FieldSemester)
		if err == nil {
			err = json.Unmarshal(doc, &semesters)
		}
		if err != nil {
			fmt.Println("semesters were not scraped")
		}

		var gpa map[string]float64
		doc, err = service.GetSemesterField(ctx, regNo, vtopservice.FieldCgpaDetails, "")
		if err == nil {
			_ = json.Unmarshal(doc, &gpa)
		}

		codes := make([]string, 0, len(semesters))
		for code := range semesters {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool {
			return semesters[codes[i]].CumulativeSemester < semesters[codes[j]].CumulativeSemester
		})

		t = newTable()
		t.AppendHeader(table.Row{"Code", "Semester", "Year", "Overall", "GPA"})
		for _, code := range codes {
			semester := semesters[code]
			t.AppendRow(table.Row{
				code,
				semester.Name,
				vtopservice.Ordinal(semester.StudyYear),
				vtopservice.Ordinal(semester.CumulativeSemester),
				gpa[code],
			})
		}
		if cgpa, ok := gpa["cgpa"]; ok {
			t.AppendFooter(table.Row{"", "", "", "CGPA", cgpa})
		}
		t.Render()

		courses, err := service.Courses(ctx, regNo)
		if err != nil {
			fmt.Println("timetable was not scraped")
			return
		}
		courseCodes := make([]string, 0, len(courses))
		for code := range courses {
			courseCodes = append(courseCodes, code)
		}
		sort.Strings(courseCodes)

		t = newTable()
		t.AppendHeader(table.Row{"Course", "Name"})
		for _, code := range courseCodes {
			t.AppendRow(table.Row{code, courses[code]})
		}
		t.Render()
	},
}
