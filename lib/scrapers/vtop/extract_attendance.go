package vtop

import (
	"vtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// ExtractAttendance reads the attendance summary of a semester.
func ExtractAttendance(body []byte) (Attendance, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	table := doc.Find("div#getStudentDetails table.table").First()
	if table.Length() == 0 {
		return nil, anchorNotFound("div#getStudentDetails table.table")
	}

	attendance := Attendance{}
	rowsOf(table, "tbody tr").Each(func(_ int, row *goquery.Selection) {
		rowCells := cells(row)
		// the trailing summary row spans the whole table
		if len(rowCells) > 0 && rowCells[0].AttrOr("colspan", "") == "15" {
			return
		}
		if len(rowCells) < 12 {
			return
		}

		code := htmlutil.PreferredText(rowCells[1], "p")
		if code == "" {
			return
		}
		attendance[code] = CourseAttendance{
			CourseName:           htmlutil.PreferredText(rowCells[2], "p"),
			AttendedClass:        htmlutil.PreferredText(rowCells[9], "p"),
			TotalClass:           htmlutil.PreferredText(rowCells[10], "p"),
			AttendancePercentage: htmlutil.PreferredText(rowCells[11], "p"),
		}
	})
	return attendance, nil
}
