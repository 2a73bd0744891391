package vtop

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"vtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// ExtractGradeHistory reads the effective grade of every course taken.
func ExtractGradeHistory(body []byte) (GradeHistory, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	header := doc.Find(`td[colspan="11"]`).FilterFunction(func(_ int, td *goquery.Selection) bool {
		return strings.Contains(htmlutil.Text(td), "Effective Grades")
	}).First()
	table := header.Closest("table")
	if table.Length() == 0 {
		return nil, anchorNotFound(`table td[colspan="11"]:contains("Effective Grades")`)
	}

	history := GradeHistory{}
	rowsOf(table, "tr.tableContent").Each(func(_ int, row *goquery.Selection) {
		// hidden breakdowns of composite courses
		if strings.HasPrefix(row.AttrOr("id", ""), "detailsView_") {
			return
		}
		rowCells := cells(row)
		if len(rowCells) < 8 {
			return
		}
		code := htmlutil.Text(rowCells[1])
		if code == "" {
			return
		}
		history[code] = CourseGrade{
			CourseName:     htmlutil.Text(rowCells[2]),
			CourseType:     htmlutil.Text(rowCells[3]),
			Credit:         htmlutil.Text(rowCells[4]),
			Grade:          htmlutil.Text(rowCells[5]),
			ExamMonth:      htmlutil.Text(rowCells[6]),
			ResultDeclared: htmlutil.Text(rowCells[7]),
		}
	})
	return history, nil
}

// ExtractCgpaDetails reads the credits, cgpa and grade distribution row of
// the grade history page.
func ExtractCgpaDetails(body []byte) (CgpaDetails, error) {
	doc, err := parse(body)
	if err != nil {
		return CgpaDetails{}, err
	}
	const anchor = "table.table.table-hover.table-bordered tbody tr"
	table := doc.Find("table.table.table-hover.table-bordered").First()
	row := rowsOf(table, "tbody tr").First()
	if row.Length() == 0 {
		return CgpaDetails{}, anchorNotFound(anchor)
	}
	rowCells := cells(row)
	if len(rowCells) < 11 {
		return CgpaDetails{}, fmt.Errorf("%w: %s has %d cells", ErrAnchorNotFound, anchor, len(rowCells))
	}

	values := make([]string, len(rowCells))
	for i, c := range rowCells {
		values[i] = htmlutil.Text(c)
	}

	var details CgpaDetails
	floats := []*float64{
		&details.Credits.Registered,
		&details.Credits.Earned,
		&details.Credits.Cgpa,
	}
	for i, target := range floats {
		*target, err = strconv.ParseFloat(values[i], 64)
		if err != nil {
			return CgpaDetails{}, fmt.Errorf("parse cgpa cell %d: %w", i, err)
		}
	}
	ints := []*int{
		&details.Grades.S,
		&details.Grades.A,
		&details.Grades.B,
		&details.Grades.C,
		&details.Grades.D,
		&details.Grades.E,
		&details.Grades.F,
		&details.Grades.N,
	}
	for i, target := range ints {
		*target, err = strconv.Atoi(values[len(floats)+i])
		if err != nil {
			return CgpaDetails{}, fmt.Errorf("parse grade count cell %d: %w", len(floats)+i, err)
		}
	}
	return details, nil
}

var gpaRegex = regexp.MustCompile(`GPA\s*:\s*([0-9]+\.?[0-9]*)`)

// ExtractGpa reads the gpa of a semester from its grade view, it is
// usually rendered as `<span>GPA : 9.07</span>`.
func ExtractGpa(body []byte) (float64, error) {
	doc, err := parse(body)
	if err != nil {
		return 0, err
	}

	text := ""
	doc.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		spanText := htmlutil.Text(span)
		if strings.Contains(spanText, "GPA") {
			text = spanText
			return false
		}
		return true
	})
	if text == "" {
		text = htmlutil.Text(doc.Selection)
	}

	match := gpaRegex.FindStringSubmatch(text)
	if len(match) < 2 {
		return 0, anchorNotFound("GPA : <value>")
	}
	return strconv.ParseFloat(match[1], 64)
}
