package vtop

import (
	"vtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// rowsOf returns the rows matching selector that belong to table itself
// and not to a table nested inside it.
func rowsOf(table *goquery.Selection, selector string) *goquery.Selection {
	return table.Find(selector).FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Closest("table").IsSelection(table)
	})
}

// ExtractMarks reads the marks view of a semester. the table alternates
// between a course row and a row holding that course's assessment table.
func ExtractMarks(body []byte) (Marks, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	const anchor = "form#studentMarkView div.fixedTableContainer table.customTable"
	table := doc.Find("form#studentMarkView div.fixedTableContainer").First().
		Find("table.customTable").First()
	if table.Length() == 0 {
		return nil, anchorNotFound(anchor)
	}

	marks := Marks{}
	currentCourse := ""
	rowsOf(table, "tr.tableContent").Each(func(_ int, row *goquery.Selection) {
		rowCells := cells(row)

		switch {
		case len(rowCells) > 1:
			if len(rowCells) < 4 {
				currentCourse = ""
				return
			}
			currentCourse = htmlutil.Text(rowCells[2])
			if currentCourse == "" {
				return
			}
			marks[currentCourse] = CourseMarks{
				CourseName:  htmlutil.Text(rowCells[3]),
				Assessments: map[string]Assessment{},
			}
		case len(rowCells) == 1 && rowCells[0].AttrOr("colspan", "") == "9":
			course, ok := marks[currentCourse]
			if !ok {
				return
			}
			nested := rowCells[0].Find("table.customTable-level1").First()
			rowsOf(nested, "tr.tableContent-level1").Each(func(_ int, assessmentRow *goquery.Selection) {
				assessmentCells := cells(assessmentRow)
				if len(assessmentCells) < 7 {
					return
				}
				title := htmlutil.PreferredText(assessmentCells[1], "output")
				if title == "" {
					return
				}
				course.Assessments[title] = Assessment{
					MaxMarks:       ParseScore(htmlutil.PreferredText(assessmentCells[2], "output")),
					MaxWeightage:   ParseScore(htmlutil.PreferredText(assessmentCells[3], "output")),
					ScoredMarks:    ParseScore(htmlutil.PreferredText(assessmentCells[5], "output")),
					WeightageMarks: ParseScore(htmlutil.PreferredText(assessmentCells[6], "output")),
				}
			})
		}
	})

	return marks, nil
}
