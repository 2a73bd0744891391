package vtop

import (
	"regexp"
	"strings"
	"vtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	dayCellColor    = "#e2e2e2"
	activeSlotColor = "#ccff33"
)

var shortWeekdays = map[string]string{
	"MON": "monday",
	"TUE": "tuesday",
	"WED": "wednesday",
	"THU": "thursday",
	"FRI": "friday",
	"SAT": "saturday",
	"SUN": "sunday",
}

var courseCodeRegex = regexp.MustCompile(`^[A-Z0-9]+[A-Z0-9MPL]*$`)
var moocCourseRegex = regexp.MustCompile(`^([A-Z0-9]+[A-Z0-9MPL]+)\s+(.*)$`)

// ExtractTimetable reads the weekly slot grid of a semester, course names
// are taken from the registered courses table on the same page.
func ExtractTimetable(body []byte) (Timetable, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	grid := doc.Find("table#timeTableStyle").First()
	if grid.Length() == 0 {
		return nil, anchorNotFound("table#timeTableStyle")
	}

	names := registeredCourses(doc)
	timetable := NewTimetable()

	for _, dayCell := range dayCells(grid) {
		day := shortWeekdays[strings.ToUpper(htmlutil.Text(dayCell))]
		if day == "" {
			continue
		}

		theoryRow := dayCell.Closest("tr")
		theoryCells := cells(theoryRow)
		start := 0
		if len(theoryCells) > 0 {
			switch {
			case theoryCells[0].IsSelection(dayCell):
				start = 1
				if len(theoryCells) > 1 && strings.EqualFold(htmlutil.Text(theoryCells[1]), "THEORY") {
					start = 2
				}
			case strings.EqualFold(htmlutil.Text(theoryCells[0]), "THEORY"):
				start = 1
			}
		}
		addSlots(timetable, day, theoryCells[start:], names)

		labRow := theoryRow.NextAllFiltered("tr").First()
		if labRow.Length() == 0 {
			continue
		}
		labCells := cells(labRow)
		start = 0
		if len(labCells) > 0 && strings.EqualFold(htmlutil.Text(labCells[0]), "LAB") {
			start = 1
		}
		addSlots(timetable, day, labCells[start:], names)
	}

	return timetable, nil
}

// dayCells finds the cells labelling each day, they span the theory and
// lab rows of the day.
func dayCells(grid *goquery.Selection) []*goquery.Selection {
	var marked, labelled []*goquery.Selection
	grid.Find(`td[rowspan="2"]`).Each(func(_ int, td *goquery.Selection) {
		if htmlutil.AttrEquals(td, "bgcolor", dayCellColor) {
			marked = append(marked, td)
			return
		}
		_, isDay := shortWeekdays[strings.ToUpper(htmlutil.Text(td))]
		if !isDay {
			return
		}
		color := strings.ToLower(td.AttrOr("bgcolor", ""))
		if color == "" ||
			strings.Contains(color, "dcdcdc") ||
			strings.Contains(color, "c0c0c0") {
			labelled = append(labelled, td)
		}
	})
	if len(marked) > 0 {
		return marked
	}
	return labelled
}

func addSlots(timetable Timetable, day string, slots []*goquery.Selection, names map[string]string) {
	for _, slot := range slots {
		if !htmlutil.AttrEquals(slot, "bgcolor", activeSlotColor) {
			continue
		}
		text := htmlutil.PreferredText(slot, "p")
		if text == "" || text == "-" {
			continue
		}
		parts := strings.Split(text, "-")
		if len(parts) < 2 {
			continue
		}

		code := strings.TrimSpace(parts[1])
		name, ok := names[code]
		if !ok {
			name = "Unknown Course (" + code + ")"
		}
		timetable.add(day, TimetableEntry{
			SlotInfo:   strings.TrimSpace(parts[0]),
			CourseName: name,
			CourseCode: code,
			Details:    strings.TrimSpace(strings.Join(parts[2:], "-")),
		})
	}
}

// registeredCourses maps course codes to names using the registered
// courses table, an empty map is returned when it is missing.
func registeredCourses(doc *goquery.Document) map[string]string {
	names := map[string]string{}
	table := doc.Find("div#studentDetailsList div.table-responsive table.table").First()

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.ChildrenFiltered("th").Length() > 0 {
			return
		}
		rowCells := cells(row)
		if len(rowCells) <= 2 {
			return
		}

		paragraphs := rowCells[2].Find("p")
		if paragraphs.Length() == 0 {
			return
		}
		full := htmlutil.Text(paragraphs.First())
		if paragraphs.Length() > 1 && !strings.Contains(full, " - ") && courseCodeRegex.MatchString(full) {
			full = full + " - " + htmlutil.Text(paragraphs.Eq(1))
		}

		code, name, found := strings.Cut(full, " - ")
		if found {
			code = strings.TrimSpace(code)
			if code != "" {
				names[code] = strings.TrimSpace(name)
			}
			return
		}

		if !strings.Contains(htmlutil.Text(rowCells[1]), "MOOC") {
			return
		}
		match := moocCourseRegex.FindStringSubmatch(full)
		if len(match) == 3 {
			names[strings.TrimSpace(match[1])] = strings.TrimSpace(match[2])
		}
	})
	return names
}
