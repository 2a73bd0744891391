package vtop

import (
	"strings"
	"vtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// ExtractSemesters lists the options of the semester dropdown in page
// order, the placeholder option without a value is skipped.
func ExtractSemesters(body []byte) ([]SemesterOption, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	sel := doc.Find("select#semesterSubId").First()
	if sel.Length() == 0 {
		return nil, anchorNotFound("select#semesterSubId")
	}

	var out []SemesterOption
	seen := map[string]bool{}
	sel.Find("option").Each(func(_ int, option *goquery.Selection) {
		code := strings.TrimSpace(option.AttrOr("value", ""))
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, SemesterOption{
			Code: code,
			Name: htmlutil.Text(option),
		})
	})
	return out, nil
}
