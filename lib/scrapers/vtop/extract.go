package vtop

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// ErrAnchorNotFound is returned by extractors when the element their data
// hangs off is missing from the page.
var ErrAnchorNotFound = errors.New("anchor element not found")

func anchorNotFound(anchor string) error {
	return fmt.Errorf("%w: %s", ErrAnchorNotFound, anchor)
}

func parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// cells returns the direct td children of a row.
func cells(row *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	row.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
		out = append(out, td)
	})
	return out
}
