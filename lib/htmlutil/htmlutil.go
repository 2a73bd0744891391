package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	out := strings.Builder{}
	for _, c := range s {
		switch {
		case unicode.IsSpace(c):
			out.WriteRune(' ')
		case unicode.IsPrint(c):
			out.WriteRune(c)
		}
	}
	return out.String()
}

// CleanText drops non printable characters, collapses whitespace runs (nbsp
// included) into a single space and trims the ends.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Text returns the cleaned text of every node in the selection.
func Text(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer)
	}
	return CleanText(buffer.String())
}

// PreferredText returns the cleaned text of the first `child` element inside
// sel, falling back to the text of sel itself.
func PreferredText(sel *goquery.Selection, child string) string {
	inner := sel.Find(child).First()
	if inner.Length() > 0 {
		return Text(inner)
	}
	return Text(sel)
}

// AttrEquals reports whether the attribute of the first node in sel
// equals value, ignoring case and surrounding whitespace.
func AttrEquals(sel *goquery.Selection, attr, value string) bool {
	got, ok := sel.Attr(attr)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(got), value)
}
