package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestCleanText(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "  hello   world ", expected: "hello world"},
		{in: "\n\tCSE1001 -\n  Problem Solving\n", expected: "CSE1001 - Problem Solving"},
		{in: "a\u0000b", expected: "ab"},
		{in: "", expected: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, CleanText(test.in))
	}
}

func TestPreferredText(t *testing.T) {
	doc := parse(t, `<table><tr>
		<td id="a"><p> 87.5 </p> ignored</td>
		<td id="b"> plain </td>
	</tr></table>`)

	require.Equal(t, "87.5", PreferredText(doc.Find("#a"), "p"))
	require.Equal(t, "plain", PreferredText(doc.Find("#b"), "p"))
}

func TestAttrEquals(t *testing.T) {
	doc := parse(t, `<table><tr><td bgcolor="#CCFF33">x</td><td>y</td></tr></table>`)
	cells := doc.Find("td")

	require.True(t, AttrEquals(cells.Eq(0), "bgcolor", "#ccff33"))
	require.False(t, AttrEquals(cells.Eq(1), "bgcolor", "#ccff33"))
}
