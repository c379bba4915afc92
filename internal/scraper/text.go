package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Text returns the selection's text with runs of whitespace collapsed to one space.
func Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// CellText is Text with a space between every text node, so <br> and
// block children do not fuse neighbouring words.
func CellText(s *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				parts = append(parts, c.Text())
				return
			}
			walk(c)
		})
	}
	walk(s)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// Document parses html, returning nil when it cannot be read.
func Document(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return doc
}
