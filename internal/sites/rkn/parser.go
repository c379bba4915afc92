package rkn

import (
	"strings"

	"regcheck/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

const (
	notFoundMarker = "не найден"
	noSummary      = "Ресурс не найден в реестре"
)

// Restriction is one row of the search result table.
type Restriction struct {
	Type    string `json:"type"`
	Article string `json:"article"`
	Basis   string `json:"basis"`
}

// Verdict is the outcome of one blocklist check.
type Verdict struct {
	Domain       string        `json:"domain"`
	Found        bool          `json:"found"`
	Summary      string        `json:"summary"`
	Restrictions []Restriction `json:"restrictions"`
	Attempts     int           `json:"attempts"`
	// ResultHTML is the raw result region, empty when the page had none.
	ResultHTML string `json:"-"`
}

// ParseResult reads the result region of the search page. A missing
// #searchresurs means the resource is not listed.
func ParseResult(html string) Verdict {
	v := Verdict{Summary: noSummary, Restrictions: []Restriction{}}
	doc := scraper.Document(html)
	if doc == nil {
		return v
	}
	summary := doc.Find("p#searchresurs").First()
	if summary.Length() == 0 {
		return v
	}
	v.Summary = scraper.Text(summary)

	table := doc.Find("table#tbl_search").First()
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() != 3 {
			return
		}
		v.Restrictions = append(v.Restrictions, Restriction{
			Type:    scraper.CellText(cells.Eq(0)),
			Article: scraper.CellText(cells.Eq(1)),
			Basis:   scraper.CellText(cells.Eq(2)),
		})
	})

	v.Found = len(v.Restrictions) > 0 && !strings.Contains(strings.ToLower(v.Summary), notFoundMarker)
	v.ResultHTML = outerHTML(summary) + outerHTML(table)
	return v
}

// HasInvalidCode reports whether the page shows the wrong-captcha error.
func HasInvalidCode(html string) bool {
	doc := scraper.Document(html)
	if doc == nil {
		return false
	}
	text := strings.ToLower(scraper.Text(doc.Find("div#error")))
	return strings.Contains(text, "неверно указан защитный код")
}

func outerHTML(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	h, err := goquery.OuterHtml(s)
	if err != nil {
		return ""
	}
	return h
}
