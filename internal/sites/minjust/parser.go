package minjust

import (
	"strings"

	"regcheck/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

const headerMarker = "Полное и сокращенное"

// Parse extracts organisations from the first table of the Minjust list page.
// Rows need at least four cells; the fourth holds the name and the first three
// become labelled details.
func Parse(html string) []scraper.Entry {
	doc := scraper.Document(html)
	if doc == nil {
		return nil
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil
	}

	var entries []scraper.Entry
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if isHeader(row) {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		var parts []string
		for i, label := range []string{"Номер в перечне", "Распоряжение Минюста", "Решение Генпрокуратуры"} {
			if v := scraper.Text(cells.Eq(i)); v != "" {
				parts = append(parts, label+": "+v)
			}
		}

		if e, ok := scraper.NewEntry(scraper.Minjust, scraper.Text(cells.Eq(3)), strings.Join(parts, " | ")); ok {
			entries = append(entries, e)
		}
	})
	return entries
}

// isHeader reports whether the fourth cell of row is the column caption.
func isHeader(row *goquery.Selection) bool {
	for _, sel := range []string{"th", "td"} {
		cells := row.Find(sel)
		if cells.Length() > 3 && strings.Contains(cells.Eq(3).Text(), headerMarker) {
			return true
		}
	}
	return false
}
