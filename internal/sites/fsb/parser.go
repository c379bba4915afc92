package fsb

import (
	"strings"

	"regcheck/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

// Parse reads table.table on the FSB page. The first body row is the
// caption; data rows have exactly three cells: number, name, court decisions.
func Parse(html string) []scraper.Entry {
	doc := scraper.Document(html)
	if doc == nil {
		return nil
	}
	table := doc.Find("table.table").First()
	if table.Length() == 0 {
		return nil
	}

	rows := table.Find("tbody").First().ChildrenFiltered("tr")
	if rows.Length() == 0 {
		rows = table.Find("tr")
	}

	var entries []scraper.Entry
	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.ChildrenFiltered("td")
		if cells.Length() != 3 {
			return
		}

		var court []string
		cells.Eq(2).Find("div").Each(func(_ int, div *goquery.Selection) {
			if v := scraper.CellText(div); v != "" {
				court = append(court, v)
			}
		})

		if e, ok := scraper.NewEntry(scraper.FSB, scraper.CellText(cells.Eq(1)), strings.Join(court, " ")); ok {
			entries = append(entries, e)
		}
	})
	return entries
}
