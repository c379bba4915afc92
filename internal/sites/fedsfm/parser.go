package fedsfm

import (
	"regexp"
	"strings"

	"regcheck/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

var (
	ordinalRe = regexp.MustCompile(`^\d+\.\s*`)
	personRe  = regexp.MustCompile(`^\d+\.\s*(.*?),\s*([\d.]+\s*г\.р\.)\s*(.*?);?$`)
)

// Parse reads the organisation (#russianUL) and individual (#russianFL)
// lists. Individuals not in "N. NAME, DOB г.р. PLACE;" form are skipped.
func Parse(html string) []scraper.Entry {
	doc := scraper.Document(html)
	if doc == nil {
		return nil
	}

	var entries []scraper.Entry
	doc.Find("#russianUL li").Each(func(_ int, li *goquery.Selection) {
		name := ordinalRe.ReplaceAllString(scraper.Text(li), "")
		if e, ok := scraper.NewEntry(scraper.Fedsfm, name, "Тип: Организация"); ok {
			entries = append(entries, e)
		}
	})

	doc.Find("#russianFL li").Each(func(_ int, li *goquery.Selection) {
		m := personRe.FindStringSubmatch(scraper.Text(li))
		if m == nil {
			return
		}
		details := "Тип: Физ. лицо | ДР: " + strings.TrimSpace(m[2]) +
			" | Место рождения: " + strings.Trim(m[3], "; ")
		if e, ok := scraper.NewEntry(scraper.Fedsfm, m[1], details); ok {
			entries = append(entries, e)
		}
	})
	return entries
}
