package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"regcheck/internal/scraper"
)

const (
	verdictListed = "Организация признана нежелательной / экстремистской / террористической."
	verdictClean  = "Организация проверена."
)

// ReportContent renders a refresh Report for the CLI.
type ReportContent struct {
	r Report
}

func NewReportContent(r Report) *ReportContent {
	return &ReportContent{r: r}
}

func (c *ReportContent) status(o SourceOutcome) string {
	switch {
	case o.Err != nil:
		return "failed: " + o.Err.Error()
	case o.Kept:
		return "empty, cache kept"
	default:
		return "replaced"
	}
}

func (c *ReportContent) ToText() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Refresh %s (%s)\n", c.r.RunID, c.r.Duration.Round(time.Second)))
	for _, o := range c.r.Outcomes {
		sb.WriteString(fmt.Sprintf("  %-8s fetched=%d written=%d %s\n", o.Source, o.Fetched, o.Written, c.status(o)))
	}
	return sb.String(), nil
}

func (c *ReportContent) ToMarkdown() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Refresh %s\n\n", c.r.RunID))
	sb.WriteString("| Source | Fetched | Written | Status |\n|---|---|---|---|\n")
	for _, o := range c.r.Outcomes {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", o.Source, o.Fetched, o.Written, c.status(o)))
	}
	return sb.String(), nil
}

func (c *ReportContent) ToHTML() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<h1>Refresh %s</h1>\n<table>\n", html.EscapeString(c.r.RunID)))
	sb.WriteString("<tr><th>Source</th><th>Fetched</th><th>Written</th><th>Status</th></tr>\n")
	for _, o := range c.r.Outcomes {
		sb.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%d</td><td>%d</td><td>%s</td></tr>\n",
			o.Source, o.Fetched, o.Written, html.EscapeString(c.status(o))))
	}
	sb.WriteString("</table>\n")
	return sb.String(), nil
}

func (c *ReportContent) ToJSON() ([]byte, error) {
	type outcome struct {
		SourceOutcome
		Error string `json:"error,omitempty"`
	}
	out := struct {
		Report
		Outcomes []outcome `json:"outcomes"`
	}{Report: c.r}
	for _, o := range c.r.Outcomes {
		oc := outcome{SourceOutcome: o}
		if o.Err != nil {
			oc.Error = o.Err.Error()
		}
		out.Outcomes = append(out.Outcomes, oc)
	}
	return json.Marshal(out)
}

func (c *ReportContent) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"RunID", "Source", "Fetched", "Written", "Status"})
	for _, o := range c.r.Outcomes {
		_ = w.Write([]string{c.r.RunID, string(o.Source), strconv.Itoa(o.Fetched), strconv.Itoa(o.Written), c.status(o)})
	}
	w.Flush()
	return buf.String(), w.Error()
}

// MatchContent renders the answer to a name query.
type MatchContent struct {
	query string
	entry *scraper.Entry
}

func NewMatchContent(query string, entry *scraper.Entry) *MatchContent {
	return &MatchContent{query: query, entry: entry}
}

func (c *MatchContent) verdict() string {
	if c.entry != nil {
		return verdictListed
	}
	return verdictClean
}

func (c *MatchContent) ToText() (string, error) {
	if c.entry == nil {
		return c.verdict() + "\n", nil
	}
	return fmt.Sprintf("%s\n%s: %s\n%s\n", c.verdict(), c.entry.Source, c.entry.Name, c.entry.Details), nil
}

func (c *MatchContent) ToMarkdown() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**%s**\n", c.verdict()))
	if c.entry != nil {
		sb.WriteString(fmt.Sprintf("\n- Source: %s\n- Name: %s\n", c.entry.Source, c.entry.Name))
		if c.entry.Details != "" {
			sb.WriteString("- Details: " + c.entry.Details + "\n")
		}
	}
	return sb.String(), nil
}

func (c *MatchContent) ToHTML() (string, error) {
	var sb strings.Builder
	sb.WriteString("<p><strong>" + c.verdict() + "</strong></p>\n")
	if c.entry != nil {
		sb.WriteString(fmt.Sprintf("<dl><dt>%s</dt><dd>%s</dd><dd>%s</dd></dl>\n",
			c.entry.Source, html.EscapeString(c.entry.Name), html.EscapeString(c.entry.Details)))
	}
	return sb.String(), nil
}

func (c *MatchContent) ToJSON() ([]byte, error) {
	return json.Marshal(struct {
		Query   string         `json:"query"`
		Matched bool           `json:"matched"`
		Entry   *scraper.Entry `json:"entry,omitempty"`
	}{c.query, c.entry != nil, c.entry})
}

func (c *MatchContent) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Query", "Matched", "Source", "Name", "Details"})
	row := []string{c.query, strconv.FormatBool(c.entry != nil), "", "", ""}
	if c.entry != nil {
		row[2], row[3], row[4] = string(c.entry.Source), c.entry.Name, c.entry.Details
	}
	_ = w.Write(row)
	w.Flush()
	return buf.String(), w.Error()
}
