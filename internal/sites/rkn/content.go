package rkn

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

const (
	verdictRestricted = "Доступ к сайту ограничен по решению суда."
	verdictAllowed    = "Ресурс разрешен."
)

// VerdictContent renders a Verdict for the CLI.
type VerdictContent struct {
	v *Verdict
}

func NewVerdictContent(v *Verdict) *VerdictContent {
	return &VerdictContent{v: v}
}

func (c *VerdictContent) headline() string {
	if c.v.Found {
		return verdictRestricted
	}
	return verdictAllowed
}

func (c *VerdictContent) ToText() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s\n", c.v.Domain, c.headline()))
	sb.WriteString(c.v.Summary + "\n")
	for i, r := range c.v.Restrictions {
		sb.WriteString(fmt.Sprintf("%d. %s\n   %s\n   %s\n", i+1, r.Type, r.Article, r.Basis))
	}
	return sb.String(), nil
}

func (c *VerdictContent) ToHTML() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n<p>%s</p>\n", html.EscapeString(c.v.Domain), html.EscapeString(c.headline())))
	if c.v.ResultHTML != "" {
		sb.WriteString(c.v.ResultHTML)
	} else {
		sb.WriteString("<p>" + html.EscapeString(c.v.Summary) + "</p>")
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

// ToMarkdown converts the captured result region; without one it falls back to the summary.
func (c *VerdictContent) ToMarkdown() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n**%s**\n\n", c.v.Domain, c.headline()))
	if c.v.ResultHTML == "" {
		sb.WriteString(c.v.Summary + "\n")
		return sb.String(), nil
	}
	converter := md.NewConverter("", true, nil)
	body, err := converter.ConvertString(c.v.ResultHTML)
	if err != nil {
		return "", fmt.Errorf("failed to convert result to markdown: %w", err)
	}
	sb.WriteString(body + "\n")
	return sb.String(), nil
}

func (c *VerdictContent) ToJSON() ([]byte, error) {
	return json.Marshal(c.v)
}

func (c *VerdictContent) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Domain", "Found", "Type", "Article", "Basis"})
	found := fmt.Sprint(c.v.Found)
	if len(c.v.Restrictions) == 0 {
		_ = w.Write([]string{c.v.Domain, found, "", "", ""})
	}
	for _, r := range c.v.Restrictions {
		_ = w.Write([]string{c.v.Domain, found, r.Type, r.Article, r.Basis})
	}
	w.Flush()
	return buf.String(), w.Error()
}
