package report

import (
	"strconv"
	"strings"
)

// Document is a plain-text report made of named sections.
type Document struct {
	sections []section
}

type section struct {
	name string
	body string
}

// Add appends a section. Empty bodies are kept so every run has the same
// outline.
func (d *Document) Add(name, body string) {
	d.sections = append(d.sections, section{name: strings.ToUpper(name), body: strings.TrimRight(body, "\n")})
}

// AddTable appends a section holding a markdown table.
func (d *Document) AddTable(name string, t Table) {
	d.Add(name, t.Markdown())
}

// Sections returns section names in order.
func (d *Document) Sections() []string {
	out := make([]string, len(d.sections))
	for i, s := range d.sections {
		out[i] = s.name
	}
	return out
}

// String renders every section as "[NAME]" followed by its body.
func (d *Document) String() string {
	var b strings.Builder
	for i, s := range d.sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[" + s.name + "]\n")
		if s.body != "" {
			b.WriteString(s.body)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func itoa(n int) string { return strconv.Itoa(n) }
