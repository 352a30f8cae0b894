package outline

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Syntax identifies the outline dialect of a document.
type Syntax int

const (
	SyntaxOrg Syntax = iota + 1
	SyntaxMarkdown
)

func (s Syntax) String() string {
	switch s {
	case SyntaxOrg:
		return "org"
	case SyntaxMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// SyntaxFor picks the dialect from the file extension.
func SyntaxFor(path string) (Syntax, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".org":
		return SyntaxOrg, true
	case ".md", ".markdown":
		return SyntaxMarkdown, true
	}
	return 0, false
}

var (
	orgHeading  = regexp.MustCompile(`^(\*+)\s+(.*?)\s*$`)
	orgPriority = regexp.MustCompile(`^\[#[A-Za-z0-9]\]\s*`)
	orgTags     = regexp.MustCompile(`\s+:[\w@#%:]+:\s*$`)
	orgPlanning = regexp.MustCompile(`^\s*(SCHEDULED|DEADLINE|CLOSED):`)
	orgIDLine   = regexp.MustCompile(`(?i)^\s*:ID:\s+(\S+)\s*$`)

	mdHeading  = regexp.MustCompile(`^(#{1,6})\s+(.*?)(?:\s+#+)?\s*$`)
	mdIDMarker = regexp.MustCompile(`^\s*<!--\s*id:\s*(\S+?)\s*-->\s*$`)
	mdFence    = regexp.MustCompile("^\\s*(```|~~~)")
)

// TodoKeywords are stripped from the front of Org heading titles.
var TodoKeywords = map[string]bool{
	"TODO": true, "NEXT": true, "DONE": true,
	"WAIT": true, "WAITING": true, "HOLD": true,
	"CANCELED": true, "CANCELLED": true,
}

// Heading is one parsed heading. Line numbers are 1-based.
type Heading struct {
	Level int
	Title string
	ID    string

	// Line is the heading line itself.
	Line int
	// End is the last line of the section, which runs until the next
	// heading of the same or a higher level.
	End int

	// metaEnd is the last line of metadata following the heading
	// (planning line, property drawer or id marker).
	metaEnd int
	// drawer is the line of ":PROPERTIES:" or 0.
	drawer int
	// idLine is the line carrying the identifier or 0.
	idLine int
}

// Document is a parsed outline file held as lines.
type Document struct {
	Path     string
	Syntax   Syntax
	Lines    []string
	Headings []Heading

	trailingNewline bool
}

// Parse splits data into lines and indexes its headings.
func Parse(path string, syntax Syntax, data []byte) *Document {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	doc := &Document{
		Path:            path,
		Syntax:          syntax,
		trailingNewline: strings.HasSuffix(text, "\n"),
	}
	text = strings.TrimSuffix(text, "\n")
	if text != "" {
		doc.Lines = strings.Split(text, "\n")
	}
	doc.index()
	return doc
}

func (d *Document) index() {
	d.Headings = d.Headings[:0]
	switch d.Syntax {
	case SyntaxOrg:
		d.indexOrg()
	case SyntaxMarkdown:
		d.indexMarkdown()
	}
	for i := range d.Headings {
		d.Headings[i].End = len(d.Lines)
		for _, next := range d.Headings[i+1:] {
			if next.Level <= d.Headings[i].Level {
				d.Headings[i].End = next.Line - 1
				break
			}
		}
	}
}

func (d *Document) indexOrg() {
	for i, line := range d.Lines {
		m := orgHeading.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		h := Heading{
			Level:   len(m[1]),
			Title:   orgTitle(m[2]),
			Line:    i + 1,
			metaEnd: i + 1,
		}

		j := i + 1
		if j < len(d.Lines) && orgPlanning.MatchString(d.Lines[j]) {
			h.metaEnd = j + 1
			j++
		}
		if j < len(d.Lines) && strings.EqualFold(strings.TrimSpace(d.Lines[j]), ":PROPERTIES:") {
			h.drawer = j + 1
			closed := false
			for k := j + 1; k < len(d.Lines); k++ {
				if strings.EqualFold(strings.TrimSpace(d.Lines[k]), ":END:") {
					h.metaEnd = k + 1
					closed = true
					break
				}
				if orgHeading.MatchString(d.Lines[k]) {
					break
				}
				if id := orgIDLine.FindStringSubmatch(d.Lines[k]); id != nil {
					h.ID = id[1]
					h.idLine = k + 1
				}
			}
			// an unterminated drawer is plain body text
			if !closed {
				h.drawer = 0
				h.ID, h.idLine = "", 0
			}
		}
		d.Headings = append(d.Headings, h)
	}
}

// orgTitle strips the TODO keyword, priority cookie and tags.
func orgTitle(raw string) string {
	title := orgTags.ReplaceAllString(" "+raw, "")
	title = strings.TrimSpace(title)
	if kw, rest, ok := strings.Cut(title, " "); ok && TodoKeywords[kw] {
		title = strings.TrimSpace(rest)
	} else if TodoKeywords[title] {
		title = ""
	}
	title = orgPriority.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func (d *Document) indexMarkdown() {
	var fence string
	for i, line := range d.Lines {
		if m := mdFence.FindStringSubmatch(line); m != nil {
			switch fence {
			case "":
				fence = m[1]
			case m[1]:
				fence = ""
			}
			continue
		}
		if fence != "" {
			continue
		}
		m := mdHeading.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		h := Heading{
			Level:   len(m[1]),
			Title:   strings.TrimSpace(m[2]),
			Line:    i + 1,
			metaEnd: i + 1,
		}
		if i+1 < len(d.Lines) {
			if id := mdIDMarker.FindStringSubmatch(d.Lines[i+1]); id != nil {
				h.ID = id[1]
				h.idLine = i + 2
				h.metaEnd = i + 2
			}
		}
		d.Headings = append(d.Headings, h)
	}
}

// HeadingAt returns the nearest heading at or above line.
func (d *Document) HeadingAt(line int) (Heading, bool) {
	var found Heading
	ok := false
	for _, h := range d.Headings {
		if h.Line > line {
			break
		}
		found, ok = h, true
	}
	return found, ok
}

// HeadingByID returns the heading carrying id.
func (d *Document) HeadingByID(id string) (Heading, bool) {
	for _, h := range d.Headings {
		if h.ID == id {
			return h, true
		}
	}
	return Heading{}, false
}

// IDs maps every identifier in the document to its heading line.
func (d *Document) IDs() map[string]int {
	ids := make(map[string]int)
	for _, h := range d.Headings {
		if h.ID != "" {
			if _, dup := ids[h.ID]; !dup {
				ids[h.ID] = h.Line
			}
		}
	}
	return ids
}

// Content returns the body of h with leading and trailing blank lines
// removed. Nested headings keep their body but lose their own title line
// and metadata.
func (d *Document) Content(h Heading) string {
	if h.metaEnd >= h.End {
		return ""
	}

	skip := make(map[int]bool)
	for _, sub := range d.Headings {
		if sub.Line <= h.Line || sub.Line > h.End {
			continue
		}
		for l := sub.Line; l <= sub.metaEnd; l++ {
			skip[l] = true
		}
	}

	body := make([]string, 0, h.End-h.metaEnd)
	for l := h.metaEnd + 1; l <= h.End; l++ {
		if !skip[l] {
			body = append(body, d.Lines[l-1])
		}
	}
	for len(body) > 0 && strings.TrimSpace(body[0]) == "" {
		body = body[1:]
	}
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	return strings.Join(body, "\n")
}

// SetID writes id into the heading starting at line and re-indexes.
// An existing identifier is replaced.
func (d *Document) SetID(line int, id string) bool {
	h, ok := d.HeadingAt(line)
	if !ok {
		return false
	}

	switch {
	case h.idLine > 0 && d.Syntax == SyntaxOrg:
		d.Lines[h.idLine-1] = ":ID:       " + id
	case h.idLine > 0:
		d.Lines[h.idLine-1] = "<!-- id: " + id + " -->"
	case d.Syntax == SyntaxOrg && h.drawer > 0:
		d.insert(h.drawer, ":ID:       "+id)
	case d.Syntax == SyntaxOrg:
		// drawer goes after the heading and an optional planning line
		d.insert(h.metaEnd, ":PROPERTIES:", ":ID:       "+id, ":END:")
	default:
		d.insert(h.Line, "<!-- id: "+id+" -->")
	}
	d.index()
	return true
}

// insert places lines after the 1-based line at.
func (d *Document) insert(at int, lines ...string) {
	out := make([]string, 0, len(d.Lines)+len(lines))
	out = append(out, d.Lines[:at]...)
	out = append(out, lines...)
	out = append(out, d.Lines[at:]...)
	d.Lines = out
}

// Bytes renders the document back to file contents.
func (d *Document) Bytes() []byte {
	text := strings.Join(d.Lines, "\n")
	if len(d.Lines) > 0 || d.trailingNewline {
		text += "\n"
	}
	return []byte(text)
}
