// Package render colors diff reports for terminals.
package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineKind classifies one line of a diff report.
type LineKind int

const (
	Context LineKind = iota
	// Command is the `diff L R` line that opens a document's differences.
	Command
	FileHeader
	HunkHeader
	Deleted
	Added
	Changed
	// Separator is the `---` line between both sides of a normal change.
	Separator
	// Notice is a one line summary such as `Only in dir: name`.
	Notice
	Marker
)

// Classify returns the kind of a report line without its terminator.
func Classify(line string) LineKind {
	switch {
	case strings.HasPrefix(line, "diff "):
		return Command
	case line == "---":
		return Separator
	case strings.HasPrefix(line, "@@ "), strings.HasPrefix(line, "***************"),
		isContextRange(line, "*** ", " ****"), isContextRange(line, "--- ", " ----"):
		return HunkHeader
	case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "*** "):
		return FileHeader
	case strings.HasPrefix(line, `\ `):
		return Marker
	case strings.HasPrefix(line, "Only in "), strings.HasPrefix(line, "Files "),
		strings.HasPrefix(line, "Binary files "), strings.HasPrefix(line, "File "):
		return Notice
	case isNormalCommand(line):
		return HunkHeader
	case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "<"):
		return Deleted
	case strings.HasPrefix(line, "+"), strings.HasPrefix(line, ">"):
		return Added
	case strings.HasPrefix(line, "!"):
		return Changed
	}
	return Context
}

func isContextRange(line, prefix, suffix string) bool {
	if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, suffix) {
		return false
	}
	return isRange(line[len(prefix) : len(line)-len(suffix)])
}

func isRange(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != ',' {
			return false
		}
	}
	return true
}

// isNormalCommand matches `2a3`, `5,7d4` and `8c8,9`.
func isNormalCommand(line string) bool {
	i := strings.IndexAny(line, "acd")
	if i <= 0 || i == len(line)-1 {
		return false
	}
	return isRange(line[:i]) && isRange(line[i+1:])
}

// Span is a run of characters of a changed line.
type Span struct {
	Text    string
	Changed bool
}

// Spans splits a deleted line and the added line replacing it into runs
// that both share and runs that only one of them has.
func Spans(oldLine, newLine string) (oldSpans, newSpans []Span) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldLine, newLine, false))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldSpans = appendSpan(oldSpans, d.Text, false)
			newSpans = appendSpan(newSpans, d.Text, false)
		case diffmatchpatch.DiffDelete:
			oldSpans = appendSpan(oldSpans, d.Text, true)
		case diffmatchpatch.DiffInsert:
			newSpans = appendSpan(newSpans, d.Text, true)
		}
	}
	return oldSpans, newSpans
}

func appendSpan(spans []Span, text string, changed bool) []Span {
	if n := len(spans); n > 0 && spans[n-1].Changed == changed {
		spans[n-1].Text += text
		return spans
	}
	return append(spans, Span{Text: text, Changed: changed})
}

// Styles holds one style per line kind plus the emphasis of changed spans.
type Styles struct {
	Command     lipgloss.Style
	FileHeader  lipgloss.Style
	HunkHeader  lipgloss.Style
	Deleted     lipgloss.Style
	Added       lipgloss.Style
	Changed     lipgloss.Style
	Separator   lipgloss.Style
	Notice      lipgloss.Style
	Marker      lipgloss.Style
	DeletedSpan lipgloss.Style
	AddedSpan   lipgloss.Style
}

// DefaultStyles returns the styles used by the CLI, bound to r.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	base := r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	return Styles{
		Command:     base.Bold(true),
		FileHeader:  base.Bold(true),
		HunkHeader:  base.Foreground(lipgloss.Color("36")),
		Deleted:     base.Foreground(lipgloss.Color("160")),
		Added:       base.Foreground(lipgloss.Color("34")),
		Changed:     base.Foreground(lipgloss.Color("178")),
		Separator:   base.Foreground(lipgloss.Color("240")),
		Notice:      base.Foreground(lipgloss.Color("33")),
		Marker:      base.Foreground(lipgloss.Color("240")).Italic(true),
		DeletedSpan: base.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("124")),
		AddedSpan:   base.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("28")),
	}
}

// Renderer colors report text line by line. Runs of deleted lines directly
// followed by added lines get their differing characters emphasized.
type Renderer struct {
	styles    Styles
	IntraLine bool
}

// New creates a Renderer for w. The color profile is detected from w
// unless profile is given.
func New(w io.Writer, profile ...termenv.Profile) *Renderer {
	r := lipgloss.NewRenderer(w)
	if len(profile) > 0 {
		r.SetColorProfile(profile[0])
	}
	return &Renderer{styles: DefaultStyles(r), IntraLine: true}
}

// NewWithStyles creates a Renderer with custom styles.
func NewWithStyles(styles Styles) *Renderer {
	return &Renderer{styles: styles, IntraLine: true}
}

func (r *Renderer) style(kind LineKind) (lipgloss.Style, bool) {
	switch kind {
	case Command:
		return r.styles.Command, true
	case FileHeader:
		return r.styles.FileHeader, true
	case HunkHeader:
		return r.styles.HunkHeader, true
	case Deleted:
		return r.styles.Deleted, true
	case Added:
		return r.styles.Added, true
	case Changed:
		return r.styles.Changed, true
	case Separator:
		return r.styles.Separator, true
	case Notice:
		return r.styles.Notice, true
	case Marker:
		return r.styles.Marker, true
	}
	return lipgloss.Style{}, false
}

// Report colors a complete report. Line terminators are kept as they are.
func (r *Renderer) Report(text string) string {
	lines := strings.SplitAfter(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	rendered := make([]string, len(lines))
	kinds := make([]LineKind, len(lines))
	for i, line := range lines {
		kinds[i] = Classify(strings.TrimRight(line, "\r\n"))
	}

	for i := 0; i < len(lines); {
		if kinds[i] != Deleted || !r.IntraLine {
			rendered[i] = r.line(lines[i], kinds[i])
			i++
			continue
		}
		// Deleted run, optional separator, added run.
		delStart := i
		for i < len(lines) && kinds[i] == Deleted {
			i++
		}
		delEnd := i
		if i < len(lines) && kinds[i] == Separator {
			rendered[i] = r.line(lines[i], Separator)
			i++
		}
		addStart := i
		for i < len(lines) && kinds[i] == Added {
			i++
		}
		addEnd := i
		pairs := min(delEnd-delStart, addEnd-addStart)
		for k := 0; k < pairs; k++ {
			rendered[delStart+k], rendered[addStart+k] = r.pair(lines[delStart+k], lines[addStart+k])
		}
		for k := delStart + pairs; k < delEnd; k++ {
			rendered[k] = r.line(lines[k], Deleted)
		}
		for k := addStart + pairs; k < addEnd; k++ {
			rendered[k] = r.line(lines[k], Added)
		}
	}
	return strings.Join(rendered, "")
}

func splitEOL(line string) (string, string) {
	body := strings.TrimRight(line, "\r\n")
	return body, line[len(body):]
}

func (r *Renderer) line(line string, kind LineKind) string {
	body, eol := splitEOL(line)
	style, ok := r.style(kind)
	if !ok || body == "" {
		return line
	}
	return style.Render(body) + eol
}

// pair renders a deleted and an added line with their differing spans
// emphasized. The one or two character prefix is styled with the line.
func (r *Renderer) pair(deleted, added string) (string, string) {
	oldBody, oldEOL := splitEOL(deleted)
	newBody, newEOL := splitEOL(added)
	oldPrefix, oldText := cutPrefix(oldBody)
	newPrefix, newText := cutPrefix(newBody)
	oldSpans, newSpans := Spans(oldText, newText)
	return r.spans(oldPrefix, oldSpans, r.styles.Deleted, r.styles.DeletedSpan) + oldEOL,
		r.spans(newPrefix, newSpans, r.styles.Added, r.styles.AddedSpan) + newEOL
}

// cutPrefix splits `< text` and `-text` lines into marker and text.
func cutPrefix(line string) (string, string) {
	if strings.HasPrefix(line, "< ") || strings.HasPrefix(line, "> ") {
		return line[:2], line[2:]
	}
	if line == "" {
		return "", ""
	}
	return line[:1], line[1:]
}

func (r *Renderer) spans(prefix string, spans []Span, lineStyle, spanStyle lipgloss.Style) string {
	var b strings.Builder
	b.WriteString(lineStyle.Render(prefix))
	for _, s := range spans {
		if s.Changed {
			b.WriteString(spanStyle.Render(s.Text))
		} else {
			b.WriteString(lineStyle.Render(s.Text))
		}
	}
	return b.String()
}
