package hunk

import (
	"bufio"
	"io"
	"strconv"

	"github.com/asynkron/hiertext/pkg/lcs"
	"github.com/asynkron/hiertext/pkg/textdoc"
)

// NoNewlineMarker follows a line that has no terminator.
const NoNewlineMarker = `\ No newline at end of file`

// ChunkSeparator opens every chunk of context output.
const ChunkSeparator = "***************"

// DefaultContext is the conventional number of context lines.
const DefaultContext = 3

// Formatter renders differences in one of the three grammars.
type Formatter struct {
	Format  Format
	Context int
	// FullRanges prints one-line context and unified ranges as 3,3 and
	// -3,1 instead of the short 3 and -3.
	FullRanges bool
}

// Write renders diffs between left and right to w.
func (f Formatter) Write(w io.Writer, left, right []textdoc.Line, diffs []lcs.Difference) error {
	out := newPrinter(w)
	switch f.Format {
	case Context:
		for _, chunk := range Chunks(diffs, f.Context) {
			writeContextChunk(out, chunk, f.Context, f.FullRanges, left, right)
		}
	case Unified:
		for _, chunk := range Chunks(diffs, f.Context) {
			writeUnifiedChunk(out, chunk, f.Context, f.FullRanges, left, right)
		}
	default:
		for _, d := range diffs {
			writeNormal(out, d, left, right)
		}
	}
	return out.flush()
}

// WriteHeader writes the file header lines that precede context and unified
// output. Normal output has no header.
func (f Formatter) WriteHeader(w io.Writer, leftName, rightName string) error {
	out := newPrinter(w)
	switch f.Format {
	case Context:
		out.str("*** " + leftName + "\n")
		out.str("--- " + rightName + "\n")
	case Unified:
		out.str("--- " + leftName + "\n")
		out.str("+++ " + rightName + "\n")
	}
	return out.flush()
}

type printer struct {
	w   *bufio.Writer
	err error
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: bufio.NewWriter(w)}
}

func (p *printer) str(s string) {
	if p.err != nil {
		return
	}
	_, p.err = p.w.WriteString(s)
}

// line writes prefix and line with its own terminator, adding the marker
// line when the terminator is missing.
func (p *printer) line(prefix string, l textdoc.Line) {
	p.str(prefix)
	p.str(l.Text)
	if l.EOL == "" {
		p.str("\n" + NoNewlineMarker + "\n")
		return
	}
	p.str(l.EOL)
}

func (p *printer) flush() error {
	if p.err != nil {
		return p.err
	}
	return p.w.Flush()
}

// normalRange prints a side of a normal header: the insertion point for an
// empty side, otherwise the 1-based inclusive range.
func normalRange(start, end int) string {
	if end == lcs.None {
		return strconv.Itoa(start)
	}
	if start == end {
		return strconv.Itoa(start + 1)
	}
	return strconv.Itoa(start+1) + "," + strconv.Itoa(end+1)
}

func normalOp(d lcs.Difference) string {
	switch {
	case d.IsAddition():
		return "a"
	case d.IsDeletion():
		return "d"
	default:
		return "c"
	}
}

// NormalHeader returns the normal format header of d, such as "2a3".
func NormalHeader(d lcs.Difference) string {
	return normalRange(d.DelStart, d.DelEnd) + normalOp(d) + normalRange(d.AddStart, d.AddEnd)
}

func writeNormal(out *printer, d lcs.Difference, left, right []textdoc.Line) {
	out.str(NormalHeader(d) + "\n")
	if d.DelEnd != lcs.None {
		for _, l := range left[d.DelStart : d.DelEnd+1] {
			out.line("< ", l)
		}
	}
	if d.IsChange() {
		out.str("---\n")
	}
	if d.AddEnd != lcs.None {
		for _, l := range right[d.AddStart : d.AddEnd+1] {
			out.line("> ", l)
		}
	}
}

// contextRange prints a context side header range: the line before an
// empty range, a single number for one line unless full is set, else
// first,last.
func contextRange(r Range, full bool) string {
	switch {
	case r.Len() == 0:
		return strconv.Itoa(r.Start)
	case r.Len() == 1 && !full:
		return strconv.Itoa(r.Start + 1)
	}
	return strconv.Itoa(r.Start+1) + "," + strconv.Itoa(r.End+1)
}

// unifiedRange prints a unified side header: start,0 for an empty range, a
// single number for one line unless full is set, else start,count.
func unifiedRange(start, count int, full bool) string {
	switch {
	case count == 0:
		return strconv.Itoa(start) + ",0"
	case count == 1 && !full:
		return strconv.Itoa(start + 1)
	}
	return strconv.Itoa(start+1) + "," + strconv.Itoa(count)
}

func writeContextChunk(out *printer, chunk []lcs.Difference, context int, full bool, left, right []textdoc.Line) {
	lw, rw := Window(chunk, context, len(left), len(right))
	out.str(ChunkSeparator + "\n")

	out.str("*** " + contextRange(lw, full) + " ****\n")
	k := 0
	for i := lw.Start; i <= lw.End; i++ {
		for k < len(chunk) && chunk[k].DelOnePast() <= i {
			k++
		}
		prefix := "  "
		if k < len(chunk) && chunk[k].DelEnd != lcs.None && i >= chunk[k].DelStart {
			prefix = "- "
			if chunk[k].IsChange() {
				prefix = "! "
			}
		}
		out.line(prefix, left[i])
	}

	out.str("--- " + contextRange(rw, full) + " ----\n")
	k = 0
	for j := rw.Start; j <= rw.End; j++ {
		for k < len(chunk) && chunk[k].AddOnePast() <= j {
			k++
		}
		prefix := "  "
		if k < len(chunk) && chunk[k].AddEnd != lcs.None && j >= chunk[k].AddStart {
			prefix = "+ "
			if chunk[k].IsChange() {
				prefix = "! "
			}
		}
		out.line(prefix, right[j])
	}
}

type unifiedLine struct {
	prefix string
	line   textdoc.Line
}

func writeUnifiedChunk(out *printer, chunk []lcs.Difference, context int, full bool, left, right []textdoc.Line) {
	lw, rw := Window(chunk, context, len(left), len(right))

	var body []unifiedLine
	leftCount, rightCount := 0, 0
	i := lw.Start
	for _, d := range chunk {
		for ; i < d.DelStart; i++ {
			body = append(body, unifiedLine{" ", left[i]})
			leftCount++
			rightCount++
		}
		if d.DelEnd != lcs.None {
			for ; i <= d.DelEnd; i++ {
				body = append(body, unifiedLine{"-", left[i]})
				leftCount++
			}
		}
		if d.AddEnd != lcs.None {
			for j := d.AddStart; j <= d.AddEnd; j++ {
				body = append(body, unifiedLine{"+", right[j]})
				rightCount++
			}
		}
		i = d.DelOnePast()
	}
	for ; i <= lw.End; i++ {
		body = append(body, unifiedLine{" ", left[i]})
		leftCount++
		rightCount++
	}

	out.str("@@ -" + unifiedRange(lw.Start, leftCount, full) + " +" + unifiedRange(rw.Start, rightCount, full) + " @@\n")
	for _, ul := range body {
		out.line(ul.prefix, ul.line)
	}
}
