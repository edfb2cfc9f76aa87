package patch

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/asynkron/hiertext/pkg/hunk"
	"github.com/asynkron/hiertext/pkg/lcs"
	"github.com/asynkron/hiertext/pkg/textdoc"
)

var (
	unifiedHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
	contextLeft   = regexp.MustCompile(`^\*\*\* (\d+)(?:,(\d+))? \*\*\*\*`)
	contextRight  = regexp.MustCompile(`^--- (\d+)(?:,(\d+))? ----`)
	normalHeader  = regexp.MustCompile(`^(\d+)(?:,(\d+))?([acd])(\d+)(?:,(\d+))?$`)
)

// File is one parsed differential.
type File struct {
	OldName string
	NewName string
	Format  hunk.Format
	Hunks   hunk.Patch
	// RawHunks holds, for every hunk, the patch lines of the chunk it was
	// parsed from.
	RawHunks [][]string
}

// Parse reads a patch and returns its first differential.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("patch: read input: %w", err)
	}
	return ParseBytes(data)
}

// ParseWithCharset decodes the patch from charset before parsing it.
func ParseWithCharset(r io.Reader, charset string) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("patch: read input: %w", err)
	}
	decoded, err := textdoc.Decode(data, charset)
	if err != nil {
		return nil, &Error{Code: CodeParse, Message: err.Error()}
	}
	return ParseBytes(decoded)
}

// ParseString parses patch text held in memory.
func ParseString(input string) (*File, error) {
	return ParseBytes([]byte(input))
}

// ParseBytes parses the first differential of data. Any malformed hunk is a
// fatal *Error with code PARSE_ERROR.
func ParseBytes(data []byte) (*File, error) {
	p := &parser{lines: textdoc.Split(data)}
	return p.parse()
}

type parser struct {
	lines []textdoc.Line
	pos   int
	file  File
}

func (p *parser) errorf(line int, format string, args ...any) *Error {
	return &Error{
		Code:    CodeParse,
		Line:    line + 1,
		Message: fmt.Sprintf("patch: line %d: %s", line+1, fmt.Sprintf(format, args...)),
	}
}

func (p *parser) text(offset int) (string, bool) {
	if p.pos+offset >= len(p.lines) {
		return "", false
	}
	return p.lines[p.pos+offset].Text, true
}

func (p *parser) parse() (*File, error) {
	for p.pos < len(p.lines) {
		text := p.lines[p.pos].Text
		next, hasNext := p.text(1)
		switch {
		case strings.HasPrefix(text, "diff "):
			p.file.OldName, p.file.NewName = "", ""
		case strings.HasPrefix(text, "--- ") && hasNext && strings.HasPrefix(next, "+++ "):
			p.file.OldName, p.file.NewName = headerName(text[4:]), headerName(next[4:])
			p.pos += 2
			continue
		case strings.HasPrefix(text, "*** ") && !contextLeft.MatchString(text) &&
			hasNext && strings.HasPrefix(next, "--- ") && !contextRight.MatchString(next):
			p.file.OldName, p.file.NewName = headerName(text[4:]), headerName(next[4:])
			p.pos += 2
			continue
		case strings.HasPrefix(text, "@@"):
			p.file.Format = hunk.Unified
			return p.parseChunks(isUnifiedStart, p.parseUnified)
		case strings.HasPrefix(text, hunk.ChunkSeparator):
			p.file.Format = hunk.Context
			return p.parseChunks(isContextStart, p.parseContext)
		case normalHeader.MatchString(text):
			p.file.Format = hunk.Normal
			return p.parseChunks(isNormalStart, p.parseNormal)
		}
		p.pos++
	}
	return nil, &Error{Code: CodeParse, Message: "patch: no differential found"}
}

func isUnifiedStart(text string) bool { return strings.HasPrefix(text, "@@") }
func isContextStart(text string) bool { return strings.HasPrefix(text, hunk.ChunkSeparator) }
func isNormalStart(text string) bool  { return normalHeader.MatchString(text) }

func (p *parser) parseChunks(isStart func(string) bool, chunk func() ([]hunk.Hunk, error)) (*File, error) {
	for p.pos < len(p.lines) && isStart(p.lines[p.pos].Text) {
		start := p.pos
		hunks, err := chunk()
		if err != nil {
			return nil, err
		}
		raw := textdoc.Texts(p.lines[start:p.pos])
		for _, h := range hunks {
			p.file.Hunks = append(p.file.Hunks, h)
			p.file.RawHunks = append(p.file.RawHunks, raw)
		}
	}
	if err := p.file.Hunks.Validate(); err != nil {
		return nil, &Error{Code: CodeParse, Message: "patch: " + err.Error()}
	}
	return &p.file, nil
}

// headerName drops the tab separated timestamp of a file header.
func headerName(s string) string {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func content(l textdoc.Line, prefix int) textdoc.Line {
	text := ""
	if len(l.Text) > prefix {
		text = l.Text[prefix:]
	}
	return textdoc.Line{Text: text, EOL: l.EOL, Key: textdoc.Key{Text: text, EOL: l.EOL}}
}

func stripEOL(l *textdoc.Line) {
	l.EOL = ""
	l.Key.EOL = ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// builder turns a walk over context, deleted and added lines into hunks.
type builder struct {
	i, j  int
	cur   *hunk.Hunk
	last  *textdoc.Line
	hunks []hunk.Hunk
}

func (b *builder) open() {
	if b.cur == nil {
		b.cur = &hunk.Hunk{Difference: lcs.Difference{DelStart: b.i, DelEnd: lcs.None, AddStart: b.j, AddEnd: lcs.None}}
	}
}

func (b *builder) close() {
	if b.cur == nil {
		return
	}
	h := *b.cur
	if n := len(h.Deleted); n > 0 {
		h.DelEnd = h.DelStart + n - 1
	}
	if n := len(h.Added); n > 0 {
		h.AddEnd = h.AddStart + n - 1
	}
	b.hunks = append(b.hunks, h)
	b.cur = nil
}

func (b *builder) context() {
	b.close()
	b.last = nil
	b.i++
	b.j++
}

func (b *builder) del(l textdoc.Line) {
	b.open()
	b.cur.Deleted = append(b.cur.Deleted, l)
	b.last = &b.cur.Deleted[len(b.cur.Deleted)-1]
	b.i++
}

func (b *builder) add(l textdoc.Line) {
	b.open()
	b.cur.Added = append(b.cur.Added, l)
	b.last = &b.cur.Added[len(b.cur.Added)-1]
	b.j++
}

func (b *builder) noNewline() {
	if b.last != nil {
		stripEOL(b.last)
	}
}

func (p *parser) parseUnified() ([]hunk.Hunk, error) {
	header := p.lines[p.pos].Text
	m := unifiedHeader.FindStringSubmatch(header)
	if m == nil {
		return nil, p.errorf(p.pos, "malformed unified hunk header %q", header)
	}
	leftStart, leftCount, err := unifiedSide(m[1], m[2])
	if err != nil {
		return nil, p.errorf(p.pos, "%v", err)
	}
	rightStart, rightCount, err := unifiedSide(m[3], m[4])
	if err != nil {
		return nil, p.errorf(p.pos, "%v", err)
	}
	p.pos++

	b := builder{i: leftStart, j: rightStart}
	for leftCount > 0 || rightCount > 0 {
		if p.pos >= len(p.lines) {
			return nil, p.errorf(p.pos-1, "hunk ends early: %d deleted and %d added lines missing", leftCount, rightCount)
		}
		line := p.lines[p.pos]
		switch {
		case line.Text == hunk.NoNewlineMarker:
			b.noNewline()
		case line.Text == "" || line.Text[0] == ' ':
			if leftCount == 0 || rightCount == 0 {
				return nil, p.errorf(p.pos, "context line exceeds the declared range")
			}
			b.context()
			leftCount--
			rightCount--
		case line.Text[0] == '-':
			if leftCount == 0 {
				return nil, p.errorf(p.pos, "deleted line exceeds the declared range")
			}
			b.del(content(line, 1))
			leftCount--
		case line.Text[0] == '+':
			if rightCount == 0 {
				return nil, p.errorf(p.pos, "added line exceeds the declared range")
			}
			b.add(content(line, 1))
			rightCount--
		default:
			return nil, p.errorf(p.pos, "unexpected line %q in unified hunk", line.Text)
		}
		p.pos++
	}
	if text, ok := p.text(0); ok && text == hunk.NoNewlineMarker {
		b.noNewline()
		p.pos++
	}
	b.close()
	return b.hunks, nil
}

// unifiedSide converts a unified header side into a 0-based start and count.
func unifiedSide(startText, countText string) (int, int, error) {
	start := atoi(startText)
	count := 1
	if countText != "" {
		count = atoi(countText)
	}
	if count == 0 {
		return start, 0, nil
	}
	if start == 0 {
		return 0, 0, fmt.Errorf("range starting at line 0 cannot hold %d lines", count)
	}
	return start - 1, count, nil
}

type sideLine struct {
	mark byte
	line textdoc.Line
}

type contextRange struct {
	start  int
	count  int
	single bool
}

func parseContextRange(m []string) (contextRange, error) {
	r := contextRange{start: atoi(m[1]), count: 1, single: m[2] == ""}
	if !r.single {
		end := atoi(m[2])
		if end < r.start {
			return r, fmt.Errorf("range %s,%s ends before it starts", m[1], m[2])
		}
		r.count = end - r.start + 1
	}
	return r, nil
}

// contextMark returns the marker of a context format content line.
func contextMark(text, allowed string) (byte, bool) {
	if text == "" {
		return ' ', true
	}
	if len(text) < 2 || text[1] != ' ' || !strings.ContainsRune(allowed, rune(text[0])) {
		return 0, false
	}
	return text[0], true
}

func (p *parser) parseContext() ([]hunk.Hunk, error) {
	p.pos++
	text, ok := p.text(0)
	m := contextLeft.FindStringSubmatch(text)
	if !ok || m == nil {
		return nil, p.errorf(p.pos, "expected *** range line, found %q", text)
	}
	leftRange, err := parseContextRange(m)
	if err != nil {
		return nil, p.errorf(p.pos, "%v", err)
	}
	p.pos++

	var left []sideLine
	for {
		text, ok := p.text(0)
		if !ok {
			return nil, p.errorf(p.pos-1, "missing --- range line")
		}
		if contextRight.MatchString(text) {
			break
		}
		if text == hunk.NoNewlineMarker {
			if n := len(left); n > 0 {
				stripEOL(&left[n-1].line)
			}
			p.pos++
			continue
		}
		mark, ok := contextMark(text, " -!")
		if !ok {
			return nil, p.errorf(p.pos, "unexpected line %q in context hunk", text)
		}
		left = append(left, sideLine{mark: mark, line: content(p.lines[p.pos], 2)})
		p.pos++
	}

	rightRange, err := parseContextRange(contextRight.FindStringSubmatch(p.lines[p.pos].Text))
	if err != nil {
		return nil, p.errorf(p.pos, "%v", err)
	}
	p.pos++

	var right []sideLine
	for {
		text, ok := p.text(0)
		if !ok {
			break
		}
		if text == hunk.NoNewlineMarker {
			if n := len(right); n > 0 {
				stripEOL(&right[n-1].line)
			}
			p.pos++
			continue
		}
		if len(right) == rightRange.count {
			break
		}
		mark, ok := contextMark(text, " +!")
		if !ok {
			break
		}
		right = append(right, sideLine{mark: mark, line: content(p.lines[p.pos], 2)})
		p.pos++
	}

	leftLines, leftStart, err := resolveSide(left, leftRange, right)
	if err != nil {
		return nil, p.errorf(p.pos-1, "old side: %v", err)
	}
	rightLines, rightStart, err := resolveSide(right, rightRange, left)
	if err != nil {
		return nil, p.errorf(p.pos-1, "new side: %v", err)
	}
	if len(leftLines) == 0 && len(rightLines) == 0 {
		return nil, p.errorf(p.pos-1, "empty context hunk")
	}

	b := builder{i: leftStart, j: rightStart}
	li, ri := 0, 0
	for li < len(leftLines) || ri < len(rightLines) {
		if li < len(leftLines) && ri < len(rightLines) && leftLines[li].mark == ' ' && rightLines[ri].mark == ' ' {
			b.context()
			li++
			ri++
			continue
		}
		moved := false
		for ; li < len(leftLines) && leftLines[li].mark != ' '; li++ {
			b.del(leftLines[li].line)
			moved = true
		}
		for ; ri < len(rightLines) && rightLines[ri].mark != ' '; ri++ {
			b.add(rightLines[ri].line)
			moved = true
		}
		if !moved {
			return nil, p.errorf(p.pos-1, "context lines of both sides do not line up")
		}
	}
	b.close()
	return b.hunks, nil
}

// resolveSide validates one side of a context chunk. A side printed without
// lines is either an empty range or was omitted because it only holds
// context, in which case it is rebuilt from the other side's context lines.
func resolveSide(side []sideLine, r contextRange, other []sideLine) ([]sideLine, int, error) {
	if len(side) > 0 {
		if len(side) != r.count {
			return nil, 0, fmt.Errorf("declared %d lines, found %d", r.count, len(side))
		}
		return side, r.start - 1, nil
	}
	var shared []sideLine
	for _, sl := range other {
		if sl.mark == ' ' {
			shared = append(shared, sl)
		}
	}
	if r.single && len(shared) == 0 {
		return nil, r.start, nil
	}
	if len(shared) == r.count && r.start > 0 {
		return shared, r.start - 1, nil
	}
	return nil, 0, fmt.Errorf("declared %d lines, found none", r.count)
}

func (p *parser) parseNormal() ([]hunk.Hunk, error) {
	header := p.lines[p.pos].Text
	m := normalHeader.FindStringSubmatch(header)
	l1, r1 := atoi(m[1]), atoi(m[4])
	l2, r2 := l1, r1
	if m[2] != "" {
		l2 = atoi(m[2])
	}
	if m[5] != "" {
		r2 = atoi(m[5])
	}
	op := m[3]

	d := lcs.Difference{DelStart: l1 - 1, DelEnd: l2 - 1, AddStart: r1 - 1, AddEnd: r2 - 1}
	switch op {
	case "a":
		if m[2] != "" {
			return nil, p.errorf(p.pos, "addition header %q has a range on the old side", header)
		}
		d.DelStart, d.DelEnd = l1, lcs.None
	case "d":
		if m[5] != "" {
			return nil, p.errorf(p.pos, "deletion header %q has a range on the new side", header)
		}
		d.AddStart, d.AddEnd = r1, lcs.None
	}
	if (d.DelEnd != lcs.None && (l1 == 0 || l2 < l1)) || (d.AddEnd != lcs.None && (r1 == 0 || r2 < r1)) {
		return nil, p.errorf(p.pos, "malformed range in %q", header)
	}
	p.pos++

	h := hunk.Hunk{Difference: d}
	var err error
	if h.Deleted, err = p.readPrefixed("< ", d.DelCount()); err != nil {
		return nil, err
	}
	if op == "c" {
		if text, ok := p.text(0); !ok || text != "---" {
			return nil, p.errorf(p.pos, "expected --- separator, found %q", text)
		}
		p.pos++
	}
	if h.Added, err = p.readPrefixed("> ", d.AddCount()); err != nil {
		return nil, err
	}
	return []hunk.Hunk{h}, nil
}

func (p *parser) readPrefixed(prefix string, n int) ([]textdoc.Line, error) {
	var out []textdoc.Line
	bare := strings.TrimSpace(prefix)
	for len(out) < n {
		if p.pos >= len(p.lines) {
			return nil, p.errorf(p.pos-1, "hunk ends early: %d %q lines missing", n-len(out), prefix)
		}
		line := p.lines[p.pos]
		switch {
		case line.Text == hunk.NoNewlineMarker && len(out) > 0:
			stripEOL(&out[len(out)-1])
		case strings.HasPrefix(line.Text, prefix):
			out = append(out, content(line, len(prefix)))
		case line.Text == bare:
			out = append(out, content(line, len(bare)))
		default:
			return nil, p.errorf(p.pos, "expected %q line, found %q", prefix, line.Text)
		}
		p.pos++
	}
	if text, ok := p.text(0); ok && text == hunk.NoNewlineMarker && len(out) > 0 {
		stripEOL(&out[len(out)-1])
		p.pos++
	}
	return out, nil
}
