package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/asynkron/hiertext/pkg/hunk"
	"github.com/asynkron/hiertext/pkg/lcs"
	"github.com/asynkron/hiertext/pkg/textdoc"
)

// Predicate decides whether a hunk is applied. index is the hunk's position
// in hunks and outLine the 0-based output line its replacement would start
// at. A hunk rejected by the predicate leaves its region untouched.
type Predicate func(h hunk.Hunk, index int, hunks hunk.Patch, outLine int) bool

// Options configure how hunks are applied.
type Options struct {
	Predicate Predicate
	// Verify requires the source region of every applied hunk to match the
	// hunk's deleted lines. Without it hunks are applied positionally.
	Verify bool
	// Reverse swaps the sides of every hunk before applying.
	Reverse bool
}

// Result describes the outcome for a single file when applying a patch.
type Result struct {
	Status string
	Path   string
	Hunks  []HunkStatus
}

// Apply replays patch against source and returns the patched lines.
func Apply(source []textdoc.Line, patch hunk.Patch, opts Options) ([]textdoc.Line, []HunkStatus, error) {
	return apply(source, patch, nil, opts)
}

// ApplyBytes applies a parsed file to raw document content.
func ApplyBytes(source []byte, file *File, opts Options) ([]byte, []HunkStatus, error) {
	if file == nil {
		return nil, nil, &Error{Code: CodeParse, Message: "patch: nil file"}
	}
	out, statuses, err := apply(textdoc.Split(source), file.Hunks, file.RawHunks, opts)
	if err != nil {
		return nil, statuses, err
	}
	return textdoc.Join(out), statuses, nil
}

func apply(source []textdoc.Line, patch hunk.Patch, raw [][]string, opts Options) ([]textdoc.Line, []HunkStatus, error) {
	if opts.Reverse {
		patch = patch.Reverse()
	}
	if err := patch.Validate(); err != nil {
		return nil, nil, &Error{Code: CodeParse, Message: "patch: " + err.Error()}
	}

	out := make([]textdoc.Line, 0, len(source))
	statuses := make([]HunkStatus, 0, len(patch))
	cursor := 0
	for index, h := range patch {
		number := index + 1
		if h.DelOnePast() > len(source) {
			statuses = append(statuses, HunkStatus{Number: number, Status: StatusRange})
			return nil, statuses, hunkError(CodeHunkOutOfRange,
				fmt.Sprintf("Hunk %d is out of range: the document has %d lines.", number, len(source)),
				source, h, number, raw, statuses)
		}

		out = append(out, source[cursor:h.DelStart]...)
		cursor = h.DelStart

		if opts.Predicate != nil && !opts.Predicate(h, index, patch, len(out)) {
			out = append(out, source[cursor:h.DelOnePast()]...)
			cursor = h.DelOnePast()
			statuses = append(statuses, HunkStatus{Number: number, Status: StatusSkipped})
			continue
		}

		if opts.Verify && !regionMatches(source[cursor:h.DelOnePast()], h.Deleted) {
			statuses = append(statuses, HunkStatus{Number: number, Status: StatusMismatch})
			return nil, statuses, hunkError(CodeHunkMismatch,
				fmt.Sprintf("Hunk %d does not match the document at line %d.", number, h.DelStart+1),
				source, h, number, raw, statuses)
		}

		out = append(out, h.Added...)
		cursor = h.DelOnePast()
		statuses = append(statuses, HunkStatus{Number: number, Status: StatusApplied})
	}
	out = append(out, source[cursor:]...)
	return out, statuses, nil
}

// regionMatches compares line text, ignoring terminators.
func regionMatches(region, expected []textdoc.Line) bool {
	if len(region) != len(expected) {
		return false
	}
	for i := range region {
		if region[i].Text != expected[i].Text {
			return false
		}
	}
	return true
}

func hunkError(code, message string, source []textdoc.Line, h hunk.Hunk, number int, raw [][]string, statuses []HunkStatus) *Error {
	var rawLines []string
	if number-1 < len(raw) {
		rawLines = append(rawLines, raw[number-1]...)
	} else {
		rawLines = describeHunk(h)
	}
	return &Error{
		Message:         message,
		Code:            code,
		Line:            h.DelStart + 1,
		OriginalContent: string(textdoc.Join(source)),
		HunkStatuses:    append([]HunkStatus(nil), statuses...),
		FailedHunk:      &FailedHunk{Number: number, RawPatchLines: rawLines},
	}
}

// describeHunk renders a hunk in normal format for error reports.
func describeHunk(h hunk.Hunk) []string {
	lines := []string{hunk.NormalHeader(h.Difference)}
	for _, l := range h.Deleted {
		lines = append(lines, "< "+l.Text)
	}
	if h.DelEnd != lcs.None && h.AddEnd != lcs.None {
		lines = append(lines, "---")
	}
	for _, l := range h.Added {
		lines = append(lines, "> "+l.Text)
	}
	return lines
}

// SelectHunks builds a predicate from a selection such as "1,3-4". Numbers
// are 1-based hunk positions.
func SelectHunks(selection string) (Predicate, error) {
	selected := map[int]bool{}
	for _, part := range strings.Split(selection, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || from < 1 {
			return nil, fmt.Errorf("patch: invalid hunk selection %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < from {
				return nil, fmt.Errorf("patch: invalid hunk selection %q", part)
			}
		}
		for n := from; n <= to; n++ {
			selected[n] = true
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("patch: empty hunk selection")
	}
	return func(_ hunk.Hunk, index int, _ hunk.Patch, _ int) bool {
		return selected[index+1]
	}, nil
}

func describeHunkStatuses(statuses []HunkStatus) string {
	if len(statuses) == 0 {
		return ""
	}
	var applied, skipped []string
	var failed string
	for _, status := range statuses {
		switch status.Status {
		case StatusApplied:
			applied = append(applied, strconv.Itoa(status.Number))
		case StatusSkipped:
			skipped = append(skipped, strconv.Itoa(status.Number))
		case StatusRange:
			if failed == "" {
				failed = fmt.Sprintf("Hunk %d is out of range.", status.Number)
			}
		default:
			if failed == "" {
				failed = fmt.Sprintf("No match for hunk %d.", status.Number)
			}
		}
	}

	parts := make([]string, 0, 3)
	if len(applied) > 0 {
		parts = append(parts, fmt.Sprintf("Hunks applied: %s.", strings.Join(applied, ", ")))
	}
	if len(skipped) > 0 {
		parts = append(parts, fmt.Sprintf("Hunks skipped: %s.", strings.Join(skipped, ", ")))
	}
	if failed != "" {
		parts = append(parts, failed)
	}
	return strings.Join(parts, "\n")
}

// FormatError renders Error values into a human readable message suitable for
// surfacing to end users.
func FormatError(err *Error) string {
	if err == nil {
		return "Unknown error occurred."
	}
	message := err.Message
	if message == "" {
		message = "Unknown error occurred."
	}
	if err.Code != CodeHunkMismatch && err.Code != CodeHunkOutOfRange {
		return message
	}
	relativePath := err.RelativePath
	if relativePath == "" {
		relativePath = "unknown file"
	}
	displayPath := relativePath
	if !strings.HasPrefix(displayPath, "./") && !strings.HasPrefix(displayPath, "/") {
		displayPath = "./" + displayPath
	}
	var parts []string
	parts = append(parts, message)
	if summary := describeHunkStatuses(err.HunkStatuses); summary != "" {
		parts = append(parts, "", summary)
	}
	if err.FailedHunk != nil && len(err.FailedHunk.RawPatchLines) > 0 {
		parts = append(parts, "", "Offending hunk:")
		parts = append(parts, strings.Join(err.FailedHunk.RawPatchLines, "\n"))
	}
	if err.OriginalContent != "" {
		parts = append(parts, "", fmt.Sprintf("Full content of file: %s::::", displayPath), err.OriginalContent)
	}
	return strings.Join(parts, "\n")
}
