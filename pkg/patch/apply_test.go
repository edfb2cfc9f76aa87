package patch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/asynkron/hiertext/pkg/docdiff"
	"github.com/asynkron/hiertext/pkg/hunk"
)

const twoHunks = "@@ -2 +2 @@\n-b\n+B\n@@ -4 +4 @@\n-d\n+D\n"

func mustParse(t *testing.T, input string) *File {
	t.Helper()
	file, err := ParseString(input)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	return file
}

func TestApplyPositional(t *testing.T) {
	t.Parallel()

	out, statuses, err := ApplyBytes([]byte("a\nb\nc\nd\n"), mustParse(t, twoHunks), Options{})
	if err != nil {
		t.Fatalf("ApplyBytes returned error: %v", err)
	}
	if string(out) != "a\nB\nc\nD\n" {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(statuses) != 2 || statuses[0].Status != StatusApplied || statuses[1].Status != StatusApplied {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}
}

func TestApplyWithoutVerifyIgnoresContent(t *testing.T) {
	t.Parallel()

	out, _, err := ApplyBytes([]byte("a\nzzz\nc\nd\n"), mustParse(t, twoHunks), Options{})
	if err != nil {
		t.Fatalf("ApplyBytes returned error: %v", err)
	}
	if string(out) != "a\nB\nc\nD\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestApplyPredicateSkipsHunks(t *testing.T) {
	t.Parallel()

	pred, err := SelectHunks("2")
	if err != nil {
		t.Fatalf("SelectHunks returned error: %v", err)
	}
	out, statuses, err := ApplyBytes([]byte("a\nb\nc\nd\n"), mustParse(t, twoHunks), Options{Predicate: pred})
	if err != nil {
		t.Fatalf("ApplyBytes returned error: %v", err)
	}
	if string(out) != "a\nb\nc\nD\n" {
		t.Fatalf("unexpected output: %q", out)
	}
	if statuses[0].Status != StatusSkipped || statuses[1].Status != StatusApplied {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}
}

func TestApplyPredicateSeesOutputLine(t *testing.T) {
	t.Parallel()

	file := mustParse(t, "@@ -1,0 +2,2 @@\n+x\n+y\n@@ -3 +5 @@\n-c\n+C\n")
	var seen []string
	pred := func(h hunk.Hunk, index int, hunks hunk.Patch, outLine int) bool {
		seen = append(seen, fmt.Sprintf("%d/%d@%d", index, len(hunks), outLine))
		return true
	}
	out, _, err := ApplyBytes([]byte("a\nb\nc\n"), file, Options{Predicate: pred})
	if err != nil {
		t.Fatalf("ApplyBytes returned error: %v", err)
	}
	if string(out) != "a\nx\ny\nb\nC\n" {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Join(seen, " ") != "0/2@1 1/2@4" {
		t.Fatalf("unexpected predicate calls: %v", seen)
	}
}

func TestApplyVerifyMismatch(t *testing.T) {
	t.Parallel()

	_, statuses, err := ApplyBytes([]byte("a\nb\nc\nX\n"), mustParse(t, twoHunks), Options{Verify: true})
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if pe.Code != CodeHunkMismatch || pe.Line != 4 {
		t.Fatalf("unexpected error: %+v", pe)
	}
	if pe.FailedHunk == nil || pe.FailedHunk.Number != 2 || pe.FailedHunk.RawPatchLines[0] != "@@ -4 +4 @@" {
		t.Fatalf("unexpected failed hunk: %+v", pe.FailedHunk)
	}
	if len(statuses) != 2 || statuses[1].Status != StatusMismatch {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}
}

func TestApplyVerifyIgnoresTerminators(t *testing.T) {
	t.Parallel()

	out, _, err := ApplyBytes([]byte("a\r\nb\r\nc\r\nd\r\n"), mustParse(t, twoHunks), Options{Verify: true})
	if err != nil {
		t.Fatalf("ApplyBytes returned error: %v", err)
	}
	if string(out) != "a\r\nB\nc\r\nD\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestApplyOutOfRange(t *testing.T) {
	t.Parallel()

	_, _, err := ApplyBytes([]byte("a\nb\n"), mustParse(t, "@@ -3 +3 @@\n-c\n+C\n"), Options{})
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != CodeHunkOutOfRange {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestApplyReverse(t *testing.T) {
	t.Parallel()

	out, _, err := ApplyBytes([]byte("a\nB\nc\nD\n"), mustParse(t, twoHunks), Options{Reverse: true, Verify: true})
	if err != nil {
		t.Fatalf("ApplyBytes returned error: %v", err)
	}
	if string(out) != "a\nb\nc\nd\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSelectHunksRejectsBadInput(t *testing.T) {
	t.Parallel()

	for _, selection := range []string{"", "0", "3-1", "x", "1,,-"} {
		if _, err := SelectHunks(selection); err == nil {
			t.Fatalf("expected error for selection %q", selection)
		}
	}
	pred, err := SelectHunks(" 1, 3-4 ")
	if err != nil {
		t.Fatalf("SelectHunks returned error: %v", err)
	}
	for index, want := range []bool{true, false, true, true, false} {
		if got := pred(hunk.Hunk{}, index, nil, 0); got != want {
			t.Fatalf("hunk %d: got %v want %v", index+1, got, want)
		}
	}
}

var roundTripCases = []struct {
	name  string
	left  string
	right string
}{
	{"scenario", "---\n---\n---\n---\nDELETED LINE\n---\n---\nCHANGD LINE\n---\n---\n", "---\n---\nADDED LINE\n---\n---\n---\n---\nCHANGED LINE\n---\n---\n"},
	{"from empty", "", "x\ny\n"},
	{"to empty", "x\ny\n", ""},
	{"unterminated", "a\nb\nc", "a\nb\nC"},
	{"terminator added", "a\nb", "a\nb\n"},
	{"crlf", "one\r\ntwo\r\nthree\r\n", "one\r\n2\r\nthree\r\nfour\r\n"},
	{"far apart", "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n13\n14\n", "0\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n13\n14\nend\n"},
}

func TestRenderParseApplyRoundTrip(t *testing.T) {
	t.Parallel()

	for _, format := range []hunk.Format{hunk.Normal, hunk.Context, hunk.Unified} {
		for _, ctx := range []int{0, 3} {
			for _, tc := range roundTripCases {
				format, ctx, tc := format, ctx, tc
				t.Run(fmt.Sprintf("%s/%d/%s", format, ctx, tc.name), func(t *testing.T) {
					t.Parallel()

					result, err := docdiff.CompareBytes("left", []byte(tc.left), "right", []byte(tc.right), docdiff.Options{})
					if err != nil {
						t.Fatalf("CompareBytes returned error: %v", err)
					}
					var buf bytes.Buffer
					if err := result.Render(&buf, hunk.Formatter{Format: format, Context: ctx}, true); err != nil {
						t.Fatalf("Render returned error: %v", err)
					}
					file, err := ParseString(buf.String())
					if err != nil {
						t.Fatalf("ParseString returned error: %v\n%s", err, buf.String())
					}
					if file.Format != format {
						t.Fatalf("parsed format %v, rendered %v", file.Format, format)
					}

					out, _, err := ApplyBytes([]byte(tc.left), file, Options{Verify: true})
					if err != nil {
						t.Fatalf("ApplyBytes returned error: %v\n%s", err, buf.String())
					}
					if string(out) != tc.right {
						t.Fatalf("forward round trip: got %q want %q\n%s", out, tc.right, buf.String())
					}

					back, _, err := ApplyBytes([]byte(tc.right), file, Options{Verify: true, Reverse: true})
					if err != nil {
						t.Fatalf("reverse ApplyBytes returned error: %v", err)
					}
					if string(back) != tc.left {
						t.Fatalf("reverse round trip: got %q want %q", back, tc.left)
					}
				})
			}
		}
	}
}

func TestUnifiedOutputAppliesWithGitDiff(t *testing.T) {
	t.Parallel()

	left := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"
	right := "1\n2\n3\n4\nfive\n6\n7\n8\n10\n"
	result, err := docdiff.CompareBytes("a/x.txt", []byte(left), "b/x.txt", []byte(right), docdiff.Options{})
	if err != nil {
		t.Fatalf("CompareBytes returned error: %v", err)
	}
	var body bytes.Buffer
	if err := result.Render(&body, hunk.Formatter{Format: hunk.Unified, Context: 3}, true); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	diffText := "diff --git a/x.txt b/x.txt\n" + body.String()
	files, _, err := gitdiff.Parse(strings.NewReader(diffText))
	if err != nil {
		t.Fatalf("gitdiff.Parse returned error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one file, got %d", len(files))
	}
	var buf bytes.Buffer
	if err := gitdiff.Apply(&buf, strings.NewReader(left), files[0]); err != nil {
		t.Fatalf("gitdiff.Apply returned error: %v", err)
	}
	if buf.String() != right {
		t.Fatalf("unexpected gitdiff output: %q", buf.String())
	}

	file, err := ParseString(diffText)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if file.Target(1) != "x.txt" {
		t.Fatalf("unexpected target %q", file.Target(1))
	}
}

func TestFullRangesParseAndApply(t *testing.T) {
	t.Parallel()

	left, right := "a\nb\nc\n", "a\nB\nc\nd\n"
	for _, format := range []hunk.Format{hunk.Context, hunk.Unified} {
		result, err := docdiff.CompareBytes("left", []byte(left), "right", []byte(right), docdiff.Options{})
		if err != nil {
			t.Fatalf("CompareBytes returned error: %v", err)
		}
		var buf bytes.Buffer
		if err := result.Render(&buf, hunk.Formatter{Format: format, FullRanges: true}, true); err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		file, err := ParseString(buf.String())
		if err != nil {
			t.Fatalf("ParseString returned error: %v\n%s", err, buf.String())
		}
		out, _, err := ApplyBytes([]byte(left), file, Options{Verify: true})
		if err != nil {
			t.Fatalf("ApplyBytes returned error: %v\n%s", err, buf.String())
		}
		if string(out) != right {
			t.Fatalf("%s: got %q want %q\n%s", format, out, right, buf.String())
		}
	}
}
