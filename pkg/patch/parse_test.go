package patch

import (
	"errors"
	"strings"
	"testing"

	"github.com/asynkron/hiertext/pkg/hunk"
	"github.com/asynkron/hiertext/pkg/lcs"
	"github.com/asynkron/hiertext/pkg/textdoc"
)

func TestParseNormalScenario(t *testing.T) {
	t.Parallel()

	file, err := ParseString("2a3\n> ADDED LINE\n5d5\n< DELETED LINE\n8c8\n< CHANGD LINE\n---\n> CHANGED LINE\n")
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if file.Format != hunk.Normal {
		t.Fatalf("unexpected format: %v", file.Format)
	}
	want := []lcs.Difference{
		{DelStart: 2, DelEnd: lcs.None, AddStart: 2, AddEnd: 2},
		{DelStart: 4, DelEnd: 4, AddStart: 5, AddEnd: lcs.None},
		{DelStart: 7, DelEnd: 7, AddStart: 7, AddEnd: 7},
	}
	got := file.Hunks.Differences()
	if len(got) != len(want) {
		t.Fatalf("unexpected hunk count: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hunk %d: got %v want %v", i+1, got[i], want[i])
		}
	}
	if text := file.Hunks[2].Added[0].Text; text != "CHANGED LINE" {
		t.Fatalf("unexpected added text: %q", text)
	}
}

func TestParseUnifiedSplitsChunkIntoHunks(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"diff -u a/f.txt b/f.txt",
		"--- a/f.txt\t2024-01-01 00:00:00",
		"+++ b/f.txt\t2024-01-02 00:00:00",
		"@@ -1,5 +1,4 @@",
		" 1",
		"-2",
		"+two",
		" 3",
		"-4",
		" 5",
		"",
	}, "\n")
	file, err := ParseString(input)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if file.OldName != "a/f.txt" || file.NewName != "b/f.txt" {
		t.Fatalf("unexpected names: %q %q", file.OldName, file.NewName)
	}
	if len(file.Hunks) != 2 {
		t.Fatalf("expected 2 hunks, got %d", len(file.Hunks))
	}
	if d := file.Hunks[1].Difference; d != (lcs.Difference{DelStart: 3, DelEnd: 3, AddStart: 3, AddEnd: lcs.None}) {
		t.Fatalf("unexpected second hunk: %v", d)
	}
	if len(file.RawHunks[1]) != 7 {
		t.Fatalf("raw hunk lines not captured: %#v", file.RawHunks[1])
	}
	if file.Target(1) != "f.txt" {
		t.Fatalf("unexpected target: %q", file.Target(1))
	}
}

func TestParseContextOmittedSide(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"*** a.txt",
		"--- b.txt",
		"***************",
		"*** 1,2 ****",
		"--- 1,3 ----",
		"  a",
		"+ x",
		"  b",
		"",
	}, "\n")
	file, err := ParseString(input)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if file.Format != hunk.Context || file.OldName != "a.txt" {
		t.Fatalf("unexpected file: %+v", file)
	}
	want := lcs.Difference{DelStart: 1, DelEnd: lcs.None, AddStart: 1, AddEnd: 1}
	if len(file.Hunks) != 1 || file.Hunks[0].Difference != want {
		t.Fatalf("unexpected hunks: %+v", file.Hunks)
	}
}

func TestParseNoNewlineMarker(t *testing.T) {
	t.Parallel()

	input := "@@ -1,2 +1,2 @@\n a\n-b\n\\ No newline at end of file\n+c\n"
	file, err := ParseString(input)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	h := file.Hunks[0]
	if h.Deleted[0].EOL != "" {
		t.Fatalf("deleted line should have lost its terminator: %+v", h.Deleted[0])
	}
	if h.Added[0].EOL != "\n" {
		t.Fatalf("added line should keep its terminator: %+v", h.Added[0])
	}
}

func TestParseReturnsFirstDifferential(t *testing.T) {
	t.Parallel()

	input := "--- a\n+++ a\n@@ -1 +1 @@\n-x\n+y\n--- b\n+++ b\n@@ -1 +1 @@\n-p\n+q\n"
	file, err := ParseString(input)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if file.NewName != "a" || len(file.Hunks) != 1 {
		t.Fatalf("unexpected file: %+v", file)
	}
}

func TestParseMalformedInputIsFatal(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bad unified header":  "@@ -x +1 @@\n-a\n",
		"missing lines":       "@@ -1,3 +1,3 @@\n a\n-b\n",
		"missing separator":   "1c1\n< a\n> b\n",
		"bad context range":   "***************\n*** what ****\n",
		"context count":       "***************\n*** 1,3 ****\n! a\n--- 1 ----\n! b\n",
		"garbage in hunk":     "@@ -1,2 +1,2 @@\n a\n?b\n",
		"no differential":     "just some text\n",
		"zero start for line": "@@ -0,1 +1 @@\n-a\n+b\n",
	}
	for name, input := range cases {
		name, input := name, input
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseString(input)
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if pe.Code != CodeParse {
				t.Fatalf("unexpected code: %q", pe.Code)
			}
		})
	}
}

func TestParseWithCharset(t *testing.T) {
	t.Parallel()

	input := []byte("1c1\n< caf\xe9\n---\n> cafe\n")
	file, err := ParseWithCharset(strings.NewReader(string(input)), "latin1")
	if err != nil {
		t.Fatalf("ParseWithCharset returned error: %v", err)
	}
	if got := file.Hunks[0].Deleted[0].Text; got != "café" {
		t.Fatalf("unexpected decoded text: %q", got)
	}
}

func TestParseKeepsCRLF(t *testing.T) {
	t.Parallel()

	file, err := ParseString("@@ -1 +1 @@\r\n-a\r\n+b\r\n")
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if got := textdoc.Join(file.Hunks[0].Added); string(got) != "b\r\n" {
		t.Fatalf("unexpected added bytes: %q", got)
	}
}
