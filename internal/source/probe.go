package source

import (
	"bytes"
	"fmt"
	"strings"
)

// Format is the container or compression format of a node.
type Format int

const (
	Plain Format = iota
	Zip
	Tar
	TarGzip
	TarZstd
	Gzip
	Zstd
)

func (f Format) String() string {
	switch f {
	case Zip:
		return "zip"
	case Tar:
		return "tar"
	case TarGzip:
		return "tar.gz"
	case TarZstd:
		return "tar.zst"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return "plain"
	}
}

// IsArchive reports whether the format holds entries.
func (f Format) IsArchive() bool {
	return f == Zip || f == Tar || f == TarGzip || f == TarZstd
}

// IsCompressed reports whether the format is a single compressed stream.
func (f Format) IsCompressed() bool {
	return f == Gzip || f == Zstd
}

// ProbeResult records how a name was classified and why.
type ProbeResult struct {
	Format     Format
	Indicators []string
}

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	tarMagic  = []byte("ustar")
)

// suffixes are checked in order so that compound suffixes win.
var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", TarGzip},
	{".tgz", TarGzip},
	{".tar.zst", TarZstd},
	{".tzst", TarZstd},
	{".tar", Tar},
	{".zip", Zip},
	{".jar", Zip},
	{".war", Zip},
	{".ear", Zip},
	{".gz", Gzip},
	{".zst", Zstd},
}

// Probe classifies a node from its name and, when available, the first
// bytes of its content. A suffix decides first; the magic bytes confirm it
// or classify unnamed content.
func Probe(name string, head []byte) ProbeResult {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			res := ProbeResult{Format: s.format, Indicators: []string{"suffix " + s.suffix}}
			if magic := probeMagic(head); magic != "" {
				res.Indicators = append(res.Indicators, magic)
			}
			return res
		}
	}
	switch {
	case bytes.HasPrefix(head, zipMagic):
		return ProbeResult{Format: Zip, Indicators: []string{"zip magic"}}
	case len(head) >= 262 && bytes.Equal(head[257:262], tarMagic):
		return ProbeResult{Format: Tar, Indicators: []string{"ustar magic"}}
	}
	return ProbeResult{Format: Plain}
}

func probeMagic(head []byte) string {
	switch {
	case bytes.HasPrefix(head, zipMagic):
		return "zip magic"
	case bytes.HasPrefix(head, gzipMagic):
		return "gzip magic"
	case bytes.HasPrefix(head, zstdMagic):
		return "zstd magic"
	case len(head) >= 262 && bytes.Equal(head[257:262], tarMagic):
		return "ustar magic"
	}
	return ""
}

// FormatSummary renders a probe result as "format (indicators)".
func FormatSummary(res ProbeResult) string {
	if len(res.Indicators) == 0 {
		return res.Format.String()
	}
	return fmt.Sprintf("%s (%s)", res.Format, strings.Join(res.Indicators, "; "))
}
