// Package pack writes a hierarchy into a zip or tar archive.
package pack

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/asynkron/hiertext/internal/source"
	"github.com/asynkron/hiertext/pkg/tree"
)

// Options configure an archive.
type Options struct {
	// Format is one of source.Zip, source.Tar, source.TarGzip or
	// source.TarZstd.
	Format source.Format
	// ModTime stamps every entry. Zero means the time Pack starts.
	ModTime time.Time
	Tree    tree.Options
}

// Stats counts what was written.
type Stats struct {
	Directories int
	Documents   int
	Bytes       int64
}

// FormatFor picks the archive format from a destination name.
func FormatFor(name string) (source.Format, error) {
	format := source.Probe(name, nil).Format
	if !format.IsArchive() {
		return source.Plain, fmt.Errorf("pack: %s does not name a zip or tar archive", name)
	}
	return format, nil
}

type entry struct {
	node *tree.Node
	dir  bool
}

// Pack writes root below the archive root of w. Expanded archives and
// directories become directory entries; every other node is stored as it
// reads, so root should be opened without decompression to keep compressed
// streams intact. Entries are written in key order.
func Pack(ctx context.Context, root tree.Source, w io.Writer, opts Options) (Stats, error) {
	entries, err := tree.Walk[entry](ctx, tree.NewRoot(root), func(ctx context.Context, n *tree.Node) ([]entry, bool, error) {
		if n.Path == "" && n.Kind.HasChildren() {
			return nil, true, nil
		}
		if n.Path == "" {
			return []entry{{node: n}}, false, nil
		}
		return []entry{{node: n, dir: n.Kind.HasChildren()}}, true, nil
	}, opts.Tree)
	if err != nil {
		return Stats{}, err
	}
	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	var aw archiveWriter
	switch opts.Format {
	case source.Zip:
		aw = &zipWriter{zw: zip.NewWriter(w), modTime: modTime}
	case source.Tar, source.TarGzip, source.TarZstd:
		tw, err := newTarWriter(w, opts.Format, modTime)
		if err != nil {
			return Stats{}, err
		}
		aw = tw
	default:
		return Stats{}, fmt.Errorf("pack: unsupported format %s", opts.Format)
	}

	stats, err := write(ctx, aw, entries)
	if cerr := aw.Close(); err == nil {
		err = cerr
	}
	return stats, err
}

func write(ctx context.Context, aw archiveWriter, entries []entry) (Stats, error) {
	var stats Stats
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		name := e.node.Path
		if name == "" {
			name = path.Base(filepath.ToSlash(e.node.Source.Name()))
		}
		if e.dir {
			if err := aw.Dir(name + "/"); err != nil {
				return stats, fmt.Errorf("pack: write %s: %w", name, err)
			}
			stats.Directories++
			continue
		}
		data, err := e.node.ReadAll(ctx)
		if err != nil {
			return stats, err
		}
		if err := aw.File(name, data); err != nil {
			return stats, fmt.Errorf("pack: write %s: %w", name, err)
		}
		stats.Documents++
		stats.Bytes += int64(len(data))
	}
	return stats, nil
}

// PackFile writes root into the archive file dest, choosing the format from
// its name.
func PackFile(ctx context.Context, root tree.Source, dest string, opts Options) (Stats, error) {
	format, err := FormatFor(dest)
	if err != nil {
		return Stats{}, err
	}
	opts.Format = format
	f, err := os.Create(dest)
	if err != nil {
		return Stats{}, err
	}
	stats, err := Pack(ctx, root, f, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
	}
	return stats, err
}

type archiveWriter interface {
	Dir(name string) error
	File(name string, data []byte) error
	Close() error
}

type zipWriter struct {
	zw      *zip.Writer
	modTime time.Time
}

func (z *zipWriter) Dir(name string) error {
	_, err := z.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: z.modTime})
	return err
}

func (z *zipWriter) File(name string, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: z.modTime}
	hdr.SetMode(0o644)
	w, err := z.zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (z *zipWriter) Close() error { return z.zw.Close() }

type tarWriter struct {
	tw      *tar.Writer
	stream  io.WriteCloser
	modTime time.Time
}

func newTarWriter(w io.Writer, format source.Format, modTime time.Time) (*tarWriter, error) {
	t := &tarWriter{modTime: modTime}
	switch format {
	case source.TarGzip:
		t.stream = gzip.NewWriter(w)
	case source.TarZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		t.stream = zw
	}
	if t.stream != nil {
		t.tw = tar.NewWriter(t.stream)
	} else {
		t.tw = tar.NewWriter(w)
	}
	return t, nil
}

func (t *tarWriter) Dir(name string) error {
	return t.tw.WriteHeader(&tar.Header{Typeflag: tar.TypeDir, Name: name, Mode: 0o755, ModTime: t.modTime})
}

func (t *tarWriter) File(name string, data []byte) error {
	hdr := &tar.Header{Typeflag: tar.TypeReg, Name: name, Mode: 0o644, Size: int64(len(data)), ModTime: t.modTime}
	if err := t.tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := t.tw.Write(data)
	return err
}

func (t *tarWriter) Close() error {
	err := t.tw.Close()
	if t.stream != nil {
		if cerr := t.stream.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
