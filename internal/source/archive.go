package source

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/asynkron/hiertext/pkg/tree"
)

// Archive is a zip or tar archive exposed as a container of its entries.
type Archive struct {
	name   string
	format Format
	raw    opener
	// path is set for archives stored directly on disk, so zip entries can
	// be read with random access instead of buffering the archive.
	path string
	opts Options

	once sync.Once
	data []byte
	err  error
}

func (a *Archive) Name() string    { return a.name }
func (a *Archive) Kind() tree.Kind { return tree.Archive }

// Format returns the archive format.
func (a *Archive) Format() Format { return a.format }

// Open returns the archive's raw bytes.
func (a *Archive) Open(ctx context.Context) (io.ReadCloser, error) {
	return a.raw(ctx)
}

func (a *Archive) Children(ctx context.Context) ([]tree.Source, error) {
	if a.format == Zip {
		return a.zipChildren(ctx)
	}
	return a.tarChildren(ctx)
}

// buffered reads the raw archive once and keeps it for later entry reads.
func (a *Archive) buffered(ctx context.Context) ([]byte, error) {
	a.once.Do(func() {
		rc, err := a.raw(ctx)
		if err != nil {
			a.err = err
			return
		}
		defer rc.Close()
		a.data, a.err = io.ReadAll(rc)
	})
	return a.data, a.err
}

func (a *Archive) zipReader(ctx context.Context) (*zip.Reader, io.Closer, error) {
	if a.path != "" {
		f, err := os.Open(a.path)
		if err != nil {
			return nil, nil, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		zr, err := zip.NewReader(f, info.Size())
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("read zip %s: %w", a.name, err)
		}
		return zr, f, nil
	}
	data, err := a.buffered(ctx)
	if err != nil {
		return nil, nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("read zip %s: %w", a.name, err)
	}
	return zr, noClose{}, nil
}

func (a *Archive) zipChildren(ctx context.Context) ([]tree.Source, error) {
	zr, closer, err := a.zipReader(ctx)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	root := NewVirtualDir(a.name)
	for _, f := range zr.File {
		name := cleanEntry(f.Name)
		if name == "" {
			continue
		}
		if f.FileInfo().IsDir() {
			root.Dir(name)
			continue
		}
		dir, base := path.Split(name)
		entry := &ZipEntry{
			name:    base,
			entry:   f.Name,
			archive: a,
			size:    int64(f.UncompressedSize64),
			crc:     f.CRC32,
		}
		root.Add(dir, wrap(base, Probe(base, nil).Format, entry.Open, "", entry, a.opts))
	}
	return root.Children(ctx)
}

func (a *Archive) tarChildren(ctx context.Context) ([]tree.Source, error) {
	raw, err := a.raw(ctx)
	if err != nil {
		return nil, err
	}
	defer raw.Close()
	stream, err := decompress(a.format, raw)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", a.format, a.name, err)
	}
	defer stream.Close()

	root := NewVirtualDir(a.name)
	tr := tar.NewReader(stream)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar %s: %w", a.name, err)
		}
		name := cleanEntry(hdr.Name)
		if name == "" {
			continue
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			root.Dir(name)
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read tar entry %s: %w", name, err)
			}
			dir, base := path.Split(name)
			root.Add(dir, FromBytes(base, data, a.opts))
		}
	}
	return root.Children(ctx)
}

func cleanEntry(name string) string {
	name = path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimPrefix(name, "/")
}

// ZipEntry is a file stored in a zip archive. Its size and CRC32 come
// from the central directory.
type ZipEntry struct {
	name    string
	entry   string
	archive *Archive
	size    int64
	crc     uint32
}

func (z *ZipEntry) Name() string                                  { return z.name }
func (z *ZipEntry) Kind() tree.Kind                               { return tree.Document }
func (z *ZipEntry) Digest() (int64, uint32, bool)                 { return z.size, z.crc, true }
func (z *ZipEntry) Children(context.Context) ([]tree.Source, error) { return nil, nil }

func (z *ZipEntry) Open(ctx context.Context) (io.ReadCloser, error) {
	zr, closer, err := z.archive.zipReader(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name != z.entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			closer.Close()
			return nil, err
		}
		return &stackCloser{Reader: rc, closers: []io.Closer{rc, closer}}, nil
	}
	closer.Close()
	return nil, fmt.Errorf("zip entry %s: %w", z.entry, os.ErrNotExist)
}

// Compressed is a gzip or zstd stream exposed as its decompressed content.
type Compressed struct {
	name   string
	format Format
	raw    opener
}

func (c *Compressed) Name() string                                  { return c.name }
func (c *Compressed) Kind() tree.Kind                               { return tree.Document }
func (c *Compressed) Children(context.Context) ([]tree.Source, error) { return nil, nil }

func (c *Compressed) Open(ctx context.Context) (io.ReadCloser, error) {
	raw, err := c.raw(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := decompress(c.format, raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("read %s %s: %w", c.format, c.name, err)
	}
	return &stackCloser{Reader: stream, closers: []io.Closer{stream, raw}}, nil
}

// decompress wraps r according to format. Plain formats return r itself
// behind a no-op closer.
func decompress(format Format, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case Gzip, TarGzip:
		return gzip.NewReader(r)
	case Zstd, TarZstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	}
	return io.NopCloser(r), nil
}

type noClose struct{}

func (noClose) Close() error { return nil }

// stackCloser closes every closer in order and reports the first error.
type stackCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
