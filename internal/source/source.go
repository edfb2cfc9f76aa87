// Package source exposes directories, archives and compressed streams as
// tree.Source hierarchies.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/asynkron/hiertext/pkg/tree"
)

// Options control how archives and compressed streams are exposed.
type Options struct {
	// ExpandArchives turns zip and tar archives into containers. Otherwise
	// they are compared as opaque documents.
	ExpandArchives bool
	// Decompress exposes gzip and zstd streams as their decompressed
	// content.
	Decompress bool
}

// DefaultOptions expands archives and decompresses streams.
func DefaultOptions() Options {
	return Options{ExpandArchives: true, Decompress: true}
}

// ErrNotDocument is returned when a container is opened as a document.
var ErrNotDocument = errors.New("not a document")

type opener func(ctx context.Context) (io.ReadCloser, error)

// Open returns the source rooted at p. The root keeps p as its name so
// reports show the path as given.
func Open(p string, opts Options) (tree.Source, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &Dir{name: p, path: p, opts: opts}, nil
	}
	head, err := readHead(p)
	if err != nil {
		return nil, err
	}
	return fileSource(p, p, info.Size(), head, opts), nil
}

func readHead(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return head[:n], nil
}

func fileSource(name, p string, size int64, head []byte, opts Options) tree.Source {
	file := &File{name: name, path: p, size: size}
	return wrap(name, Probe(name, head).Format, file.Open, p, file, opts)
}

// wrap turns content with a known format into an archive, a decompressing
// document or leaves plain as is.
func wrap(name string, format Format, raw opener, filePath string, plain tree.Source, opts Options) tree.Source {
	switch {
	case format.IsArchive() && opts.ExpandArchives:
		return &Archive{name: name, format: format, raw: raw, path: filePath, opts: opts}
	case format.IsCompressed() && opts.Decompress:
		return &Compressed{name: name, format: format, raw: raw}
	}
	return plain
}

// FromBytes classifies in-memory content the way Open classifies files.
func FromBytes(name string, data []byte, opts Options) tree.Source {
	mem := NewMemory(name, data)
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return wrap(name, Probe(name, head).Format, mem.Open, "", mem, opts)
}

// Dir is a directory of the local filesystem.
type Dir struct {
	name string
	path string
	opts Options
}

func (d *Dir) Name() string    { return d.name }
func (d *Dir) Kind() tree.Kind { return tree.Directory }

func (d *Dir) Open(context.Context) (io.ReadCloser, error) {
	return nil, fmt.Errorf("%s: %w", d.path, ErrNotDocument)
}

func (d *Dir) Children(ctx context.Context) ([]tree.Source, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	out := make([]tree.Source, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := filepath.Join(d.path, entry.Name())
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		switch {
		case info.IsDir():
			out = append(out, &Dir{name: entry.Name(), path: p, opts: d.opts})
		case info.Mode().IsRegular():
			out = append(out, fileSource(entry.Name(), p, info.Size(), nil, d.opts))
		}
	}
	return out, nil
}

// File is a regular file of the local filesystem.
type File struct {
	name string
	path string
	size int64
}

func (f *File) Name() string                                  { return f.name }
func (f *File) Kind() tree.Kind                               { return tree.Document }
func (f *File) Size() (int64, bool)                           { return f.size, true }
func (f *File) Children(context.Context) ([]tree.Source, error) { return nil, nil }

func (f *File) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Path returns the filesystem path of the file.
func (f *File) Path() string { return f.path }

// Memory is a document held in memory.
type Memory struct {
	name string
	data []byte
}

// NewMemory creates a document source over data.
func NewMemory(name string, data []byte) *Memory {
	return &Memory{name: name, data: data}
}

func (m *Memory) Name() string                                  { return m.name }
func (m *Memory) Kind() tree.Kind                               { return tree.Document }
func (m *Memory) Size() (int64, bool)                           { return int64(len(m.data)), true }
func (m *Memory) Children(context.Context) ([]tree.Source, error) { return nil, nil }

func (m *Memory) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

// VirtualDir is a directory that only exists inside an archive or in
// memory.
type VirtualDir struct {
	name     string
	children []tree.Source
	dirs     map[string]*VirtualDir
}

// NewVirtualDir creates an empty virtual directory.
func NewVirtualDir(name string) *VirtualDir {
	return &VirtualDir{name: name, dirs: map[string]*VirtualDir{}}
}

func (v *VirtualDir) Name() string    { return v.name }
func (v *VirtualDir) Kind() tree.Kind { return tree.Directory }

func (v *VirtualDir) Open(context.Context) (io.ReadCloser, error) {
	return nil, fmt.Errorf("%s: %w", v.name, ErrNotDocument)
}

func (v *VirtualDir) Children(context.Context) ([]tree.Source, error) {
	return append([]tree.Source(nil), v.children...), nil
}

// Dir returns the directory at the slash separated path p, creating it and
// its parents as needed.
func (v *VirtualDir) Dir(p string) *VirtualDir {
	cur := v
	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		next, ok := cur.dirs[part]
		if !ok {
			next = NewVirtualDir(part)
			cur.dirs[part] = next
			cur.children = append(cur.children, next)
		}
		cur = next
	}
	return cur
}

// Add places src in the directory named by dir.
func (v *VirtualDir) Add(dir string, src tree.Source) {
	parent := v.Dir(dir)
	parent.children = append(parent.children, src)
}

// FromMap builds a virtual hierarchy from slash separated paths to content.
// Paths ending in "/" create empty directories.
func FromMap(name string, files map[string]string) *VirtualDir {
	root := NewVirtualDir(name)
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if strings.HasSuffix(p, "/") {
			root.Dir(p)
			continue
		}
		dir, base := path.Split(p)
		root.Add(dir, NewMemory(base, []byte(files[p])))
	}
	return root
}
