// Package tree models hierarchies of directories, archives and documents
// and aligns two of them by normalized path.
package tree

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"
	"sync"
)

// Kind tags a node as a document or one of the two container kinds.
type Kind int

const (
	Document Kind = iota
	Directory
	Archive
)

// HasChildren reports whether nodes of this kind own child nodes.
func (k Kind) HasChildren() bool {
	return k == Directory || k == Archive
}

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case Archive:
		return "archive"
	default:
		return "document"
	}
}

// Source is the content collaborator behind a node: a directory, an
// archive or archive entry, a compressed stream or a plain file.
type Source interface {
	// Name is the last path element of the source.
	Name() string
	Kind() Kind
	// Open returns the raw bytes of a document. Containers may return an
	// error.
	Open(ctx context.Context) (io.ReadCloser, error)
	// Children lists the sources owned by a container.
	Children(ctx context.Context) ([]Source, error)
}

// Digester is implemented by sources that know their size and CRC32
// without being read, such as zip entries.
type Digester interface {
	Digest() (size int64, crc uint32, ok bool)
}

// Sizer is implemented by sources that know their size cheaply.
type Sizer interface {
	Size() (int64, bool)
}

// Path tags.
const (
	TagFile    = 'f'
	TagArchive = 'a'
)

// PathError wraps an I/O failure with the path of the node involved.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func wrapPath(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return &PathError{Op: op, Path: path, Err: err}
}

// Node is one element of a loaded hierarchy.
type Node struct {
	Source Source
	// Path is the slash separated path relative to the root.
	Path string
	// Key is the normalized path used for alignment.
	Key  string
	Kind Kind
	// InArchive is set for nodes below an archive.
	InArchive bool

	digestOnce sync.Once
	size       int64
	crc        uint32
	digestErr  error
}

// NewRoot wraps src as the root of a hierarchy.
func NewRoot(src Source) *Node {
	return &Node{Source: src, Kind: src.Kind()}
}

// Tagged returns the path prefixed with its one character level tag.
func (n *Node) Tagged() string {
	tag := TagFile
	if n.InArchive {
		tag = TagArchive
	}
	return string(rune(tag)) + n.Path
}

// DisplayPath returns the path used in reports: the root's name for the
// root itself.
func (n *Node) DisplayPath() string {
	if n.Path == "" {
		return n.Source.Name()
	}
	return n.Path
}

// Label joins the label of the root a node was loaded from and the node
// path.
func Label(root string, n *Node) string {
	if n.Path == "" {
		return root
	}
	return strings.TrimSuffix(root, "/") + "/" + n.Path
}

// Open opens the node's content.
func (n *Node) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, err := n.Source.Open(ctx)
	return rc, wrapPath("open", n.DisplayPath(), err)
}

// ReadAll reads the node's content and closes the stream.
func (n *Node) ReadAll(ctx context.Context) ([]byte, error) {
	rc, err := n.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrapPath("read", n.DisplayPath(), err)
	}
	return data, nil
}

// Size returns the content size, reading the content when the source does
// not know it.
func (n *Node) Size(ctx context.Context) (int64, error) {
	if d, ok := n.Source.(Digester); ok {
		if size, _, ok := d.Digest(); ok {
			return size, nil
		}
	}
	if s, ok := n.Source.(Sizer); ok {
		if size, ok := s.Size(); ok {
			return size, nil
		}
	}
	size, _, err := n.digest(ctx)
	return size, err
}

// CRC32 returns the IEEE checksum of the content. It is computed at most
// once per node.
func (n *Node) CRC32(ctx context.Context) (uint32, error) {
	if d, ok := n.Source.(Digester); ok {
		if _, crc, ok := d.Digest(); ok {
			return crc, nil
		}
	}
	_, crc, err := n.digest(ctx)
	return crc, err
}

func (n *Node) digest(ctx context.Context) (int64, uint32, error) {
	n.digestOnce.Do(func() {
		rc, err := n.Open(ctx)
		if err != nil {
			n.digestErr = err
			return
		}
		defer rc.Close()
		h := crc32.NewIEEE()
		n.size, err = io.Copy(h, rc)
		if err != nil {
			n.digestErr = wrapPath("read", n.DisplayPath(), err)
			return
		}
		n.crc = h.Sum32()
	})
	return n.size, n.crc, n.digestErr
}

func (n *Node) child(src Source) *Node {
	path := src.Name()
	if n.Path != "" {
		path = n.Path + "/" + path
	}
	return &Node{
		Source:    src,
		Path:      path,
		Kind:      src.Kind(),
		InArchive: n.InArchive || n.Kind == Archive,
	}
}
