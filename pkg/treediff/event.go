// Package treediff compares two hierarchies of directories, archives and
// documents and reports what changed between them.
package treediff

import (
	"fmt"
	"strings"

	"github.com/asynkron/hiertext/pkg/hunk"
)

// EventType classifies an Event.
type EventType string

const (
	Added         EventType = "added"
	Deleted       EventType = "deleted"
	KindChanged   EventType = "kind-changed"
	Changed       EventType = "changed"
	BinaryChanged EventType = "binary-changed"
	Unchanged     EventType = "unchanged"
)

// Event is one outcome of a hierarchy comparison.
type Event struct {
	Type EventType `json:"type"`
	// Path is the node path relative to the compared roots.
	Path string `json:"path"`
	// Left and Right are the display labels of both sides.
	Left      string `json:"left"`
	Right     string `json:"right"`
	LeftKind  string `json:"leftKind,omitempty"`
	RightKind string `json:"rightKind,omitempty"`
	// Text holds the rendered differences of a Changed event, including
	// the diff and file header lines.
	Text  string     `json:"text,omitempty"`
	Stats hunk.Stats `json:"stats"`
}

// Differs reports whether the event counts as a difference.
func (e Event) Differs() bool {
	return e.Type != Unchanged
}

// Summary returns the one line description of the event used by text
// reports.
func (e Event) Summary() string {
	switch e.Type {
	case Added:
		return onlyIn(e.Right)
	case Deleted:
		return onlyIn(e.Left)
	case KindChanged:
		return fmt.Sprintf("File %s is a %s while file %s is a %s", e.Left, e.LeftKind, e.Right, e.RightKind)
	case BinaryChanged:
		return fmt.Sprintf("Binary files %s and %s differ", e.Left, e.Right)
	case Unchanged:
		return fmt.Sprintf("Files %s and %s are identical", e.Left, e.Right)
	default:
		return fmt.Sprintf("Files %s and %s differ", e.Left, e.Right)
	}
}

func onlyIn(label string) string {
	i := strings.LastIndexByte(label, '/')
	if i < 0 {
		return "Only in .: " + label
	}
	return fmt.Sprintf("Only in %s: %s", label[:i], label[i+1:])
}
