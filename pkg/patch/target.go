package patch

import (
	"path"
	"strings"

	"github.com/asynkron/hiertext/pkg/lcs"
)

// DevNull names the missing side of a created or deleted file.
const DevNull = "/dev/null"

// Target returns the path a patch applies to: the new name unless it is
// missing, then the old name, with strip leading components removed.
func (f *File) Target(strip int) string {
	name := f.NewName
	if name == "" || name == DevNull {
		name = f.OldName
	}
	if name == DevNull {
		return ""
	}
	return stripComponents(name, strip)
}

// Creates reports whether the patch creates its target.
func (f *File) Creates() bool {
	if f.OldName == DevNull {
		return true
	}
	return len(f.Hunks) == 1 && f.Hunks[0].DelEnd == lcs.None && f.Hunks[0].DelStart == 0
}

// Deletes reports whether the patch removes its target.
func (f *File) Deletes() bool {
	return f.NewName == DevNull
}

func stripComponents(name string, strip int) string {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	for i := 0; i < strip; i++ {
		idx := strings.IndexByte(name, '/')
		if idx < 0 {
			break
		}
		name = name[idx+1:]
	}
	return name
}
