package patch

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ApplyToMemory applies a parsed file to an in-memory document store
// represented by a map. key selects the document; when empty the file's
// target name is used, with its first path component dropped when only the
// stripped name is present in files. The provided map is copied before mutation and the
// updated snapshot is returned.
func ApplyToMemory(ctx context.Context, key string, file *File, files map[string]string, opts Options) (map[string]string, Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, Result{}, &Error{Message: err.Error()}
	}
	if file == nil {
		return nil, Result{}, &Error{Code: CodeParse, Message: "patch: nil file"}
	}
	if key == "" {
		key = memoryKey(file, files)
	}
	rel := path.Clean(strings.TrimSpace(key))
	if rel == "" || rel == "." {
		return nil, Result{}, fmt.Errorf("invalid patch path")
	}

	snapshot := make(map[string]string, len(files))
	for k, v := range files {
		snapshot[k] = v
	}

	content, exists := snapshot[rel]
	if !exists && !file.Creates() && !opts.Reverse {
		return nil, Result{}, fmt.Errorf("failed to read %s: file does not exist", rel)
	}

	updated, statuses, err := ApplyBytes([]byte(content), file, opts)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			pe.RelativePath = rel
		}
		return nil, Result{}, err
	}

	status := "M"
	switch {
	case !exists:
		status = "A"
	case len(updated) == 0 && (file.Deletes() || (opts.Reverse && file.Creates())):
		delete(snapshot, rel)
		return snapshot, Result{Status: "D", Path: rel, Hunks: statuses}, nil
	}
	snapshot[rel] = string(updated)
	return snapshot, Result{Status: status, Path: rel, Hunks: statuses}, nil
}

// ApplyMemoryPatch parses a raw patch payload and applies it to an in-memory
// map of files.
func ApplyMemoryPatch(ctx context.Context, patchBody string, files map[string]string, opts Options) (map[string]string, Result, error) {
	file, err := ParseString(patchBody)
	if err != nil {
		return nil, Result{}, err
	}
	return ApplyToMemory(ctx, "", file, files, opts)
}

func memoryKey(file *File, files map[string]string) string {
	key := file.Target(0)
	if _, ok := files[key]; ok {
		return key
	}
	if stripped := file.Target(1); stripped != key {
		if _, ok := files[stripped]; ok {
			return stripped
		}
	}
	return key
}
