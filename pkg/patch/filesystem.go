package patch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemOptions augments Options with the settings needed to locate the
// target on the local filesystem.
type FilesystemOptions struct {
	Options
	// WorkingDir resolves relative targets; defaults to the process directory.
	WorkingDir string
	// Target overrides the file named by the patch headers.
	Target string
	// Strip removes leading path components from header names.
	Strip int
	// DryRun computes the result without writing.
	DryRun bool
}

// ApplyFilesystem applies a parsed file to the OS filesystem. The target keeps
// its permission bits.
func ApplyFilesystem(ctx context.Context, file *File, opts FilesystemOptions) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Message: err.Error()}
	}
	if file == nil {
		return Result{}, &Error{Code: CodeParse, Message: "patch: nil file"}
	}
	target := strings.TrimSpace(opts.Target)
	if target == "" {
		target = file.Target(opts.Strip)
	}
	abs, rel, err := resolvePath(opts.WorkingDir, target)
	if err != nil {
		return Result{}, err
	}

	var (
		content      []byte
		originalMode fs.FileMode
		exists       bool
	)
	info, statErr := os.Stat(abs)
	switch {
	case statErr == nil:
		if info.IsDir() {
			return Result{}, fmt.Errorf("cannot patch directory %s", rel)
		}
		content, err = os.ReadFile(abs)
		if err != nil {
			return Result{}, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		originalMode = info.Mode()
		exists = true
	case errors.Is(statErr, fs.ErrNotExist):
		if !file.Creates() || opts.Reverse {
			return Result{}, fmt.Errorf("failed to read %s: file does not exist", rel)
		}
	default:
		return Result{}, fmt.Errorf("failed to stat %s: %w", rel, statErr)
	}

	updated, statuses, err := ApplyBytes(content, file, opts.Options)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			pe.RelativePath = rel
		}
		return Result{}, err
	}

	result := Result{Status: "M", Path: rel, Hunks: statuses}
	if !exists {
		result.Status = "A"
	}
	removes := len(updated) == 0 && (file.Deletes() || (opts.Reverse && file.Creates()))
	if removes {
		result.Status = "D"
	}
	if opts.DryRun {
		return result, nil
	}
	if removes {
		if err := os.Remove(abs); err != nil {
			return Result{}, &Error{Message: fmt.Sprintf("Failed to delete file %s", rel)}
		}
		return result, nil
	}
	if err := writePreservingMode(abs, rel, updated, originalMode); err != nil {
		return Result{}, err
	}
	return result, nil
}

// ApplyFilesystemPatch parses a raw patch payload and applies it to the filesystem.
func ApplyFilesystemPatch(ctx context.Context, patchBody string, opts FilesystemOptions) (Result, error) {
	file, err := ParseString(patchBody)
	if err != nil {
		return Result{}, err
	}
	return ApplyFilesystem(ctx, file, opts)
}

func writePreservingMode(writePath, displayPath string, content []byte, originalMode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(writePath), 0o755); err != nil {
		return &Error{Message: fmt.Sprintf("failed to create directory for %s: %v", displayPath, err)}
	}

	perm := originalMode & fs.ModePerm
	if perm == 0 {
		perm = 0o644
	}

	if err := os.WriteFile(writePath, content, perm); err != nil {
		return &Error{Message: fmt.Sprintf("failed to write %s: %v", displayPath, err)}
	}

	if originalMode == 0 {
		return nil
	}
	specialBits := originalMode & (fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
	desired := perm | specialBits

	needsChmod := specialBits != 0
	if !needsChmod {
		info, statErr := os.Stat(writePath)
		if statErr != nil {
			return &Error{Message: fmt.Sprintf("failed to stat %s after write: %v", displayPath, statErr)}
		}
		current := info.Mode() & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
		needsChmod = current != desired
	}
	if needsChmod {
		if err := os.Chmod(writePath, desired); err != nil {
			return &Error{Message: fmt.Sprintf("failed to restore permissions for %s: %v", displayPath, err)}
		}
	}
	return nil
}

func resolvePath(workingDir, relative string) (string, string, error) {
	rel := strings.TrimSpace(relative)
	if rel == "" {
		return "", "", fmt.Errorf("invalid patch path")
	}
	workingDir = strings.TrimSpace(workingDir)
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		workingDir = wd
	}
	if abs, err := filepath.Abs(workingDir); err == nil {
		workingDir = abs
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return cleaned, cleaned, nil
	}
	return filepath.Join(workingDir, cleaned), cleaned, nil
}
