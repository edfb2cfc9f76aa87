package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/asynkron/hiertext/pkg/patch"
)

func (a *app) patchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch [flags] [TARGET]",
		Short: "Apply a normal, context or unified difference to a file",
		Long: `Apply the first difference found in the patch input to a file.

The target is taken from the patch headers unless TARGET is given.

Examples:
  hiertext patch -p1 -i fix.diff
  hiertext patch --hunks 1,3 -i fix.diff src/main.go
  hiertext patch -R < fix.diff`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runPatch,
	}
	fs := cmd.Flags()
	fs.StringP("input", "i", "-", "patch file (- reads stdin)")
	fs.IntP("strip", "p", 0, "leading path components removed from header names")
	fs.StringP("directory", "d", "", "resolve the target relative to this directory")
	fs.BoolP("reverse", "R", false, "apply the difference in reverse")
	fs.String("hunks", "", "apply only the selected hunks, e.g. 1,3-4")
	fs.Bool("verify", true, "require the replaced lines to match the patch")
	fs.Bool("dry-run", false, "check the patch without writing")
	return cmd
}

func (a *app) runPatch(cmd *cobra.Command, args []string) error {
	cfg, _, err := a.load(cmd)
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	input, _ := fs.GetString("input")
	strip, _ := fs.GetInt("strip")
	dir, _ := fs.GetString("directory")
	reverse, _ := fs.GetBool("reverse")
	selection, _ := fs.GetString("hunks")
	verify, _ := fs.GetBool("verify")
	dryRun, _ := fs.GetBool("dry-run")

	var r io.Reader = cmd.InOrStdin()
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	file, err := patch.ParseWithCharset(r, cfg.Diff.Charset)
	if err != nil {
		return a.patchError(err)
	}

	opts := patch.FilesystemOptions{
		Options:    patch.Options{Verify: verify, Reverse: reverse},
		WorkingDir: dir,
		Strip:      strip,
		DryRun:     dryRun,
	}
	if len(args) == 1 {
		opts.Target = args[0]
	}
	if selection != "" {
		if opts.Predicate, err = patch.SelectHunks(selection); err != nil {
			return err
		}
	}

	res, err := patch.ApplyFilesystem(cmd.Context(), file, opts)
	if err != nil {
		return a.patchError(err)
	}
	verb := "patching"
	if dryRun {
		verb = "checking"
	}
	switch res.Status {
	case "A":
		fmt.Fprintf(a.stdout, "%s file %s (created)\n", verb, res.Path)
	case "D":
		fmt.Fprintf(a.stdout, "%s file %s (removed)\n", verb, res.Path)
	default:
		fmt.Fprintf(a.stdout, "%s file %s\n", verb, res.Path)
	}
	for _, h := range res.Hunks {
		if h.Status == patch.StatusSkipped {
			fmt.Fprintf(a.stdout, "Hunk #%d skipped\n", h.Number)
		}
	}
	return nil
}

// patchError prints a structured patch failure. Hunks that do not apply
// exit with 1, malformed input and I/O failures with 2.
func (a *app) patchError(err error) error {
	var pe *patch.Error
	if !errors.As(err, &pe) {
		return err
	}
	fmt.Fprintln(a.stderr, patch.FormatError(pe))
	if pe.Code == patch.CodeHunkMismatch || pe.Code == patch.CodeHunkOutOfRange {
		return &statusError{code: ExitDiffer}
	}
	return &statusError{code: ExitTrouble}
}
