package cli

import (
	"github.com/spf13/cobra"

	"github.com/asynkron/hiertext/internal/find"
	"github.com/asynkron/hiertext/internal/grep"
	"github.com/asynkron/hiertext/internal/source"
)

func (a *app) grepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grep [flags] PATTERN PATH...",
		Short: "Search the documents of hierarchies",
		Long: `Print the lines matching PATTERN in every text document below each PATH,
including archive entries and compressed streams.

Examples:
  hiertext grep -n 'TODO\(' src/
  hiertext grep -l -i license dist/app.jar`,
		Args: cobra.MinimumNArgs(2),
		RunE: a.runGrep,
	}
	fs := cmd.Flags()
	fs.BoolP("ignore-case", "i", false, "ignore case distinctions")
	fs.BoolP("invert-match", "v", false, "select non-matching lines")
	fs.BoolP("line-number", "n", false, "prefix lines with their line number")
	fs.BoolP("files-with-matches", "l", false, "print only the names of matching documents")
	fs.BoolP("count", "c", false, "print the number of selected lines per document")
	addSourceFlags(fs)
	return cmd
}

func (a *app) runGrep(cmd *cobra.Command, args []string) error {
	cfg, logger, err := a.load(cmd)
	if err != nil {
		return err
	}
	treeOpts, err := cfg.TreeOptions(logger)
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	opts := grep.Options{Charset: cfg.Diff.Charset, Tree: treeOpts}
	opts.IgnoreCase, _ = fs.GetBool("ignore-case")
	opts.Invert, _ = fs.GetBool("invert-match")
	opts.LineNumbers, _ = fs.GetBool("line-number")
	opts.FilesOnly, _ = fs.GetBool("files-with-matches")
	opts.Count, _ = fs.GetBool("count")

	s, err := grep.New(args[0], opts)
	if err != nil {
		return err
	}
	found := false
	for _, p := range args[1:] {
		root, err := source.Open(p, cfg.SourceOptions())
		if err != nil {
			return err
		}
		results, err := s.Search(cmd.Context(), root)
		if err != nil {
			return err
		}
		ok, err := s.Write(a.stdout, results)
		if err != nil {
			return err
		}
		found = found || ok
	}
	if !found {
		a.differ()
	}
	return nil
}

func (a *app) findCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find [flags] PATH...",
		Short: "List the nodes of hierarchies",
		Long: `List every directory, archive and document below each PATH.

Examples:
  hiertext find --name '*.go' --type f src/
  hiertext find -l --maxdepth 2 release.tar.gz`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runFind,
	}
	fs := cmd.Flags()
	fs.StringArray("name", nil, "list only nodes whose name matches the glob")
	fs.String("type", "", "list only these kinds: d (directory), a (archive), f (document)")
	fs.Int("maxdepth", 0, "descend at most this many levels (0 = unlimited)")
	fs.BoolP("long", "l", false, "print kind and size")
	addSourceFlags(fs)
	return cmd
}

func (a *app) runFind(cmd *cobra.Command, args []string) error {
	cfg, logger, err := a.load(cmd)
	if err != nil {
		return err
	}
	treeOpts, err := cfg.TreeOptions(logger)
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	opts := find.Options{Tree: treeOpts}
	opts.Names, _ = fs.GetStringArray("name")
	opts.MaxDepth, _ = fs.GetInt("maxdepth")
	kinds, _ := fs.GetString("type")
	if opts.Kinds, err = find.ParseKinds(kinds); err != nil {
		return err
	}
	long, _ := fs.GetBool("long")

	f, err := find.New(opts)
	if err != nil {
		return err
	}
	for _, p := range args {
		root, err := source.Open(p, cfg.SourceOptions())
		if err != nil {
			return err
		}
		entries, err := f.Find(cmd.Context(), root)
		if err != nil {
			return err
		}
		if err := find.Write(a.stdout, entries, long); err != nil {
			return err
		}
	}
	return nil
}
