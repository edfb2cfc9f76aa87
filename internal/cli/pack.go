package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asynkron/hiertext/internal/pack"
	"github.com/asynkron/hiertext/internal/source"
)

func (a *app) packCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack [flags] SOURCE ARCHIVE",
		Short: "Write a hierarchy into an archive",
		Long: `Write SOURCE into ARCHIVE. The archive format follows the name of ARCHIVE:
.zip, .jar, .tar, .tar.gz, .tgz or .tar.zst.

Nested archives are stored as they are unless --expand is given, which
stores their entries instead. Compressed streams are always stored as is.

Examples:
  hiertext pack build/ release.tar.zst
  hiertext pack --expand app.jar app.zip`,
		Args: cobra.ExactArgs(2),
		RunE: a.runPack,
	}
	cmd.Flags().Bool("expand", false, "store the content of nested archives instead of the archives")
	return cmd
}

func (a *app) runPack(cmd *cobra.Command, args []string) error {
	cfg, logger, err := a.load(cmd)
	if err != nil {
		return err
	}
	treeOpts, err := cfg.TreeOptions(logger)
	if err != nil {
		return err
	}
	expand, _ := cmd.Flags().GetBool("expand")
	root, err := source.Open(args[0], source.Options{ExpandArchives: expand})
	if err != nil {
		return err
	}
	stats, err := pack.PackFile(cmd.Context(), root, args[1], pack.Options{Tree: treeOpts})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: %d directories, %d documents, %d bytes\n", args[1], stats.Directories, stats.Documents, stats.Bytes)
	return nil
}
