package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abe-nagisa/zipcore/stream"
	"github.com/abe-nagisa/zipcore/zip"
)

var appendCmd = &cobra.Command{
	Use:   "append <archive> <file>...",
	Short: "Append files to an existing archive",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAppend,
}

func init() {
	rootCmd.AddCommand(appendCmd)
}

func runAppend(c *cobra.Command, args []string) error {
	fs := stream.NewFileStream(args[0])
	if err := fs.Open(stream.ModeRead | stream.ModeWrite); err != nil {
		return err
	}
	defer fs.Close()

	a, err := zip.OpenArchive(fs, zip.ModeRead|zip.ModeWrite|zip.ModeAppend)
	if err != nil {
		return err
	}

	if err := addFiles(a, args[1:]); err != nil {
		a.Close()
		return err
	}
	return a.Close()
}
