package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/abe-nagisa/zipcore/stream"
	"github.com/abe-nagisa/zipcore/zip"
)

var listCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List the entries of an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(c *cobra.Command, args []string) error {
	fs := stream.NewFileStream(args[0])
	if err := fs.Open(stream.ModeRead); err != nil {
		return err
	}
	defer fs.Close()

	a, err := zip.OpenArchive(fs, zip.ModeRead)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.GotoFirstEntry()
	for err == nil {
		fi, ferr := a.EntryInfo()
		if ferr != nil {
			return ferr
		}
		modified := time.Unix(fi.ModifiedDate, 0).Format("2006-01-02 15:04")
		c.Printf("%10d  %s  %s\n", fi.UncompressedSize, modified, fi.Filename)
		err = a.GotoNextEntry()
	}
	if errors.Is(err, zip.ErrEndOfList) {
		return nil
	}
	return err
}
