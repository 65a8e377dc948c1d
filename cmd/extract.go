package cmd

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abe-nagisa/zipcore/stream"
	"github.com/abe-nagisa/zipcore/zip"
)

var extractCmd = &cobra.Command{
	Use:   "extract <archive> [dest]",
	Short: "Extract every entry of an archive",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(c *cobra.Command, args []string) error {
	dest := "."
	if len(args) > 1 {
		dest = args[1]
	}
	password := viper.GetString("password")

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
		if eerr := extractEntry(a, dest, password); eerr != nil {
			return eerr
		}
		err = a.GotoNextEntry()
	}
	if errors.Is(err, zip.ErrEndOfList) {
		return nil
	}
	return err
}

func extractEntry(a *zip.Archive, dest, password string) error {
	fi, err := a.EntryInfo()
	if err != nil {
		return err
	}
	path := filepath.Join(dest, filepath.FromSlash(fi.Filename))

	if isDir, _ := a.EntryIsDir(); isDir {
		return os.MkdirAll(path, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	if err := a.EntryReadOpen(false, password); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		a.EntryClose()
		return err
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := a.EntryRead(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				a.EntryClose()
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			a.EntryClose()
			return rerr
		}
	}

	if err := out.Close(); err != nil {
		a.EntryClose()
		return err
	}
	return a.EntryClose()
}
