package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abe-nagisa/zipcore/stream"
	"github.com/abe-nagisa/zipcore/zip"
)

var createCmd = &cobra.Command{
	Use:   "create <archive> <file>...",
	Short: "Create an archive from the named files",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(c *cobra.Command, args []string) error {
	fs := stream.NewFileStream(args[0])
	if err := fs.Open(stream.ModeCreate | stream.ModeWrite); err != nil {
		return err
	}
	defer fs.Close()

	a, err := zip.OpenArchive(fs, zip.ModeCreate|zip.ModeWrite)
	if err != nil {
		return err
	}

	if err := addFiles(a, args[1:]); err != nil {
		a.Close()
		return err
	}
	return a.Close()
}

// addFiles writes each named file as one entry. Arguments are taken as-is:
// directories are not walked.
func addFiles(a *zip.Archive, files []string) error {
	method, err := methodFromName(viper.GetString("method"))
	if err != nil {
		return err
	}
	level := viper.GetInt("level")
	password := viper.GetString("password")

	for _, name := range files {
		if err := addFile(a, name, method, level, password); err != nil {
			return err
		}
	}
	return nil
}

func addFile(a *zip.Archive, name string, method uint16, level int, password string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	fi := &zip.FileInfo{
		VersionMadeBy:     uint16(zip.HostSystemUnix)<<8 | 20,
		CompressionMethod: method,
		ModifiedDate:      st.ModTime().Unix(),
		UncompressedSize:  uint64(st.Size()),
		ExternalFA:        uint32(st.Mode().Perm()|0100000) << 16,
		Filename:          name,
	}
	if password != "" {
		fi.AESVersion = zip.AESVersion2
	}

	if err := a.EntryWriteOpen(fi, level, false, password); err != nil {
		return err
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := a.EntryWrite(buf[:n]); werr != nil {
				a.EntryClose()
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			a.EntryClose()
			return rerr
		}
	}
	return a.EntryClose()
}
