package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abe-nagisa/zipcore/zip"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "zipcore",
	Short: "Read, create and append ZIP archives",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.zipcore.yaml)")
	rootCmd.PersistentFlags().StringP("password", "p", "", "entry password")
	rootCmd.PersistentFlags().IntP("level", "l", 6, "compression level, 0 stores")
	rootCmd.PersistentFlags().StringP("method", "m", "deflate", "compression method (store, deflate, bzip2, lzma, zstd)")
	viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("level", rootCmd.PersistentFlags().Lookup("level"))
	viper.BindPFlag("method", rootCmd.PersistentFlags().Lookup("method"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".zipcore")
	}

	viper.SetEnvPrefix("zipcore")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

func methodFromName(name string) (uint16, error) {
	switch name {
	case "store":
		return zip.MethodStore, nil
	case "deflate":
		return zip.MethodDeflate, nil
	case "bzip2":
		return zip.MethodBzip2, nil
	case "lzma":
		return zip.MethodLZMA, nil
	case "zstd":
		return zip.MethodZstd, nil
	}
	return 0, errors.Errorf("unknown compression method %q", name)
}
