package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slightlyfaulty/wctx/internal/providers"
	"github.com/slightlyfaulty/wctx/internal/query"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "wctx [context] [property]",
		Short: "wctx - live window context for your desktop session",
		Long: `wctx publishes live window context over the session bus: which window
is focused, which window is under the pointer, and each window's identity,
classification, state and display.

Running wctx without a subcommand queries the daemon:

  wctx active            # full record of the focused window
  wctx pointer class     # class of the window under the pointer
  wctx active --watch    # follow focus changes`,
		Args: cobra.MaximumNArgs(2),
		RunE: runQuery,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/wctx/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	addQueryFlags(rootCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "wctx"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	viper.SetDefault("log_level", "info")
	viper.SetDefault("debounce_interval", "15ms")

	// a missing config file is fine, everything has defaults
	_ = viper.ReadInConfig()
}

// Execute runs the command tree and maps errors to process exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *query.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
			os.Exit(exitErr.Code)
		}
		if errors.Is(err, providers.ErrNoProvider) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(query.ExitCodeUnavailable)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
