package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slightlyfaulty/wctx/internal/logger"
	"github.com/slightlyfaulty/wctx/internal/providers"
	"github.com/slightlyfaulty/wctx/internal/service"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the window context daemon",
	Long: `Run the wctx daemon: binds org.wctx on the session bus and publishes
live window context from the detected window provider.`,
	Example: `  # auto-detect the desktop environment
  wctx daemon

  # force a specific provider
  wctx daemon --provider x11`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringP("provider", "p", "", "window provider to use instead of auto-detecting (x11, kwin, gnome)")
	_ = viper.BindPFlag("provider", daemonCmd.Flags().Lookup("provider"))
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger.Init(viper.GetString("log_level"), true)
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	ready := make(chan *service.Service, 1)
	errCh := make(chan error, 2)

	go func() {
		errCh <- service.Serve(ctx, ready)
	}()
	go func() {
		errCh <- providers.Serve(ctx, viper.GetString("provider"), ready, viper.GetDuration("debounce_interval"))
	}()

	// the first task to finish decides the daemon's fate
	err := <-errCh
	stop()
	return err
}
