package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unknproject/loader/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the loader with its local control API",
	Long: `Run the loader and serve the control API until interrupted.

Example:
  unknproject serve
  UNKN_LISTEN_ADDR=127.0.0.1:9000 unknproject serve
`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil, true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Logger().Info("starting unknproject loader",
		"version", config.Version,
		"build_time", config.BuildTime,
		"dir", cfg.Dir(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}
