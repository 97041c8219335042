package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unknproject/loader/internal/app"
	"github.com/unknproject/loader/internal/config"
	"github.com/unknproject/loader/internal/domain"
)

var (
	configDir string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "unknproject",
	Short:         "Download and inject payloads from the UnknProject catalog",
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configDir)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.json, logs and cached files")
	rootCmd.AddCommand(serveCmd, listCmd, injectCmd, injectFileCmd, helpersCmd, statsCmd, configCmd)
}

// newApp wires the loader for a command. Logs are mirrored to stderr at the
// configured level. Only commands that use the loader count as a launch.
func newApp(observer domain.Observer, countLaunch bool) (*app.App, error) {
	return app.New(cfg, app.Options{Stderr: os.Stderr, Observer: observer, CountLaunch: countLaunch})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
