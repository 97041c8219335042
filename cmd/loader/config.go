package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or reset the configuration file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cfg.Path())
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the effective configuration, including defaults, to the file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", cfg.Path())
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Reset(); err != nil {
			return err
		}
		fmt.Printf("Reset %s\n", cfg.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd, configSaveCmd, configResetCmd)
}
