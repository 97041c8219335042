package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unknproject/loader/internal/domain"
)

var helpersCmd = &cobra.Command{
	Use:   "helpers",
	Short: "Manage the cached manual map injectors",
}

var helpersCleanCmd = &cobra.Command{
	Use:       "clean [x86|x64|both]",
	Short:     "Delete cached manual map injectors so they are downloaded again",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"x86", "x64", "both"},
	RunE: func(cmd *cobra.Command, args []string) error {
		which := "both"
		if len(args) == 1 {
			which = args[0]
		}
		arches, err := domain.ParseArch(which)
		if err != nil {
			return err
		}

		a, err := newApp(nil, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Helpers().Delete(arches...); err != nil {
			return err
		}
		fmt.Printf("Deleted %s injector.\n", which)
		return nil
	},
}

func init() {
	helpersCmd.AddCommand(helpersCleanCmd)
}
