package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

var resetStats bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show launch and injection counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if resetStats {
			if err := a.Store().ResetStatistics(); err != nil {
				return err
			}
			fmt.Println("Statistics reset.")
			return nil
		}

		st := a.Store().Statistics()
		fmt.Printf("Opened: %d\n", st.OpenedCount)
		fmt.Printf("Injections: %d\n", st.TotalInjections())
		for _, name := range slices.Sorted(maps.Keys(st.InjectCounts)) {
			fmt.Printf("  %s: %d\n", name, st.InjectCounts[name])
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&resetStats, "reset", false, "clear all counters")
}
