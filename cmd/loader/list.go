package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/unknproject/loader/internal/inject"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog payloads grouped by game",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Catalog().Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load hacks: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()

		for _, g := range a.Catalog().List().GroupByGame() {
			fmt.Fprintf(w, "%s\n", g.Game)
			for _, v := range g.Versions {
				if v.Version != "" {
					fmt.Fprintf(w, "  %s\n", v.Version)
				}
				for _, p := range v.Payloads {
					fmt.Fprintf(w, "    %s\t%s\t%s\t%s\t%s\n",
						p.Name, p.Status, p.Author, p.TargetProcess, inject.Select(p))
				}
			}
		}
		return nil
	},
}
