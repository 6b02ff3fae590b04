package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func rosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster",
		Short: "Show the ring group in the order agents are tried",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateRoster(); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tAGENT\tDESTINATION\t")
			last := len(cfg.Agents) - 1
			for i, a := range cfg.Agents {
				name := a.Name
				if i == last {
					name = color.New(color.FgHiMagenta).Sprint(a.Name + " (backup)")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t\n", i, name, a.Destination)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nUnanswered calls escalate after %s\n",
				color.New(color.FgYellow).Sprint(cfg.Routing.RingTimeout))
			return nil
		},
	}
}
