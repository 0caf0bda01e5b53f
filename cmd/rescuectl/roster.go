package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rescuerespond/rescuerespond/internal/missions"
	"github.com/rescuerespond/rescuerespond/internal/response"
	"github.com/rescuerespond/rescuerespond/pkg/eta"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Show the roster of the active mission",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := newClient()
		if err != nil {
			return err
		}

		tracker := missions.NewTracker(cl.Missions())
		if err := tracker.Init(cmd.Context()); err != nil {
			return describe(err)
		}

		m := tracker.Current()
		if m == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No active mission.")
			return nil
		}

		r := response.NewRoster(cl.Responses())
		if err := r.SetMission(cmd.Context(), m.ID); err != nil {
			return describe(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s @ %s\n", m.Title, m.Location)
		printRoster(cmd.OutOrStdout(), r.Ranked(time.Now()), loadConfig().TimeFormat())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(rosterCmd)
}

func printRoster(w io.Writer, entries []*model.RosterEntry, format string) {
	fmt.Fprintf(w, "\n%-24s  %-14s  %s\n", "NAME", "STATUS", "ETA")
	fmt.Fprintln(w, strings.Repeat("-", 50))

	for _, e := range entries {
		v := ""
		if e.Response.Status == model.StatusResponding {
			v = eta.Display(model.FirstString(e.Response.ETA, eta.TBD), format)
		}

		fmt.Fprintf(w, "%-24s  %-14s  %s\n", e.Name(), e.Response.Status.Label(), v)
	}

	fmt.Fprintf(w, "\nTotal: %d\n", len(entries))
}
