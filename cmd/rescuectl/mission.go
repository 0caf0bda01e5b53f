package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rescuerespond/rescuerespond/internal/missions"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

var (
	missionInput missions.MissionInput
	missionYes   bool
)

var missionCmd = &cobra.Command{
	Use:   "mission",
	Short: "Mission management commands",
}

var missionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an active mission",
	Long: `Create an active mission.

When --map-url is empty a CalTopo map is created by the server, with the last
known point and command post as markers. Coordinates are accepted as decimal
degrees ("61.1047, -149.7955") or degrees and decimal minutes
("61°06.28 -149°47.73", "61 06.28 N, 149 47.73 W").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := newClient()
		if err != nil {
			return err
		}

		confirm := promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
		if missionYes {
			confirm = func(error) bool { return true }
		}

		m, err := missions.NewManager(cl.Missions(), cl).Create(cmd.Context(), missionInput, confirm)
		if err != nil {
			return describe(err)
		}

		printMission(cmd.OutOrStdout(), m)

		return nil
	},
}

var missionCloseAllCmd = &cobra.Command{
	Use:   "close-all",
	Short: "Close every active mission",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := newClient()
		if err != nil {
			return err
		}

		n, err := missions.NewManager(cl.Missions(), nil).CloseAll(cmd.Context())
		if err != nil {
			return describe(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Closed %d mission(s)\n", n)

		return nil
	},
}

var missionEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change title, location or map url of a mission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := newClient()
		if err != nil {
			return err
		}

		var e missions.MissionEdit

		if cmd.Flags().Changed("title") {
			e.Title = &missionInput.Title
		}

		if cmd.Flags().Changed("location") {
			e.Location = &missionInput.Location
		}

		if cmd.Flags().Changed("map-url") {
			e.MapURL = &missionInput.MapURL
		}

		m, err := missions.NewManager(cl.Missions(), nil).Edit(cmd.Context(), args[0], e)
		if err != nil {
			return describe(err)
		}

		printMission(cmd.OutOrStdout(), m)

		return nil
	},
}

func init() {
	missionCreateCmd.Flags().StringVar(&missionInput.Title, "title", "", "mission title")
	missionCreateCmd.Flags().StringVar(&missionInput.Location, "location", "", "mission location")
	missionCreateCmd.Flags().StringVar(&missionInput.MapURL, "map-url", "", "existing map url")
	missionCreateCmd.Flags().StringVar(&missionInput.LKP, "lkp", "", "last known point")
	missionCreateCmd.Flags().StringVar(&missionInput.ICP, "icp", "", "incident command post")
	missionCreateCmd.Flags().BoolVarP(&missionYes, "yes", "y", false, "proceed without a map when it can't be created")

	missionEditCmd.Flags().StringVar(&missionInput.Title, "title", "", "mission title")
	missionEditCmd.Flags().StringVar(&missionInput.Location, "location", "", "mission location")
	missionEditCmd.Flags().StringVar(&missionInput.MapURL, "map-url", "", "map url")

	missionCmd.AddCommand(missionCreateCmd, missionCloseAllCmd, missionEditCmd)
	rootCmd.AddCommand(missionCmd)
}

// promptConfirm asks whether to go on without a map.
func promptConfirm(in io.Reader, out io.Writer) func(err error) bool {
	reader := bufio.NewReader(in)

	return func(err error) bool {
		fmt.Fprintf(out, "Failed to auto-create map: %s\nProceed without a map? [y/N] ", err)

		answer, _ := reader.ReadString('\n')

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

// describe turns store errors into messages for the operator.
func describe(err error) error {
	var ve *store.ValidationError

	switch {
	case errors.As(err, &ve):
		lines := make([]string, 0, len(ve.Fields))
		for k, v := range ve.Fields {
			lines = append(lines, k+": "+v)
		}

		sort.Strings(lines)

		return errors.New(strings.Join(lines, "; "))
	case errors.Is(err, store.ErrForbidden):
		return errors.New("only admins can manage missions")
	case errors.Is(err, missions.ErrCancelled):
		return errors.New("mission is not created")
	default:
		return err
	}
}

func printMission(w io.Writer, m *model.Mission) {
	if m == nil {
		return
	}

	fmt.Fprintf(w, "ID:       %s\n", m.ID)
	fmt.Fprintf(w, "Title:    %s\n", m.Title)
	fmt.Fprintf(w, "Location: %s\n", m.Location)
	fmt.Fprintf(w, "Status:   %s\n", m.Status)

	if m.MapURL != "" {
		fmt.Fprintf(w, "Map:      %s\n", m.MapURL)
	}
}
