package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List locally known sessions",
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.bus.Close()

	sessions, err := eng.cache.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no sessions yet")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, s := range sessions {
		created := time.UnixMilli(s.Time.Created).Format("2006-01-02 15:04")
		fmt.Fprintf(out, "%-8d %-8s %s  %s\n", s.ID, s.Endpoint, created, s.Title)
	}
	return nil
}
