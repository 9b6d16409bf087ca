package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the stored transcript of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	sessionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.bus.Close()

	if err := eng.controller.LoadHistory(cmd.Context(), sessionID); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, msg := range eng.controller.Messages() {
		ts := time.UnixMilli(msg.Timestamp).Format("2006-01-02 15:04")
		fmt.Fprintf(out, "[%s] %s: %s\n", ts, msg.Role, msg.Content)
	}
	return nil
}
