package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/marketmind-ai/marketmind/internal/chat"
	"github.com/marketmind-ai/marketmind/pkg/types"
)

var (
	askChart   bool
	askDeeper  bool
	askSession int64
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask the assistant one question and stream the answer",
	Long: `Ask the assistant one question and stream the answer to stdout.

Examples:
  marketmind ask "price of BTC"
  marketmind ask -e markets "odds on the next Fed cut"
  marketmind ask --chart "ETH volume last 30 days"
  marketmind ask --session 1042 "and compared to SOL?"

Press Ctrl-C to stop generation; partial output already shown is kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askChart, "chart", false, "Request chart data with the answer")
	askCmd.Flags().BoolVar(&askDeeper, "deeper", false, "Enable deeper-research mode")
	askCmd.Flags().Int64VarP(&askSession, "session", "s", 0, "Continue an existing session")
}

func runAsk(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.bus.Close()

	if askSession != 0 {
		if err := eng.controller.LoadHistory(cmd.Context(), askSession); err != nil {
			return err
		}
	}

	printer := newStreamPrinter(cmd.OutOrStdout())
	eng.controller.OnUpdate = printer.render

	// Ctrl-C aborts the turn through the cancellation token rather
	// than killing the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	turnDone := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			eng.controller.Stop()
		case <-turnDone:
		}
	}()

	question := strings.Join(args, " ")
	err = eng.controller.Send(cmd.Context(), question, chat.SendOptions{
		ChartMode:      askChart,
		DeeperResearch: askDeeper,
	})
	close(turnDone)
	fmt.Fprintln(cmd.OutOrStdout())

	if err != nil {
		return err
	}
	if notice := eng.controller.LastError(); notice != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), notice)
	}
	if id := eng.controller.SessionID(); id != 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "session %d\n", id)
	}
	return nil
}

// streamPrinter renders transcript snapshots incrementally: each update
// prints only the not-yet-printed tail of the assistant's answer.
type streamPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	printed int
	steps   int
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out}
}

func (p *streamPrinter) render(msgs []types.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.Role != types.RoleAssistant {
		return
	}

	for _, step := range last.ThoughtProcess[min(p.steps, len(last.ThoughtProcess)):] {
		fmt.Fprintf(p.out, "· %s\n", step.Name)
	}
	if len(last.ThoughtProcess) > p.steps {
		p.steps = len(last.ThoughtProcess)
	}

	if len(last.Content) > p.printed {
		fmt.Fprint(p.out, last.Content[p.printed:])
		p.printed = len(last.Content)
	}
}
