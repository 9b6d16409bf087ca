// Package commands provides the CLI commands for marketmind.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marketmind-ai/marketmind/internal/chat"
	"github.com/marketmind-ai/marketmind/internal/config"
	"github.com/marketmind-ai/marketmind/internal/event"
	"github.com/marketmind-ai/marketmind/internal/fingerprint"
	"github.com/marketmind-ai/marketmind/internal/history"
	"github.com/marketmind-ai/marketmind/internal/logging"
	"github.com/marketmind-ai/marketmind/internal/storage"
	"github.com/marketmind-ai/marketmind/internal/transport"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel   string
	prettyLogs bool
	endpoint   string
)

var rootCmd = &cobra.Command{
	Use:   "marketmind",
	Short: "marketmind - streaming market analytics assistant",
	Long: `marketmind streams answers from the Marketmind analytics assistant:
ask questions about crypto and prediction markets, watch the assistant
reason and query live data, and revisit past conversations.

Run 'marketmind ask "price of BTC"' to start a turn.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "Human-readable log output")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "Assistant endpoint name (e.g. crypto, markets)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("marketmind %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// engine bundles the wired-up pieces a command works with.
type engine struct {
	cfg        *config.Config
	controller *chat.Controller
	cache      *storage.SessionCache
	bus        *event.Bus
	endpoint   string
}

// newEngine loads configuration, initializes logging, and wires the
// session controller to the configured assistant endpoint.
func newEngine() (*engine, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(level),
		Pretty: prettyLogs || cfg.PrettyLogs,
	})

	paths := config.Paths()
	if err := paths.Ensure(); err != nil {
		return nil, err
	}
	store := storage.New(paths.StoragePath())

	anonymousID, err := fingerprint.Load(store)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprint: %w", err)
	}

	name := endpoint
	if name == "" {
		name = cfg.DefaultEndpoint
	}
	ep, err := cfg.Endpoint(name)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus()
	cache := storage.NewSessionCache(store)
	cache.Attach(bus)

	controller := chat.NewController(chat.Options{
		Streamer:    transport.NewClient(ep.URL),
		History:     history.NewClient(cfg.HistoryURL),
		Bus:         bus,
		Endpoint:    name,
		UserID:      cfg.UserID,
		AnonymousID: anonymousID,
	})

	return &engine{
		cfg:        cfg,
		controller: controller,
		cache:      cache,
		bus:        bus,
		endpoint:   name,
	}, nil
}
