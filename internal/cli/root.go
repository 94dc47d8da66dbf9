package cli

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/me/dsviz/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagSession   string
	flagDebug     bool
	flagNoColor   bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking DSVIZ_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("DSVIZ_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// defaultSession returns the session id, checking DSVIZ_SESSION env var first.
func defaultSession() string {
	if s := os.Getenv("DSVIZ_SESSION"); s != "" {
		return s
	}
	return "cli"
}

// NewRootCmd creates the root cobra command for the dsviz CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dsviz",
		Short: "dsviz: priority CPU scheduling simulator",
		Long:  "dsviz adds processes to a scheduling session, computes preemptive priority schedules, and renders Gantt charts.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			if flagNoColor {
				color.NoColor = true
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, flagSession, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "dsviz server URL (or DSVIZ_SERVER env)")
	root.PersistentFlags().StringVar(&flagSession, "session", defaultSession(), "Scheduling session id (or DSVIZ_SESSION env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newAddCmd(),
		newListCmd(),
		newScheduleCmd(),
		newResetCmd(),
		newRunsCmd(),
		newSimulateCmd(),
	)

	return root
}
