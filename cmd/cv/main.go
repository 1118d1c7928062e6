// Command cv shows a conversation canvas as a live graph in the terminal.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/config"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger/console"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/session"
)

var version = "0.1.0"

// app carries what every subcommand needs once flags are parsed
type app struct {
	cfg     config.Config
	logOut  io.Closer
	history *session.Store

	configPath string
	serverURL  string
	debug      bool
	logFile    string
	dbPath     string
	dbDriver   string
}

func main() {
	a := &app{}
	if err := rootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "cv",
		Short:        "Live graph view of conversation canvases",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}
	cmd.SetVersionTemplate("cv {{ .Version }}\n")

	f := cmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	f.StringVar(&a.serverURL, "server", "", "Canvas server URL")
	f.BoolVar(&a.debug, "debug", false, "Log at debug level")
	f.StringVar(&a.logFile, "log-file", "", "Log file used while the TUI owns the terminal")
	f.StringVar(&a.dbPath, "db", "", "View history database")
	f.StringVar(&a.dbDriver, "db-driver", "", "SQLite driver: sqlite3 (cgo) or sqlite (pure Go)")

	cmd.AddCommand(
		viewCmd(a),
		listCmd(a),
		exportCmd(a),
		recentCmd(a),
		healthCmd(a),
		versionCmd(a),
	)
	return cmd
}

// setup resolves configuration, applies flag overrides and starts logging
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = a.serverURL
	}
	if flags.Changed("debug") {
		cfg.Debug = a.debug
	}
	if flags.Changed("log-file") {
		cfg.LogFile = a.logFile
	}
	if flags.Changed("db") {
		cfg.DBPath = a.dbPath
	}
	if flags.Changed("db-driver") {
		cfg.DBDriver = a.dbDriver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	// The TUI owns the terminal, so the view command logs to a file.
	if cmd.Name() == "view" && isTerminal() {
		if err := a.logToFile(); err != nil {
			return err
		}
	} else {
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Debug: cfg.Debug}))
	}
	logger.Debug("Configuration resolved", "server", cfg.ServerURL, "direction", cfg.Direction, "db", cfg.DBPath)
	return nil
}

// logToFile sends logs to the configured log file
func (a *app) logToFile() error {
	if a.logOut != nil {
		return nil
	}
	out, err := openLogFile(a.cfg.LogFile)
	if err != nil {
		return err
	}
	a.logOut = out
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  a.cfg.Debug,
		Output: out,
		Prefix: "cv",
	}))
	return nil
}

func (a *app) teardown() {
	if a.history != nil {
		a.history.Close()
		a.history = nil
	}
	if a.logOut != nil {
		a.logOut.Close()
		a.logOut = nil
	}
}

// openHistory opens the view history. History is optional: failures are
// logged and nil is returned.
func (a *app) openHistory() *session.Store {
	if a.history != nil {
		return a.history
	}
	h, err := session.Open(a.cfg.DBPath, a.cfg.DBDriver)
	if err != nil {
		logger.Warn("View history unavailable", "path", a.cfg.DBPath, "driver", a.cfg.DBDriver, "error", err)
		return nil
	}
	a.history = h
	return h
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}
