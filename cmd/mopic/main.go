package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/config"
	"github.com/9ooDa/mopic/internal/database"
	"github.com/9ooDa/mopic/internal/logging"
)

var (
	configFile string
	debugMode  bool
	logger     = zap.NewNop()
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "mopic",
		Short:         "Operator tools for the MOPIc daily speaking test",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := setupLogger(debugMode)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}
	rootCommand.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCommand.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")

	rootCommand.AddCommand(
		newMigrateCommand(),
		newQuestionsCommand(),
		newScoreCommand(),
		newReportCommand(),
		newTokenCommand(),
	)
	return rootCommand
}

// setupLogger returns a console logger at debug level in debug mode.
func setupLogger(debugMode bool) (*zap.Logger, error) {
	level := "info"
	if debugMode {
		level = "debug"
	}
	l, err := logging.New(config.LoggingConfig{Level: level})
	if err != nil {
		return nil, fmt.Errorf("logging.New() > %w", err)
	}
	return l, nil
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

func openDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Open() > %w", err)
	}
	return db, nil
}

// sessionFlags are the --user and --date flags shared by per-session commands.
type sessionFlags struct {
	userID int64
	date   string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.userID, "user", 0, "user ID")
	cmd.Flags().StringVar(&f.date, "date", "", "session date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("user")
}

// resolve returns the session date, defaulting to today in the server time zone.
func (f *sessionFlags) resolve(cfg *config.Config) (time.Time, error) {
	if f.userID <= 0 {
		return time.Time{}, fmt.Errorf("invalid user ID %d", f.userID)
	}
	if f.date != "" {
		return calendar.Parse(f.date)
	}
	loc, err := cfg.Server.Location()
	if err != nil {
		return time.Time{}, fmt.Errorf("cfg.Server.Location() > %w", err)
	}
	return calendar.NewClock(loc).Today(), nil
}
