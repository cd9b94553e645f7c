package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/audio"
	"github.com/9ooDa/mopic/internal/bootstrap"
	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/classifier"
	"github.com/9ooDa/mopic/internal/config"
	"github.com/9ooDa/mopic/internal/database"
	"github.com/9ooDa/mopic/internal/inference/scorer"
	"github.com/9ooDa/mopic/internal/logging"
	"github.com/9ooDa/mopic/internal/question"
	"github.com/9ooDa/mopic/internal/scheduler"
	"github.com/9ooDa/mopic/internal/scoring"
	"github.com/9ooDa/mopic/internal/server"
	"github.com/9ooDa/mopic/internal/session"
	"github.com/9ooDa/mopic/internal/user"
)

const (
	shutdownTimeout    = 15 * time.Second
	resetCheckInterval = time.Minute
)

var (
	configFile string
	debugMode  bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mopic-server",
		Short:         "MOPIc daily speaking test HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging and gin debug mode")
	return rootCmd
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logging.New() > %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	app := bootstrap.New(logger, shutdownTimeout)
	srv, sched, err := newServer(cfg, app, logger)
	if err != nil {
		return err
	}

	return app.Run(ctx, func(ctx context.Context) error {
		go sched.Run(ctx)

		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.ListenAndServe() > %w", err)
		}
		return nil
	})
}

// newServer wires the dependencies and registers their shutdown hooks on app.
func newServer(cfg *config.Config, app *bootstrap.App, logger *zap.Logger) (*http.Server, *scheduler.Scheduler, error) {
	loc, err := cfg.Server.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("cfg.Server.Location() > %w", err)
	}
	clock := calendar.NewClock(loc)

	auth, err := server.NewAuthenticator(cfg.Server.JWTSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("server.NewAuthenticator() > %w", err)
	}

	transcoder := audio.NewFFmpegTranscoder(cfg.Audio, logger)
	if err := transcoder.AssertReady(); err != nil {
		return nil, nil, fmt.Errorf("transcoder.AssertReady() > %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database.Open() > %w", err)
	}
	app.AddShutdownHook("database", func(context.Context) error {
		return db.Close()
	})

	inferenceClient := scorer.NewClient(cfg.Inference, logger)
	app.AddShutdownHook("inference", func(context.Context) error {
		return inferenceClient.Close()
	})

	// The model is loaded on the first prediction.
	opts := scoring.OptionsFromConfig(cfg)
	model := classifier.NewProvider(cfg.Classifier.ModelPath, opts.Aggregation.FeatureCount(), logger)
	app.AddShutdownHook("classifier", func(context.Context) error {
		return model.Close()
	})

	userRepo := user.NewDBRepository(db)
	questionRepo := question.NewDBRepository(db)
	assessmentRepo := assessment.NewDBRepository(db)

	aggregator := scoring.NewFeatureAggregator(assessmentRepo, scoring.NewCoherenceMapping(cfg.Scoring.CoherenceMapping))
	pipeline := scoring.NewPipeline(aggregator, model, assessmentRepo, opts, logger)
	orchestrator := session.NewOrchestrator(
		questionRepo,
		assessmentRepo,
		userRepo,
		database.NewTxRunner(db),
		transcoder,
		inferenceClient,
		pipeline,
		logger,
	)

	handler := server.NewHandler(questionRepo, assessmentRepo, orchestrator, pipeline, clock, cfg.Server.MaxUploadBytes, logger)
	router := server.NewRouter(handler, auth, logger, cfg.Server.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.AddShutdownHook("http", srv.Shutdown)

	return srv, scheduler.New(userRepo, clock, resetCheckInterval, logger), nil
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}
