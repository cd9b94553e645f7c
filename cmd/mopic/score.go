package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/classifier"
	"github.com/9ooDa/mopic/internal/scoring"
)

func newScoreCommand() *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a completed session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			date, err := flags.resolve(cfg)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = db.Close()
			}()

			opts := scoring.OptionsFromConfig(cfg)
			model := classifier.NewProvider(cfg.Classifier.ModelPath, opts.Aggregation.FeatureCount(), logger)
			defer func() {
				_ = model.Close()
			}()

			results := assessment.NewDBRepository(db)
			aggregator := scoring.NewFeatureAggregator(results, scoring.NewCoherenceMapping(cfg.Scoring.CoherenceMapping))
			pipeline := scoring.NewPipeline(aggregator, model, results, opts, logger)

			score, err := pipeline.Run(cmd.Context(), flags.userID, date)
			if err != nil {
				return fmt.Errorf("pipeline.Run() > %w", err)
			}
			printScore(cmd, score)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printScore(cmd *cobra.Command, score *assessment.Score) {
	fmt.Fprintf(cmd.OutOrStdout(), "User %d on %s: ", score.UserID, calendar.Format(score.Date))
	color.New(color.FgGreen, color.Bold).Fprintln(cmd.OutOrStdout(), score.Label)
}
