package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/9ooDa/mopic/internal/datasync"
	"github.com/9ooDa/mopic/internal/question"
)

func newQuestionsCommand() *cobra.Command {
	questionsCmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage daily question sets",
	}
	questionsCmd.AddCommand(newQuestionsImportCommand())
	return questionsCmd
}

func newQuestionsImportCommand() *cobra.Command {
	var dryRun bool
	var updateExisting bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import question sets from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := datasync.ReadFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
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

			out := cmd.OutOrStdout()
			importer := datasync.NewImporter(question.NewDBRepository(db), out)
			opts := datasync.ImportOptions{
				DryRun:         dryRun,
				UpdateExisting: updateExisting,
			}
			result, err := importer.ImportQuestions(cmd.Context(), file.QuestionSets, opts)
			if err != nil {
				return fmt.Errorf("importer.ImportQuestions() > %w", err)
			}
			printImportSummary(cmd, result, opts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview changes without modifying the database")
	cmd.Flags().BoolVar(&updateExisting, "update-existing", false, "Update existing dates that no answer refers to yet")
	return cmd
}

func printImportSummary(cmd *cobra.Command, result *datasync.ImportResult, opts datasync.ImportOptions) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	bold.Fprintln(out, "\nImport Summary:")
	if opts.DryRun {
		color.New(color.FgYellow).Fprintln(out, "  (dry-run mode, no changes made)")
	}
	fmt.Fprintf(out, "  Question sets: %d new, %d skipped, %d updated\n",
		result.QuestionsNew, result.QuestionsSkipped, result.QuestionsUpdated)
}
