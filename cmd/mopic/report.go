package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/question"
	"github.com/9ooDa/mopic/internal/report"
	"github.com/9ooDa/mopic/internal/user"
)

func newReportCommand() *cobra.Command {
	var flags sessionFlags
	var generatePDF bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a Markdown report of one session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			date, err := flags.resolve(cfg)
			if err != nil {
				return err
			}
			tmpl, err := report.ParseTemplate(cfg.Templates.ReportTemplate, logger)
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

			generator := report.NewGenerator(
				question.NewDBRepository(db),
				assessment.NewDBRepository(db),
				user.NewDBRepository(db),
				tmpl,
				cfg.Outputs.ReportDirectory,
			)
			path, err := generator.Generate(cmd.Context(), flags.userID, date)
			if err != nil {
				return fmt.Errorf("generator.Generate() > %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, "Report written to: ")
			color.New(color.Bold).Fprintln(out, path)

			if generatePDF {
				pdfPath, err := report.ConvertMarkdownToPDF(path)
				if err != nil {
					return fmt.Errorf("ConvertMarkdownToPDF(%s) > %w", path, err)
				}
				fmt.Fprint(out, "PDF generated at: ")
				color.New(color.Bold).Fprintln(out, pdfPath)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&generatePDF, "pdf", false, "Also convert the report to PDF")
	return cmd
}
