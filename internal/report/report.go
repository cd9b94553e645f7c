// Package report renders a single session as Markdown and PDF.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/mandolyte/mdtopdf"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/question"
	"github.com/9ooDa/mopic/internal/user"
)

// Data is the template input.
type Data struct {
	Date    string
	User    user.User
	Label   assessment.Label
	Answers []Answer
	Missing []int
}

// Answer is one scored answer with its prompt.
type Answer struct {
	QNum      int
	Prompt    string
	WPM       float64
	MLR       float64
	Pause     float64
	Grammar   float64
	MPR       float64
	Coherence string
}

// Generator writes session reports.
type Generator struct {
	questions question.Repository
	results   assessment.Repository
	users     user.Repository
	tmpl      *template.Template
	outputDir string
}

// NewGenerator creates a Generator writing below outputDir.
func NewGenerator(questions question.Repository, results assessment.Repository, users user.Repository, tmpl *template.Template, outputDir string) *Generator {
	return &Generator{
		questions: questions,
		results:   results,
		users:     users,
		tmpl:      tmpl,
		outputDir: outputDir,
	}
}

// Collect loads everything the report shows. A session without a score is
// reported as not scored.
func (g *Generator) Collect(ctx context.Context, userID int64, date time.Time) (*Data, error) {
	u, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("FindByID() > %w", err)
	}
	q, err := g.questions.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("FindByDate() > %w", err)
	}
	results, err := g.results.FindTestResults(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("FindTestResults() > %w", err)
	}

	data := &Data{Date: calendar.Format(date), User: *u}
	score, err := g.results.FindScore(ctx, userID, date)
	switch {
	case err == nil:
		data.Label = score.Label
	case !errors.Is(err, apierr.ErrNotFound):
		return nil, fmt.Errorf("FindScore() > %w", err)
	}

	answered := make(map[int]bool, len(results))
	for _, r := range results {
		prompt, err := q.Prompt(r.QNum)
		if err != nil {
			return nil, err
		}
		grammar, err := r.Grammar.Phase2Score()
		if err != nil {
			return nil, fmt.Errorf("result q%d: %w", r.QNum, err)
		}
		data.Answers = append(data.Answers, Answer{
			QNum:      r.QNum,
			Prompt:    prompt,
			WPM:       r.WPM,
			MLR:       r.MLR,
			Pause:     r.Pause,
			Grammar:   grammar,
			MPR:       r.MPR,
			Coherence: r.Coherence,
		})
		answered[r.QNum] = true
	}
	for qNum := 1; qNum <= question.SlotCount; qNum++ {
		if !answered[qNum] {
			data.Missing = append(data.Missing, qNum)
		}
	}
	return data, nil
}

// Write renders data to w.
func (g *Generator) Write(w io.Writer, data *Data) error {
	if err := g.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("tmpl.Execute() > %w", err)
	}
	return nil
}

// Generate writes <outputDir>/<userID>/<date>.md and returns its path.
func (g *Generator) Generate(ctx context.Context, userID int64, date time.Time) (string, error) {
	data, err := g.Collect(ctx, userID, date)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(g.outputDir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
	}
	path := filepath.Join(dir, data.Date+".md")
	output, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("os.Create(%s) > %w", path, err)
	}
	defer func() {
		_ = output.Close()
	}()

	if err := g.Write(output, data); err != nil {
		return "", err
	}
	return path, nil
}

// ConvertMarkdownToPDF converts a markdown file to a PDF next to it.
func ConvertMarkdownToPDF(markdownPath string) (string, error) {
	if !strings.HasSuffix(markdownPath, ".md") {
		return "", fmt.Errorf("input file must have .md extension: %s", markdownPath)
	}

	content, err := os.ReadFile(markdownPath)
	if err != nil {
		return "", fmt.Errorf("os.ReadFile(%s) > %w", markdownPath, err)
	}

	pdfPath := strings.TrimSuffix(markdownPath, ".md") + ".pdf"
	renderer := mdtopdf.NewPdfRenderer("P", "A4", pdfPath, "", nil, mdtopdf.LIGHT)
	if err := renderer.Process(content); err != nil {
		return "", fmt.Errorf("renderer.Process() > %w", err)
	}

	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return pdfPath, nil
	}
	return absPath, nil
}
