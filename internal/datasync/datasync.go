// Package datasync provides import orchestration between question-set YAML files and the database.
package datasync

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/question"
)

// QuestionSet is one day's prompts as written in an import file.
type QuestionSet struct {
	Date      string   `yaml:"date"`
	Questions []string `yaml:"questions"`
}

// File is the layout of a question-set import file.
type File struct {
	QuestionSets []QuestionSet `yaml:"question_sets"`
}

// ImportResult tracks counts for each import operation.
type ImportResult struct {
	QuestionsNew     int
	QuestionsSkipped int
	QuestionsUpdated int
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun         bool
	UpdateExisting bool
}

// Importer reads question-set YAML data and writes to DB.
type Importer struct {
	questionRepo question.Repository
	writer       io.Writer
}

// NewImporter creates a new Importer.
func NewImporter(questionRepo question.Repository, writer io.Writer) *Importer {
	return &Importer{
		questionRepo: questionRepo,
		writer:       writer,
	}
}

// ReadFile decodes a question-set file.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s) > %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var file File
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if err == io.EOF {
			return &file, nil
		}
		return nil, fmt.Errorf("decode %s > %w", path, err)
	}
	return &file, nil
}

// ImportQuestions creates the question sets that do not exist yet.
// Existing dates are skipped unless UpdateExisting is set.
func (imp *Importer) ImportQuestions(ctx context.Context, sets []QuestionSet, opts ImportOptions) (*ImportResult, error) {
	parsed, err := parseSets(sets)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return &ImportResult{}, nil
	}

	dates := make([]time.Time, len(parsed))
	for i, q := range parsed {
		dates[i] = q.Date
	}
	existing, err := imp.questionRepo.FindByDates(ctx, dates)
	if err != nil {
		return nil, fmt.Errorf("FindByDates() > %w", err)
	}
	existingByDate := make(map[string]question.Question, len(existing))
	for _, q := range existing {
		existingByDate[calendar.Format(q.Date)] = q
	}

	var result ImportResult
	var toCreate, toUpdate []*question.Question
	for _, q := range parsed {
		day := calendar.Format(q.Date)
		current, ok := existingByDate[day]
		switch {
		case !ok:
			fmt.Fprintf(imp.writer, "  [NEW]  %s\n", day)
			toCreate = append(toCreate, q)
			result.QuestionsNew++
		case !opts.UpdateExisting || samePrompts(current, *q):
			fmt.Fprintf(imp.writer, "  [SKIP]  %s\n", day)
			result.QuestionsSkipped++
		default:
			fmt.Fprintf(imp.writer, "  [UPDATE]  %s\n", day)
			toUpdate = append(toUpdate, q)
			result.QuestionsUpdated++
		}
	}

	if opts.DryRun {
		return &result, nil
	}
	if len(toCreate) > 0 {
		if err := imp.questionRepo.BatchCreate(ctx, toCreate); err != nil {
			return nil, fmt.Errorf("BatchCreate() > %w", err)
		}
	}
	if len(toUpdate) > 0 {
		if err := imp.questionRepo.BatchUpdate(ctx, toUpdate); err != nil {
			return nil, fmt.Errorf("BatchUpdate() > %w", err)
		}
	}
	return &result, nil
}

func parseSets(sets []QuestionSet) ([]*question.Question, error) {
	seen := make(map[string]bool, len(sets))
	questions := make([]*question.Question, 0, len(sets))
	for i, set := range sets {
		date, err := calendar.Parse(set.Date)
		if err != nil {
			return nil, fmt.Errorf("question_sets[%d]: invalid date %q", i, set.Date)
		}
		day := calendar.Format(date)
		if seen[day] {
			return nil, fmt.Errorf("question_sets[%d]: duplicate date %s", i, day)
		}
		seen[day] = true

		if len(set.Questions) != question.SlotCount {
			return nil, fmt.Errorf("question_sets[%d]: %s has %d questions, want %d", i, day, len(set.Questions), question.SlotCount)
		}
		for j, prompt := range set.Questions {
			if strings.TrimSpace(prompt) == "" {
				return nil, fmt.Errorf("question_sets[%d]: %s question %d is empty", i, day, j+1)
			}
		}
		questions = append(questions, &question.Question{
			Date: date,
			Q1:   set.Questions[0],
			Q2:   set.Questions[1],
			Q3:   set.Questions[2],
		})
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].Date.Before(questions[j].Date)
	})
	return questions, nil
}

func samePrompts(a, b question.Question) bool {
	return a.Q1 == b.Q1 && a.Q2 == b.Q2 && a.Q3 == b.Q3
}
