package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/inference"
	mock_assessment "github.com/9ooDa/mopic/internal/mocks/assessment"
	mock_question "github.com/9ooDa/mopic/internal/mocks/question"
	mock_user "github.com/9ooDa/mopic/internal/mocks/user"
	"github.com/9ooDa/mopic/internal/question"
	"github.com/9ooDa/mopic/internal/user"
)

var reportDate = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name         string
		templatePath func(t *testing.T) string
		wantName     string
	}{
		{
			name: "uses filesystem template when available",
			templatePath: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "custom.md.go.tmpl")
				require.NoError(t, os.WriteFile(path, []byte(`Custom {{ .Date }}`), 0644))
				return path
			},
			wantName: "custom.md.go.tmpl",
		},
		{
			name:         "uses embedded template when file doesn't exist",
			templatePath: func(t *testing.T) string { return "/non/existent/report.md.go.tmpl" },
			wantName:     fallbackTemplateName,
		},
		{
			name:         "uses embedded template when no path is configured",
			templatePath: func(t *testing.T) string { return "" },
			wantName:     fallbackTemplateName,
		},
		{
			name: "uses embedded template when the file does not parse",
			templatePath: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "broken.md.go.tmpl")
				require.NoError(t, os.WriteFile(path, []byte(`{{ .Date `), 0644))
				return path
			},
			wantName: fallbackTemplateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.templatePath(t), zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, tmpl.Name())
		})
	}
}

type generatorMocks struct {
	questions *mock_question.MockRepository
	results   *mock_assessment.MockRepository
	users     *mock_user.MockRepository
}

func newGenerator(t *testing.T, outputDir string) (*Generator, generatorMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := generatorMocks{
		questions: mock_question.NewMockRepository(ctrl),
		results:   mock_assessment.NewMockRepository(ctrl),
		users:     mock_user.NewMockRepository(ctrl),
	}
	tmpl, err := ParseTemplate("", zap.NewNop())
	require.NoError(t, err)
	return NewGenerator(m.questions, m.results, m.users, tmpl, outputDir), m
}

func storedResult(qNum int, wpm float64, coherence string) assessment.TestResult {
	return assessment.TestResult{
		UserID:    1,
		Date:      reportDate,
		QNum:      qNum,
		WPM:       wpm,
		MLR:       6.5,
		Pause:     0.25,
		Grammar:   inference.Grammar(`{"phase_2":{"score":4}}`),
		MPR:       0.75,
		Coherence: coherence,
	}
}

func (m generatorMocks) expectSession(results []assessment.TestResult, score *assessment.Score, scoreErr error) {
	m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(&user.User{ID: 1, Name: "Jamie", Email: "jamie@example.com", Streak: 4}, nil)
	m.questions.EXPECT().FindByDate(gomock.Any(), reportDate).
		Return(&question.Question{Date: reportDate, Q1: "Describe your home.", Q2: "Talk about a trip.", Q3: "What do you do on weekends?"}, nil)
	m.results.EXPECT().FindTestResults(gomock.Any(), int64(1), reportDate).Return(results, nil)
	m.results.EXPECT().FindScore(gomock.Any(), int64(1), reportDate).Return(score, scoreErr)
}

func TestGenerator_Generate(t *testing.T) {
	outputDir := t.TempDir()
	g, m := newGenerator(t, outputDir)
	m.expectSession(
		[]assessment.TestResult{storedResult(1, 98, "high"), storedResult(2, 120.25, "medium"), storedResult(3, 101, "low")},
		&assessment.Score{UserID: 1, Date: reportDate, Label: assessment.LabelIM},
		nil,
	)

	path, err := g.Generate(context.Background(), 1, reportDate)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "1", "2024-05-02.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(content)
	assert.Contains(t, got, "# Speaking Test Report: 2024-05-02")
	assert.Contains(t, got, "**Test taker:** Jamie")
	assert.Contains(t, got, "**Proficiency:** IM")
	assert.Contains(t, got, "**Streak:** 4 day(s)")
	assert.Contains(t, got, "> Talk about a trip.")
	assert.Contains(t, got, "| Words per minute | 120.2 |")
	assert.Contains(t, got, "| Grammar | 4.0 |")
	assert.Contains(t, got, "| Coherence | low |")
	assert.NotContains(t, got, "Unanswered")
}

func TestGenerator_Collect(t *testing.T) {
	t.Run("partial session is not scored", func(t *testing.T) {
		g, m := newGenerator(t, t.TempDir())
		m.expectSession(
			[]assessment.TestResult{storedResult(2, 110, "medium")},
			nil,
			apierr.Errorf(apierr.ErrNotFound, "score not found"),
		)

		data, err := g.Collect(context.Background(), 1, reportDate)
		require.NoError(t, err)
		assert.Empty(t, data.Label)
		assert.Equal(t, []int{1, 3}, data.Missing)
		require.Len(t, data.Answers, 1)
		assert.Equal(t, "Talk about a trip.", data.Answers[0].Prompt)

		var buf bytes.Buffer
		require.NoError(t, g.Write(&buf, data))
		assert.Contains(t, buf.String(), "**Proficiency:** not scored")
		assert.Contains(t, buf.String(), "Unanswered: Q1, Q3")
	})

	t.Run("score lookup failure", func(t *testing.T) {
		g, m := newGenerator(t, t.TempDir())
		m.expectSession(nil, nil, errors.New("connection reset"))

		_, err := g.Collect(context.Background(), 1, reportDate)
		assert.EqualError(t, err, "FindScore() > connection reset")
	})

	t.Run("unknown user", func(t *testing.T) {
		g, m := newGenerator(t, t.TempDir())
		m.users.EXPECT().FindByID(gomock.Any(), int64(9)).Return(nil, apierr.Errorf(apierr.ErrNotFound, "user 9 not found"))

		_, err := g.Collect(context.Background(), 9, reportDate)
		assert.ErrorIs(t, err, apierr.ErrNotFound)
	})
}

func TestConvertMarkdownToPDF(t *testing.T) {
	tests := []struct {
		name       string
		setupFile  func(t *testing.T) string
		wantErrMsg string
	}{
		{
			name:       "invalid extension",
			setupFile:  func(t *testing.T) string { return "report.txt" },
			wantErrMsg: "input file must have .md extension",
		},
		{
			name:       "file not found",
			setupFile:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.md") },
			wantErrMsg: "os.ReadFile",
		},
		{
			name: "successful conversion",
			setupFile: func(t *testing.T) string {
				mdPath := filepath.Join(t.TempDir(), "2024-05-02.md")
				content := []byte("# Speaking Test Report: 2024-05-02\n\n| Metric | Value |\n|---|---|\n| Words per minute | 98.0 |\n")
				require.NoError(t, os.WriteFile(mdPath, content, 0644))
				return mdPath
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfPath, err := ConvertMarkdownToPDF(tt.setupFile(t))
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, ".pdf", filepath.Ext(pdfPath))
			_, err = os.Stat(pdfPath)
			assert.NoError(t, err)
		})
	}
}
