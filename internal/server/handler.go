// Package server exposes the daily test over HTTP.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/logging"
	"github.com/9ooDa/mopic/internal/question"
	"github.com/9ooDa/mopic/internal/scoring"
	"github.com/9ooDa/mopic/internal/session"
	"github.com/9ooDa/mopic/internal/user"
)

// Handler serves the test endpoints.
type Handler struct {
	questions      question.Repository
	results        assessment.Repository
	submitter      session.Submitter
	scorer         scoring.Scorer
	clock          calendar.Clock
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(
	questions question.Repository,
	results assessment.Repository,
	submitter session.Submitter,
	scorer scoring.Scorer,
	clock calendar.Clock,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		questions:      questions,
		results:        results,
		submitter:      submitter,
		scorer:         scorer,
		clock:          clock,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

type submitResponse struct {
	Result     *assessment.TestResult `json:"result"`
	Session    sessionResponse        `json:"session"`
	User       *user.User             `json:"user,omitempty"`
	Score      *assessment.Score      `json:"score,omitempty"`
	ScoreError *errorBody             `json:"score_error,omitempty"`
}

type sessionResponse struct {
	Date     string                   `json:"date"`
	Status   assessment.SessionStatus `json:"status"`
	Answered []int                    `json:"answered"`
}

func newSessionResponse(s *assessment.SessionState) sessionResponse {
	return sessionResponse{
		Date:     calendar.Format(s.Date),
		Status:   s.Status,
		Answered: s.AnsweredSlots(),
	}
}

// GetTest returns today's questions.
func (h *Handler) GetTest(c *gin.Context) {
	q, err := h.questions.FindByDate(c.Request.Context(), h.clock.Today())
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			err = apierr.Wrap(apierr.ErrNotFound, errors.New("Question Not Found"))
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// PostTest accepts the recorded answer to one of today's questions.
func (h *Handler) PostTest(c *gin.Context) {
	userID := c.GetInt64(logging.UserIDKey)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			abortWithError(c, apierr.Errorf(apierr.ErrInvalidRequest, "upload exceeds %d bytes", maxErr.Limit))
			return
		}
		abortWithError(c, apierr.Errorf(apierr.ErrInvalidRequest, "multipart field \"file\" is required"))
		return
	}
	qNum, err := parseQNum(c.PostForm("q_num"), fileHeader.Filename)
	if err != nil {
		abortWithError(c, err)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer func() {
		_ = f.Close()
	}()

	outcome, err := h.submitter.SubmitAnswer(c.Request.Context(), session.Submission{
		UserID: userID,
		Date:   h.clock.Today(),
		QNum:   qNum,
		Audio:  f,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := submitResponse{
		Result:  outcome.Result,
		Session: newSessionResponse(outcome.Session),
		User:    outcome.User,
		Score:   outcome.Score,
	}
	if outcome.ScoreErr != nil {
		body := newErrorBody(outcome.ScoreErr)
		resp.ScoreError = &body
	}
	c.JSON(http.StatusCreated, resp)
}

// GetScore scores today's session.
func (h *Handler) GetScore(c *gin.Context) {
	score, err := h.scorer.Run(c.Request.Context(), c.GetInt64(logging.UserIDKey), h.clock.Today())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// GetResult returns the score of the session on :date.
func (h *Handler) GetResult(c *gin.Context) {
	date, err := dateParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	score, err := h.results.FindScore(c.Request.Context(), c.GetInt64(logging.UserIDKey), date)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// GetQuestionResult returns the result of question :q_num on :date.
func (h *Handler) GetQuestionResult(c *gin.Context) {
	date, err := dateParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	qNum, err := strconv.Atoi(c.Param("q_num"))
	if err != nil || !question.ValidSlot(qNum) {
		abortWithError(c, apierr.Errorf(apierr.ErrInvalidQuestionNumber, "q_num %q is not 1, 2 or 3", c.Param("q_num")))
		return
	}
	result, err := h.results.FindTestResult(c.Request.Context(), c.GetInt64(logging.UserIDKey), date, qNum)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSession returns the progress of the session on :date.
func (h *Handler) GetSession(c *gin.Context) {
	date, err := dateParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	state, err := h.results.FindSession(c.Request.Context(), c.GetInt64(logging.UserIDKey), date)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(state))
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func dateParam(c *gin.Context) (time.Time, error) {
	date, err := calendar.Parse(c.Param("date"))
	if err != nil {
		return time.Time{}, apierr.Errorf(apierr.ErrInvalidRequest, "date %q is not YYYY-MM-DD", c.Param("date"))
	}
	return date, nil
}

// parseQNum reads q_num from the form field, falling back to the last
// character of the file name before its extension, as in "answer_2.wav".
func parseQNum(field, filename string) (int, error) {
	if field != "" {
		qNum, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return 0, apierr.Errorf(apierr.ErrInvalidQuestionNumber, "q_num %q is not a number", field)
		}
		return qNum, nil
	}
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return 0, apierr.Errorf(apierr.ErrInvalidQuestionNumber, "cannot read q_num from file name %q", filename)
	}
	qNum, err := strconv.Atoi(stem[len(stem)-1:])
	if err != nil {
		return 0, apierr.Errorf(apierr.ErrInvalidQuestionNumber, "cannot read q_num from file name %q", filename)
	}
	return qNum, nil
}
