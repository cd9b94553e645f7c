// Package audio converts uploaded answers into the waveform the inference service expects.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/config"
)

//go:generate mockgen -source=transcoder.go -destination=../mocks/audio/mock_transcoder.go -package=mock_audio

// Transcoder stores an uploaded answer as a mono WAV artifact.
type Transcoder interface {
	// Transcode returns the path of the artifact created for the answer.
	Transcode(ctx context.Context, userID int64, qNum int, audio io.Reader) (string, error)
	// Discard removes an artifact that will not be referenced by a result.
	Discard(path string) error
}

// FFmpegTranscoder runs ffmpeg to resample answers.
type FFmpegTranscoder struct {
	ffmpegPath string
	uploadDir  string
	sampleRate int
	timeout    time.Duration
	newID      func() string
	logger     *zap.Logger
}

// NewFFmpegTranscoder creates a transcoder from the audio config.
func NewFFmpegTranscoder(cfg config.AudioConfig, logger *zap.Logger) *FFmpegTranscoder {
	return &FFmpegTranscoder{
		ffmpegPath: cfg.FFmpegPath,
		uploadDir:  cfg.UploadDirectory,
		sampleRate: cfg.TargetSampleRate,
		timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		newID:      uuid.NewString,
		logger:     logger.With(zap.String("component", "transcoder")),
	}
}

// AssertReady checks that the ffmpeg binary can be found.
func (t *FFmpegTranscoder) AssertReady() error {
	if _, err := exec.LookPath(t.ffmpegPath); err != nil {
		return fmt.Errorf("missing required binary %q: %w", t.ffmpegPath, err)
	}
	return nil
}

// Transcode writes audio to <upload dir>/<user id>/<uuid>_<q_num>.wav.
// Every failure is reported as a retryable audio processing error and leaves no file behind.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, userID int64, qNum int, audio io.Reader) (string, error) {
	dir := filepath.Join(t.uploadDir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apierr.Errorf(apierr.ErrAudioProcessing, "create upload directory: %w", err)
	}

	base := fmt.Sprintf("%s_%d", t.newID(), qNum)
	srcPath := filepath.Join(dir, base+".upload")
	outPath := filepath.Join(dir, base+".wav")

	if err := writeFile(srcPath, audio); err != nil {
		return "", apierr.Errorf(apierr.ErrAudioProcessing, "store upload: %w", err)
	}
	defer func() {
		_ = os.Remove(srcPath)
	}()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := []string{
		"-y",
		"-i", srcPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(t.sampleRate),
		"-f", "wav", outPath,
	}
	start := time.Now()
	out, err := exec.CommandContext(ctx, t.ffmpegPath, args...).CombinedOutput()
	if err != nil {
		_ = os.Remove(outPath)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apierr.Errorf(apierr.ErrAudioProcessing, "ffmpeg timed out after %s", t.timeout)
		}
		t.logger.Warn("ffmpeg failed", zap.Error(err), zap.ByteString("output", out))
		return "", apierr.Errorf(apierr.ErrAudioProcessing, "ffmpeg transcode failed: %w", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", apierr.Errorf(apierr.ErrAudioProcessing, "audio output missing at %s", outPath)
	}

	t.logger.Debug("transcoded answer",
		zap.Int64("user_id", userID),
		zap.Int("q_num", qNum),
		zap.String("path", outPath),
		zap.Duration("elapsed", time.Since(start)))
	return outPath, nil
}

// Discard removes path. A missing file is not an error.
func (t *FFmpegTranscoder) Discard(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
