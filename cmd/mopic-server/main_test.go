package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/bootstrap"
	"github.com/9ooDa/mopic/internal/config"
	"github.com/9ooDa/mopic/internal/testutil"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	configFile = testutil.SetupTestConfig(t, tmpDir)
	t.Cleanup(func() { configFile = "" })

	cfg, err := loadConfig()
	require.NoError(t, err)

	ffmpeg := filepath.Join(tmpDir, "ffmpeg")
	require.NoError(t, os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0755))
	cfg.Audio.FFmpegPath = ffmpeg
	return cfg
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()

	assert.Equal(t, "mopic-server", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotNil(t, cmd.Flags().Lookup("debug"))
	assert.NotNil(t, cmd.RunE)
}

func TestNewServer(t *testing.T) {
	t.Run("wires the server", func(t *testing.T) {
		cfg := loadTestConfig(t)
		app := bootstrap.New(zap.NewNop(), time.Second)

		srv, sched, err := newServer(cfg, app, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, ":18000", srv.Addr)
		assert.NotNil(t, srv.Handler)
		assert.NotNil(t, sched)

		// Runs the registered hooks without ever listening.
		require.NoError(t, app.Run(context.Background(), func(context.Context) error { return nil }))
	})

	t.Run("jwt secret is required", func(t *testing.T) {
		cfg := loadTestConfig(t)
		cfg.Server.JWTSecret = ""

		_, _, err := newServer(cfg, bootstrap.New(zap.NewNop(), time.Second), zap.NewNop())
		assert.ErrorContains(t, err, "jwt secret is empty")
	})

	t.Run("ffmpeg must be installed", func(t *testing.T) {
		cfg := loadTestConfig(t)
		cfg.Audio.FFmpegPath = filepath.Join(t.TempDir(), "no-ffmpeg")

		_, _, err := newServer(cfg, bootstrap.New(zap.NewNop(), time.Second), zap.NewNop())
		assert.ErrorContains(t, err, "transcoder.AssertReady()")
	})
}
