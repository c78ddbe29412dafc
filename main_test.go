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
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWatchLogLevelSurvivesWatcherFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	path := filepath.Join(t.TempDir(), "missing", "config.yaml")

	done := make(chan struct{})
	go func() {
		watchLogLevel(context.Background(), path, level, zap.New(core))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watchLogLevel did not return for an unwatchable path")
	}
	assert.Equal(t, 1, logs.FilterMessage("config watch stopped").Len())
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}

func TestWatchLogLevelAppliesChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600))
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchLogLevel(ctx, path, level, zap.NewNop())
		close(done)
	}()

	// Give the watcher time to register before the write.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	assert.Eventually(t, func() bool {
		return level.Level() == zapcore.DebugLevel
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}
