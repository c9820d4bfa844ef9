package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelRouter(t *testing.T) {
	var out, errOut bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	logger := slog.New(&levelRouter{
		level:  slog.LevelWarn,
		stdout: slog.NewTextHandler(&out, opts),
		stderr: slog.NewTextHandler(&errOut, opts),
	})

	logger.Info("dropped")
	logger.Warn("kept", "id", "TRF001")
	logger.Error("failed")

	if strings.Contains(out.String(), "dropped") {
		t.Error("info record passed a warn level router")
	}
	if !strings.Contains(out.String(), "kept") || !strings.Contains(out.String(), "TRF001") {
		t.Errorf("expected warn record on stdout, got %q", out.String())
	}
	if strings.Contains(out.String(), "failed") || !strings.Contains(errOut.String(), "failed") {
		t.Error("error record should only go to stderr")
	}

	if !logger.With("k", "v").Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("derived handler lost its level")
	}
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	if err != nil {
		t.Fatalf("generatePassword: %v", err)
	}
	b, _ := generatePassword(16)
	if len(a) != 16 || a == b {
		t.Errorf("expected two distinct 16 character passwords, got %q and %q", a, b)
	}
}
