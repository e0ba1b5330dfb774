package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"  WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo}, // typos land on info, not debug
	}
	for _, tc := range cases {
		if got := levelFromString(tc.in); got != tc.want {
			t.Fatalf("levelFromString(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewHonorsLevel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := New("error")
	if logger.Enabled(ctx, slog.LevelWarn) {
		t.Fatalf("warn must be disabled at error level")
	}
	if !logger.Enabled(ctx, slog.LevelError) {
		t.Fatalf("error must be enabled at error level")
	}
}
