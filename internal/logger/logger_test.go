package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{JSON: true, Out: buf})

	log.Info().Str("bank", "KBank").Msg("scanned")

	out := buf.String()
	if !strings.Contains(out, `"message":"scanned"`) || !strings.Contains(out, `"bank":"KBank"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestNewConsole(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Out: buf})

	log.Info().Msg("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected console output to contain message, got %q", buf.String())
	}
}

func TestLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "warn", JSON: true, Out: buf})

	log.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Warn().Msg("loud")
	if buf.Len() == 0 {
		t.Error("expected warn output")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), New(Options{JSON: true, Out: buf}))

	log := FromContext(ctx)
	log.Info().Msg("from context")
	if buf.Len() == 0 {
		t.Error("expected output from the stored logger")
	}

	if def := FromContext(context.Background()); def.GetLevel() != zerolog.InfoLevel {
		t.Errorf("default logger level: got %v, want info", def.GetLevel())
	}
}
