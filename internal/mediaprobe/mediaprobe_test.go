package mediaprobe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"movies-db/internal/catalog"
)

// writeScript installs a fake binary named name in dir.
func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("Failed to write fake %s: %v", name, err)
	}
}

func TestNewPaths(t *testing.T) {
	f := New("/opt/ffmpeg/bin")
	if f.FFmpegPath() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("Expected /opt/ffmpeg/bin/ffmpeg, got %s", f.FFmpegPath())
	}
	if f.FFprobePath() != "/opt/ffmpeg/bin/ffprobe" {
		t.Errorf("Expected /opt/ffmpeg/bin/ffprobe, got %s", f.FFprobePath())
	}

	f = New("")
	if f.FFmpegPath() != "ffmpeg" || f.FFprobePath() != "ffprobe" {
		t.Errorf("Expected bare binary names, got %s and %s", f.FFmpegPath(), f.FFprobePath())
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ffmpeg", `echo "ffmpeg version 7.1 Copyright"; echo "built with gcc"`)
	writeScript(t, dir, "ffprobe", `echo "ffprobe version 7.1 Copyright"`)

	if err := New(dir).Check(context.Background()); err != nil {
		t.Errorf("Expected Check to succeed, got %v", err)
	}
}

func TestCheckMissingBinary(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ffmpeg", `echo "ffmpeg version 7.1"`)

	err := New(dir).Check(context.Background())
	if !errors.Is(err, catalog.ErrInternal) {
		t.Errorf("Expected ErrInternal for missing ffprobe, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ffprobe", `echo "12.500000"`)

	seconds, err := New(dir).Probe(context.Background(), "/movies/a.mp4")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if seconds != 12.5 {
		t.Errorf("Expected 12.5, got %v", seconds)
	}
}

func TestProbeFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non-zero exit", `echo "moov atom not found" >&2; exit 1`},
		{"unparseable output", `echo "N/A"`},
		{"empty output", `true`},
		{"negative duration", `echo "-3"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeScript(t, dir, "ffprobe", tt.body)

			_, err := New(dir).Probe(context.Background(), "/movies/a.mp4")
			if !errors.Is(err, catalog.ErrInternal) {
				t.Errorf("Expected ErrInternal, got %v", err)
			}
		})
	}
}

func TestProbeRejectsNonFiniteDuration(t *testing.T) {
	for _, out := range []string{"NaN", "+Inf", "-Inf", "infinity"} {
		t.Run(out, func(t *testing.T) {
			dir := t.TempDir()
			writeScript(t, dir, "ffprobe", `echo "`+out+`"`)

			_, err := New(dir).Probe(context.Background(), "/movies/a.mp4")
			if !errors.Is(err, catalog.ErrInternal) {
				t.Fatalf("Expected ErrInternal, got %v", err)
			}
			if !strings.Contains(err.Error(), "unparseable duration") {
				t.Errorf("Expected an unparseable duration error, got %v", err)
			}
		})
	}
}

func TestProbeIncludesStderr(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ffprobe", `echo "Invalid data found" >&2; exit 1`)

	_, err := New(dir).Probe(context.Background(), "/movies/a.mp4")
	if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("Expected stderr in error, got %v", err)
	}
}

func TestExtractFrame(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	writeScript(t, dir, "ffmpeg", `echo "$@" > "`+argsFile+`"; printf 'PNGDATA'`)

	data, err := New(dir).ExtractFrame(context.Background(), "/movies/a.mp4", 6.25)
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if string(data) != "PNGDATA" {
		t.Errorf("Expected PNGDATA, got %q", data)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("Failed to read recorded args: %v", err)
	}
	got := strings.TrimSpace(string(args))
	want := "-v error -ss 6.250 -i /movies/a.mp4 -frames:v 1 -f image2pipe -vcodec png -"
	if got != want {
		t.Errorf("Expected args %q, got %q", want, got)
	}
}

func TestExtractFrameFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non-zero exit", `exit 1`},
		{"empty output", `true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeScript(t, dir, "ffmpeg", tt.body)

			_, err := New(dir).ExtractFrame(context.Background(), "/movies/a.mp4", 1)
			if !errors.Is(err, catalog.ErrInternal) {
				t.Errorf("Expected ErrInternal, got %v", err)
			}
		})
	}
}

func TestProbeHonorsContext(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ffprobe", `exec sleep 10`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := New(dir).Probe(ctx, "/movies/a.mp4")
	if err == nil {
		t.Fatal("Expected error when the context expires")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Expected probe to be killed promptly, took %v", elapsed)
	}
}
