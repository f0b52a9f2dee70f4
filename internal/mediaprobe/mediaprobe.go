// Package mediaprobe wraps the ffprobe and ffmpeg command line tools.
//
// Both binaries run through exec.CommandContext, so cancelling the context
// kills a running probe or frame extraction.
package mediaprobe

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"movies-db/internal/catalog"
	"movies-db/internal/logging"
	"movies-db/internal/metrics"
)

// FFmpeg runs ffprobe and ffmpeg from a fixed location.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// New returns an FFmpeg using the binaries in binDir, or the ones found in
// $PATH when binDir is empty. It does not run them; see Check.
func New(binDir string) *FFmpeg {
	if binDir == "" {
		return &FFmpeg{ffmpegPath: "ffmpeg", ffprobePath: "ffprobe"}
	}
	return &FFmpeg{
		ffmpegPath:  filepath.Join(binDir, "ffmpeg"),
		ffprobePath: filepath.Join(binDir, "ffprobe"),
	}
}

// FFmpegPath returns the ffmpeg binary in use.
func (f *FFmpeg) FFmpegPath() string { return f.ffmpegPath }

// FFprobePath returns the ffprobe binary in use.
func (f *FFmpeg) FFprobePath() string { return f.ffprobePath }

// Check runs both binaries with -version and logs the first line of each.
func (f *FFmpeg) Check(ctx context.Context) error {
	for _, bin := range []struct{ name, path string }{
		{"ffmpeg", f.ffmpegPath},
		{"ffprobe", f.ffprobePath},
	} {
		stdout, err := run(ctx, bin.path, "-version")
		if err != nil {
			return catalog.Internal("check "+bin.name, err)
		}
		version, _, _ := strings.Cut(string(stdout), "\n")
		logging.Info("%s: %s", bin.name, strings.TrimSpace(version))
	}
	return nil
}

// Probe returns the duration of the media file at path in seconds.
func (f *FFmpeg) Probe(ctx context.Context, path string) (float64, error) {
	start := time.Now()
	stdout, err := run(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	metrics.PreviewFFmpegDuration.WithLabelValues("ffprobe").Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, catalog.Internal("probe "+path, err)
	}

	out := strings.TrimSpace(string(stdout))
	seconds, err := strconv.ParseFloat(out, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, catalog.Internal("probe "+path, fmt.Errorf("unparseable duration %q", out))
	}
	if seconds < 0 {
		return 0, catalog.Internal("probe "+path, fmt.Errorf("negative duration %v", seconds))
	}
	logging.Debug("Probed %s: %.3fs", path, seconds)
	return seconds, nil
}

// ExtractFrame returns the frame at the given instant as PNG bytes.
func (f *FFmpeg) ExtractFrame(ctx context.Context, path string, seconds float64) ([]byte, error) {
	start := time.Now()
	stdout, err := run(ctx, f.ffmpegPath,
		"-v", "error",
		"-ss", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	metrics.PreviewFFmpegDuration.WithLabelValues("ffmpeg").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, catalog.Internal("extract frame from "+path, err)
	}
	if len(stdout) == 0 {
		return nil, catalog.Internal("extract frame from "+path, fmt.Errorf("ffmpeg produced no output"))
	}

	logging.Debug("FFmpeg output size: %d bytes", len(stdout))
	return stdout, nil
}

// run executes bin and returns its stdout. A non-zero exit becomes an
// error carrying the trimmed stderr.
func run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s failed: %w", filepath.Base(bin), err)
		}
		return nil, fmt.Errorf("%s failed: %w, stderr: %s", filepath.Base(bin), err, msg)
	}
	return stdout.Bytes(), nil
}
