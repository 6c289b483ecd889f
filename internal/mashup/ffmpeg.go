package mashup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Editor cuts and joins audio files.
type Editor interface {
	Trim(ctx context.Context, in, out string, d time.Duration) error
	Concat(ctx context.Context, clips []string, out string) error
	Probe(ctx context.Context, path string) (time.Duration, error)
}

// FFmpeg is an Editor backed by ffmpeg and ffprobe.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
	run     CommandRunner
}

func NewFFmpeg(ffmpegBinary, ffprobeBinary string) *FFmpeg {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &FFmpeg{ffmpeg: ffmpegBinary, ffprobe: ffprobeBinary, run: execRunner}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (f *FFmpeg) WithCommandRunner(r CommandRunner) {
	if f != nil && r != nil {
		f.run = r
	}
}

// Trim writes the first d of in to out as mp3.
func (f *FFmpeg) Trim(ctx context.Context, in, out string, d time.Duration) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-t", formatSeconds(d),
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", "192k",
		out,
	}
	if output, err := f.run(ctx, f.ffmpeg, args...); err != nil {
		return fmt.Errorf("ffmpeg trim: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Concat joins clips in order using the concat demuxer. The clips share one
// encoding so the streams are copied.
func (f *FFmpeg) Concat(ctx context.Context, clips []string, out string) error {
	if len(clips) == 0 {
		return fmt.Errorf("ffmpeg concat: no clips")
	}
	list, err := os.CreateTemp(filepath.Dir(out), "concat-*.txt")
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	defer os.Remove(list.Name())
	for _, c := range clips {
		abs, err := filepath.Abs(c)
		if err != nil {
			list.Close()
			return err
		}
		// Single quotes inside the path are closed, escaped and reopened.
		fmt.Fprintf(list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0",
		"-i", list.Name(),
		"-c", "copy",
		out,
	}
	if output, err := f.run(ctx, f.ffmpeg, args...); err != nil {
		return fmt.Errorf("ffmpeg concat: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reports the container duration of path.
func (f *FFmpeg) Probe(ctx context.Context, path string) (time.Duration, error) {
	args := []string{"-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path}
	output, err := f.run(ctx, f.ffprobe, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}
	var res probeResult
	if err := json.Unmarshal(output, &res); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	secs, err := strconv.ParseFloat(res.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", res.Format.Duration, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
