package mashup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner executes an external tool and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Video is one search hit.
type Video struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

// Source finds and downloads songs.
type Source interface {
	Search(ctx context.Context, query string, limit int) ([]Video, error)
	Download(ctx context.Context, video Video, dir string) (string, error)
}

// YtDlp is a Source backed by the yt-dlp binary.
type YtDlp struct {
	binary string
	run    CommandRunner
}

func NewYtDlp(binary string) *YtDlp {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	return &YtDlp{binary: binary, run: execRunner}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (y *YtDlp) WithCommandRunner(r CommandRunner) {
	if y != nil && r != nil {
		y.run = r
	}
}

// Search lists up to limit results without downloading anything.
func (y *YtDlp) Search(ctx context.Context, query string, limit int) ([]Video, error) {
	if limit <= 0 {
		return nil, nil
	}
	args := []string{
		"--flat-playlist",
		"--dump-json",
		"--no-warnings",
		"--ignore-errors",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	}
	out, err := y.run(ctx, y.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return parseSearch(out)
}

// parseSearch reads one JSON object per line, skipping anything else yt-dlp
// prints between entries.
func parseSearch(out []byte) ([]Video, error) {
	var videos []Video
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var v Video
		if err := json.Unmarshal(line, &v); err != nil {
			continue
		}
		if v.ID == "" {
			continue
		}
		if v.URL == "" {
			v.URL = "https://www.youtube.com/watch?v=" + v.ID
		}
		videos = append(videos, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read search results: %w", err)
	}
	return videos, nil
}

// Download extracts the best audio stream of video into dir as mp3.
func (y *YtDlp) Download(ctx context.Context, video Video, dir string) (string, error) {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--", video.URL,
	}
	out, err := y.run(ctx, y.binary, args...)
	if err != nil {
		return "", fmt.Errorf("yt-dlp download %s: %w: %s", video.ID, err, strings.TrimSpace(string(out)))
	}
	path := filepath.Join(dir, video.ID+".mp3")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("yt-dlp download %s: no audio produced", video.ID)
	}
	return path, nil
}
