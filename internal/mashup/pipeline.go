package mashup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrNoClips is returned when every trim failed.
var ErrNoClips = errors.New("no clips created")

// NotEnoughSongsError reports a download shortfall.
type NotEnoughSongsError struct {
	Got  int
	Need int
}

func (e *NotEnoughSongsError) Error() string {
	return fmt.Sprintf("only downloaded %d songs, need at least %d", e.Got, e.Need)
}

// Stage names passed to a Progress callback.
const (
	StageSearch   = "search"
	StageDownload = "download"
	StageTrim     = "trim"
	StageMerge    = "merge"
)

// Progress receives coarse pipeline updates. done and total count items of
// the current stage.
type Progress func(stage string, done, total int)

type Options struct {
	// WorkDir holds per-run scratch directories. Empty means os.TempDir.
	WorkDir string
	// SearchMultiplier scales the number of candidates searched per song
	// wanted, since some downloads fail.
	SearchMultiplier int
	// MinDownloads returns the fewest songs a run may continue with.
	MinDownloads func(videos int) int
}

// Output describes a finished mashup.
type Output struct {
	Path       string
	Clips      int
	Downloaded int
	Size       int64
	Duration   time.Duration
}

type Pipeline struct {
	source Source
	editor Editor
	opts   Options
	logger *slog.Logger
}

func NewPipeline(source Source, editor Editor, opts Options, logger *slog.Logger) *Pipeline {
	if opts.SearchMultiplier <= 0 {
		opts.SearchMultiplier = 2
	}
	if opts.MinDownloads == nil {
		opts.MinDownloads = func(int) int { return CLIMinDownloads }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{source: source, editor: editor, opts: opts, logger: logger.With("component", "mashup")}
}

// Run builds the mashup for req and writes it to out. Scratch files are
// removed before returning, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, req Request, out string, progress Progress) (*Output, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(string, int, int) {}
	}
	if p.opts.WorkDir != "" {
		if err := os.MkdirAll(p.opts.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	tmp, err := os.MkdirTemp(p.opts.WorkDir, "mashup-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	songs, err := p.download(ctx, req, tmp, progress)
	if err != nil {
		return nil, err
	}

	clips := p.trim(ctx, req, songs, tmp, progress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, ErrNoClips
	}

	progress(StageMerge, 0, 1)
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := p.editor.Concat(ctx, clips, out); err != nil {
		return nil, err
	}
	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("stat mashup: %w", err)
	}
	progress(StageMerge, 1, 1)

	duration, err := p.editor.Probe(ctx, out)
	if err != nil {
		p.logger.Warn("probe failed, estimating duration", "path", out, "error", err)
		duration = time.Duration(len(clips)) * req.ClipLength()
	}

	return &Output{
		Path:       out,
		Clips:      len(clips),
		Downloaded: len(songs),
		Size:       info.Size(),
		Duration:   duration,
	}, nil
}

func (p *Pipeline) download(ctx context.Context, req Request, tmp string, progress Progress) ([]string, error) {
	progress(StageSearch, 0, 1)
	videos, err := p.source.Search(ctx, req.Query(), req.Videos*p.opts.SearchMultiplier)
	if err != nil {
		return nil, err
	}
	progress(StageSearch, 1, 1)
	p.logger.Info("search finished", "singer", req.Singer, "candidates", len(videos))

	dir := filepath.Join(tmp, "songs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var songs []string
	for _, v := range videos {
		if len(songs) >= req.Videos {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := p.source.Download(ctx, v, dir)
		if err != nil {
			p.logger.Debug("download skipped", "video", v.ID, "error", err)
			continue
		}
		songs = append(songs, path)
		progress(StageDownload, len(songs), req.Videos)
	}

	if need := p.opts.MinDownloads(req.Videos); len(songs) < need {
		return nil, &NotEnoughSongsError{Got: len(songs), Need: need}
	}
	return songs, nil
}

func (p *Pipeline) trim(ctx context.Context, req Request, songs []string, tmp string, progress Progress) []string {
	var clips []string
	for i, song := range songs {
		if ctx.Err() != nil {
			break
		}
		clip := filepath.Join(tmp, fmt.Sprintf("clip_%d.mp3", i))
		if err := p.editor.Trim(ctx, song, clip, req.ClipLength()); err != nil {
			p.logger.Debug("trim skipped", "song", filepath.Base(song), "error", err)
			continue
		}
		clips = append(clips, clip)
		progress(StageTrim, i+1, len(songs))
	}
	return clips
}
