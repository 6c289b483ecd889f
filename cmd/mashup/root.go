package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Topsis/internal/mashup"
)

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

type builder interface {
	Run(ctx context.Context, req mashup.Request, out string, progress mashup.Progress) (*mashup.Output, error)
}

type toolOptions struct {
	ytdlp    string
	ffmpeg   string
	ffprobe  string
	workDir  string
	verbose  bool
	multiple int
}

// deps lets tests replace the external tools.
type deps struct {
	checkTools func(binaries ...string) error
	newBuilder func(opts toolOptions, logger *slog.Logger) builder
}

func defaultDeps() deps {
	return deps{
		checkTools: mashup.CheckTools,
		newBuilder: func(opts toolOptions, logger *slog.Logger) builder {
			return mashup.NewPipeline(
				mashup.NewYtDlp(opts.ytdlp),
				mashup.NewFFmpeg(opts.ffmpeg, opts.ffprobe),
				mashup.Options{
					WorkDir:          opts.workDir,
					SearchMultiplier: opts.multiple,
					MinDownloads:     func(int) int { return mashup.CLIMinDownloads },
				},
				logger,
			)
		},
	}
}

func newRootCommand(d deps) *cobra.Command {
	opts := toolOptions{}

	cmd := &cobra.Command{
		Use:           "mashup <SingerName> <NumVideos> <Duration> <Output>",
		Short:         "Download songs by a singer, cut the opening of each and merge them into one MP3",
		Example:       `  mashup "Arijit Singh" 15 25 output.mp3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 4 {
				return &usageError{msg: "Invalid number of arguments"}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req, out, err := parseArgs(args)
			if err != nil {
				return err
			}
			if err := d.checkTools(opts.ffmpeg, opts.ffprobe); err != nil {
				return errors.New("FFmpeg not found. Please install FFmpeg first.")
			}
			if err := d.checkTools(opts.ytdlp); err != nil {
				return errors.New("yt-dlp not found. Please install yt-dlp first.")
			}

			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			p := &progressPrinter{w: w, req: req}
			res, err := d.newBuilder(opts, logger).Run(ctx, req, out, p.update)
			if err != nil {
				var short *mashup.NotEnoughSongsError
				if errors.As(err, &short) {
					return fmt.Errorf("Only downloaded %d songs. Need at least %d.", short.Got, short.Need)
				}
				return err
			}
			p.finish(res)
			return nil
		},
	}
	cmd.SetContext(context.Background())

	cmd.Flags().StringVar(&opts.ytdlp, "ytdlp", "yt-dlp", "yt-dlp binary")
	cmd.Flags().StringVar(&opts.ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")
	cmd.Flags().StringVar(&opts.ffprobe, "ffprobe", "ffprobe", "ffprobe binary")
	cmd.Flags().StringVar(&opts.workDir, "work-dir", "", "Directory for temporary files (default: system temp dir)")
	cmd.Flags().IntVar(&opts.multiple, "search-multiplier", 2, "Candidates searched per song wanted")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log skipped downloads and clips")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// parseArgs turns positional arguments into a validated request and the
// output file name.
func parseArgs(args []string) (mashup.Request, string, error) {
	videos, errV := strconv.Atoi(strings.TrimSpace(args[1]))
	duration, errD := strconv.Atoi(strings.TrimSpace(args[2]))
	if errV != nil || errD != nil {
		return mashup.Request{}, "", errors.New("Number of videos and duration must be integers")
	}
	req := mashup.Request{
		Singer:   strings.TrimSpace(args[0]),
		Videos:   videos,
		Duration: duration,
	}
	if err := req.Validate(); err != nil {
		return mashup.Request{}, "", err
	}
	return req, mashup.OutputName(args[3]), nil
}

type progressPrinter struct {
	w       io.Writer
	req     mashup.Request
	stage   string
	fetched int
	clips   int
}

func (p *progressPrinter) update(stage string, done, total int) {
	if stage != p.stage {
		p.leave(p.stage)
		p.stage = stage
		switch stage {
		case mashup.StageSearch:
			fmt.Fprintf(p.w, "Searching for %s songs...\n", p.req.Singer)
		case mashup.StageDownload:
			fmt.Fprintf(p.w, "Downloading %d songs...\n", p.req.Videos)
		case mashup.StageTrim:
			fmt.Fprintf(p.w, "Cutting first %d seconds from each song...\n", p.req.Duration)
		case mashup.StageMerge:
			fmt.Fprintln(p.w, "Merging clips...")
		}
	}
	switch stage {
	case mashup.StageDownload:
		p.fetched = done
		fmt.Fprintf(p.w, "  [%d/%d]\n", done, total)
	case mashup.StageTrim:
		p.clips++
	}
}

func (p *progressPrinter) leave(stage string) {
	switch stage {
	case mashup.StageDownload:
		fmt.Fprintf(p.w, "Downloaded %d songs successfully\n", p.fetched)
	case mashup.StageTrim:
		fmt.Fprintf(p.w, "Created %d clips\n", p.clips)
	}
}

func (p *progressPrinter) finish(res *mashup.Output) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "SUCCESS!")
	fmt.Fprintf(p.w, "Output: %s\n", res.Path)
	fmt.Fprintf(p.w, "Songs: %d downloaded, %d merged\n", res.Downloaded, res.Clips)
	fmt.Fprintf(p.w, "Size: %s\n", humanize.Bytes(uint64(res.Size)))
	fmt.Fprintf(p.w, "Duration: %.0f seconds\n", res.Duration.Seconds())
}
