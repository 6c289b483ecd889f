// Package mashup builds an audio mashup of a singer's songs: it searches and
// downloads audio with yt-dlp, trims the opening of each song with ffmpeg
// and joins the clips into a single mp3.
package mashup

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MinVideos and MinDurationSeconds are exclusive lower bounds.
	MinVideos          = 10
	MinDurationSeconds = 20

	// CLIMinDownloads is the number of songs the command line tool insists on.
	CLIMinDownloads = 11
)

// ValidationError reports a request field that is out of range.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

// Request describes one mashup.
type Request struct {
	Singer   string `json:"singer"`
	Videos   int    `json:"videos"`
	Duration int    `json:"duration"` // seconds taken from the start of each song
}

// Validate checks the lower bounds shared by the CLI and the service.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Singer) == "" {
		return &ValidationError{Field: "singer", Msg: "Singer name is required"}
	}
	if r.Videos <= MinVideos {
		return &ValidationError{Field: "videos", Msg: "Number of videos must be greater than 10"}
	}
	if r.Duration <= MinDurationSeconds {
		return &ValidationError{Field: "duration", Msg: "Duration must be greater than 20 seconds"}
	}
	return nil
}

// ValidateLimits applies Validate plus the upper bounds a shared service
// enforces. Zero limits are ignored.
func (r Request) ValidateLimits(maxVideos, maxDuration int) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if maxVideos > 0 && r.Videos > maxVideos {
		return &ValidationError{Field: "videos", Msg: fmt.Sprintf("Number of videos must be at most %d", maxVideos)}
	}
	if maxDuration > 0 && r.Duration > maxDuration {
		return &ValidationError{Field: "duration", Msg: fmt.Sprintf("Duration must be at most %d seconds", maxDuration)}
	}
	return nil
}

// ClipLength is the per-song clip length.
func (r Request) ClipLength() time.Duration {
	return time.Duration(r.Duration) * time.Second
}

// Query is the search phrase handed to the source.
func (r Request) Query() string {
	return strings.TrimSpace(r.Singer) + " song"
}

// OutputName appends ".mp3" unless name already ends with it.
func OutputName(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".mp3") {
		return name
	}
	return name + ".mp3"
}

// ServiceMinDownloads is the lenient floor used for queued jobs: half the
// requested songs, never fewer than five.
func ServiceMinDownloads(videos int) int {
	return max(5, videos/2)
}
