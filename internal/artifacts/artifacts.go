package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Topsis/internal/config"
)

// Location describes where a stored artifact can be fetched from. Path is
// set for local storage, URL for remote storage.
type Location struct {
	Key  string
	Path string
	URL  string
}

// Store persists finished artifacts beyond the job's scratch directory.
type Store interface {
	Put(ctx context.Context, key, path string) (Location, error)
}

// New builds the configured artifact store.
func New(ctx context.Context, cfg config.ArtifactsConfig, presignTTL time.Duration) (Store, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3(ctx, cfg.S3, presignTTL)
	case "local", "":
		return NewLocal(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown artifacts backend %q", cfg.Backend)
	}
}

// Local copies artifacts into a directory on disk.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Local{dir: abs}, nil
}

func (l *Local) Put(_ context.Context, key, path string) (Location, error) {
	clean := filepath.Clean("/" + key)
	dst := filepath.Join(l.dir, clean)
	if !strings.HasPrefix(dst, l.dir+string(filepath.Separator)) {
		return Location{}, fmt.Errorf("invalid artifact key %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Location{}, fmt.Errorf("create artifact dir: %w", err)
	}
	if err := copyFile(path, dst); err != nil {
		return Location{}, fmt.Errorf("store artifact: %w", err)
	}
	return Location{Key: key, Path: dst}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
