package mashup

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Zip packs the file at path into "<name>.zip" next to it and returns the
// archive path.
func Zip(path string) (string, error) {
	zipPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".zip"

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("zip: %w", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("zip: %w", err)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("zip: %w", err)
	}
	zw := zip.NewWriter(out)

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		out.Close()
		return "", fmt.Errorf("zip: %w", err)
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err == nil {
		_, err = io.Copy(w, in)
	}
	if err == nil {
		err = zw.Close()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(zipPath)
		return "", fmt.Errorf("zip: %w", err)
	}
	return zipPath, nil
}
