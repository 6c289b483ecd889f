// Package dataset reads decision matrices from delimited text and writes
// scored result tables back in the same format.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MikeSquared-Agency/Topsis/internal/topsis"
)

// ErrEmpty is returned when the input has no header row.
var ErrEmpty = errors.New("input file is empty")

// Read parses CSV text into a header row and data rows. Rows are returned
// as-is; width checks are left to topsis.NewMatrix so they surface as
// shape errors.
func Read(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, ErrEmpty
	}
	header := all[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]string
	for _, rec := range all[1:] {
		if blank(rec) {
			continue
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("input file not found: %s: %w", path, fs.ErrNotExist)
		}
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Write emits the result table: the input header and cells followed by the
// score and rank columns.
func Write(w io.Writer, res *topsis.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(res.Rows()); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteFile writes the result table to path. The table is written to a
// temporary file in the same directory and renamed into place, so a failed
// write never leaves a partial output file behind.
func WriteFile(path string, res *topsis.Result) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, res); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Analyze reads a decision matrix from r and scores it with the given
// comma-separated weights and impact flags. It is the one entry point shared
// by the command line and the web front end.
func Analyze(r io.Reader, weights, impacts string) (*topsis.Result, error) {
	header, records, err := Read(r)
	if err != nil {
		return nil, err
	}
	return analyze(header, records, weights, impacts)
}

// AnalyzeFile scores the matrix at in and writes the result table to out.
func AnalyzeFile(in, weights, impacts, out string) (*topsis.Result, error) {
	header, records, err := ReadFile(in)
	if err != nil {
		return nil, err
	}
	res, err := analyze(header, records, weights, impacts)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(out, res); err != nil {
		return nil, err
	}
	return res, nil
}

func analyze(header []string, records [][]string, weights, impacts string) (*topsis.Result, error) {
	m, err := topsis.NewMatrix(header, records)
	if err != nil {
		return nil, err
	}
	w, err := topsis.ParseWeights(weights)
	if err != nil {
		return nil, err
	}
	return topsis.Score(m, w, topsis.SplitImpacts(impacts))
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
