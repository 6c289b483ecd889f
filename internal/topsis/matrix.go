package topsis

import (
	"math"
	"strconv"
	"strings"
)

// Matrix is a decision matrix: one row per alternative, one column per
// criterion, plus a leading label column that never takes part in scoring.
type Matrix struct {
	// Header holds the label column name followed by the criterion names.
	Header []string
	Labels []string
	Values [][]float64
	// Records holds the raw input cells, including the label column. It is
	// nil for matrices built with FromValues.
	Records [][]string
}

// NewMatrix builds a matrix from tabular text: a header row and data rows
// whose first cell is the alternative label. Criterion cells must parse as
// finite numbers. The inputs are copied.
func NewMatrix(header []string, records [][]string) (*Matrix, error) {
	if len(header) < 3 {
		return nil, &ShapeError{
			Columns: len(header),
			Row:     -1,
			Msg:     "input must contain at least 3 columns (a label column and two or more criteria)",
		}
	}
	if len(records) == 0 {
		return nil, &ShapeError{Columns: len(header), Row: -1, Msg: "input contains no data rows"}
	}

	m := &Matrix{
		Header:  append([]string(nil), header...),
		Labels:  make([]string, len(records)),
		Values:  make([][]float64, len(records)),
		Records: make([][]string, len(records)),
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, &ShapeError{
				Columns: len(rec),
				Row:     i,
				Msg:     "expected " + strconv.Itoa(len(header)) + " columns, found " + strconv.Itoa(len(rec)),
			}
		}
		m.Records[i] = append([]string(nil), rec...)
		m.Labels[i] = rec[0]
	}

	// Columns are checked left to right so the first offending column is
	// the one reported.
	for i := range m.Values {
		m.Values[i] = make([]float64, len(header)-1)
	}
	for j := 1; j < len(header); j++ {
		for i, rec := range records {
			cell := strings.TrimSpace(rec[j])
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &TypeError{Row: i, Column: j - 1, Name: header[j], Value: rec[j]}
			}
			m.Values[i][j-1] = v
		}
	}
	return m, nil
}

// FromValues builds a matrix from in-memory numbers. labels may be nil, in
// which case alternatives are labelled by position.
func FromValues(labels, criteria []string, values [][]float64) (*Matrix, error) {
	m := &Matrix{
		Header: append([]string{"Alternative"}, criteria...),
		Labels: make([]string, len(values)),
		Values: make([][]float64, len(values)),
	}
	if labels != nil && len(labels) != len(values) {
		return nil, &ShapeError{Columns: len(m.Header), Row: -1, Msg: "number of labels must equal number of rows"}
	}
	for i, row := range values {
		if labels != nil {
			m.Labels[i] = labels[i]
		} else {
			m.Labels[i] = "A" + strconv.Itoa(i+1)
		}
		m.Values[i] = append([]float64(nil), row...)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Len returns the number of alternatives.
func (m *Matrix) Len() int { return len(m.Values) }

// Criteria returns the criterion column names.
func (m *Matrix) Criteria() []string {
	if len(m.Header) == 0 {
		return nil
	}
	return m.Header[1:]
}

// validate checks shape and numeric type. It is run by Score so that matrices
// assembled by hand get the same checks as parsed ones.
func (m *Matrix) validate() error {
	if len(m.Header) < 3 {
		return &ShapeError{
			Columns: len(m.Header),
			Row:     -1,
			Msg:     "input must contain at least 3 columns (a label column and two or more criteria)",
		}
	}
	if len(m.Values) == 0 {
		return &ShapeError{Columns: len(m.Header), Row: -1, Msg: "input contains no data rows"}
	}
	n := len(m.Header) - 1
	for i, row := range m.Values {
		if len(row) != n {
			return &ShapeError{
				Columns: len(row) + 1,
				Row:     i,
				Msg:     "expected " + strconv.Itoa(n) + " criteria, found " + strconv.Itoa(len(row)),
			}
		}
	}
	for j := 0; j < n; j++ {
		for i, row := range m.Values {
			if math.IsNaN(row[j]) || math.IsInf(row[j], 0) {
				return &TypeError{Row: i, Column: j, Name: m.Header[j+1], Value: strconv.FormatFloat(row[j], 'g', -1, 64)}
			}
		}
	}
	return nil
}
