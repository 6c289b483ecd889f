package topsis

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Every error returned by this package matches exactly one of
// them under errors.Is; use errors.As with the concrete types for details.
var (
	ErrShape       = errors.New("topsis: shape error")
	ErrType        = errors.New("topsis: type error")
	ErrCardinality = errors.New("topsis: cardinality error")
	ErrDomain      = errors.New("topsis: domain error")
	ErrDegenerate  = errors.New("topsis: degenerate input")
)

// ShapeError reports a decision matrix with the wrong number of columns or
// rows. Row is -1 when the problem is not tied to a single row.
type ShapeError struct {
	Columns int
	Row     int
	Msg     string
}

func (e *ShapeError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("row %d: %s", e.Row+1, e.Msg)
	}
	return e.Msg
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

// TypeError reports a value that is not a finite number. Row and Column are
// zero-based indexes into the data rows and criterion columns; Field names the
// input when the value did not come from the matrix (e.g. "weights").
type TypeError struct {
	Field  string
	Row    int
	Column int
	Name   string
	Value  string
}

func (e *TypeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s must be numeric, got %q at position %d", e.Field, e.Value, e.Column+1)
	}
	return fmt.Sprintf("column %q (row %d) contains non-numeric value %q", e.Name, e.Row+1, e.Value)
}

func (e *TypeError) Is(target error) bool { return target == ErrType }

// CardinalityError reports a weight or impact vector whose length does not
// match the number of criteria.
type CardinalityError struct {
	Field string
	Got   int
	Want  int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("number of %s (%d) must equal number of criteria (%d)", e.Field, e.Got, e.Want)
}

func (e *CardinalityError) Is(target error) bool { return target == ErrCardinality }

// DomainError reports a value outside its allowed set: an impact flag other
// than "+" or "-", or a weight that is not a finite positive number.
type DomainError struct {
	Field string
	Index int
	Value string
}

func (e *DomainError) Error() string {
	switch e.Field {
	case "impacts":
		return fmt.Sprintf("impacts must be either '+' or '-', got %q at position %d", e.Value, e.Index+1)
	default:
		return fmt.Sprintf("%s must be positive, got %s at position %d", e.Field, e.Value, e.Index+1)
	}
}

func (e *DomainError) Is(target error) bool { return target == ErrDomain }

// DegenerateInputError reports input for which closeness is undefined: a
// criterion column whose values are all zero, or an alternative that is at
// zero distance from both ideal points. Column or Row is -1 when unused.
type DegenerateInputError struct {
	Column int
	Row    int
	Name   string
}

func (e *DegenerateInputError) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("column %q has zero norm, cannot normalize", e.Name)
	}
	return fmt.Sprintf("row %d is at zero distance from both ideal points, closeness is undefined", e.Row+1)
}

func (e *DegenerateInputError) Is(target error) bool { return target == ErrDegenerate }

// Kind returns a short name for the error kind, or "" for errors not produced
// by this package.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrShape):
		return "shape"
	case errors.Is(err, ErrType):
		return "type"
	case errors.Is(err, ErrCardinality):
		return "cardinality"
	case errors.Is(err, ErrDomain):
		return "domain"
	case errors.Is(err, ErrDegenerate):
		return "degenerate"
	default:
		return ""
	}
}
