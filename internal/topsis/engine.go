// Package topsis ranks alternatives by relative closeness to an ideal
// solution (TOPSIS) over a weighted decision matrix.
package topsis

import (
	"math"
	"strconv"
)

// Result is the outcome of scoring a decision matrix. Scores and Ranks are
// aligned with the matrix rows. The remaining vectors expose the
// intermediate steps so a score can be explained or recomputed.
type Result struct {
	Matrix *Matrix   `json:"-"`
	Scores []float64 `json:"scores"`
	Ranks  []int     `json:"ranks"`

	Norms      []float64 `json:"norms"`
	IdealBest  []float64 `json:"ideal_best"`
	IdealWorst []float64 `json:"ideal_worst"`
	DistBest   []float64 `json:"dist_best"`
	DistWorst  []float64 `json:"dist_worst"`
}

// Score ranks the alternatives of m by relative closeness to the ideal
// solution. weights and impacts must have one entry per criterion.
//
// All validation happens before any arithmetic and the inputs are never
// modified. On error no partial result is returned.
func Score(m *Matrix, weights []float64, impacts []Impact) (*Result, error) {
	if m == nil {
		return nil, &ShapeError{Row: -1, Msg: "no decision matrix"}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	n := len(m.Header) - 1
	if len(weights) != n {
		return nil, &CardinalityError{Field: "weights", Got: len(weights), Want: n}
	}
	if len(impacts) != n {
		return nil, &CardinalityError{Field: "impacts", Got: len(impacts), Want: n}
	}
	for j, imp := range impacts {
		if !imp.Valid() {
			return nil, &DomainError{Field: "impacts", Index: j, Value: string(imp)}
		}
	}
	for j, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return nil, &DomainError{Field: "weights", Index: j, Value: strconv.FormatFloat(w, 'g', -1, 64)}
		}
	}

	rows := len(m.Values)
	res := &Result{
		Matrix:     m,
		Scores:     make([]float64, rows),
		Norms:      make([]float64, n),
		IdealBest:  make([]float64, n),
		IdealWorst: make([]float64, n),
		DistBest:   make([]float64, rows),
		DistWorst:  make([]float64, rows),
	}

	for j := 0; j < n; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += m.Values[i][j] * m.Values[i][j]
		}
		norm := math.Sqrt(sum)
		if norm == 0 {
			return nil, &DegenerateInputError{Column: j, Row: -1, Name: m.Header[j+1]}
		}
		res.Norms[j] = norm
	}

	weighted := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		weighted[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			weighted[i][j] = m.Values[i][j] / res.Norms[j] * weights[j]
		}
	}

	for j := 0; j < n; j++ {
		hi, lo := weighted[0][j], weighted[0][j]
		for i := 1; i < rows; i++ {
			hi = math.Max(hi, weighted[i][j])
			lo = math.Min(lo, weighted[i][j])
		}
		if impacts[j] == Beneficial {
			res.IdealBest[j], res.IdealWorst[j] = hi, lo
		} else {
			res.IdealBest[j], res.IdealWorst[j] = lo, hi
		}
	}

	for i := 0; i < rows; i++ {
		var sb, sw float64
		for j := 0; j < n; j++ {
			db := weighted[i][j] - res.IdealBest[j]
			dw := weighted[i][j] - res.IdealWorst[j]
			sb += db * db
			sw += dw * dw
		}
		res.DistBest[i] = math.Sqrt(sb)
		res.DistWorst[i] = math.Sqrt(sw)
		total := res.DistBest[i] + res.DistWorst[i]
		if total == 0 {
			return nil, &DegenerateInputError{Column: -1, Row: i}
		}
		res.Scores[i] = res.DistWorst[i] / total
	}

	res.Ranks = CompetitionRank(res.Scores)
	return res, nil
}

// Best returns the row indexes holding rank 1.
func (r *Result) Best() []int {
	var out []int
	for i, rank := range r.Ranks {
		if rank == 1 {
			out = append(out, i)
		}
	}
	return out
}

// Rows returns the result table body: each input row followed by its score
// and rank. Raw input cells are reused when the matrix was parsed from text.
func (r *Result) Rows() [][]string {
	m := r.Matrix
	out := make([][]string, len(r.Scores))
	for i := range r.Scores {
		var row []string
		if m.Records != nil {
			row = append(row, m.Records[i]...)
		} else {
			row = append(row, m.Labels[i])
			for _, v := range m.Values[i] {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		row = append(row, FormatScore(r.Scores[i]), strconv.Itoa(r.Ranks[i]))
		out[i] = row
	}
	return out
}

// Header returns the result table header: the input header plus the score
// and rank columns.
func (r *Result) Header() []string {
	return append(append([]string(nil), r.Matrix.Header...), ScoreColumn, RankColumn)
}

// Column names appended to the result table.
const (
	ScoreColumn = "Topsis Score"
	RankColumn  = "Rank"
)

// FormatScore renders a score with the shortest decimal that round-trips.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
