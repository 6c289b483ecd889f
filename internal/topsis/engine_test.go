package topsis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sampleCriteria = []string{"Price", "Storage", "Camera"}
	sampleRows     = [][]float64{{250, 16, 12}, {200, 16, 8}, {300, 32, 16}, {275, 32, 8}}
	sampleImpacts  = []Impact{Beneficial, Beneficial, Cost}
	unitWeights    = []float64{1, 1, 1}
)

func sampleMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := FromValues([]string{"M1", "M2", "M3", "M4"}, sampleCriteria, sampleRows)
	require.NoError(t, err)
	return m
}

// closeness recomputes a single row's score without sharing code with Score.
func closeness(rows [][]float64, weights []float64, impacts []Impact, row int) float64 {
	n := len(rows[0])
	v := make([][]float64, len(rows))
	for i := range rows {
		v[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		var ss float64
		for i := range rows {
			ss += rows[i][j] * rows[i][j]
		}
		for i := range rows {
			v[i][j] = rows[i][j] / math.Sqrt(ss) * weights[j]
		}
	}
	var db, dw float64
	for j := 0; j < n; j++ {
		hi, lo := math.Inf(-1), math.Inf(1)
		for i := range v {
			hi = math.Max(hi, v[i][j])
			lo = math.Min(lo, v[i][j])
		}
		best, worst := hi, lo
		if impacts[j] == Cost {
			best, worst = lo, hi
		}
		db += (v[row][j] - best) * (v[row][j] - best)
		dw += (v[row][j] - worst) * (v[row][j] - worst)
	}
	return math.Sqrt(dw) / (math.Sqrt(db) + math.Sqrt(dw))
}

func TestScore_SampleMatrix(t *testing.T) {
	res, err := Score(sampleMatrix(t), unitWeights, sampleImpacts)
	require.NoError(t, err)

	want := []float64{0.3475714035974878, 0.4844303638084685, 0.5155696361915314, 0.9106595243473509}
	for i, s := range res.Scores {
		assert.InDelta(t, want[i], s, 1e-9, "row %d", i)
		assert.InDelta(t, closeness(sampleRows, unitWeights, sampleImpacts, i), s, 1e-9, "row %d", i)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
	assert.Equal(t, []int{4, 3, 2, 1}, res.Ranks)
	assert.Equal(t, []int{3}, res.Best())
}

func TestScore_ExplainVectors(t *testing.T) {
	res, err := Score(sampleMatrix(t), unitWeights, sampleImpacts)
	require.NoError(t, err)

	assert.InDelta(t, math.Sqrt(250*250+200*200+300*300+275*275), res.Norms[0], 1e-9)
	// Cost column: ideal best is the weighted minimum.
	assert.Less(t, res.IdealBest[2], res.IdealWorst[2])
	assert.Greater(t, res.IdealBest[0], res.IdealWorst[0])
	for i := range res.Scores {
		assert.InDelta(t, res.DistWorst[i]/(res.DistBest[i]+res.DistWorst[i]), res.Scores[i], 1e-12)
	}
}

func TestScore_DoesNotMutateInput(t *testing.T) {
	m := sampleMatrix(t)
	weights := []float64{1, 2, 3}
	impacts := []Impact{Beneficial, Cost, Beneficial}

	before := make([][]float64, len(m.Values))
	for i, row := range m.Values {
		before[i] = append([]float64(nil), row...)
	}

	_, err := Score(m, weights, impacts)
	require.NoError(t, err)

	assert.Equal(t, before, m.Values)
	assert.Equal(t, []float64{1, 2, 3}, weights)
	assert.Equal(t, []Impact{Beneficial, Cost, Beneficial}, impacts)
}

func TestScore_PermutationInvariant(t *testing.T) {
	base, err := Score(sampleMatrix(t), unitWeights, sampleImpacts)
	require.NoError(t, err)

	perm := []int{2, 0, 3, 1}
	rows := make([][]float64, len(perm))
	for i, p := range perm {
		rows[i] = sampleRows[p]
	}
	m, err := FromValues(nil, sampleCriteria, rows)
	require.NoError(t, err)
	res, err := Score(m, unitWeights, sampleImpacts)
	require.NoError(t, err)

	for i, p := range perm {
		assert.InDelta(t, base.Scores[p], res.Scores[i], 1e-12)
		assert.Equal(t, base.Ranks[p], res.Ranks[i])
	}
}

func TestScore_ColumnScaleInvariant(t *testing.T) {
	base, err := Score(sampleMatrix(t), unitWeights, sampleImpacts)
	require.NoError(t, err)

	rows := make([][]float64, len(sampleRows))
	for i, row := range sampleRows {
		rows[i] = []float64{row[0] * 1000, row[1], row[2] * 0.01}
	}
	m, err := FromValues(nil, sampleCriteria, rows)
	require.NoError(t, err)
	res, err := Score(m, unitWeights, sampleImpacts)
	require.NoError(t, err)

	for i := range rows {
		assert.InDelta(t, base.Scores[i], res.Scores[i], 1e-12)
	}
	assert.Equal(t, base.Ranks, res.Ranks)
}

func TestScore_ImpactReversal(t *testing.T) {
	// Two alternatives that differ only in the first criterion.
	m, err := FromValues([]string{"hi", "lo"}, []string{"a", "b"}, [][]float64{{10, 3}, {5, 3}})
	require.NoError(t, err)

	res, err := Score(m, []float64{1, 1}, []Impact{Beneficial, Beneficial})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Ranks)

	res, err = Score(m, []float64{1, 1}, []Impact{Cost, Beneficial})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, res.Ranks)
}

func TestScore_TiesShareRank(t *testing.T) {
	m, err := FromValues(nil, []string{"a", "b"}, [][]float64{{1, 2}, {3, 4}, {1, 2}, {0.5, 9}})
	require.NoError(t, err)

	res, err := Score(m, []float64{1, 1}, []Impact{Beneficial, Beneficial})
	require.NoError(t, err)
	assert.Equal(t, res.Scores[0], res.Scores[2])
	assert.Equal(t, res.Ranks[0], res.Ranks[2])

	sum := 0
	for _, r := range res.Ranks {
		sum += r
	}
	assert.Equal(t, CompetitionRank(res.Scores), res.Ranks)
	assert.LessOrEqual(t, sum, 1+2+3+4)
}

func TestScore_DegenerateIdenticalRows(t *testing.T) {
	m, err := FromValues(nil, []string{"a", "b"}, [][]float64{{5, 5}, {5, 5}, {5, 5}})
	require.NoError(t, err)

	res, err := Score(m, []float64{1, 1}, []Impact{Cost, Cost})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerate))

	var de *DegenerateInputError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 0, de.Row)
	assert.Equal(t, -1, de.Column)
}

func TestScore_DegenerateSingleAlternative(t *testing.T) {
	m, err := FromValues(nil, []string{"a", "b"}, [][]float64{{4, 7}})
	require.NoError(t, err)

	_, err = Score(m, []float64{1, 1}, []Impact{Beneficial, Cost})
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestScore_DegenerateZeroColumn(t *testing.T) {
	m, err := FromValues(nil, []string{"a", "b"}, [][]float64{{1, 0}, {2, 0}})
	require.NoError(t, err)

	_, err = Score(m, []float64{1, 1}, []Impact{Beneficial, Beneficial})
	var de *DegenerateInputError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Column)
	assert.Equal(t, "b", de.Name)
}

func TestScore_ValidationErrors(t *testing.T) {
	good := sampleMatrix(t)

	tests := []struct {
		name    string
		m       *Matrix
		weights []float64
		impacts []Impact
		want    error
	}{
		{"nil matrix", nil, unitWeights, sampleImpacts, ErrShape},
		{"single criterion", &Matrix{Header: []string{"id", "a"}, Labels: []string{"x", "y", "z"}, Values: [][]float64{{5}, {5}, {5}}}, []float64{1}, []Impact{Cost}, ErrShape},
		{"ragged row", &Matrix{Header: []string{"id", "a", "b"}, Labels: []string{"x", "y"}, Values: [][]float64{{1, 2}, {3}}}, []float64{1, 1}, []Impact{Beneficial, Beneficial}, ErrShape},
		{"nan value", &Matrix{Header: []string{"id", "a", "b"}, Labels: []string{"x", "y"}, Values: [][]float64{{1, 2}, {math.NaN(), 4}}}, []float64{1, 1}, []Impact{Beneficial, Beneficial}, ErrType},
		{"too few weights", good, []float64{1, 1}, sampleImpacts, ErrCardinality},
		{"too many impacts", good, unitWeights, []Impact{Beneficial, Beneficial, Cost, Cost}, ErrCardinality},
		{"unknown impact", good, unitWeights, []Impact{Beneficial, "*", Cost}, ErrDomain},
		{"zero weight", good, []float64{1, 0, 1}, sampleImpacts, ErrDomain},
		{"negative weight", good, []float64{1, -2, 1}, sampleImpacts, ErrDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Score(tt.m, tt.weights, tt.impacts)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.NotEmpty(t, Kind(err))
		})
	}
}

func TestScore_ValidationOrder(t *testing.T) {
	// Wrong weight count and a bad impact: the count is reported first.
	_, err := Score(sampleMatrix(t), []float64{1}, []Impact{"x", "y", "z"})
	var ce *CardinalityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "weights", ce.Field)
	assert.Equal(t, 1, ce.Got)
	assert.Equal(t, 3, ce.Want)

	_, err = Score(sampleMatrix(t), unitWeights, []Impact{Beneficial, "x", "y"})
	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Index)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "shape", Kind(&ShapeError{Row: -1}))
	assert.Equal(t, "type", Kind(&TypeError{}))
	assert.Equal(t, "cardinality", Kind(&CardinalityError{}))
	assert.Equal(t, "domain", Kind(&DomainError{}))
	assert.Equal(t, "degenerate", Kind(&DegenerateInputError{Row: 0, Column: -1}))
	assert.Equal(t, "", Kind(errors.New("other")))
}

func TestResultRows(t *testing.T) {
	m, err := NewMatrix(
		[]string{"Model", "Price", "Storage"},
		[][]string{{"M1", "250", "16"}, {"M2", "200.0", "32"}},
	)
	require.NoError(t, err)
	res, err := Score(m, []float64{1, 1}, []Impact{Cost, Beneficial})
	require.NoError(t, err)

	assert.Equal(t, []string{"Model", "Price", "Storage", "Topsis Score", "Rank"}, res.Header())
	rows := res.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "200.0", rows[1][1], "raw cells are carried unchanged")
	assert.Equal(t, "1", rows[1][4])
	assert.Equal(t, "2", rows[0][4])
}
