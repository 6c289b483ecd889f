package topsis

import (
	"math"
	"strconv"
	"strings"
)

// Impact is the direction flag of a criterion.
type Impact string

const (
	// Beneficial criteria are better when larger.
	Beneficial Impact = "+"
	// Cost criteria are better when smaller.
	Cost Impact = "-"
)

// Valid reports whether i is one of the recognised flags.
func (i Impact) Valid() bool { return i == Beneficial || i == Cost }

// SplitImpacts splits a comma-separated list such as "+,+,-". Flags are
// trimmed but not validated; Score reports unknown flags as DomainErrors.
func SplitImpacts(s string) []Impact {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil
	}
	out := make([]Impact, len(parts))
	for i, p := range parts {
		out[i] = Impact(p)
	}
	return out
}

// ParseWeights parses a comma-separated list of numbers such as "1,1,2".
func ParseWeights(s string) ([]float64, error) {
	parts := splitList(s)
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &TypeError{Field: "weights", Row: -1, Column: i, Value: p}
		}
		out[i] = v
	}
	return out, nil
}

func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
