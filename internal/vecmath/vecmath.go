// Package vecmath holds the float32 vector helpers used by the model store.
package vecmath

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/blas/blas32"
)

// Vector is a dense float32 vector.
type Vector []float32

func view(v Vector) blas32.Vector {
	return blas32.Vector{N: len(v), Data: v, Inc: 1}
}

// Dot returns the dot product of a and b.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b Vector) float32 {
	return blas32.Dot(view(a), view(b))
}

// Norm returns the L2 norm of v.
func Norm(v Vector) float32 {
	return blas32.Nrm2(view(v))
}

// Cosine returns dot(a,b) / (‖a‖·‖b‖).
// The result is NaN when either vector has zero norm or the lengths differ;
// callers decide how to treat it.
func Cosine(a, b Vector) float32 {
	if len(a) != len(b) {
		return float32(math.NaN())
	}
	return Dot(a, b) / (Norm(a) * Norm(b))
}

// AddInPlace computes dst += alpha*src.
func AddInPlace(dst Vector, alpha float32, src Vector) {
	blas32.Axpy(alpha, view(src), view(dst))
}

// Combine returns Σpositive − Σnegative. All inputs must have length dim.
func Combine(dim int, positive, negative []Vector) Vector {
	out := make(Vector, dim)
	for _, v := range positive {
		AddInPlace(out, 1, v)
	}
	for _, v := range negative {
		AddInPlace(out, -1, v)
	}
	return out
}

// Scored pairs a key with its similarity score.
type Scored struct {
	Word  string
	Score float32
}

// Rank sorts items by descending score. Equal scores are ordered by word,
// and NaN scores go last (also ordered by word).
func Rank(items []Scored) {
	slices.SortFunc(items, compareScored)
}

func compareScored(a, b Scored) int {
	an, bn := isNaN(a.Score), isNaN(b.Score)
	switch {
	case an && !bn:
		return 1
	case !an && bn:
		return -1
	case !an && a.Score != b.Score:
		// descending
		return cmp.Compare(b.Score, a.Score)
	}
	return cmp.Compare(a.Word, b.Word)
}

func isNaN(f float32) bool {
	return f != f
}
