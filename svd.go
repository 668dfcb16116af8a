package svdimg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Triple is a singular value decomposition U·diag(S)·Vᵀ of a height x width
// matrix. U is height x r, S holds r descending non-negative values and VT is
// r x width.
type Triple struct {
	U  *mat.Dense
	S  []float64
	VT *mat.Dense
}

// Rank returns the number of retained singular values.
func (t *Triple) Rank() int {
	return len(t.S)
}

// Dims returns the shape of the matrix the triple reconstructs.
func (t *Triple) Dims() (height, width int) {
	height, _ = t.U.Dims()
	_, width = t.VT.Dims()
	return height, width
}

// Decompose computes the thin SVD of m, so r = min(height, width).
func Decompose(m mat.Matrix) (*Triple, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		h, w := m.Dims()
		return nil, fmt.Errorf("%w: %dx%d matrix did not converge", ErrDecompositionFailure, w, h)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	return &Triple{
		U:  &u,
		S:  svd.Values(nil),
		VT: mat.DenseCopyOf(v.T()),
	}, nil
}

// Truncate keeps the first k columns of U, the first k singular values and
// the first k rows of Vᵀ. The result shares no memory with t.
func Truncate(t *Triple, k int) (*Triple, error) {
	r := t.Rank()
	if k < 1 || k > r {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidRank, k, r)
	}

	h, w := t.Dims()
	s := make([]float64, k)
	copy(s, t.S[:k])

	return &Triple{
		U:  mat.DenseCopyOf(t.U.Slice(0, h, 0, k)),
		S:  s,
		VT: mat.DenseCopyOf(t.VT.Slice(0, k, 0, w)),
	}, nil
}

// Recompose multiplies U·diag(S)·Vᵀ in float64.
func Recompose(t *Triple) *mat.Dense {
	var us mat.Dense
	us.Mul(t.U, mat.NewDiagDense(t.Rank(), t.S))

	var out mat.Dense
	out.Mul(&us, t.VT)

	return &out
}
