package fec

import (
	"errors"
	"fmt"
)

var (
	// ErrSingular is returned when the received symbols do not determine
	// every source symbol. It is an expected outcome under heavy loss.
	ErrSingular = errors.New("fec: linear system is not invertible")
	// ErrMalformed is returned for inputs whose shape is inconsistent.
	ErrMalformed = errors.New("fec: malformed input")
)

// Solve solves a·x = b over GF(256) by Gauss-Jordan elimination. a may have
// more rows than columns; any cols linearly independent rows determine x.
// Both a and b are overwritten and rows are reordered; on success b[i] holds
// unknown i for i < a.Cols(). Pivots are taken from the first row at or below
// the diagonal with a nonzero entry in the pivot column, so earlier rows are
// preferred.
func Solve(a Matrix, b [][]byte) error {
	m, n := a.Rows(), a.Cols()
	if m < n {
		return fmt.Errorf("%w: matrix is %dx%d, need at least as many rows as columns", ErrMalformed, m, n)
	}
	if len(b) != m {
		return fmt.Errorf("%w: %d right-hand symbols for %d rows", ErrMalformed, len(b), m)
	}
	for i := 1; i < m; i++ {
		if len(b[i]) != len(b[0]) {
			return fmt.Errorf("%w: symbol %d has %d bytes, want %d", ErrMalformed, i, len(b[i]), len(b[0]))
		}
	}

	for k := 0; k < n; k++ {
		if a.At(k, k) == 0 {
			pr := -1
			for i := k + 1; i < m; i++ {
				if a.At(i, k) != 0 {
					pr = i
					break
				}
			}
			if pr == -1 {
				return fmt.Errorf("%w: no pivot for column %d", ErrSingular, k)
			}
			a.SwapRows(k, pr)
			b[k], b[pr] = b[pr], b[k]
		}

		// normalize pivot row so a[k][k] becomes 1; columns left of k are already zero
		rowK := a.Row(k)
		if p := rowK[k]; p != 1 {
			DivideVector(rowK[k:], p)
			DivideVector(b[k], p)
		}

		// eliminate column k from every other row, spare rows included
		for i := 0; i < m; i++ {
			if i == k {
				continue
			}
			rowI := a.Row(i)
			f := rowI[k]
			if f == 0 {
				continue
			}
			AddScaledVector(rowI[k:], rowK[k:], f)
			AddScaledVector(b[i], b[k], f)
		}
	}
	return nil
}
