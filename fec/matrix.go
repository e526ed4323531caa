package fec

import (
	"fmt"
	"strings"
)

// Matrix is a dense GF(256) matrix stored row-major in one buffer.
type Matrix struct {
	rows, cols int
	data       []byte
}

// NewMatrix returns a zero rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	if rows < 0 || cols < 0 {
		panic("fec: negative matrix dimension")
	}
	return Matrix{rows: rows, cols: cols, data: make([]byte, rows*cols)}
}

// Identity returns the n x n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func (m Matrix) Rows() int { return m.rows }
func (m Matrix) Cols() int { return m.cols }

// Row returns row i; writes through the returned slice modify the matrix.
func (m Matrix) Row(i int) []byte {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

func (m Matrix) At(i, j int) byte { return m.data[i*m.cols+j] }

func (m Matrix) Set(i, j int, v byte) { m.data[i*m.cols+j] = v }

// SwapRows exchanges rows i and j in place.
func (m Matrix) SwapRows(i, j int) {
	if i == j {
		return
	}
	ri, rj := m.Row(i), m.Row(j)
	for k := range ri {
		ri[k], rj[k] = rj[k], ri[k]
	}
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	c := Matrix{rows: m.rows, cols: m.cols, data: make([]byte, len(m.data))}
	copy(c.data, m.data)
	return c
}

// MulSymbols returns m·s where s holds one symbol per column of m.
func (m Matrix) MulSymbols(s [][]byte) ([][]byte, error) {
	if len(s) != m.cols {
		return nil, fmt.Errorf("%w: %d symbols for %d columns", ErrMalformed, len(s), m.cols)
	}
	size := 0
	if len(s) > 0 {
		size = len(s[0])
	}
	out := make([][]byte, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = make([]byte, size)
		for j, c := range m.Row(i) {
			if len(s[j]) != size {
				return nil, fmt.Errorf("%w: symbol %d has %d bytes, want %d", ErrMalformed, j, len(s[j]), size)
			}
			AddScaledVector(out[i], s[j], c)
		}
	}
	return out, nil
}

func (m Matrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		for j, v := range m.Row(i) {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%02x", v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
