package topology

import "math"

// NoLink is the negative sentinel a source may use for "no link". Zero is
// accepted as well.
const NoLink = -1.0

// Matrix is a square latency matrix in seconds. Row and column 0 are unused:
// satellite identifiers start at 1.
type Matrix [][]float64

// Size returns the number of addressable satellites (len-1).
func (m Matrix) Size() int {
	if len(m) == 0 {
		return 0
	}
	return len(m) - 1
}

// Validate checks squareness and that every cell is finite and either
// positive or a no-link sentinel. Only the upper triangle is consumed by the
// builder, but the whole matrix is checked.
func (m Matrix) Validate() error {
	n := len(m)
	for i, row := range m {
		if len(row) != n {
			return &MatrixError{Row: -1, Reason: "matrix is not square"}
		}
		for j, v := range row {
			switch {
			case math.IsNaN(v) || math.IsInf(v, 0):
				return &MatrixError{Row: i, Col: j, Value: v, Reason: "non-finite latency"}
			case v < 0 && v != NoLink:
				return &MatrixError{Row: i, Col: j, Value: v, Reason: "negative latency is not a no-link sentinel"}
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// NewMatrix returns an n-satellite matrix (n+1 square) with every link absent.
func NewMatrix(n int) Matrix {
	m := make(Matrix, n+1)
	for i := range m {
		m[i] = make([]float64, n+1)
	}
	return m
}

// SetLink writes latency symmetrically between a and b.
func (m Matrix) SetLink(a, b int, latency float64) {
	m[a][b] = latency
	m[b][a] = latency
}
