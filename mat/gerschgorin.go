package mat

import (
	"math"
)

// Gerschgorin returns an interval that contains every eigenvalue of the real symmetric matrix m.
// Theorem A3, Bounds for the eigenvalues of a matrix, Kenneth R. Garren.
func Gerschgorin(m *COO) (float64, float64) {
	type circle struct {
		center float64
		radius float64
	}
	circles := make([]circle, m.Rows())
	for _, v := range m.Data {
		if v.row == v.col {
			circles[v.row].center = v.v
		} else {
			circles[v.row].radius += math.Abs(v.v)
		}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range circles {
		lo = min(lo, c.center-c.radius)
		hi = max(hi, c.center+c.radius)
	}
	return lo, hi
}

// Residual returns |m*vec - val*vec|, the distance of vv from being an exact eigenpair of m.
func Residual(m *COO, vv ValVec) float64 {
	av := m.MulVec(nil, vv.Vec)
	var r float64
	for i, avi := range av {
		d := avi - vv.Val*vv.Vec[i]
		r += d * d
	}
	return math.Sqrt(r)
}
