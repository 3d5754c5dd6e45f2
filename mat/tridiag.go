package mat

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/lapack"
	"gonum.org/v1/gonum/lapack/gonum"
	"gonum.org/v1/gonum/lapack/lapack64"
)

const (
	inverseIterations = 3
)

// Tridiagonal returns the diagonal d and off-diagonal e of m.
// ok is false unless m is square, symmetric and has no elements beyond the first off-diagonals.
func (m *COO) Tridiagonal() (d, e []float64, ok bool) {
	if m.Rows() != m.Cols() || m.Rows() == 0 {
		return nil, nil, false
	}
	n := m.Rows()
	d = make([]float64, n)
	e = make([]float64, n-1)
	lower := make([]float64, n-1)
	for _, v := range m.Data {
		switch v.col - v.row {
		case 0:
			d[v.row] = v.v
		case 1:
			e[v.row] = v.v
		case -1:
			lower[v.col] = v.v
		default:
			return nil, nil, false
		}
	}
	for i, ei := range e {
		if math.Abs(ei-lower[i]) > symmetryTol*max(1, math.Abs(ei)) {
			return nil, nil, false
		}
	}
	return d, e, true
}

func eigenTridiagonal(d, e []float64) ([]ValVec, error) {
	n := len(d)
	z := make([]float64, n*n)
	work := make([]float64, max(1, 2*n-2))
	if ok := (gonum.Implementation{}).Dsteqr(lapack.EVTridiag, n, d, e, z, n, work); !ok {
		return nil, errors.Errorf("Dsteqr failed %d", n)
	}

	vvs := make([]ValVec, 0, n)
	for i, v := range d {
		vec := make([]float64, n)
		for j := range vec {
			vec[j] = z[j*n+i]
		}
		vvs = append(vvs, ValVec{Val: v, Vec: vec})
	}
	return vvs, nil
}

func eigenValuesTridiagonal(d, e []float64) ([]float64, error) {
	if ok := (gonum.Implementation{}).Dsterf(len(d), d, e); !ok {
		return nil, errors.Errorf("Dsterf failed %d", len(d))
	}
	return d, nil
}

// EigenLowest returns the k lowest eigenpairs of the symmetric matrix m, together with all its ascending eigenvalues.
// Tridiagonal matrices skip the dense factorization: every eigenvalue comes from the QL iteration,
// and only the k eigenvectors are found, by inverse iteration.
func (m *COO) EigenLowest(k int) ([]ValVec, []float64, error) {
	d, e, ok := m.Tridiagonal()
	if !ok {
		vvs, err := m.Eigen()
		if err != nil {
			return nil, nil, errors.Wrap(err, "")
		}
		vals := make([]float64, 0, len(vvs))
		for _, vv := range vvs {
			vals = append(vals, vv.Val)
		}
		return vvs[:max(0, min(k, len(vvs)))], vals, nil
	}

	vals, err := eigenValuesTridiagonal(append([]float64(nil), d...), append([]float64(nil), e...))
	if err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	k = max(0, min(k, len(vals)))
	vvs := make([]ValVec, 0, k)
	for i, val := range vals[:k] {
		vec, err := inverseIteration(d, e, val, vvs, int64(i))
		if err != nil {
			return nil, nil, errors.Wrap(err, fmt.Sprintf("%d %f", i, val))
		}
		vvs = append(vvs, ValVec{Val: val, Vec: vec})
	}
	return vvs, vals, nil
}

// inverseIteration solves (T - val I) x_{i+1} = x_i, keeping x orthogonal to the eigenvectors in prev.
func inverseIteration(d, e []float64, val float64, prev []ValVec, seed int64) ([]float64, error) {
	n := len(d)
	var norm float64
	for i, di := range d {
		r := math.Abs(di)
		if i > 0 {
			r += math.Abs(e[i-1])
		}
		if i < n-1 {
			r += math.Abs(e[i])
		}
		norm = max(norm, r)
	}
	pert := 10 * 0x1p-52 * max(norm, math.SmallestNonzeroFloat64)

	rnd := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for i := range x {
		x[i] = 2*rnd.Float64() - 1
	}
	dl, dd, du := make([]float64, n-1), make([]float64, n), make([]float64, n-1)
	rhs := make([]float64, n)
	// Below val, a near degenerate neighbor in the way is one of prev and projected out.
	shift := val - pert
	for iter := 0; iter < inverseIterations; iter++ {
		copy(dl, e)
		copy(du, e)
		for i, di := range d {
			dd[i] = di - shift
		}
		a := lapack64.Tridiagonal{N: n, DL: dl, D: dd, DU: du}
		copy(rhs, x)
		b := blas64.General{Rows: n, Cols: 1, Stride: 1, Data: rhs}
		if ok := lapack64.Gtsv(blas.NoTrans, a, b); !ok {
			// An exactly singular pivot, move the shift off the eigenvalue.
			shift -= pert
			iter--
			if val-shift > 1e3*pert {
				return nil, errors.Errorf("singular at shift %g", shift)
			}
			continue
		}
		x, rhs = rhs, x

		for _, p := range prev {
			floats.AddScaled(x, -floats.Dot(x, p.Vec), p.Vec)
		}
		xNorm := floats.Norm(x, 2)
		if xNorm == 0 || math.IsInf(xNorm, 0) || math.IsNaN(xNorm) {
			return nil, errors.Errorf("iteration %d norm %g", iter, xNorm)
		}
		floats.Scale(1/xNorm, x)
	}
	return x, nil
}
