package mat

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestSlice(t *testing.T) {
	t.Parallel()
	tests := []struct {
		m *COO
		y [2]int
		x [2]int
		s *COO
	}{
		{
			m: M([][]float64{
				{0, 1, 2, 3, 4},
				{5, 6, 7, 8, 9},
				{10, 11, 12, 13, 14},
				{15, 16, 17, 18, 19},
				{20, 21, 22, 23, 24},
				{25, 26, 27, 28, 29},
			}),
			y: [2]int{-5, -2},
			x: [2]int{1, 3},
			s: M([][]float64{
				{6, 7},
				{11, 12},
				{16, 17},
			}),
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s", test.m), func(t *testing.T) {
			t.Parallel()
			s := test.m.Slice(test.y, test.x)
			if !s.Equal(test.s) {
				t.Fatalf("%s, expected %s", s, test.s)
			}
		})
	}
}

func TestAdd(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a          *COO
		c          float64
		b          *COO
		z          *COO
		numNonZero int
	}{
		{
			a: M([][]float64{
				{1, 0},
				{0, 2},
			}),
			c: 2,
			b: M([][]float64{
				{1, 0},
				{3, -1},
			}),
			z: M([][]float64{
				{3, 0},
				{6, 0},
			}),
			numNonZero: 2,
		},
		{
			a: COOZeros(3, 3),
			c: -0.5,
			b: COOIdentity(3),
			z: Diag([]float64{-0.5, -0.5, -0.5}),
			numNonZero: 3,
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s", test.a), func(t *testing.T) {
			t.Parallel()
			test.a.Add(test.c, test.b)
			if !test.a.Equal(test.z) {
				t.Fatalf("%s, expected %s", test.a, test.z)
			}
			if len(test.a.Data) != test.numNonZero {
				t.Fatalf("%d, expected %d", len(test.a.Data), test.numNonZero)
			}
		})
	}
}

func TestDifference(t *testing.T) {
	t.Parallel()
	forward, err := ForwardDifference(4, 0.5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	second, err := SecondDifference(3, 0.5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tests := []struct {
		name string
		m    *COO
		z    *COO
	}{
		{
			name: "forward",
			m:    forward,
			z: M([][]float64{
				{-2, 2, 0, 0},
				{0, -2, 2, 0},
				{0, 0, -2, 2},
				{0, 0, -2, 2},
			}),
		},
		{
			name: "second",
			m:    second,
			z: M([][]float64{
				{-8, 4, 0},
				{4, -8, 4},
				{0, 4, -8},
			}),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if !test.m.Equal(test.z) {
				t.Fatalf("%s, expected %s", test.m, test.z)
			}
		})
	}

	if _, err := SecondDifference(1, 1); !errors.Is(err, ErrGridTooSmall) {
		t.Fatalf("%+v", err)
	}
}

func TestMulVec(t *testing.T) {
	t.Parallel()
	m := M([][]float64{
		{1, 2, 0},
		{0, -1, 3},
	})
	dst := m.MulVec(nil, []float64{1, 1, 2})
	expected := []float64{3, 5}
	for i, v := range dst {
		if v != expected[i] {
			t.Fatalf("%v, expected %v", dst, expected)
		}
	}
}

func TestEigen(t *testing.T) {
	t.Parallel()
	// The eigenvalues of tridiag(1, -2, 1) are -2 + 2cos(k pi/(n+1)),
	// with eigenvectors sqrt(2/(n+1)) sin(j k pi/(n+1)).
	const n = 6
	m, err := SecondDifference(n, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	vvs, err := m.Eigen()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(vvs) != n {
		t.Fatalf("%d", len(vvs))
	}

	for i, vv := range vvs {
		k := n - i
		val := -2 + 2*math.Cos(float64(k)*math.Pi/(n+1))
		if math.Abs(vv.Val-val) > 1e-10 {
			t.Fatalf("%d %f %f", i, vv.Val, val)
		}

		// Eigenvectors are determined up to a sign.
		sign := 1.0
		if vv.Vec[0] < 0 {
			sign = -1
		}
		for j, v := range vv.Vec {
			expected := math.Sqrt(2./(n+1)) * math.Sin(float64((j+1)*k)*math.Pi/(n+1))
			if math.Abs(sign*v-expected) > 1e-8 {
				t.Fatalf("%d %d %f %f", i, j, v, expected)
			}
		}

		if r := Residual(m, vv); r > 1e-10 {
			t.Fatalf("%d %g", i, r)
		}
	}

	vals, err := m.EigenValues()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, v := range vals {
		if math.Abs(v-vvs[i].Val) > 1e-10 {
			t.Fatalf("%d %f %f", i, v, vvs[i].Val)
		}
	}
}

func TestEigenNotSymmetric(t *testing.T) {
	t.Parallel()
	m, err := ForwardDifference(4, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := m.Eigen(); !errors.Is(err, ErrNotSymmetric) {
		t.Fatalf("%+v", err)
	}
	if _, err := M([][]float64{{1, 2, 3}}).Eigen(); !errors.Is(err, ErrNotSquare) {
		t.Fatalf("%+v", err)
	}
}

func TestGerschgorin(t *testing.T) {
	t.Parallel()
	m, err := SecondDifference(4, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	lo, hi := Gerschgorin(m)
	if lo != -4 || hi != 0 {
		t.Fatalf("%f %f", lo, hi)
	}

	vals, err := m.EigenValues()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for _, v := range vals {
		if v < lo || v > hi {
			t.Fatalf("%f not in [%f, %f]", v, lo, hi)
		}
	}
}

func TestGroundState(t *testing.T) {
	t.Parallel()
	n := 30
	m, err := SecondDifference(n, 1/float64(n+1))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	m.Scale(-0.5)

	vvs, err := m.Eigen()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	vv, err := GroundState(m, 1e-9, 100000)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(vv.Val-vvs[0].Val) > 1e-8 {
		t.Fatalf("%f %f", vv.Val, vvs[0].Val)
	}
	var overlap float64
	for i, v := range vv.Vec {
		overlap += v * vvs[0].Vec[i]
		if v < 0 {
			t.Fatalf("%d %f", i, v)
		}
	}
	if math.Abs(math.Abs(overlap)-1) > 1e-6 {
		t.Fatalf("%f", overlap)
	}
	if r := Residual(m, vv); r > 1e-5 {
		t.Fatalf("%g", r)
	}

	if _, err := GroundState(m, 1e-12, 3); !errors.Is(err, ErrNoConvergence) {
		t.Fatalf("%+v", err)
	}
	if _, err := GroundState(M([][]float64{{1, 2}, {0, 1}}), 1e-9, 10); !errors.Is(err, ErrNotSymmetric) {
		t.Fatalf("%+v", err)
	}
}

func TestTridiagonal(t *testing.T) {
	t.Parallel()
	second, err := SecondDifference(4, 0.5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	forward, err := ForwardDifference(4, 0.5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tests := []struct {
		m  *COO
		ok bool
		d  []float64
		e  []float64
	}{
		{m: second, ok: true, d: []float64{-8, -8, -8, -8}, e: []float64{4, 4, 4}},
		{m: forward, ok: false},
		{m: M([][]float64{{1, 0, 2}, {0, 1, 0}, {2, 0, 1}}), ok: false},
		{m: M([][]float64{{1, 2, 3}}), ok: false},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s", test.m), func(t *testing.T) {
			t.Parallel()
			if test.m.Rows() == test.m.Cols() && len(test.m.Dense()) != test.m.Rows() {
				t.Fatalf("%v", test.m.Dense())
			}
			d, e, ok := test.m.Tridiagonal()
			if ok != test.ok {
				t.Fatalf("%t, expected %t", ok, test.ok)
			}
			if !ok {
				return
			}
			dense := test.m.Dense()
			for i := range d {
				if d[i] != test.d[i] || d[i] != dense[i][i] {
					t.Fatalf("%v, expected %v", d, test.d)
				}
			}
			for i := range e {
				if e[i] != test.e[i] || e[i] != dense[i][i+1] || e[i] != dense[i+1][i] {
					t.Fatalf("%v, expected %v", e, test.e)
				}
			}
		})
	}
}

// doubleWell is the Hamiltonian of two wells of depth 10, width 1 and separation sep on [-8, 8].
func doubleWell(t *testing.T, n int, sep float64) *COO {
	h := 16 / float64(n-1)
	m, err := SecondDifference(n, h)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	m.Scale(-0.5)
	v := make([]float64, n)
	for i := range v {
		x := math.Abs(-8 + float64(i)*h)
		if x > sep/2 && x < sep/2+1 {
			v[i] = -10
		}
	}
	m.Add(1, Diag(v))
	return m
}

func TestEigenLowest(t *testing.T) {
	t.Parallel()
	tests := []struct {
		m *COO
		k int
	}{
		{m: doubleWell(t, 300, 0), k: 4},
		{m: doubleWell(t, 300, 2), k: 6},
		{m: doubleWell(t, 300, 4), k: 2},
		{m: M([][]float64{{2, 0, 1}, {0, 3, 0}, {1, 0, 2}}), k: 2},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %d", test.m.Rows(), test.k), func(t *testing.T) {
			t.Parallel()
			sym, err := test.m.SymDense()
			if err != nil {
				t.Fatalf("%+v", err)
			}
			var eig mat.EigenSym
			if ok := eig.Factorize(sym, false); !ok {
				t.Fatalf("factorize failed")
			}
			expected := eig.Values(nil)

			vvs, vals, err := test.m.EigenLowest(test.k)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if len(vvs) != test.k || len(vals) != len(expected) {
				t.Fatalf("%d %d", len(vvs), len(vals))
			}
			lo, hi := Gerschgorin(test.m)
			scale := max(math.Abs(lo), math.Abs(hi))
			for i, v := range vals {
				if math.Abs(v-expected[i]) > 1e-10*scale {
					t.Fatalf("%d %f %f", i, v, expected[i])
				}
			}
			for i, vv := range vvs {
				if vv.Val != vals[i] {
					t.Fatalf("%d %f %f", i, vv.Val, vals[i])
				}
				if r := Residual(test.m, vv); r > 1e-9*scale {
					t.Fatalf("%d %g", i, r)
				}
				for j, ww := range vvs[:i+1] {
					var dot float64
					for l := range vv.Vec {
						dot += vv.Vec[l] * ww.Vec[l]
					}
					var delta float64
					if i == j {
						delta = 1
					}
					if math.Abs(dot-delta) > 1e-10 {
						t.Fatalf("%d %d %g", i, j, dot)
					}
				}
			}
		})
	}

	m := doubleWell(t, 50, 1)
	if vvs, vals, err := m.EigenLowest(-1); err != nil || len(vvs) != 0 || len(vals) != 50 {
		t.Fatalf("%+v %d %d", err, len(vvs), len(vals))
	}
}

func TestReadWrite(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	m, err := SecondDifference(5, 0.1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	m.Add(1, Diag([]float64{0, -6, -6, 0, 0}))
	if err := m.WriteCOO(dir); err != nil {
		t.Fatalf("%+v", err)
	}
	read, err := ReadCOO(dir)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !read.Equal(m) {
		t.Fatalf("\n%s, expected \n\n%s", read, m)
	}

	vvs, err := m.Eigen()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	eigPath := filepath.Join(dir, "eig.csv")
	if err := WriteEigen(eigPath, vvs); err != nil {
		t.Fatalf("%+v", err)
	}
	readVVs, err := ReadEigen(eigPath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, vv := range readVVs {
		if vv.Val != vvs[i].Val {
			t.Fatalf("%d %f %f", i, vv.Val, vvs[i].Val)
		}
		for j, v := range vv.Vec {
			if v != vvs[i].Vec[j] {
				t.Fatalf("%d %d %f %f", i, j, v, vvs[i].Vec[j])
			}
		}
	}
}
