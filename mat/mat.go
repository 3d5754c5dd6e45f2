package mat

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// symmetryTol is the relative tolerance used when checking that an operator is Hermitian.
	symmetryTol = 1e-12
)

var (
	ErrGridTooSmall = errors.New("grid too small")
	ErrNotSquare    = errors.New("not square")
	ErrNotSymmetric = errors.New("not symmetric")
)

type vRowCol struct {
	v   float64
	row int
	col int
}

// COO is a sparse real matrix in coordinate form.
// Data is kept in row major order and never holds zeros.
type COO struct {
	rows int
	cols int
	Data []vRowCol

	m map[[2]int]float64
}

func newCOO(rows, cols int) *COO {
	return &COO{rows: rows, cols: cols, Data: make([]vRowCol, 0), m: make(map[[2]int]float64)}
}

func M(dense [][]float64) *COO {
	m := newCOO(len(dense), len(dense[0]))
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.Data = append(m.Data, vRowCol{v: v, row: i, col: j})
		}
	}
	return m
}

func COOZeros(rows, cols int) *COO {
	return newCOO(rows, cols)
}

func COOIdentity(rows int) *COO {
	m := newCOO(rows, rows)
	for i := 0; i < rows; i++ {
		m.Data = append(m.Data, vRowCol{v: 1, row: i, col: i})
	}
	return m
}

// Diag returns the diagonal matrix with v on its diagonal.
func Diag(v []float64) *COO {
	m := newCOO(len(v), len(v))
	for i, vi := range v {
		if vi == 0 {
			continue
		}
		m.Data = append(m.Data, vRowCol{v: vi, row: i, col: i})
	}
	return m
}

// ForwardDifference returns the first derivative operator f'_i = (f_{i+1} - f_i)/h.
// The last row has no f_n, so it takes the backward difference (f_{n-1} - f_{n-2})/h instead.
func ForwardDifference(n int, h float64) (*COO, error) {
	if n < 2 {
		return nil, errors.Wrap(ErrGridTooSmall, fmt.Sprintf("%d", n))
	}
	m := newCOO(n, n)
	for i := 0; i < n-1; i++ {
		m.Data = append(m.Data, vRowCol{v: -1 / h, row: i, col: i})
		m.Data = append(m.Data, vRowCol{v: 1 / h, row: i, col: i + 1})
	}
	m.Data = append(m.Data, vRowCol{v: -1 / h, row: n - 1, col: n - 2})
	m.Data = append(m.Data, vRowCol{v: 1 / h, row: n - 1, col: n - 1})
	return m, nil
}

// SecondDifference returns the central difference operator f''_i = (f_{i+1} - 2f_i + f_{i-1})/h^2.
// The first and last rows treat the points outside the grid as zero.
func SecondDifference(n int, h float64) (*COO, error) {
	if n < 2 {
		return nil, errors.Wrap(ErrGridTooSmall, fmt.Sprintf("%d", n))
	}
	h2 := h * h
	m := newCOO(n, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			m.Data = append(m.Data, vRowCol{v: 1 / h2, row: i, col: i - 1})
		}
		m.Data = append(m.Data, vRowCol{v: -2 / h2, row: i, col: i})
		if i < n-1 {
			m.Data = append(m.Data, vRowCol{v: 1 / h2, row: i, col: i + 1})
		}
	}
	return m, nil
}

func (m *COO) Rows() int { return m.rows }
func (m *COO) Cols() int { return m.cols }

func (a *COO) Equal(b *COO) bool {
	if a.rows != b.rows {
		return false
	}
	if a.cols != b.cols {
		return false
	}
	if len(a.Data) != len(b.Data) {
		return false
	}
	for i, av := range a.Data {
		bv := b.Data[i]
		if av != bv {
			return false
		}
	}
	return true
}

// EqualApprox reports whether a and b differ by at most tol in every element.
func (a *COO) EqualApprox(b *COO, tol float64) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	clear(b.m)
	for _, v := range b.Data {
		b.m[[2]int{v.row, v.col}] = v.v
	}
	defer clear(b.m)

	for _, av := range a.Data {
		yx := [2]int{av.row, av.col}
		if math.Abs(av.v-b.m[yx]) > tol {
			return false
		}
		delete(b.m, yx)
	}
	for _, bv := range b.m {
		if math.Abs(bv) > tol {
			return false
		}
	}
	return true
}

func (m *COO) Slice(yBoundN, xBoundN [2]int) *COO {
	yBound, xBound := yBoundN, xBoundN
	for i := 0; i < 2; i++ {
		if yBound[i] < 0 {
			yBound[i] += m.rows
		}
		if xBound[i] < 0 {
			xBound[i] += m.cols
		}
	}

	s := newCOO(yBound[1]-yBound[0], xBound[1]-xBound[0])
	for _, v := range m.Data {
		if v.row < yBound[0] {
			continue
		}
		if v.row >= yBound[1] {
			break
		}
		if v.col < xBound[0] || v.col >= xBound[1] {
			continue
		}
		s.Data = append(s.Data, vRowCol{v: v.v, row: v.row - yBound[0], col: v.col - xBound[0]})
	}
	return s
}

// Add computes a += c*b.
func (a *COO) Add(c float64, b *COO) {
	if a.rows != b.rows || a.cols != b.cols {
		panic(fmt.Sprintf("wrong dimensions %dx%d %dx%d", a.rows, a.cols, b.rows, b.cols))
	}
	clear(b.m)
	for _, v := range b.Data {
		b.m[[2]int{v.row, v.col}] = v.v
	}

	for i, av := range a.Data {
		byx := [2]int{av.row, av.col}
		bv := b.m[byx]
		delete(b.m, byx)

		a.Data[i].v = av.v + c*bv
	}

	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
	for yx, bv := range b.m {
		if c*bv == 0 {
			continue
		}
		a.Data = append(a.Data, vRowCol{v: c * bv, row: yx[0], col: yx[1]})
	}
	slices.SortFunc(a.Data, rowMajor)
	clear(b.m)
}

func (m *COO) Scale(c float64) {
	for i := range m.Data {
		m.Data[i].v *= c
	}
	m.Data = slices.DeleteFunc(m.Data, func(v vRowCol) bool {
		return v.v == 0
	})
}

// MulVec computes dst = m*x, allocating dst if it is too short.
func (m *COO) MulVec(dst, x []float64) []float64 {
	if len(x) != m.cols {
		panic(fmt.Sprintf("wrong dimensions %dx%d %d", m.rows, m.cols, len(x)))
	}
	if len(dst) < m.rows {
		dst = make([]float64, m.rows)
	}
	dst = dst[:m.rows]
	clear(dst)
	for _, v := range m.Data {
		dst[v.row] += v.v * x[v.col]
	}
	return dst
}

func (m *COO) Dense() [][]float64 {
	dense := make([][]float64, m.rows)
	for i := range dense {
		dense[i] = make([]float64, m.cols)
	}

	for _, v := range m.Data {
		dense[v.row][v.col] = v.v
	}

	return dense
}

func (m *COO) IsSymmetric(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	clear(m.m)
	for _, v := range m.Data {
		m.m[[2]int{v.row, v.col}] = v.v
	}
	defer clear(m.m)

	for _, v := range m.Data {
		t := m.m[[2]int{v.col, v.row}]
		if math.Abs(v.v-t) > tol*max(1, math.Abs(v.v)) {
			return false
		}
	}
	return true
}

// SymDense copies m into a gonum symmetric matrix.
func (m *COO) SymDense() (*mat.SymDense, error) {
	if m.rows != m.cols {
		return nil, errors.Wrap(ErrNotSquare, fmt.Sprintf("%dx%d", m.rows, m.cols))
	}
	if !m.IsSymmetric(symmetryTol) {
		return nil, errors.Wrap(ErrNotSymmetric, "")
	}

	sym := mat.NewSymDense(m.rows, nil)
	for _, v := range m.Data {
		if v.col < v.row {
			continue
		}
		sym.SetSym(v.row, v.col, v.v)
	}
	return sym, nil
}

func (m *COO) String() string {
	clear(m.m)
	for _, v := range m.Data {
		m.m[[2]int{v.row, v.col}] = v.v
	}

	lines := []string{}
	for i := 0; i < m.rows; i++ {
		cs := []string{}
		for j := 0; j < m.cols; j++ {
			cs = append(cs, format(m.m[[2]int{i, j}]))
		}
		l := strings.Join(cs, "\t")
		lines = append(lines, l)
	}

	clear(m.m)
	return strings.Join(lines, "\n")
}

// ValVec is an eigenvalue and its eigenvector.
type ValVec struct {
	Val float64
	Vec []float64
}

// Eigen diagonalizes the symmetric matrix m.
// The eigenpairs are sorted by ascending eigenvalue, and every eigenvector has unit norm.
func (m *COO) Eigen() ([]ValVec, error) {
	if d, e, ok := m.Tridiagonal(); ok {
		return eigenTridiagonal(d, e)
	}
	sym, err := m.SymDense()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errors.Errorf("eig.Factorize failed %dx%d", m.rows, m.cols)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	vecsR, _ := vecs.Dims()
	vvs := make([]ValVec, 0, len(vals))
	for i, v := range vals {
		vec := make([]float64, 0, vecsR)
		for j := 0; j < vecsR; j++ {
			vec = append(vec, vecs.At(j, i))
		}
		vvs = append(vvs, ValVec{Val: v, Vec: vec})
	}
	slices.SortStableFunc(vvs, func(a, b ValVec) int { return cmp.Compare(a.Val, b.Val) })

	return vvs, nil
}

// EigenValues returns the ascending eigenvalues of m without computing eigenvectors.
func (m *COO) EigenValues() ([]float64, error) {
	if d, e, ok := m.Tridiagonal(); ok {
		return eigenValuesTridiagonal(d, e)
	}
	sym, err := m.SymDense()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return nil, errors.Errorf("eig.Factorize failed %dx%d", m.rows, m.cols)
	}
	vals := eig.Values(nil)
	slices.Sort(vals)
	return vals, nil
}

func rowMajor(a, b vRowCol) int {
	if c := cmp.Compare(a.row, b.row); c != 0 {
		return c
	}
	return cmp.Compare(a.col, b.col)
}

func format(v float64) string {
	// If v is 0 or -0, return "0" immediately to avoid returning "-0".
	if v == 0 {
		return " 0"
	}

	s := fmt.Sprintf("%v", v)

	// Add a space before non-negative numbers to align with other negative numbers in the same column.
	if v >= 0 {
		s = " " + s
	}

	return s
}
