package analytic

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

var (
	ErrNoBracket     = errors.New("root not bracketed")
	ErrNoConvergence = errors.New("root not converged")
)

// Brent finds a root of f in [lo, hi] with Brent's method.
// f(lo) and f(hi) must have opposite signs.
//
// References:
//   - Numerical Recipes, Section 9.3 Van Wijngaarden-Dekker-Brent Method.
func Brent(f func(float64) float64, lo, hi, tol float64, maxIter int) (float64, error) {
	const eps = 0x1p-52

	a, b := lo, hi
	fa, fb := f(a), f(b)
	switch {
	case fa == 0:
		return a, nil
	case fb == 0:
		return b, nil
	case math.IsNaN(fa) || math.IsNaN(fb) || (fa > 0) == (fb > 0):
		return math.NaN(), errors.Wrap(ErrNoBracket, fmt.Sprintf("f(%g)=%g f(%g)=%g", a, fa, b, fb))
	}

	c, fc := b, fb
	var d, e float64
	for range maxIter {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol1 := 2*eps*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			// Inverse quadratic interpolation, or the secant method when only two points are distinct.
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)

			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
	}
	return b, errors.Wrap(ErrNoConvergence, fmt.Sprintf("%d iterations [%g, %g]", maxIter, lo, hi))
}
