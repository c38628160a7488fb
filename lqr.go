package flightcontrol

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// LQR cost weights over state [u w q θ] and control [δe δT].
var (
	lqrQDiag = []float64{1, 10, 5, 50}
	lqrRDiag = []float64{1, 0.1}
)

const (
	lqrMaxIter = 100
	lqrTol     = 1e-9
)

// DesignLQR solves the continuous-time LQR problem for the linearized
// system with the fixed diagonal weights Q=diag(1,10,5,50), R=diag(1,0.1)
// and returns the 2x4 state feedback gain. The Riccati equation is solved
// by Newton-Kleinman iteration, each step a Kronecker-vectorized Lyapunov
// solve, started from a Bass shifted-Lyapunov stabilizing gain. An
// infeasible solve (unstabilizable pair, singular gramian, divergence)
// returns ok=false; callers must treat that as "alternate design
// unavailable", not as an error.
func DesignLQR(sys LinearSystem) (gain *mat64.Dense, ok bool) {
	n := len(lqrQDiag)
	m := len(lqrRDiag)
	Q := diagonal(lqrQDiag)
	R := diagonal(lqrRDiag)
	Rinv := diagonal([]float64{1 / lqrRDiag[0], 1 / lqrRDiag[1]})
	A := sys.A
	B := sys.B

	K := initialStabilizingGain(A, B)
	if K == nil {
		return nil, false
	}
	for iter := 0; iter < lqrMaxIter; iter++ {
		// Closed loop Ac = A - B K.
		var BK, Ac mat64.Dense
		BK.Mul(B, K)
		Ac.Sub(A, &BK)
		// Qt = Q + Kᵀ R K.
		var KtR, KtRK, Qt mat64.Dense
		KtR.Mul(K.T(), R)
		KtRK.Mul(&KtR, K)
		Qt.Add(Q, &KtRK)
		P, err := lyapunov(&Ac, &Qt)
		if err != nil {
			return nil, false
		}
		// Knext = R⁻¹ Bᵀ P.
		var BtP mat64.Dense
		BtP.Mul(B.T(), P)
		Knext := mat64.NewDense(m, n, nil)
		Knext.Mul(Rinv, &BtP)

		var diff mat64.Dense
		diff.Sub(Knext, K)
		δ := mat64.Norm(&diff, math.Inf(1))
		if math.IsNaN(δ) || math.IsInf(δ, 0) {
			return nil, false
		}
		K = Knext
		if δ < lqrTol {
			return K, true
		}
	}
	return nil, false
}

// LQRGains is the controller-side LQR design entry point. When the solve is
// infeasible it logs and returns ok=false; the phase-based law remains in
// effect regardless.
func (c *LandingController) LQRGains(sys LinearSystem) (*mat64.Dense, bool) {
	K, ok := DesignLQR(sys)
	if !ok {
		c.logger.Log("level", "warning", "lqr", "design unavailable")
	}
	return K, ok
}

// initialStabilizingGain returns a gain K0 such that A-B*K0 is Hurwitz, or
// nil when none can be found. A stable A needs no initial feedback; an
// unstable one goes through Bass' shifted Lyapunov construction.
func initialStabilizingGain(A, B *mat64.Dense) *mat64.Dense {
	n, _ := A.Dims()
	_, m := B.Dims()
	if maxRealEig(A) < 0 {
		return mat64.NewDense(m, n, nil)
	}
	// β beyond any eigenvalue magnitude shifts A fully into the right half
	// plane, which makes X a controllability-gramian-like solution.
	β := mat64.Norm(A, math.Inf(1)) + 0.5
	// Solve (A+βI) X + X (A+βI)ᵀ = 2 B Bᵀ through the AᵀP+PA=-Q solver by
	// passing the transposed shifted matrix.
	shifted := mat64.NewDense(n, n, nil)
	shifted.Copy(A)
	for i := 0; i < n; i++ {
		shifted.Set(i, i, shifted.At(i, i)+β)
	}
	var shiftedT mat64.Dense
	shiftedT.Clone(shifted.T())
	var BBt mat64.Dense
	BBt.Mul(B, B.T())
	BBt.Scale(-2, &BBt)
	X, err := lyapunov(&shiftedT, &BBt)
	if err != nil {
		return nil
	}
	var Xinv mat64.Dense
	if err := Xinv.Inverse(X); err != nil {
		return nil
	}
	K0 := mat64.NewDense(m, n, nil)
	K0.Mul(B.T(), &Xinv)
	// Verify the construction actually stabilized the pair.
	var BK, Ac mat64.Dense
	BK.Mul(B, K0)
	Ac.Sub(A, &BK)
	if maxRealEig(&Ac) >= 0 {
		return nil
	}
	return K0
}

// lyapunov solves the continuous Lyapunov equation Aᵀ P + P A = -Q by
// Kronecker vectorization, returning the symmetrized P.
func lyapunov(A, Q *mat64.Dense) (*mat64.Dense, error) {
	n, _ := A.Dims()
	eye := diagonal(ones(n))
	var At mat64.Dense
	At.Clone(A.T())
	var M mat64.Dense
	M.Add(kronecker(eye, &At), kronecker(&At, eye))

	// Column-major vec of -Q.
	rhs := mat64.NewDense(n*n, 1, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			rhs.Set(j*n+i, 0, -Q.At(i, j))
		}
	}
	var vecP mat64.Dense
	if err := vecP.Solve(&M, rhs); err != nil {
		return nil, err
	}
	P := mat64.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			P.Set(i, j, vecP.At(j*n+i, 0))
		}
	}
	// Symmetrize to scrub solver round-off.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := 0.5 * (P.At(i, j) + P.At(j, i))
			P.Set(i, j, v)
			P.Set(j, i, v)
		}
	}
	return P, nil
}

// kronecker returns the Kronecker product of two dense matrices.
func kronecker(a, b *mat64.Dense) *mat64.Dense {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	k := mat64.NewDense(ra*rb, ca*cb, nil)
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			aij := a.At(i, j)
			if aij == 0 {
				continue
			}
			for p := 0; p < rb; p++ {
				for q := 0; q < cb; q++ {
					k.Set(i*rb+p, j*cb+q, aij*b.At(p, q))
				}
			}
		}
	}
	return k
}

// maxRealEig returns the largest real part among the eigenvalues of a.
func maxRealEig(a *mat64.Dense) float64 {
	var eig mat64.Eigen
	if ok := eig.Factorize(a, false, false); !ok {
		panic("eigendecomposition failed")
	}
	max := math.Inf(-1)
	for _, λ := range eig.Values(nil) {
		if real(λ) > max {
			max = real(λ)
		}
	}
	return max
}

func diagonal(d []float64) *mat64.Dense {
	n := len(d)
	m := mat64.NewDense(n, n, nil)
	for i, v := range d {
		m.Set(i, i, v)
	}
	return m
}

func ones(n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = 1
	}
	return o
}
