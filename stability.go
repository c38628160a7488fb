package flightcontrol

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/gonum/matrix/mat64"
)

// Mode aliases in a ModeSet. Only present when at least two oscillatory
// modes exist: the highest frequency pair is the short period, the next the
// phugoid.
const (
	ShortPeriod = "short_period"
	Phugoid     = "phugoid"
)

// ModeKind defines an enum of natural mode kinds.
type ModeKind uint8

const (
	// RealMode is a non-oscillatory convergence or divergence.
	RealMode ModeKind = iota + 1
	// OscillatoryMode is a complex conjugate pair.
	OscillatoryMode
)

func (k ModeKind) String() string {
	switch k {
	case RealMode:
		return "real"
	case OscillatoryMode:
		return "complex"
	}
	panic("cannot stringify unknown mode kind")
}

// Mode stores one natural mode of the linearized dynamics. Oscillatory
// modes carry damping ratio, natural and damped frequency and period; real
// modes carry a time constant (infinite for a neutral mode).
type Mode struct {
	Eigenvalue   complex128
	Kind         ModeKind
	Stable       bool
	TimeConstant float64 // real modes only
	DampingRatio float64 // ζ, oscillatory modes only
	NaturalFreq  float64 // ωn, rad/s
	DampedFreq   float64 // ωd, rad/s
	Period       float64 // s
}

// ModeSet maps mode identifiers (mode_1, mode_2, ... in descending real
// part order) to modes, plus the ShortPeriod and Phugoid aliases when
// identifiable. Conjugate pairs are reported once.
type ModeSet map[string]Mode

// imagε is the threshold below which an eigenvalue imaginary part is
// treated as numerically zero.
const imagε = 1e-10

// AnalyzeModes computes the eigenvalues of the 4x4 state matrix and
// classifies each natural mode. Complex conjugate partners are skipped so
// every oscillatory mode appears exactly once.
func AnalyzeModes(sys LinearSystem) ModeSet {
	var eig mat64.Eigen
	if ok := eig.Factorize(sys.A, false, false); !ok {
		panic("eigendecomposition of the state matrix failed")
	}
	λs := eig.Values(nil)

	// Descending real part; stable sort keeps the factorization order for
	// exact ties.
	sort.SliceStable(λs, func(i, j int) bool {
		return real(λs[i]) > real(λs[j])
	})

	modes := ModeSet{}
	for i, λ := range λs {
		name := modeName(i)
		if math.Abs(imag(λ)) < imagε {
			τ := math.Inf(1)
			if real(λ) != 0 {
				τ = -1.0 / real(λ)
			}
			modes[name] = Mode{
				Eigenvalue:   λ,
				Kind:         RealMode,
				Stable:       real(λ) < 0,
				TimeConstant: τ,
			}
			continue
		}
		if conjugateSeen(λs[:i], λ) {
			continue
		}
		ωn := cmplx.Abs(λ)
		ωd := math.Abs(imag(λ))
		modes[name] = Mode{
			Eigenvalue:   λ,
			Kind:         OscillatoryMode,
			Stable:       real(λ) < 0,
			DampingRatio: -real(λ) / ωn,
			NaturalFreq:  ωn,
			DampedFreq:   ωd,
			Period:       2 * math.Pi / ωd,
		}
	}

	// Alias the two fastest oscillatory modes.
	var osc []Mode
	for _, m := range modes {
		if m.Kind == OscillatoryMode {
			osc = append(osc, m)
		}
	}
	if len(osc) >= 2 {
		sort.Slice(osc, func(i, j int) bool {
			return osc[i].NaturalFreq > osc[j].NaturalFreq
		})
		modes[ShortPeriod] = osc[0]
		modes[Phugoid] = osc[1]
	}
	return modes
}

func modeName(i int) string {
	return fmt.Sprintf("mode_%d", i+1)
}

func conjugateSeen(prior []complex128, λ complex128) bool {
	for _, p := range prior {
		if cmplx.Abs(p-cmplx.Conj(λ)) < imagε {
			return true
		}
	}
	return false
}

// HandlingQuality grades one mode against MIL-STD-1797 Category A, Class II
// bands. Levels run 1 (best) to 4 (unacceptable); level 3 or better is
// acceptable.
type HandlingQuality struct {
	DampingRatio float64
	NaturalFreq  float64
	Period       float64
	Level        int
	Acceptable   bool
}

// EvaluateHandlingQualities grades the short period and phugoid modes of
// the given linear system. Modes that cannot be identified (fewer than two
// oscillatory modes) are simply absent from the result.
func EvaluateHandlingQualities(sys LinearSystem) map[string]HandlingQuality {
	modes := AnalyzeModes(sys)
	hq := make(map[string]HandlingQuality)

	if sp, found := modes[ShortPeriod]; found {
		ζ := sp.DampingRatio
		var level int
		switch {
		case ζ >= 0.35 && ζ <= 1.30:
			level = 1
		case ζ >= 0.25 && ζ <= 2.00:
			level = 2
		case ζ >= 0.15:
			level = 3
		default:
			level = 4
		}
		hq[ShortPeriod] = HandlingQuality{
			DampingRatio: ζ,
			NaturalFreq:  sp.NaturalFreq,
			Period:       sp.Period,
			Level:        level,
			Acceptable:   level <= 3,
		}
	}

	if ph, found := modes[Phugoid]; found {
		ζ := ph.DampingRatio
		var level int
		switch {
		case ζ >= 0.04:
			level = 1
		case ζ > 0:
			level = 2
		default:
			// Undamped or divergent: grade on time to double amplitude.
			timeToDouble := math.Ln2 / math.Abs(real(ph.Eigenvalue))
			if timeToDouble > 55 {
				level = 3
			} else {
				level = 4
			}
		}
		hq[Phugoid] = HandlingQuality{
			DampingRatio: ζ,
			NaturalFreq:  ph.NaturalFreq,
			Period:       ph.Period,
			Level:        level,
			Acceptable:   level <= 3,
		}
	}
	return hq
}
