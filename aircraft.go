package flightcontrol

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
)

// Aircraft defines the mass, geometry, inertia and aerodynamic coefficient
// set of a fixed wing aircraft. It is treated as an opaque read-only record:
// no component of this package mutates it after construction.
type Aircraft struct {
	Name string
	// Mass and geometry.
	Mass     float64 // kg
	WingArea float64 // m^2
	WingSpan float64 // m
	Chord    float64 // m, mean aerodynamic chord
	// Moments of inertia (kg m^2).
	Ixx, Iyy, Izz, Ixz float64
	// Longitudinal non-dimensional derivatives.
	CL0, CLα, CLq, CLδe float64
	CD0, CDα, CDδe      float64
	Cm0, Cmα, Cmq, Cmδe float64
	// Lateral-directional non-dimensional derivatives.
	CYβ, CYδr           float64
	Clβ, Clp, Clr       float64
	Clδa, Clδr          float64
	Cnβ, Cnp, Cnr       float64
	Cnδa, Cnδr          float64
	// Propulsion and environment.
	MaxThrust float64 // N
	G         float64 // m/s^2
	ρ         float64 // air density, kg/m^3
}

// NewCessna172 returns the coefficient set of a representative general
// aviation aircraft (Cessna 172 class), in SI units.
func NewCessna172() *Aircraft {
	return &Aircraft{
		Name:     "Cessna 172",
		Mass:     1100.0,
		WingArea: 16.2,
		WingSpan: 11.0,
		Chord:    1.5,
		Ixx:      1285.0,
		Iyy:      1824.0,
		Izz:      2666.0,
		Ixz:      0.0,
		CL0:      0.28,
		CLα:      4.58,
		CLq:      3.9,
		CLδe:     0.43,
		CD0:      0.031,
		CDα:      0.13,
		CDδe:     0.06,
		Cm0:      0.04,
		Cmα:      -0.61,
		Cmq:      -12.4,
		Cmδe:     -1.28,
		CYβ:      -0.31,
		CYδr:     0.187,
		Clβ:      -0.074,
		Clp:      -0.410,
		Clr:      0.107,
		Clδa:     0.134,
		Clδr:     0.0107,
		Cnβ:      0.071,
		Cnp:      -0.0575,
		Cnr:      -0.125,
		Cnδa:     -0.0011,
		Cnδr:     -0.0726,

		MaxThrust: 1200.0,
		G:         9.81,
		ρ:         1.225,
	}
}

// Density returns the air density of this coefficient set.
func (a Aircraft) Density() float64 {
	return a.ρ
}

func (a Aircraft) String() string {
	return fmt.Sprintf("%s (m=%.0f kg, S=%.1f m^2)", a.Name, a.Mass, a.WingArea)
}

// TrimCondition stores a steady level flight trim point derived from a
// coefficient set at a requested velocity and altitude. All angles in
// radians.
type TrimCondition struct {
	Velocity float64 // m/s, equals the requested velocity exactly
	Altitude float64 // m
	α        float64 // trim angle of attack
	Θ        float64 // pitch angle (= α in level flight)
	Q        float64 // pitch rate, zero by construction
	CL, CD   float64
	Elevator float64 // rad, zeroes the pitching moment at α
	Thrust   float64 // N, balances trim drag
}

// AoA returns the trim angle of attack in radians.
func (t TrimCondition) AoA() float64 {
	return t.α
}

func (t TrimCondition) String() string {
	return fmt.Sprintf("trim: V=%.2f m/s h=%.1f m α=%.2f° δe=%.2f° T=%.1f N",
		t.Velocity, t.Altitude, t.α/deg2rad, t.Elevator/deg2rad, t.Thrust)
}

// Trim solves the steady level flight trim condition at the given velocity
// and altitude. The lift, drag and moment models are affine in angle of
// attack and elevator at this point, so each unknown comes from a direct
// linear solve. Fails on non-positive velocity or wing area, which would
// make the dynamic pressure division undefined.
func (a *Aircraft) Trim(velocity, altitude float64) (TrimCondition, error) {
	if velocity <= 0 {
		return TrimCondition{}, fmt.Errorf("flightcontrol: cannot trim at non-positive velocity %f m/s", velocity)
	}
	if a.WingArea <= 0 {
		return TrimCondition{}, fmt.Errorf("flightcontrol: cannot trim with non-positive wing area %f m^2", a.WingArea)
	}
	qBar := 0.5 * a.ρ * velocity * velocity
	CLTrim := (a.Mass * a.G) / (qBar * a.WingArea)
	αTrim := (CLTrim - a.CL0) / a.CLα
	CDTrim := a.CD0 + a.CDα*αTrim
	thrust := CDTrim * qBar * a.WingArea
	δeTrim := -(a.Cm0 + a.Cmα*αTrim) / a.Cmδe
	return TrimCondition{
		Velocity: velocity,
		Altitude: altitude,
		α:        αTrim,
		Θ:        αTrim, // level flight
		Q:        0,
		CL:       CLTrim,
		CD:       CDTrim,
		Elevator: δeTrim,
		Thrust:   thrust,
	}, nil
}

// LinearSystem is the linearized longitudinal model about a trim point.
// State vector: [u w q θ] (perturbations), control vector: [δe δT].
type LinearSystem struct {
	A *mat64.Dense // 4x4 state matrix
	B *mat64.Dense // 4x2 control matrix
}

// Linearize assembles the dimensional stability and control derivatives
// analytically from the non-dimensional coefficient set and the trim point.
// Deterministic and side-effect free; no numerical differentiation.
func (a *Aircraft) Linearize(trim TrimCondition) LinearSystem {
	V := trim.Velocity
	α := trim.α
	qBar := 0.5 * a.ρ * V * V
	S := a.WingArea
	c := a.Chord
	m := a.Mass
	Iy := a.Iyy

	// Stability derivatives.
	Xu := -(2 * a.CD0 * qBar * S) / (m * V)
	Xw := (a.CLα - 2*a.CL0) * qBar * S / (m * V)
	Zu := -(2 * a.CL0 * qBar * S) / (m * V)
	Zw := -(a.CLα + a.CD0) * qBar * S / (m * V)
	Zq := -V
	Mu := 0.0
	Mw := a.Cmα * qBar * S * c / Iy
	Mq := a.Cmq * qBar * S * c * c / (2 * Iy * V)

	// Control derivatives.
	Xδe := 0.0
	Xδt := a.MaxThrust / m
	Zδe := a.CLδe * qBar * S / m
	Zδt := 0.0
	Mδe := a.Cmδe * qBar * S * c / Iy
	Mδt := 0.0

	sinα, cosα := math.Sincos(α)
	A := mat64.NewDense(4, 4, []float64{
		Xu, Xw, 0, -a.G * cosα,
		Zu, Zw, V + Zq, -a.G * sinα,
		Mu, Mw, Mq, 0,
		0, 0, 1, 0,
	})
	B := mat64.NewDense(4, 2, []float64{
		Xδe, Xδt,
		Zδe, Zδt,
		Mδe, Mδt,
		0, 0,
	})
	return LinearSystem{A, B}
}
