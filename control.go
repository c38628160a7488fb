package flightcontrol

import (
	"math"
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// Phase defines an enum of landing phases.
type Phase uint8

const (
	// Approach holds altitude and approach speed until glide slope intercept.
	Approach Phase = iota + 1
	// GlideSlope tracks the nominal descent path to the threshold.
	GlideSlope
	// Flare is the final nose-up maneuver that kills the sink rate.
	Flare
	// Touchdown holds a slight nose-up attitude at idle thrust.
	Touchdown
)

func (p Phase) String() string {
	switch p {
	case Approach:
		return "approach"
	case GlideSlope:
		return "glide_slope"
	case Flare:
		return "flare"
	case Touchdown:
		return "touchdown"
	}
	panic("cannot stringify unknown landing phase")
}

// VehicleState is the feedback state fed to the controller at each step.
type VehicleState struct {
	Velocity float64 // total airspeed, m/s
	Altitude float64 // height above ground, m
	Θ        float64 // pitch angle, rad
	Q        float64 // pitch rate, rad/s
}

// ControlCommand stores the surface and throttle commands of one control
// step, along with the phase that produced them.
type ControlCommand struct {
	Elevator float64 // rad, clamped to ±0.4
	Throttle float64 // clamped to [0,1]
	Phase    Phase
}

// Hardware limits of the control surfaces.
const (
	maxElevator = 0.4 // rad
)

// Reference airspeeds and throttle law scalings per phase.
const (
	approachRefSpeed   = 33.0 // m/s
	glideSlopeRefSpeed = 30.0 // m/s
	flareRefSpeed      = 27.0 // m/s

	glideSlopeThrottleScale = 0.7
	flareThrottleScale      = 0.5
)

// ControlGains groups the tunable feedback gains shared by the approach and
// glide slope laws. The flare and touchdown laws carry their own fixed
// gains.
type ControlGains struct {
	KpΘ, KiΘ, KdΘ       float64 // pitch attitude PID
	KpAlt, KiAlt, KdAlt float64 // altitude error to pitch command
	KpVel, KiVel        float64 // velocity error to throttle
}

// DefaultGains returns the gain set tuned for the Cessna 172 class
// coefficient table.
func DefaultGains() ControlGains {
	return ControlGains{
		KpΘ: 3.0, KiΘ: 0.3, KdΘ: 1.5,
		KpAlt: 0.12, KiAlt: 0.02, KdAlt: 0.4,
		KpVel: 0.4, KiVel: 0.05,
	}
}

// phaseLaw computes the raw elevator and throttle commands of one landing
// phase. Laws mutate the controller's integrator context through c.
type phaseLaw interface {
	Type() Phase
	control(c *LandingController, s VehicleState, distance, dt float64) (elevator, throttle float64)
}

// LandingController drives the aircraft through the phase-sequenced
// automatic landing. It owns the integral and derivative context of the
// feedback laws for one run; call Reset before starting a new run.
type LandingController struct {
	GlideSlopeAngle   float64 // rad, negative below the horizon
	FlareAltitude     float64 // m
	TouchdownVelocity float64 // m/s, target touchdown speed
	Gains             ControlGains

	// Run context: integral accumulators and previous errors.
	intΘ, intAlt, intVel float64
	prevErrΘ, prevErrAlt float64
	phase                Phase

	laws   map[Phase]phaseLaw
	logger kitlog.Logger
}

// NewLandingController returns a landing controller with the default gain
// set, overridden by the optional TOML configuration if one is loaded.
func NewLandingController() *LandingController {
	conf := landingConfig()
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	klog = kitlog.With(klog, "subsys", "ctrl")
	c := &LandingController{
		GlideSlopeAngle:   Deg2rad(-3.0),
		FlareAltitude:     conf.flareAltitude,
		TouchdownVelocity: 25.0,
		Gains:             conf.gains,
		phase:             Approach,
		logger:            klog,
	}
	c.laws = map[Phase]phaseLaw{
		Approach:   approachLaw{},
		GlideSlope: glideSlopeLaw{},
		Flare:      flareLaw{KpΘ: 4.0, KiΘ: 0.8, KdΘ: 2.0},
		Touchdown:  touchdownLaw{KpΘ: 2.0},
	}
	return c
}

// SetLogger changes the logger of this controller (e.g. to silence it).
func (c *LandingController) SetLogger(logger kitlog.Logger) {
	c.logger = logger
}

// Reset clears the integral accumulators, the previous errors and the phase.
// Must be called before reusing the controller for a new run; the run
// context is never cleared implicitly between calls.
func (c *LandingController) Reset() {
	c.intΘ = 0
	c.intAlt = 0
	c.intVel = 0
	c.prevErrΘ = 0
	c.prevErrAlt = 0
	c.phase = Approach
}

// CurrentPhase returns the phase selected by the last control step.
func (c *LandingController) CurrentPhase() Phase {
	return c.phase
}

// phaseFor selects the landing phase from altitude and distance to the
// runway threshold alone. There is no hysteresis: the phase is re-derived
// every step, so oscillation near a threshold can revert it.
func (c *LandingController) phaseFor(altitude, distance float64) Phase {
	switch {
	case altitude <= 0.5:
		return Touchdown
	case altitude < c.FlareAltitude:
		return Flare
	case altitude < 200 && distance < 4000:
		return GlideSlope
	default:
		return Approach
	}
}

// GlideSlopeReference returns the reference altitude of the nominal descent
// path at the given horizontal distance to the threshold.
func (c *LandingController) GlideSlopeReference(distance float64) float64 {
	return math.Max(0, -distance*math.Tan(c.GlideSlopeAngle))
}

// ComputeControl advances the phase from the current altitude and distance
// to threshold, runs the active phase law and returns the clamped command.
// dt must be constant and positive within a run.
func (c *LandingController) ComputeControl(s VehicleState, distanceToTouchdown, dt float64) ControlCommand {
	phase := c.phaseFor(s.Altitude, distanceToTouchdown)
	if phase != c.phase {
		c.logger.Log("level", "info", "phase", phase, "h(m)", s.Altitude, "dist(m)", distanceToTouchdown)
	}
	c.phase = phase
	elevator, throttle := c.laws[phase].control(c, s, distanceToTouchdown, dt)
	return ControlCommand{
		Elevator: clamp(elevator, -maxElevator, maxElevator),
		Throttle: clamp(throttle, 0, 1),
		Phase:    phase,
	}
}

// pitchPID tracks a pitch command with the given PID gains, mutating the
// pitch integrator and previous error. The elevator pitch effectiveness is
// negative (trailing edge up pitches the nose up), so a nose-up error maps
// to a negative deflection.
func (c *LandingController) pitchPID(θCmd float64, s VehicleState, dt, kp, ki, kd float64) float64 {
	errΘ := θCmd - s.Θ
	c.intΘ += errΘ * dt
	dErrΘ := (errΘ - c.prevErrΘ) / dt
	c.prevErrΘ = errΘ
	return -(kp*errΘ + ki*c.intΘ + kd*dErrΘ)
}

// throttlePI tracks a reference airspeed through the throttle, scaled per
// phase.
func (c *LandingController) throttlePI(refVel float64, s VehicleState, dt, scale float64) float64 {
	errVel := refVel - s.Velocity
	c.intVel += errVel * dt
	return scale * (c.Gains.KpVel*errVel + c.Gains.KiVel*c.intVel)
}

// approachLaw holds wings-level pitch and approach speed until the glide
// slope is intercepted.
type approachLaw struct{}

func (l approachLaw) Type() Phase { return Approach }

func (l approachLaw) control(c *LandingController, s VehicleState, distance, dt float64) (float64, float64) {
	elevator := c.pitchPID(0, s, dt, c.Gains.KpΘ, c.Gains.KiΘ, c.Gains.KdΘ)
	throttle := c.throttlePI(approachRefSpeed, s, dt, 1.0)
	return elevator, throttle
}

// glideSlopeLaw maps the altitude error off the nominal descent path to a
// pitch command, tracked by the same pitch PID as the approach.
type glideSlopeLaw struct{}

func (l glideSlopeLaw) Type() Phase { return GlideSlope }

func (l glideSlopeLaw) control(c *LandingController, s VehicleState, distance, dt float64) (float64, float64) {
	errAlt := c.GlideSlopeReference(distance) - s.Altitude
	c.intAlt = clamp(c.intAlt+errAlt*dt, -50, 50) // anti-windup
	dErrAlt := (errAlt - c.prevErrAlt) / dt
	c.prevErrAlt = errAlt

	θCmd := c.Gains.KpAlt*errAlt + c.Gains.KiAlt*c.intAlt + c.Gains.KdAlt*dErrAlt
	θCmd = clamp(θCmd, -0.12, 0.08)

	elevator := c.pitchPID(θCmd, s, dt, c.Gains.KpΘ, c.Gains.KiΘ, c.Gains.KdΘ)
	throttle := c.throttlePI(glideSlopeRefSpeed, s, dt, glideSlopeThrottleScale)
	return elevator, throttle
}

// flareLaw ramps the pitch command nose-up as altitude bleeds off, with its
// own fixed higher-gain PID.
type flareLaw struct {
	KpΘ, KiΘ, KdΘ float64
}

func (l flareLaw) Type() Phase { return Flare }

func (l flareLaw) control(c *LandingController, s VehicleState, distance, dt float64) (float64, float64) {
	progress := 1.0 - s.Altitude/c.FlareAltitude
	θCmd := Deg2rad(-2.0) + Deg2rad(7.0)*progress
	θCmd = clamp(θCmd, Deg2rad(-5.0), Deg2rad(8.0))

	elevator := c.pitchPID(θCmd, s, dt, l.KpΘ, l.KiΘ, l.KdΘ)
	throttle := c.throttlePI(flareRefSpeed, s, dt, flareThrottleScale)
	return elevator, throttle
}

// touchdownLaw holds a slight nose-up attitude with a proportional-only
// elevator law at idle thrust.
type touchdownLaw struct {
	KpΘ float64
}

func (l touchdownLaw) Type() Phase { return Touchdown }

func (l touchdownLaw) control(c *LandingController, s VehicleState, distance, dt float64) (float64, float64) {
	errΘ := Deg2rad(2.0) - s.Θ
	return -l.KpΘ * errΘ, 0
}
