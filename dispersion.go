package flightcontrol

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat"
	"github.com/gonum/stat/distmv"
)

// InitialDispersion holds the standard deviations of the Gaussian
// perturbations applied to the nominal initial condition, over [u w θ h].
type InitialDispersion struct {
	ΣU, ΣW, ΣΘ, ΣH float64
}

// DefaultDispersion returns a mild approach-gate dispersion: 1 m/s on the
// body velocities, 1° on pitch, 10 m on altitude.
func DefaultDispersion() InitialDispersion {
	return InitialDispersion{ΣU: 1.0, ΣW: 1.0, ΣΘ: Deg2rad(1.0), ΣH: 10.0}
}

// DispersionAnalysis repeats the landing simulation under Gaussian initial
// condition perturbations. Runs are sequential and deterministic for a
// given seed; independent analyses may run in parallel at the caller's
// discretion since no state is shared.
type DispersionAnalysis struct {
	sim   *FlightSimulator
	ctrl  *LandingController
	noise *distmv.Normal
	runs  int
}

// NewDispersionAnalysis returns a dispersion analysis of the given size.
// Fails on a non-positive run count or a degenerate covariance.
func NewDispersionAnalysis(sim *FlightSimulator, ctrl *LandingController, runs int, disp InitialDispersion, seed int64) (*DispersionAnalysis, error) {
	if runs <= 0 {
		return nil, fmt.Errorf("flightcontrol: dispersion analysis needs a positive run count, got %d", runs)
	}
	cov := mat64.NewSymDense(4, []float64{
		disp.ΣU * disp.ΣU, 0, 0, 0,
		0, disp.ΣW * disp.ΣW, 0, 0,
		0, 0, disp.ΣΘ * disp.ΣΘ, 0,
		0, 0, 0, disp.ΣH * disp.ΣH,
	})
	noise, ok := distmv.NewNormal([]float64{0, 0, 0, 0}, cov, rand.New(rand.NewSource(seed)))
	if !ok {
		return nil, fmt.Errorf("flightcontrol: dispersion covariance is not positive definite")
	}
	return &DispersionAnalysis{sim: sim, ctrl: ctrl, noise: noise, runs: runs}, nil
}

// DispersionSummary aggregates the touchdown statistics of a dispersion
// analysis.
type DispersionSummary struct {
	Runs        int
	SuccessRate float64 // fraction of runs meeting the landing criteria
	MeanSpeed   float64 // m/s
	StdSpeed    float64
	MeanRate    float64 // m/s, vertical speed, negative descending
	StdRate     float64
	WorstRate   float64 // largest |sink rate| observed
	Reports     []PerformanceReport
}

func (d DispersionSummary) String() string {
	return fmt.Sprintf("%d runs: %.0f%% success, V=%.2f±%.2f m/s, sink=%.2f±%.2f m/s (worst %.2f)",
		d.Runs, 100*d.SuccessRate, d.MeanSpeed, d.StdSpeed, d.MeanRate, d.StdRate, d.WorstRate)
}

// Run performs the dispersion runs around the nominal initial condition and
// aggregates their performance reports.
func (a *DispersionAnalysis) Run(nominal SimulationState, duration, dt float64) DispersionSummary {
	speeds := make([]float64, a.runs)
	rates := make([]float64, a.runs)
	reports := make([]PerformanceReport, a.runs)
	successes := 0
	sample := make([]float64, 4)
	for i := 0; i < a.runs; i++ {
		a.noise.Rand(sample)
		initial := nominal
		initial.U += sample[0]
		initial.W += sample[1]
		initial.Θ += sample[2]
		initial.H += sample[3]

		times, states, controls := a.sim.SimulateLanding(a.ctrl, initial, duration, dt)
		report := a.sim.EvaluateLandingPerformance(times, states, controls)
		reports[i] = report
		speeds[i] = report.TouchdownSpeed
		rates[i] = report.TouchdownRate
		if report.Success {
			successes++
		}
	}
	worst := 0.0
	for _, r := range rates {
		if math.Abs(r) > worst {
			worst = math.Abs(r)
		}
	}
	return DispersionSummary{
		Runs:        a.runs,
		SuccessRate: float64(successes) / float64(a.runs),
		MeanSpeed:   stat.Mean(speeds, nil),
		StdSpeed:    stat.StdDev(speeds, nil),
		MeanRate:    stat.Mean(rates, nil),
		StdRate:     stat.StdDev(rates, nil),
		WorstRate:   worst,
		Reports:     reports,
	}
}
