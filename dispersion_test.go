package flightcontrol

import (
	"testing"
)

func TestNewDispersionAnalysisErrors(t *testing.T) {
	fs := newQuietSimulator()
	c := newQuietController()
	if _, err := NewDispersionAnalysis(fs, c, 0, DefaultDispersion(), 42); err == nil {
		t.Fatal("expected an error for a zero run count")
	}
	if _, err := NewDispersionAnalysis(fs, c, -3, DefaultDispersion(), 42); err == nil {
		t.Fatal("expected an error for a negative run count")
	}
	// A zero standard deviation makes the covariance singular.
	if _, err := NewDispersionAnalysis(fs, c, 10, InitialDispersion{}, 42); err == nil {
		t.Fatal("expected an error for a degenerate covariance")
	}
}

func TestDispersionAnalysisRun(t *testing.T) {
	fs := newQuietSimulator()
	c := newQuietController()
	da, err := NewDispersionAnalysis(fs, c, 5, DefaultDispersion(), 42)
	if err != nil {
		t.Fatalf("could not build the analysis: %s", err)
	}
	nominal := SimulationState{U: 35, W: 0, Q: 0, Θ: 0, X: 0, H: 300}
	summary := da.Run(nominal, 200, 0.05)
	if summary.Runs != 5 || len(summary.Reports) != 5 {
		t.Fatalf("expected 5 reports, got %d/%d", summary.Runs, len(summary.Reports))
	}
	if summary.SuccessRate < 0 || summary.SuccessRate > 1 {
		t.Fatalf("success rate %f out of [0,1]", summary.SuccessRate)
	}
	if summary.MeanSpeed < minForwardVel || summary.MeanSpeed > maxForwardVel {
		t.Fatalf("mean touchdown speed %f outside the integrator bounds", summary.MeanSpeed)
	}
	for i, r := range summary.Reports {
		if summary.WorstRate < r.TouchdownRate && summary.WorstRate < -r.TouchdownRate {
			t.Fatalf("worst rate %f below run %d rate %f", summary.WorstRate, i, r.TouchdownRate)
		}
	}
}

func TestDispersionAnalysisSeedDeterminism(t *testing.T) {
	fs := newQuietSimulator()
	c := newQuietController()
	nominal := SimulationState{U: 35, W: 0, Q: 0, Θ: 0, X: 0, H: 300}

	da1, err := NewDispersionAnalysis(fs, c, 3, DefaultDispersion(), 7)
	if err != nil {
		t.Fatal(err)
	}
	da2, err := NewDispersionAnalysis(fs, c, 3, DefaultDispersion(), 7)
	if err != nil {
		t.Fatal(err)
	}
	s1 := da1.Run(nominal, 200, 0.05)
	s2 := da2.Run(nominal, 200, 0.05)
	if s1.SuccessRate != s2.SuccessRate || s1.MeanSpeed != s2.MeanSpeed ||
		s1.StdRate != s2.StdRate || s1.WorstRate != s2.WorstRate {
		t.Fatalf("same seed produced different summaries:\n%s\n%s", s1, s2)
	}
	for i := range s1.Reports {
		if s1.Reports[i] != s2.Reports[i] {
			t.Fatalf("run %d differs between identically seeded analyses", i)
		}
	}
}
