package flightcontrol

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestClamp(t *testing.T) {
	if clamp(5, -1, 1) != 1 {
		t.Fatal("clamp above failed")
	}
	if clamp(-5, -1, 1) != -1 {
		t.Fatal("clamp below failed")
	}
	if clamp(0.3, -1, 1) != 0.3 {
		t.Fatal("clamp within failed")
	}
}

func TestNorm2(t *testing.T) {
	if !floats.EqualWithinAbs(norm2(3, 4), 5, 1e-14) {
		t.Fatal("norm2(3,4) != 5")
	}
	if norm2(0, 0) != 0 {
		t.Fatal("norm2(0,0) != 0")
	}
}

func TestAngleConversions(t *testing.T) {
	if !floats.EqualWithinAbs(Deg2rad(180), math.Pi, 1e-14) {
		t.Fatal("Deg2rad(180) != π")
	}
	if !floats.EqualWithinAbs(Rad2deg(math.Pi/2), 90, 1e-12) {
		t.Fatal("Rad2deg(π/2) != 90")
	}
	for _, a := range []float64{-3, -0.5, 0, 0.25, 2.9} {
		if !floats.EqualWithinAbs(Deg2rad(Rad2deg(a)), a, 1e-14) {
			t.Fatalf("roundtrip failed for %f", a)
		}
	}
}
