package flightcontrol

import (
	"math"
)

const (
	deg2rad = math.Pi / 180
)

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// norm2 returns the norm of the body-axis velocity pair (u, w).
func norm2(u, w float64) float64 {
	return math.Sqrt(u*u + w*w)
}

// Deg2rad converts degrees to radians.
func Deg2rad(a float64) float64 {
	return a * deg2rad
}

// Rad2deg converts radians to degrees.
func Rad2deg(a float64) float64 {
	return a / deg2rad
}
