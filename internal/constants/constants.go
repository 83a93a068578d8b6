// Package constants collects the numerical and physical constants shared
// by the physical model.
package constants

const (
	// Tolerance below which masses and radii are treated as zero.
	Tolerance = 1e-10

	// EPS3 separates the reheating loading from the ejection loading.
	EPS3 = 1e-3

	// EAGLEJconv converts specific angular momentum over velocity into a
	// disk scale radius.
	EAGLEJconv = 0.67714

	// RDiskHalfScale is the ratio of half-mass radius to scale length of an
	// exponential disk.
	RDiskHalfScale = 1.678

	// MSolarG is the solar mass in grams.
	MSolarG = 1.98892e33

	KILO = 1e3

	// G is the gravitational constant in Mpc (km/s)^2 / Msun.
	G = 4.3009e-9

	// Gyr expressed in seconds.
	GyrToS = 3.15576e16

	// MpcToKm converts Mpc to km.
	MpcToKm = 3.0856775807e19
)
