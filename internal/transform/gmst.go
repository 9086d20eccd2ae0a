// Package transform converts catalogue (equatorial J2000) positions into
// horizontal coordinates for a ground observer.
//
// Method: IAU-1976 precession to the mean equinox of date, then an hour-angle
// rotation using mean sidereal time. Nutation, aberration and refraction are
// ignored, which keeps errors well under 0.1° for deep-sky objects.
package transform

import (
	"math"
	"time"
)

const (
	j2000     = 2451545.0 // Julian Date of 2000-01-01 12:00 TT
	unixJD    = 2440587.5 // Julian Date of the Unix epoch
	secPerDay = 86400.0
)

// JulianDate returns the Julian Date of t, counted from the Unix epoch so it
// holds for any proleptic Gregorian date.
func JulianDate(t time.Time) float64 {
	return unixJD + float64(t.Unix())/secPerDay + float64(t.Nanosecond())/(secPerDay*1e9)
}

// GMST returns Greenwich mean sidereal time in radians, [0, 2π), using the
// IAU-82 polynomial in seconds of time (Vallado Eq. 3-47) with T in Julian
// centuries of UT1 since J2000.
func GMST(t time.Time) float64 {
	T := (JulianDate(t) - j2000) / julianCentury

	// 876600h expressed in seconds is 3155760000.
	sec := 67310.54841 + (3155760000.0+8640184.812866)*T + 0.093104*T*T - 6.2e-6*T*T*T
	return wrapTurn(sec / secPerDay * 2 * math.Pi)
}

// LocalSiderealTime returns the local mean sidereal time in radians for an
// observer at lonDeg (east positive).
func LocalSiderealTime(t time.Time, lonDeg float64) float64 {
	return wrapTurn(GMST(t) + lonDeg*deg2rad)
}

// wrapTurn reduces an angle in radians to [0, 2π).
func wrapTurn(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
