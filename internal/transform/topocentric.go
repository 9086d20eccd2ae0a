package transform

import (
	"math"
	"time"
)

const (
	deg2rad       = math.Pi / 180.0
	rad2deg       = 180.0 / math.Pi
	arcsec2rad    = deg2rad / 3600.0
	julianCentury = 36525.0
)

// Location is a ground observer. Longitude is east-positive.
type Location struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`   // degrees
	Longitude float64 `json:"longitude" yaml:"longitude"` // degrees
	Elevation float64 `json:"elevation" yaml:"elevation"` // meters
}

// Equatorial holds right ascension and declination in degrees.
type Equatorial struct {
	RA  float64
	Dec float64
}

// Horizontal holds altitude and azimuth in degrees.
type Horizontal struct {
	AltitudeDeg float64 // 0 = horizon, 90 = zenith
	AzimuthDeg  float64 // 0 = North, clockwise, [0, 360)
}

// Precess moves a J2000 mean position to the mean equinox of date t using
// the IAU-1976 angles (Meeus, Astronomical Algorithms, Eq. 21.2-21.4).
func Precess(eq Equatorial, t time.Time) Equatorial {
	T := (JulianDate(t.UTC()) - j2000) / julianCentury
	T2 := T * T
	T3 := T2 * T

	zeta := (2306.2181*T + 0.30188*T2 + 0.017998*T3) * arcsec2rad
	z := (2306.2181*T + 1.09468*T2 + 0.018203*T3) * arcsec2rad
	theta := (2004.3109*T - 0.42665*T2 - 0.041833*T3) * arcsec2rad

	ra0 := eq.RA * deg2rad
	dec0 := eq.Dec * deg2rad

	a := math.Cos(dec0) * math.Sin(ra0+zeta)
	b := math.Cos(theta)*math.Cos(dec0)*math.Cos(ra0+zeta) - math.Sin(theta)*math.Sin(dec0)
	c := math.Sin(theta)*math.Cos(dec0)*math.Cos(ra0+zeta) + math.Cos(theta)*math.Sin(dec0)

	return Equatorial{
		RA:  wrapTurn(math.Atan2(a, b)+z) * rad2deg,
		Dec: math.Asin(c) * rad2deg,
	}
}

// EquatorialToHorizontal rotates a position of date into the observer's
// horizon frame at time t.
//
//	sin(h) = sin(φ)sin(δ) + cos(φ)cos(δ)cos(H)
//	A      = atan2(-cos(δ)sin(H), sin(δ)cos(φ) - cos(δ)sin(φ)cos(H))
//
// where H is the local hour angle and A is measured clockwise from North.
func EquatorialToHorizontal(eq Equatorial, loc Location, t time.Time) Horizontal {
	lat := loc.Latitude * deg2rad
	dec := eq.Dec * deg2rad
	ha := LocalSiderealTime(t, loc.Longitude) - eq.RA*deg2rad

	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinDec, cosDec := math.Sin(dec), math.Cos(dec)
	sinHA, cosHA := math.Sin(ha), math.Cos(ha)

	sinAlt := sinLat*sinDec + cosLat*cosDec*cosHA
	// Clamp rounding noise before Asin.
	sinAlt = math.Max(-1, math.Min(1, sinAlt))
	alt := math.Asin(sinAlt)

	az := math.Atan2(-cosDec*sinHA, sinDec*cosLat-cosDec*sinLat*cosHA)
	if az < 0 {
		az += 2 * math.Pi
	}
	azDeg := az * rad2deg
	if azDeg >= 360 {
		azDeg -= 360
	}

	return Horizontal{
		AltitudeDeg: alt * rad2deg,
		AzimuthDeg:  azDeg,
	}
}

// J2000ToHorizontal precesses a catalogue position to date and returns the
// horizontal coordinates seen from loc at t.
func J2000ToHorizontal(eq Equatorial, loc Location, t time.Time) Horizontal {
	return EquatorialToHorizontal(Precess(eq, t), loc, t)
}

// ValidLocation reports whether the geodetic coordinates are in range.
func ValidLocation(loc Location) bool {
	if math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude) || math.IsNaN(loc.Elevation) {
		return false
	}
	return loc.Latitude >= -90 && loc.Latitude <= 90 &&
		loc.Longitude >= -180 && loc.Longitude <= 180
}
