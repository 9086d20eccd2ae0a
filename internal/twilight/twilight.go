// Package twilight reports the sun and moon circumstances of a night:
// sunset, astronomical dusk and dawn, sunrise and the lunar phase.
package twilight

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"

	"github.com/yetanothergithubaccount/ObsPi/internal/transform"
)

// astronomicalDepression is the solar depression, in degrees, that bounds
// astronomical twilight.
const astronomicalDepression = 18.0

const (
	synodicRate  = 0.03386319269 // lunations per day
	lunationBase = 0.20439731    // lunation position at 2001-01-01 00:00
)

var lunationEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

var phaseNames = [8]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

// NightInfo describes one night. Times are in the calculator's time zone.
// When the sun never gets 18° below the horizon, AstronomicalNight is false
// and the dusk and dawn fields are zero.
type NightInfo struct {
	Date              string    `json:"date"`
	Sunset            time.Time `json:"sunset"`
	AstronomicalDusk  time.Time `json:"astronomical_dusk,omitempty"`
	AstronomicalDawn  time.Time `json:"astronomical_dawn,omitempty"`
	Sunrise           time.Time `json:"sunrise"`
	AstronomicalNight bool      `json:"astronomical_night"`
	MoonPhase         string    `json:"moon_phase"`
	MoonPosition      float64   `json:"moon_position"`
	MoonIllumination  float64   `json:"moon_illumination"`
	NextFullMoon      string    `json:"next_full_moon"`
}

// DarkHours returns the length of astronomical night in hours.
func (n NightInfo) DarkHours() float64 {
	if !n.AstronomicalNight {
		return 0
	}
	return n.AstronomicalDawn.Sub(n.AstronomicalDusk).Hours()
}

// Calculator computes NightInfo for a fixed observer and memoizes it per date.
type Calculator struct {
	observer astral.Observer
	tz       *time.Location

	mu    sync.RWMutex
	cache map[string]NightInfo
}

// NewCalculator creates a Calculator. A nil tz means UTC.
func NewCalculator(loc transform.Location, tz *time.Location) *Calculator {
	if tz == nil {
		tz = time.UTC
	}
	return &Calculator{
		observer: astral.Observer{Latitude: loc.Latitude, Longitude: loc.Longitude},
		tz:       tz,
		cache:    make(map[string]NightInfo),
	}
}

// Night returns the circumstances of the night starting on date.
func (c *Calculator) Night(date time.Time) (NightInfo, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	key := day.Format("2006-01-02")

	c.mu.RLock()
	info, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return info, nil
	}

	info, err := c.calculate(day)
	if err != nil {
		return NightInfo{}, err
	}

	c.mu.Lock()
	c.cache[key] = info
	c.mu.Unlock()
	return info, nil
}

func (c *Calculator) calculate(day time.Time) (NightInfo, error) {
	next := day.AddDate(0, 0, 1)

	sunset, err := astral.Sunset(c.observer, day)
	if err != nil {
		return NightInfo{}, fmt.Errorf("failed to calculate sunset: %w", err)
	}
	sunrise, err := astral.Sunrise(c.observer, next)
	if err != nil {
		return NightInfo{}, fmt.Errorf("failed to calculate sunrise: %w", err)
	}

	info := NightInfo{
		Date:    day.Format("02.01.2006"),
		Sunset:  sunset.In(c.tz),
		Sunrise: sunrise.In(c.tz),
	}

	// Around midsummer at mid latitudes the sun stays above -18°; astral
	// reports that as an error.
	dusk, duskErr := astral.Dusk(c.observer, day, astronomicalDepression)
	dawn, dawnErr := astral.Dawn(c.observer, next, astronomicalDepression)
	if duskErr == nil && dawnErr == nil && dusk.After(sunset) && dawn.After(dusk) && dawn.Before(sunrise) {
		info.AstronomicalNight = true
		info.AstronomicalDusk = dusk.In(c.tz)
		info.AstronomicalDawn = dawn.In(c.tz)
	}

	// Phase at 21:00 on the date, when observing starts.
	pos := LunationPosition(day.Add(21 * time.Hour))
	info.MoonPosition = math.Round(pos*1e4) / 1e4
	info.MoonPhase = PhaseName(pos)
	info.MoonIllumination = math.Round(Illumination(pos)*10) / 10
	info.NextFullMoon = NextFullMoon(day.Add(21 * time.Hour)).Format("02.01.2006")

	return info, nil
}

// LunationPosition returns the position of t within the synodic month,
// 0 at new moon and 0.5 at full moon.
func LunationPosition(t time.Time) float64 {
	days := t.UTC().Sub(lunationEpoch).Hours() / 24
	pos := math.Mod(lunationBase+days*synodicRate, 1)
	if pos < 0 {
		pos++
	}
	return pos
}

// PhaseName maps a lunation position to one of eight phase names.
func PhaseName(pos float64) string {
	idx := int(math.Floor(pos*8+0.5)) & 7
	return phaseNames[idx]
}

// Illumination approximates the illuminated fraction of the disc, in
// percent, from the lunation position.
func Illumination(pos float64) float64 {
	return 50 * (1 - math.Cos(2*math.Pi*pos))
}

// NextFullMoon estimates the first full moon at or after t.
func NextFullMoon(t time.Time) time.Time {
	pos := LunationPosition(t)
	ahead := math.Mod(0.5-pos+1, 1)
	return t.Add(time.Duration(ahead / synodicRate * 24 * float64(time.Hour)))
}
