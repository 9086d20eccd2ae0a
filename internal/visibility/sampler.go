// Package visibility samples an object's altitude across one night, finds
// its peaks and turns them into an observing score.
package visibility

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/frame"
	"github.com/yetanothergithubaccount/ObsPi/internal/transform"
)

const (
	// NightSamples is the length of the scoring series.
	NightSamples = 1000
	// EveningSamples is the length of the secondary display series.
	EveningSamples = 100
)

// Sample is one altitude/azimuth reading.
type Sample struct {
	Time        time.Time `json:"time"`
	AltitudeDeg float64   `json:"altitude"`
	AzimuthDeg  float64   `json:"azimuth"`
}

// Bounds is an open time interval.
type Bounds struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies strictly inside b.
func (b Bounds) Contains(t time.Time) bool {
	return t.After(b.Start) && t.Before(b.End)
}

// Day truncates t to its calendar date, dropping the zone. Observation
// times are naive clock times carried in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NightMidnight is the midnight inside the night that starts on date, i.e.
// 00:00 of the following day.
func NightMidnight(date time.Time) time.Time {
	return Day(date).AddDate(0, 0, 1)
}

// NightBounds is the fixed astronomical-night window: 22:00 on date until
// 04:00 the next morning.
func NightBounds(date time.Time) Bounds {
	d := Day(date)
	return Bounds{
		Start: d.Add(22 * time.Hour),
		End:   d.AddDate(0, 0, 1).Add(4 * time.Hour),
	}
}

// offsets returns n evenly spaced offsets covering [from, to] inclusive.
func offsets(n int, from, to time.Duration) []time.Duration {
	out := make([]time.Duration, n)
	if n == 1 {
		out[0] = from
		return out
	}
	span := float64(to - from)
	for i := range out {
		out[i] = from + time.Duration(math.Round(span*float64(i)/float64(n-1)))
	}
	return out
}

func sample(ctx context.Context, p frame.Provider, name string, origin time.Time, offs []time.Duration, loc transform.Location) ([]Sample, error) {
	samples := make([]Sample, 0, len(offs))
	for _, off := range offs {
		t := origin.Add(off)
		h, err := p.AltAz(ctx, name, t, loc)
		if err != nil {
			return nil, fmt.Errorf("sampling %s at %s: %w", name, t.Format(TimeLayout), err)
		}
		samples = append(samples, Sample{Time: t, AltitudeDeg: h.AltitudeDeg, AzimuthDeg: h.AzimuthDeg})
	}
	return samples, nil
}

// SampleNight returns 1000 samples evenly spread over ±12h around the night
// midnight of date. Each call queries the provider afresh.
func SampleNight(ctx context.Context, p frame.Provider, name string, date time.Time, loc transform.Location) ([]Sample, error) {
	return sample(ctx, p, name, NightMidnight(date), offsets(NightSamples, -12*time.Hour, 12*time.Hour), loc)
}

// SampleEvening returns the coarse 100-point series from 2h before to 10h
// after the night midnight. It is for display only.
func SampleEvening(ctx context.Context, p frame.Provider, name string, date time.Time, loc transform.Location) ([]Sample, error) {
	return sample(ctx, p, name, NightMidnight(date), offsets(EveningSamples, -2*time.Hour, 10*time.Hour), loc)
}
