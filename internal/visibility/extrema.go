package visibility

import (
	"errors"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/compass"
)

var (
	// ErrNoSamples is returned when there is nothing to analyze.
	ErrNoSamples = errors.New("no samples")
	// ErrEmptyWindow is returned when no sample falls inside the night window.
	ErrEmptyWindow = errors.New("no samples inside night window")
)

// Extrema holds the highest point of an object's path, once within the
// night window and once over the whole series.
type Extrema struct {
	MaxAltitudeInWindow float64
	DirectionInWindow   compass.Label
	TimeInWindow        time.Time

	MaxAltitudeOverall float64
	DirectionOverall   compass.Label
	TimeOverall        time.Time
}

// PeakDuringNight reports whether the overall maximum is the one reached
// inside the window.
func (e Extrema) PeakDuringNight() bool {
	return e.MaxAltitudeOverall == e.MaxAltitudeInWindow
}

// argmax returns the index of the first highest sample among those accepted
// by keep, or -1.
func argmax(samples []Sample, keep func(Sample) bool) int {
	best := -1
	for i, s := range samples {
		if keep != nil && !keep(s) {
			continue
		}
		if best < 0 || s.AltitudeDeg > samples[best].AltitudeDeg {
			best = i
		}
	}
	return best
}

// Analyze finds the window and overall maxima of samples. Window membership
// is strict on both ends.
func Analyze(samples []Sample, b Bounds) (Extrema, error) {
	if len(samples) == 0 {
		return Extrema{}, ErrNoSamples
	}

	w := argmax(samples, func(s Sample) bool { return b.Contains(s.Time) })
	if w < 0 {
		return Extrema{}, ErrEmptyWindow
	}
	o := argmax(samples, nil)

	return Extrema{
		MaxAltitudeInWindow: samples[w].AltitudeDeg,
		DirectionInWindow:   compass.Classify(samples[w].AzimuthDeg),
		TimeInWindow:        samples[w].Time,
		MaxAltitudeOverall:  samples[o].AltitudeDeg,
		DirectionOverall:    compass.Classify(samples[o].AzimuthDeg),
		TimeOverall:         samples[o].Time,
	}, nil
}
