package visibility

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/frame"
	"github.com/yetanothergithubaccount/ObsPi/internal/transform"
)

// TimeLayout renders instants in messages and persisted records.
const TimeLayout = "2006-01-02 15:04:05"

// Result is a score with its explanation.
type Result struct {
	Score     float64 `json:"score"`
	Message   string  `json:"message"`
	Invisible bool    `json:"invisible"`
}

type altitudeRule struct {
	match     func(alt float64, peakDuringNight bool) bool
	points    float64
	invisible bool
}

// altitudeRules are checked in order against the night-window maximum; the
// first match wins. The "< 10" row shadows part of "<= 10" on purpose.
var altitudeRules = []altitudeRule{
	{match: func(alt float64, _ bool) bool { return alt <= 0 }, invisible: true},
	{match: func(_ float64, peak bool) bool { return peak }, points: 7},
	{match: func(alt float64, _ bool) bool { return alt < 10 }, points: 0.5},
	{match: func(alt float64, _ bool) bool { return alt <= 10 }, points: 1},
	{match: func(alt float64, _ bool) bool { return alt <= 20 }, points: 2},
	{match: func(alt float64, _ bool) bool { return alt <= 30 }, points: 3},
	{match: func(alt float64, _ bool) bool { return alt <= 40 }, points: 4},
	{match: func(alt float64, _ bool) bool { return alt <= 50 }, points: 5},
	{match: func(float64, bool) bool { return true }, points: 6},
}

// wholeDegrees rounds half to even and keeps one decimal, e.g. "82.0".
func wholeDegrees(alt float64) string {
	return strconv.FormatFloat(math.RoundToEven(alt), 'f', 1, 64)
}

func altitudeRuleFor(alt float64, peak bool) altitudeRule {
	for _, r := range altitudeRules {
		if r.match(alt, peak) {
			return r
		}
	}
	return altitudeRules[len(altitudeRules)-1]
}

// Score rates how worthwhile name is tonight on a 0 to 9 scale. An object
// whose highest point inside the night window is at or below the horizon
// scores 0 and is reported invisible.
func Score(name string, e Extrema) Result {
	peak := e.PeakDuringNight()

	base := 1.0
	var msg strings.Builder
	if peak {
		base = 2
	} else {
		fmt.Fprintf(&msg, "%s max. altitude %s deg reached at %s in %s\n",
			name, wholeDegrees(e.MaxAltitudeOverall), e.TimeOverall.Format(TimeLayout), e.DirectionOverall)
	}
	fmt.Fprintf(&msg, "%s max. altitude %s deg reached during night time at %s in %s\n",
		name, wholeDegrees(e.MaxAltitudeInWindow), e.TimeInWindow.Format(TimeLayout), e.DirectionInWindow)

	rule := altitudeRuleFor(e.MaxAltitudeInWindow, peak)
	if rule.invisible {
		fmt.Fprintf(&msg, "%s is invisible.", name)
		return Result{Score: 0, Message: msg.String(), Invisible: true}
	}

	when := "before"
	if peak {
		when = "at"
	}
	fmt.Fprintf(&msg, "%s is best observed %s %s in %s",
		name, when, e.TimeInWindow.Format(TimeLayout), e.DirectionInWindow)

	return Result{Score: base + rule.points, Message: msg.String()}
}

// Assess runs the sampling, extrema and scoring steps for one object.
func Assess(ctx context.Context, p frame.Provider, name string, date time.Time, loc transform.Location) (Extrema, Result, error) {
	samples, err := SampleNight(ctx, p, name, date, loc)
	if err != nil {
		return Extrema{}, Result{}, err
	}
	e, err := Analyze(samples, NightBounds(date))
	if err != nil {
		return Extrema{}, Result{}, fmt.Errorf("%s: %w", name, err)
	}
	return e, Score(name, e), nil
}
