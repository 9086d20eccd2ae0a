package visibility

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/compass"
	"github.com/yetanothergithubaccount/ObsPi/internal/transform"
)

var darmstadt = transform.Location{Name: "Darmstadt", Latitude: 49.878708, Longitude: 8.646927, Elevation: 144}

var obsDate = time.Date(2023, 9, 17, 0, 0, 0, 0, time.UTC)

// pathProvider serves a synthetic altitude curve: alt(t) = peak - rate*|t-peakAt|
// in hours, with a fixed azimuth.
type pathProvider struct {
	peak    float64
	peakAt  time.Time
	rate    float64
	azimuth float64
	calls   int
	failAt  int
}

func (p *pathProvider) AltAz(_ context.Context, name string, t time.Time, _ transform.Location) (transform.Horizontal, error) {
	p.calls++
	if p.failAt > 0 && p.calls == p.failAt {
		return transform.Horizontal{}, errors.New("lookup failed")
	}
	hours := math.Abs(t.Sub(p.peakAt).Hours())
	return transform.Horizontal{AltitudeDeg: p.peak - p.rate*hours, AzimuthDeg: p.azimuth}, nil
}

func TestNightBounds(t *testing.T) {
	b := NightBounds(time.Date(2023, 9, 17, 15, 30, 0, 0, time.UTC))

	if want := time.Date(2023, 9, 17, 22, 0, 0, 0, time.UTC); !b.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", b.Start, want)
	}
	if want := time.Date(2023, 9, 18, 4, 0, 0, 0, time.UTC); !b.End.Equal(want) {
		t.Errorf("End = %v, want %v", b.End, want)
	}
	if !b.Start.Before(b.End) {
		t.Error("Start must precede End")
	}
	if b.Contains(b.Start) || b.Contains(b.End) {
		t.Error("bounds must be open")
	}
	if !b.Contains(b.Start.Add(time.Nanosecond)) {
		t.Error("instant just after Start must be inside")
	}
}

func TestNightMidnightMonthEnd(t *testing.T) {
	got := NightMidnight(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("NightMidnight = %v, want %v", got, want)
	}
}

func TestSampleNight(t *testing.T) {
	p := &pathProvider{peak: 30, peakAt: NightMidnight(obsDate), rate: 1}

	samples, err := SampleNight(context.Background(), p, "X", obsDate, darmstadt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != NightSamples || p.calls != NightSamples {
		t.Fatalf("got %d samples from %d calls, want %d", len(samples), p.calls, NightSamples)
	}

	midnight := NightMidnight(obsDate)
	if !samples[0].Time.Equal(midnight.Add(-12 * time.Hour)) {
		t.Errorf("first sample at %v", samples[0].Time)
	}
	if !samples[len(samples)-1].Time.Equal(midnight.Add(12 * time.Hour)) {
		t.Errorf("last sample at %v", samples[len(samples)-1].Time)
	}

	step := 24 * time.Hour / (NightSamples - 1)
	for i := 1; i < len(samples); i++ {
		d := samples[i].Time.Sub(samples[i-1].Time)
		if d < step-time.Microsecond || d > step+time.Microsecond {
			t.Fatalf("step %d = %v, want ~%v", i, d, step)
		}
	}

	// Each call yields a fresh series.
	again, err := SampleNight(context.Background(), p, "X", obsDate, darmstadt)
	if err != nil {
		t.Fatal(err)
	}
	again[0].AltitudeDeg = 999
	if samples[0].AltitudeDeg == 999 {
		t.Error("series share storage")
	}
}

func TestSampleEvening(t *testing.T) {
	p := &pathProvider{peak: 30, peakAt: NightMidnight(obsDate), rate: 1}

	samples, err := SampleEvening(context.Background(), p, "X", obsDate, darmstadt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != EveningSamples {
		t.Fatalf("got %d samples, want %d", len(samples), EveningSamples)
	}
	midnight := NightMidnight(obsDate)
	if !samples[0].Time.Equal(midnight.Add(-2*time.Hour)) || !samples[EveningSamples-1].Time.Equal(midnight.Add(10*time.Hour)) {
		t.Errorf("range = %v .. %v", samples[0].Time, samples[EveningSamples-1].Time)
	}
}

func TestSampleNightProviderError(t *testing.T) {
	p := &pathProvider{peak: 30, peakAt: NightMidnight(obsDate), rate: 1, failAt: 10}

	_, err := SampleNight(context.Background(), p, "X", obsDate, darmstadt)
	if err == nil || !strings.Contains(err.Error(), "lookup failed") {
		t.Fatalf("err = %v, want wrapped provider error", err)
	}
	if p.calls != 10 {
		t.Errorf("provider called %d times after failure, want 10", p.calls)
	}
}

func series(alts ...float64) []Sample {
	start := time.Date(2023, 9, 17, 20, 0, 0, 0, time.UTC)
	out := make([]Sample, len(alts))
	for i, a := range alts {
		out[i] = Sample{Time: start.Add(time.Duration(i) * time.Hour), AltitudeDeg: a, AzimuthDeg: float64(i * 30)}
	}
	return out
}

func TestAnalyze(t *testing.T) {
	b := NightBounds(obsDate)

	// 20:00 .. 06:00 hourly; window holds 23:00..03:00.
	e, err := Analyze(series(50, 40, 30, 20, 25, 25, 10, 5, 60, 0, -5), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.MaxAltitudeInWindow != 25 {
		t.Errorf("window max = %v, want 25", e.MaxAltitudeInWindow)
	}
	// First of the two equal maxima.
	if want := time.Date(2023, 9, 18, 0, 0, 0, 0, time.UTC); !e.TimeInWindow.Equal(want) {
		t.Errorf("window time = %v, want %v", e.TimeInWindow, want)
	}
	if e.DirectionInWindow != compass.Classify(120) {
		t.Errorf("window direction = %v", e.DirectionInWindow)
	}
	if e.MaxAltitudeOverall != 60 || e.DirectionOverall != compass.Classify(240) {
		t.Errorf("overall = %v in %v, want 60 in %v", e.MaxAltitudeOverall, e.DirectionOverall, compass.Classify(240))
	}
	if e.MaxAltitudeOverall < e.MaxAltitudeInWindow {
		t.Error("overall maximum below window maximum")
	}
	if e.PeakDuringNight() {
		t.Error("peak is outside the window")
	}
}

func TestAnalyzeBoundaryExcluded(t *testing.T) {
	b := NightBounds(obsDate)
	// Samples at exactly 22:00 and 04:00 are not in the window.
	samples := []Sample{
		{Time: b.Start, AltitudeDeg: 80},
		{Time: b.Start.Add(time.Hour), AltitudeDeg: 10},
		{Time: b.End, AltitudeDeg: 70},
	}

	e, err := Analyze(samples, b)
	if err != nil {
		t.Fatal(err)
	}
	if e.MaxAltitudeInWindow != 10 {
		t.Errorf("window max = %v, want 10", e.MaxAltitudeInWindow)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	b := NightBounds(obsDate)

	if _, err := Analyze(nil, b); !errors.Is(err, ErrNoSamples) {
		t.Errorf("nil samples: err = %v, want ErrNoSamples", err)
	}

	outside := []Sample{{Time: b.Start.Add(-time.Hour), AltitudeDeg: 30}, {Time: b.End.Add(time.Hour), AltitudeDeg: 20}}
	if _, err := Analyze(outside, b); !errors.Is(err, ErrEmptyWindow) {
		t.Errorf("outside samples: err = %v, want ErrEmptyWindow", err)
	}
}

func extrema(window, overall float64) Extrema {
	inWin := time.Date(2023, 9, 18, 0, 30, 0, 0, time.UTC)
	e := Extrema{
		MaxAltitudeInWindow: window,
		DirectionInWindow:   "S",
		TimeInWindow:        inWin,
		MaxAltitudeOverall:  overall,
		DirectionOverall:    "SW",
		TimeOverall:         inWin,
	}
	if overall != window {
		e.TimeOverall = time.Date(2023, 9, 17, 20, 0, 0, 0, time.UTC)
	}
	return e
}

func TestScoreTable(t *testing.T) {
	tests := []struct {
		name    string
		window  float64
		overall float64
		want    float64
	}{
		{"peak during night", 45, 45, 9},
		{"low peak during night", 5, 5, 9},
		{"below 10", 9.5, 30, 1.5},
		{"exactly 10", 10, 30, 2},
		{"20", 20, 30, 3},
		{"25", 25, 60, 4},
		{"40", 40, 60, 5},
		{"45", 45, 60, 6},
		{"above 50", 55, 80, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score("M31", extrema(tt.window, tt.overall))
			if got.Score != tt.want {
				t.Errorf("Score = %v, want %v", got.Score, tt.want)
			}
			if got.Invisible {
				t.Error("unexpected invisible")
			}
			if got.Score < 1.5 || got.Score > 9 {
				t.Errorf("Score %v outside [1.5, 9]", got.Score)
			}
		})
	}
}

func TestScoreInvisible(t *testing.T) {
	for _, e := range []Extrema{extrema(-3, 20), extrema(0, 0), extrema(-40, -10)} {
		got := Score("NGC7000", e)
		if got.Score != 0 || !got.Invisible {
			t.Errorf("%+v: Score = %v invisible=%v, want 0 invisible", e, got.Score, got.Invisible)
		}
		if !strings.Contains(got.Message, "NGC7000 is invisible") {
			t.Errorf("message %q lacks invisibility note", got.Message)
		}
	}
}

func TestWholeDegrees(t *testing.T) {
	tests := []struct {
		alt  float64
		want string
	}{
		{81.52, "82.0"},
		{81.49, "81.0"},
		{44.5, "44.0"},
		{45.5, "46.0"},
		{0.2, "0.0"},
		{-12.7, "-13.0"},
	}
	for _, tt := range tests {
		if got := wholeDegrees(tt.alt); got != tt.want {
			t.Errorf("wholeDegrees(%v) = %q, want %q", tt.alt, got, tt.want)
		}
	}
}

func TestScoreMessages(t *testing.T) {
	peak := Score("M31", extrema(45, 45))
	wantPeak := "M31 max. altitude 45.0 deg reached during night time at 2023-09-18 00:30:00 in S\n" +
		"M31 is best observed at 2023-09-18 00:30:00 in S"
	if peak.Message != wantPeak {
		t.Errorf("message =\n%s\nwant\n%s", peak.Message, wantPeak)
	}

	before := Score("M31", extrema(25, 60))
	wantBefore := "M31 max. altitude 60.0 deg reached at 2023-09-17 20:00:00 in SW\n" +
		"M31 max. altitude 25.0 deg reached during night time at 2023-09-18 00:30:00 in S\n" +
		"M31 is best observed before 2023-09-18 00:30:00 in S"
	if before.Message != wantBefore {
		t.Errorf("message =\n%s\nwant\n%s", before.Message, wantBefore)
	}
}

// TestAssessPeakAt45 pins the outcome for an object culminating at exactly
// 45° at 01:00, inside the window, and lower everywhere else.
func TestAssessPeakAt45(t *testing.T) {
	peakAt := time.Date(2023, 9, 18, 1, 0, 0, 0, time.UTC)
	p := &pathProvider{peak: 45, peakAt: peakAt, rate: 5, azimuth: 180}

	e, res, err := Assess(context.Background(), p, "M13", obsDate, darmstadt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.PeakDuringNight() {
		t.Fatalf("expected peak during night, got window %v overall %v", e.MaxAltitudeInWindow, e.MaxAltitudeOverall)
	}
	if math.Abs(e.MaxAltitudeInWindow-45) > 0.2 {
		t.Errorf("window max = %v, want ~45", e.MaxAltitudeInWindow)
	}
	if e.DirectionInWindow != "S" {
		t.Errorf("direction = %v, want S", e.DirectionInWindow)
	}
	if res.Score != 9 {
		t.Errorf("Score = %v, want 9", res.Score)
	}
}

func TestAssessBelowHorizon(t *testing.T) {
	// Culminates at noon, far below the horizon all night.
	p := &pathProvider{peak: 10, peakAt: time.Date(2023, 9, 17, 12, 0, 0, 0, time.UTC), rate: 3, azimuth: 0}

	_, res, err := Assess(context.Background(), p, "M104", obsDate, darmstadt)
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 0 || !strings.Contains(res.Message, "is invisible") {
		t.Errorf("Score = %v, message %q; want invisible", res.Score, res.Message)
	}
}

func TestAssessRealSky(t *testing.T) {
	// M31 from Darmstadt in mid September transits shortly after midnight,
	// about 81° up.
	p := transformProvider{eq: transform.Equatorial{RA: 10.68471, Dec: 41.26875}}

	e, res, err := Assess(context.Background(), p, "M31", obsDate, darmstadt)
	if err != nil {
		t.Fatal(err)
	}
	if e.MaxAltitudeOverall < 80 || e.MaxAltitudeOverall > 82 {
		t.Errorf("overall max = %v, want ~81.4", e.MaxAltitudeOverall)
	}
	if !e.PeakDuringNight() || res.Score != 9 {
		t.Errorf("peak during night = %v, score %v; want true, 9", e.PeakDuringNight(), res.Score)
	}
}

type transformProvider struct {
	eq transform.Equatorial
}

func (p transformProvider) AltAz(_ context.Context, _ string, t time.Time, loc transform.Location) (transform.Horizontal, error) {
	return transform.J2000ToHorizontal(p.eq, loc, t), nil
}
