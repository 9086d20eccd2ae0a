// Package compass maps azimuth angles to compass labels and aggregates labels
// into a dominant-direction code.
package compass

import (
	"math"
	"strings"
)

// Label is a compass direction such as "N" or "SSW".
type Label string

// bucket covers azimuths in [Min, Max). The last bucket is closed at 360.
type bucket struct {
	Min, Max float64
	Label    Label
}

// buckets is evaluated in order; the first match wins. The boundaries are
// irregular on purpose and must not be normalized to 22.5° steps.
var buckets = []bucket{
	{0, 15, "N"},
	{15, 30, "NNE"},
	{30, 60, "NE"},
	{60, 75, "ENE"},
	{75, 105, "E"},
	{105, 135, "ESE"},
	{135, 150, "SE"},
	{150, 165, "SSE"},
	{165, 195, "S"},
	{195, 225, "SSW"},
	{225, 240, "SW"},
	{240, 255, "WSW"},
	{255, 285, "W"},
	{285, 300, "WNW"},
	{300, 330, "NW"},
	{330, 345, "NWN"},
	{345, 360, "N"},
}

// Classify returns the compass label for an azimuth in degrees. Values
// outside [0, 360] are reduced modulo 360 first.
func Classify(azimuthDeg float64) Label {
	az := azimuthDeg
	if az < 0 || az > 360 {
		az = math.Mod(az, 360)
		if az < 0 {
			az += 360
		}
	}

	for _, b := range buckets {
		if az >= b.Min && az < b.Max {
			return b.Label
		}
	}
	// 360 itself and NaN land here.
	return "N"
}

// Labels returns every distinct label in bucket order.
func Labels() []Label {
	seen := make(map[Label]bool, len(buckets))
	var out []Label
	for _, b := range buckets {
		if !seen[b.Label] {
			seen[b.Label] = true
			out = append(out, b.Label)
		}
	}
	return out
}

// Cardinals is the fixed scan order used for counting and tie-breaking.
var Cardinals = [4]string{"N", "E", "S", "W"}

// Dominant builds a two-letter code from the most and second most frequent
// cardinal letters across labels. Letters are counted by substring, so "NNE"
// adds two to N and one to E. Ties go to the earlier letter in N, E, S, W.
// When no second letter occurs the second pick falls back to N.
func Dominant(labels ...Label) string {
	var joined strings.Builder
	for _, l := range labels {
		joined.WriteString(string(l))
	}
	s := joined.String()

	var counts [4]int
	for i, c := range Cardinals {
		counts[i] = strings.Count(s, c)
	}

	first := argmax(counts)
	counts[first] = 0
	second := argmax(counts)

	return Cardinals[first] + Cardinals[second]
}

// argmax returns the index of the first maximum.
func argmax(counts [4]int) int {
	idx := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[idx] {
			idx = i
		}
	}
	return idx
}
