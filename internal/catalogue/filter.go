package catalogue

import "sort"

// Filter returns the objects whose night-window maximum reaches minAltitude
// and whose dominant direction starts with the first letter of direction,
// earliest maximum first. Nothing matching is not an error.
func Filter(c *Catalogue, minAltitude float64, direction string) []Entry {
	if c == nil || direction == "" {
		return []Entry{}
	}

	out := []Entry{}
	for _, e := range c.Entries() {
		r := e.Record
		if r.MaxAlt < minAltitude {
			continue
		}
		if r.MainDirections == "" || r.MainDirections[0] != direction[0] {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Record.MaxAltTime.Before(out[j].Record.MaxAltTime.Time)
	})
	return out
}
