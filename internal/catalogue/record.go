package catalogue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/compass"
	"github.com/yetanothergithubaccount/ObsPi/internal/store"
	"github.com/yetanothergithubaccount/ObsPi/internal/visibility"
)

// Timestamp is a naive clock time serialized as "YYYY-MM-DD HH:MM:SS".
type Timestamp struct {
	time.Time
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(visibility.TimeLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(visibility.TimeLayout, s)
	if err != nil {
		return fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// Record is the persisted visibility of one object on one date. The max_alt
// fields hold the night-window maximum and the max_alt_during_night fields
// the maximum over the whole sampled day, matching existing cache files.
type Record struct {
	Date string `json:"date"`

	MaxAlt          float64       `json:"max_alt"`
	MaxAltDirection compass.Label `json:"max_alt_direction"`
	MaxAltTime      Timestamp     `json:"max_alt_time"`

	MaxAltDuringNight          float64       `json:"max_alt_during_night"`
	MaxAltDuringNightDirection compass.Label `json:"max_alt_during_night_direction"`
	MaxAltDuringNightObstime   Timestamp     `json:"max_alt_during_night_obstime"`

	Direction20 compass.Label `json:"direction_20"`
	Direction22 compass.Label `json:"direction_22"`
	Direction0  compass.Label `json:"direction_0"`
	Direction2  compass.Label `json:"direction_2"`
	Direction4  compass.Label `json:"direction_4"`
	Direction6  compass.Label `json:"direction_6"`

	MainDirections string  `json:"main_directions"`
	Score          float64 `json:"score"`
}

// Extrema returns the record's maxima in analyzer form.
func (r Record) Extrema() visibility.Extrema {
	return visibility.Extrema{
		MaxAltitudeInWindow: r.MaxAlt,
		DirectionInWindow:   r.MaxAltDirection,
		TimeInWindow:        r.MaxAltTime.Time,
		MaxAltitudeOverall:  r.MaxAltDuringNight,
		DirectionOverall:    r.MaxAltDuringNightDirection,
		TimeOverall:         r.MaxAltDuringNightObstime.Time,
	}
}

// FixedLabels returns the six quick-glance labels in evening-to-morning order.
func (r Record) FixedLabels() []compass.Label {
	return []compass.Label{r.Direction20, r.Direction22, r.Direction0, r.Direction2, r.Direction4, r.Direction6}
}

func newRecord(date time.Time, e visibility.Extrema, labels [6]compass.Label, score float64) Record {
	r := Record{
		Date:                       date.Format(store.DateLayout),
		MaxAlt:                     e.MaxAltitudeInWindow,
		MaxAltDirection:            e.DirectionInWindow,
		MaxAltTime:                 Timestamp{e.TimeInWindow},
		MaxAltDuringNight:          e.MaxAltitudeOverall,
		MaxAltDuringNightDirection: e.DirectionOverall,
		MaxAltDuringNightObstime:   Timestamp{e.TimeOverall},
		Direction20:                labels[0],
		Direction22:                labels[1],
		Direction0:                 labels[2],
		Direction2:                 labels[3],
		Direction4:                 labels[4],
		Direction6:                 labels[5],
		Score:                      score,
	}
	r.MainDirections = compass.Dominant(r.FixedLabels()...)
	return r
}

// Entry pairs an object name with its record.
type Entry struct {
	Name   string `json:"name"`
	Record Record `json:"record"`
}

// Catalogue is an ordered mapping of object name to record. Its JSON form
// is a single object whose keys keep insertion order.
type Catalogue struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty Catalogue.
func New() *Catalogue {
	return &Catalogue{index: make(map[string]int)}
}

// Put adds or replaces the record for name. New names go to the end.
func (c *Catalogue) Put(name string, r Record) {
	if i, ok := c.index[name]; ok {
		c.entries[i].Record = r
		return
	}
	c.index[name] = len(c.entries)
	c.entries = append(c.entries, Entry{Name: name, Record: r})
}

// Get returns the record for name.
func (c *Catalogue) Get(name string) (Record, bool) {
	i, ok := c.index[name]
	if !ok {
		return Record{}, false
	}
	return c.entries[i].Record, true
}

// Len returns the number of objects.
func (c *Catalogue) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the entries in order.
func (c *Catalogue) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// MarshalJSON implements json.Marshaler.
func (c *Catalogue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Record)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", e.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping key order.
func (c *Catalogue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("catalogue: expected object, got %v", tok)
	}

	fresh := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("catalogue: expected object name, got %v", tok)
		}
		var r Record
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("catalogue: decoding %s: %w", name, err)
		}
		fresh.Put(name, r)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = *fresh
	return nil
}
