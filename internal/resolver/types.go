package resolver

import "errors"

// ErrNotFound is returned when no source knows the requested designation.
var ErrNotFound = errors.New("object not found")

// ObjectInfo is a resolved catalogue object. Coordinates are J2000 degrees.
type ObjectInfo struct {
	Name   string  `json:"name" yaml:"name"`
	RA     float64 `json:"ra" yaml:"ra"`
	Dec    float64 `json:"dec" yaml:"dec"`
	Type   string  `json:"type,omitempty" yaml:"type,omitempty"`
	Source string  `json:"source,omitempty" yaml:"-"`
}

// Description returns a readable name for the SIMBAD object type, or "" when
// the code is unknown.
func (o ObjectInfo) Description() string {
	return typeDescriptions[o.Type]
}

// typeDescriptions maps SIMBAD otype codes to short descriptions.
var typeDescriptions = map[string]string{
	"AGN":  "Active galaxy nucleus",
	"SNR":  "SuperNova remnant",
	"SFR":  "Star forming region",
	"GNe":  "Nebula",
	"RNe":  "Reflection nebula",
	"GDNe": "Dark cloud (nebula)",
	"MoC":  "Molecular cloud",
	"IG":   "Interacting galaxies",
	"PaG":  "Pair of galaxies",
	"GiP":  "Galaxy in pair of galaxies",
	"CGG":  "Compact group of galaxies",
	"CIG":  "Cluster of galaxies",
	"BH":   "Black hole",
	"LSB":  "Low surface brightness galaxy",
	"SBG":  "Starburst galaxy",
	"H2G":  "HII galaxy",
	"GGG":  "Galaxy",
	"Cl":   "Cluster of stars",
	"GlC":  "Globular cluster",
	"OpC":  "Open cluster",
	"Cl*":  "Open cluster",
	"LIN":  "LINER-type active galaxy nucleus",
	"SyG":  "Seyfert galaxy",
	"Sy1":  "Seyfert 1 galaxy",
	"Sy2":  "Seyfert 2 galaxy",
	"GiG":  "Galaxy towards a group of galaxies",
	"As*":  "Association of stars",
	"PN":   "Planetary nebula",
}
