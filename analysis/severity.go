package analysis

import "github.com/pkg/errors"

// Tier is a coarse classification of a prediction's mean relative to the set maximum.
type Tier int

const (
	Mild Tier = iota
	Moderate
	Severe
)

func (t Tier) String() string {
	switch t {
	case Mild:
		return "mild"
	case Moderate:
		return "moderate"
	case Severe:
		return "severe"
	}
	return "unknown"
}

// Color is the swatch used for the tier in the table and the legend.
func (t Tier) Color() string {
	switch t {
	case Moderate:
		return "orange"
	case Severe:
		return "red"
	}
	return "green"
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "mild":
		*t = Mild
	case "moderate":
		*t = Moderate
	case "severe":
		*t = Severe
	default:
		return errors.Errorf("unknown severity tier %q", text)
	}
	return nil
}

const (
	// DefaultModeratePercent is the lowest share of the set maximum (in percent)
	// that classifies as Moderate.
	DefaultModeratePercent = 33.0
	// DefaultSeverePercent is the lowest share of the set maximum (in percent)
	// that classifies as Severe.
	DefaultSeverePercent = 66.0
	// DefaultTableLimit is how many ranked rows the collapsed table shows.
	DefaultTableLimit = 7
)

// Policy carries the presentation constants.
type Policy struct {
	ModeratePercent float64 `toml:"moderate_percent"`
	SeverePercent   float64 `toml:"severe_percent"`
	TableLimit      int     `toml:"table_limit"`
}

func DefaultPolicy() Policy {
	return Policy{
		ModeratePercent: DefaultModeratePercent,
		SeverePercent:   DefaultSeverePercent,
		TableLimit:      DefaultTableLimit,
	}
}

func (p Policy) Validate() error {
	if p.ModeratePercent <= 0 || p.SeverePercent <= p.ModeratePercent {
		return errors.Errorf("tier boundaries must satisfy 0 < moderate (%v) < severe (%v)",
			p.ModeratePercent, p.SeverePercent)
	}
	if p.TableLimit <= 0 {
		return errors.Errorf("table limit must be positive, got %d", p.TableLimit)
	}
	return nil
}

// Classify maps mean to a tier relative to setMax. A non-positive setMax classifies
// everything as Mild.
func (p Policy) Classify(mean, setMax float64) Tier {
	if setMax <= 0 {
		return Mild
	}
	pct := mean / setMax * 100
	switch {
	case pct < p.ModeratePercent:
		return Mild
	case pct < p.SeverePercent:
		return Moderate
	}
	return Severe
}

// Classify uses the default tier boundaries.
func Classify(mean, setMax float64) Tier {
	return DefaultPolicy().Classify(mean, setMax)
}
