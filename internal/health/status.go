package health

import "math"

// Zone is the discrete health classification of a subsystem.
type Zone string

const (
	ZoneOptimal  Zone = "optimal"
	ZoneCaution  Zone = "caution"
	ZoneCritical Zone = "critical"
)

// Status is the presentation descriptor for a zone.
type Status struct {
	Zone        Zone   `json:"zone"`
	Label       string `json:"label"`
	Message     string `json:"message"`
	AccentColor string `json:"accent_color"`
}

var statuses = map[Zone]Status{
	ZoneOptimal: {
		Zone:        ZoneOptimal,
		Label:       "Optimal",
		Message:     "Subsystem operating within nominal parameters.",
		AccentColor: "hsl(142 70% 45%)",
	},
	ZoneCaution: {
		Zone:        ZoneCaution,
		Label:       "Monitor",
		Message:     "Subsystem showing moderate wear. Schedule inspection soon.",
		AccentColor: "hsl(38 92% 55%)",
	},
	ZoneCritical: {
		Zone:        ZoneCritical,
		Label:       "Critical",
		Message:     "Immediate maintenance recommended.",
		AccentColor: "hsl(0 84% 60%)",
	},
}

// StatusFor returns a copy of the descriptor for z.
func StatusFor(z Zone) Status {
	return statuses[z]
}

// Thresholds classify a value: at or above Optimal is optimal, at or above
// Caution is caution, anything lower is critical.
type Thresholds struct {
	Optimal float64 `json:"optimal" yaml:"optimal"`
	Caution float64 `json:"caution" yaml:"caution"`
}

// DefaultThresholds apply to the hour-based subsystems.
var DefaultThresholds = Thresholds{Optimal: 100, Caution: 80}

// Classify maps v to a zone.
func (t Thresholds) Classify(v float64) Zone {
	switch {
	case v >= t.Optimal:
		return ZoneOptimal
	case v >= t.Caution:
		return ZoneCaution
	default:
		return ZoneCritical
	}
}

// Derive classifies rul with the default thresholds.
// A nil or NaN rul has no status.
func Derive(rul *float64) *Status {
	return DefaultThresholds.derive(rul)
}

func (t Thresholds) derive(rul *float64) *Status {
	if missing(rul) {
		return nil
	}
	s := StatusFor(t.Classify(*rul))
	return &s
}

// headroom keeps the normalised gauge from pinning at 100%.
const headroom = 1.3

// NormaliseRul maps rul onto 0..100 against maximum scaled by the headroom
// factor. Missing values and non-positive maxima give 0.
func NormaliseRul(rul *float64, maximum float64) float64 {
	if missing(rul) || maximum <= 0 {
		return 0
	}
	return clampPercent(*rul / (maximum * headroom) * 100)
}

func missing(v *float64) bool {
	return v == nil || math.IsNaN(*v)
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
