package health

import "math"

// Assessment is everything a module card needs to render one RUL value.
type Assessment struct {
	Status *Status `json:"status"`

	// Percent is the normalised remaining life for hour-based policies and
	// the consumed share of the ceiling for cycle-based ones.
	Percent float64 `json:"percent"`

	// GaugePercent drives the radial gauge or progress bar fill.
	GaugePercent float64 `json:"gauge_percent"`
	GaugeDegrees float64 `json:"gauge_degrees"`

	// StressMargin is only reported by cycle-based policies.
	StressMargin *float64 `json:"stress_margin,omitempty"`
}

// Policy turns a raw RUL value into an Assessment. Implementations are
// stateless and may be called concurrently.
type Policy interface {
	Name() string
	Assess(rul *float64) Assessment
}

// ScaledPolicy is used by subsystems reporting remaining hours. The zone
// comes from the raw value, the normalised percent from ScaleMax with
// headroom, and the gauge from ScaleMax directly.
type ScaledPolicy struct {
	ScaleMax   float64
	Thresholds Thresholds
}

// NewScaledPolicy uses the default hour thresholds.
func NewScaledPolicy(scaleMax float64) ScaledPolicy {
	return ScaledPolicy{ScaleMax: scaleMax, Thresholds: DefaultThresholds}
}

func (p ScaledPolicy) Name() string { return "scaled" }

func (p ScaledPolicy) Assess(rul *float64) Assessment {
	gauge := 0.0
	if !missing(rul) && p.ScaleMax > 0 {
		gauge = clampPercent(*rul / p.ScaleMax * 100)
	}
	return Assessment{
		Status:       p.Thresholds.derive(rul),
		Percent:      NormaliseRul(rul, p.ScaleMax),
		GaugePercent: gauge,
		GaugeDegrees: gauge / 100 * 360,
	}
}

// CyclePolicy is used by subsystems reporting remaining cycles. Values are
// capped at Ceiling, classified on the capped value, and the progress is
// the capped value over Ceiling without headroom.
type CyclePolicy struct {
	Ceiling    float64
	Thresholds Thresholds
}

// LandingGearPolicy is the cycle policy of the landing gear module.
func LandingGearPolicy() CyclePolicy {
	return CyclePolicy{
		Ceiling:    400,
		Thresholds: Thresholds{Optimal: 350, Caution: 265},
	}
}

func (p CyclePolicy) Name() string { return "cycles" }

// Scaled caps rul at the ceiling. Missing values stay missing.
func (p CyclePolicy) Scaled(rul *float64) *float64 {
	if missing(rul) {
		return nil
	}
	v := math.Min(*rul, p.Ceiling)
	return &v
}

func (p CyclePolicy) Assess(rul *float64) Assessment {
	scaled := p.Scaled(rul)
	if scaled == nil {
		return Assessment{}
	}

	progress := 0.0
	if p.Ceiling > 0 {
		progress = clampPercent(*scaled / p.Ceiling * 100)
	}
	margin := 100 - math.Round(progress)

	return Assessment{
		Status:       p.Thresholds.derive(scaled),
		Percent:      progress,
		GaugePercent: progress,
		GaugeDegrees: progress / 100 * 360,
		StressMargin: &margin,
	}
}
