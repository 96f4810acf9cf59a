package module

import (
	"rul-dashboard/internal/health"
	"rul-dashboard/internal/prediction"
)

// Definition describes one subsystem card: what it asks for, where it posts
// and how the answer is judged.
type Definition struct {
	ID       prediction.Subsystem
	Title    string
	Subtitle string
	Hint     string
	Fields   []prediction.Field
	Unit     string
	Policy   health.Policy
}

// Engine reports remaining flight hours on a 120 hour scale.
func Engine() Definition {
	return Definition{
		ID:       prediction.SubsystemEngine,
		Title:    "Engine Remaining Useful Life (RUL)",
		Subtitle: "Predict turbine degradation trajectory from operational inputs.",
		Hint:     "Input current sensor readings to estimate remaining engine flight hours.",
		Unit:     "hrs",
		Policy:   health.NewScaledPolicy(120),
		Fields: []prediction.Field{
			{Name: "op_setting_1", Label: "Op. Setting 1", Unit: "%", Placeholder: "0.0005"},
			{Name: "op_setting_2", Label: "Op. Setting 2", Unit: "%", Placeholder: "0.0008"},
			{Name: "op_setting_3", Label: "Op. Setting 3", Unit: "%", Placeholder: "100"},
			{Name: "sensor_11", Label: "Sensor 11", Unit: "°C", Placeholder: "1200"},
			{Name: "sensor_4", Label: "Sensor 4", Unit: "psi", Placeholder: "48.5"},
			{Name: "sensor_12", Label: "Sensor 12", Unit: "°C", Placeholder: "540"},
		},
	}
}

// Hydraulics reports remaining hours on a 110 hour scale.
func Hydraulics() Definition {
	return Definition{
		ID:       prediction.SubsystemHydraulics,
		Title:    "Hydraulics Remaining Useful Life (RUL)",
		Subtitle: "Assess hydraulic circuit integrity and fluid pressures.",
		Hint:     "Provide averaged circuit readings to estimate remaining hydraulic service hours.",
		Unit:     "hrs",
		Policy:   health.NewScaledPolicy(110),
		Fields: []prediction.Field{
			{Name: "PS6_mean", Label: "PS6 Mean", Unit: "psi", Placeholder: "2950"},
			{Name: "PS5_mean", Label: "PS5 Mean", Unit: "psi", Placeholder: "2850"},
			{Name: "CE_mean", Label: "Coolant Eff.", Unit: "%", Placeholder: "87"},
			{Name: "TS4_mean", Label: "TS4 Mean", Unit: "°C", Placeholder: "140"},
			{Name: "TS2_mean", Label: "TS2 Mean", Unit: "°C", Placeholder: "92"},
			{Name: "TS1_mean", Label: "TS1 Mean", Unit: "°C", Placeholder: "88"},
			{Name: "CP_mean", Label: "Charge Pressure", Unit: "bar", Placeholder: "210"},
			{Name: "TS3_mean", Label: "TS3 Mean", Unit: "°C", Placeholder: "118"},
		},
	}
}

// LandingGear reports remaining landing cycles against a 400 cycle ceiling.
func LandingGear() Definition {
	return Definition{
		ID:       prediction.SubsystemLandingGear,
		Title:    "Landing Gear Remaining Useful Life (RUL)",
		Subtitle: "Project touchdown loads and tyre wear for maintenance planning.",
		Hint:     "Predict structural fatigue based on latest landing performance data.",
		Unit:     "cycles",
		Policy:   health.LandingGearPolicy(),
		Fields: []prediction.Field{
			{Name: "load_during_landing", Label: "Load During Landing", Unit: "kN", Placeholder: "215"},
			{Name: "tire_pressure", Label: "Tire Pressure", Unit: "psi", Placeholder: "210"},
			{Name: "speed_during_landing", Label: "Landing Speed", Unit: "kts", Placeholder: "145"},
		},
	}
}

// Catalog lists the dashboard modules in display order.
func Catalog() []Definition {
	return []Definition{Engine(), Hydraulics(), LandingGear()}
}
