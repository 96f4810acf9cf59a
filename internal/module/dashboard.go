package module

import (
	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"
)

// Dashboard is the fixed set of modules. Modules share nothing but the
// predictor and the ambient logger/metrics.
type Dashboard struct {
	order []*Module
	byID  map[string]*Module
}

// NewDashboard builds one module per definition, keeping their order.
func NewDashboard(
	defs []Definition,
	predictor Predictor,
	logger *logs.Logger,
	reg *metrics.Registry,
	opts Options,
) *Dashboard {
	d := &Dashboard{
		order: make([]*Module, 0, len(defs)),
		byID:  make(map[string]*Module, len(defs)),
	}
	for _, def := range defs {
		m := New(def, predictor, logger, reg, opts)
		d.order = append(d.order, m)
		d.byID[string(def.ID)] = m
	}
	return d
}

// Get looks a module up by subsystem id.
func (d *Dashboard) Get(id string) (*Module, bool) {
	m, ok := d.byID[id]
	return m, ok
}

func (d *Dashboard) Modules() []*Module {
	out := make([]*Module, len(d.order))
	copy(out, d.order)
	return out
}

// Views renders every module in display order.
func (d *Dashboard) Views() []View {
	out := make([]View, 0, len(d.order))
	for _, m := range d.order {
		out = append(out, m.View())
	}
	return out
}
