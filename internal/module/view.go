package module

import (
	"fmt"
	"time"

	"rul-dashboard/internal/health"
	"rul-dashboard/internal/prediction"
)

const awaitingData = "Awaiting data"

type FieldView struct {
	prediction.Field
	Value string `json:"value"`
}

// View is the render model of a module card.
type View struct {
	ID         prediction.Subsystem `json:"id"`
	Title      string               `json:"title"`
	Subtitle   string               `json:"subtitle"`
	Hint       string               `json:"hint"`
	Unit       string               `json:"unit"`
	Policy     string               `json:"policy"`
	Fields     []FieldView          `json:"fields"`
	Loading    bool                 `json:"loading"`
	Error      string               `json:"error,omitempty"`
	Result     *prediction.Result   `json:"result,omitempty"`
	Display    string               `json:"display"`
	Assessment health.Assessment    `json:"assessment"`
	UpdatedAt  *time.Time           `json:"updated_at,omitempty"`
}

// View derives the render model from the current state.
func (m *Module) View() View {
	s := m.State()

	fields := make([]FieldView, 0, len(m.def.Fields))
	for _, f := range m.def.Fields {
		fields = append(fields, FieldView{Field: f, Value: s.Values[f.Name]})
	}

	v := View{
		ID:       m.def.ID,
		Title:    m.def.Title,
		Subtitle: m.def.Subtitle,
		Hint:     m.def.Hint,
		Unit:     m.def.Unit,
		Policy:   m.def.Policy.Name(),
		Fields:   fields,
		Loading:  s.Loading,
		Error:    s.Error,
		Result:   s.Result,
		Display:  awaitingData,
	}

	var rul *float64
	if s.Result != nil {
		value := s.Result.PredictedRUL
		rul = &value
		v.Display = fmt.Sprintf("%.1f %s", value, m.def.Unit)
	}
	v.Assessment = m.def.Policy.Assess(rul)

	if !s.UpdatedAt.IsZero() {
		at := s.UpdatedAt
		v.UpdatedAt = &at
	}
	return v
}
