package module

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"rul-dashboard/internal/health"
	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"
	"rul-dashboard/internal/prediction"
	"rul-dashboard/internal/store"
)

// ErrBusy is returned when a submit arrives while the module already has a
// request in flight. The submit is dropped and the state is untouched.
var ErrBusy = errors.New("prediction already in progress")

// msgUnknownFailure is shown for errors that carry no operator message.
const msgUnknownFailure = "Unable to retrieve prediction."

// Predictor is the part of the prediction client a module needs.
type Predictor interface {
	Predict(ctx context.Context, subsystem prediction.Subsystem, fv prediction.FeatureVector) (prediction.Result, error)
}

// State is everything a module remembers between requests.
type State struct {
	Values    map[string]string
	Loading   bool
	Error     string
	Result    *prediction.Result
	UpdatedAt time.Time
}

// Options are shared by every module of a dashboard.
type Options struct {
	History    store.History
	HistoryTTL time.Duration
}

// Module owns the form state, in-flight flag and last result of one
// subsystem.
type Module struct {
	def       Definition
	predictor Predictor
	logger    *logs.Scoped
	metrics   *metrics.Registry
	opts      Options

	inFlight atomic.Bool

	mu    sync.RWMutex
	state State
}

// New creates a module with an empty form.
func New(def Definition, predictor Predictor, logger *logs.Logger, reg *metrics.Registry, opts Options) *Module {
	values := make(map[string]string, len(def.Fields))
	for _, f := range def.Fields {
		values[f.Name] = ""
	}
	return &Module{
		def:       def,
		predictor: predictor,
		logger:    logger.With(string(def.ID)),
		metrics:   reg,
		opts:      opts,
		state:     State{Values: values},
	}
}

func (m *Module) Definition() Definition {
	return m.def
}

// Submit runs one prediction from raw form values.
//
// Field values are kept for redisplay whatever happens. A validation error
// leaves the previous result in place; a failed call clears it.
// The backend call ignores cancellation of ctx and is bounded only by the
// client's own timeout.
func (m *Module) Submit(ctx context.Context, form map[string]string) (View, error) {
	if !m.inFlight.CompareAndSwap(false, true) {
		m.metrics.Inc(metrics.SubmitsRejectedTotal)
		return m.View(), ErrBusy
	}
	defer m.inFlight.Store(false)

	fv, err := prediction.BuildFeatureVector(m.def.Fields, form)

	m.mu.Lock()
	for _, f := range m.def.Fields {
		m.state.Values[f.Name] = form[f.Name]
	}
	if err != nil {
		m.state.Error = err.Error()
		m.mu.Unlock()

		m.metrics.Inc(metrics.ValidationErrorsTotal)
		m.logger.Debug("validation failed: " + err.Error())
		return m.View(), err
	}
	m.state.Loading = true
	m.state.Error = ""
	m.mu.Unlock()

	res, err := m.predictor.Predict(context.WithoutCancel(ctx), m.def.ID, fv)

	m.mu.Lock()
	m.state.Loading = false
	m.state.UpdatedAt = time.Now()
	if err != nil {
		m.state.Result = nil
		m.state.Error = failureMessage(err)
	} else {
		m.state.Result = &res
		m.state.Error = ""
	}
	m.mu.Unlock()

	if err == nil {
		m.record(ctx, res)
	}
	return m.View(), err
}

func failureMessage(err error) string {
	var pe *prediction.Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return msgUnknownFailure
}

func (m *Module) record(ctx context.Context, res prediction.Result) {
	if m.opts.History == nil {
		return
	}

	now := time.Now()
	p := store.Point{
		RUL:          res.PredictedRUL,
		ModelVersion: res.ModelVersion,
		Timestamp:    now.UnixNano(),
	}
	if m.opts.HistoryTTL > 0 {
		p.ExpiresAt = now.Add(m.opts.HistoryTTL)
	}

	if err := m.opts.History.Append(context.WithoutCancel(ctx), string(m.def.ID), p); err != nil {
		m.metrics.Inc(metrics.HistoryAppendFailureTotal)
		m.logger.Warn("history append failed: " + err.Error())
	}
}

// State returns a copy of the module state.
func (m *Module) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make(map[string]string, len(m.state.Values))
	for k, v := range m.state.Values {
		values[k] = v
	}
	s := m.state
	s.Values = values
	if m.state.Result != nil {
		r := *m.state.Result
		s.Result = &r
	}
	return s
}

// Assess applies this module's policy to an arbitrary value.
func (m *Module) Assess(rul *float64) health.Assessment {
	return m.def.Policy.Assess(rul)
}

// History returns the trend points of this module with their derived
// assessment.
func (m *Module) History(ctx context.Context) ([]TrendPoint, error) {
	if m.opts.History == nil {
		return []TrendPoint{}, nil
	}
	points, err := m.opts.History.List(ctx, string(m.def.ID))
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", m.def.ID, err)
	}

	out := make([]TrendPoint, 0, len(points))
	for _, p := range points {
		rul := p.RUL
		out = append(out, TrendPoint{
			Point:      p,
			Assessment: m.Assess(&rul),
		})
	}
	return out, nil
}

// TrendPoint is a stored point with its health derived on read.
type TrendPoint struct {
	store.Point
	Assessment health.Assessment `json:"assessment"`
}
