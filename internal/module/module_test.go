package module

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rul-dashboard/internal/health"
	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"
	"rul-dashboard/internal/prediction"
	"rul-dashboard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ---------------- Fake predictor ---------------- */

type fakePredictor struct {
	mu    sync.Mutex
	calls int
	last  prediction.FeatureVector
	ctxOK bool

	result prediction.Result
	err    error
	block  chan struct{}
}

func (f *fakePredictor) Predict(ctx context.Context, _ prediction.Subsystem, fv prediction.FeatureVector) (prediction.Result, error) {
	f.mu.Lock()
	f.calls++
	f.last = fv
	f.ctxOK = ctx.Err() == nil
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.result, f.err
}

func (f *fakePredictor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func engineForm() map[string]string {
	return map[string]string{
		"op_setting_1": "0.0005",
		"op_setting_2": "0.0008",
		"op_setting_3": "100",
		"sensor_11":    "1200",
		"sensor_4":     "48.5",
		"sensor_12":    "540",
	}
}

func newEngine(p Predictor, opts Options) (*Module, *metrics.Registry) {
	reg := metrics.NewRegistry()
	return New(Engine(), p, logs.NewLogger(50, logs.DEBUG), reg, opts), reg
}

/* ---------------- Tests ---------------- */

func TestModuleSubmit_Success(t *testing.T) {
	p := &fakePredictor{result: prediction.Result{PredictedRUL: 120, ModelVersion: "best_model_fd001"}}
	m, _ := newEngine(p, Options{})

	view, err := m.Submit(context.Background(), engineForm())
	require.NoError(t, err)

	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, 48.5, p.last["sensor_4"])
	assert.Len(t, p.last, 6)

	require.NotNil(t, view.Result)
	assert.Equal(t, "120.0 hrs", view.Display)
	assert.Empty(t, view.Error)
	assert.False(t, view.Loading)
	require.NotNil(t, view.Assessment.Status)
	assert.Equal(t, health.ZoneOptimal, view.Assessment.Status.Zone)
	assert.InDelta(t, 76.9, view.Assessment.Percent, 0.05)
	assert.NotNil(t, view.UpdatedAt)
}

func TestModuleSubmit_ValidationBlocksCall(t *testing.T) {
	p := &fakePredictor{result: prediction.Result{PredictedRUL: 95}}
	m, reg := newEngine(p, Options{})

	_, err := m.Submit(context.Background(), engineForm())
	require.NoError(t, err)

	form := engineForm()
	form["sensor_11"] = "hot"
	view, err := m.Submit(context.Background(), form)

	require.Error(t, err)
	assert.Equal(t, prediction.KindValidation, prediction.KindOf(err))
	assert.Equal(t, 1, p.Calls(), "invalid input must not reach the backend")
	assert.Equal(t, "Provide a numeric value for Sensor 11.", view.Error)
	assert.Equal(t, "hot", m.State().Values["sensor_11"])
	require.NotNil(t, view.Result, "validation keeps the last good result")
	assert.Equal(t, int64(1), reg.Value(metrics.ValidationErrorsTotal))
}

func TestModuleSubmit_FailureClearsResult(t *testing.T) {
	p := &fakePredictor{result: prediction.Result{PredictedRUL: 85}}
	m, _ := newEngine(p, Options{})

	_, err := m.Submit(context.Background(), engineForm())
	require.NoError(t, err)

	p.err = &prediction.Error{Kind: prediction.KindServer, Message: "model unavailable"}
	view, err := m.Submit(context.Background(), engineForm())

	require.Error(t, err)
	assert.Nil(t, view.Result)
	assert.Equal(t, "model unavailable", view.Error)
	assert.Equal(t, "Awaiting data", view.Display)
	assert.Nil(t, view.Assessment.Status)

	p.err = errors.New("opaque")
	view, _ = m.Submit(context.Background(), engineForm())
	assert.Equal(t, "Unable to retrieve prediction.", view.Error)
}

func TestModuleSubmit_IgnoresSubmitWhileInFlight(t *testing.T) {
	p := &fakePredictor{result: prediction.Result{PredictedRUL: 100}, block: make(chan struct{})}
	m, reg := newEngine(p, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := m.Submit(context.Background(), engineForm())
		done <- err
	}()

	require.Eventually(t, func() bool { return m.State().Loading }, time.Second, time.Millisecond)

	view, err := m.Submit(context.Background(), engineForm())
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, view.Loading)

	close(p.block)
	require.NoError(t, <-done)

	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, int64(1), reg.Value(metrics.SubmitsRejectedTotal))
	assert.False(t, m.State().Loading)
}

func TestModuleSubmit_DetachedFromCallerCancellation(t *testing.T) {
	p := &fakePredictor{result: prediction.Result{PredictedRUL: 100}}
	m, _ := newEngine(p, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Submit(ctx, engineForm())
	require.NoError(t, err)
	assert.True(t, p.ctxOK)
}

func TestModulesAreIndependent(t *testing.T) {
	p := &fakePredictor{result: prediction.Result{PredictedRUL: 300}}
	d := NewDashboard(Catalog(), p, logs.NewLogger(10, logs.DEBUG), metrics.NewRegistry(), Options{})

	gear, ok := d.Get("landing-gear")
	require.True(t, ok)
	_, err := gear.Submit(context.Background(), map[string]string{
		"load_during_landing":  "215",
		"tire_pressure":        "210",
		"speed_during_landing": "145",
	})
	require.NoError(t, err)

	engine, _ := d.Get("engine")
	assert.Nil(t, engine.State().Result)
	assert.NotNil(t, gear.State().Result)

	views := d.Views()
	require.Len(t, views, 3)
	assert.Equal(t, prediction.SubsystemEngine, views[0].ID)
	assert.Equal(t, "300.0 cycles", views[2].Display)
	assert.Equal(t, health.ZoneCaution, views[2].Assessment.Status.Zone)

	_, ok = d.Get("apu")
	assert.False(t, ok)
}

func TestModuleHistory(t *testing.T) {
	reg := metrics.NewRegistry()
	history := store.NewMemoryHistory(10, reg)
	p := &fakePredictor{result: prediction.Result{PredictedRUL: 400, ModelVersion: "best_rul_model_top3"}}
	m := New(LandingGear(), p, logs.NewLogger(10, logs.DEBUG), reg, Options{History: history, HistoryTTL: time.Hour})

	_, err := m.Submit(context.Background(), map[string]string{
		"load_during_landing":  "215",
		"tire_pressure":        "210",
		"speed_during_landing": "145",
	})
	require.NoError(t, err)

	points, err := m.History(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 400.0, points[0].RUL)
	assert.False(t, points[0].ExpiresAt.IsZero())
	assert.Equal(t, health.ZoneOptimal, points[0].Assessment.Status.Zone)
	assert.Equal(t, 100.0, points[0].Assessment.Percent)
}

func TestModuleSubmit_TimeoutClearsPreviousResult(t *testing.T) {
	var slow atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(`{"predicted_rul": 85}`))
	}))
	defer server.Close()

	reg := metrics.NewRegistry()
	logger := logs.NewLogger(20, logs.DEBUG)
	client := prediction.NewClient(server.URL, logger, reg, prediction.WithTimeout(50*time.Millisecond))
	m := New(Hydraulics(), client, logger, reg, Options{})

	form := map[string]string{
		"PS6_mean": "2950", "PS5_mean": "2850", "CE_mean": "87", "TS4_mean": "140",
		"TS2_mean": "92", "TS1_mean": "88", "CP_mean": "210", "TS3_mean": "118",
	}

	view, err := m.Submit(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, health.ZoneCaution, view.Assessment.Status.Zone)
	assert.InDelta(t, 59.4, view.Assessment.Percent, 0.05)

	slow.Store(true)
	view, err = m.Submit(context.Background(), form)

	require.Error(t, err)
	assert.Equal(t, "Request timed out. Please retry.", view.Error)
	assert.Nil(t, view.Result)
}
