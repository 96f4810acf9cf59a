package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *metrics.Registry, *logs.Logger) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	reg := metrics.NewRegistry()
	logger := logs.NewLogger(50, logs.DEBUG)
	return NewClient(server.URL+"/", logger, reg, opts...), reg, logger
}

func TestClientPredict_Success(t *testing.T) {
	var received FeatureVector
	client, reg, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict/landing-gear", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predicted_rul": 312.5, "units": "cycles", "model_version": "best_rul_model_top3"}`))
	})

	fv := FeatureVector{"load_during_landing": 215, "tire_pressure": 210, "speed_during_landing": 145}
	res, err := client.Predict(context.Background(), SubsystemLandingGear, fv)

	require.NoError(t, err)
	assert.Equal(t, 312.5, res.PredictedRUL)
	assert.Equal(t, "cycles", res.Units)
	assert.Equal(t, "best_rul_model_top3", res.ModelVersion)
	assert.Equal(t, fv, received)

	snap := reg.Snapshot()
	assert.Equal(t, int64(1), snap[string(metrics.PredictionRequestsTotal)])
	assert.Equal(t, int64(1), snap[string(metrics.PredictionSuccessTotal)])
}

func TestClientPredict_ServerErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "error field", status: http.StatusInternalServerError, body: `{"error":"model unavailable"}`, want: "model unavailable"},
		{name: "message preferred", status: http.StatusBadRequest, body: `{"message":"bad input","error":"ignored"}`, want: "bad input"},
		{name: "json without known fields", status: http.StatusBadRequest, body: `{"detail":"missing field"}`, want: `{"detail":"missing field"}`},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream exploded", want: "upstream exploded"},
		{name: "empty body", status: http.StatusServiceUnavailable, body: "", want: "Request failed with status 503"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, reg, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Predict(context.Background(), SubsystemEngine, FeatureVector{"sensor_4": 48.5})
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
			assert.Equal(t, KindServer, KindOf(err))

			var pe *Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.status, pe.StatusCode)
			assert.Equal(t, int64(1), reg.Value(metrics.PredictionServerErrTotal))
		})
	}
}

func TestClientPredict_ContractViolations(t *testing.T) {
	bodies := map[string]string{
		"missing":  `{"units":"cycles"}`,
		"string":   `{"predicted_rul":"120"}`,
		"null":     `{"predicted_rul":null}`,
		"not json": `<html>ok</html>`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client, reg, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := client.Predict(context.Background(), SubsystemHydraulics, FeatureVector{"CE_mean": 87})
			require.Error(t, err)
			assert.Equal(t, MsgContract, err.Error())
			assert.Equal(t, KindContract, KindOf(err))
			assert.Equal(t, int64(1), reg.Value(metrics.ContractViolationsTotal))
		})
	}
}

func TestClientPredict_Timeout(t *testing.T) {
	client, reg, logger := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := client.Predict(context.Background(), SubsystemEngine, FeatureVector{"sensor_4": 48.5})

	require.Error(t, err)
	assert.Equal(t, "Request timed out. Please retry.", err.Error())
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), reg.Value(metrics.PredictionTimeoutsTotal))

	entries := logger.GetLast(1)
	require.Len(t, entries, 1)
	assert.Equal(t, logs.WARN, entries[0].Level)
	assert.Contains(t, entries[0].Message, "prediction failed")
}

func TestClientPredict_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	reg := metrics.NewRegistry()
	client := NewClient(url, logs.NewLogger(10, logs.DEBUG), reg)

	_, err := client.Predict(context.Background(), SubsystemEngine, FeatureVector{"sensor_4": 48.5})
	require.Error(t, err)
	assert.Equal(t, MsgTransport, err.Error())
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, int64(1), reg.Value(metrics.PredictionTransportTotal))
}

func TestClientPredict_NoRetries(t *testing.T) {
	var calls int32
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Predict(context.Background(), SubsystemEngine, FeatureVector{"sensor_4": 1})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientEndpoint(t *testing.T) {
	client := NewClient("http://127.0.0.1:5000///", logs.NewLogger(1, logs.DEBUG), metrics.NewRegistry())
	assert.Equal(t, "http://127.0.0.1:5000/predict/hydraulics", client.Endpoint(SubsystemHydraulics))
	assert.Equal(t, DefaultTimeout, client.Timeout())
}
