package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gearFields = []Field{
	{Name: "load_during_landing", Label: "Load During Landing", Unit: "kN"},
	{Name: "tire_pressure", Label: "Tire Pressure", Unit: "psi"},
	{Name: "speed_during_landing", Label: "Landing Speed", Unit: "kts"},
}

func TestBuildFeatureVector(t *testing.T) {
	t.Run("all fields valid", func(t *testing.T) {
		fv, err := BuildFeatureVector(gearFields, map[string]string{
			"load_during_landing":  " 215 ",
			"tire_pressure":        "2.1e2",
			"speed_during_landing": "-145.5",
			"ignored_extra":        "abc",
		})
		require.NoError(t, err)
		assert.Equal(t, FeatureVector{
			"load_during_landing":  215,
			"tire_pressure":        210,
			"speed_during_landing": -145.5,
		}, fv)
	})

	t.Run("first invalid field is reported", func(t *testing.T) {
		_, err := BuildFeatureVector(gearFields, map[string]string{
			"load_during_landing":  "215",
			"tire_pressure":        "high",
			"speed_during_landing": "",
		})
		require.Error(t, err)
		assert.Equal(t, "Provide a numeric value for Tire Pressure.", err.Error())

		var pe *Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, KindValidation, pe.Kind)
		assert.Equal(t, "tire_pressure", pe.Field)
	})

	for _, raw := range []string{"", "   ", "NaN", "Inf", "-infinity", "1,5", "12abc"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := BuildFeatureVector(gearFields[:1], map[string]string{"load_during_landing": raw})
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}

	t.Run("missing key", func(t *testing.T) {
		_, err := BuildFeatureVector(gearFields, map[string]string{})
		require.Error(t, err)
		assert.Equal(t, "Provide a numeric value for Load During Landing.", err.Error())
	})
}

func TestDecodeResult(t *testing.T) {
	res, err := DecodeResult([]byte(`{"predicted_rul": 98, "units": 7, "model_version": "agg_best_model", "extra": true}`))
	require.NoError(t, err)
	assert.Equal(t, 98.0, res.PredictedRUL)
	assert.Empty(t, res.Units, "non-string units are dropped")
	assert.Equal(t, "agg_best_model", res.ModelVersion)

	_, err = DecodeResult([]byte(`[1,2]`))
	assert.Equal(t, KindContract, KindOf(err))
}

func TestParseSubsystem(t *testing.T) {
	s, ok := ParseSubsystem("landing-gear")
	assert.True(t, ok)
	assert.Equal(t, SubsystemLandingGear, s)

	_, ok = ParseSubsystem("landing_gear")
	assert.False(t, ok)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(assert.AnError))
	assert.Equal(t, KindTimeout, KindOf(timeoutError(nil)))
}
