package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Subsystem identifies a prediction endpoint.
type Subsystem string

const (
	SubsystemEngine      Subsystem = "engine"
	SubsystemHydraulics  Subsystem = "hydraulics"
	SubsystemLandingGear Subsystem = "landing-gear"
)

// ParseSubsystem accepts only the known subsystem ids.
func ParseSubsystem(s string) (Subsystem, bool) {
	switch Subsystem(s) {
	case SubsystemEngine, SubsystemHydraulics, SubsystemLandingGear:
		return Subsystem(s), true
	}
	return "", false
}

// Field declares one numeric input of a subsystem.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Unit        string `json:"unit"`
	Placeholder string `json:"placeholder"`
}

// FeatureVector is the request body: feature name to value.
type FeatureVector map[string]float64

// BuildFeatureVector parses form values for every declared field. The first
// field, in declaration order, that is blank or not a finite number aborts
// the build with a validation error naming it.
func BuildFeatureVector(fields []Field, form map[string]string) (FeatureVector, error) {
	fv := make(FeatureVector, len(fields))
	for _, f := range fields {
		v, ok := parseNumber(form[f.Name])
		if !ok {
			return nil, validationError(f)
		}
		fv[f.Name] = v
	}
	return fv, nil
}

func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Result is a successful prediction.
type Result struct {
	PredictedRUL float64 `json:"predicted_rul"`
	Units        string  `json:"units,omitempty"`
	ModelVersion string  `json:"model_version,omitempty"`
}

var errMissingRUL = errors.New("predicted_rul missing or not a number")

// DecodeResult validates a success body. predicted_rul must be a JSON
// number; units and model_version are kept only when they are strings.
func DecodeResult(body []byte) (Result, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, contractError(fmt.Errorf("decode response: %w", err))
	}

	field, ok := raw["predicted_rul"]
	if !ok {
		return Result{}, contractError(errMissingRUL)
	}
	var rul *float64
	if err := json.Unmarshal(field, &rul); err != nil || rul == nil {
		return Result{}, contractError(errMissingRUL)
	}

	res := Result{PredictedRUL: *rul}
	res.Units = optionalString(raw["units"])
	res.ModelVersion = optionalString(raw["model_version"])
	return res, nil
}

func optionalString(msg json.RawMessage) string {
	if msg == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return ""
	}
	return s
}

// serverMessage picks the operator-facing text of a non-success body:
// "message", then "error", then the raw text.
func serverMessage(body []byte) string {
	text := string(body)
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var payload struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return text
	}
	if s, ok := payload.Message.(string); ok && s != "" {
		return s
	}
	if s, ok := payload.Error.(string); ok && s != "" {
		return s
	}
	return text
}
