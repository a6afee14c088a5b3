package model

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// CheckKeys fails with a ValidationError naming every key of params that is
// not in valid. Keys are reported sorted.
func CheckKeys(params map[string]any, valid []string) error {
	allowed := make(map[string]struct{}, len(valid))
	for _, k := range valid {
		allowed[k] = struct{}{}
	}
	var invalid []string
	for k := range params {
		if _, ok := allowed[k]; !ok {
			invalid = append(invalid, k)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return errors.NewInvalidKeysError(invalid)
}

// ParamBool reads a boolean hyperparameter.
func ParamBool(params map[string]any, key string) (bool, bool, error) {
	v, ok := params[key]
	if !ok {
		return false, false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, true, errors.NewValidationError(key, "must be a boolean", v)
	}
	return b, true, nil
}

// ParamInt reads an integer hyperparameter. Values decoded from JSON or
// YAML as float64 are accepted when they are integral.
func ParamInt(params map[string]any, key string) (int, bool, error) {
	v, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), true, nil
		}
	}
	return 0, true, errors.NewValidationError(key, "must be an integer", v)
}

// ParamFloat reads a numeric hyperparameter.
func ParamFloat(params map[string]any, key string) (float64, bool, error) {
	v, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	}
	return 0, true, errors.NewValidationError(key, "must be a number", v)
}

// ParamString reads a string hyperparameter.
func ParamString(params map[string]any, key string) (string, bool, error) {
	v, ok := params[key]
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", true, errors.NewValidationError(key, "must be a string", v)
	}
	return s, true, nil
}
