package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Arguments holds tool arguments that passed schema validation: every declared
// field is present (defaults applied) and typed as declared. Values are only
// produced by Validate.
type Arguments struct {
	values map[string]any
}

// Has reports whether name was supplied or defaulted.
func (a Arguments) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// String returns a string field, "" when absent.
func (a Arguments) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// Int64 returns an integer field, 0 when absent.
func (a Arguments) Int64(name string) int64 {
	n, _ := a.values[name].(int64)
	return n
}

// Float64 returns a number field, 0 when absent.
func (a Arguments) Float64(name string) float64 {
	f, _ := a.values[name].(float64)
	return f
}

// Map returns a copy of the validated values.
func (a Arguments) Map() map[string]any {
	out := make(map[string]any, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Validate matches raw against schema. Every offending field is reported, in
// schema order. Keys the schema does not declare are dropped.
func Validate(schema Schema, raw map[string]any) (Arguments, error) {
	values := make(map[string]any, len(schema))
	var problems []FieldError

	for _, f := range schema {
		v, present := raw[f.Name]
		if !present {
			if f.Required {
				problems = append(problems, FieldError{Field: f.Name, Reason: "required field is missing"})
				continue
			}
			if f.Default != nil {
				def, _ := coerce(f, f.Default)
				values[f.Name] = def
			}
			continue
		}

		coerced, err := coerce(f, v)
		if err != nil {
			problems = append(problems, FieldError{Field: f.Name, Reason: err.Error()})
			continue
		}
		values[f.Name] = coerced
	}

	if len(problems) > 0 {
		return Arguments{}, &InvalidArgumentsError{Fields: problems}
	}
	return Arguments{values: values}, nil
}

// DecodeArguments parses a JSON object of arguments, keeping numbers exact.
// Empty input and a literal null decode to an empty object.
func DecodeArguments(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, &InvalidArgumentsError{Fields: []FieldError{{Reason: fmt.Sprintf("malformed JSON arguments: %v", err)}}}
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, &InvalidArgumentsError{Fields: []FieldError{{Reason: fmt.Sprintf("arguments must be a JSON object, got %s", jsonKind(decoded))}}}
	}
	return obj, nil
}

func coerce(f Field, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("expected %s but got null", f.Type)
	}

	switch f.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string but got %s", jsonKind(value))
		}
		if f.NonEmpty && s == "" {
			return nil, fmt.Errorf("must not be empty")
		}
		return s, nil
	case TypeInteger:
		n, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		if err := checkBounds(f, float64(n)); err != nil {
			return nil, err
		}
		return n, nil
	case TypeNumber:
		num, ok := toFloat64(value)
		if !ok {
			return nil, fmt.Errorf("expected number but got %s", jsonKind(value))
		}
		if err := checkBounds(f, num); err != nil {
			return nil, err
		}
		return num, nil
	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean but got %s", jsonKind(value))
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported schema type %q", f.Type)
	}
}

func checkBounds(f Field, num float64) error {
	if f.Minimum != nil && num < *f.Minimum {
		return fmt.Errorf("value %v is less than minimum %v", num, *f.Minimum)
	}
	if f.Maximum != nil && num > *f.Maximum {
		return fmt.Errorf("value %v exceeds maximum %v", num, *f.Maximum)
	}
	return nil
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected integer but got %q", v.String())
		}
		return floatToInt64(f)
	default:
		return 0, fmt.Errorf("expected integer but got %s", jsonKind(value))
	}
}

func uintToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("integer %d overflows int64", v)
	}
	return int64(v), nil
}

func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return 0, fmt.Errorf("expected integer but got %s", strconv.FormatFloat(f, 'f', -1, 64))
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("integer %s overflows int64", strconv.FormatFloat(f, 'f', -1, 64))
	}
	return int64(f), nil
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// jsonKind names a decoded value the way a JSON caller would recognise it.
func jsonKind(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}
