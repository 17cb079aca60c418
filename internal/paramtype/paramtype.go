// Package paramtype implements the typed parameter model and validator
// shared by device classes, plugin configuration, and action types: named
// typed slots (ParamType) with optional range/enum constraints and
// defaults, concrete (name, value) pairs (Param), and a Validator that
// checks a ParamList against its governing ParamType list, filling in
// defaults on request.
package paramtype

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/homectl/devicecore/internal/deviceerr"
)

// ValueType is the type of value a ParamType's slot holds.
type ValueType int

const (
	Uuid ValueType = iota
	String
	StringList
	Int
	Uint
	Double
	Bool
	Color
	Time
	Object
	Variant
)

// String returns a lowercase name for the value type, used in error messages.
func (vt ValueType) String() string {
	switch vt {
	case Uuid:
		return "uuid"
	case String:
		return "string"
	case StringList:
		return "stringlist"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Double:
		return "double"
	case Bool:
		return "bool"
	case Color:
		return "color"
	case Time:
		return "time"
	case Object:
		return "object"
	case Variant:
		return "variant"
	default:
		return "unknown"
	}
}

// ParamType is a named typed slot with optional constraints.
type ParamType struct {
	Name  string
	Type  ValueType

	// MinValue/MaxValue apply only to numeric types (Int, Uint, Double).
	// nil means unbounded.
	MinValue *float64
	MaxValue *float64

	// AllowedValues, if non-empty, restricts the value to one of this set.
	AllowedValues []interface{}

	// DefaultValue, if non-nil, is inserted during VerifyParams when the
	// caller omits this parameter and requireAll is set.
	DefaultValue interface{}
}

// Param is a concrete (name, value) pair. Its Name must match exactly one
// ParamType of the governing list.
type Param struct {
	Name  string
	Value interface{}
}

// ParamList is an ordered list of Params.
type ParamList []Param

// ByName returns the Param with the given name and whether it was found.
func (l ParamList) ByName(name string) (Param, bool) {
	for _, p := range l {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// findType returns the ParamType with the given name and whether it was found.
func findType(types []ParamType, name string) (ParamType, bool) {
	for _, t := range types {
		if t.Name == name {
			return t, true
		}
	}
	return ParamType{}, false
}

// Validator checks ParamLists against their governing ParamType list.
// It holds no state; its methods are pure functions over their arguments.
type Validator struct{}

// VerifyParams checks every param in params against paramTypes. Each param
// must name a known ParamType and pass VerifyParam against it. When
// requireAll is set, every ParamType not present in params must either have
// a DefaultValue (which is inserted) or the call fails with
// deviceerr.ErrMissingParameter.
//
// The first mismatch found is returned; there is no partial repair — a
// caller that receives an error must not persist the returned list.
//
// Default-fill is a write-back: the returned ParamList includes inserted
// defaults, since setup params are persisted in their final form.
func (Validator) VerifyParams(paramTypes []ParamType, params ParamList, requireAll bool) (ParamList, error) {
	v := Validator{}
	filled := make(ParamList, 0, len(paramTypes))

	for _, p := range params {
		pt, ok := findType(paramTypes, p.Name)
		if !ok {
			return nil, deviceerr.Wrap(deviceerr.CategoryInput, "VerifyParams", fmt.Errorf("%w: %q", deviceerr.ErrInvalidParameter, p.Name))
		}
		checked, err := v.VerifyParam(pt, p)
		if err != nil {
			return nil, err
		}
		filled = append(filled, checked)
	}

	if requireAll {
		for _, pt := range paramTypes {
			if _, ok := params.ByName(pt.Name); ok {
				continue
			}
			if pt.DefaultValue == nil {
				return nil, deviceerr.Wrap(deviceerr.CategoryInput, "VerifyParams", fmt.Errorf("%w: %q", deviceerr.ErrMissingParameter, pt.Name))
			}
			filled = append(filled, Param{Name: pt.Name, Value: pt.DefaultValue})
		}
	}

	return filled, nil
}

// VerifyParam checks a single param against its ParamType: the value must
// convert to the declared ValueType, satisfy any min/max range, and match
// one of AllowedValues if that set is non-empty. It returns the param with
// its value normalised to the canonical Go representation of its ValueType.
func (Validator) VerifyParam(paramType ParamType, param Param) (Param, error) {
	normalised, err := convert(paramType.Type, param.Value)
	if err != nil {
		return Param{}, deviceerr.Wrap(deviceerr.CategoryInput, "VerifyParam", fmt.Errorf("%w: param %q: %v", deviceerr.ErrInvalidParameter, param.Name, err))
	}

	if paramType.MinValue != nil || paramType.MaxValue != nil {
		f, ok := asFloat(normalised)
		if !ok {
			return Param{}, deviceerr.Wrap(deviceerr.CategoryInput, "VerifyParam", fmt.Errorf("%w: param %q: range constraint on non-numeric type", deviceerr.ErrInvalidParameter, param.Name))
		}
		if paramType.MinValue != nil && f < *paramType.MinValue {
			return Param{}, deviceerr.Wrap(deviceerr.CategoryInput, "VerifyParam", fmt.Errorf("%w: param %q: %v below minimum %v", deviceerr.ErrInvalidParameter, param.Name, f, *paramType.MinValue))
		}
		if paramType.MaxValue != nil && f > *paramType.MaxValue {
			return Param{}, deviceerr.Wrap(deviceerr.CategoryInput, "VerifyParam", fmt.Errorf("%w: param %q: %v above maximum %v", deviceerr.ErrInvalidParameter, param.Name, f, *paramType.MaxValue))
		}
	}

	if len(paramType.AllowedValues) > 0 {
		matched := false
		for _, allowed := range paramType.AllowedValues {
			if allowed == normalised {
				matched = true
				break
			}
		}
		if !matched {
			return Param{}, deviceerr.Wrap(deviceerr.CategoryInput, "VerifyParam", fmt.Errorf("%w: param %q: %v not in allowed values", deviceerr.ErrInvalidParameter, param.Name, normalised))
		}
	}

	return Param{Name: param.Name, Value: normalised}, nil
}

// convert normalises v to the canonical Go representation of vt, or returns
// an error if v cannot be represented as vt.
func convert(vt ValueType, v interface{}) (interface{}, error) {
	switch vt {
	case Uuid:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string-encoded uuid, got %T", v)
		}
		if _, err := uuid.Parse(s); err != nil {
			return nil, fmt.Errorf("invalid uuid: %w", err)
		}
		return s, nil
	case String, Color:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		return s, nil
	case StringList:
		switch list := v.(type) {
		case []string:
			return list, nil
		case []interface{}:
			out := make([]string, len(list))
			for i, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("want []string, element %d is %T", i, item)
				}
				out[i] = s
			}
			return out, nil
		default:
			return nil, fmt.Errorf("want []string, got %T", v)
		}
	case Int:
		i, ok := asInt64(v)
		if !ok {
			return nil, fmt.Errorf("want int, got %T", v)
		}
		return i, nil
	case Uint:
		i, ok := asInt64(v)
		if !ok || i < 0 {
			return nil, fmt.Errorf("want uint, got %v", v)
		}
		return uint64(i), nil
	case Double:
		f, ok := asFloat(v)
		if !ok {
			return nil, fmt.Errorf("want double, got %T", v)
		}
		return f, nil
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", v)
		}
		return b, nil
	case Time:
		switch t := v.(type) {
		case string:
			return t, nil
		default:
			return nil, fmt.Errorf("want RFC3339 time string, got %T", v)
		}
	case Object, Variant:
		return v, nil
	default:
		return nil, fmt.Errorf("unknown value type %v", vt)
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
