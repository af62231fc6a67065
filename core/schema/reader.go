// Package schema reads app-supplied argument objects into typed fields.
//
// Arguments arrive as decoded JSON objects (map[string]any). A Reader pulls
// fields one at a time and records the first failure as a validation_error
// naming the field and the constraint it broke. Fields the caller never
// reads are ignored, so apps built against newer schemas keep working.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/artpar/apphost/pkg/apierror"
)

// Constraint names reported in validation errors.
const (
	ConstraintObject   = "object"
	ConstraintRequired = "required"
	ConstraintNotEmpty = "not_empty"
	ConstraintString   = "string"
	ConstraintBool     = "bool"
	ConstraintInteger  = "integer"
	ConstraintOneOf    = "one_of"
)

// Object is a decoded argument object.
type Object = map[string]any

// Reader reads typed fields from an argument object.
// After the first failure every read returns the zero value.
type Reader struct {
	obj Object
	err *apierror.Error
}

// NewReader wraps raw arguments. Anything other than an object fails.
func NewReader(raw any) *Reader {
	switch v := raw.(type) {
	case map[string]any:
		return &Reader{obj: v}
	case json.RawMessage:
		return decodeReader(v)
	case []byte:
		return decodeReader(v)
	default:
		return &Reader{err: apierror.Validation("", ConstraintObject, "arguments must be an object")}
	}
}

func decodeReader(data []byte) *Reader {
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return &Reader{err: apierror.Validation("", ConstraintObject, "arguments must be an object")}
	}
	return &Reader{obj: obj}
}

// Err returns the first failure, or nil.
func (r *Reader) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Has reports whether field is present and not null.
func (r *Reader) Has(field string) bool {
	if r.err != nil {
		return false
	}
	v, ok := r.obj[field]
	return ok && v != nil
}

func (r *Reader) fail(field, constraint, format string, args ...any) {
	if r.err != nil {
		return
	}
	r.err = apierror.Validation(field, constraint, fmt.Sprintf(format, args...))
}

func (r *Reader) lookup(field string) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.obj[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// RequiredString reads a string field that must be present.
func (r *Reader) RequiredString(field string) string {
	v, ok := r.lookup(field)
	if !ok {
		r.fail(field, ConstraintRequired, "%s is required", field)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, ConstraintString, "%s must be a string", field)
		return ""
	}
	return s
}

// NonEmptyString reads a required string field that must not be blank.
func (r *Reader) NonEmptyString(field string) string {
	s := r.RequiredString(field)
	if r.err == nil && strings.TrimSpace(s) == "" {
		r.fail(field, ConstraintNotEmpty, "%s must not be empty", field)
	}
	return s
}

// OptionalString reads a string field; nil when absent.
func (r *Reader) OptionalString(field string) *string {
	v, ok := r.lookup(field)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, ConstraintString, "%s must be a string", field)
		return nil
	}
	return &s
}

// OptionalBool reads a boolean field; nil when absent.
func (r *Reader) OptionalBool(field string) *bool {
	v, ok := r.lookup(field)
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(field, ConstraintBool, "%s must be a boolean", field)
		return nil
	}
	return &b
}

// OptionalInt reads an integer field; nil when absent.
// Integral JSON numbers are accepted in any notation (1000, 1000.0, 1e3);
// a fractional part or a value outside int64 is rejected.
func (r *Reader) OptionalInt(field string) *int64 {
	v, ok := r.lookup(field)
	if !ok {
		return nil
	}
	n, ok := toInt64(v)
	if !ok {
		r.fail(field, ConstraintInteger, "%s must be an integer", field)
		return nil
	}
	return &n
}

// OptionalEnum reads a string field restricted to allowed values; nil when absent.
func (r *Reader) OptionalEnum(field string, allowed ...string) *string {
	s := r.OptionalString(field)
	if s == nil {
		return nil
	}
	for _, a := range allowed {
		if *s == a {
			return s
		}
	}
	r.fail(field, ConstraintOneOf, "%s must be one of: %s", field, strings.Join(allowed, ", "))
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return floatToInt64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		// Integral values written as 1000.0 or 1e3.
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	default:
		return 0, false
	}
}

// floatToInt64 accepts integral values inside [-2^63, 2^63).
// float64(math.MaxInt64) rounds up to 2^63, hence the >= bound.
func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
