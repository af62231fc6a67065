// Package apierror defines the typed failures returned to platform apps.
//
// Every failure an invocation can produce is an *Error carrying a Kind.
// Kinds are stable strings and form part of the public app contract.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a failure category.
type Kind string

const (
	KindModuleNotFound       Kind = "module_not_found"
	KindMethodNotFound       Kind = "method_not_found"
	KindPermissionDenied     Kind = "permission_denied"
	KindValidation           Kind = "validation_error"
	KindInvalidAsset         Kind = "invalid_asset"
	KindUnsupportedOperation Kind = "unsupported_operation"
	KindEngine               Kind = "engine_error"

	// KindInternal covers host-side faults (grant store down, module panic).
	KindInternal Kind = "internal_error"
)

// Error is a structured invocation failure.
type Error struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Module     string `json:"module,omitempty"`
	Method     string `json:"method,omitempty"`
	Field      string `json:"field,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Permission string `json:"permission,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// StatusCode maps the kind onto an HTTP status for the admin surface.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindModuleNotFound, KindMethodNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindValidation, KindInvalidAsset:
		return http.StatusUnprocessableEntity
	case KindUnsupportedOperation:
		return http.StatusNotImplemented
	case KindEngine:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Builder provides a fluent API for building Error values.
type Builder struct {
	err Error
}

// New starts a builder for the given kind and message.
func New(kind Kind, message string) *Builder {
	return &Builder{err: Error{Kind: kind, Message: message}}
}

// Newf starts a builder with a formatted message.
func Newf(kind Kind, format string, args ...any) *Builder {
	return New(kind, fmt.Sprintf(format, args...))
}

// Module sets the addressed module.
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// Method sets the addressed method.
func (b *Builder) Method(name string) *Builder {
	b.err.Method = name
	return b
}

// Field sets the offending request field.
func (b *Builder) Field(name string) *Builder {
	b.err.Field = name
	return b
}

// Constraint sets the expected constraint the field violated.
func (b *Builder) Constraint(c string) *Builder {
	b.err.Constraint = c
	return b
}

// Permission sets the missing permission.
func (b *Builder) Permission(p string) *Builder {
	b.err.Permission = p
	return b
}

// Cause attaches an underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.cause = err
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// Common constructors

// ModuleNotFound reports an unknown module.
func ModuleNotFound(module string) *Error {
	return Newf(KindModuleNotFound, "module %q does not exist", module).Module(module).Build()
}

// MethodNotFound reports an unknown method on a known module.
func MethodNotFound(module, method string) *Error {
	return Newf(KindMethodNotFound, "method %q does not exist on module %q", method, module).
		Module(module).
		Method(method).
		Build()
}

// PermissionDenied names the first missing permission.
func PermissionDenied(module, permission string) *Error {
	return Newf(KindPermissionDenied, "app lacks required permission %q", permission).
		Module(module).
		Permission(permission).
		Build()
}

// Validation reports a malformed or missing request field.
func Validation(field, constraint, message string) *Error {
	return New(KindValidation, message).Field(field).Constraint(constraint).Build()
}

// InvalidAsset reports an asset outside the accepted media category.
func InvalidAsset(field, message string) *Error {
	return New(KindInvalidAsset, message).Field(field).Build()
}

// UnsupportedOperation reports a variant or value the translation layer cannot map.
func UnsupportedOperation(message string) *Error {
	return New(KindUnsupportedOperation, message).Build()
}

// Engine wraps a rejection from the internal engine, preserving its message.
func Engine(err error) *Error {
	if err == nil {
		return New(KindEngine, "engine rejected the request").Build()
	}
	return New(KindEngine, err.Error()).Cause(err).Build()
}

// Internal wraps a host-side fault.
func Internal(message string, err error) *Error {
	return New(KindInternal, message).Cause(err).Build()
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
