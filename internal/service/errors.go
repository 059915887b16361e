package service

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/oops"

	"github.com/iliyamo/contenthub/internal/repository"
)

// Error codes carried by every error the services return to handlers.
const (
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_FAILED"
)

// Context keys on coded errors.  FieldsKey holds validation messages,
// MessageKey the text that may be shown to clients.
const (
	FieldsKey  = "fields"
	MessageKey = "message"
)

// coded builds an error whose message is safe to show to clients.  kv
// adds further context pairs.
func coded(code, msg string, kv ...any) error {
	return oops.Code(code).With(append([]any{MessageKey, msg}, kv...)...).Errorf("%s", msg)
}

func errConflict(format string, args ...any) error {
	return coded(CodeConflict, fmt.Sprintf(format, args...))
}

func errUnauthorized(format string, args ...any) error {
	return coded(CodeUnauthorized, fmt.Sprintf(format, args...))
}

func errForbidden(format string, args ...any) error {
	return coded(CodeForbidden, fmt.Sprintf(format, args...))
}

func errNotFound(entity, id string) error {
	return coded(CodeNotFound, entity+" not found", "entity", entity, "id", id)
}

// notFoundOr maps repository.ErrNotFound to a NOT_FOUND error and wraps
// everything else.
func notFoundOr(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return errNotFound(entity, id)
	}
	return oops.With("entity", entity, "id", id).Wrap(err)
}

// FieldErrors collects validation messages per field.
type FieldErrors map[string][]string

// Add records msg for field.
func (f FieldErrors) Add(field, msg string) { f[field] = append(f[field], msg) }

// Check adds msg when cond is false.
func (f FieldErrors) Check(cond bool, field, msg string) {
	if !cond {
		f.Add(field, msg)
	}
}

// Err returns a VALIDATION_FAILED error or nil when nothing was added.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return coded(CodeValidation, "validation failed", FieldsKey, map[string][]string(f))
}

func errValidation(field, msg string) error {
	fe := FieldErrors{}
	fe.Add(field, msg)
	return fe.Err()
}

// ErrorCode returns the code attached to err, or "" for plain errors.
func ErrorCode(err error) string {
	o, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := any(o.Code()).(string)
	return code
}

// ErrorMessage returns the client-facing message of a coded error, or "".
func ErrorMessage(err error) string {
	o, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	msg, _ := o.Context()[MessageKey].(string)
	return msg
}

// ValidationFields returns the field messages of a VALIDATION_FAILED error.
func ValidationFields(err error) map[string][]string {
	o, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	fields, _ := o.Context()[FieldsKey].(map[string][]string)
	return fields
}

// FieldNames lists the fields of a validation error in sorted order.
func FieldNames(err error) []string {
	fields := ValidationFields(err)
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
