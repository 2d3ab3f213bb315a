package domain

import (
	"errors"
	"strings"
)

// Error kinds. Callers match them with errors.Is; infrastructure failures never
// wrap one of these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Violation is one broken field rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every violated rule of a command or entity.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Violations accumulates rule failures; the zero value is ready to use.
type Violations struct {
	list []Violation
}

func (v *Violations) Add(field, message string) {
	v.list = append(v.list, Violation{Field: field, Message: message})
}

// Merge adds the violations of err when it is a *ValidationError, prefixing
// every field with prefix.
func (v *Violations) Merge(prefix string, err error) {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return
	}
	for _, item := range verr.Violations {
		field := item.Field
		if prefix != "" {
			field = prefix + "." + field
		}
		v.Add(field, item.Message)
	}
}

func (v *Violations) Len() int { return len(v.list) }

// Err returns nil when nothing was collected.
func (v *Violations) Err() error {
	if len(v.list) == 0 {
		return nil
	}
	out := make([]Violation, len(v.list))
	copy(out, v.list)
	return &ValidationError{Violations: out}
}
