// Package apperr defines the application error kinds surfaced to API
// callers: validation failures, missing entities, relational constraint
// violations, and rejected imports.
package apperr

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConstraint Kind = "constraint"
)

// Error carries enough context (entity type, id, field) for the caller to
// render a user-facing message.
type Error struct {
	Kind   Kind
	Entity string
	ID     string
	Field  string
	Msg    string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Entity)
	if e.ID != "" {
		fmt.Fprintf(&b, " %s", e.ID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Msg: "not found"}
}

func Validation(entity, field, msg string) *Error {
	return &Error{Kind: KindValidation, Entity: entity, Field: field, Msg: msg}
}

func Constraint(entity, id, msg string) *Error {
	return &Error{Kind: KindConstraint, Entity: entity, ID: id, Msg: msg}
}

// RecordError identifies one offending record in an import document.
type RecordError struct {
	Entity  string `json:"entity"`
	ID      string `json:"id,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportError rejects an import document as a whole, enumerating every
// offending record found during validation.
type ImportError struct {
	Records []RecordError
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import rejected: %d invalid record(s)", len(e.Records))
}

// Add appends a record error and returns the receiver for chaining during
// validation sweeps.
func (e *ImportError) Add(entity, id, field, msg string) {
	e.Records = append(e.Records, RecordError{Entity: entity, ID: id, Field: field, Message: msg})
}

// OrNil returns nil when no record errors were collected.
func (e *ImportError) OrNil() error {
	if len(e.Records) == 0 {
		return nil
	}
	return e
}
