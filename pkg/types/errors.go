// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ParseError reports a matched source record that is malformed or lacks an
// expected field. It aborts the ETL run.
type ParseError struct {
	Source string
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s", e.Source)
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConflictWarning records two source records that disagree on an attribute
// of the same key. The later value wins.
type ConflictWarning struct {
	Entity string `json:"entity" yaml:"entity"`
	Key    string `json:"key" yaml:"key"`
	Field  string `json:"field" yaml:"field"`
	Old    string `json:"old" yaml:"old"`
	New    string `json:"new" yaml:"new"`
	Source string `json:"source" yaml:"source"`
}

func (w ConflictWarning) String() string {
	return fmt.Sprintf("%s %q: %s changed from %s to %s (%s)", w.Entity, w.Key, w.Field, w.Old, w.New, w.Source)
}

// PersistenceError reports a storage write or transaction failure. Key
// identifies the offending record when one is known.
type PersistenceError struct {
	Op    string
	Table string
	Key   string
	Err   error
}

func (e *PersistenceError) Error() string {
	msg := e.Op
	if e.Table != "" {
		msg += " " + e.Table
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" %q", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotFoundError reports a lookup of an entity that does not exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// ValidationError reports operator input outside the accepted range.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
