// Package mapper is the root package of the Mapper query compiler and SQL
// projection planner. It re-exports the shared error vocabulary used by the
// query, predicate, mapping, sql, planner, stage, cursor and interp
// subpackages; the planning and interpretation logic itself lives in those
// subpackages.
package mapper

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the error kinds described in spec §7.
var (
	// ErrNoMapping is returned when no FieldMapping or ObjectMapping can be
	// resolved for a path/type/name triple. Mapping errors are fatal.
	ErrNoMapping = errors.New("mapper: no mapping found")

	// ErrJoinCycle is returned when topological join ordering makes no
	// progress in a pass; the mapping's join graph is inconsistent.
	ErrJoinCycle = errors.New("mapper: join topology is inconsistent (cycle or missing parent)")

	// ErrAmbiguousRoot is returned when root-table selection (spec §4.E
	// step 6) cannot identify a single driving table.
	ErrAmbiguousRoot = errors.New("mapper: cannot determine a unique root table")

	// ErrStagingCycle is returned if the staging elaborator detects a
	// cycle it cannot break by inserting a staging boundary.
	ErrStagingCycle = errors.New("mapper: staging elaboration did not terminate")

	// ErrFailedJoinLeaf is returned when a non-nullable scalar's only
	// source cell is FailedJoin: a planning bug, per spec §7.5.
	ErrFailedJoinLeaf = errors.New("mapper: non-nullable leaf sourced from a failed outer join")

	// ErrUncompilablePredicate is returned when a predicate's paths or
	// encoders cannot be resolved to a Fragment. Per the open-question
	// policy recorded in DESIGN.md, this is a fail-fast error rather than
	// a silently dropped WHERE clause.
	ErrUncompilablePredicate = errors.New("mapper: predicate could not be compiled to SQL")
)

// MappingError reports a fatal mapping-metadata lookup failure (spec §7.1).
type MappingError struct {
	Type string // the GraphQL type name being resolved
	Name string // the field or attribute name, if any
	Err  error
}

func (e *MappingError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("mapper: mapping: %s.%s: %v", e.Type, e.Name, e.Err)
	}
	return fmt.Sprintf("mapper: mapping: %s: %v", e.Type, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

func (e *MappingError) Is(target error) bool { return target == ErrNoMapping && errors.Is(e.Err, ErrNoMapping) }

// NewMappingError returns a MappingError wrapping ErrNoMapping.
func NewMappingError(typeName, name string) *MappingError {
	return &MappingError{Type: typeName, Name: name, Err: ErrNoMapping}
}

// PlanError reports a fatal failure while building a MappedQuery
// (spec §4.E / §7.1): inconsistent join topology, ambiguous root table,
// undecodable column, uncompilable predicate.
type PlanError struct {
	Path []string // the query path stack at the point of failure
	Err  error
}

func (e *PlanError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("mapper: plan: %v", e.Err)
	}
	return fmt.Sprintf("mapper: plan: at %s: %v", strings.Join(e.Path, "."), e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }

// NewPlanError wraps err with the current path stack.
func NewPlanError(path []string, err error) *PlanError {
	return &PlanError{Path: append([]string(nil), path...), Err: err}
}

// CursorError reports a recoverable type error attached to a cursor path
// (spec §7.2): narrowing to an unrepresented type, treating a non-leaf as a
// leaf, treating a leaf as a list.
type CursorError struct {
	Path []string
	Err  error
}

func (e *CursorError) Error() string {
	return fmt.Sprintf("mapper: cursor: at %s: %v", strings.Join(e.Path, "."), e.Err)
}

func (e *CursorError) Unwrap() error { return e.Err }

// NewCursorError wraps err with the cursor's current path stack.
func NewCursorError(path []string, err error) *CursorError {
	return &CursorError{Path: append([]string(nil), path...), Err: err}
}

// AggregateError collects independent errors from a run that combines
// results monoidally (spec §7's "errors combine monoidally"; spec §5
// "runs as many independent sub-queries as possible before failing").
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "mapper: no errors"
	case 1:
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("mapper: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap supports errors.Is/As traversal over every collected error (Go 1.20+).
func (e *AggregateError) Unwrap() []error { return e.Errors }

// NewAggregateError returns a combined error for the non-nil errs, or nil if
// none are non-nil. A single non-nil error is returned unwrapped.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return &AggregateError{Errors: filtered}
	}
}
