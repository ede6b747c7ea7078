// Package errs defines the error taxonomy shared by every build stage.
// All of these are fatal: the first one returned aborts the whole build
// and no partial output is written.
package errs

import "fmt"

// SchemaError reports a malformed or missing piece of the input
// document, detected before any planning starts.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Field, e.Reason)
}

// RangeError reports a position outside its valid interval, either
// before or after grid snapping.
type RangeError struct {
	Index int // layout index of the offending event, -1 if not event-bound
	Kind  string
	Pos   float64
	Lo    float64
	Hi    float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf(
		"range: index=%d kind=%s pos=%g outside [%g,%g]",
		e.Index, e.Kind, e.Pos, e.Lo, e.Hi)
}

// ConfigError reports an inconsistent configuration value, e.g. a
// phase-sum/cycle mismatch or an out-of-bounds lane override region.
type ConfigError struct {
	Entity string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Entity, e.Reason)
}

// DuplicateEventError reports two events of the same non-absorbable
// kind landing on one snapped position.
type DuplicateEventError struct {
	Pos     int
	Kind    string
	Indices []int
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf(
		"duplicate events: kind=%s pos=%d layout indices=%v",
		e.Kind, e.Pos, e.Indices)
}

// BuildError reports a violated invariant the planner itself must
// guarantee, e.g. a legal movement that received no lane assignment.
// Unlike the other errors it indicates a planner defect, not bad input.
type BuildError struct {
	Junction string
	Leg      string
	Movement string
	Reason   string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf(
		"build invariant: junction=%s leg=%s movement=%s: %s",
		e.Junction, e.Leg, e.Movement, e.Reason)
}
