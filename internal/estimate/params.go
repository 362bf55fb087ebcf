// Package estimate derives construction material requirements from project
// parameters, prices them against a catalog and tracks the user's selection.
//
// The package is pure: every function returns a value computed from its
// arguments and never retains or shares state between calls.
package estimate

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ProjectType selects the coefficient row used for derivation.
type ProjectType string

const (
	Residential ProjectType = "residential"
	Commercial  ProjectType = "commercial"
	Industrial  ProjectType = "industrial"
)

// ParseProjectType accepts a project type name in any case.
func ParseProjectType(raw string) (ProjectType, error) {
	t := ProjectType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case Residential, Commercial, Industrial:
		return t, nil
	}
	return "", &ValidationError{Field: "project_type", Message: fmt.Sprintf("unknown project type %q", raw)}
}

// ProjectParameters are the inputs of one estimation.
type ProjectParameters struct {
	Area        float64     `json:"area"`
	Floors      int         `json:"floors"`
	ProjectType ProjectType `json:"project_type"`
}

// TotalArea is the built-up area over all floors.
func (p ProjectParameters) TotalArea() float64 {
	return p.Area * float64(p.Floors)
}

// Validate reports every invalid field at once.
func (p ProjectParameters) Validate() error {
	var errs ValidationErrors
	if math.IsNaN(p.Area) || math.IsInf(p.Area, 0) || p.Area <= 0 {
		errs = append(errs, &ValidationError{Field: "area", Message: "must be a number greater than 0"})
	}
	if p.Floors < 1 {
		errs = append(errs, &ValidationError{Field: "floors", Message: "must be at least 1"})
	}
	if _, ok := coefficientTable[p.ProjectType]; !ok {
		errs = append(errs, &ValidationError{Field: "project_type", Message: fmt.Sprintf("unknown project type %q", p.ProjectType)})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidationError is a caller-fixable problem with one input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// ValidationErrors groups several field errors.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Fields flattens err into field errors when it is a validation failure.
func Fields(err error) ([]*ValidationError, bool) {
	var many ValidationErrors
	if errors.As(err, &many) {
		return many, true
	}
	var one *ValidationError
	if errors.As(err, &one) {
		return []*ValidationError{one}, true
	}
	return nil, false
}
