package model

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator() //nolint:gochecknoglobals // validator caches struct metadata

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})
	return v
}

// ValidationError describes the first field that failed validation.
type ValidationError struct {
	kind  error
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: field %q failed %q", e.kind, e.Field, e.Tag)
}

func (e *ValidationError) Unwrap() error { return e.kind }

// Reason returns a compact label such as "confidence_lte", used as a metric label.
func (e *ValidationError) Reason() string {
	return e.Field + "_" + e.Tag
}

// Validate checks required fields and ranges of a raw event.
func (e RawEvent) Validate() error {
	numbers := []struct {
		field string
		value float64
	}{
		{"absoluteTimestamp", e.AbsoluteTimestamp},
		{"relativeTimestamp", e.RelativeTimestamp},
		{"confidence", e.Confidence},
	}
	for _, n := range numbers {
		if !finite(n.value) {
			return &ValidationError{kind: ErrInvalidEvent, Field: n.field, Tag: "finite"}
		}
	}
	if p := e.Position; p != nil && (!finite(p.X) || !finite(p.Y)) {
		return &ValidationError{kind: ErrInvalidEvent, Field: "position", Tag: "finite"}
	}
	if p := e.Details.EndPosition; p != nil && (!finite(p.X) || !finite(p.Y)) {
		return &ValidationError{kind: ErrInvalidEvent, Field: "endPosition", Tag: "finite"}
	}
	if d := e.Details.DurationSec; d != nil && !finite(*d) {
		return &ValidationError{kind: ErrInvalidEvent, Field: "durationSec", Tag: "finite"}
	}
	return structError(ErrInvalidEvent, validate.Struct(e))
}

// ValidateHorizon rejects events timestamped after maxSec, the latest
// plausible moment of a match.
func (e RawEvent) ValidateHorizon(maxSec float64) error {
	if e.AbsoluteTimestamp > maxSec {
		return &ValidationError{kind: ErrInvalidEvent, Field: "absoluteTimestamp", Tag: "lte"}
	}
	return nil
}

// Validate checks required fields and ranges of a time segment.
func (s TimeSegment) Validate() error {
	if !finite(s.StartSec) || !finite(s.EndSec) {
		return &ValidationError{kind: ErrInvalidSegment, Field: "startSec", Tag: "finite"}
	}
	return structError(ErrInvalidSegment, validate.Struct(s))
}

// ReasonOf extracts the validation reason from err, or "invalid" for other errors.
func ReasonOf(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason()
	}
	return "invalid"
}

func structError(kind, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{kind: kind, Field: fe.Field(), Tag: fe.Tag()}
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
