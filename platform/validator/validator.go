// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"gigwork_maps/platform/geo"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator for structured validation.
// Using a struct allows for dependency injection and easier testing.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the geo rules registered:
// any geo.Coordinate field is rejected when it is the (0,0) sentinel or out of range.
func New() *Validator {
	v := validator.New()
	v.RegisterStructValidation(coordinateValidation, geo.Coordinate{})
	return &Validator{v: v}
}

func coordinateValidation(sl validator.StructLevel) {
	coord, ok := sl.Current().Interface().(geo.Coordinate)
	if !ok {
		return
	}
	if !coord.IsValid() {
		sl.ReportError(coord.Latitude, "Latitude", "latitude", "coordinate", "")
		sl.ReportError(coord.Longitude, "Longitude", "longitude", "coordinate", "")
	}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}
