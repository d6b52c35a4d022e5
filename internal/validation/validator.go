// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

// Package validation wraps go-playground/validator with a shared instance and
// the custom tags Rolegate relies on.
//
// Custom tags:
//   - role: the string names an access tier (viewer, coordinator, admin)
//   - userid: a non-blank identifier with no control characters or whitespace
//
// Example:
//
//	type row struct {
//	    UserID string `validate:"required,userid"`
//	    Level  string `validate:"required,role"`
//	}
//	if err := validation.ValidateStruct(&r); err != nil {
//	    // err.Fields() lists the failing fields
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/rolegate/internal/roles"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes one failing field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Error collects every field that failed validation.
type Error struct {
	fields []FieldError
}

// Fields returns the failing fields in declaration order.
func (e *Error) Fields() []FieldError {
	return e.fields
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.fields))
	for i, f := range e.fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed, optionally on a specific tag.
func (e *Error) Has(field string, tag ...string) bool {
	for _, f := range e.fields {
		if f.Field != field {
			continue
		}
		if len(tag) == 0 || f.Tag == tag[0] {
			return true
		}
	}
	return false
}

// Validator returns the shared validator, registering custom tags on first use.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Panics only on a programming error in the tag definitions below.
		if err := validate.RegisterValidation("role", validateRole); err != nil {
			panic(err)
		}
		if err := validate.RegisterValidation("userid", validateUserID); err != nil {
			panic(err)
		}
	})
	return validate
}

// ValidateStruct validates s. It returns nil when s is valid.
func ValidateStruct(s interface{}) *Error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		}
	}
	return &Error{fields: fields}
}

func validateRole(fl validator.FieldLevel) bool {
	_, err := roles.ParseRole(fl.Field().String())
	return err == nil
}

func validateUserID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

var messages = map[string]string{
	"required": "%s is required",
	"role":     "%s must be one of viewer, coordinator, admin",
	"userid":   "%s must be a non-blank identifier without whitespace",
	"url":      "%s must be a valid URL",
	"oneof":    "%s must be one of: %s",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
	"gte":      "%s must be greater than or equal to %s",
	"lte":      "%s must be less than or equal to %s",
}

func translate(fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	if strings.Count(tmpl, "%s") == 2 {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(tmpl, fe.Field())
}
