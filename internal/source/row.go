// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package source

import (
	"strings"

	"github.com/tomtom215/rolegate/internal/roles"
	"github.com/tomtom215/rolegate/internal/validation"
)

// recordPage is one page of the store's records endpoint.
type recordPage struct {
	Records []recordRow `json:"records"`
	Total   int         `json:"total"`
}

// recordRow is a row as the store returns it. Only these columns matter.
type recordRow struct {
	UserID      string `json:"user_id" validate:"required,userid"`
	Status      string `json:"status"`
	AccessLevel string `json:"access_level" validate:"required,role"`
	UpdatedAt   string `json:"updated_at"`
}

// activeStatuses are the status cell values that mean the row grants access.
// Anything else, including an empty cell, is treated as inactive.
var activeStatuses = map[string]bool{
	"active":  true,
	"enabled": true,
	"yes":     true,
	"true":    true,
	"1":       true,
}

// toRecord validates the row and converts it.
func (r *recordRow) toRecord() (roles.Record, error) {
	r.UserID = strings.TrimSpace(r.UserID)
	if verr := validation.ValidateStruct(r); verr != nil {
		return roles.Record{}, verr
	}
	role, err := roles.ParseRole(r.AccessLevel)
	if err != nil {
		return roles.Record{}, err
	}
	return roles.Record{
		UserID:        r.UserID,
		Role:          role,
		Active:        activeStatuses[strings.ToLower(strings.TrimSpace(r.Status))],
		SourceVersion: r.UpdatedAt,
	}, nil
}
