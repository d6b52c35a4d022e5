// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Rejected HTTP callers by cause",
	},
	[]string{"cause"}, // missing, invalid
)
