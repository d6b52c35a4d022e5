// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package audit

import "errors"

// ErrNATSUnavailable is returned when the binary lacks NATS support.
var ErrNATSUnavailable = errors.New("NATS audit publisher not available: build with -tags=nats")

// NATSConfig configures NewNATSPublisher.
type NATSConfig struct {
	URL string

	// JetStream publishes with acknowledgements and provisions the stream on
	// first use. Core NATS is used when false.
	JetStream bool
}
