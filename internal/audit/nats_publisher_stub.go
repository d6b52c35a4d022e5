// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

//go:build !nats

package audit

import (
	"github.com/ThreeDotsLabs/watermill/message"
)

// NATSAvailable reports whether the binary was built with NATS support.
const NATSAvailable = false

// NewNATSPublisher returns ErrNATSUnavailable. Build with -tags=nats for the
// JetStream publisher.
func NewNATSPublisher(NATSConfig) (message.Publisher, error) {
	return nil, ErrNATSUnavailable
}
