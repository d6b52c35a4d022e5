// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package audit

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
)

// DefaultTopicPrefix is the topic namespace for forwarded audit events.
const DefaultTopicPrefix = "rolegate.audit"

// PublisherStore forwards events to a watermill publisher so other services
// can consume the audit stream. The message UUID is the event id, which lets
// JetStream deduplicate retried publishes.
type PublisherStore struct {
	publisher   message.Publisher
	topicPrefix string
}

// NewPublisherStore wraps publisher. An empty prefix uses DefaultTopicPrefix.
func NewPublisherStore(publisher message.Publisher, topicPrefix string) *PublisherStore {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	return &PublisherStore{publisher: publisher, topicPrefix: topicPrefix}
}

// Name implements Store.
func (s *PublisherStore) Name() string { return "publisher" }

// Topic returns the topic events of type t are published on.
func (s *PublisherStore) Topic(t EventType) string {
	switch t {
	case TypeAccessAttempt:
		return s.topicPrefix + ".access"
	case TypeSyncCycle:
		return s.topicPrefix + ".sync"
	default:
		return s.topicPrefix + ".other"
	}
}

// Save implements Store.
func (s *PublisherStore) Save(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	msg := message.NewMessage(event.ID, data)
	msg.Metadata.Set("type", string(event.Type))
	if uid := event.UserID(); uid != "" {
		msg.Metadata.Set("user_id", uid)
	}
	msg.SetContext(ctx)

	if err := s.publisher.Publish(s.Topic(event.Type), msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

// Close closes the underlying publisher.
func (s *PublisherStore) Close() error {
	return s.publisher.Close()
}
