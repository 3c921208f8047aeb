// Package events fans stored notifications out to other processes.
package events

import "context"

// Publisher delivers notification messages. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishNotification(ctx context.Context, msg *NotificationMessage) error
	Close() error
}

// NopPublisher discards every message. It is used when no broker is configured.
type NopPublisher struct{}

// PublishNotification implements Publisher.
func (NopPublisher) PublishNotification(context.Context, *NotificationMessage) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
