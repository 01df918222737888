// Package events publishes record change notifications.
package events

import (
	"context"
	"time"

	"github.com/DivyanshMauryaaa/testgem/internal/store"
)

type Type string

const (
	RecordCreated    Type = "record.created"
	RecordUpdated    Type = "record.updated"
	RecordDeleted    Type = "record.deleted"
	ProposalAccepted Type = "proposal.accepted"
)

type Event struct {
	ID       string     `json:"id"`
	Type     Type       `json:"type"`
	Kind     store.Kind `json:"kind"`
	RecordID string     `json:"recordId"`
	UserID   string     `json:"userId"`
	At       time.Time  `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
