// Package repository holds the persistence contracts shared by the storage back ends.
package repository

import (
	"context"
	"errors"

	"github.com/Houeta/stockwatch/internal/models"
)

var (
	// ErrStateNotFound is returned by Load when no snapshot was persisted yet.
	ErrStateNotFound = errors.New("state not found")
	// ErrPersist wraps every failure to read or write durable state.
	ErrPersist = errors.New("persist failed")
)

// SnapshotStore keeps the last-known snapshot as durable state.
type SnapshotStore interface {
	// Load returns the persisted snapshot, ErrStateNotFound if there is none.
	Load(ctx context.Context) (models.Snapshot, error)
	// Save replaces the persisted snapshot with snap.
	Save(ctx context.Context, snap models.Snapshot) error
}

// SubscriptionRepository stores the chats that receive alerts.
type SubscriptionRepository interface {
	SubscribeChat(ctx context.Context, chatID int64) (bool, error)
	UnsubscribeChat(ctx context.Context, chatID int64) (bool, error)
	GetSubscribedChats(ctx context.Context) ([]int64, error)
}
