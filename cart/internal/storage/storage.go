package storage

import (
	"context"
	"time"
)

type KeyValueStore interface {
	// Get reports false when the key does not exist.
	Get(c context.Context, key string) (string, bool, error)
	Set(c context.Context, key string, value string) error
	Delete(c context.Context, key string) error
}

// Event tells observers that the store changed. Observers reload from the store and never trust
// anything but Origin from the event itself.
type Event struct {
	At     time.Time `json:"at"`
	Key    string    `json:"key"`
	Origin string    `json:"origin"`
}

type Notifier interface {
	Publish(c context.Context, event Event) error
	// Subscribe returns a channel that is closed after cancel is called or c is done.
	Subscribe(c context.Context) (events <-chan Event, cancel func(), err error)
}

type Store interface {
	KeyValueStore
	Notifier
}

const subscriberBuffer = 64
