package calendar

import (
	"context"
	"time"
)

// Event is the provider-neutral shape the rest of the backend works with.
type Event struct {
	Provider    string    `json:"provider"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type CreateEventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

type UpdateEventInput struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
}

// Provider is one connected calendar backend for one user. Instances are
// constructed per request from the user's stored OAuth tokens.
type Provider interface {
	Name() string
	ListEvents(ctx context.Context, start, end time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, in CreateEventInput) (*Event, error)
	UpdateEvent(ctx context.Context, externalID string, in UpdateEventInput) (*Event, error)
	DeleteEvent(ctx context.Context, externalID string) error
	SearchEvents(ctx context.Context, query string, start, end time.Time) ([]Event, error)
}

// ProviderFactory builds a Provider bound to one user, or (nil, nil) when
// the user has not connected that provider.
type ProviderFactory interface {
	Name() string
	ForUser(ctx context.Context, userID string) (Provider, error)
}
