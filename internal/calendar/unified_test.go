package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/jenny-backend/internal/logger"
)

type fakeProvider struct {
	name    string
	events  []Event
	err     error
	deleted []string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) ListEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	return p.events, p.err
}

func (p *fakeProvider) CreateEvent(ctx context.Context, in CreateEventInput) (*Event, error) {
	ev := Event{Provider: p.name, ExternalID: "new", Title: in.Title, Start: in.Start, End: in.End}
	return &ev, nil
}

func (p *fakeProvider) UpdateEvent(ctx context.Context, id string, in UpdateEventInput) (*Event, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) DeleteEvent(ctx context.Context, id string) error {
	p.deleted = append(p.deleted, id)
	return nil
}

func (p *fakeProvider) SearchEvents(ctx context.Context, q string, start, end time.Time) ([]Event, error) {
	return p.events, p.err
}

type fakeFactory struct {
	provider *fakeProvider
}

func (f *fakeFactory) Name() string { return f.provider.name }

func (f *fakeFactory) ForUser(ctx context.Context, userID string) (Provider, error) {
	if f.provider == nil {
		return nil, nil
	}
	return f.provider, nil
}

type disconnectedFactory struct{ name string }

func (f *disconnectedFactory) Name() string { return f.name }
func (f *disconnectedFactory) ForUser(ctx context.Context, userID string) (Provider, error) {
	return nil, nil
}

func newTestGateway(t *testing.T, factories ...ProviderFactory) *Gateway {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewGateway(log, nil, factories...)
}

func at(h int) time.Time {
	return time.Date(2026, 3, 10, h, 0, 0, 0, time.UTC)
}

func TestListEventsMergesSortedAcrossProviders(t *testing.T) {
	g := newTestGateway(t,
		&fakeFactory{provider: &fakeProvider{name: "google", events: []Event{
			{Provider: "google", ExternalID: "g2", Title: "Lunch", Start: at(12)},
			{Provider: "google", ExternalID: "g1", Title: "Standup", Start: at(9)},
		}}},
		&fakeFactory{provider: &fakeProvider{name: "outlook", events: []Event{
			{Provider: "outlook", ExternalID: "o1", Title: "Review", Start: at(10)},
		}}},
	)

	events, err := g.ListEvents(context.Background(), "u1", at(0), at(23))
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	want := []string{"Standup", "Review", "Lunch"}
	for i, title := range want {
		if events[i].Title != title {
			t.Fatalf("position %d: expected %q, got %q", i, title, events[i].Title)
		}
	}
}

func TestListEventsDedupesSameTitleAndStart(t *testing.T) {
	g := newTestGateway(t,
		&fakeFactory{provider: &fakeProvider{name: "google", events: []Event{
			{Provider: "google", ExternalID: "g1", Title: "Team Sync", Start: at(9)},
		}}},
		&fakeFactory{provider: &fakeProvider{name: "outlook", events: []Event{
			{Provider: "outlook", ExternalID: "o1", Title: "team sync", Start: at(9)},
			{Provider: "outlook", ExternalID: "o2", Title: "Team Sync", Start: at(15)},
		}}},
	)

	events, err := g.ListEvents(context.Background(), "u1", at(0), at(23))
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	// The 9:00 copies collapse (title match is case-insensitive); the 15:00
	// one survives because the start differs.
	if len(events) != 2 {
		t.Fatalf("expected 2 events after dedupe, got %d", len(events))
	}
}

func TestBrokenProviderDegradesNotFails(t *testing.T) {
	g := newTestGateway(t,
		&fakeFactory{provider: &fakeProvider{name: "google", err: errors.New("api down")}},
		&fakeFactory{provider: &fakeProvider{name: "outlook", events: []Event{
			{Provider: "outlook", ExternalID: "o1", Title: "Review", Start: at(10)},
		}}},
	)

	events, err := g.ListEvents(context.Background(), "u1", at(0), at(23))
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Provider != "outlook" {
		t.Fatalf("expected the healthy provider's events, got %+v", events)
	}
}

func TestNoConnectedProviders(t *testing.T) {
	g := newTestGateway(t, &disconnectedFactory{name: "google"})

	_, err := g.ListEvents(context.Background(), "u1", at(0), at(23))
	var notConnected *ErrNotConnected
	if !errors.As(err, &notConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if len(notConnected.Providers) != 1 || notConnected.Providers[0] != "google" {
		t.Fatalf("expected available providers listed, got %v", notConnected.Providers)
	}
}

func TestDeleteEventRoutesToOwningProvider(t *testing.T) {
	google := &fakeProvider{name: "google"}
	outlook := &fakeProvider{name: "outlook"}
	g := newTestGateway(t,
		&fakeFactory{provider: google},
		&fakeFactory{provider: outlook},
	)

	if err := g.DeleteEvent(context.Background(), "u1", "outlook", "o9"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if len(google.deleted) != 0 || len(outlook.deleted) != 1 || outlook.deleted[0] != "o9" {
		t.Fatalf("delete routed wrong: google=%v outlook=%v", google.deleted, outlook.deleted)
	}

	if err := g.DeleteEvent(context.Background(), "u1", "apple", "x"); err == nil {
		t.Fatalf("expected error for unconnected provider")
	}
}

func TestCreateEventUsesFirstConnectedProvider(t *testing.T) {
	g := newTestGateway(t,
		&disconnectedFactory{name: "outlook"},
		&fakeFactory{provider: &fakeProvider{name: "google"}},
	)

	ev, err := g.CreateEvent(context.Background(), "u1", CreateEventInput{Title: "Dentist", Start: at(14), End: at(15)})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if ev.Provider != "google" || ev.Title != "Dentist" {
		t.Fatalf("unexpected event %+v", ev)
	}
}
