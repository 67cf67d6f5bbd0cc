package calendar

import (
	"context"
	"fmt"
	"time"

	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/repos"
)

const ProviderGoogle = "google"

type googleFactory struct {
	log      *logger.Logger
	accounts repos.CalendarAccountRepo
	oauth    *OAuthManager
}

func NewGoogleFactory(log *logger.Logger, accounts repos.CalendarAccountRepo, oauth *OAuthManager) ProviderFactory {
	return &googleFactory{
		log:      log.With("service", "GoogleCalendar"),
		accounts: accounts,
		oauth:    oauth,
	}
}

func (f *googleFactory) Name() string { return ProviderGoogle }

func (f *googleFactory) ForUser(ctx context.Context, userID string) (Provider, error) {
	if f.oauth == nil {
		return nil, nil
	}
	account, err := f.accounts.Get(ctx, nil, userID, ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}

	svc, err := calendarapi.NewService(ctx,
		option.WithTokenSource(f.oauth.tokenSourceFor(ctx, account)),
	)
	if err != nil {
		return nil, fmt.Errorf("google calendar service: %w", err)
	}
	return &googleProvider{log: f.log, svc: svc}, nil
}

type googleProvider struct {
	log *logger.Logger
	svc *calendarapi.Service
}

func (p *googleProvider) Name() string { return ProviderGoogle }

func (p *googleProvider) ListEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	call := p.svc.Events.List("primary").
		Context(ctx).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("google list events: %w", err)
	}
	return convertGoogleEvents(resp.Items), nil
}

func (p *googleProvider) CreateEvent(ctx context.Context, in CreateEventInput) (*Event, error) {
	ev := &calendarapi.Event{
		Summary:     in.Title,
		Description: in.Description,
		Start:       &calendarapi.EventDateTime{DateTime: in.Start.Format(time.RFC3339)},
		End:         &calendarapi.EventDateTime{DateTime: in.End.Format(time.RFC3339)},
	}
	created, err := p.svc.Events.Insert("primary", ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google create event: %w", err)
	}
	out := convertGoogleEvent(created)
	return &out, nil
}

func (p *googleProvider) UpdateEvent(ctx context.Context, externalID string, in UpdateEventInput) (*Event, error) {
	existing, err := p.svc.Events.Get("primary", externalID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google get event: %w", err)
	}
	if in.Title != nil {
		existing.Summary = *in.Title
	}
	if in.Description != nil {
		existing.Description = *in.Description
	}
	if in.Start != nil {
		existing.Start = &calendarapi.EventDateTime{DateTime: in.Start.Format(time.RFC3339)}
	}
	if in.End != nil {
		existing.End = &calendarapi.EventDateTime{DateTime: in.End.Format(time.RFC3339)}
	}
	updated, err := p.svc.Events.Update("primary", externalID, existing).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google update event: %w", err)
	}
	out := convertGoogleEvent(updated)
	return &out, nil
}

func (p *googleProvider) DeleteEvent(ctx context.Context, externalID string) error {
	if err := p.svc.Events.Delete("primary", externalID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("google delete event: %w", err)
	}
	return nil
}

func (p *googleProvider) SearchEvents(ctx context.Context, query string, start, end time.Time) ([]Event, error) {
	call := p.svc.Events.List("primary").
		Context(ctx).
		Q(query).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(50)
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("google search events: %w", err)
	}
	return convertGoogleEvents(resp.Items), nil
}

func convertGoogleEvents(items []*calendarapi.Event) []Event {
	out := make([]Event, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, convertGoogleEvent(it))
	}
	return out
}

func convertGoogleEvent(it *calendarapi.Event) Event {
	return Event{
		Provider:    ProviderGoogle,
		ExternalID:  it.Id,
		Title:       it.Summary,
		Description: it.Description,
		Start:       parseGoogleTime(it.Start),
		End:         parseGoogleTime(it.End),
	}
}

// parseGoogleTime handles both timed events (DateTime) and all-day events
// (Date only).
func parseGoogleTime(dt *calendarapi.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	}
	if dt.Date != "" {
		if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
