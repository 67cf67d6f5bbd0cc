package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/repos"
	"github.com/yungbote/jenny-backend/internal/types"
	"github.com/yungbote/jenny-backend/internal/utils"
)

// ErrNotConnected means the user has no calendar account; callers turn it
// into a connect-link reply.
type ErrNotConnected struct {
	Providers []string
}

func (e *ErrNotConnected) Error() string {
	return fmt.Sprintf("no calendar connected (available: %s)", strings.Join(e.Providers, ", "))
}

// Gateway merges every connected provider behind one surface. Reads fan out
// concurrently; one slow or broken provider degrades that provider only.
type Gateway struct {
	log       *logger.Logger
	factories []ProviderFactory
	cache     repos.EventCacheRepo
	cacheAge  time.Duration
}

func NewGateway(log *logger.Logger, cache repos.EventCacheRepo, factories ...ProviderFactory) *Gateway {
	maxAgeSec := utils.GetEnvAsInt("CALENDAR_CACHE_TTL_SECONDS", 300, log)
	return &Gateway{
		log:       log.With("service", "CalendarGateway"),
		factories: factories,
		cache:     cache,
		cacheAge:  time.Duration(maxAgeSec) * time.Second,
	}
}

func (g *Gateway) ProviderNames() []string {
	names := make([]string, 0, len(g.factories))
	for _, f := range g.factories {
		names = append(names, f.Name())
	}
	return names
}

// connectedProviders resolves a live Provider per connected account.
func (g *Gateway) connectedProviders(ctx context.Context, userID string) ([]Provider, error) {
	var out []Provider
	for _, f := range g.factories {
		p, err := f.ForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, &ErrNotConnected{Providers: g.ProviderNames()}
	}
	return out, nil
}

// ListEvents fans out to all connected providers, merges the results sorted
// by start time, and dedupes events that appear on multiple calendars under
// the same (title, start) pair.
func (g *Gateway) ListEvents(ctx context.Context, userID string, start, end time.Time) ([]Event, error) {
	providers, err := g.connectedProviders(ctx, userID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	merged := make([]Event, 0, 32)

	eg, egCtx := errgroup.WithContext(ctx)
	for _, p := range providers {
		p := p
		eg.Go(func() error {
			events, err := p.ListEvents(egCtx, start, end)
			if err != nil {
				g.log.Warn("calendar provider list failed", "provider", p.Name(), "user_id", userID, "error", err)
				return nil
			}
			mu.Lock()
			merged = append(merged, events...)
			mu.Unlock()
			g.cacheEvents(ctx, userID, p.Name(), events)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return mergeAndDedupe(merged), nil
}

func (g *Gateway) SearchEvents(ctx context.Context, userID, query string, start, end time.Time) ([]Event, error) {
	providers, err := g.connectedProviders(ctx, userID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	merged := make([]Event, 0, 16)

	eg, egCtx := errgroup.WithContext(ctx)
	for _, p := range providers {
		p := p
		eg.Go(func() error {
			events, err := p.SearchEvents(egCtx, query, start, end)
			if err != nil {
				g.log.Warn("calendar provider search failed", "provider", p.Name(), "user_id", userID, "error", err)
				return nil
			}
			mu.Lock()
			merged = append(merged, events...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return mergeAndDedupe(merged), nil
}

// CreateEvent writes to the user's first connected provider.
func (g *Gateway) CreateEvent(ctx context.Context, userID string, in CreateEventInput) (*Event, error) {
	providers, err := g.connectedProviders(ctx, userID)
	if err != nil {
		return nil, err
	}
	return providers[0].CreateEvent(ctx, in)
}

// UpdateEvent routes the write to the provider that owns the event.
func (g *Gateway) UpdateEvent(ctx context.Context, userID, provider, externalID string, in UpdateEventInput) (*Event, error) {
	p, err := g.providerByName(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	return p.UpdateEvent(ctx, externalID, in)
}

func (g *Gateway) DeleteEvent(ctx context.Context, userID, provider, externalID string) error {
	p, err := g.providerByName(ctx, userID, provider)
	if err != nil {
		return err
	}
	return p.DeleteEvent(ctx, externalID)
}

// CachedEvents serves recent reads without hitting providers, for the quick
// "what's on my calendar" path. Falls through to a live fan-out on a cold or
// stale cache.
func (g *Gateway) CachedEvents(ctx context.Context, userID string, start, end time.Time) ([]Event, error) {
	if g.cache != nil {
		rows, err := g.cache.ListFresh(ctx, nil, userID, start, end, g.cacheAge)
		if err == nil && len(rows) > 0 {
			events := make([]Event, 0, len(rows))
			for _, r := range rows {
				events = append(events, Event{
					Provider:    r.Provider,
					ExternalID:  r.ExternalID,
					Title:       r.Title,
					Description: r.Description,
					Start:       r.StartAt,
					End:         r.EndAt,
				})
			}
			return mergeAndDedupe(events), nil
		}
	}
	return g.ListEvents(ctx, userID, start, end)
}

func (g *Gateway) providerByName(ctx context.Context, userID, name string) (Provider, error) {
	providers, err := g.connectedProviders(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("provider %q not connected", name)
}

func (g *Gateway) cacheEvents(ctx context.Context, userID, provider string, events []Event) {
	if g.cache == nil {
		return
	}
	rows := make([]*types.CalendarEventCache, 0, len(events))
	for _, ev := range events {
		rows = append(rows, &types.CalendarEventCache{
			ExternalID:  ev.ExternalID,
			Title:       ev.Title,
			Description: ev.Description,
			StartAt:     ev.Start,
			EndAt:       ev.End,
		})
	}
	if err := g.cache.Replace(ctx, nil, userID, provider, rows); err != nil {
		g.log.Warn("event cache write failed", "user_id", userID, "provider", provider, "error", err)
	}
}

// mergeAndDedupe sorts by start time and drops later duplicates sharing the
// same normalized (title, start) pair.
func mergeAndDedupe(events []Event) []Event {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	seen := make(map[string]bool, len(events))
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		key := strings.ToLower(strings.TrimSpace(ev.Title)) + "|" + ev.Start.UTC().Format(time.RFC3339)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ev)
	}
	return out
}
