package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/CarlosIrineuCosta/boxiii/internal/domain"
)

// DefaultRecentWindow bounds the "recently accessed" half of the my-boxes
// merge. Not a product constant, so it stays configurable.
const DefaultRecentWindow = 30 * 24 * time.Hour

// SyncService is the single source of truth for "give me current data":
// remote-first with write-through when the provider is reachable, local
// store otherwise. Read paths never surface network errors; only storage
// failures propagate.
type SyncService struct {
	source domain.ContentSource
	store  domain.Store
	online domain.Connectivity
	logger *slog.Logger

	// RecentWindow is how far back "recently accessed" reaches in MyBoxes.
	RecentWindow time.Duration
}

// NewSyncService creates a sync service.
func NewSyncService(source domain.ContentSource, store domain.Store, online domain.Connectivity, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		source:       source,
		store:        store,
		online:       online,
		logger:       logger,
		RecentWindow: DefaultRecentWindow,
	}
}

// fetchWithFallback is the one implementation of the read contract: check
// connectivity, try the remote fetch, write results through to the store,
// and on any remote failure serve the local copy instead. Implemented once
// so the fallback behavior cannot drift between entity types.
//
// writeThrough returns the records as stored, which for boxes means the
// merged copies with local-only fields intact.
func fetchWithFallback[T any](
	ctx context.Context,
	s *SyncService,
	what string,
	remote func(context.Context) ([]T, error),
	writeThrough func([]T) ([]T, error),
	local func() ([]T, error),
) ([]T, error) {
	if !s.online.Online(ctx) {
		s.logger.Debug("offline, serving local data", "collection", what)
		return local()
	}

	items, err := remote(ctx)
	if err != nil {
		s.logger.Warn("remote fetch failed, falling back to local", "collection", what, "error", err)
		return local()
	}

	stored, err := writeThrough(items)
	if err != nil {
		// Storage failure: the cache itself is unreliable, surface it.
		return nil, err
	}

	s.logger.Debug("synced collection", "collection", what, "count", len(stored))
	return stored, nil
}

// Boxes returns all boxes, freshest copy available.
func (s *SyncService) Boxes(ctx context.Context) ([]domain.Box, error) {
	return fetchWithFallback(ctx, s, "boxes",
		s.source.FetchBoxes,
		s.store.PutBoxes,
		s.store.Boxes,
	)
}

// Creators returns all creators, freshest copy available.
func (s *SyncService) Creators(ctx context.Context) ([]domain.Creator, error) {
	return fetchWithFallback(ctx, s, "creators",
		s.source.FetchCreators,
		func(creators []domain.Creator) ([]domain.Creator, error) {
			return creators, s.store.PutCreators(creators)
		},
		s.store.Creators,
	)
}

// Cards returns the cards of a box sorted by order index, freshest copy
// available.
func (s *SyncService) Cards(ctx context.Context, setID string) ([]domain.Card, error) {
	cards, err := fetchWithFallback(ctx, s, "cards",
		func(ctx context.Context) ([]domain.Card, error) {
			return s.source.FetchCards(ctx, setID)
		},
		func(cards []domain.Card) ([]domain.Card, error) {
			return cards, s.store.PutCards(cards)
		},
		func() ([]domain.Card, error) {
			return s.store.CardsBySet(setID)
		},
	)
	if err != nil {
		return nil, err
	}
	domain.SortCards(cards)
	return cards, nil
}

// Box returns a single box. When the source mode has no single-item lookup,
// the full collection is fetched and filtered instead of failing.
func (s *SyncService) Box(ctx context.Context, setID string) (domain.Box, error) {
	if s.online.Online(ctx) {
		if box, ok := s.fetchRemoteBox(ctx, setID); ok {
			merged, err := s.store.PutBoxes([]domain.Box{box})
			if err != nil {
				return domain.Box{}, err
			}
			return merged[0], nil
		}
	}
	return s.store.Box(setID)
}

// fetchRemoteBox tries the single-item endpoint, then the collection filter.
// A false return means "fall back to local" regardless of cause.
func (s *SyncService) fetchRemoteBox(ctx context.Context, setID string) (domain.Box, bool) {
	if s.source.SupportsItemLookup() {
		box, err := s.source.FetchBox(ctx, setID)
		if err == nil {
			return *box, true
		}
		s.logger.Warn("remote box lookup failed, falling back to local", "set_id", setID, "error", err)
		return domain.Box{}, false
	}

	boxes, err := s.source.FetchBoxes(ctx)
	if err != nil {
		s.logger.Warn("remote box fetch failed, falling back to local", "set_id", setID, "error", err)
		return domain.Box{}, false
	}
	// Write the whole collection through while we have it.
	if _, err := s.store.PutBoxes(boxes); err != nil {
		s.logger.Error("write-through failed", "collection", "boxes", "error", err)
	}
	for _, box := range boxes {
		if box.SetID == setID {
			return box, true
		}
	}
	return domain.Box{}, false
}

// Creator returns a single creator, with the same single-item fallback as Box.
func (s *SyncService) Creator(ctx context.Context, creatorID string) (domain.Creator, error) {
	if s.online.Online(ctx) {
		if creator, ok := s.fetchRemoteCreator(ctx, creatorID); ok {
			if err := s.store.PutCreators([]domain.Creator{creator}); err != nil {
				return domain.Creator{}, err
			}
			return creator, nil
		}
	}
	return s.store.Creator(creatorID)
}

func (s *SyncService) fetchRemoteCreator(ctx context.Context, creatorID string) (domain.Creator, bool) {
	if s.source.SupportsItemLookup() {
		creator, err := s.source.FetchCreator(ctx, creatorID)
		if err == nil {
			return *creator, true
		}
		s.logger.Warn("remote creator lookup failed, falling back to local", "creator_id", creatorID, "error", err)
		return domain.Creator{}, false
	}

	creators, err := s.source.FetchCreators(ctx)
	if err != nil {
		s.logger.Warn("remote creator fetch failed, falling back to local", "creator_id", creatorID, "error", err)
		return domain.Creator{}, false
	}
	if err := s.store.PutCreators(creators); err != nil {
		s.logger.Error("write-through failed", "collection", "creators", "error", err)
	}
	for _, creator := range creators {
		if creator.CreatorID == creatorID {
			return creator, true
		}
	}
	return domain.Creator{}, false
}

// MyBoxes returns the home-screen list: downloaded boxes plus boxes accessed
// within RecentWindow, deduplicated by set id and ordered most recently
// accessed first. A best-effort full sync runs first so newly available
// boxes show up; its failure never fails the read.
func (s *SyncService) MyBoxes(ctx context.Context) ([]domain.Box, error) {
	if s.online.Online(ctx) {
		boxes, err := s.source.FetchBoxes(ctx)
		if err != nil {
			s.logger.Warn("background box sync failed", "error", err)
		} else if _, err := s.store.PutBoxes(boxes); err != nil {
			return nil, err
		}
	}

	downloaded, err := s.store.DownloadedBoxes()
	if err != nil {
		return nil, err
	}
	recent, err := s.store.BoxesAccessedSince(time.Now().Add(-s.RecentWindow))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(downloaded)+len(recent))
	merged := make([]domain.Box, 0, len(downloaded)+len(recent))
	for _, box := range append(downloaded, recent...) {
		if _, ok := seen[box.SetID]; ok {
			continue
		}
		seen[box.SetID] = struct{}{}
		merged = append(merged, box)
	}
	domain.SortBoxesByLastAccessed(merged)
	return merged, nil
}
