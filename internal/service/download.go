package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CarlosIrineuCosta/boxiii/internal/domain"
)

// DownloadResult summarizes what a download stored.
type DownloadResult struct {
	SetID        string
	Cards        int
	MediaFetched int
	MediaSkipped int
}

// DownloadManager makes a box fully usable offline: records into the store,
// media into the media cache.
type DownloadManager struct {
	source domain.ContentSource
	store  domain.Store
	media  domain.MediaCache
	online domain.Connectivity
	logger *slog.Logger
}

// NewDownloadManager creates a download manager.
func NewDownloadManager(source domain.ContentSource, store domain.Store, media domain.MediaCache, online domain.Connectivity, logger *slog.Logger) *DownloadManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadManager{
		source: source,
		store:  store,
		media:  media,
		online: online,
		logger: logger,
	}
}

// DownloadBox fetches a box, its cards, and its creator, marks the box
// downloaded, and prefetches the cards' media. The user asked for a network
// action, so unlike read paths this fails loudly when offline.
//
// Media prefetch is best effort per item: a failed fetch is logged and
// skipped, and never rolls back the downloaded flag. Idempotent: downloading
// an already-downloaded box refreshes the records and leaves the flag true.
func (m *DownloadManager) DownloadBox(ctx context.Context, setID string) (*DownloadResult, error) {
	if !m.online.Online(ctx) {
		return nil, domain.ErrNetworkUnavailable
	}

	box, err := m.fetchBox(ctx, setID)
	if err != nil {
		return nil, err
	}

	cards, err := m.source.FetchCards(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("fetch cards for %s: %w", setID, err)
	}

	if _, err := m.store.PutBoxes([]domain.Box{box}); err != nil {
		return nil, err
	}
	if err := m.store.PutCards(cards); err != nil {
		return nil, err
	}

	// Creator fetch failure does not block offline use of the box itself.
	if box.CreatorID != "" {
		if err := m.storeCreator(ctx, box.CreatorID); err != nil {
			m.logger.Warn("failed to store creator for downloaded box", "set_id", setID, "creator_id", box.CreatorID, "error", err)
		}
	}

	if err := m.store.SetDownloaded(setID, true); err != nil {
		return nil, err
	}

	result := &DownloadResult{SetID: setID, Cards: len(cards)}
	for _, card := range cards {
		for _, media := range card.Media {
			if media.URL == "" {
				continue
			}
			if err := m.media.Add(ctx, media.URL); err != nil {
				m.logger.Warn("media prefetch failed, skipping", "set_id", setID, "url", media.URL, "error", err)
				result.MediaSkipped++
				continue
			}
			result.MediaFetched++
		}
	}

	m.logger.Info("box downloaded", "set_id", setID, "cards", result.Cards,
		"media_fetched", result.MediaFetched, "media_skipped", result.MediaSkipped)
	return result, nil
}

// fetchBox resolves the box record remotely, with the collection-filter
// fallback for source modes without single-item lookup.
func (m *DownloadManager) fetchBox(ctx context.Context, setID string) (domain.Box, error) {
	if m.source.SupportsItemLookup() {
		box, err := m.source.FetchBox(ctx, setID)
		if err != nil {
			return domain.Box{}, fmt.Errorf("fetch box %s: %w", setID, err)
		}
		return *box, nil
	}

	boxes, err := m.source.FetchBoxes(ctx)
	if err != nil {
		return domain.Box{}, fmt.Errorf("fetch boxes: %w", err)
	}
	for _, box := range boxes {
		if box.SetID == setID {
			return box, nil
		}
	}
	return domain.Box{}, fmt.Errorf("box %s: %w", setID, domain.ErrNotFound)
}

func (m *DownloadManager) storeCreator(ctx context.Context, creatorID string) error {
	if m.source.SupportsItemLookup() {
		creator, err := m.source.FetchCreator(ctx, creatorID)
		if err != nil {
			return err
		}
		return m.store.PutCreators([]domain.Creator{*creator})
	}

	creators, err := m.source.FetchCreators(ctx)
	if err != nil {
		return err
	}
	return m.store.PutCreators(creators)
}

// RemoveDownload clears a box's downloaded flag and evicts its cards' media
// from the cache. The records themselves stay: they are still valid cache
// entries, just no longer pinned for offline use.
func (m *DownloadManager) RemoveDownload(setID string) error {
	if err := m.store.SetDownloaded(setID, false); err != nil {
		return err
	}

	cards, err := m.store.CardsBySet(setID)
	if err != nil {
		return err
	}
	var urls []string
	for _, card := range cards {
		for _, media := range card.Media {
			if media.URL != "" {
				urls = append(urls, media.URL)
			}
		}
	}
	m.media.Evict(urls)

	m.logger.Info("download removed", "set_id", setID)
	return nil
}
