package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/CarlosIrineuCosta/boxiii/internal/domain"
)

// ProgressTracker persists reading position per box. Works entirely against
// the local store, so it behaves identically online and offline.
type ProgressTracker struct {
	store  domain.Store
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewProgressTracker creates a progress tracker.
func NewProgressTracker(store domain.Store, logger *slog.Logger) *ProgressTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressTracker{store: store, logger: logger, now: time.Now}
}

// SaveProgress records the current card position for a box. A nil completed
// slice preserves the existing completed set; a non-nil one replaces it.
// Creates the record on first use and stamps the owning box's LastAccessed
// either way.
func (t *ProgressTracker) SaveProgress(setID string, cardIndex int, completed []int) (domain.Progress, error) {
	p, err := t.store.SaveProgress(setID, cardIndex, completed, t.now())
	if err != nil {
		return domain.Progress{}, err
	}
	t.logger.Debug("progress saved", "set_id", setID, "card_index", p.CardIndex, "completed", len(p.CompletedCards))
	return p, nil
}

// MarkCompleted adds cardIndex to the completed set and moves the position
// there. The completed set only grows; re-completing a card is a no-op.
func (t *ProgressTracker) MarkCompleted(setID string, cardIndex int) (domain.Progress, error) {
	existing, err := t.store.Progress(setID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Progress{}, err
	}

	completed := domain.UnionIndices(existing.CompletedCards, []int{cardIndex})
	return t.SaveProgress(setID, cardIndex, completed)
}

// Progress returns the record for a box. Callers treat domain.ErrNotFound
// as "start at index 0".
func (t *ProgressTracker) Progress(setID string) (domain.Progress, error) {
	return t.store.Progress(setID)
}
