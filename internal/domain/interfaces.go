package domain

import (
	"context"
	"time"
)

// ContentSource fetches canonical entity collections from the remote
// provider. Implementations normalize the provider's response envelopes but
// never touch the local store; write-through is the sync layer's job.
type ContentSource interface {
	FetchCreators(ctx context.Context) ([]Creator, error)
	FetchBoxes(ctx context.Context) ([]Box, error)

	// FetchCards returns the cards belonging to setID. An empty setID
	// returns every card the provider has.
	FetchCards(ctx context.Context, setID string) ([]Card, error)

	// FetchBox and FetchCreator are only available when SupportsItemLookup
	// reports true; callers fall back to collection fetch + filter otherwise.
	FetchBox(ctx context.Context, setID string) (*Box, error)
	FetchCreator(ctx context.Context, creatorID string) (*Creator, error)
	SupportsItemLookup() bool
}

// Connectivity reports whether the remote provider is currently reachable.
// Re-evaluated before every remote attempt; never cached between calls.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ConnectivityFunc adapts a plain function to the Connectivity interface.
type ConnectivityFunc func(ctx context.Context) bool

func (f ConnectivityFunc) Online(ctx context.Context) bool { return f(ctx) }

// Store is the durable local cache: the offline source of truth for
// creators, boxes, cards, and progress.
//
// All writes are upserts keyed by primary key (last write wins). Lookups
// return ErrNotFound for absence; every other failure wraps
// ErrStorageFailure. Writes that span collections happen inside one
// transaction, so a reader never observes a half-written batch.
type Store interface {
	PutCreators(creators []Creator) error
	Creator(creatorID string) (Creator, error)
	Creators() ([]Creator, error)

	// PutBoxes upserts boxes, preserving each box's local-only fields
	// (Downloaded, LastAccessed, Progress) over the incoming copy.
	// Returns the merged records as stored.
	PutBoxes(boxes []Box) ([]Box, error)
	Box(setID string) (Box, error)
	Boxes() ([]Box, error)
	DownloadedBoxes() ([]Box, error)
	BoxesAccessedSince(t time.Time) ([]Box, error)
	SetDownloaded(setID string, downloaded bool) error

	PutCards(cards []Card) error
	Card(cardID string) (Card, error)
	// CardsBySet returns the cards of a box sorted by OrderIndex ascending.
	CardsBySet(setID string) ([]Card, error)

	// SaveProgress upserts the single progress record for setID and stamps
	// the owning box's LastAccessed in the same transaction. A nil completed
	// slice preserves the existing completed set; a non-nil one replaces it.
	SaveProgress(setID string, cardIndex int, completed []int, at time.Time) (Progress, error)
	Progress(setID string) (Progress, error)

	Close() error
}

// MediaCache stores remote media content addressed by source URL, so the
// presentation layer can render downloaded boxes without network access.
type MediaCache interface {
	Add(ctx context.Context, rawURL string) error
	Has(rawURL string) bool
	Path(rawURL string) (string, bool)
	Remove(rawURL string) error
	// Evict removes a batch of entries, tolerating per-entry failures.
	Evict(rawURLs []string)
}
