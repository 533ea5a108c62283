package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarlosIrineuCosta/boxiii/internal/domain"
	"github.com/CarlosIrineuCosta/boxiii/internal/log"
	"github.com/CarlosIrineuCosta/boxiii/internal/store"
)

// fakeSource is an in-memory domain.ContentSource that counts calls, so
// tests can assert that offline paths never touch the network.
type fakeSource struct {
	creators []domain.Creator
	boxes    []domain.Box
	cards    []domain.Card

	err        error // returned by every fetch when set
	itemLookup bool
	calls      int
}

func (f *fakeSource) FetchCreators(ctx context.Context) ([]domain.Creator, error) {
	f.calls++
	return f.creators, f.err
}

func (f *fakeSource) FetchBoxes(ctx context.Context) ([]domain.Box, error) {
	f.calls++
	return f.boxes, f.err
}

func (f *fakeSource) FetchCards(ctx context.Context, setID string) ([]domain.Card, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var cards []domain.Card
	for _, c := range f.cards {
		if setID == "" || c.SetID == setID {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

func (f *fakeSource) FetchBox(ctx context.Context, setID string) (*domain.Box, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.boxes {
		if f.boxes[i].SetID == setID {
			return &f.boxes[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSource) FetchCreator(ctx context.Context, creatorID string) (*domain.Creator, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.creators {
		if f.creators[i].CreatorID == creatorID {
			return &f.creators[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSource) SupportsItemLookup() bool { return f.itemLookup }

func online() domain.Connectivity {
	return domain.ConnectivityFunc(func(context.Context) bool { return true })
}

func offline() domain.Connectivity {
	return domain.ConnectivityFunc(func(context.Context) bool { return false })
}

func newTestStore(t *testing.T) *store.BoxStore {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoxes_WriteThrough(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{boxes: []domain.Box{
		{SetID: "set-1", Title: "Ocean Mysteries", CardCount: 3},
		{SetID: "set-2", Title: "Space Basics", CardCount: 5},
	}}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	boxes, err := svc.Boxes(context.Background())
	require.NoError(t, err)
	assert.Len(t, boxes, 2)

	// Every returned record is immediately retrievable locally.
	for _, want := range src.boxes {
		got, err := st.Box(want.SetID)
		require.NoError(t, err)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.CardCount, got.CardCount)
	}
}

func TestBoxes_OfflineFallbackMakesNoNetworkCalls(t *testing.T) {
	st := newTestStore(t)
	_, err := st.PutBoxes([]domain.Box{{SetID: "set-1", Title: "Cached"}})
	require.NoError(t, err)

	src := &fakeSource{boxes: []domain.Box{{SetID: "set-2"}}}
	svc := NewSyncService(src, st, offline(), log.NullLogger())

	boxes, err := svc.Boxes(context.Background())
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, "set-1", boxes[0].SetID)
	assert.Zero(t, src.calls, "offline reads must not attempt the network")
}

func TestBoxes_RemoteFailureFallsBackToLocal(t *testing.T) {
	st := newTestStore(t)
	_, err := st.PutBoxes([]domain.Box{{SetID: "set-1", Title: "Cached"}})
	require.NoError(t, err)

	src := &fakeSource{err: domain.ErrSourceOffline}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	boxes, err := svc.Boxes(context.Background())
	require.NoError(t, err, "network failures never reach the caller on read paths")
	require.Len(t, boxes, 1)
	assert.Equal(t, "Cached", boxes[0].Title)
}

func TestBoxes_SyncPreservesDownloadedFlag(t *testing.T) {
	st := newTestStore(t)
	_, err := st.PutBoxes([]domain.Box{{SetID: "set-1", Title: "Old"}})
	require.NoError(t, err)
	require.NoError(t, st.SetDownloaded("set-1", true))

	src := &fakeSource{boxes: []domain.Box{{SetID: "set-1", Title: "Refreshed"}}}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	boxes, err := svc.Boxes(context.Background())
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, "Refreshed", boxes[0].Title)
	assert.True(t, boxes[0].Downloaded)
}

func TestCards_SortedByOrderIndex(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{cards: []domain.Card{
		{CardID: "c3", SetID: "set-1", OrderIndex: 3},
		{CardID: "c1", SetID: "set-1", OrderIndex: 1},
		{CardID: "c2", SetID: "set-1", OrderIndex: 2},
	}}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	cards, err := svc.Cards(context.Background(), "set-1")
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "c1", cards[0].CardID)
	assert.Equal(t, "c3", cards[2].CardID)

	// And the same order offline, from the store.
	svc = NewSyncService(src, st, offline(), log.NullLogger())
	cards, err = svc.Cards(context.Background(), "set-1")
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "c1", cards[0].CardID)
}

func TestBox_SingleLookup(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{
		boxes:      []domain.Box{{SetID: "set-1", Title: "Ocean Mysteries"}},
		itemLookup: true,
	}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	box, err := svc.Box(context.Background(), "set-1")
	require.NoError(t, err)
	assert.Equal(t, "Ocean Mysteries", box.Title)

	// Written through.
	got, err := st.Box("set-1")
	require.NoError(t, err)
	assert.Equal(t, "Ocean Mysteries", got.Title)
}

func TestBox_CollectionFallbackWithoutItemLookup(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{
		boxes: []domain.Box{
			{SetID: "set-1", Title: "Ocean Mysteries"},
			{SetID: "set-2", Title: "Space Basics"},
		},
		itemLookup: false,
	}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	box, err := svc.Box(context.Background(), "set-2")
	require.NoError(t, err)
	assert.Equal(t, "Space Basics", box.Title)

	// The whole collection was written through along the way.
	got, err := st.Box("set-1")
	require.NoError(t, err)
	assert.Equal(t, "Ocean Mysteries", got.Title)
}

func TestBox_NotFoundAnywhere(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{itemLookup: true}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	_, err := svc.Box(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreator_SingleLookupFallsBackToLocal(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.PutCreators([]domain.Creator{{CreatorID: "creator-1", DisplayName: "Cached Ana"}}))

	src := &fakeSource{err: domain.ErrSourceOffline, itemLookup: true}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	creator, err := svc.Creator(context.Background(), "creator-1")
	require.NoError(t, err)
	assert.Equal(t, "Cached Ana", creator.DisplayName)
}

func TestMyBoxes_MergeAndOrder(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()

	// Box A: downloaded, stale access. Box B: not downloaded, fresh access.
	// Box C: neither downloaded nor recent, must not appear.
	_, err := st.PutBoxes([]domain.Box{{SetID: "box-a"}, {SetID: "box-b"}, {SetID: "box-c"}})
	require.NoError(t, err)
	require.NoError(t, st.SetDownloaded("box-a", true))
	_, err = st.SaveProgress("box-a", 0, nil, now.Add(-40*24*time.Hour))
	require.NoError(t, err)
	_, err = st.SaveProgress("box-b", 0, nil, now.Add(-24*time.Hour))
	require.NoError(t, err)
	_, err = st.SaveProgress("box-c", 0, nil, now.Add(-60*24*time.Hour))
	require.NoError(t, err)

	svc := NewSyncService(&fakeSource{}, st, offline(), log.NullLogger())

	boxes, err := svc.MyBoxes(context.Background())
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, "box-b", boxes[0].SetID, "most recently accessed first")
	assert.Equal(t, "box-a", boxes[1].SetID, "downloaded boxes stay regardless of age")
}

func TestMyBoxes_DeduplicatesBySetID(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()

	_, err := st.PutBoxes([]domain.Box{{SetID: "box-a"}})
	require.NoError(t, err)
	require.NoError(t, st.SetDownloaded("box-a", true))
	_, err = st.SaveProgress("box-a", 0, nil, now.Add(-time.Hour))
	require.NoError(t, err)

	svc := NewSyncService(&fakeSource{}, st, offline(), log.NullLogger())

	boxes, err := svc.MyBoxes(context.Background())
	require.NoError(t, err)
	assert.Len(t, boxes, 1)
}

func TestMyBoxes_BackgroundSyncPicksUpNewBoxes(t *testing.T) {
	st := newTestStore(t)
	src := &fakeSource{boxes: []domain.Box{{SetID: "box-new"}}}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	// The background sync stores box-new; it is neither downloaded nor
	// recently accessed, so the merged list stays empty, but the record
	// must now exist locally.
	boxes, err := svc.MyBoxes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, boxes)

	_, err = st.Box("box-new")
	assert.NoError(t, err)
}

func TestMyBoxes_SyncFailureIsNonFatal(t *testing.T) {
	st := newTestStore(t)
	_, err := st.PutBoxes([]domain.Box{{SetID: "box-a"}})
	require.NoError(t, err)
	require.NoError(t, st.SetDownloaded("box-a", true))

	src := &fakeSource{err: domain.ErrSourceOffline}
	svc := NewSyncService(src, st, online(), log.NullLogger())

	boxes, err := svc.MyBoxes(context.Background())
	require.NoError(t, err)
	assert.Len(t, boxes, 1)
}
