package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/CarlosIrineuCosta/boxiii/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketCreators = []byte("creators")
	bucketBoxes    = []byte("boxes")
	bucketCards    = []byte("cards")
	bucketProgress = []byte("progress")
)

// BoxStore implements domain.Store using BoltDB. One writer (this client),
// so no cross-process coordination is needed; bbolt serializes transactions.
type BoxStore struct {
	db *bolt.DB
}

// Open opens (or creates) the store at dir/boxiii.db.
func Open(dir string) (*BoxStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storageErr("create store directory", err)
	}

	dbPath := filepath.Join(dir, "boxiii.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, storageErr("open bolt db", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCreators, bucketBoxes, bucketCards, bucketProgress} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, storageErr("create buckets", err)
	}

	return &BoxStore{db: db}, nil
}

func (s *BoxStore) Close() error {
	return s.db.Close()
}

// storageErr wraps a bbolt failure so callers can match domain.ErrStorageFailure.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageFailure, op, err)
}

// === Generic helpers ===

func putRecord(b *bolt.Bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func getRecord(b *bolt.Bucket, key string, dest interface{}) (bool, error) {
	v := b.Get([]byte(key))
	if v == nil {
		return false, nil
	}
	return true, json.Unmarshal(v, dest)
}

// get reads a single record; absence is domain.ErrNotFound, not a failure.
func (s *BoxStore) get(bucket []byte, key string, dest interface{}) error {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getRecord(tx.Bucket(bucket), key, dest)
		return err
	})
	if err != nil {
		return storageErr("get "+string(bucket), err)
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}

// scan visits every record in a bucket.
func scan[T any](s *BoxStore, bucket []byte, visit func(T)) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			var rec T
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			visit(rec)
			return nil
		})
	})
	if err != nil {
		return storageErr("scan "+string(bucket), err)
	}
	return nil
}

// === Creators ===

func (s *BoxStore) PutCreators(creators []domain.Creator) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCreators)
		for _, c := range creators {
			if err := putRecord(b, c.CreatorID, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("put creators", err)
	}
	return nil
}

func (s *BoxStore) Creator(creatorID string) (domain.Creator, error) {
	var c domain.Creator
	err := s.get(bucketCreators, creatorID, &c)
	return c, err
}

func (s *BoxStore) Creators() ([]domain.Creator, error) {
	var creators []domain.Creator
	err := scan(s, bucketCreators, func(c domain.Creator) {
		creators = append(creators, c)
	})
	return creators, err
}

// === Boxes ===

// mergeBox applies the remote copy's fields while keeping the local-only
// fields of the stored copy. A raw overwrite here would silently clear the
// downloaded flag on every refresh.
func mergeBox(stored, incoming domain.Box) domain.Box {
	merged := incoming
	merged.Downloaded = stored.Downloaded
	merged.LastAccessed = stored.LastAccessed
	merged.Progress = stored.Progress
	return merged
}

func (s *BoxStore) PutBoxes(boxes []domain.Box) ([]domain.Box, error) {
	merged := make([]domain.Box, len(boxes))
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBoxes)
		for i, box := range boxes {
			var stored domain.Box
			found, err := getRecord(b, box.SetID, &stored)
			if err != nil {
				return err
			}
			if found {
				box = mergeBox(stored, box)
			}
			if err := putRecord(b, box.SetID, box); err != nil {
				return err
			}
			merged[i] = box
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("put boxes", err)
	}
	return merged, nil
}

func (s *BoxStore) Box(setID string) (domain.Box, error) {
	var box domain.Box
	err := s.get(bucketBoxes, setID, &box)
	return box, err
}

func (s *BoxStore) Boxes() ([]domain.Box, error) {
	var boxes []domain.Box
	err := scan(s, bucketBoxes, func(b domain.Box) {
		boxes = append(boxes, b)
	})
	return boxes, err
}

func (s *BoxStore) DownloadedBoxes() ([]domain.Box, error) {
	var boxes []domain.Box
	err := scan(s, bucketBoxes, func(b domain.Box) {
		if b.Downloaded {
			boxes = append(boxes, b)
		}
	})
	return boxes, err
}

// BoxesAccessedSince returns boxes opened at or after t, most recent first.
func (s *BoxStore) BoxesAccessedSince(t time.Time) ([]domain.Box, error) {
	var boxes []domain.Box
	err := scan(s, bucketBoxes, func(b domain.Box) {
		if b.AccessedSince(t) {
			boxes = append(boxes, b)
		}
	})
	if err != nil {
		return nil, err
	}
	domain.SortBoxesByLastAccessed(boxes)
	return boxes, nil
}

func (s *BoxStore) SetDownloaded(setID string, downloaded bool) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBoxes)
		var box domain.Box
		found, err := getRecord(b, setID, &box)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrNotFound
		}
		box.Downloaded = downloaded
		return putRecord(b, setID, box)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err != nil {
		return storageErr("set downloaded", err)
	}
	return nil
}

// === Cards ===

func (s *BoxStore) PutCards(cards []domain.Card) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCards)
		for _, c := range cards {
			if err := putRecord(b, c.CardID, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("put cards", err)
	}
	return nil
}

func (s *BoxStore) Card(cardID string) (domain.Card, error) {
	var c domain.Card
	err := s.get(bucketCards, cardID, &c)
	return c, err
}

// CardsBySet returns a box's cards sorted by OrderIndex ascending.
// Orphaned cards (their box row deleted) are still returned.
func (s *BoxStore) CardsBySet(setID string) ([]domain.Card, error) {
	var cards []domain.Card
	err := scan(s, bucketCards, func(c domain.Card) {
		if c.SetID == setID {
			cards = append(cards, c)
		}
	})
	if err != nil {
		return nil, err
	}
	domain.SortCards(cards)
	return cards, nil
}

// === Progress ===

// SaveProgress upserts the single progress record for setID and stamps the
// owning box's LastAccessed and completion ratio in the same transaction.
// A nil completed slice preserves the existing completed set.
func (s *BoxStore) SaveProgress(setID string, cardIndex int, completed []int, at time.Time) (domain.Progress, error) {
	var p domain.Progress
	err := s.db.Update(func(tx *bolt.Tx) error {
		pb := tx.Bucket(bucketProgress)

		found, err := getRecord(pb, setID, &p)
		if err != nil {
			return err
		}
		if !found {
			id, err := pb.NextSequence()
			if err != nil {
				return err
			}
			p = domain.Progress{ID: id, SetID: setID}
		}

		p.CardIndex = cardIndex
		if completed != nil {
			p.CompletedCards = domain.UnionIndices(completed, nil)
		}
		p.LastAccessed = at

		// Keep the owning box in sync: LastAccessed feeds the "my boxes"
		// list, Progress the completion indicator. The box may not exist
		// yet when progress arrives before a sync; that is tolerated.
		bb := tx.Bucket(bucketBoxes)
		var box domain.Box
		boxFound, err := getRecord(bb, setID, &box)
		if err != nil {
			return err
		}
		if boxFound {
			p.CardIndex = clampIndex(p.CardIndex, box.CardCount)
			box.LastAccessed = at
			box.Progress = p.CompletionRatio(box.CardCount)
			if err := putRecord(bb, setID, box); err != nil {
				return err
			}
		}

		return putRecord(pb, setID, p)
	})
	if err != nil {
		return domain.Progress{}, storageErr("save progress", err)
	}
	return p, nil
}

func (s *BoxStore) Progress(setID string) (domain.Progress, error) {
	var p domain.Progress
	err := s.get(bucketProgress, setID, &p)
	return p, err
}

// clampIndex bounds a card index to [0, cardCount). A box with no cards
// loaded yet keeps index 0.
func clampIndex(index, cardCount int) int {
	if index < 0 || cardCount <= 0 {
		return 0
	}
	if index >= cardCount {
		return cardCount - 1
	}
	return index
}
