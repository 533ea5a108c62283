package domain

import (
	"sort"
	"time"
)

// Creator is the author/publisher of boxes.
// Replaced wholesale whenever a fresher remote copy arrives.
type Creator struct {
	CreatorID   string `json:"creator_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Verified    bool   `json:"verified,omitempty"`
}

// Box is a titled bundle of ordered cards from one creator.
// The provider calls these "content sets", hence SetID.
type Box struct {
	SetID                string   `json:"set_id"`
	CreatorID            string   `json:"creator_id"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	CardCount            int      `json:"card_count"`
	DifficultyLevel      string   `json:"difficulty_level"`
	EstimatedTimeMinutes int      `json:"estimated_time_minutes"`
	Category             string   `json:"category,omitempty"`
	Tags                 []string `json:"tags,omitempty"`

	// Local-only fields. The provider never sends these; the store's merge
	// keeps them alive across remote refreshes.
	Downloaded   bool      `json:"downloaded,omitempty"`
	LastAccessed time.Time `json:"last_accessed,omitzero"`
	Progress     float64   `json:"progress,omitempty"` // completion ratio 0..1
}

// AccessedSince reports whether the box was opened at or after t.
// A zero LastAccessed means the box was never opened.
func (b Box) AccessedSince(t time.Time) bool {
	return !b.LastAccessed.IsZero() && !b.LastAccessed.Before(t)
}

// Media is a single media attachment on a card.
type Media struct {
	MediaType string `json:"media_type"` // "image", "video", "audio"
	URL       string `json:"url"`
	AltText   string `json:"alt_text,omitempty"`
}

// Card is a single content unit within a box.
type Card struct {
	CardID          string   `json:"card_id"`
	SetID           string   `json:"set_id"`
	CreatorID       string   `json:"creator_id"`
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	DetailedContent string   `json:"detailed_content"`
	OrderIndex      int      `json:"order_index"` // display order, unique within a set
	Media           []Media  `json:"media,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// SortBoxesByLastAccessed orders boxes most recently accessed first, in
// place. Boxes never opened (zero LastAccessed) sort last.
func SortBoxesByLastAccessed(boxes []Box) {
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].LastAccessed.After(boxes[j].LastAccessed)
	})
}

// SortCards orders cards by OrderIndex ascending, in place.
func SortCards(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].OrderIndex < cards[j].OrderIndex
	})
}

// Progress records the reading position for one box.
// There is at most one active record per SetID.
type Progress struct {
	ID             uint64    `json:"id"`
	SetID          string    `json:"set_id"`
	CardIndex      int       `json:"card_index"` // current position, 0-based
	CompletedCards []int     `json:"completed_cards"`
	LastAccessed   time.Time `json:"last_accessed"`
	Notes          string    `json:"notes,omitempty"`
}

// IsCompleted reports whether the card at index is marked completed.
func (p Progress) IsCompleted(index int) bool {
	for _, i := range p.CompletedCards {
		if i == index {
			return true
		}
	}
	return false
}

// CompletionRatio returns the fraction of cards completed out of cardCount.
// Returns 0 when cardCount is not positive.
func (p Progress) CompletionRatio(cardCount int) float64 {
	if cardCount <= 0 {
		return 0
	}
	ratio := float64(len(p.CompletedCards)) / float64(cardCount)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// UnionIndices merges two index sets, deduplicated and sorted ascending.
func UnionIndices(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	for _, i := range a {
		seen[i] = struct{}{}
	}
	for _, i := range b {
		seen[i] = struct{}{}
	}
	merged := make([]int, 0, len(seen))
	for i := range seen {
		merged = append(merged, i)
	}
	sort.Ints(merged)
	return merged
}
