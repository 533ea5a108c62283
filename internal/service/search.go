package service

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/CarlosIrineuCosta/boxiii/internal/domain"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SearchService performs fuzzy search over the locally cached boxes and
// cards. It only reads the store, so search works offline by construction.
type SearchService struct {
	store  domain.Store
	logger *slog.Logger
}

// NewSearchService creates a search service.
func NewSearchService(store domain.Store, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{store: store, logger: logger}
}

// Boxes returns cached boxes matching the query against title, category,
// and tags, best matches first.
func (s *SearchService) Boxes(query string) ([]domain.Box, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	boxes, err := s.store.Boxes()
	if err != nil {
		return nil, err
	}

	type scored struct {
		box  domain.Box
		rank int
	}
	var matches []scored
	for _, box := range boxes {
		if rank, ok := rankMatch(query, box.Title, append([]string{box.Category}, box.Tags...)); ok {
			matches = append(matches, scored{box, rank})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })

	results := make([]domain.Box, len(matches))
	for i, m := range matches {
		results[i] = m.box
	}
	s.logger.Debug("box search", "query", query, "results", len(results))
	return results, nil
}

// Cards returns cached cards matching the query against title, summary, and
// tags, best matches first.
func (s *SearchService) Cards(query string) ([]domain.Card, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	// Scan all boxes' cards via their sets to keep ordering stable per box.
	boxes, err := s.store.Boxes()
	if err != nil {
		return nil, err
	}

	type scored struct {
		card domain.Card
		rank int
	}
	var matches []scored
	for _, box := range boxes {
		cards, err := s.store.CardsBySet(box.SetID)
		if err != nil {
			return nil, err
		}
		for _, card := range cards {
			if rank, ok := rankMatch(query, card.Title, append([]string{card.Summary}, card.Tags...)); ok {
				matches = append(matches, scored{card, rank})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })

	results := make([]domain.Card, len(matches))
	for i, m := range matches {
		results[i] = m.card
	}
	s.logger.Debug("card search", "query", query, "results", len(results))
	return results, nil
}

// substringRank is the rank for secondary-field substring hits. Fuzzy ranks
// are edit distances bounded by the field lengths, so this keeps every
// substring hit after every fuzzy hit across all entries.
const substringRank = 1 << 20

// rankMatch fuzzy-ranks a query against the primary field, falling back to
// substring matches on secondary fields.
func rankMatch(query, primary string, secondary []string) (int, bool) {
	if rank := fuzzy.RankMatchNormalizedFold(query, primary); rank >= 0 {
		return rank, true
	}
	lower := strings.ToLower(query)
	for _, field := range secondary {
		if field != "" && strings.Contains(strings.ToLower(field), lower) {
			return substringRank, true
		}
	}
	return 0, false
}
