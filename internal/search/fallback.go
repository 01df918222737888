package search

import (
	"context"
	"unicode/utf8"

	"github.com/DivyanshMauryaaa/testgem/internal/store"
)

type recordSearcher interface {
	SearchByOwner(ctx context.Context, userID string, kind store.Kind, text string, limit int) ([]store.Record, error)
}

// StoreSearcher runs the substring fallback against the record tables.
type StoreSearcher struct {
	records recordSearcher
}

func NewStoreSearcher(records recordSearcher) *StoreSearcher {
	return &StoreSearcher{records: records}
}

// Healthy always returns true; if the database is down the whole app is down.
func (s *StoreSearcher) Healthy() bool {
	return true
}

func (s *StoreSearcher) Search(ctx context.Context, q Query) ([]Result, int, error) {
	items, err := s.records.SearchByOwner(ctx, q.Owner, q.Kind, q.Text, q.Limit)
	if err != nil {
		return nil, 0, err
	}
	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, Result{
			ID:      item.ID,
			Kind:    item.Kind,
			Title:   item.Title,
			Snippet: snippet(item.Content, 160),
		})
	}
	return results, len(results), nil
}

func snippet(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "…"
}
