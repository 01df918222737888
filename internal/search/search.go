package search

import (
	"context"

	"github.com/DivyanshMauryaaa/testgem/internal/store"
)

// Result is a single search hit returned to the caller.
type Result struct {
	ID      string     `json:"id"`
	Kind    store.Kind `json:"kind"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
}

// Query describes a search request. Owner is mandatory; every backend filters on it.
type Query struct {
	Owner string
	Text  string
	Kind  store.Kind // empty = all kinds
	Limit int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Engine  string   `json:"engine"`
}

// Searcher can execute a search scoped to one owner.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push records into a search index.
type Indexer interface {
	IndexRecords(docs []RecordDoc) error
	DeleteRecord(kind store.Kind, id string) error
}

// RecordDoc is the data we index for a record.
type RecordDoc struct {
	ID       string     `json:"id"`
	RecordID string     `json:"recordId"`
	Kind     store.Kind `json:"kind"`
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	UserID   string     `json:"userId"`
}

// DocID is the index primary key. Ids are only unique per table, so the kind is folded in.
func DocID(kind store.Kind, id string) string {
	return string(kind) + "_" + id
}

func DocFromRecord(r store.Record) RecordDoc {
	return RecordDoc{
		ID:       DocID(r.Kind, r.ID),
		RecordID: r.ID,
		Kind:     r.Kind,
		Title:    r.Title,
		Content:  r.Content,
		UserID:   r.UserID,
	}
}
