package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DivyanshMauryaaa/testgem/internal/store"
)

type fakeEngine struct {
	mu       sync.Mutex
	healthy  bool
	searchFn func(q Query) ([]Result, int, error)
	indexed  []RecordDoc
	deleted  []string
	log      []string
	indexCh  chan struct{}
	delay    time.Duration
}

func (f *fakeEngine) Healthy() bool { return f.healthy }

func (f *fakeEngine) Search(_ context.Context, q Query) ([]Result, int, error) {
	return f.searchFn(q)
}

func (f *fakeEngine) IndexRecords(docs []RecordDoc) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.indexed = append(f.indexed, docs...)
	for _, d := range docs {
		f.log = append(f.log, "index:"+d.ID)
	}
	f.mu.Unlock()
	if f.indexCh != nil {
		f.indexCh <- struct{}{}
	}
	return nil
}

func (f *fakeEngine) DeleteRecord(kind store.Kind, id string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, DocID(kind, id))
	f.log = append(f.log, "delete:"+DocID(kind, id))
	f.mu.Unlock()
	if f.indexCh != nil {
		f.indexCh <- struct{}{}
	}
	return nil
}

type fakeRecords struct {
	calls int
	fn    func(userID string, kind store.Kind, text string, limit int) ([]store.Record, error)
}

func (f *fakeRecords) SearchByOwner(_ context.Context, userID string, kind store.Kind, text string, limit int) ([]store.Record, error) {
	f.calls++
	return f.fn(userID, kind, text, limit)
}

func TestServiceUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &fakeEngine{healthy: true, searchFn: func(q Query) ([]Result, int, error) {
		if q.Owner != "user-1" || q.Text != "cells" {
			t.Fatalf("unexpected query: %+v", q)
		}
		return []Result{{ID: "1", Kind: store.KindNotes, Title: "Cells"}}, 1, nil
	}}
	records := &fakeRecords{fn: func(string, store.Kind, string, int) ([]store.Record, error) {
		t.Fatal("fallback should not run")
		return nil, nil
	}}

	svc := NewService(primary, NewStoreSearcher(records), nil)
	resp := svc.Search(context.Background(), Query{Owner: "user-1", Text: " cells "})
	if resp.Engine != "meilisearch" || len(resp.Results) != 1 || resp.Total != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestServiceFallsBackOnPrimaryError(t *testing.T) {
	primary := &fakeEngine{healthy: true, searchFn: func(Query) ([]Result, int, error) {
		return nil, 0, errors.New("boom")
	}}
	records := &fakeRecords{fn: func(userID string, kind store.Kind, text string, limit int) ([]store.Record, error) {
		if userID != "user-1" || kind != store.KindDocuments || text != "quiz" || limit != 5 {
			t.Fatalf("unexpected fallback args: %s %s %s %d", userID, kind, text, limit)
		}
		return []store.Record{{ID: "d1", Kind: store.KindDocuments, Title: "Quiz", Content: "Q1 - ?", UserID: "user-1"}}, nil
	}}

	svc := NewService(primary, NewStoreSearcher(records), nil)
	resp := svc.Search(context.Background(), Query{Owner: "user-1", Text: "quiz", Kind: store.KindDocuments, Limit: 5})
	if resp.Engine != "store" || len(resp.Results) != 1 || resp.Results[0].Snippet != "Q1 - ?" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestServiceWithoutPrimary(t *testing.T) {
	records := &fakeRecords{fn: func(string, store.Kind, string, int) ([]store.Record, error) {
		return nil, errors.New("db down")
	}}
	svc := NewService(nil, NewStoreSearcher(records), nil)

	resp := svc.Search(context.Background(), Query{Owner: "user-1", Text: "x"})
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty results, got %+v", resp)
	}

	blank := svc.Search(context.Background(), Query{Owner: "user-1", Text: "   "})
	if len(blank.Results) != 0 || records.calls != 1 {
		t.Fatalf("blank query should not hit the store: calls=%d", records.calls)
	}
}

func TestServiceIndexAndDeleteAreAsync(t *testing.T) {
	primary := &fakeEngine{healthy: true, indexCh: make(chan struct{}, 2)}
	svc := NewService(primary, nil, nil)

	svc.IndexRecord(store.Record{ID: "n1", Kind: store.KindNotes, Title: "T", UserID: "u"})
	svc.DeleteRecord(store.KindNotes, "n1")

	for i := 0; i < 2; i++ {
		select {
		case <-primary.indexCh:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for background index call")
		}
	}

	primary.mu.Lock()
	defer primary.mu.Unlock()
	if len(primary.indexed) != 1 || primary.indexed[0].ID != "notes_n1" || primary.indexed[0].UserID != "u" {
		t.Fatalf("unexpected indexed docs: %+v", primary.indexed)
	}
	if len(primary.deleted) != 1 || primary.deleted[0] != "notes_n1" {
		t.Fatalf("unexpected deletes: %+v", primary.deleted)
	}
}

func TestServiceSkipsIndexWhenUnhealthy(t *testing.T) {
	primary := &fakeEngine{healthy: false}
	svc := NewService(primary, nil, nil)
	svc.IndexRecord(store.Record{ID: "n1", Kind: store.KindNotes})

	n, err := svc.ReindexAll([]store.Record{{ID: "n1", Kind: store.KindNotes}})
	if err != nil || n != 0 {
		t.Fatalf("ReindexAll() = %d, %v", n, err)
	}
}

func TestReindexAll(t *testing.T) {
	primary := &fakeEngine{healthy: true}
	svc := NewService(primary, nil, nil)

	n, err := svc.ReindexAll([]store.Record{
		{ID: "1", Kind: store.KindDocuments},
		{ID: "1", Kind: store.KindNotes},
	})
	if err != nil || n != 2 {
		t.Fatalf("ReindexAll() = %d, %v", n, err)
	}
	if primary.indexed[0].ID == primary.indexed[1].ID {
		t.Fatalf("doc ids must differ across kinds: %+v", primary.indexed)
	}
}

func TestSnippetTruncatesRunes(t *testing.T) {
	if got := snippet("héllo wörld", 5); got != "héllo…" {
		t.Fatalf("snippet() = %q", got)
	}
	if got := snippet("short", 10); got != "short" {
		t.Fatalf("snippet() = %q", got)
	}
}

func TestServiceAppliesIndexWritesInOrder(t *testing.T) {
	primary := &fakeEngine{healthy: true, delay: 5 * time.Millisecond}
	svc := NewService(primary, nil, nil)

	rec := store.Record{ID: "d1", Kind: store.KindDocuments, Title: "Quiz", UserID: "u"}
	svc.IndexRecord(rec)
	rec.Title = "Final"
	svc.IndexRecord(rec)
	svc.DeleteRecord(store.KindDocuments, "d1")
	svc.Close()

	primary.mu.Lock()
	defer primary.mu.Unlock()
	want := []string{"index:documents_d1", "index:documents_d1", "delete:documents_d1"}
	if len(primary.log) != len(want) {
		t.Fatalf("unexpected engine calls: %v", primary.log)
	}
	for i := range want {
		if primary.log[i] != want[i] {
			t.Fatalf("engine calls out of order: %v", primary.log)
		}
	}
}

func TestServiceCloseIsIdempotent(t *testing.T) {
	primary := &fakeEngine{healthy: true}
	svc := NewService(primary, nil, nil)
	svc.Close()
	svc.Close()
	svc.IndexRecord(store.Record{ID: "late", Kind: store.KindNotes})

	primary.mu.Lock()
	defer primary.mu.Unlock()
	if len(primary.indexed) != 0 {
		t.Fatalf("index after close should be dropped: %+v", primary.indexed)
	}

	NewService(nil, nil, nil).Close()
}
