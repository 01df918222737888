package search

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/DivyanshMauryaaa/testgem/internal/store"
)

type engine interface {
	Searcher
	Indexer
}

// Service is the facade that tries Meilisearch first and falls back to the store.
// Index writes go through one queue so a record's updates and deletes reach
// Meilisearch in the order they were made.
type Service struct {
	primary  engine
	fallback Searcher
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
	ops    chan indexOp
	done   chan struct{}
}

type indexOp struct {
	doc    RecordDoc
	kind   store.Kind
	id     string
	delete bool
}

const indexQueueSize = 256

// NewService creates a search service. primary may be nil when Meilisearch is not configured.
func NewService(primary engine, fallback Searcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{primary: primary, fallback: fallback, logger: logger.Named("search")}
	if primary != nil {
		s.ops = make(chan indexOp, indexQueueSize)
		s.done = make(chan struct{})
		go s.run()
	}
	return s
}

func (s *Service) run() {
	defer close(s.done)
	for op := range s.ops {
		if op.delete {
			if err := s.primary.DeleteRecord(op.kind, op.id); err != nil {
				s.logger.Warn("delete record from index", zap.String("kind", string(op.kind)), zap.String("id", op.id), zap.Error(err))
			}
			continue
		}
		if err := s.primary.IndexRecords([]RecordDoc{op.doc}); err != nil {
			s.logger.Warn("index record", zap.String("kind", string(op.kind)), zap.String("id", op.id), zap.Error(err))
		}
	}
}

func (s *Service) enqueue(op indexOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ops == nil {
		return
	}
	s.ops <- op
}

// Close drains queued index writes and stops the worker.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed || s.ops == nil {
		s.closed = true
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ops)
	s.mu.Unlock()
	<-s.done
}

func (s *Service) primaryReady() bool {
	return s.primary != nil && s.primary.Healthy()
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" || q.Owner == "" {
		return Response{Results: []Result{}, Query: q.Text}
	}

	if s.primaryReady() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: "meilisearch"}
		}
		s.logger.Warn("meilisearch failed, falling back to store", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("fallback search failed", zap.Error(err))
		return Response{Results: []Result{}, Query: q.Text, Engine: "store"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: "store"}
}

// IndexRecord queues one record for Meilisearch.
func (s *Service) IndexRecord(r store.Record) {
	if !s.primaryReady() {
		return
	}
	s.enqueue(indexOp{doc: DocFromRecord(r), kind: r.Kind, id: r.ID})
}

// DeleteRecord queues the removal of one record from Meilisearch.
func (s *Service) DeleteRecord(kind store.Kind, id string) {
	if !s.primaryReady() {
		return
	}
	s.enqueue(indexOp{kind: kind, id: id, delete: true})
}

// ReindexAll synchronously pushes every record to Meilisearch and returns the count.
func (s *Service) ReindexAll(records []store.Record) (int, error) {
	if !s.primaryReady() {
		return 0, nil
	}
	docs := make([]RecordDoc, 0, len(records))
	for _, r := range records {
		docs = append(docs, DocFromRecord(r))
	}
	if err := s.primary.IndexRecords(docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
