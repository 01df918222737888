package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DivyanshMauryaaa/testgem/internal/ai"
	"github.com/DivyanshMauryaaa/testgem/internal/auth"
	"github.com/DivyanshMauryaaa/testgem/internal/config"
	"github.com/DivyanshMauryaaa/testgem/internal/events"
	"github.com/DivyanshMauryaaa/testgem/internal/export"
	"github.com/DivyanshMauryaaa/testgem/internal/history"
	"github.com/DivyanshMauryaaa/testgem/internal/logging"
	"github.com/DivyanshMauryaaa/testgem/internal/objectstore"
	"github.com/DivyanshMauryaaa/testgem/internal/proposal"
	"github.com/DivyanshMauryaaa/testgem/internal/search"
	"github.com/DivyanshMauryaaa/testgem/internal/store"
	"github.com/DivyanshMauryaaa/testgem/internal/util"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	JTI       string
	ExpiresAt time.Time
}

// Dashboard is the initial load: every record the owner has, per kind.
type Dashboard struct {
	Documents  []store.Record
	Notes      []store.Record
	Workspaces []store.Record
}

type ExportLink struct {
	URL       string
	Key       string
	ExpiresAt time.Time
}

type RecordRepository interface {
	ListByOwner(ctx context.Context, kind store.Kind, userID string) ([]store.Record, error)
	ListAll(ctx context.Context, kind store.Kind) ([]store.Record, error)
	Get(ctx context.Context, kind store.Kind, id, userID string) (store.Record, error)
	Insert(ctx context.Context, item store.Record) (store.Record, error)
	UpdateTitle(ctx context.Context, kind store.Kind, id, userID, title string) error
	UpdateContent(ctx context.Context, kind store.Kind, id, userID, content string) error
	Delete(ctx context.Context, kind store.Kind, id, userID string) error
	Ping(ctx context.Context) error
}

type Searcher interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexRecord(r store.Record)
	DeleteRecord(kind store.Kind, id string)
	ReindexAll(records []store.Record) (int, error)
}

type HistoryLog interface {
	Commit(r store.Record, author, message string) (history.Commit, error)
	Log(kind store.Kind, id string, limit int) ([]history.Commit, error)
	At(kind store.Kind, id, hash string) (history.Snapshot, error)
	Remove(kind store.Kind, id string) error
}

type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Deps are the collaborators of a Service. Records and Proposals are
// required; a nil optional collaborator disables its feature.
type Deps struct {
	Records   RecordRepository
	Proposals proposal.Store
	Generator ai.Generator
	Search    Searcher
	History   HistoryLog
	Events    events.Publisher
	Exporter  Exporter
	Objects   ObjectStore
	Logger    *zap.Logger
}

type Service struct {
	cfg       config.Config
	records   RecordRepository
	proposals proposal.Store
	generator ai.Generator
	search    Searcher
	history   HistoryLog
	events    events.Publisher
	exporter  Exporter
	objects   ObjectStore
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	logger := logging.OrNop(deps.Logger)
	publisher := deps.Events
	if publisher == nil {
		publisher = events.Noop{}
	}
	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.NewService()
	}
	return &Service{
		cfg:       cfg,
		records:   deps.Records,
		proposals: deps.Proposals,
		generator: deps.Generator,
		search:    deps.Search,
		history:   deps.History,
		events:    publisher,
		exporter:  exporter,
		objects:   deps.Objects,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.records.Ping(ctx)
}

func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.AuthSecret), token)
	if err != nil {
		return Session{}, err
	}
	name := claims.Name
	if name == "" {
		name = claims.Sub
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  name,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// IssueToken mints a bearer token for a user id. The sign-in flow lives
// outside this service; the CLI uses this for local development.
func (s *Service) IssueToken(userID, name string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", validationError("user id is required")
	}
	return auth.IssueToken([]byte(s.cfg.AuthSecret), auth.Claims{
		Sub:  userID,
		Name: name,
		JTI:  util.NewID("jti"),
		Exp:  s.now().Add(ttl).Unix(),
	})
}

func (s *Service) ListRecords(ctx context.Context, kind store.Kind, owner string) ([]store.Record, error) {
	return s.records.ListByOwner(ctx, kind, owner)
}

func (s *Service) Dashboard(ctx context.Context, owner string) (Dashboard, error) {
	var d Dashboard
	targets := map[store.Kind]*[]store.Record{
		store.KindDocuments:  &d.Documents,
		store.KindNotes:      &d.Notes,
		store.KindWorkspaces: &d.Workspaces,
	}
	for _, kind := range store.Kinds {
		items, err := s.records.ListByOwner(ctx, kind, owner)
		if err != nil {
			s.logger.Error("dashboard load failed", zap.String("kind", string(kind)), zap.String("user_id", owner), zap.Error(err))
			return Dashboard{}, err
		}
		*targets[kind] = items
	}
	return d, nil
}

func (s *Service) GetRecord(ctx context.Context, kind store.Kind, id, owner string) (store.Record, error) {
	return s.records.Get(ctx, kind, id, owner)
}

func (s *Service) CreateRecord(ctx context.Context, kind store.Kind, owner, title, content string) (store.Record, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Record{}, errTitleRequired
	}
	created, err := s.records.Insert(ctx, store.Record{
		ID:      util.NewID(""),
		Kind:    kind,
		Title:   title,
		Content: content,
		UserID:  owner,
	})
	if err != nil {
		s.logger.Error("create record failed", zap.String("kind", string(kind)), zap.String("user_id", owner), zap.Error(err))
		return store.Record{}, err
	}
	s.afterWrite(ctx, events.RecordCreated, created, owner, "Create "+created.Title)
	return created, nil
}

func (s *Service) RenameRecord(ctx context.Context, kind store.Kind, id, owner, title string) (store.Record, error) {
	if strings.TrimSpace(id) == "" {
		return store.Record{}, errIDRequired
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Record{}, errTitleRequired
	}
	current, err := s.records.Get(ctx, kind, id, owner)
	if err != nil {
		return store.Record{}, err
	}
	if err := s.records.UpdateTitle(ctx, kind, id, owner, title); err != nil {
		s.logger.Warn("rename failed", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		return store.Record{}, err
	}
	current.Title = title
	s.afterWrite(ctx, events.RecordUpdated, current, owner, "Rename to "+title)
	return current, nil
}

// UpdateContent replaces a record's content. Side effects see the record as
// written, without re-reading it.
func (s *Service) UpdateContent(ctx context.Context, kind store.Kind, id, owner, content string) (store.Record, error) {
	if strings.TrimSpace(id) == "" {
		return store.Record{}, errIDRequired
	}
	current, err := s.records.Get(ctx, kind, id, owner)
	if err != nil {
		return store.Record{}, err
	}
	if err := s.records.UpdateContent(ctx, kind, id, owner, content); err != nil {
		s.logger.Warn("content update failed", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		return store.Record{}, err
	}
	current.Content = content
	s.afterWrite(ctx, events.RecordUpdated, current, owner, "Update content")
	return current, nil
}

func (s *Service) DeleteRecord(ctx context.Context, kind store.Kind, id, owner string) error {
	if strings.TrimSpace(id) == "" {
		return errIDRequired
	}
	if err := s.records.Delete(ctx, kind, id, owner); err != nil {
		s.logger.Warn("delete failed", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		return err
	}

	if s.search != nil {
		s.search.DeleteRecord(kind, id)
	}
	if s.history != nil {
		if err := s.history.Remove(kind, id); err != nil {
			s.logger.Warn("history remove failed", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		}
	}
	s.publish(ctx, events.Event{Type: events.RecordDeleted, Kind: kind, RecordID: id, UserID: owner})
	return nil
}

// Generate runs a free-text prompt through the model and returns the first candidate.
func (s *Service) Generate(ctx context.Context, owner, prompt string) (string, error) {
	prompt = ai.BuildGeneratePrompt(prompt)
	if prompt == "" {
		return "", errPromptRequired
	}
	if s.generator == nil {
		return "", errAINotConfigured
	}
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("generate failed", zap.String("user_id", owner), zap.Error(err))
		return "", errAIUnavailable
	}
	return text, nil
}

// ProposeEdit asks the model to rewrite a record and parks the result as a
// proposal. The record itself is not touched.
func (s *Service) ProposeEdit(ctx context.Context, kind store.Kind, id, owner, instruction string) (proposal.Proposal, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return proposal.Proposal{}, errInstructionRequired
	}
	if s.generator == nil {
		return proposal.Proposal{}, errAINotConfigured
	}
	record, err := s.records.Get(ctx, kind, id, owner)
	if err != nil {
		return proposal.Proposal{}, err
	}

	text, err := s.generator.Generate(ctx, ai.BuildEditPrompt(record.Content, instruction))
	if err != nil {
		s.logger.Error("ai edit failed", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		return proposal.Proposal{}, errAIUnavailable
	}

	p := proposal.Proposal{
		ID:          util.NewID("prop"),
		Kind:        kind,
		RecordID:    id,
		UserID:      owner,
		Instruction: instruction,
		Content:     text,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.proposals.Save(ctx, p); err != nil {
		s.logger.Error("save proposal failed", zap.String("id", id), zap.Error(err))
		return proposal.Proposal{}, err
	}
	return p, nil
}

func (s *Service) ownedProposal(ctx context.Context, proposalID, owner string) (proposal.Proposal, error) {
	if strings.TrimSpace(proposalID) == "" {
		return proposal.Proposal{}, errIDRequired
	}
	p, err := s.proposals.Get(ctx, proposalID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if p.UserID != owner {
		return proposal.Proposal{}, proposal.ErrNotFound
	}
	return p, nil
}

// AcceptProposal overwrites the content of exactly the record the proposal targets.
func (s *Service) AcceptProposal(ctx context.Context, proposalID, owner string) (store.Record, error) {
	p, err := s.ownedProposal(ctx, proposalID, owner)
	if err != nil {
		return store.Record{}, err
	}

	current, err := s.records.Get(ctx, p.Kind, p.RecordID, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.dropProposal(ctx, p.ID)
		}
		return store.Record{}, err
	}
	if err := s.records.UpdateContent(ctx, p.Kind, p.RecordID, owner, p.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.dropProposal(ctx, p.ID)
		}
		s.logger.Warn("accept proposal failed", zap.String("proposal_id", p.ID), zap.Error(err))
		return store.Record{}, err
	}
	s.dropProposal(ctx, p.ID)

	current.Content = p.Content
	s.afterWrite(ctx, events.ProposalAccepted, current, owner, "Accept AI edit: "+p.Instruction)
	return current, nil
}

func (s *Service) RejectProposal(ctx context.Context, proposalID, owner string) error {
	p, err := s.ownedProposal(ctx, proposalID, owner)
	if err != nil {
		return err
	}
	return s.proposals.Delete(ctx, p.ID)
}

func (s *Service) dropProposal(ctx context.Context, id string) {
	if err := s.proposals.Delete(ctx, id); err != nil {
		s.logger.Warn("delete proposal failed", zap.String("proposal_id", id), zap.Error(err))
	}
}

func (s *Service) Export(ctx context.Context, kind store.Kind, id, owner string, format export.Format) (*export.Result, error) {
	record, err := s.records.Get(ctx, kind, id, owner)
	if err != nil {
		return nil, err
	}
	result, err := s.exporter.Export(ctx, export.Request{Title: record.Title, Content: record.Content, Format: format})
	if err != nil {
		s.logger.Warn("export failed", zap.String("kind", string(kind)), zap.String("id", id), zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ExportLink uploads an export and returns a presigned download URL.
func (s *Service) ExportLink(ctx context.Context, kind store.Kind, id, owner string, format export.Format) (ExportLink, error) {
	if s.objects == nil {
		return ExportLink{}, errStorageUnavailable
	}
	result, err := s.Export(ctx, kind, id, owner, format)
	if err != nil {
		return ExportLink{}, err
	}

	key := objectstore.ExportKey(owner, string(kind), id, result.Filename)
	if err := s.objects.Put(ctx, key, result.MimeType, result.Data); err != nil {
		s.logger.Error("upload export failed", zap.String("key", key), zap.Error(err))
		return ExportLink{}, err
	}
	ttl := s.cfg.ExportLinkTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	link, err := s.objects.PresignedGet(ctx, key, ttl)
	if err != nil {
		return ExportLink{}, err
	}
	return ExportLink{URL: link, Key: key, ExpiresAt: s.now().Add(ttl).UTC()}, nil
}

func (s *Service) Search(ctx context.Context, owner, text string, kind store.Kind, limit int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: strings.TrimSpace(text)}
	}
	return s.search.Search(ctx, search.Query{Owner: owner, Text: text, Kind: kind, Limit: limit})
}

func (s *Service) History(ctx context.Context, kind store.Kind, id, owner string, limit int) ([]history.Commit, error) {
	if _, err := s.records.Get(ctx, kind, id, owner); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []history.Commit{}, nil
	}
	return s.history.Log(kind, id, limit)
}

// Snapshot returns a record as it was at one history commit.
func (s *Service) Snapshot(ctx context.Context, kind store.Kind, id, owner, hash string) (history.Snapshot, error) {
	if _, err := s.records.Get(ctx, kind, id, owner); err != nil {
		return history.Snapshot{}, err
	}
	if s.history == nil {
		return history.Snapshot{}, errHistoryDisabled
	}
	return s.history.At(kind, id, hash)
}

// Reindex pushes every record of every owner into the search index.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	all := make([]store.Record, 0)
	for _, kind := range store.Kinds {
		items, err := s.records.ListAll(ctx, kind)
		if err != nil {
			return 0, fmt.Errorf("load %s: %w", kind, err)
		}
		all = append(all, items...)
	}
	return s.search.ReindexAll(all)
}

// afterWrite runs the best-effort side effects of a successful write.
func (s *Service) afterWrite(ctx context.Context, typ events.Type, r store.Record, author, message string) {
	if s.search != nil {
		s.search.IndexRecord(r)
	}
	if s.history != nil {
		if _, err := s.history.Commit(r, author, message); err != nil {
			s.logger.Warn("history commit failed", zap.String("kind", string(r.Kind)), zap.String("id", r.ID), zap.Error(err))
		}
	}
	s.publish(ctx, events.Event{Type: typ, Kind: r.Kind, RecordID: r.ID, UserID: r.UserID})
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if e.ID == "" {
		e.ID = util.NewID("evt")
	}
	if e.At.IsZero() {
		e.At = s.now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("publish event failed", zap.String("type", string(e.Type)), zap.String("record_id", e.RecordID), zap.Error(err))
	}
}
