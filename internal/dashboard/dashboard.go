// Package dashboard holds the client-side view state of the TestGem
// dashboard. Every mutation goes to the API first; local state changes only
// after the remote call succeeds.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/DivyanshMauryaaa/testgem/internal/logging"
	"github.com/DivyanshMauryaaa/testgem/pkg/testgem"
)

var (
	ErrTitleRequired = errors.New("please enter a title")
	ErrNoProposal    = errors.New("no open proposal")
	ErrUnknownKind   = errors.New("unknown record kind")
)

type API interface {
	Dashboard(ctx context.Context) (testgem.Dashboard, error)
	Create(ctx context.Context, kind testgem.Kind, title, content string) (testgem.Record, error)
	Rename(ctx context.Context, kind testgem.Kind, id, title string) (testgem.Record, error)
	Delete(ctx context.Context, kind testgem.Kind, id string) error
	ProposeEdit(ctx context.Context, kind testgem.Kind, id, instruction string) (testgem.Proposal, error)
	AcceptProposal(ctx context.Context, proposalID string) (testgem.Record, error)
	RejectProposal(ctx context.Context, proposalID string) error
}

type Dashboard struct {
	api    API
	logger *zap.Logger

	mu         sync.Mutex
	Documents  []testgem.Record
	Notes      []testgem.Record
	Workspaces []testgem.Record
	Proposal   *testgem.Proposal
}

func New(api API, logger *zap.Logger) *Dashboard {
	return &Dashboard{api: api, logger: logging.OrNop(logger)}
}

func (d *Dashboard) Load(ctx context.Context) error {
	data, err := d.api.Dashboard(ctx)
	if err != nil {
		d.logger.Error("load dashboard", zap.Error(err))
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Documents = nonNil(data.Documents)
	d.Notes = nonNil(data.Notes)
	d.Workspaces = nonNil(data.Workspaces)
	return nil
}

// Items returns a copy of the loaded records of one kind.
func (d *Dashboard) Items(kind testgem.Kind) []testgem.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot, err := d.slot(kind)
	if err != nil {
		return nil
	}
	return append([]testgem.Record(nil), (*slot)...)
}

// Rename with a blank title is a no-op.
func (d *Dashboard) Rename(ctx context.Context, kind testgem.Kind, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	if _, err := d.lockedSlot(kind); err != nil {
		return err
	}
	updated, err := d.api.Rename(ctx, kind, id, title)
	if err != nil {
		d.logger.Error("rename", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	slot, _ := d.slot(kind)
	for i := range *slot {
		if (*slot)[i].ID == id {
			(*slot)[i].Title = updated.Title
		}
	}
	return nil
}

func (d *Dashboard) Delete(ctx context.Context, kind testgem.Kind, id string) error {
	if _, err := d.lockedSlot(kind); err != nil {
		return err
	}
	if err := d.api.Delete(ctx, kind, id); err != nil {
		d.logger.Error("delete", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	slot, _ := d.slot(kind)
	kept := make([]testgem.Record, 0, len(*slot))
	for _, item := range *slot {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	*slot = kept
	return nil
}

// SaveGenerated stores generated text as a new record of kind.
func (d *Dashboard) SaveGenerated(ctx context.Context, kind testgem.Kind, title, content string) (testgem.Record, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return testgem.Record{}, ErrTitleRequired
	}
	if _, err := d.lockedSlot(kind); err != nil {
		return testgem.Record{}, err
	}
	created, err := d.api.Create(ctx, kind, title, content)
	if err != nil {
		d.logger.Error("save generated", zap.String("kind", string(kind)), zap.Error(err))
		return testgem.Record{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	slot, _ := d.slot(kind)
	*slot = append(*slot, created)
	return created, nil
}

// OpenAIEdit replaces any open proposal. On failure no proposal is left open.
func (d *Dashboard) OpenAIEdit(ctx context.Context, kind testgem.Kind, id, instruction string) (testgem.Proposal, error) {
	d.mu.Lock()
	d.Proposal = nil
	d.mu.Unlock()

	p, err := d.api.ProposeEdit(ctx, kind, id, instruction)
	if err != nil {
		d.logger.Error("ai edit", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		return testgem.Proposal{}, err
	}
	if p.Kind == "" {
		p.Kind = kind
	}
	if p.RecordID == "" {
		p.RecordID = id
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.Proposal = &p
	return p, nil
}

// Keep accepts the open proposal and replaces the content of its record only.
func (d *Dashboard) Keep(ctx context.Context) (testgem.Record, error) {
	p, err := d.openProposal()
	if err != nil {
		return testgem.Record{}, err
	}
	updated, err := d.api.AcceptProposal(ctx, p.ID)
	if err != nil {
		d.logger.Error("keep proposal", zap.String("proposal_id", p.ID), zap.Error(err))
		return testgem.Record{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if slot, err := d.slot(p.Kind); err == nil {
		for i := range *slot {
			if (*slot)[i].ID == p.RecordID {
				(*slot)[i].Content = updated.Content
			}
		}
	}
	d.Proposal = nil
	return updated, nil
}

// Deny discards the open proposal. Stored content is untouched.
func (d *Dashboard) Deny(ctx context.Context) error {
	p, err := d.openProposal()
	if err != nil {
		return err
	}
	if err := d.api.RejectProposal(ctx, p.ID); err != nil {
		d.logger.Error("deny proposal", zap.String("proposal_id", p.ID), zap.Error(err))
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.Proposal = nil
	return nil
}

func (d *Dashboard) openProposal() (testgem.Proposal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Proposal == nil {
		return testgem.Proposal{}, ErrNoProposal
	}
	return *d.Proposal, nil
}

func (d *Dashboard) lockedSlot(kind testgem.Kind) (*[]testgem.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slot(kind)
}

func (d *Dashboard) slot(kind testgem.Kind) (*[]testgem.Record, error) {
	switch kind {
	case testgem.KindDocuments:
		return &d.Documents, nil
	case testgem.KindNotes:
		return &d.Notes, nil
	case testgem.KindWorkspaces:
		return &d.Workspaces, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func nonNil(items []testgem.Record) []testgem.Record {
	if items == nil {
		return []testgem.Record{}
	}
	return items
}
