// Package proposal holds AI edits that are waiting for the user to keep or deny them.
package proposal

import (
	"context"
	"errors"
	"time"

	"github.com/DivyanshMauryaaa/testgem/internal/store"
)

const DefaultTTL = 30 * time.Minute

var ErrNotFound = errors.New("proposal not found or expired")

// Proposal is a candidate replacement for one record's content.
type Proposal struct {
	ID          string     `json:"id"`
	Kind        store.Kind `json:"kind"`
	RecordID    string     `json:"recordId"`
	UserID      string     `json:"userId"`
	Instruction string     `json:"instruction"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Store interface {
	Save(ctx context.Context, p Proposal) error
	Get(ctx context.Context, id string) (Proposal, error)
	Delete(ctx context.Context, id string) error
}
