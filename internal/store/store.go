package store

import (
	"context"

	"github.com/starford/ideacards/internal/idea"
)

// Repository defines the idea persistence operations.
// Consumers should depend on this interface rather than the concrete *Store
// type to facilitate testing with fakes.
type Repository interface {
	Create(ctx context.Context, in idea.CreatePayload) (*idea.Idea, error)
	Get(ctx context.Context, id int64) (*idea.Idea, error)
	Update(ctx context.Context, id int64, p idea.Payload) (*idea.Idea, error)
	UpdateStatus(ctx context.Context, id int64, status idea.Status) (*idea.Idea, error)
	Random(ctx context.Context, status idea.Status) (*idea.Idea, error)
	Search(ctx context.Context, f Filter) ([]idea.Idea, error)
	Close() error
}

// Verify *Store satisfies Repository at compile time.
var _ Repository = (*Store)(nil)
