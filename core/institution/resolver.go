package institution

import (
	"context"

	"github.com/invigilo/invigilo/core/entity"
)

// Resolver hooks institutions into bulk-action processing. Institutions
// are the roots of the dependency tree and depend on nothing.
type Resolver struct {
	repo Repository
}

var _ entity.Resolver = (*Resolver)(nil)

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) EntityType() entity.Type { return entity.TypeInstitution }

func (r *Resolver) Dependencies(context.Context, entity.Key) ([]entity.Key, error) {
	return nil, nil
}

func (r *Resolver) Apply(ctx context.Context, action entity.BulkActionType, modelID string) error {
	switch action {
	case entity.BulkHardDelete:
		return r.repo.Delete(ctx, modelID)
	case entity.BulkActivate:
		_, err := r.repo.SetActive(ctx, modelID, true)
		return err
	case entity.BulkDeactivate:
		_, err := r.repo.SetActive(ctx, modelID, false)
		return err
	}
	return nil
}
