package user

import (
	"context"
	"net/url"

	"github.com/invigilo/invigilo/core/entity"
)

// Resolver hooks user accounts into bulk-action processing: deleting or
// deactivating an institution cascades to its users.
type Resolver struct {
	repo Repository
}

var _ entity.Resolver = (*Resolver)(nil)

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) EntityType() entity.Type { return entity.TypeUser }

func (r *Resolver) Dependencies(ctx context.Context, key entity.Key) ([]entity.Key, error) {
	if key.Type != entity.TypeInstitution {
		return nil, nil
	}
	params := make(url.Values)
	params.Set(entity.FilterAttrInstitution, key.ModelID)
	users, err := r.repo.AllMatching(ctx, entity.FilterMapOf(params), nil)
	if err != nil {
		return nil, err
	}
	keys := make([]entity.Key, 0, len(users))
	for _, usr := range users {
		keys = append(keys, entity.NewKey(entity.TypeUser, usr.UUID))
	}
	return keys, nil
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
