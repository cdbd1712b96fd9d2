package entity

import (
	"context"

	"github.com/invigilo/invigilo/core"
)

// DAO is the uniform persistence contract the generic entity API is
// built on. T is the read model, M the creation/modification model.
type DAO[T GrantEntity, M any] interface {
	EntityType() Type

	ByModelID(ctx context.Context, modelID string) (T, error)

	// AllMatching returns all entities matching the filter, sorted by
	// the given orderings (DAO-defined default order when empty).
	AllMatching(ctx context.Context, filter FilterMap, ords []core.DBOrdering) ([]T, error)

	LoadEntities(ctx context.Context, keys []Key) ([]T, error)

	CreateNew(ctx context.Context, data M) (T, error)

	Save(ctx context.Context, modelID string, data M) (T, error)
}

// ActivatableDAO is implemented by DAOs of entities with an active flag.
type ActivatableDAO[T GrantEntity, M any] interface {
	DAO[T, M]

	SetActive(ctx context.Context, modelID string, active bool) (T, error)
}
