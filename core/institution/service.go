package institution

import (
	"context"

	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
)

var (
	ErrNotFound   = entity.ErrNotFound
	ErrNameExists = errors.New("an institution with this name already exists")
)

// Repository is the persistence contract; it is the institution's
// entity DAO plus domain-specific lookups.
type Repository interface {
	entity.ActivatableDAO[Institution, Mod]

	GetByURLSuffix(ctx context.Context, suffix string) (Institution, error)
	CheckNameUniqueness(ctx context.Context, name string, excluded ...Institution) error
	Delete(ctx context.Context, modelID string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Repo() Repository { return svc.repo }

func (svc *Service) GetByID(ctx context.Context, modelID string) (Institution, error) {
	return svc.repo.ByModelID(ctx, modelID)
}

// GetByURLSuffix resolves the institution presented under a given URL
// suffix; used by the unauthenticated logo endpoint.
func (svc *Service) GetByURLSuffix(ctx context.Context, suffix string) (Institution, error) {
	return svc.repo.GetByURLSuffix(ctx, core.CleanString(suffix, true /* lower */))
}

func (svc *Service) CheckNameUniqueness(name string, orig *Institution) error {
	var excluded []Institution
	if orig != nil {
		excluded = append(excluded, *orig)
	}
	if err := svc.repo.CheckNameUniqueness(context.Background(), name, excluded...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}
