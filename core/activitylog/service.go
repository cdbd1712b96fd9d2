package activitylog

import (
	"context"
	"time"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
)

var ErrNotFound = entity.ErrNotFound

// Mod exists to satisfy the generic DAO contract; logs are never
// created or modified through the entity API.
type Mod struct{}

// Repository is the persistence contract of the audit trail.
type Repository interface {
	entity.DAO[Log, Mod]

	CreateLog(ctx context.Context, log Log) (Log, error)
}

// Service writes audit records and never fails the audited request:
// persistence errors are reported to the logger and swallowed.
type Service struct {
	repo   Repository
	logger core.Logger
}

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Repo() Repository { return svc.repo }

// Log records an activity of the actor on the given entity.
func (svc *Service) Log(ctx context.Context, actor authz.Actor, username string, typ ActivityType, e entity.Entity, msg string) {
	record := Log{
		InstitutionID: actor.InstitutionID,
		UserUUID:      actor.UUID,
		Username:      username,
		Timestamp:     time.Now().UTC().UnixMilli(),
		ActivityType:  typ,
		Message:       msg,
	}
	if e != nil {
		record.TargetType = e.EntityType()
		record.EntityID = e.ModelID()
		if ge, ok := e.(entity.GrantEntity); ok && ge.GrantInstitutionID() != 0 {
			record.InstitutionID = ge.GrantInstitutionID()
		}
	}
	if _, err := svc.repo.CreateLog(ctx, record); err != nil {
		svc.logger.Error("writing user activity log", err)
	}
}
