package authz

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core/entity"
)

// Actor is the acting user as seen by the authorization layer.
type Actor struct {
	UUID          string
	InstitutionID int64
	Roles         []string
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PermissionError is raised on a denied grant check and translated to a
// 403 response at the API boundary.
type PermissionError struct {
	EntityType entity.Type
	Privilege  PrivilegeType
	UserUUID   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("no %s grant on %s for user %s", e.Privilege, e.EntityType, e.UserUUID)
}

func NewPermissionError(typ entity.Type, priv PrivilegeType, userUUID string) error {
	return &PermissionError{EntityType: typ, Privilege: priv, UserUUID: userUUID}
}

func IsPermissionDenied(err error) bool {
	var pe *PermissionError
	return errors.As(errors.Cause(err), &pe)
}

// Service answers grant questions against the static privilege matrix.
type Service struct {
	grants map[entity.Type]map[string]Privilege
}

func NewService() *Service {
	m := make(map[entity.Type]map[string]Privilege)
	for _, p := range grants {
		byRole, ok := m[p.EntityType]
		if !ok {
			byRole = make(map[string]Privilege)
			m[p.EntityType] = byRole
		}
		byRole[p.Role] = p
	}
	return &Service{grants: m}
}

// AllPrivileges returns the full privilege matrix.
func (s *Service) AllPrivileges() []Privilege {
	return grants
}

// HasPrivilege reports whether the actor holds the privilege on the
// entity type for the given institution, considering base and
// institutional grants only (no concrete entity involved).
func (s *Service) HasPrivilege(a Actor, typ entity.Type, priv PrivilegeType, institutionID int64) bool {
	for _, role := range a.Roles {
		p, ok := s.grants[typ][role]
		if !ok {
			continue
		}
		if p.Base.Implies(priv) {
			return true
		}
		if institutionID != 0 && institutionID == a.InstitutionID && p.Institutional.Implies(priv) {
			return true
		}
	}
	return false
}

// CheckPrivilege is HasPrivilege raising a PermissionError on denial.
func (s *Service) CheckPrivilege(a Actor, typ entity.Type, priv PrivilegeType, institutionID int64) error {
	if s.HasPrivilege(a, typ, priv, institutionID) {
		return nil
	}
	return NewPermissionError(typ, priv, a.UUID)
}

// HasGrant reports whether the actor holds the privilege on the concrete
// entity, considering base, institutional and ownership grants.
func (s *Service) HasGrant(a Actor, e entity.GrantEntity, priv PrivilegeType) bool {
	typ := e.EntityType()
	for _, role := range a.Roles {
		p, ok := s.grants[typ][role]
		if !ok {
			continue
		}
		if p.Base.Implies(priv) {
			return true
		}
		if instID := e.GrantInstitutionID(); instID != 0 && instID == a.InstitutionID && p.Institutional.Implies(priv) {
			return true
		}
		if owner := e.GrantOwnerID(); owner != "" && owner == a.UUID && p.Ownership.Implies(priv) {
			return true
		}
	}
	return false
}

// CheckGrant is HasGrant raising a PermissionError on denial.
func (s *Service) CheckGrant(a Actor, e entity.GrantEntity, priv PrivilegeType) error {
	if s.HasGrant(a, e, priv) {
		return nil
	}
	return NewPermissionError(e.EntityType(), priv, a.UUID)
}

// GrantFilter returns a predicate keeping only entities the actor holds
// the privilege on; used to narrow listings before pagination.
func (s *Service) GrantFilter(a Actor, priv PrivilegeType) func(entity.GrantEntity) bool {
	return func(e entity.GrantEntity) bool {
		return s.HasGrant(a, e, priv)
	}
}

// FilterGranted applies GrantFilter to a slice.
func FilterGranted[T entity.GrantEntity](s *Service, a Actor, priv PrivilegeType, entities []T) []T {
	granted := make([]T, 0, len(entities))
	for _, e := range entities {
		if s.HasGrant(a, e, priv) {
			granted = append(granted, e)
		}
	}
	return granted
}
