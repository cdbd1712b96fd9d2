// Package authz implements role-based authorization grants. Every
// (entity type, role) pair carries a base, an institutional and an
// ownership privilege; a grant check picks the strongest one that
// applies to the acting user and the target entity.
package authz

import "github.com/invigilo/invigilo/core/entity"

// Role values. A user may hold several.
const (
	RoleServerAdmin      = "SERVER_ADMIN"
	RoleInstitutionAdmin = "INSTITUTION_ADMIN"
	RoleExamAdmin        = "EXAM_ADMIN"
	RoleExamSupporter    = "EXAM_SUPPORTER"
)

var AllRoles = []string{RoleServerAdmin, RoleInstitutionAdmin, RoleExamAdmin, RoleExamSupporter}

var rolePriorities = map[string]int{
	RoleServerAdmin:      4,
	RoleInstitutionAdmin: 3,
	RoleExamAdmin:        2,
	RoleExamSupporter:    1,
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// PrivilegeType orders privileges: a stronger privilege implies every
// weaker one.
type PrivilegeType int

const (
	PrivilegeNone PrivilegeType = iota
	PrivilegeRead
	PrivilegeModify
	PrivilegeWrite
)

func (p PrivilegeType) Implies(other PrivilegeType) bool {
	return p >= other
}

func (p PrivilegeType) String() string {
	switch p {
	case PrivilegeRead:
		return "READ"
	case PrivilegeModify:
		return "MODIFY"
	case PrivilegeWrite:
		return "WRITE"
	default:
		return "NONE"
	}
}

// MarshalJSON renders the privilege name instead of its ordinal.
func (p PrivilegeType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// Privilege defines the grants a role has on an entity type:
//   - Base applies regardless of tenancy,
//   - Institutional applies to entities of the user's own institution,
//   - Ownership applies to entities owned by the user.
type Privilege struct {
	EntityType    entity.Type   `json:"entity_type"`
	Role          string        `json:"role"`
	Base          PrivilegeType `json:"base_privilege"`
	Institutional PrivilegeType `json:"institutional_privilege"`
	Ownership     PrivilegeType `json:"ownership_privilege"`
}

// privilege matrix: one entry per (entity type, role) that grants
// anything at all. Roles without an entry have no access.
var grants = []Privilege{
	// institutions
	{entity.TypeInstitution, RoleServerAdmin, PrivilegeWrite, PrivilegeNone, PrivilegeNone},
	{entity.TypeInstitution, RoleInstitutionAdmin, PrivilegeNone, PrivilegeModify, PrivilegeNone},
	{entity.TypeInstitution, RoleExamAdmin, PrivilegeNone, PrivilegeRead, PrivilegeNone},
	{entity.TypeInstitution, RoleExamSupporter, PrivilegeNone, PrivilegeRead, PrivilegeNone},

	// user accounts
	{entity.TypeUser, RoleServerAdmin, PrivilegeWrite, PrivilegeNone, PrivilegeNone},
	{entity.TypeUser, RoleInstitutionAdmin, PrivilegeNone, PrivilegeWrite, PrivilegeNone},
	{entity.TypeUser, RoleExamAdmin, PrivilegeNone, PrivilegeNone, PrivilegeModify},
	{entity.TypeUser, RoleExamSupporter, PrivilegeNone, PrivilegeNone, PrivilegeModify},

	// user activity logs (read-only resource)
	{entity.TypeUserActivityLog, RoleServerAdmin, PrivilegeRead, PrivilegeNone, PrivilegeNone},
	{entity.TypeUserActivityLog, RoleInstitutionAdmin, PrivilegeNone, PrivilegeRead, PrivilegeNone},

	// exam configurations
	{entity.TypeConfigurationNode, RoleServerAdmin, PrivilegeRead, PrivilegeNone, PrivilegeNone},
	{entity.TypeConfigurationNode, RoleInstitutionAdmin, PrivilegeNone, PrivilegeRead, PrivilegeNone},
	{entity.TypeConfigurationNode, RoleExamAdmin, PrivilegeNone, PrivilegeWrite, PrivilegeNone},
	{entity.TypeConfiguration, RoleServerAdmin, PrivilegeRead, PrivilegeNone, PrivilegeNone},
	{entity.TypeConfiguration, RoleInstitutionAdmin, PrivilegeNone, PrivilegeRead, PrivilegeNone},
	{entity.TypeConfiguration, RoleExamAdmin, PrivilegeNone, PrivilegeWrite, PrivilegeNone},
	{entity.TypeConfigurationValue, RoleServerAdmin, PrivilegeRead, PrivilegeNone, PrivilegeNone},
	{entity.TypeConfigurationValue, RoleInstitutionAdmin, PrivilegeNone, PrivilegeRead, PrivilegeNone},
	{entity.TypeConfigurationValue, RoleExamAdmin, PrivilegeNone, PrivilegeWrite, PrivilegeNone},

	// configuration attributes are global, static reference data
	{entity.TypeConfigurationAttribute, RoleServerAdmin, PrivilegeRead, PrivilegeNone, PrivilegeNone},
	{entity.TypeConfigurationAttribute, RoleInstitutionAdmin, PrivilegeRead, PrivilegeNone, PrivilegeNone},
	{entity.TypeConfigurationAttribute, RoleExamAdmin, PrivilegeRead, PrivilegeNone, PrivilegeNone},
	{entity.TypeConfigurationAttribute, RoleExamSupporter, PrivilegeRead, PrivilegeNone, PrivilegeNone},
}
