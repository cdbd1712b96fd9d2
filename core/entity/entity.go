// Package entity defines the generic entity model shared by all
// administrative resources: typed keys, grant information, filtering,
// pagination and bulk-action processing.
package entity

import "github.com/pkg/errors"

// ErrNotFound is returned by DAOs when no entity matches a model id.
var ErrNotFound = errors.New("entity not found")

// Type enumerates all entity resources of the system.
type Type string

const (
	TypeInstitution            Type = "INSTITUTION"
	TypeUser                   Type = "USER"
	TypeUserActivityLog        Type = "USER_ACTIVITY_LOG"
	TypeConfigurationNode      Type = "CONFIGURATION_NODE"
	TypeConfiguration          Type = "CONFIGURATION"
	TypeConfigurationAttribute Type = "CONFIGURATION_ATTRIBUTE"
	TypeConfigurationValue     Type = "CONFIGURATION_VALUE"
)

// Key uniquely identifies an entity within the system.
type Key struct {
	ModelID string `json:"model_id"`
	Type    Type   `json:"entity_type"`
}

func NewKey(typ Type, modelID string) Key {
	return Key{ModelID: modelID, Type: typ}
}

// Name is a Key together with the entity's display name, used by
// name-listing endpoints feeding selection widgets.
type Name struct {
	Key
	Name string `json:"name"`
}

// Entity is implemented by every domain model exposed as a resource.
type Entity interface {
	ModelID() string
	EntityType() Type
	EntityName() string
}

// GrantEntity additionally exposes the tenancy and ownership information
// the authorization layer needs to decide grants.
type GrantEntity interface {
	Entity
	GrantInstitutionID() int64
	GrantOwnerID() string
}

// ToName builds the Name of an entity.
func ToName(e Entity) Name {
	return Name{
		Key:  NewKey(e.EntityType(), e.ModelID()),
		Name: e.EntityName(),
	}
}

// Names maps a slice of entities to their Names.
func Names[T Entity](entities []T) []Name {
	names := make([]Name, 0, len(entities))
	for _, e := range entities {
		names = append(names, ToName(e))
	}
	return names
}
