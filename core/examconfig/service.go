package examconfig

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core/entity"
)

var (
	ErrNotFound   = entity.ErrNotFound
	ErrNoFollowup = errors.New("configuration node has no followup configuration")
	ErrNoHistory  = errors.New("configuration node has no saved version to restore")
)

type (
	// NodeRepository persists configuration nodes.
	NodeRepository interface {
		entity.DAO[Node, NodeMod]

		Delete(ctx context.Context, modelID string) error
	}

	// ConfigurationRepository persists the version history of a node.
	ConfigurationRepository interface {
		entity.DAO[Configuration, struct{}]

		// FollowupOf returns the open followup configuration of a node.
		FollowupOf(ctx context.Context, nodeID int64) (Configuration, error)
		VersionsOf(ctx context.Context, nodeID int64) ([]Configuration, error)
		Create(ctx context.Context, c Configuration) (Configuration, error)
		Update(ctx context.Context, c Configuration) (Configuration, error)
	}

	// AttributeRepository reads the static attribute catalog.
	AttributeRepository interface {
		entity.DAO[Attribute, struct{}]

		// ChildAttributes returns the column attributes of a table
		// attribute, sorted by name.
		ChildAttributes(ctx context.Context, parentID int64) ([]Attribute, error)
		// TopLevelAttributes returns all attributes without a parent,
		// sorted by name.
		TopLevelAttributes(ctx context.Context) ([]Attribute, error)
	}

	// ValueRepository persists configuration values.
	ValueRepository interface {
		ValuesOf(ctx context.Context, configurationID int64) ([]Value, error)
		Save(ctx context.Context, v Value) (Value, error)
		// OrderedTableValues returns the table rows of an attribute
		// within a configuration: one inner slice per list index, cells
		// ordered by attribute id.
		OrderedTableValues(ctx context.Context, configurationID, attributeID int64) ([][]Value, error)
		// CopyValues duplicates all values of one configuration into
		// another, replacing what was there.
		CopyValues(ctx context.Context, fromConfigID, toConfigID int64) error
		ByModelID(ctx context.Context, modelID string) (Value, error)
	}
)

// Service implements configuration versioning on top of the
// repositories: create seeds a followup, save-to-history freezes it,
// undo restores the followup from the latest saved version.
type Service struct {
	nodes   NodeRepository
	configs ConfigurationRepository
	attrs   AttributeRepository
	values  ValueRepository
}

func NewService(
	nodes NodeRepository,
	configs ConfigurationRepository,
	attrs AttributeRepository,
	values ValueRepository,
) *Service {
	return &Service{nodes: nodes, configs: configs, attrs: attrs, values: values}
}

func (svc *Service) Nodes() NodeRepository            { return svc.nodes }
func (svc *Service) Configs() ConfigurationRepository { return svc.configs }
func (svc *Service) Attrs() AttributeRepository       { return svc.attrs }
func (svc *Service) Values() ValueRepository          { return svc.values }

// CreateNode creates the node together with its initial followup
// configuration, seeded with default values from the attribute catalog
// (or copied from the template node when one is referenced).
func (svc *Service) CreateNode(ctx context.Context, m NodeMod, owner string) (Node, error) {
	m.Owner = owner
	node, err := svc.nodes.CreateNew(ctx, m)
	if err != nil {
		return Node{}, err
	}

	followup, err := svc.configs.Create(ctx, Configuration{
		InstitutionID: node.InstitutionID,
		NodeID:        node.ID,
		VersionDate:   time.Now().UTC(),
		Followup:      true,
	})
	if err != nil {
		return Node{}, errors.Wrap(err, "creating followup configuration")
	}

	if m.TemplateID != 0 {
		tmplFollowup, err := svc.configs.FollowupOf(ctx, m.TemplateID)
		if err != nil {
			return Node{}, errors.Wrap(err, "loading template configuration")
		}
		if err = svc.values.CopyValues(ctx, tmplFollowup.ID, followup.ID); err != nil {
			return Node{}, errors.Wrap(err, "copying template values")
		}
		return node, nil
	}

	if err = svc.seedDefaults(ctx, node, followup); err != nil {
		return Node{}, errors.Wrap(err, "seeding default values")
	}
	return node, nil
}

func (svc *Service) seedDefaults(ctx context.Context, node Node, cfg Configuration) error {
	attrs, err := svc.attrs.TopLevelAttributes(ctx)
	if err != nil {
		return err
	}
	for _, attr := range attrs {
		if attr.DefaultValue == "" {
			continue
		}
		if _, err = svc.values.Save(ctx, Value{
			InstitutionID:   node.InstitutionID,
			ConfigurationID: cfg.ID,
			AttributeID:     attr.ID,
			Value:           attr.DefaultValue,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Followup returns the open followup configuration of a node.
func (svc *Service) Followup(ctx context.Context, nodeID int64) (Configuration, error) {
	return svc.configs.FollowupOf(ctx, nodeID)
}

// ConfigurationsOf lists the full version history of a node, followup
// included.
func (svc *Service) ConfigurationsOf(ctx context.Context, nodeID int64) ([]Configuration, error) {
	return svc.configs.VersionsOf(ctx, nodeID)
}

// SaveToHistory freezes the current followup under the next version tag
// and opens a new followup carrying the same values.
func (svc *Service) SaveToHistory(ctx context.Context, nodeID int64) (Configuration, error) {
	followup, err := svc.configs.FollowupOf(ctx, nodeID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Configuration{}, ErrNoFollowup
		}
		return Configuration{}, err
	}

	versions, err := svc.configs.VersionsOf(ctx, nodeID)
	if err != nil {
		return Configuration{}, err
	}

	// freeze followup as v<N>
	followup.Followup = false
	followup.Version = "v" + strconv.Itoa(len(versions)) // followup included: first save yields v1
	followup.VersionDate = time.Now().UTC()
	saved, err := svc.configs.Update(ctx, followup)
	if err != nil {
		return Configuration{}, errors.Wrap(err, "freezing followup")
	}

	newFollowup, err := svc.configs.Create(ctx, Configuration{
		InstitutionID: saved.InstitutionID,
		NodeID:        nodeID,
		VersionDate:   time.Now().UTC(),
		Followup:      true,
	})
	if err != nil {
		return Configuration{}, errors.Wrap(err, "opening new followup")
	}
	if err = svc.values.CopyValues(ctx, saved.ID, newFollowup.ID); err != nil {
		return Configuration{}, errors.Wrap(err, "copying values to new followup")
	}
	return saved, nil
}

// Undo restores the followup's values from the latest saved version,
// discarding unsaved changes.
func (svc *Service) Undo(ctx context.Context, nodeID int64) (Configuration, error) {
	followup, err := svc.configs.FollowupOf(ctx, nodeID)
	if err != nil {
		return Configuration{}, err
	}
	versions, err := svc.configs.VersionsOf(ctx, nodeID)
	if err != nil {
		return Configuration{}, err
	}

	var latest *Configuration
	for i := range versions {
		v := versions[i]
		if v.Followup {
			continue
		}
		if latest == nil || v.VersionDate.After(latest.VersionDate) {
			latest = &v
		}
	}
	if latest == nil {
		return Configuration{}, ErrNoHistory
	}

	if err = svc.values.CopyValues(ctx, latest.ID, followup.ID); err != nil {
		return Configuration{}, errors.Wrap(err, "restoring values")
	}
	return followup, nil
}

// SaveValue validates and stores a single configuration value in the
// institution of the owning configuration.
func (svc *Service) SaveValue(ctx context.Context, m ValueMod) (Value, error) {
	if err := m.Validate(); err != nil {
		return Value{}, err
	}
	cfg, err := svc.configs.ByModelID(ctx, strconv.FormatInt(m.ConfigurationID, 10))
	if err != nil {
		return Value{}, err
	}
	return svc.values.Save(ctx, Value{
		InstitutionID:   cfg.InstitutionID,
		ConfigurationID: m.ConfigurationID,
		AttributeID:     m.AttributeID,
		ListIndex:       m.ListIndex,
		Value:           m.Value,
	})
}
