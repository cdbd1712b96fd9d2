package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/examconfig"
)

var (
	errConfigsManaged = errors.New("configurations are managed through the node lifecycle")
	errAttrsReadOnly  = errors.New("configuration attributes are read only")
)

// ----- configuration nodes -----

type nodeRepository struct {
	db *DB
}

var _ examconfig.NodeRepository = (*nodeRepository)(nil)

func NewNodeRepository(db *DB) examconfig.NodeRepository {
	return &nodeRepository{db: db}
}

func (repo *nodeRepository) EntityType() entity.Type { return entity.TypeConfigurationNode }

func (repo *nodeRepository) ByModelID(_ context.Context, modelID string) (examconfig.Node, error) {
	id, err := parseID(modelID)
	if err != nil {
		return examconfig.Node{}, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if node, ok := repo.db.nodes[id]; ok {
		return node, nil
	}
	return examconfig.Node{}, examconfig.ErrNotFound
}

func (repo *nodeRepository) AllMatching(_ context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]examconfig.Node, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	nodes := make([]examconfig.Node, 0, len(repo.db.nodes))
	for _, node := range repo.db.nodes {
		if id := filter.InstitutionID(); id != 0 && node.InstitutionID != id {
			continue
		}
		if name := filter.Name(); name != "" && !containsFold(node.Name, name) {
			continue
		}
		if owner := filter.GetString(examconfig.FilterAttrNodeOwner); owner != "" && node.Owner != owner {
			continue
		}
		if typ := filter.GetString(examconfig.FilterAttrNodeType); typ != "" && node.Type != typ {
			continue
		}
		if status := filter.GetString(examconfig.FilterAttrNodeStatus); status != "" && node.Status != status {
			continue
		}
		if tmpl := filter.GetInt64(examconfig.FilterAttrNodeTemplate); tmpl != 0 && node.TemplateID != tmpl {
			continue
		}
		nodes = append(nodes, node)
	}

	asc := true
	for _, ord := range ords {
		if ord.Field == "name" {
			asc = ord.Ascending
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if asc {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].Name > nodes[j].Name
	})
	return nodes, nil
}

func (repo *nodeRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]examconfig.Node, error) {
	nodes := make([]examconfig.Node, 0, len(keys))
	for _, key := range keys {
		if node, err := repo.ByModelID(ctx, key.ModelID); err == nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func (repo *nodeRepository) CreateNew(_ context.Context, m examconfig.NodeMod) (examconfig.Node, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	node := examconfig.NewNode(m)
	node.ID = repo.db.nextPK()
	repo.db.nodes[node.ID] = node
	return node, nil
}

func (repo *nodeRepository) Save(ctx context.Context, modelID string, m examconfig.NodeMod) (examconfig.Node, error) {
	orig, err := repo.ByModelID(ctx, modelID)
	if err != nil {
		return examconfig.Node{}, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	node := orig.Apply(m)
	repo.db.nodes[node.ID] = node
	return node, nil
}

// Delete removes the node together with its configurations and values.
func (repo *nodeRepository) Delete(_ context.Context, modelID string) error {
	id, err := parseID(modelID)
	if err != nil {
		return err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.nodes[id]; !ok {
		return examconfig.ErrNotFound
	}
	for cfgID, cfg := range repo.db.configs {
		if cfg.NodeID != id {
			continue
		}
		for valID, val := range repo.db.values {
			if val.ConfigurationID == cfgID {
				delete(repo.db.values, valID)
			}
		}
		delete(repo.db.configs, cfgID)
	}
	delete(repo.db.nodes, id)
	return nil
}

// ----- configurations -----

type configurationRepository struct {
	db *DB
}

var _ examconfig.ConfigurationRepository = (*configurationRepository)(nil)

func NewConfigurationRepository(db *DB) examconfig.ConfigurationRepository {
	return &configurationRepository{db: db}
}

func (repo *configurationRepository) EntityType() entity.Type { return entity.TypeConfiguration }

func (repo *configurationRepository) ByModelID(_ context.Context, modelID string) (examconfig.Configuration, error) {
	id, err := parseID(modelID)
	if err != nil {
		return examconfig.Configuration{}, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if cfg, ok := repo.db.configs[id]; ok {
		return cfg, nil
	}
	return examconfig.Configuration{}, examconfig.ErrNotFound
}

func (repo *configurationRepository) AllMatching(_ context.Context, filter entity.FilterMap, _ []core.DBOrdering) ([]examconfig.Configuration, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	configs := make([]examconfig.Configuration, 0, len(repo.db.configs))
	for _, cfg := range repo.db.configs {
		if id := filter.InstitutionID(); id != 0 && cfg.InstitutionID != id {
			continue
		}
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs, nil
}

func (repo *configurationRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]examconfig.Configuration, error) {
	configs := make([]examconfig.Configuration, 0, len(keys))
	for _, key := range keys {
		if cfg, err := repo.ByModelID(ctx, key.ModelID); err == nil {
			configs = append(configs, cfg)
		}
	}
	return configs, nil
}

func (repo *configurationRepository) CreateNew(context.Context, struct{}) (examconfig.Configuration, error) {
	return examconfig.Configuration{}, errConfigsManaged
}

func (repo *configurationRepository) Save(context.Context, string, struct{}) (examconfig.Configuration, error) {
	return examconfig.Configuration{}, errConfigsManaged
}

func (repo *configurationRepository) FollowupOf(_ context.Context, nodeID int64) (examconfig.Configuration, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, cfg := range repo.db.configs {
		if cfg.NodeID == nodeID && cfg.Followup {
			return cfg, nil
		}
	}
	return examconfig.Configuration{}, examconfig.ErrNotFound
}

func (repo *configurationRepository) VersionsOf(_ context.Context, nodeID int64) ([]examconfig.Configuration, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	versions := make([]examconfig.Configuration, 0)
	for _, cfg := range repo.db.configs {
		if cfg.NodeID == nodeID {
			versions = append(versions, cfg)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		if versions[i].VersionDate.Equal(versions[j].VersionDate) {
			return versions[i].ID < versions[j].ID
		}
		return versions[i].VersionDate.Before(versions[j].VersionDate)
	})
	return versions, nil
}

func (repo *configurationRepository) Create(_ context.Context, cfg examconfig.Configuration) (examconfig.Configuration, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	cfg.ID = repo.db.nextPK()
	repo.db.configs[cfg.ID] = cfg
	return cfg, nil
}

func (repo *configurationRepository) Update(_ context.Context, cfg examconfig.Configuration) (examconfig.Configuration, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.configs[cfg.ID]; !ok {
		return examconfig.Configuration{}, examconfig.ErrNotFound
	}
	repo.db.configs[cfg.ID] = cfg
	return cfg, nil
}

// ----- attributes -----

type attributeRepository struct {
	db *DB
}

var _ examconfig.AttributeRepository = (*attributeRepository)(nil)

func NewAttributeRepository(db *DB) examconfig.AttributeRepository {
	return &attributeRepository{db: db}
}

func (repo *attributeRepository) EntityType() entity.Type { return entity.TypeConfigurationAttribute }

func (repo *attributeRepository) ByModelID(_ context.Context, modelID string) (examconfig.Attribute, error) {
	id, err := parseID(modelID)
	if err != nil {
		return examconfig.Attribute{}, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if attr, ok := repo.db.attrs[id]; ok {
		return attr, nil
	}
	return examconfig.Attribute{}, examconfig.ErrNotFound
}

func (repo *attributeRepository) AllMatching(_ context.Context, filter entity.FilterMap, _ []core.DBOrdering) ([]examconfig.Attribute, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	attrs := make([]examconfig.Attribute, 0, len(repo.db.attrs))
	for _, attr := range repo.db.attrs {
		if name := filter.Name(); name != "" && !containsFold(attr.Name, name) {
			continue
		}
		if parent := filter.GetInt64(examconfig.FilterAttrParentID); parent != 0 && attr.ParentID != parent {
			continue
		}
		attrs = append(attrs, attr)
	}
	sortAttrsByName(attrs)
	return attrs, nil
}

func (repo *attributeRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]examconfig.Attribute, error) {
	attrs := make([]examconfig.Attribute, 0, len(keys))
	for _, key := range keys {
		if attr, err := repo.ByModelID(ctx, key.ModelID); err == nil {
			attrs = append(attrs, attr)
		}
	}
	return attrs, nil
}

func (repo *attributeRepository) CreateNew(context.Context, struct{}) (examconfig.Attribute, error) {
	return examconfig.Attribute{}, errAttrsReadOnly
}

func (repo *attributeRepository) Save(context.Context, string, struct{}) (examconfig.Attribute, error) {
	return examconfig.Attribute{}, errAttrsReadOnly
}

func (repo *attributeRepository) ChildAttributes(_ context.Context, parentID int64) ([]examconfig.Attribute, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	attrs := make([]examconfig.Attribute, 0)
	for _, attr := range repo.db.attrs {
		if attr.ParentID == parentID {
			attrs = append(attrs, attr)
		}
	}
	sortAttrsByName(attrs)
	return attrs, nil
}

func (repo *attributeRepository) TopLevelAttributes(ctx context.Context) ([]examconfig.Attribute, error) {
	return repo.ChildAttributes(ctx, 0)
}

func sortAttrsByName(attrs []examconfig.Attribute) {
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
}

// ----- values -----

type valueRepository struct {
	db *DB
}

var _ examconfig.ValueRepository = (*valueRepository)(nil)

func NewValueRepository(db *DB) examconfig.ValueRepository {
	return &valueRepository{db: db}
}

func (repo *valueRepository) ByModelID(_ context.Context, modelID string) (examconfig.Value, error) {
	id, err := parseID(modelID)
	if err != nil {
		return examconfig.Value{}, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if val, ok := repo.db.values[id]; ok {
		return val, nil
	}
	return examconfig.Value{}, examconfig.ErrNotFound
}

func (repo *valueRepository) ValuesOf(_ context.Context, configurationID int64) ([]examconfig.Value, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	values := make([]examconfig.Value, 0)
	for _, val := range repo.db.values {
		if val.ConfigurationID == configurationID {
			values = append(values, val)
		}
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].AttributeID != values[j].AttributeID {
			return values[i].AttributeID < values[j].AttributeID
		}
		return values[i].ListIndex < values[j].ListIndex
	})
	return values, nil
}

// Save upserts on the (configuration, attribute, list index) key.
func (repo *valueRepository) Save(_ context.Context, v examconfig.Value) (examconfig.Value, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, existing := range repo.db.values {
		if existing.ConfigurationID == v.ConfigurationID &&
			existing.AttributeID == v.AttributeID &&
			existing.ListIndex == v.ListIndex {
			existing.Value = v.Value
			existing.InstitutionID = v.InstitutionID
			repo.db.values[id] = existing
			return existing, nil
		}
	}
	v.ID = repo.db.nextPK()
	repo.db.values[v.ID] = v
	return v, nil
}

func (repo *valueRepository) OrderedTableValues(_ context.Context, configurationID, attributeID int64) ([][]examconfig.Value, error) {
	repo.db.mu.RLock()
	childIDs := make(map[int64]bool)
	for _, attr := range repo.db.attrs {
		if attr.ParentID == attributeID {
			childIDs[attr.ID] = true
		}
	}
	flat := make([]examconfig.Value, 0)
	for _, val := range repo.db.values {
		if val.ConfigurationID == configurationID && childIDs[val.AttributeID] {
			flat = append(flat, val)
		}
	}
	repo.db.mu.RUnlock()

	sort.Slice(flat, func(i, j int) bool {
		if flat[i].ListIndex != flat[j].ListIndex {
			return flat[i].ListIndex < flat[j].ListIndex
		}
		return flat[i].AttributeID < flat[j].AttributeID
	})

	rows := make([][]examconfig.Value, 0)
	byIndex := make(map[int]int)
	for _, val := range flat {
		pos, ok := byIndex[val.ListIndex]
		if !ok {
			pos = len(rows)
			byIndex[val.ListIndex] = pos
			rows = append(rows, nil)
		}
		rows[pos] = append(rows[pos], val)
	}
	return rows, nil
}

func (repo *valueRepository) CopyValues(_ context.Context, fromConfigID, toConfigID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, val := range repo.db.values {
		if val.ConfigurationID == toConfigID {
			delete(repo.db.values, id)
		}
	}
	for _, val := range repo.db.values {
		if val.ConfigurationID != fromConfigID {
			continue
		}
		cp := val
		cp.ID = repo.db.nextPK()
		cp.ConfigurationID = toConfigID
		repo.db.values[cp.ID] = cp
	}
	return nil
}
