package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/examconfig"
)

var (
	errConfigsManaged = errors.New("configurations are managed through their node")
	errAttrsReadOnly  = errors.New("configuration attributes are read only")
)

// Nodes

const nodeCols = "id, institution_id, template_id, owner, name, description, type, status"

var nodeOrderings = map[string]string{
	"id":     "id",
	"name":   "name",
	"type":   "type",
	"status": "status",
}

type nodeRepository struct {
	db *sqlx.DB
}

var _ examconfig.NodeRepository = (*nodeRepository)(nil)

func NewNodeRepository(db *sqlx.DB) examconfig.NodeRepository {
	return &nodeRepository{db: db}
}

func (repo *nodeRepository) EntityType() entity.Type { return entity.TypeConfigurationNode }

func (repo *nodeRepository) ByModelID(ctx context.Context, modelID string) (examconfig.Node, error) {
	id, err := parseID(modelID)
	if err != nil {
		return examconfig.Node{}, err
	}
	var node examconfig.Node
	err = repo.db.GetContext(ctx, &node, "SELECT "+nodeCols+" FROM configuration_node WHERE id = $1", id)
	return node, notFoundErr(err)
}

func (repo *nodeRepository) AllMatching(ctx context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]examconfig.Node, error) {
	cond := new(conditions)
	if id := filter.InstitutionID(); id != 0 {
		cond.add("institution_id = $%d", id)
	}
	if name := filter.Name(); name != "" {
		cond.add("name ILIKE $%d", "%"+name+"%")
	}
	if typ := filter.GetString(examconfig.FilterAttrNodeType); typ != "" {
		cond.add("type = $%d", typ)
	}
	if status := filter.GetString(examconfig.FilterAttrNodeStatus); status != "" {
		cond.add("status = $%d", status)
	}
	if owner := filter.GetString(examconfig.FilterAttrNodeOwner); owner != "" {
		cond.add("owner = $%d", owner)
	}
	if tmplID := filter.GetInt64(examconfig.FilterAttrNodeTemplate); tmplID != 0 {
		cond.add("template_id = $%d", tmplID)
	}

	q := "SELECT " + nodeCols + " FROM configuration_node" + cond.where() +
		orderClause(ords, nodeOrderings, "name ASC")
	nodes := make([]examconfig.Node, 0)
	err := repo.db.SelectContext(ctx, &nodes, q, cond.args...)
	return nodes, err
}

func (repo *nodeRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]examconfig.Node, error) {
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		if id, err := parseID(key.ModelID); err == nil {
			ids = append(ids, id)
		}
	}
	nodes := make([]examconfig.Node, 0, len(ids))
	err := repo.db.SelectContext(ctx, &nodes,
		"SELECT "+nodeCols+" FROM configuration_node WHERE id = ANY($1) ORDER BY name", pq.Array(ids))
	return nodes, err
}

func (repo *nodeRepository) CreateNew(ctx context.Context, m examconfig.NodeMod) (examconfig.Node, error) {
	node := examconfig.NewNode(m)
	err := repo.db.GetContext(ctx, &node.ID,
		`INSERT INTO configuration_node (institution_id, template_id, owner, name, description, type, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		node.InstitutionID, node.TemplateID, node.Owner, node.Name, node.Description, node.Type, node.Status)
	return node, errors.Wrap(err, "inserting configuration node")
}

func (repo *nodeRepository) Save(ctx context.Context, modelID string, m examconfig.NodeMod) (examconfig.Node, error) {
	orig, err := repo.ByModelID(ctx, modelID)
	if err != nil {
		return examconfig.Node{}, err
	}
	node := orig.Apply(m)
	_, err = repo.db.ExecContext(ctx,
		`UPDATE configuration_node SET name = $2, description = $3, type = $4, status = $5 WHERE id = $1`,
		node.ID, node.Name, node.Description, node.Type, node.Status)
	return node, errors.Wrap(err, "updating configuration node")
}

func (repo *nodeRepository) Delete(ctx context.Context, modelID string) error {
	id, err := parseID(modelID)
	if err != nil {
		return err
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM configuration_node WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting configuration node")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return examconfig.ErrNotFound
	}
	return nil
}

// Configurations

const configCols = "id, institution_id, configuration_node_id, version, version_date, followup"

type configurationRepository struct {
	db *sqlx.DB
}

var _ examconfig.ConfigurationRepository = (*configurationRepository)(nil)

func NewConfigurationRepository(db *sqlx.DB) examconfig.ConfigurationRepository {
	return &configurationRepository{db: db}
}

func (repo *configurationRepository) EntityType() entity.Type { return entity.TypeConfiguration }

func (repo *configurationRepository) ByModelID(ctx context.Context, modelID string) (examconfig.Configuration, error) {
	id, err := parseID(modelID)
	if err != nil {
		return examconfig.Configuration{}, err
	}
	var cfg examconfig.Configuration
	err = repo.db.GetContext(ctx, &cfg, "SELECT "+configCols+" FROM configuration WHERE id = $1", id)
	return cfg, notFoundErr(err)
}

func (repo *configurationRepository) AllMatching(ctx context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]examconfig.Configuration, error) {
	cond := new(conditions)
	if id := filter.InstitutionID(); id != 0 {
		cond.add("institution_id = $%d", id)
	}

	q := "SELECT " + configCols + " FROM configuration" + cond.where() + " ORDER BY version_date DESC"
	configs := make([]examconfig.Configuration, 0)
	err := repo.db.SelectContext(ctx, &configs, q, cond.args...)
	return configs, err
}

func (repo *configurationRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]examconfig.Configuration, error) {
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		if id, err := parseID(key.ModelID); err == nil {
			ids = append(ids, id)
		}
	}
	configs := make([]examconfig.Configuration, 0, len(ids))
	err := repo.db.SelectContext(ctx, &configs,
		"SELECT "+configCols+" FROM configuration WHERE id = ANY($1) ORDER BY version_date DESC", pq.Array(ids))
	return configs, err
}

func (repo *configurationRepository) CreateNew(context.Context, struct{}) (examconfig.Configuration, error) {
	return examconfig.Configuration{}, errConfigsManaged
}

func (repo *configurationRepository) Save(context.Context, string, struct{}) (examconfig.Configuration, error) {
	return examconfig.Configuration{}, errConfigsManaged
}

func (repo *configurationRepository) FollowupOf(ctx context.Context, nodeID int64) (examconfig.Configuration, error) {
	var cfg examconfig.Configuration
	err := repo.db.GetContext(ctx, &cfg,
		"SELECT "+configCols+" FROM configuration WHERE configuration_node_id = $1 AND followup", nodeID)
	return cfg, notFoundErr(err)
}

func (repo *configurationRepository) VersionsOf(ctx context.Context, nodeID int64) ([]examconfig.Configuration, error) {
	configs := make([]examconfig.Configuration, 0)
	err := repo.db.SelectContext(ctx, &configs,
		"SELECT "+configCols+" FROM configuration WHERE configuration_node_id = $1 ORDER BY version_date", nodeID)
	return configs, err
}

func (repo *configurationRepository) Create(ctx context.Context, cfg examconfig.Configuration) (examconfig.Configuration, error) {
	err := repo.db.GetContext(ctx, &cfg.ID,
		`INSERT INTO configuration (institution_id, configuration_node_id, version, version_date, followup)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		cfg.InstitutionID, cfg.NodeID, cfg.Version, cfg.VersionDate, cfg.Followup)
	return cfg, errors.Wrap(err, "inserting configuration")
}

func (repo *configurationRepository) Update(ctx context.Context, cfg examconfig.Configuration) (examconfig.Configuration, error) {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE configuration SET version = $2, version_date = $3, followup = $4 WHERE id = $1`,
		cfg.ID, cfg.Version, cfg.VersionDate, cfg.Followup)
	return cfg, errors.Wrap(err, "updating configuration")
}

// Attributes

const attributeCols = "id, parent_id, name, type, resources, default_value"

type attributeRepository struct {
	db *sqlx.DB
}

var _ examconfig.AttributeRepository = (*attributeRepository)(nil)

func NewAttributeRepository(db *sqlx.DB) examconfig.AttributeRepository {
	return &attributeRepository{db: db}
}

func (repo *attributeRepository) EntityType() entity.Type { return entity.TypeConfigurationAttribute }

func (repo *attributeRepository) ByModelID(ctx context.Context, modelID string) (examconfig.Attribute, error) {
	id, err := parseID(modelID)
	if err != nil {
		return examconfig.Attribute{}, err
	}
	var attr examconfig.Attribute
	err = repo.db.GetContext(ctx, &attr, "SELECT "+attributeCols+" FROM configuration_attribute WHERE id = $1", id)
	return attr, notFoundErr(err)
}

func (repo *attributeRepository) AllMatching(ctx context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]examconfig.Attribute, error) {
	cond := new(conditions)
	if filter.Contains(examconfig.FilterAttrParentID) {
		cond.add("parent_id = $%d", filter.GetInt64(examconfig.FilterAttrParentID))
	}
	if name := filter.Name(); name != "" {
		cond.add("name ILIKE $%d", "%"+name+"%")
	}

	q := "SELECT " + attributeCols + " FROM configuration_attribute" + cond.where() + " ORDER BY name"
	attrs := make([]examconfig.Attribute, 0)
	err := repo.db.SelectContext(ctx, &attrs, q, cond.args...)
	return attrs, err
}

func (repo *attributeRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]examconfig.Attribute, error) {
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		if id, err := parseID(key.ModelID); err == nil {
			ids = append(ids, id)
		}
	}
	attrs := make([]examconfig.Attribute, 0, len(ids))
	err := repo.db.SelectContext(ctx, &attrs,
		"SELECT "+attributeCols+" FROM configuration_attribute WHERE id = ANY($1) ORDER BY name", pq.Array(ids))
	return attrs, err
}

func (repo *attributeRepository) CreateNew(context.Context, struct{}) (examconfig.Attribute, error) {
	return examconfig.Attribute{}, errAttrsReadOnly
}

func (repo *attributeRepository) Save(context.Context, string, struct{}) (examconfig.Attribute, error) {
	return examconfig.Attribute{}, errAttrsReadOnly
}

func (repo *attributeRepository) ChildAttributes(ctx context.Context, parentID int64) ([]examconfig.Attribute, error) {
	attrs := make([]examconfig.Attribute, 0)
	err := repo.db.SelectContext(ctx, &attrs,
		"SELECT "+attributeCols+" FROM configuration_attribute WHERE parent_id = $1 ORDER BY name", parentID)
	return attrs, err
}

func (repo *attributeRepository) TopLevelAttributes(ctx context.Context) ([]examconfig.Attribute, error) {
	attrs := make([]examconfig.Attribute, 0)
	err := repo.db.SelectContext(ctx, &attrs,
		"SELECT "+attributeCols+" FROM configuration_attribute WHERE parent_id = 0 ORDER BY name")
	return attrs, err
}

// Values

const valueCols = "id, institution_id, configuration_id, attribute_id, list_index, value"

type valueRepository struct {
	db *sqlx.DB
}

var _ examconfig.ValueRepository = (*valueRepository)(nil)

func NewValueRepository(db *sqlx.DB) examconfig.ValueRepository {
	return &valueRepository{db: db}
}

func (repo *valueRepository) ByModelID(ctx context.Context, modelID string) (examconfig.Value, error) {
	id, err := parseID(modelID)
	if err != nil {
		return examconfig.Value{}, err
	}
	var val examconfig.Value
	err = repo.db.GetContext(ctx, &val, "SELECT "+valueCols+" FROM configuration_value WHERE id = $1", id)
	return val, notFoundErr(err)
}

func (repo *valueRepository) ValuesOf(ctx context.Context, configurationID int64) ([]examconfig.Value, error) {
	values := make([]examconfig.Value, 0)
	err := repo.db.SelectContext(ctx, &values,
		"SELECT "+valueCols+" FROM configuration_value WHERE configuration_id = $1 ORDER BY attribute_id, list_index",
		configurationID)
	return values, err
}

// Save upserts on the (configuration, attribute, row) key.
func (repo *valueRepository) Save(ctx context.Context, v examconfig.Value) (examconfig.Value, error) {
	err := repo.db.GetContext(ctx, &v.ID,
		`INSERT INTO configuration_value (institution_id, configuration_id, attribute_id, list_index, value)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (configuration_id, attribute_id, list_index)
		 DO UPDATE SET value = EXCLUDED.value, institution_id = EXCLUDED.institution_id
		 RETURNING id`,
		v.InstitutionID, v.ConfigurationID, v.AttributeID, v.ListIndex, v.Value)
	if err != nil {
		// an unknown attribute is bad input, not a server error
		return v, errors.Wrap(fkViolationErr(err, "attribute_id"), "saving configuration value")
	}
	return v, nil
}

func (repo *valueRepository) OrderedTableValues(ctx context.Context, configurationID, attributeID int64) ([][]examconfig.Value, error) {
	flat := make([]examconfig.Value, 0)
	err := repo.db.SelectContext(ctx, &flat,
		`SELECT `+valueCols+` FROM configuration_value
		 WHERE configuration_id = $1
		   AND attribute_id IN (SELECT id FROM configuration_attribute WHERE parent_id = $2)
		 ORDER BY list_index, attribute_id`,
		configurationID, attributeID)
	if err != nil {
		return nil, err
	}

	var rows [][]examconfig.Value
	byIndex := make(map[int]int)
	for _, v := range flat {
		i, ok := byIndex[v.ListIndex]
		if !ok {
			i = len(rows)
			byIndex[v.ListIndex] = i
			rows = append(rows, nil)
		}
		rows[i] = append(rows[i], v)
	}
	return rows, nil
}

func (repo *valueRepository) CopyValues(ctx context.Context, fromConfigID, toConfigID int64) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM configuration_value WHERE configuration_id = $1`, toConfigID); err != nil {
		return errors.Wrap(err, "clearing target values")
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO configuration_value (institution_id, configuration_id, attribute_id, list_index, value)
		 SELECT institution_id, $2, attribute_id, list_index, value
		 FROM configuration_value WHERE configuration_id = $1`,
		fromConfigID, toConfigID); err != nil {
		return errors.Wrap(err, "copying values")
	}
	return errors.Wrap(tx.Commit(), "committing value copy")
}
