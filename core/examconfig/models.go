package examconfig

import (
	"strconv"
	"time"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
)

// AttributeType drives form rendering in the console and converter
// selection on export.
type AttributeType string

const (
	TypeTextField              AttributeType = "TEXT_FIELD"
	TypeTextArea               AttributeType = "TEXT_AREA"
	TypeCheckbox               AttributeType = "CHECKBOX"
	TypeInteger                AttributeType = "INTEGER"
	TypeDecimal                AttributeType = "DECIMAL"
	TypeSingleSelection        AttributeType = "SINGLE_SELECTION"
	TypeRadioSelection         AttributeType = "RADIO_SELECTION"
	TypeMultiSelection         AttributeType = "MULTI_SELECTION"
	TypeMultiCheckboxSelection AttributeType = "MULTI_CHECKBOX_SELECTION"
	TypeFileUpload             AttributeType = "FILE_UPLOAD"
	TypeTable                  AttributeType = "TABLE"
	TypeInlineTable            AttributeType = "INLINE_TABLE"
	TypeCompositeTable         AttributeType = "COMPOSITE_TABLE"
)

var AllAttributeTypes = []AttributeType{
	TypeTextField, TypeTextArea, TypeCheckbox, TypeInteger, TypeDecimal,
	TypeSingleSelection, TypeRadioSelection, TypeMultiSelection,
	TypeMultiCheckboxSelection, TypeFileUpload,
	TypeTable, TypeInlineTable, TypeCompositeTable,
}

// Node type and status values.
const (
	NodeTypeTemplate   = "TEMPLATE"
	NodeTypeExamConfig = "EXAM_CONFIG"

	StatusConstruction = "CONSTRUCTION"
	StatusReadyToUse   = "READY_TO_USE"
	StatusInUse        = "IN_USE"
)

// Node is an exam configuration as listed in the console: the root
// entity owning the configuration version history.
type Node struct {
	ID            int64  `json:"id" db:"id"`
	InstitutionID int64  `json:"institution_id" db:"institution_id"`
	TemplateID    int64  `json:"template_id,omitempty" db:"template_id"`
	Owner         string `json:"owner" db:"owner"` // user UUID
	Name          string `json:"name" db:"name"`
	Description   string `json:"description,omitempty" db:"description"`
	Type          string `json:"type" db:"type"`
	Status        string `json:"status" db:"status"`
}

var _ entity.GrantEntity = Node{}

func (n Node) ModelID() string           { return strconv.FormatInt(n.ID, 10) }
func (n Node) EntityType() entity.Type   { return entity.TypeConfigurationNode }
func (n Node) EntityName() string        { return n.Name }
func (n Node) GrantInstitutionID() int64 { return n.InstitutionID }
func (n Node) GrantOwnerID() string      { return n.Owner }

// NodeMod contains the information needed to create or modify a Node.
// Owner is set by the API from the acting user, never from the payload.
type NodeMod struct {
	InstitutionID int64  `json:"institution_id"`
	TemplateID    int64  `json:"template_id"`
	Owner         string `json:"-"`
	Name          string `json:"name" validate:"required,min=3,max=255"`
	Description   string `json:"description"`
	Type          string `json:"type" validate:"omitempty,oneof=TEMPLATE EXAM_CONFIG"`
	Status        string `json:"status" validate:"omitempty,oneof=CONSTRUCTION READY_TO_USE IN_USE"`
}

func (m *NodeMod) Validate() error {
	m.Name = core.CleanString(m.Name)
	m.Description = core.CleanString(m.Description)
	if m.Type == "" {
		m.Type = NodeTypeExamConfig
	}
	if m.Status == "" {
		m.Status = StatusConstruction
	}
	return core.Validate.Struct(m)
}

// NewNode builds a Node from a validated creation NodeMod.
func NewNode(m NodeMod) Node {
	return Node{
		InstitutionID: m.InstitutionID,
		TemplateID:    m.TemplateID,
		Owner:         m.Owner,
		Name:          m.Name,
		Description:   m.Description,
		Type:          m.Type,
		Status:        m.Status,
	}
}

// Apply merges a validated modification into the node. Tenancy, owner
// and template binding are fixed at creation.
func (n Node) Apply(m NodeMod) Node {
	n.Name = m.Name
	n.Description = m.Description
	if m.Type != "" {
		n.Type = m.Type
	}
	if m.Status != "" {
		n.Status = m.Status
	}
	return n
}

// Configuration is one version of a node's attribute values. Exactly one
// configuration per node is the open followup; saving to history freezes
// it under a version tag and opens a new followup.
type Configuration struct {
	ID            int64     `json:"id" db:"id"`
	InstitutionID int64     `json:"institution_id" db:"institution_id"`
	NodeID        int64     `json:"configuration_node_id" db:"configuration_node_id"`
	Version       string    `json:"version,omitempty" db:"version"`
	VersionDate   time.Time `json:"version_date" db:"version_date"`
	Followup      bool      `json:"followup" db:"followup"`
}

var _ entity.GrantEntity = Configuration{}

func (c Configuration) ModelID() string           { return strconv.FormatInt(c.ID, 10) }
func (c Configuration) EntityType() entity.Type   { return entity.TypeConfiguration }
func (c Configuration) EntityName() string        { return c.Version }
func (c Configuration) GrantInstitutionID() int64 { return c.InstitutionID }
func (c Configuration) GrantOwnerID() string      { return "" }

// Attribute is static reference data describing one exam configuration
// setting: its wire name, form type and default. Table attributes own
// child attributes (columns) linked via ParentID; child names carry the
// parent name as a dot-separated prefix.
type Attribute struct {
	ID           int64         `json:"id" db:"id"`
	ParentID     int64         `json:"parent_id,omitempty" db:"parent_id"`
	Name         string        `json:"name" db:"name"`
	Type         AttributeType `json:"type" db:"type"`
	Resources    string        `json:"resources,omitempty" db:"resources"` // selection options, comma separated
	DefaultValue string        `json:"default_value,omitempty" db:"default_value"`
}

var _ entity.GrantEntity = Attribute{}

func (a Attribute) ModelID() string           { return strconv.FormatInt(a.ID, 10) }
func (a Attribute) EntityType() entity.Type   { return entity.TypeConfigurationAttribute }
func (a Attribute) EntityName() string        { return a.Name }
func (a Attribute) GrantInstitutionID() int64 { return 0 }
func (a Attribute) GrantOwnerID() string      { return "" }

// Value is the value of one attribute within one configuration.
// ListIndex orders table rows; scalar values use index 0.
type Value struct {
	ID              int64  `json:"id" db:"id"`
	InstitutionID   int64  `json:"institution_id" db:"institution_id"`
	ConfigurationID int64  `json:"configuration_id" db:"configuration_id"`
	AttributeID     int64  `json:"attribute_id" db:"attribute_id"`
	ListIndex       int    `json:"list_index" db:"list_index"`
	Value           string `json:"value" db:"value"`
}

var _ entity.GrantEntity = Value{}

func (v Value) ModelID() string           { return strconv.FormatInt(v.ID, 10) }
func (v Value) EntityType() entity.Type   { return entity.TypeConfigurationValue }
func (v Value) EntityName() string        { return v.Value }
func (v Value) GrantInstitutionID() int64 { return v.InstitutionID }
func (v Value) GrantOwnerID() string      { return "" }

// ValueMod is the save payload for a single value.
type ValueMod struct {
	ConfigurationID int64  `json:"configuration_id" validate:"required"`
	AttributeID     int64  `json:"attribute_id" validate:"required"`
	ListIndex       int    `json:"list_index" validate:"min=0"`
	Value           string `json:"value"`
}

func (m *ValueMod) Validate() error { return core.Validate.Struct(m) }

// Filter attribute names specific to exam configurations.
const (
	FilterAttrNodeType     = "type"
	FilterAttrNodeStatus   = "status"
	FilterAttrNodeOwner    = "owner"
	FilterAttrNodeTemplate = "template_id"
	FilterAttrParentID     = "parent_id"
	FilterAttrConfigID     = "configuration_id"
)
