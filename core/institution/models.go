package institution

import (
	"strconv"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
)

// Institution is the tenant entity; every other domain entity belongs to
// exactly one institution.
type Institution struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	URLSuffix string `json:"url_suffix,omitempty" db:"url_suffix"`
	LogoImage string `json:"logo_image,omitempty" db:"logo_image"` // base64 PNG
	ThemeName string `json:"theme_name,omitempty" db:"theme_name"`
	Active    bool   `json:"active" db:"active"`
}

var _ entity.GrantEntity = Institution{}

func (inst Institution) ModelID() string          { return strconv.FormatInt(inst.ID, 10) }
func (inst Institution) EntityType() entity.Type  { return entity.TypeInstitution }
func (inst Institution) EntityName() string       { return inst.Name }
func (inst Institution) GrantInstitutionID() int64 { return inst.ID }
func (inst Institution) GrantOwnerID() string     { return "" }

// Mod contains the information needed to create or modify an Institution.
type Mod struct {
	Name      string `json:"name" validate:"required"`
	URLSuffix string `json:"url_suffix" validate:"omitempty,alphanum_"`
	LogoImage string `json:"logo_image" validate:"omitempty,base64"`
	ThemeName string `json:"theme_name"`
}

// Validate cleans the input and checks field constraints plus name
// uniqueness; orig is the institution being modified, nil on creation.
func (m *Mod) Validate(svc *Service, orig *Institution) error {
	m.Name = core.CleanString(m.Name)
	m.URLSuffix = core.CleanString(m.URLSuffix, true /* lower */)

	if err := core.Validate.Struct(m); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(m.Name, orig)
}

// NewInstitution builds an Institution from a validated creation Mod.
func NewInstitution(m Mod) Institution {
	return Institution{
		Name:      m.Name,
		URLSuffix: m.URLSuffix,
		LogoImage: m.LogoImage,
		ThemeName: m.ThemeName,
		Active:    true,
	}
}

// Apply merges a validated modification into the institution.
func (inst Institution) Apply(m Mod) Institution {
	inst.Name = m.Name
	inst.URLSuffix = m.URLSuffix
	if m.LogoImage != "" {
		inst.LogoImage = m.LogoImage
	}
	if m.ThemeName != "" {
		inst.ThemeName = m.ThemeName
	}
	return inst
}
