package user

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
)

// FilterAttrRole filters user listings by assigned role.
const FilterAttrRole = "role"

// User is an administrative user account. The UUID is the public model
// id; the numeric ID stays internal to the database.
type User struct {
	ID            int64     `json:"-" db:"id"`
	UUID          string    `json:"uuid" db:"uuid"`
	InstitutionID int64     `json:"institution_id" db:"institution_id"`
	Name          string    `json:"name" db:"name"`
	Username      string    `json:"username" db:"username"`
	Email         string    `json:"email" db:"email"`
	Language      string    `json:"language" db:"language"`
	Timezone      string    `json:"timezone" db:"timezone"`
	Roles         []string  `json:"roles" db:"-"`
	Active        bool      `json:"active" db:"active"`
	PasswordHash  []byte    `json:"-" db:"password_hash"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin     time.Time `json:"last_login" db:"last_login"` // UTC
}

var _ entity.GrantEntity = User{}

func (u User) ModelID() string           { return u.UUID }
func (u User) EntityType() entity.Type   { return entity.TypeUser }
func (u User) EntityName() string        { return u.Name }
func (u User) GrantInstitutionID() int64 { return u.InstitutionID }
func (u User) GrantOwnerID() string      { return u.UUID }

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// TokenFingerprint derives a short opaque fingerprint from the current
// password hash. Issued tokens carry it, so changing the password
// invalidates every token issued before the change.
func (u *User) TokenFingerprint() string {
	sum := sha256.Sum256(u.PasswordHash)
	return hex.EncodeToString(sum[:8])
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsServerAdmin() bool {
	return u.HasRole(authz.RoleServerAdmin)
}

func (u *User) IsInstitutionAdmin() bool {
	return u.HasRole(authz.RoleInstitutionAdmin) || u.IsServerAdmin()
}

// Actor maps the user to its authorization view.
func (u *User) Actor() authz.Actor {
	return authz.Actor{
		UUID:          u.UUID,
		InstitutionID: u.InstitutionID,
		Roles:         u.Roles,
	}
}

// Mod contains the information needed to create or modify a User.
// On modification, empty fields keep their current value.
type Mod struct {
	InstitutionID   int64    `json:"institution_id"`
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Language        string   `json:"language"`
	Timezone        string   `json:"timezone"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Validate cleans the input and checks field constraints plus
// username/email uniqueness; orig is nil on creation.
func (m *Mod) Validate(svc *Service, orig *User) error {
	m.Name = core.CleanString(m.Name)
	m.Username = core.CleanString(m.Username, true /* lower */)
	m.Email = core.CleanString(m.Email, true /* lower */)

	if orig == nil {
		// creation requires the full set
		if err := core.Validate.Var(m.Name, "required"); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
		}
		if m.Username == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "username", Error: "this field is required"})
		}
		if m.Email == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "email", Error: "this field is required"})
		}
		if m.Password == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "password", Error: "this field is required"})
		}
	} else {
		if m.Name == "" {
			m.Name = orig.Name
		}
		if m.Username == "" {
			m.Username = orig.Username
		}
		if m.Email == "" {
			m.Email = orig.Email
		}
		if m.InstitutionID == 0 {
			m.InstitutionID = orig.InstitutionID
		}
	}

	if err := core.Validate.Struct(m); err != nil {
		return err
	}
	return svc.checkUniqueness(m.Username, m.Email, orig)
}

// NewUser builds a User from a validated creation Mod.
func NewUser(m Mod) (User, error) {
	now := time.Now().UTC()
	usr := User{
		UUID:          uuid.New().String(),
		InstitutionID: m.InstitutionID,
		Name:          m.Name,
		Username:      m.Username,
		Email:         m.Email,
		Language:      m.Language,
		Timezone:      m.Timezone,
		Roles:         m.Roles,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := usr.SetPassword(m.Password); err != nil {
		return User{}, err
	}
	return usr, nil
}

// Apply merges a validated modification into the user. Passwords only
// change through the dedicated endpoints.
func (u User) Apply(m Mod) User {
	u.InstitutionID = m.InstitutionID
	u.Name = m.Name
	u.Username = m.Username
	u.Email = m.Email
	if m.Language != "" {
		u.Language = m.Language
	}
	if m.Timezone != "" {
		u.Timezone = m.Timezone
	}
	if m.Roles != nil {
		u.Roles = m.Roles
	}
	u.UpdatedAt = time.Now().UTC()
	return u
}

// PasswordChange is the payload of the password-change endpoint.
type PasswordChange struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=NewPassword"`
}

func (pc PasswordChange) Validate() error { return core.Validate.Struct(pc) }

// ResetPassword is the payload of the password-reset confirmation.
type ResetPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate() error { return core.Validate.Struct(rp) }
