package user

import (
	"github.com/go-playground/validator/v10"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/authz"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"
)

func init() {
	_ = core.Validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(allRolesTag, allRolesText)
}

// allRolesValidation checks that all roles in the field are known.
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if authz.RolePriority(role) == 0 {
			return false
		}
	}
	return true
}
