package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/institution"
)

type infoApi struct {
	instSvc  *institution.Service
	authzSvc *authz.Service
}

// registerInfoAPI exposes the unauthenticated institution lookup the
// login screen themes itself with, plus the privilege matrix.
func registerInfoAPI(g *echo.Group, jwt echo.MiddlewareFunc, instSvc *institution.Service, authzSvc *authz.Service) {
	api := infoApi{instSvc: instSvc, authzSvc: authzSvc}

	ig := g.Group("/info")
	ig.GET("/logo/:suffix", api.logo)
	ig.GET("/privileges", api.privileges, jwt)
}

func (api *infoApi) logo(ctx echo.Context) error {
	inst, err := api.instSvc.GetByURLSuffix(ctx.Request().Context(), ctx.Param("suffix"))
	if err != nil {
		if errors.Cause(err) == institution.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding institution by URL suffix")
	}
	if !inst.Active {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, LogoResponse{
		InstitutionID: inst.ID,
		LogoImage:     inst.LogoImage,
		ThemeName:     inst.ThemeName,
	})
}

func (api *infoApi) privileges(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.authzSvc.AllPrivileges())
}

type LogoResponse struct {
	InstitutionID int64  `json:"institution_id"`
	LogoImage     string `json:"logo_image,omitempty"`
	ThemeName     string `json:"theme_name,omitempty"`
}
