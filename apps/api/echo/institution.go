package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/institution"
	"github.com/invigilo/invigilo/core/user"
)

func registerInstitutionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *institution.Service,
	authzSvc *authz.Service,
	logSvc *activitylog.Service,
	bulkSvc *entity.BulkService,
	usrSvc *user.Service,
) {
	api := &entityAPI[institution.Institution, institution.Mod]{
		dao:      svc.Repo(),
		authzSvc: authzSvc,
		logSvc:   logSvc,
		bulkSvc:  bulkSvc,
		usrSvc:   usrSvc,
		validate: func(ctx echo.Context, actor authz.Actor, m *institution.Mod, orig *institution.Institution) error {
			return m.Validate(svc, orig)
		},
		// institutions are the tenants themselves: creation is a
		// base-privilege operation, no target institution involved
		createInstID: func(institution.Mod) int64 { return 0 },
	}

	ig := g.Group("/institutions", jwt)
	api.registerActivatable(ig)
}
