package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/user"
)

// The audit trail is exposed read-only; records are only ever written
// as a side effect of other requests.
func registerActivityLogAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *activitylog.Service,
	authzSvc *authz.Service,
	bulkSvc *entity.BulkService,
	usrSvc *user.Service,
) {
	api := &entityAPI[activitylog.Log, activitylog.Mod]{
		dao:          svc.Repo(),
		authzSvc:     authzSvc,
		logSvc:       svc,
		bulkSvc:      bulkSvc,
		usrSvc:       usrSvc,
		validate:     func(echo.Context, authz.Actor, *activitylog.Mod, *activitylog.Log) error { return errReadonlyEntity },
		createInstID: func(activitylog.Mod) int64 { return 0 },
	}

	lg := g.Group("/userlogs", jwt)
	api.registerReadonly(lg)
}
