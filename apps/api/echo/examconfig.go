package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/examconfig"
	"github.com/invigilo/invigilo/core/examconfig/convert"
	"github.com/invigilo/invigilo/core/user"
)

const formatParam = "format"

type examConfigApi struct {
	svc        *examconfig.Service
	convertSvc *convert.Service
	logSvc     *activitylog.Service

	*entityAPI[examconfig.Node, examconfig.NodeMod]
}

func registerExamConfigAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *examconfig.Service,
	convertSvc *convert.Service,
	authzSvc *authz.Service,
	logSvc *activitylog.Service,
	bulkSvc *entity.BulkService,
	usrSvc *user.Service,
) {
	api := examConfigApi{svc: svc, convertSvc: convertSvc, logSvc: logSvc}
	api.entityAPI = &entityAPI[examconfig.Node, examconfig.NodeMod]{
		dao:      svc.Nodes(),
		authzSvc: authzSvc,
		logSvc:   logSvc,
		bulkSvc:  bulkSvc,
		usrSvc:   usrSvc,
		validate: func(ctx echo.Context, actor authz.Actor, m *examconfig.NodeMod, orig *examconfig.Node) error {
			if !actor.HasRole(authz.RoleServerAdmin) || m.InstitutionID == 0 {
				m.InstitutionID = actor.InstitutionID
			}
			return m.Validate()
		},
		createInstID: func(m examconfig.NodeMod) int64 { return m.InstitutionID },
	}

	// the attribute catalog is global, static reference data
	attrApi := &entityAPI[examconfig.Attribute, struct{}]{
		dao:          svc.Attrs(),
		authzSvc:     authzSvc,
		logSvc:       logSvc,
		bulkSvc:      bulkSvc,
		usrSvc:       usrSvc,
		validate:     func(echo.Context, authz.Actor, *struct{}, *examconfig.Attribute) error { return errReadonlyEntity },
		createInstID: func(struct{}) int64 { return 0 },
	}
	attrApi.registerReadonly(g.Group("/configuration-attributes", jwt))

	ng := g.Group("/configuration-nodes", jwt)
	api.registerReads(ng)
	ng.POST("", api.createNode) // creation opens the followup configuration
	ng.PUT("/:modelId", api.update)
	ng.DELETE("/:modelId", api.delete)
	ng.GET("/:modelId/configurations", api.configurations)
	ng.GET("/:modelId/followup", api.followup)
	ng.GET("/:modelId/export", api.export)
	ng.POST("/:modelId/save-to-history", api.saveToHistory)
	ng.POST("/:modelId/undo", api.undo)

	vg := g.Group("/configuration-values", jwt)
	vg.GET("", api.getValuePage)
	vg.POST("", api.saveValue)
	vg.PUT("", api.saveValue)
}

// Handlers

func (api *examConfigApi) createNode(ctx echo.Context) error {
	usr, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	var data examconfig.NodeMod
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NodeMod")
	}
	if err = api.entityAPI.validate(ctx, actor, &data, nil); err != nil {
		return err
	}
	if err = api.authzSvc.CheckPrivilege(actor, entity.TypeConfigurationNode, authz.PrivilegeWrite, data.InstitutionID); err != nil {
		return err
	}

	node, err := api.svc.CreateNode(ctx.Request().Context(), data, actor.UUID)
	if err != nil {
		return errors.Wrap(err, "creating configuration node")
	}
	api.logSvc.Log(ctx.Request().Context(), actor, usr.Username, activitylog.ActivityCreate, node, "")
	return ctx.JSON(http.StatusCreated, node)
}

func (api *examConfigApi) configurations(ctx echo.Context) error {
	node, _, err := api.grantedNode(ctx, authz.PrivilegeRead)
	if err != nil {
		return err
	}
	configs, err := api.svc.ConfigurationsOf(ctx.Request().Context(), node.ID)
	if err != nil {
		return errors.Wrap(err, "listing configurations")
	}
	if configs == nil {
		configs = []examconfig.Configuration{}
	}
	return ctx.JSON(http.StatusOK, configs)
}

func (api *examConfigApi) followup(ctx echo.Context) error {
	node, _, err := api.grantedNode(ctx, authz.PrivilegeRead)
	if err != nil {
		return err
	}
	cfg, err := api.svc.Followup(ctx.Request().Context(), node.ID)
	if err != nil {
		return errors.Wrap(err, "finding followup configuration")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *examConfigApi) saveToHistory(ctx echo.Context) error {
	node, usr, err := api.grantedNode(ctx, authz.PrivilegeModify)
	if err != nil {
		return err
	}

	saved, err := api.svc.SaveToHistory(ctx.Request().Context(), node.ID)
	if err != nil {
		if errors.Cause(err) == examconfig.ErrNoFollowup {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return errors.Wrap(err, "saving configuration to history")
	}
	api.logSvc.Log(ctx.Request().Context(), usr.Actor(), usr.Username, activitylog.ActivityModify, saved, "saved to history as "+saved.Version)
	return ctx.JSON(http.StatusOK, saved)
}

func (api *examConfigApi) undo(ctx echo.Context) error {
	node, usr, err := api.grantedNode(ctx, authz.PrivilegeModify)
	if err != nil {
		return err
	}

	followup, err := api.svc.Undo(ctx.Request().Context(), node.ID)
	if err != nil {
		if errors.Cause(err) == examconfig.ErrNoHistory {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return errors.Wrap(err, "undoing configuration changes")
	}
	api.logSvc.Log(ctx.Request().Context(), usr.Actor(), usr.Username, activitylog.ActivityModify, followup, "restored last saved version")
	return ctx.JSON(http.StatusOK, followup)
}

// export streams the followup configuration as an exam-client config
// document in the requested format (plist XML by default).
func (api *examConfigApi) export(ctx echo.Context) error {
	node, usr, err := api.grantedNode(ctx, authz.PrivilegeRead)
	if err != nil {
		return err
	}

	cfg, err := api.svc.Followup(ctx.Request().Context(), node.ID)
	if err != nil {
		return errors.Wrap(err, "finding followup configuration")
	}

	format := convert.Format(ctx.QueryParam(formatParam))
	contentType := "application/xml"
	ext := "xml"
	if format == convert.FormatJSON {
		contentType = echo.MIMEApplicationJSON
		ext = "json"
	} else {
		format = convert.FormatXML
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, contentType)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", node.Name+"."+ext))
	res.WriteHeader(http.StatusOK)

	if err = api.convertSvc.Export(ctx.Request().Context(), res, format, cfg); err != nil {
		return errors.Wrap(err, "exporting configuration")
	}
	api.logSvc.Log(ctx.Request().Context(), usr.Actor(), usr.Username, activitylog.ActivityExport, cfg, string(format))
	return nil
}

func (api *examConfigApi) getValuePage(ctx echo.Context) error {
	_, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	configID := bindFilter(ctx).GetInt64(examconfig.FilterAttrConfigID)
	if configID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, examconfig.FilterAttrConfigID+" filter is required")
	}

	values, err := api.svc.Values().ValuesOf(ctx.Request().Context(), configID)
	if err != nil {
		return errors.Wrap(err, "querying values")
	}
	granted := authz.FilterGranted(api.authzSvc, actor, authz.PrivilegeRead, values)
	return ctx.JSON(http.StatusOK, entity.Paginate(granted, bindPage(ctx)))
}

func (api *examConfigApi) saveValue(ctx echo.Context) error {
	usr, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	var data examconfig.ValueMod
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ValueMod")
	}

	cfg, err := api.svc.Configs().ByModelID(ctx.Request().Context(), strconv.FormatInt(data.ConfigurationID, 10))
	if err != nil {
		return errors.Wrap(err, "finding configuration")
	}
	if err = api.authzSvc.CheckPrivilege(actor, entity.TypeConfigurationValue, authz.PrivilegeWrite, cfg.InstitutionID); err != nil {
		return err
	}

	val, err := api.svc.SaveValue(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving value")
	}
	api.logSvc.Log(ctx.Request().Context(), actor, usr.Username, activitylog.ActivityModify, val, "")
	return ctx.JSON(http.StatusOK, val)
}

// grantedNode resolves the addressed node and checks the grant.
func (api *examConfigApi) grantedNode(ctx echo.Context, priv authz.PrivilegeType) (examconfig.Node, user.User, error) {
	usr, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return examconfig.Node{}, user.User{}, errors.Wrap(err, "getting context actor")
	}
	node, err := api.svc.Nodes().ByModelID(ctx.Request().Context(), ctx.Param("modelId"))
	if err != nil {
		return examconfig.Node{}, user.User{}, errors.Wrap(err, "finding configuration node")
	}
	if err = api.authzSvc.CheckGrant(actor, node, priv); err != nil {
		return examconfig.Node{}, user.User{}, err
	}
	return node, usr, nil
}
