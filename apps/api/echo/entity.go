package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/user"
)

// entityAPI implements the uniform REST surface every administrative
// resource shares: paged listings, name listings, detail, list-by-ids,
// create, update and bulk delete. Resource handlers customize it via
// the validate hook and register only the routes their resource allows.
type entityAPI[T entity.GrantEntity, M any] struct {
	dao      entity.DAO[T, M]
	authzSvc *authz.Service
	logSvc   *activitylog.Service
	bulkSvc  *entity.BulkService
	usrSvc   *user.Service

	// validate cleans and checks a bound modification; orig is nil on
	// creation. It may rewrite the modification (tenancy defaulting).
	validate func(ctx echo.Context, actor authz.Actor, m *M, orig *T) error
	// createInstID reports the institution a creation targets, for the
	// write-privilege check.
	createInstID func(m M) int64
}

func (api *entityAPI[T, M]) registerReads(g *echo.Group) {
	g.GET("", api.getPage)
	g.GET("/names", api.getNames)
	g.GET("/list", api.getForIDs)
	g.GET("/:modelId", api.getByID)
}

func (api *entityAPI[T, M]) registerWrites(g *echo.Group) {
	g.POST("", api.create)
	g.PUT("/:modelId", api.update)
	g.DELETE("/:modelId", api.delete)
}

// registerReadonly rejects all mutations; listing and detail routes
// behave as usual.
func (api *entityAPI[T, M]) registerReadonly(g *echo.Group) {
	api.registerReads(g)
	g.POST("", rejectMutation)
	g.PUT("/:modelId", rejectMutation)
	g.DELETE("/:modelId", rejectMutation)
}

// registerActivatable adds the activation toggles on top of the full
// read/write surface.
func (api *entityAPI[T, M]) registerActivatable(g *echo.Group) {
	api.registerReads(g)
	api.registerWrites(g)
	g.POST("/:modelId/activate", api.activate)
	g.POST("/:modelId/deactivate", api.deactivate)
}

func rejectMutation(echo.Context) error { return errReadonlyEntity }

// Handlers

func (api *entityAPI[T, M]) getPage(ctx echo.Context) error {
	_, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	filter := api.scopedFilter(ctx, actor)
	page := bindPage(ctx)

	ents, err := api.dao.AllMatching(ctx.Request().Context(), filter, page.Orderings())
	if err != nil {
		return errors.Wrap(err, "querying entities")
	}
	granted := authz.FilterGranted(api.authzSvc, actor, authz.PrivilegeRead, ents)
	return ctx.JSON(http.StatusOK, entity.Paginate(granted, page))
}

func (api *entityAPI[T, M]) getNames(ctx echo.Context) error {
	_, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	filter := api.scopedFilter(ctx, actor)
	ents, err := api.dao.AllMatching(ctx.Request().Context(), filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying entities")
	}
	granted := authz.FilterGranted(api.authzSvc, actor, authz.PrivilegeRead, ents)
	return ctx.JSON(http.StatusOK, entity.Names(granted))
}

func (api *entityAPI[T, M]) getByID(ctx echo.Context) error {
	_, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	e, err := api.dao.ByModelID(ctx.Request().Context(), ctx.Param("modelId"))
	if err != nil {
		return errors.Wrap(err, "finding entity")
	}
	if err = api.authzSvc.CheckGrant(actor, e, authz.PrivilegeRead); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *entityAPI[T, M]) getForIDs(ctx echo.Context) error {
	_, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	ids := bindModelIDs(ctx)
	keys := make([]entity.Key, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, entity.NewKey(api.dao.EntityType(), id))
	}

	ents, err := api.dao.LoadEntities(ctx.Request().Context(), keys)
	if err != nil {
		return errors.Wrap(err, "loading entities")
	}
	granted := authz.FilterGranted(api.authzSvc, actor, authz.PrivilegeRead, ents)
	return ctx.JSON(http.StatusOK, granted)
}

func (api *entityAPI[T, M]) create(ctx echo.Context) error {
	usr, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	var data M
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding modification")
	}
	if err = api.validate(ctx, actor, &data, nil); err != nil {
		return err
	}
	if err = api.authzSvc.CheckPrivilege(actor, api.dao.EntityType(), authz.PrivilegeWrite, api.createInstID(data)); err != nil {
		return err
	}

	e, err := api.dao.CreateNew(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating entity")
	}
	api.logSvc.Log(ctx.Request().Context(), actor, usr.Username, activitylog.ActivityCreate, e, "")
	return ctx.JSON(http.StatusCreated, e)
}

func (api *entityAPI[T, M]) update(ctx echo.Context) error {
	usr, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	orig, err := api.dao.ByModelID(ctx.Request().Context(), ctx.Param("modelId"))
	if err != nil {
		return errors.Wrap(err, "finding entity")
	}
	if err = api.authzSvc.CheckGrant(actor, orig, authz.PrivilegeModify); err != nil {
		return err
	}

	var data M
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding modification")
	}
	if err = api.validate(ctx, actor, &data, &orig); err != nil {
		return err
	}

	e, err := api.dao.Save(ctx.Request().Context(), orig.ModelID(), data)
	if err != nil {
		return errors.Wrap(err, "saving entity")
	}
	api.logSvc.Log(ctx.Request().Context(), actor, usr.Username, activitylog.ActivityModify, e, "")
	return ctx.JSON(http.StatusOK, e)
}

func (api *entityAPI[T, M]) delete(ctx echo.Context) error {
	return api.processBulk(ctx, entity.BulkHardDelete, activitylog.ActivityDelete)
}

func (api *entityAPI[T, M]) activate(ctx echo.Context) error {
	return api.processBulk(ctx, entity.BulkActivate, activitylog.ActivityActivate)
}

func (api *entityAPI[T, M]) deactivate(ctx echo.Context) error {
	return api.processBulk(ctx, entity.BulkDeactivate, activitylog.ActivityDeactivate)
}

// processBulk runs a cascading action rooted at the addressed entity
// and returns the processing report. Per-dependency failures land in
// the report; only a failure on the source entity itself fails the
// request.
func (api *entityAPI[T, M]) processBulk(ctx echo.Context, action entity.BulkActionType, activity activitylog.ActivityType) error {
	usr, actor, err := getContextActor(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	e, err := api.dao.ByModelID(ctx.Request().Context(), ctx.Param("modelId"))
	if err != nil {
		return errors.Wrap(err, "finding entity")
	}
	if err = api.authzSvc.CheckGrant(actor, e, authz.PrivilegeWrite); err != nil {
		return err
	}

	report, err := api.bulkSvc.Process(ctx.Request().Context(), entity.BulkAction{
		Type:   action,
		Source: entity.NewKey(e.EntityType(), e.ModelID()),
	})
	if err != nil {
		return errors.Wrapf(err, "processing %s", action)
	}
	api.logSvc.Log(ctx.Request().Context(), actor, usr.Username, activity, e, "")
	return ctx.JSON(http.StatusOK, report)
}

// scopedFilter narrows listings of non server admins to their own
// institution unless the request filters one explicitly.
func (api *entityAPI[T, M]) scopedFilter(ctx echo.Context, actor authz.Actor) entity.FilterMap {
	filter := bindFilter(ctx)
	if !actor.HasRole(authz.RoleServerAdmin) {
		filter.PutIfAbsent(entity.FilterAttrInstitution, strconv.FormatInt(actor.InstitutionID, 10))
	}
	return filter
}
