package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/program"
)

type programApi struct {
	svc      *program.Service
	validate *validator.Validate
}

func registerProgramAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *program.Service, validate *validator.Validate) {
	api := programApi{svc: svc, validate: validate}

	manage := allow(access.ActionManagePrograms)

	pg := g.Group("/programs", jwt)
	pg.GET("", api.query)
	pg.POST("", api.create, manage)
	pg.GET("/stats", api.stats)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update, manage)
	pg.DELETE("/:id", api.destroy, manage)
}

func (api *programApi) query(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter program.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []program.Program{})
	}
	var ord Ordering
	ord.Bind(ctx)

	prgs, err := api.svc.Query(ctx.Request().Context(), p, filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	return ctx.JSON(http.StatusOK, prgs)
}

func (api *programApi) stats(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter program.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	st, err := api.svc.Stats(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "computing program stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *programApi) create(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	prg, err := createDraft(ctx, program.NewFields(), func(f program.Fields) (program.Program, error) {
		return api.svc.Create(ctx.Request().Context(), p, f)
	})
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, prg)
}

func (api *programApi) retrieve(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	prg, err := api.svc.Get(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	return ctx.JSON(http.StatusOK, prg)
}

func (api *programApi) update(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	id := ctx.Param("id")

	current, err := api.svc.Get(rctx, p, id)
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	prg, err := editDraft(ctx, current, current.Fields(), func(f program.Fields) (program.Program, error) {
		return api.svc.Update(rctx, p, id, f)
	})
	if err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, prg)
}

func (api *programApi) destroy(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting program")
	}
	return ctx.NoContent(http.StatusNoContent)
}
