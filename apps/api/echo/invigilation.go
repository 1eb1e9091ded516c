package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/invigilation"
)

type invigilationApi struct {
	svc      *invigilation.Service
	validate *validator.Validate
}

func registerInvigilationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *invigilation.Service, validate *validator.Validate) {
	api := invigilationApi{svc: svc, validate: validate}

	view := allow(access.ActionViewInvigilation)

	ig := g.Group("/invigilators", jwt)
	ig.GET("", api.query, view)
	ig.POST("", api.create)
	ig.GET("/stats", api.stats, view)
	ig.GET("/:id", api.retrieve, view)
	ig.PUT("/:id", api.update)
	ig.DELETE("/:id", api.destroy)
	ig.PUT("/:id/availability", api.updateAvailability)
	ig.PUT("/:id/ratings", api.rate)

	dg := g.Group("/duties", jwt)
	dg.GET("", api.queryDuties, view)
	dg.POST("", api.createDuty)
	dg.GET("/stats", api.dutyStats, view)
	dg.GET("/:id", api.retrieveDuty, view)
	dg.PUT("/:id", api.updateDuty)
	dg.DELETE("/:id", api.destroyDuty)
	dg.POST("/:id/invigilators", api.assign)
	dg.DELETE("/:id/invigilators/:invID", api.unassign)
	dg.PUT("/:id/head", api.setHead)
}

// Invigilators

func (api *invigilationApi) query(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter invigilation.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []invigilation.Invigilator{})
	}

	invs, err := api.svc.Query(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying invigilators")
	}
	return ctx.JSON(http.StatusOK, invs)
}

func (api *invigilationApi) stats(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter invigilation.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	st, err := api.svc.Stats(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "computing invigilator stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *invigilationApi) create(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	inv, err := createDraft(ctx, invigilation.NewInvigilatorFields(), func(f invigilation.InvigilatorFields) (invigilation.Invigilator, error) {
		return api.svc.Create(ctx.Request().Context(), p, f)
	})
	if err != nil {
		return errors.Wrap(err, "creating invigilator")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *invigilationApi) retrieve(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	inv, err := api.svc.Get(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding invigilator")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invigilationApi) update(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err = access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	id := ctx.Param("id")

	current, err := api.svc.Get(rctx, p, id)
	if err != nil {
		return errors.Wrap(err, "finding invigilator")
	}
	inv, err := editDraft(ctx, current, current.Fields(), func(f invigilation.InvigilatorFields) (invigilation.Invigilator, error) {
		return api.svc.Update(rctx, p, id, f)
	})
	if err != nil {
		return errors.Wrap(err, "updating invigilator")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invigilationApi) destroy(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting invigilator")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *invigilationApi) updateAvailability(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var data AvailabilityRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AvailabilityRequest")
	}

	inv, err := api.svc.UpdateAvailability(ctx.Request().Context(), p, ctx.Param("id"), data.Date, data.Status)
	if err != nil {
		return errors.Wrap(err, "updating availability")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invigilationApi) rate(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var data invigilation.Ratings
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Ratings")
	}

	inv, err := api.svc.Rate(ctx.Request().Context(), p, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "rating invigilator")
	}
	return ctx.JSON(http.StatusOK, inv)
}

// Exam duties

func (api *invigilationApi) queryDuties(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter invigilation.DutyFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []invigilation.ExamDuty{})
	}

	duties, err := api.svc.QueryDuties(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying duties")
	}
	return ctx.JSON(http.StatusOK, duties)
}

func (api *invigilationApi) dutyStats(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter invigilation.DutyFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to DutyFilter")
	}

	st, err := api.svc.DutyStats(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "computing duty stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *invigilationApi) createDuty(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	duty, err := createDraft(ctx, invigilation.NewDutyFields(), func(f invigilation.DutyFields) (invigilation.ExamDuty, error) {
		return api.svc.CreateDuty(ctx.Request().Context(), p, f)
	})
	if err != nil {
		return errors.Wrap(err, "creating duty")
	}
	return ctx.JSON(http.StatusCreated, duty)
}

func (api *invigilationApi) retrieveDuty(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	duty, err := api.svc.GetDuty(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding duty")
	}
	return ctx.JSON(http.StatusOK, duty)
}

func (api *invigilationApi) updateDuty(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err = access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	id := ctx.Param("id")

	current, err := api.svc.GetDuty(rctx, p, id)
	if err != nil {
		return errors.Wrap(err, "finding duty")
	}
	duty, err := editDraft(ctx, current, current.Fields(), func(f invigilation.DutyFields) (invigilation.ExamDuty, error) {
		return api.svc.UpdateDuty(rctx, p, id, f)
	})
	if err != nil {
		return errors.Wrap(err, "updating duty")
	}
	return ctx.JSON(http.StatusOK, duty)
}

func (api *invigilationApi) destroyDuty(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteDuty(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting duty")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *invigilationApi) assign(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var data AssignRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	duty, err := api.svc.Assign(ctx.Request().Context(), p, ctx.Param("id"), data.InvigilatorID)
	if err != nil {
		return errors.Wrap(err, "assigning invigilator")
	}
	return ctx.JSON(http.StatusOK, duty)
}

func (api *invigilationApi) unassign(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	duty, err := api.svc.Unassign(ctx.Request().Context(), p, ctx.Param("id"), ctx.Param("invID"))
	if err != nil {
		return errors.Wrap(err, "unassigning invigilator")
	}
	return ctx.JSON(http.StatusOK, duty)
}

func (api *invigilationApi) setHead(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var data AssignRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	duty, err := api.svc.SetHead(ctx.Request().Context(), p, ctx.Param("id"), data.InvigilatorID)
	if err != nil {
		return errors.Wrap(err, "setting head invigilator")
	}
	return ctx.JSON(http.StatusOK, duty)
}

type (
	AvailabilityRequest struct {
		Date   string `json:"date"`
		Status string `json:"status"`
	}

	AssignRequest struct {
		InvigilatorID string `json:"invigilator_id" validate:"required"`
	}
)
