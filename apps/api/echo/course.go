package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/course"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, validate *validator.Validate) {
	api := courseApi{svc: svc, validate: validate}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, allow(access.ActionManageCourses))
	cg.GET("/stats", api.stats)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, allow(access.ActionManageCourses))
	cg.DELETE("/:id", api.destroy, allow(access.ActionManageCourses))
	cg.PATCH("/:id/assignments", api.toggleAssignment, allow(access.ActionManageCourses))
	cg.POST("/:id/enroll", api.enroll, allow(access.ActionEnroll))
	cg.GET("/:id/enrollments", api.courseEnrollments)
	cg.POST("/:id/units", api.createUnit, allow(access.ActionManageHierarchy))
	cg.PUT("/:id/units/order", api.reorder(course.LevelUnit), allow(access.ActionManageHierarchy))

	manage := allow(access.ActionManageHierarchy)

	ug := g.Group("/units", jwt)
	ug.GET("/:id", api.retrieveUnit)
	ug.PUT("/:id", api.updateUnit, manage)
	ug.DELETE("/:id", api.destroyUnit, manage)
	ug.PUT("/:id/publish", api.publish(course.LevelUnit), manage)
	ug.POST("/:id/topics", api.createTopic, manage)
	ug.PUT("/:id/topics/order", api.reorder(course.LevelTopic), manage)

	tg := g.Group("/topics", jwt)
	tg.GET("/:id", api.retrieveTopic)
	tg.PUT("/:id", api.updateTopic, manage)
	tg.DELETE("/:id", api.destroyTopic, manage)
	tg.PUT("/:id/publish", api.publish(course.LevelTopic), manage)
	tg.POST("/:id/contents", api.createContent, manage)
	tg.PUT("/:id/contents/order", api.reorder(course.LevelContent), manage)

	ctg := g.Group("/contents", jwt)
	ctg.GET("/:id", api.retrieveContent)
	ctg.PUT("/:id", api.updateContent, manage)
	ctg.DELETE("/:id", api.destroyContent, manage)
	ctg.PUT("/:id/publish", api.publish(course.LevelContent), manage)

	eg := g.Group("/enrollments", jwt)
	eg.GET("", api.queryEnrollments)
	eg.PUT("/:id", api.updateEnrollment, allow(access.ActionManageEnrollments))
	eg.DELETE("/:id", api.withdraw)
}

// Courses

func (api *courseApi) query(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter course.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) stats(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter course.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	st, err := api.svc.Stats(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "computing course stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *courseApi) create(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	c, err := createDraft(ctx, course.NewCourseFields(), func(f course.CourseFields) (course.Course, error) {
		return api.svc.CreateCourse(ctx.Request().Context(), p, f)
	})
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

// retrieve returns the course tree, with the description rendered to HTML.
func (api *courseApi) retrieve(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	tree, err := api.svc.Tree(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building course tree")
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *courseApi) update(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	id := ctx.Param("id")

	current, err := api.svc.GetCourse(rctx, p, id)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	c, err := editDraft(ctx, current, current.Fields(), func(f course.CourseFields) (course.Course, error) {
		return api.svc.UpdateCourse(rctx, p, id, f)
	})
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCourse(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) toggleAssignment(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var data ToggleRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ToggleRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	c, err := api.svc.ToggleAssignment(ctx.Request().Context(), p, ctx.Param("id"), data.Field, data.Value, data.Checked)
	if err != nil {
		return errors.Wrap(err, "toggling course assignment")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) courseEnrollments(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter course.EnrollmentFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Enrollment{})
	}
	filter.CourseID = ctx.Param("id")

	enrs, err := api.svc.QueryEnrollments(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

// publish returns the handler flipping the publish flag of a node of the given level.
func (api *courseApi) publish(level course.Level) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := principal(ctx)
		if err != nil {
			return err
		}
		var data PublishRequest
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to PublishRequest")
		}

		if err = api.svc.SetPublished(ctx.Request().Context(), p, level, ctx.Param("id"), data.Published); err != nil {
			return errors.Wrapf(err, "publishing %s", level)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

// reorder returns the handler reordering the children of the given level under the :id parent.
func (api *courseApi) reorder(level course.Level) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := principal(ctx)
		if err != nil {
			return err
		}
		var data ReorderRequest
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to ReorderRequest")
		}

		if err = api.svc.Reorder(ctx.Request().Context(), p, level, ctx.Param("id"), data.IDs); err != nil {
			return errors.Wrapf(err, "reordering %ss", level)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

// Units

func (api *courseApi) createUnit(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	u, err := createDraft(ctx, course.UnitFields{}, func(f course.UnitFields) (course.Unit, error) {
		return api.svc.CreateUnit(ctx.Request().Context(), p, ctx.Param("id"), f)
	})
	if err != nil {
		return errors.Wrap(err, "creating unit")
	}
	return ctx.JSON(http.StatusCreated, u)
}

func (api *courseApi) retrieveUnit(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	u, err := api.svc.GetUnit(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding unit")
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *courseApi) updateUnit(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	id := ctx.Param("id")

	current, err := api.svc.GetUnit(rctx, p, id)
	if err != nil {
		return errors.Wrap(err, "finding unit")
	}
	u, err := editDraft(ctx, current, current.Fields(), func(f course.UnitFields) (course.Unit, error) {
		return api.svc.UpdateUnit(rctx, p, id, f)
	})
	if err != nil {
		return errors.Wrap(err, "updating unit")
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *courseApi) destroyUnit(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteUnit(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting unit")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Topics

func (api *courseApi) createTopic(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	t, err := createDraft(ctx, course.TopicFields{}, func(f course.TopicFields) (course.Topic, error) {
		return api.svc.CreateTopic(ctx.Request().Context(), p, ctx.Param("id"), f)
	})
	if err != nil {
		return errors.Wrap(err, "creating topic")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *courseApi) retrieveTopic(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.GetTopic(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding topic")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *courseApi) updateTopic(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	id := ctx.Param("id")

	current, err := api.svc.GetTopic(rctx, p, id)
	if err != nil {
		return errors.Wrap(err, "finding topic")
	}
	t, err := editDraft(ctx, current, current.Fields(), func(f course.TopicFields) (course.Topic, error) {
		return api.svc.UpdateTopic(rctx, p, id, f)
	})
	if err != nil {
		return errors.Wrap(err, "updating topic")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *courseApi) destroyTopic(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteTopic(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting topic")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Content items

func (api *courseApi) createContent(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	ci, err := createDraft(ctx, course.ContentFields{}, func(f course.ContentFields) (course.ContentItem, error) {
		return api.svc.CreateContent(ctx.Request().Context(), p, ctx.Param("id"), f)
	})
	if err != nil {
		return errors.Wrap(err, "creating content")
	}
	return ctx.JSON(http.StatusCreated, ci)
}

func (api *courseApi) retrieveContent(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	ci, err := api.svc.GetContent(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding content")
	}
	return ctx.JSON(http.StatusOK, ci)
}

func (api *courseApi) updateContent(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	id := ctx.Param("id")

	current, err := api.svc.GetContent(rctx, p, id)
	if err != nil {
		return errors.Wrap(err, "finding content")
	}
	ci, err := editDraft(ctx, current, current.Fields(), func(f course.ContentFields) (course.ContentItem, error) {
		return api.svc.UpdateContent(rctx, p, id, f)
	})
	if err != nil {
		return errors.Wrap(err, "updating content")
	}
	return ctx.JSON(http.StatusOK, ci)
}

func (api *courseApi) destroyContent(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteContent(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Enrollments

func (api *courseApi) queryEnrollments(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var filter course.EnrollmentFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Enrollment{})
	}

	enrs, err := api.svc.QueryEnrollments(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *courseApi) updateEnrollment(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	var data course.EnrollmentFields
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentFields")
	}

	enr, err := api.svc.UpdateEnrollment(ctx.Request().Context(), p, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *courseApi) withdraw(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	enr, err := api.svc.Withdraw(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "withdrawing enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

type ToggleRequest struct {
	Field   string `json:"field" validate:"required,oneof=assigned_faculty assigned_hods assigned_departments outcomes tags"`
	Value   string `json:"value" validate:"required"`
	Checked bool   `json:"checked"`
}
