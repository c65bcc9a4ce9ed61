package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/catalog"
)

type catalogApi struct {
	svc      catalog.Service
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc catalog.Service, validate *validator.Validate) {
	api := catalogApi{svc: svc, validate: validate}

	// authed reads; staff sees drafts, students only published content
	pg := g.Group("/programs", jwt)
	pg.GET("", api.queryPrograms)
	pg.GET("/:slug", api.retrieveProgram)
	pg.POST("", api.createProgram, staffMiddleware())
	pg.PUT("/:id", api.updateProgram, staffMiddleware())
	pg.DELETE("/:id", api.destroyProgram, adminMiddleware())

	cg := g.Group("/courses", jwt)
	cg.GET("", api.queryCourses)
	cg.GET("/:slug", api.retrieveCourse)
	cg.POST("", api.createCourse, staffMiddleware())
	cg.PUT("/:id", api.updateCourse, staffMiddleware())
	cg.DELETE("/:id", api.destroyCourse, adminMiddleware())

	lg := g.Group("/lessons", jwt)
	lg.GET("/:slug", api.retrieveLesson)
	lg.POST("", api.createLesson, staffMiddleware())
	lg.PUT("/:id", api.updateLesson, staffMiddleware())
	lg.DELETE("/:id", api.destroyLesson, staffMiddleware())

	mg := g.Group("/materials", jwt)
	mg.POST("", api.createMaterial, staffMiddleware())
	mg.DELETE("/:id", api.destroyMaterial, staffMiddleware())
}

func isStaff(ctx echo.Context) bool {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return false
	}
	return claims.IsAdmin || claims.IsTeacher || claims.IsVolunteer
}

// Handlers

func (api *catalogApi) queryPrograms(ctx echo.Context) error {
	programs, err := api.svc.QueryPrograms(ctx.Request().Context(), isStaff(ctx))
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	if programs == nil {
		programs = []catalog.Program{}
	}
	return ctx.JSON(http.StatusOK, programs)
}

func (api *catalogApi) retrieveProgram(ctx echo.Context) error {
	detail, err := api.svc.GetProgramDetail(ctx.Request().Context(), ctx.Param("slug"), isStaff(ctx))
	if err != nil {
		return errors.Wrap(err, "getting program detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *catalogApi) createProgram(ctx echo.Context) error {
	var data catalog.NewProgram
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgram")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.CreateProgram(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *catalogApi) updateProgram(ctx echo.Context) error {
	var data catalog.UpdateProgram
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgram")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.UpdateProgram(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *catalogApi) destroyProgram(ctx echo.Context) error {
	if err := api.svc.DeleteProgram(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting program")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) queryCourses(ctx echo.Context) error {
	filter := catalog.CourseFilter{
		ProgramID:     ctx.QueryParam("program_id"),
		PublishedOnly: !isStaff(ctx),
	}
	courses, err := api.svc.QueryCourses(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *catalogApi) retrieveCourse(ctx echo.Context) error {
	detail, err := api.svc.GetCourseDetail(ctx.Request().Context(), ctx.Param("slug"), isStaff(ctx))
	if err != nil {
		return errors.Wrap(err, "getting course detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *catalogApi) createCourse(ctx echo.Context) error {
	var data catalog.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *catalogApi) updateCourse(ctx echo.Context) error {
	var data catalog.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.UpdateCourse(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *catalogApi) destroyCourse(ctx echo.Context) error {
	if err := api.svc.DeleteCourse(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) retrieveLesson(ctx echo.Context) error {
	detail, err := api.svc.GetLessonDetail(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting lesson detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *catalogApi) createLesson(ctx echo.Context) error {
	var data catalog.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.CreateLesson(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *catalogApi) updateLesson(ctx echo.Context) error {
	var data catalog.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.UpdateLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *catalogApi) destroyLesson(ctx echo.Context) error {
	if err := api.svc.DeleteLesson(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) createMaterial(ctx echo.Context) error {
	var data catalog.NewMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.AddMaterial(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding material")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *catalogApi) destroyMaterial(ctx echo.Context) error {
	if err := api.svc.RemoveMaterial(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing material")
	}
	return ctx.NoContent(http.StatusNoContent)
}
