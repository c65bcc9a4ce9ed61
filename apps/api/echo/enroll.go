package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/catalog"
	"github.com/jkazadi/kampus/core/enroll"
)

type enrollApi struct {
	svc      enroll.Service
	validate *validator.Validate
}

func registerEnrollAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc enroll.Service, validate *validator.Validate) {
	api := enrollApi{svc: svc, validate: validate}

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll)
	eg.POST("/programs/:id", api.enrollProgram)
	eg.POST("/courses", api.enrollCourses)

	mg := g.Group("/me", jwt)
	mg.GET("/programs", api.myPrograms)
	mg.GET("/courses", api.myCourses)
	mg.POST("/progress", api.recordProgress)
	mg.POST("/assignments", api.submitAssignment)

	pg := g.Group("/progress", jwt, staffMiddleware())
	pg.POST("/lessons/:id/complete", api.markLessonComplete)
	pg.POST("/courses/:id/complete", api.markCourseComplete)
	pg.DELETE("/lessons/:id", api.resetLessonProgress)
	pg.DELETE("/courses/:id", api.resetCourseProgress)

	ag := g.Group("/assignments", jwt, staffMiddleware())
	ag.GET("", api.queryAssignments)
	ag.POST("/review", api.reviewAssignment)
}

// Handlers

func (api *enrollApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data enroll.EnrollSelection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollSelection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Enroll(ctx.Request().Context(), claims.Subject, data); err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollApi) enrollProgram(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.svc.EnrollProgram(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling in program")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollApi) enrollCourses(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data enroll.EnrollSelection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollSelection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enrs, err := api.svc.EnrollCourses(ctx.Request().Context(), claims.Subject, data.CourseIDs...)
	if err != nil {
		return errors.Wrap(err, "enrolling in courses")
	}
	if enrs == nil {
		enrs = []enroll.CourseEnrollment{}
	}
	return ctx.JSON(http.StatusCreated, enrs)
}

func (api *enrollApi) myPrograms(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enrs, err := api.svc.MyPrograms(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying my programs")
	}
	if enrs == nil {
		enrs = []enroll.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollApi) myCourses(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	courses, err := api.svc.MyCourses(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying my courses")
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *enrollApi) recordProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data enroll.ProgressUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lp, err := api.svc.RecordProgress(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	return ctx.JSON(http.StatusOK, lp)
}

func (api *enrollApi) submitAssignment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data enroll.SubmitAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.SubmitAssignment(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *enrollApi) markLessonComplete(ctx echo.Context) error {
	userID := ctx.QueryParam("user_id")
	if userID == "" {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		userID = claims.Subject
	}

	lp, err := api.svc.MarkLessonComplete(ctx.Request().Context(), userID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking lesson complete")
	}
	return ctx.JSON(http.StatusOK, lp)
}

func (api *enrollApi) markCourseComplete(ctx echo.Context) error {
	userID := ctx.QueryParam("user_id")
	if userID == "" {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		userID = claims.Subject
	}

	lps, err := api.svc.MarkCourseComplete(ctx.Request().Context(), userID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking course complete")
	}
	if lps == nil {
		lps = []enroll.LessonProgress{}
	}
	return ctx.JSON(http.StatusOK, lps)
}

func (api *enrollApi) resetLessonProgress(ctx echo.Context) error {
	userID := ctx.QueryParam("user_id")
	if userID == "" {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		userID = claims.Subject
	}

	if err := api.svc.ResetLessonProgress(ctx.Request().Context(), userID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "resetting lesson progress")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollApi) resetCourseProgress(ctx echo.Context) error {
	userID := ctx.QueryParam("user_id")
	if userID == "" {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		userID = claims.Subject
	}

	if err := api.svc.ResetCourseProgress(ctx.Request().Context(), userID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "resetting course progress")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollApi) queryAssignments(ctx echo.Context) error {
	filter := enroll.AssignmentFilter{
		UserID:   ctx.QueryParam("user_id"),
		LessonID: ctx.QueryParam("lesson_id"),
		Status:   ctx.QueryParam("status"),
	}
	assignments, err := api.svc.QueryAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []enroll.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *enrollApi) reviewAssignment(ctx echo.Context) error {
	var data enroll.ReviewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.ReviewAssignment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "reviewing assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}
