package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/activity"
)

type activityApi struct {
	svc activity.Service
}

func registerActivityAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc activity.Service) {
	api := activityApi{svc: svc}

	ag := g.Group("/activity", jwt, adminMiddleware())
	ag.GET("/report", api.report)
	ag.POST("/digests/weekly-summary", api.sendWeeklySummary)
	ag.POST("/digests/inactivity-nudge", api.sendInactivityNudges)
}

// Handlers

func (api *activityApi) report(ctx echo.Context) error {
	report, err := api.svc.BuildReport(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building activity report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *activityApi) sendWeeklySummary(ctx echo.Context) error {
	n, err := api.svc.SendWeeklySummary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "sending weekly summary")
	}
	return ctx.JSON(http.StatusOK, map[string]int{"recipients": n})
}

func (api *activityApi) sendInactivityNudges(ctx echo.Context) error {
	days := activity.DefaultInactiveDays
	if raw := ctx.QueryParam("days"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 1 {
			return errors.Wrap(err, "parsing days")
		}
		days = d
	}

	n, err := api.svc.SendInactivityNudges(ctx.Request().Context(), days)
	if err != nil {
		return errors.Wrap(err, "sending inactivity nudges")
	}
	return ctx.JSON(http.StatusOK, map[string]int{"recipients": n})
}
