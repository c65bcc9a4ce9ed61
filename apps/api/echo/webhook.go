package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/enroll"
)

type webhookApi struct {
	enrollSvc enroll.Service
}

func registerWebhookAPI(g *echo.Group, enrollSvc enroll.Service) {
	api := webhookApi{enrollSvc: enrollSvc}

	wg := g.Group("/webhooks")
	wg.GET("/dropbox", api.verifyDropbox)
	wg.POST("/dropbox", api.dropboxIntake)
}

// Handlers

// verifyDropbox answers the provider's endpoint verification handshake:
// the challenge query param is echoed back as plain text.
func (api *webhookApi) verifyDropbox(ctx echo.Context) error {
	return ctx.String(http.StatusOK, ctx.QueryParam("challenge"))
}

func (api *webhookApi) dropboxIntake(ctx echo.Context) error {
	var data DropboxIntakeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DropboxIntakeRequest")
	}
	if len(data.Entries) == 0 {
		return ctx.JSON(http.StatusOK, enroll.IntakeResult{})
	}

	res, err := api.enrollSvc.ProcessDropEntries(ctx.Request().Context(), data.Entries)
	if err != nil {
		return errors.Wrap(err, "processing drop entries")
	}
	return ctx.JSON(http.StatusOK, res)
}

type DropboxIntakeRequest struct {
	Entries []enroll.DropEntry `json:"entries"`
}
