package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core"
	chatsvc "github.com/jkazadi/kampus/services/chat"
)

type chatApi struct {
	svc      chatsvc.Service
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc chatsvc.Service, validate *validator.Validate) {
	api := chatApi{svc: svc, validate: validate}

	cg := g.Group("/chat", jwt)
	cg.GET("/history", api.history)
	cg.POST("/messages", api.postMessage, staffMiddleware())
}

// Handlers

func (api *chatApi) history(ctx echo.Context) error {
	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return core.NewValidationError(nil, core.FieldError{Field: "limit", Error: "must be a positive integer"})
		}
		limit = n
	}

	msgs, err := api.svc.History(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "fetching chat history")
	}
	if msgs == nil {
		msgs = []chatsvc.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) postMessage(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ChatMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatMessageRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	from := claims.Username
	if from == "" {
		from = claims.Email
	}
	if err := api.svc.PostMessage(ctx.Request().Context(), from, data.Text); err != nil {
		return errors.Wrap(err, "posting chat message")
	}
	return ctx.NoContent(http.StatusAccepted)
}

type ChatMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

func (cm *ChatMessageRequest) Validate(validate *validator.Validate) error {
	cm.Text = core.CleanString(cm.Text)
	return validate.Struct(cm)
}
