package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/forum"
)

type forumApi struct {
	svc      forum.Service
	validate *validator.Validate
}

func registerForumAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc forum.Service, validate *validator.Validate) {
	api := forumApi{svc: svc, validate: validate}

	fg := g.Group("/forum/posts", jwt)
	fg.GET("", api.queryPosts)
	fg.GET("/:id", api.retrievePost)
	fg.POST("", api.createPost)
	fg.DELETE("/:id", api.destroyPost)
	fg.POST("/:id/replies", api.createReply)

	rg := g.Group("/forum/replies", jwt)
	rg.DELETE("/:id", api.destroyReply)
}

// Handlers

func (api *forumApi) createPost(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data forum.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	post, err := api.svc.CreatePost(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, post)
}

func (api *forumApi) queryPosts(ctx echo.Context) error {
	filter := forum.PostFilter{
		CourseID: ctx.QueryParam("course_id"),
		AuthorID: ctx.QueryParam("author_id"),
	}
	posts, err := api.svc.QueryPosts(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []forum.Post{}
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *forumApi) retrievePost(ctx echo.Context) error {
	detail, err := api.svc.GetPostDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting post detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *forumApi) destroyPost(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.DeletePost(ctx.Request().Context(), ctx.Param("id"), claims.Subject, claims.IsAdmin); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *forumApi) createReply(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data forum.NewReply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReply")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reply, err := api.svc.CreateReply(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating reply")
	}
	return ctx.JSON(http.StatusCreated, reply)
}

func (api *forumApi) destroyReply(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.DeleteReply(ctx.Request().Context(), ctx.Param("id"), claims.Subject, claims.IsAdmin); err != nil {
		return errors.Wrap(err, "deleting reply")
	}
	return ctx.NoContent(http.StatusNoContent)
}
