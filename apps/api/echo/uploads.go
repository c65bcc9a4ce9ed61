package echoapi

import (
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core"
	"github.com/jkazadi/kampus/core/user"
)

// allowed avatar content types and their canonical extensions
var avatarContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var attachmentContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
	"application/zip": ".zip",
}

const (
	maxAvatarSize     = 5 << 20  // 5 MiB
	maxAttachmentSize = 20 << 20 // 20 MiB
)

type uploadApi struct {
	usrSvc  user.Service
	storage core.FileStorage
}

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, usrSvc user.Service, storage core.FileStorage) {
	api := uploadApi{usrSvc: usrSvc, storage: storage}

	mg := g.Group("/me", jwt)
	mg.POST("/avatar", api.uploadAvatar)

	ug := g.Group("/uploads", jwt)
	ug.POST("/attachments", api.uploadAttachment)

	sg := g.Group("/storage", jwt, adminMiddleware())
	sg.POST("/init", api.initStorage)
}

// Handlers

func (api *uploadApi) uploadAvatar(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is required"})
	}

	if fh.Size > maxAvatarSize {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file too large; 5MB max"})
	}
	contentType := fh.Header.Get("Content-Type")
	ext, ok := avatarContentTypes[contentType]
	if !ok {
		return core.NewValidationError(nil, core.FieldError{
			Field: "file",
			Error: "unsupported avatar type; expected one of: " + keysOf(avatarContentTypes),
		})
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	// stable key per user; a new upload replaces the previous avatar
	key := claims.Subject + ext
	url, err := api.storage.Upload(ctx.Request().Context(), core.BucketAvatars, key, contentType, src)
	if err != nil {
		return errors.Wrap(err, "uploading avatar")
	}

	usr, err := api.usrSvc.SetAvatar(ctx.Request().Context(), claims.Subject, url)
	if err != nil {
		return errors.Wrap(err, "setting avatar")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *uploadApi) uploadAttachment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is required"})
	}

	if fh.Size > maxAttachmentSize {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file too large; 20MB max"})
	}
	contentType := fh.Header.Get("Content-Type")
	ext, ok := attachmentContentTypes[contentType]
	if !ok {
		return core.NewValidationError(nil, core.FieldError{
			Field: "file",
			Error: "unsupported attachment type; expected one of: " + keysOf(attachmentContentTypes),
		})
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	key := path.Join(claims.Subject, uuid.New().String()+ext)
	url, err := api.storage.Upload(ctx.Request().Context(), core.BucketForumFiles, key, contentType, src)
	if err != nil {
		return errors.Wrap(err, "uploading attachment")
	}
	return ctx.JSON(http.StatusCreated, map[string]string{"url": url})
}

func (api *uploadApi) initStorage(ctx echo.Context) error {
	for _, bucket := range core.AllBuckets {
		if err := api.storage.EnsureBucket(ctx.Request().Context(), bucket); err != nil {
			return errors.Wrapf(err, "ensuring bucket %s", bucket)
		}
	}
	return ctx.JSON(http.StatusOK, map[string][]string{"buckets": core.AllBuckets})
}

func keysOf(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
