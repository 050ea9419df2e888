package server

import (
	"io"
	"net/url"
	"os"
	"strings"

	"teamtrack/internal/featureflags"
	"teamtrack/internal/models"
	"teamtrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadAvatar handles POST /api/upload-avatar
// @Summary Upload avatar
// @Description Multipart field "avatar"; optional "userId" for admins uploading for someone else
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Image"
// @Param userId formData string false "Owner"
// @Success 200 {object} object{path=string}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /upload-avatar [post]
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if !s.featureFlags.EnabledOr(featureflags.AvatarUpload, actor.ID, true) {
		return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError("Avatar upload is disabled"))
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	src, err := file.Open()
	if err != nil {
		return badRequest(c, "Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return badRequest(c, "Unable to read uploaded file")
	}

	path, err := s.avatarService.Upload(c.UserContext(), actor, service.AvatarUploadInput{
		UserID:      c.FormValue("userId"),
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
		Now:         s.now(),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"path": path})
}

// ServeFile handles GET /api/files/*
// @Summary Serve uploaded file
// @Tags files
// @Produce octet-stream
// @Param path path string true "File path under the upload root"
// @Success 200 {file} binary
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /files/{path} [get]
func (s *Server) ServeFile(c *fiber.Ctx) error {
	raw, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return badRequest(c, "Invalid path")
	}

	f, err := s.avatarService.Resolve(strings.Split(raw, "/")...)
	if err != nil {
		return respondError(c, err)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	c.Set(fiber.HeaderContentType, f.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(data)
}
