package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"tree-backend/internal/models"
	"tree-backend/internal/services"
	"tree-backend/internal/upload"
	"tree-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// BuildShortURL constructs the shareable link for a short id. BASE_URL wins
// when set; otherwise the URL is derived from the incoming request.
func BuildShortURL(c *fiber.Ctx, shortID string) string {
	base := utils.GetEnv("BASE_URL", "")
	if base != "" {
		return fmt.Sprintf("%s/u/%s", base, shortID)
	}

	protocol := "http"
	if c.Protocol() == "https" || c.Get("X-Forwarded-Proto") == "https" {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/u/%s", protocol, c.Hostname(), shortID)
}

// GetProfileHandler returns the stored profile for a username.
func GetProfileHandler(svc *services.TreeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := services.NormalizeUsername(c.Params("username"))
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		p, err := svc.GetProfile(c.Context(), username)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
			}
			return internalError(c, err, "GetProfile")
		}
		return c.JSON(p)
	}
}

// UpdateProfileHandler accepts the multipart profile update: "username",
// "blessing", and up to 20 "photos" file parts.
func UpdateProfileHandler(svc *services.TreeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := services.NormalizeUsername(c.FormValue("username"))
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		blessing := c.FormValue("blessing")

		var files []*multipart.FileHeader
		if form, err := c.MultipartForm(); err == nil && form != nil {
			files = form.File["photos"]
		}

		p, err := svc.UpdateProfile(c.Context(), username, blessing, files)
		if err != nil {
			switch {
			case errors.Is(err, upload.ErrInvalidUpload):
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Only image uploads are allowed"})
			case errors.Is(err, upload.ErrTooManyFiles), errors.Is(err, upload.ErrUnsafeUsername):
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return internalError(c, err, "UpdateProfile")
		}

		return c.JSON(models.ProfileResponse{
			Profile:  *p,
			ShortURL: BuildShortURL(c, p.ShortID),
		})
	}
}

// DeletePhotoHandler removes a single photo reference from a profile.
func DeletePhotoHandler(svc *services.TreeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.DeletePhotoRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Invalid request"})
		}

		username, err := services.NormalizeUsername(req.Username)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}
		if req.PhotoURL == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "photoUrl is required"})
		}

		if err := svc.DeletePhoto(c.Context(), username, req.PhotoURL); err != nil {
			switch {
			case errors.Is(err, services.ErrUserNotFound):
				return c.Status(http.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "User not found"})
			case errors.Is(err, services.ErrPhotoNotFound):
				return c.Status(http.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "Photo not found in user data"})
			}
			return internalError(c, err, "DeletePhoto")
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

// ResolveShortLinkHandler redirects a short link to the tree page for the
// owning username.
func ResolveShortLinkHandler(svc *services.TreeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := svc.Resolve(c.Context(), c.Params("shortId"))
		if err != nil {
			if errors.Is(err, services.ErrLinkNotFound) {
				return c.Status(http.StatusNotFound).SendString("Invalid link")
			}
			return internalError(c, err, "Resolve")
		}
		return c.Redirect("/tree.html?user="+url.QueryEscape(username), http.StatusFound)
	}
}

func internalError(c *fiber.Ctx, err error, context string) error {
	utils.LogError(err, context)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
