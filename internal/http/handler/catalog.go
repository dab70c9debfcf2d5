package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"sgxfeed/internal/service"
)

type listResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// ListFiles godoc
// @Summary List configured files
// @Tags catalog
// @Produce json
// @Success 200 {object} listResponse
// @Router /files [get]
func ListFiles(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.Files(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(listResponse{Data: items, Total: len(items)})
	}
}

// ListVersions godoc
// @Summary Version history of a reference file
// @Description A row superseded by a redelivery on its own effective date has effective_to one business day before effective_from.
// @Tags catalog
// @Produce json
// @Param name path string true "File name"
// @Success 200 {object} listResponse
// @Failure 404 {object} errorPayload
// @Router /files/{name}/versions [get]
func ListVersions(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.History(c.UserContext(), c.Params("name"))
		if err != nil {
			return catalogError(c, err)
		}
		return c.JSON(listResponse{Data: items, Total: len(items)})
	}
}

// CurrentVersion godoc
// @Summary Current version of a reference file
// @Tags catalog
// @Produce json
// @Param name path string true "File name"
// @Success 200 {object} model.VersionRecord
// @Failure 404 {object} errorPayload
// @Router /files/{name}/versions/current [get]
func CurrentVersion(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.Current(c.UserContext(), c.Params("name"))
		if err != nil {
			return catalogError(c, err)
		}
		return c.JSON(v)
	}
}

// DownloadVersion godoc
// @Summary Download one version
// @Description Redirects to a presigned URL of the stored object.
// @Tags catalog
// @Param name path string true "File name"
// @Param version path int true "Version number"
// @Success 307
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /files/{name}/versions/{version}/download [get]
func DownloadVersion(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		version, err := strconv.Atoi(c.Params("version"))
		if err != nil || version < 1 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_VERSION", "version must be a positive integer")
		}
		u, err := svc.DownloadURL(c.UserContext(), c.Params("name"), version)
		if err != nil {
			return catalogError(c, err)
		}
		return c.Redirect(u, fiber.StatusTemporaryRedirect)
	}
}

// ListObjects godoc
// @Summary List stored objects
// @Tags storage
// @Produce json
// @Param prefix query string false "Key prefix, e.g. raw/2025-09-17/"
// @Success 200 {object} listResponse
// @Router /objects [get]
func ListObjects(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.Objects(c.UserContext(), c.Query("prefix"))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(listResponse{Data: items, Total: len(items)})
	}
}

func catalogError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNameRequired):
		return writeError(c, fiber.StatusBadRequest, "NAME_REQUIRED", "file name is required")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
