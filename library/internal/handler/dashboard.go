package handler

import (
	"net/http"

	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/labstack/echo/v4"
)

func (h *Handler) Dashboard(c echo.Context) error {
	stats, err := h.librarySvc.Stats(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(stats))
}
