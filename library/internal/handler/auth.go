package handler

import (
	"net/http"

	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/Astemirdum/school-library/pkg/auth"
	"github.com/labstack/echo/v4"
)

func (h *Handler) SignIn(c echo.Context) error {
	var req model.SignInRequest
	if err := h.bind(c, &req); err != nil {
		return h.invalid(c, err)
	}
	resp, err := h.librarySvc.SignIn(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(resp))
}

// Me returns the admin the bearer token was issued to.
func (h *Handler) Me(c echo.Context) error {
	user, err := auth.GetUser(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, model.Fail(err.Error()))
	}
	return c.JSON(http.StatusOK, model.OK(user))
}
