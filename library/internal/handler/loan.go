package handler

import (
	"net/http"
	"strconv"

	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func (h *Handler) ListLoans(c echo.Context) error {
	var activeOnly bool
	if v := c.QueryParam("active"); v != "" {
		var err error
		if activeOnly, err = strconv.ParseBool(v); err != nil {
			return h.invalid(c, errors.New("active is invalid"))
		}
	}
	loans, err := h.librarySvc.ListLoans(c.Request().Context(), activeOnly)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(loans))
}

func (h *Handler) CreateLoan(c echo.Context) error {
	var req model.CreateLoanRequest
	if err := h.bind(c, &req); err != nil {
		return h.invalid(c, err)
	}
	loan, err := h.librarySvc.CreateLoan(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, model.OK(loan))
}

func (h *Handler) ReturnLoan(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return h.invalid(c, err)
	}
	loan, err := h.librarySvc.ReturnLoan(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(loan))
}

func (h *Handler) CancelLoan(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return h.invalid(c, err)
	}
	if err := h.librarySvc.CancelLoan(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(nil))
}
