package handler

import (
	"net/http"

	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/labstack/echo/v4"
)

func (h *Handler) CreateReservation(c echo.Context) error {
	var req model.CreateReservationRequest
	if err := h.bind(c, &req); err != nil {
		return h.invalid(c, err)
	}
	order, err := h.librarySvc.CreateReservation(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, model.OK(order))
}

func (h *Handler) ListReservations(c echo.Context) error {
	orders, err := h.librarySvc.ListPendingReservations(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(orders))
}

func (h *Handler) ApproveReservation(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return h.invalid(c, err)
	}
	loan, err := h.librarySvc.ApproveReservation(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(loan))
}

func (h *Handler) RejectReservation(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return h.invalid(c, err)
	}
	if err := h.librarySvc.RejectReservation(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(nil))
}
