package handler

import (
	"net/http"

	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/labstack/echo/v4"
)

func (h *Handler) ListStudents(c echo.Context) error {
	page, limit, err := paging(c, "limit")
	if err != nil {
		return h.invalid(c, err)
	}
	students, err := h.librarySvc.ListStudents(c.Request().Context(), c.QueryParam("q"), page, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(students))
}

func (h *Handler) SearchStudents(c echo.Context) error {
	students, err := h.librarySvc.SearchStudents(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(students))
}

func (h *Handler) GetStudentByEnrollment(c echo.Context) error {
	st, err := h.librarySvc.GetStudentByEnrollment(c.Request().Context(), c.Param("enrollment"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(st))
}

func (h *Handler) CreateStudent(c echo.Context) error {
	var req model.CreateStudentRequest
	if err := h.bind(c, &req); err != nil {
		return h.invalid(c, err)
	}
	st, err := h.librarySvc.CreateStudent(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, model.OK(st))
}

func (h *Handler) UpdateStudent(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return h.invalid(c, err)
	}
	var req model.UpdateStudentRequest
	if err := h.bind(c, &req); err != nil {
		return h.invalid(c, err)
	}
	st, err := h.librarySvc.UpdateStudent(c.Request().Context(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(st))
}

func (h *Handler) DeleteStudent(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return h.invalid(c, err)
	}
	if err := h.librarySvc.DeleteStudent(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(nil))
}

func (h *Handler) ListClasses(c echo.Context) error {
	classes, err := h.librarySvc.ListClasses(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(classes))
}
