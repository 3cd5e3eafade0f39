package handler

import (
	"net/http"

	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/labstack/echo/v4"
)

func (h *Handler) ListBooks(c echo.Context) error {
	page, size, err := paging(c, "size")
	if err != nil {
		return h.invalid(c, err)
	}
	books, err := h.librarySvc.ListBooks(c.Request().Context(), c.QueryParam("q"), page, size)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(books))
}

func (h *Handler) Catalog(c echo.Context) error {
	page, size, err := paging(c, "size")
	if err != nil {
		return h.invalid(c, err)
	}
	books, err := h.librarySvc.Catalog(c.Request().Context(), c.QueryParam("q"), page, size)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(books))
}

func (h *Handler) SearchBooks(c echo.Context) error {
	books, err := h.librarySvc.SearchAvailableBooks(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(books))
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return h.invalid(c, err)
	}
	book, err := h.librarySvc.GetBook(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(book))
}

func (h *Handler) GetBookByISBN(c echo.Context) error {
	book, err := h.librarySvc.GetBookByISBN(c.Request().Context(), c.Param("isbn"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(book))
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := h.bind(c, &req); err != nil {
		return h.invalid(c, err)
	}
	book, err := h.librarySvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, model.OK(book))
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return h.invalid(c, err)
	}
	var req model.UpdateBookRequest
	if err := h.bind(c, &req); err != nil {
		return h.invalid(c, err)
	}
	book, err := h.librarySvc.UpdateBook(c.Request().Context(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(book))
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return h.invalid(c, err)
	}
	if err := h.librarySvc.DeleteBook(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.OK(nil))
}
