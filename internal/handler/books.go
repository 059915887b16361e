package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/service"
)

// BookHandler serves /api/books including cover and document uploads.
type BookHandler struct {
	contentRoutes
	Books *service.BookService
}

func NewBookHandler(books *service.BookService) *BookHandler {
	return &BookHandler{
		contentRoutes: contentRoutes{content: books.ContentService, kind: model.KindBook},
		Books:         books,
	}
}

type bookReq struct {
	contentReq
	AuthorName    *string   `json:"author_name"`
	Description   *string   `json:"description"`
	PageAmount    *int      `json:"page_amount"`
	YearOfPublish *int      `json:"year_of_publish"`
	GenreIDs      *[]string `json:"genre_ids"`
}

func (h *BookHandler) input(c echo.Context) (service.BookInput, error) {
	var req bookReq
	if err := bind(c, &req); err != nil {
		return service.BookInput{}, err
	}
	return service.BookInput{
		ContentInput:  h.contentRoutes.input(req.contentReq),
		AuthorName:    req.AuthorName,
		Description:   req.Description,
		PageAmount:    req.PageAmount,
		YearOfPublish: req.YearOfPublish,
		GenreIDs:      req.GenreIDs,
	}, nil
}

func bookQuery(c echo.Context) service.BookQuery {
	return service.BookQuery{
		ListQuery:  listQuery(c),
		Title:      strings.TrimSpace(c.QueryParam("title")),
		AuthorName: strings.TrimSpace(c.QueryParam("author_name")),
		GenreIDs:   queryList(c, "genre_ids"),
		YearMin:    queryInt(c, "year_min"),
		YearMax:    queryInt(c, "year_max"),
	}
}

func (h *BookHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	q := bookQuery(c)
	items, total, err := h.Books.List(ctx, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, q.Page, toBook))
}

func (h *BookHandler) My(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	q := bookQuery(c)
	items, total, err := h.Books.My(ctx, actor(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, q.Page, toBook))
}

func (h *BookHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Books.Get(ctx, c.Param("id"), viewer(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBook(b))
}

func (h *BookHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Books.GetBySlug(ctx, c.Param("slug"), viewer(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBook(b))
}

func (h *BookHandler) Create(c echo.Context) error {
	in, err := h.input(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Books.Create(ctx, in, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBook(b))
}

func (h *BookHandler) Update(c echo.Context) error {
	in, err := h.input(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Books.Update(ctx, c.Param("id"), in, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBook(b))
}

func (h *BookHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	return deleted(c, h.Books.Delete(ctx, c.Param("id"), actor(c)))
}

// UploadCover takes the multipart field "cover".
func (h *BookHandler) UploadCover(c echo.Context) error {
	up, closer, err := upload(c, "cover")
	if err != nil {
		return err
	}
	defer closer.Close()

	b, err := h.Books.UploadCover(c.Request().Context(), c.Param("id"), up, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBook(b))
}

// UploadFile takes the multipart field "file".
func (h *BookHandler) UploadFile(c echo.Context) error {
	up, closer, err := upload(c, "file")
	if err != nil {
		return err
	}
	defer closer.Close()

	b, err := h.Books.UploadFile(c.Request().Context(), c.Param("id"), up, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBook(b))
}

// Read streams the book document inline.
func (h *BookHandler) Read(c echo.Context) error {
	obj, err := h.Books.ReadFile(c.Request().Context(), c.Param("id"), viewer(c))
	if err != nil {
		return err
	}
	return stream(c, obj, "inline")
}
