package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/middleware"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/service"
	"github.com/iliyamo/contenthub/internal/storage"
)

// dbTimeout bounds the database work of a single request.
const dbTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func actor(c echo.Context) service.Actor { return middleware.ActorFrom(c) }

func viewer(c echo.Context) service.Viewer {
	return service.Viewer{
		Actor:     middleware.ActorFrom(c),
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// bind decodes the request body; malformed bodies are a 400.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errBadRequest("invalid body")
	}
	return nil
}

// pageFrom reads ?page= and ?page_size=; garbage means the default.
func pageFrom(c echo.Context) repository.Page {
	return repository.Page{
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}.Normalize()
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	return n
}

// queryList accepts both ?ids=a,b and ?ids=a&ids=b.
func queryList(c echo.Context, name string) []string {
	var out []string
	for _, v := range c.QueryParams()[name] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func listQuery(c echo.Context) service.ListQuery {
	return service.ListQuery{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Sort:   strings.TrimSpace(c.QueryParam("sort")),
		Status: strings.TrimSpace(c.QueryParam("status")),
		Page:   pageFrom(c),
	}
}

// listResponse is the envelope of every paginated listing.
type listResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func newList[M, T any](items []M, total int64, p repository.Page, conv func(M) T) listResponse[T] {
	out := make([]T, 0, len(items))
	for _, it := range items {
		out = append(out, conv(it))
	}
	return listResponse[T]{Items: out, Total: total, Page: p.Page, PageSize: p.PageSize}
}

// upload opens the multipart file in field.  The caller closes it.
func upload(c echo.Context, field string) (service.Upload, io.Closer, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return service.Upload{}, nil, errBadRequest("multipart field " + field + " is required")
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, nil, errBadRequest("cannot read uploaded file")
	}
	return service.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

// stream writes a blob to the client and closes it.
func stream(c echo.Context, obj *storage.Object, disposition string) error {
	defer obj.Body.Close()
	h := c.Response().Header()
	h.Set(echo.HeaderXContentTypeOptions, "nosniff")
	if obj.Size > 0 {
		h.Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	}
	if disposition != "" {
		h.Set(echo.HeaderContentDisposition, disposition+`; filename="`+strings.ReplaceAll(obj.FileName, `"`, "")+`"`)
	}
	return c.Stream(http.StatusOK, obj.ContentType, obj.Body)
}
