package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/service"
)

// TaxonomyHandler serves one lookup table (genres, regions, ...).  The
// router mounts one instance per taxonomy.
type TaxonomyHandler struct {
	Taxa     *service.TaxonomyService
	Taxonomy model.Taxonomy
}

func NewTaxonomyHandler(taxa *service.TaxonomyService, t model.Taxonomy) *TaxonomyHandler {
	return &TaxonomyHandler{Taxa: taxa, Taxonomy: t}
}

type taxonReq struct {
	Name string `json:"name"`
}

func (h *TaxonomyHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	p := pageFrom(c)
	items, total, err := h.Taxa.List(ctx, h.Taxonomy, actor(c), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, total, p, toTaxon))
}

func (h *TaxonomyHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Taxa.Get(ctx, h.Taxonomy, c.Param("id"), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaxon(t))
}

func (h *TaxonomyHandler) Create(c echo.Context) error {
	var req taxonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Taxa.Create(ctx, h.Taxonomy, req.Name, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTaxon(t))
}

func (h *TaxonomyHandler) Update(c echo.Context) error {
	var req taxonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Taxa.Update(ctx, h.Taxonomy, c.Param("id"), req.Name, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaxon(t))
}

func (h *TaxonomyHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	return deleted(c, h.Taxa.Delete(ctx, h.Taxonomy, c.Param("id"), actor(c)))
}
