package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront-service/internal/catalog"
	"storefront-service/internal/validation"
)

// sortAliases maps the /products/sort vocabulary onto catalog sort orders.
var sortAliases = map[string]string{
	"name":  catalog.SortName,
	"price": catalog.SortPriceAsc,
	"sale":  catalog.SortTopSold,
}

func (h *Handler) ListProducts(c *gin.Context) {
	h.listProducts(c, catalog.Filter{
		Search:      c.Query("search"),
		InStockOnly: c.Query("in_stock") == "true",
		Sort:        c.Query("sort"),
	})
}

// Deals lists discounted products, biggest discount first, optionally within a category name.
func (h *Handler) Deals(c *gin.Context) {
	sort := c.Query("sort")
	if sort == "" {
		sort = catalog.SortDiscount
	}
	h.listProducts(c, catalog.Filter{DealsOnly: true, Category: c.Param("category"), Sort: sort})
}

func (h *Handler) TopSelling(c *gin.Context) {
	h.listProducts(c, catalog.Filter{Category: c.Param("category"), Sort: catalog.SortTopSold})
}

func (h *Handler) NewArrivals(c *gin.Context) {
	h.listProducts(c, catalog.Filter{Category: c.Param("category"), Sort: catalog.SortNewest})
}

// FilterProducts narrows by price when both from and to are given.
func (h *Handler) FilterProducts(c *gin.Context) {
	f := catalog.Filter{Category: c.Param("category"), Sort: c.Query("sort")}

	from, to := c.Query("from"), c.Query("to")
	if from != "" && to != "" {
		vErrs := validation.Errors{}
		lo, err := decimal.NewFromString(from)
		if err != nil || lo.IsNegative() {
			vErrs.Add("from", "The from must be a number.")
		}
		hi, err := decimal.NewFromString(to)
		if err != nil || hi.IsNegative() {
			vErrs.Add("to", "The to must be a number.")
		}
		if len(vErrs) > 0 {
			writeError(c, vErrs)
			return
		}
		f.Price = &catalog.PriceRange{From: lo, To: hi}
	}
	h.listProducts(c, f)
}

func (h *Handler) SortProducts(c *gin.Context) {
	sort, ok := sortAliases[c.Query("sort")]
	if !ok {
		writeError(c, validation.Errors{"sort": {"The selected sort is invalid."}})
		return
	}
	h.listProducts(c, catalog.Filter{Sort: sort})
}

func (h *Handler) SearchProducts(c *gin.Context) {
	h.listProducts(c, catalog.Filter{Search: c.Param("search"), Sort: c.Query("sort")})
}

func (h *Handler) ProductsByCategory(c *gin.Context) {
	id, ok := idParam(c, "category", catalog.ErrCategoryNotFound)
	if !ok {
		return
	}
	category, err := h.Catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	views, ok := h.products(c, catalog.Filter{CategoryID: id, Sort: c.Query("sort")})
	if !ok {
		return
	}
	respond(c, http.StatusOK, gin.H{"category": category, "products": views})
}

func (h *Handler) ProductsBySubCategory(c *gin.Context) {
	id, ok := idParam(c, "subCategory", catalog.ErrSubCategoryNotFound)
	if !ok {
		return
	}
	sub, err := h.Catalog.GetSubCategory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	views, ok := h.products(c, catalog.Filter{SubCategoryID: id, Sort: c.Query("sort")})
	if !ok {
		return
	}
	respond(c, http.StatusOK, gin.H{"subCategory": sub, "products": views})
}

func (h *Handler) listProducts(c *gin.Context, f catalog.Filter) {
	views, ok := h.products(c, f)
	if !ok {
		return
	}
	respond(c, http.StatusOK, views)
}

// products applies the limit and offset query parameters to f and returns the page as views.
func (h *Handler) products(c *gin.Context, f catalog.Filter) ([]catalog.View, bool) {
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))

	products, err := h.Catalog.ListProducts(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return views(products), true
}

func views(products []catalog.Product) []catalog.View {
	out := make([]catalog.View, 0, len(products))
	for _, p := range products {
		out = append(out, p.View())
	}
	return out
}

func (h *Handler) ShowProduct(c *gin.Context) {
	id, ok := productParam(c, "id")
	if !ok {
		return
	}
	p, err := h.Catalog.GetProductByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	related, err := h.Catalog.RelatedProducts(c.Request.Context(), p.ID, catalog.RelatedLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"product": p.View(), "related_products": views(related)})
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, categories)
}

func (h *Handler) ShowCategory(c *gin.Context) {
	id, ok := idParam(c, "category", catalog.ErrCategoryNotFound)
	if !ok {
		return
	}
	category, err := h.Catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, category)
}

func (h *Handler) ListSubCategories(c *gin.Context) {
	subs, err := h.Catalog.ListSubCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, subs)
}

func (h *Handler) ShowSubCategory(c *gin.Context) {
	id, ok := idParam(c, "subCategory", catalog.ErrSubCategoryNotFound)
	if !ok {
		return
	}
	sub, err := h.Catalog.GetSubCategory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, sub)
}

// productParam parses a numeric path parameter; a malformed id is reported as an unknown product.
func productParam(c *gin.Context, name string) (int64, bool) {
	return idParam(c, name, catalog.ErrNotFound)
}

func idParam(c *gin.Context, name string, notFound error) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, notFound)
		return 0, false
	}
	return id, true
}
