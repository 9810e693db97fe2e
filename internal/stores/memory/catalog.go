package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"storefront-service/internal/catalog"
)

type catalogStore struct {
	s *Store
}

func (c catalogStore) GetProductByID(ctx context.Context, id int64) (catalog.Product, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p, ok := c.s.st.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (c catalogStore) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	f = f.Normalize()
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	out := []catalog.Product{}
	for _, p := range c.s.st.products {
		if c.matches(p, f) {
			out = append(out, p)
		}
	}
	sortProducts(out, f.Sort)

	if f.Offset >= len(out) {
		return []catalog.Product{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (c catalogStore) matches(p catalog.Product, f catalog.Filter) bool {
	if search := strings.ToLower(f.Search); search != "" &&
		!strings.Contains(strings.ToLower(p.Name), search) &&
		!strings.Contains(strings.ToLower(p.Description), search) {
		return false
	}
	if f.DealsOnly && !p.Discount.IsPositive() {
		return false
	}
	if f.InStockOnly && !p.InStock {
		return false
	}
	categoryIDs := c.s.st.productCategories[p.ID]
	if f.Category != "" && !slices.ContainsFunc(categoryIDs, func(id int64) bool {
		return c.s.st.categories[id].Name == f.Category
	}) {
		return false
	}
	if f.CategoryID != 0 && !slices.Contains(categoryIDs, f.CategoryID) {
		return false
	}
	if f.SubCategoryID != 0 && !slices.Contains(c.s.st.productSubCategories[p.ID], f.SubCategoryID) {
		return false
	}
	if f.Price != nil && (p.Price.LessThan(f.Price.From) || p.Price.GreaterThan(f.Price.To)) {
		return false
	}
	return true
}

func sortProducts(out []catalog.Product, order string) {
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch order {
		case catalog.SortPriceAsc:
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case catalog.SortPriceDesc:
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		case catalog.SortName:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case catalog.SortTopSold:
			if a.Sold != b.Sold {
				return a.Sold > b.Sold
			}
		case catalog.SortDiscount:
			if !a.Discount.Equal(b.Discount) {
				return a.Discount.GreaterThan(b.Discount)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}

func (c catalogStore) RelatedProducts(ctx context.Context, productID int64, limit int) ([]catalog.Product, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	mine := c.s.st.productCategories[productID]
	out := []catalog.Product{}
	for _, p := range c.s.st.products {
		if p.ID == productID {
			continue
		}
		if slices.ContainsFunc(c.s.st.productCategories[p.ID], func(id int64) bool {
			return slices.Contains(mine, id)
		}) {
			out = append(out, p)
		}
	}
	sortProducts(out, catalog.SortTopSold)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c catalogStore) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	out := []catalog.Category{}
	for _, cat := range c.s.st.categories {
		out = append(out, c.withSubCategories(cat))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c catalogStore) GetCategory(ctx context.Context, id int64) (catalog.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cat, ok := c.s.st.categories[id]
	if !ok {
		return catalog.Category{}, catalog.ErrCategoryNotFound
	}
	return c.withSubCategories(cat), nil
}

func (c catalogStore) withSubCategories(cat catalog.Category) catalog.Category {
	cat.SubCategories = nil
	for _, sc := range c.sortedSubCategories() {
		if sc.CategoryID == cat.ID {
			cat.SubCategories = append(cat.SubCategories, sc)
		}
	}
	return cat
}

func (c catalogStore) ListSubCategories(ctx context.Context) ([]catalog.SubCategory, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	out := []catalog.SubCategory{}
	for _, sc := range c.sortedSubCategories() {
		out = append(out, c.withParent(sc))
	}
	return out, nil
}

func (c catalogStore) GetSubCategory(ctx context.Context, id int64) (catalog.SubCategory, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	sc, ok := c.s.st.subCategories[id]
	if !ok {
		return catalog.SubCategory{}, catalog.ErrSubCategoryNotFound
	}
	return c.withParent(sc), nil
}

func (c catalogStore) withParent(sc catalog.SubCategory) catalog.SubCategory {
	parent := c.s.st.categories[sc.CategoryID]
	parent.SubCategories = nil
	sc.Category = &parent
	return sc
}

func (c catalogStore) sortedSubCategories() []catalog.SubCategory {
	out := make([]catalog.SubCategory, 0, len(c.s.st.subCategories))
	for _, sc := range c.s.st.subCategories {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
