package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Store reads products and their categories.
type Store interface {
	GetProductByID(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, f Filter) ([]Product, error)
	// RelatedProducts lists other products sharing a category with productID, best sellers first.
	RelatedProducts(ctx context.Context, productID int64, limit int) ([]Product, error)

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	ListSubCategories(ctx context.Context) ([]SubCategory, error)
	GetSubCategory(ctx context.Context, id int64) (SubCategory, error)
}

// Conf is the PostgreSQL Store.
type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// Columns lists the product columns read by ScanProduct, qualified with alias when it is not empty.
func Columns(alias string) string {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return fmt.Sprintf(`%[1]sid, %[1]scode, %[1]sname, %[1]sslug, %[1]sdescription, %[1]sprice, %[1]sdiscount,
	COALESCE(%[1]ssku, ''), %[1]sin_stock, COALESCE(%[1]squantity, 0), %[1]ssold, %[1]screated_at`, p)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanProduct reads the columns listed by Columns.
func ScanProduct(row rowScanner, p *Product) error {
	return row.Scan(&p.ID, &p.Code, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Discount, &p.SKU,
		&p.InStock, &p.Quantity, &p.Sold, &p.CreatedAt)
}

func (c Conf) GetProductByID(ctx context.Context, id int64) (Product, error) {
	query := `SELECT ` + Columns("") + ` FROM products WHERE id = $1 AND deleted_at IS NULL`
	var p Product
	err := ScanProduct(c.db.QueryRowContext(ctx, query, id), &p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to query product %d: %w", id, err)
	}
	return p, nil
}

func (c Conf) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	query, args := listQuery(f.Normalize())
	return c.queryProducts(ctx, query, args...)
}

// listQuery builds the product listing query for an already normalized filter.
func listQuery(f Filter) (string, []any) {
	var (
		where = []string{"p.deleted_at IS NULL"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		n := arg("%" + s + "%")
		where = append(where, fmt.Sprintf("(p.name ILIKE %[1]s OR p.description ILIKE %[1]s)", n))
	}
	if f.DealsOnly {
		where = append(where, "p.discount > 0")
	}
	if f.InStockOnly {
		where = append(where, "p.in_stock")
	}
	if f.Category != "" {
		where = append(where, `EXISTS (SELECT 1 FROM category_product cp JOIN categories c ON c.id = cp.category_id
		WHERE cp.product_id = p.id AND c.name = `+arg(f.Category)+`)`)
	}
	if f.CategoryID != 0 {
		where = append(where, `EXISTS (SELECT 1 FROM category_product cp
		WHERE cp.product_id = p.id AND cp.category_id = `+arg(f.CategoryID)+`)`)
	}
	if f.SubCategoryID != 0 {
		where = append(where, `EXISTS (SELECT 1 FROM product_sub_category ps
		WHERE ps.product_id = p.id AND ps.sub_category_id = `+arg(f.SubCategoryID)+`)`)
	}
	if f.Price != nil {
		where = append(where, fmt.Sprintf("p.price BETWEEN %s AND %s", arg(f.Price.From), arg(f.Price.To)))
	}

	limit, offset := arg(f.Limit), arg(f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM products p WHERE %s ORDER BY %s LIMIT %s OFFSET %s`,
		Columns("p"), strings.Join(where, " AND "), orderBy(f.Sort), limit, offset)
	return query, args
}

func (c Conf) RelatedProducts(ctx context.Context, productID int64, limit int) ([]Product, error) {
	query := `
		SELECT ` + Columns("p") + `
		FROM products p
		WHERE p.deleted_at IS NULL AND p.id <> $1 AND EXISTS (
			SELECT 1 FROM category_product mine
			JOIN category_product theirs ON theirs.category_id = mine.category_id
			WHERE mine.product_id = $1 AND theirs.product_id = p.id
		)
		ORDER BY p.sold DESC, p.id ASC
		LIMIT $2
	`
	return c.queryProducts(ctx, query, productID, limit)
}

func (c Conf) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := ScanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func orderBy(sort string) string {
	switch sort {
	case SortPriceAsc:
		return "p.price ASC, p.id ASC"
	case SortPriceDesc:
		return "p.price DESC, p.id ASC"
	case SortName:
		return "p.name ASC, p.id ASC"
	case SortTopSold:
		return "p.sold DESC, p.id ASC"
	case SortDiscount:
		return "p.discount DESC, p.id ASC"
	default:
		return "p.created_at DESC, p.id DESC"
	}
}

func (c Conf) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	subs, err := c.subCategories(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range categories {
		for _, s := range subs {
			if s.CategoryID == categories[i].ID {
				s.Category = nil
				categories[i].SubCategories = append(categories[i].SubCategories, s)
			}
		}
	}
	return categories, nil
}

func (c Conf) GetCategory(ctx context.Context, id int64) (Category, error) {
	var cat Category
	err := c.db.QueryRowContext(ctx, `SELECT id, name, slug FROM categories WHERE id = $1`, id).
		Scan(&cat.ID, &cat.Name, &cat.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, fmt.Errorf("failed to query category %d: %w", id, err)
	}
	subs, err := c.subCategories(ctx, "WHERE s.category_id = $1", id)
	if err != nil {
		return Category{}, err
	}
	for _, s := range subs {
		s.Category = nil
		cat.SubCategories = append(cat.SubCategories, s)
	}
	return cat, nil
}

func (c Conf) ListSubCategories(ctx context.Context) ([]SubCategory, error) {
	return c.subCategories(ctx, "")
}

func (c Conf) GetSubCategory(ctx context.Context, id int64) (SubCategory, error) {
	subs, err := c.subCategories(ctx, "WHERE s.id = $1", id)
	if err != nil {
		return SubCategory{}, err
	}
	if len(subs) == 0 {
		return SubCategory{}, ErrSubCategoryNotFound
	}
	return subs[0], nil
}

// subCategories reads subcategories with their parent category attached.
func (c Conf) subCategories(ctx context.Context, where string, args ...any) ([]SubCategory, error) {
	query := `
		SELECT s.id, s.category_id, s.name, s.slug, c.name, c.slug
		FROM sub_categories s
		JOIN categories c ON c.id = s.category_id
		` + where + `
		ORDER BY s.name, s.id
	`
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subcategories: %w", err)
	}
	defer rows.Close()

	subs := []SubCategory{}
	for rows.Next() {
		var (
			s   SubCategory
			cat Category
		)
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Slug, &cat.Name, &cat.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		cat.ID = s.CategoryID
		s.Category = &cat
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subcategories: %w", err)
	}
	return subs, nil
}
