// Package memory is an in-process implementation of every store, used by tests and local runs
// without PostgreSQL. A transaction holds the store lock and restores a snapshot when it fails.
package memory

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront-service/internal/catalog"
	"storefront-service/internal/identity"
	"storefront-service/internal/orders"
	"storefront-service/internal/payments"
	"storefront-service/internal/users"
)

type cartRow struct {
	id    int64
	owner identity.Identity
	total decimal.Decimal
}

type itemRow struct {
	id        int64
	cartID    int64
	productID int64
	quantity  int
}

type wishlistRow struct {
	id        int64
	owner     identity.Identity
	productID int64
}

type state struct {
	nextID        int64
	products      map[int64]catalog.Product
	categories    map[int64]catalog.Category
	subCategories map[int64]catalog.SubCategory
	users         map[int64]users.User
	carts         map[int64]cartRow
	items         map[int64]itemRow
	wishlists     map[int64]wishlistRow
	payments      map[string]payments.Payment
	orders        map[int64]orders.Order

	// product id → category and subcategory ids
	productCategories    map[int64][]int64
	productSubCategories map[int64][]int64
}

func (s state) clone() state {
	out := s
	out.products = maps.Clone(s.products)
	out.categories = maps.Clone(s.categories)
	out.subCategories = maps.Clone(s.subCategories)
	out.productCategories = maps.Clone(s.productCategories)
	out.productSubCategories = maps.Clone(s.productSubCategories)
	out.users = maps.Clone(s.users)
	out.carts = maps.Clone(s.carts)
	out.items = maps.Clone(s.items)
	out.wishlists = maps.Clone(s.wishlists)
	out.payments = maps.Clone(s.payments)
	out.orders = maps.Clone(s.orders)
	return out
}

type Store struct {
	mu  sync.Mutex
	st  state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st: state{
			products:      map[int64]catalog.Product{},
			categories:    map[int64]catalog.Category{},
			subCategories: map[int64]catalog.SubCategory{},
			users:         map[int64]users.User{},
			carts:         map[int64]cartRow{},
			items:         map[int64]itemRow{},
			wishlists:     map[int64]wishlistRow{},
			payments:      map[string]payments.Payment{},
			orders:        map[int64]orders.Order{},

			productCategories:    map[int64][]int64{},
			productSubCategories: map[int64][]int64{},
		},
		now: time.Now,
	}
}

func (s *Store) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

// withTx runs fn under the store lock and rolls every change back when fn fails.
func (s *Store) withTx(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.st.clone()
	if err := fn(); err != nil {
		s.st = saved
		return err
	}
	return nil
}

// AddProduct seeds a product and returns it with its id and creation time set.
func (s *Store) AddProduct(p catalog.Product) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	} else if p.ID > s.st.nextID {
		s.st.nextID = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.st.products[p.ID] = p
	return p
}

// AddCategory seeds a category and returns it with its id set.
func (s *Store) AddCategory(c catalog.Category) catalog.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.SubCategories = nil
	s.st.categories[c.ID] = c
	return c
}

// AddSubCategory seeds a subcategory under its CategoryID and returns it with its id set.
func (s *Store) AddSubCategory(sc catalog.SubCategory) catalog.SubCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.ID = s.id()
	sc.Category = nil
	s.st.subCategories[sc.ID] = sc
	return sc
}

// Categorize files a product under categories.
func (s *Store) Categorize(productID int64, categoryIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.productCategories[productID] = append(slices.Clone(s.st.productCategories[productID]), categoryIDs...)
}

// SubCategorize files a product under subcategories.
func (s *Store) SubCategorize(productID int64, subCategoryIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.productSubCategories[productID] = append(slices.Clone(s.st.productSubCategories[productID]), subCategoryIDs...)
}

// CartItems lists the owner's cart lines as product id → quantity, or nil when there is no cart.
func (s *Store) CartItems(owner identity.Identity) map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.cartOf(owner)
	if !ok {
		return nil
	}
	out := map[int64]int{}
	for _, item := range s.st.items {
		if item.cartID == row.id {
			out[item.productID] = item.quantity
		}
	}
	return out
}

// HasCart reports whether the owner has a cart row.
func (s *Store) HasCart(owner identity.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cartOf(owner)
	return ok
}

// Payment returns the stored payment with reference.
func (s *Store) Payment(reference string) (payments.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.payments[reference]
	return p, ok
}

// OrderCount is the number of stored orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) cartOf(owner identity.Identity) (cartRow, bool) {
	for _, row := range s.st.carts {
		if row.owner == owner {
			return row, true
		}
	}
	return cartRow{}, false
}

func (s *Store) Catalog() catalog.Store   { return catalogStore{s} }
func (s *Store) Users() users.Store       { return userStore{s} }
func (s *Store) Orders() orders.Store     { return orderStore{s} }
func (s *Store) Payments() payments.Store { return paymentStore{s} }
