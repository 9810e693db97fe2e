package orders

import (
	"context"
	"strings"

	"storefront-service/internal/identity"
	"storefront-service/internal/validation"
)

// Store reads orders together with their items.
type Store interface {
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	GetByID(ctx context.Context, id int64) (Order, error)
	GetByCodeAndEmail(ctx context.Context, code, email string) (Order, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the orders of an authenticated user, newest first.
func (s *Service) List(ctx context.Context, user identity.Identity) ([]Order, error) {
	if !user.IsAuthenticated() {
		return nil, identity.ErrInvalidIdentity
	}
	return s.store.ListByUser(ctx, user.UserID)
}

// Get returns one of the user's own orders; other users' orders are reported as not found.
func (s *Service) Get(ctx context.Context, user identity.Identity, id int64) (Order, error) {
	if !user.IsAuthenticated() {
		return Order{}, identity.ErrInvalidIdentity
	}
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if order.UserID != user.UserID {
		return Order{}, ErrNotFound
	}
	return order, nil
}

// Track finds an order by its tracking code and the email it was placed with.
func (s *Service) Track(ctx context.Context, code, email string) (Order, error) {
	code, email = strings.TrimSpace(code), strings.TrimSpace(email)
	errs := validation.Errors{}
	if code == "" {
		errs.Add("tracking_code", "The tracking code field is required.")
	}
	if email == "" {
		errs.Add("email", "The email field is required.")
	}
	if len(errs) > 0 {
		return Order{}, errs
	}
	return s.store.GetByCodeAndEmail(ctx, code, email)
}
