package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storefront-service/internal/stores/postgres"
	"storefront-service/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("the email has already been taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("user not found")
	ErrWrongPassword      = errors.New("old password incorrect")
)

type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Country      string    `json:"country,omitempty"`
	State        string    `json:"state,omitempty"`
	City         string    `json:"city,omitempty"`
	Address      string    `json:"address,omitempty"`
	Postcode     string    `json:"postcode,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewUser struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Password  string `json:"password" validate:"required,min=8"`
}

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Profile is the contact and delivery details a user keeps on their account.
type Profile struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Country   string `json:"country" validate:"required"`
	State     string `json:"state" validate:"required"`
	City      string `json:"city" validate:"required"`
	Address   string `json:"address" validate:"required"`
	Postcode  string `json:"postcode"`
}

type PasswordChange struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Store persists users. InsertUser returns ErrEmailTaken for a duplicate email; lookups and
// updates return ErrNotFound for an unknown user.
type Store interface {
	InsertUser(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	UpdateProfile(ctx context.Context, id int64, p Profile) (User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Email = strings.ToLower(strings.TrimSpace(nu.Email))
	if err := validation.Struct(nu); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	u := User{
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		Email:        nu.Email,
		Phone:        nu.Phone,
		PasswordHash: string(hash),
	}
	if err := s.store.InsertUser(ctx, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate checks the credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, l Login) (User, error) {
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	if err := validation.Struct(l); err != nil {
		return User{}, err
	}
	u, err := s.store.GetByEmail(ctx, l.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(l.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, p Profile) (User, error) {
	if err := validation.Struct(p); err != nil {
		return User{}, err
	}
	return s.store.UpdateProfile(ctx, id, p)
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id int64, pc PasswordChange) error {
	if err := validation.Struct(pc); err != nil {
		return err
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pc.OldPassword)); err != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pc.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, id, string(hash))
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

func (c Conf) InsertUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (first_name, last_name, email, phone, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at
	`
	err := c.db.QueryRowContext(ctx, query, u.FirstName, u.LastName, u.Email, u.Phone, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userColumns = `id, first_name, last_name, email, COALESCE(phone, ''), country, state, city, address,
	postcode, password_hash, created_at`

func scanUser(row rowScanner, u *User) error {
	return row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Country, &u.State, &u.City,
		&u.Address, &u.Postcode, &u.PasswordHash, &u.CreatedAt)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (c Conf) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return c.getUser(ctx, query, email)
}

func (c Conf) GetByID(ctx context.Context, id int64) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return c.getUser(ctx, query, id)
}

func (c Conf) getUser(ctx context.Context, query string, arg any) (User, error) {
	var u User
	if err := scanUser(c.db.QueryRowContext(ctx, query, arg), &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (c Conf) UpdateProfile(ctx context.Context, id int64, p Profile) (User, error) {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, phone = $4, country = $5, state = $6, city = $7,
			address = $8, postcode = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	var u User
	err := scanUser(c.db.QueryRowContext(ctx, query, id, p.FirstName, p.LastName, p.Phone, p.Country,
		p.State, p.City, p.Address, p.Postcode), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to update profile: %w", err)
	}
	return u, nil
}

func (c Conf) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
