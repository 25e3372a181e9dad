package store

import (
	"context"
	"errors"
	"time"

	"kadaipos/engine/internal/domain"
)

var (
	// ErrNotFound is returned when a bill, product, category, customer or
	// user id does not exist. Code/barcode lookups are the exception: they
	// return (nil, nil) on a miss, since a scan that matches nothing is a
	// normal outcome at the till.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput covers malformed input rejected before any
	// transaction opens: negative tax rates, zero quantities, blank names.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyCart is returned when a bill is created or updated with no
	// line items.
	ErrEmptyCart = errors.New("empty cart")

	// ErrConstraint is returned for duplicate usernames, phones, product
	// codes and barcodes, and for deleting a category that products still
	// reference. The caller resolves the conflict; nothing is overwritten.
	ErrConstraint = errors.New("constraint violation")

	// ErrDecode is returned when a persisted row cannot be decoded into
	// its typed form, for example a malformed line-item payload.
	ErrDecode = errors.New("decode failure")
)

// Repository is the engine's persistence boundary. Multi-step mutations
// (bill create/update, bulk insert, resets) are atomic inside the
// implementation: they either apply fully or leave no trace.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductByCode(ctx context.Context, code string) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, productID string, delta int) error
	BulkInsertProducts(ctx context.Context, products []domain.Product) error
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	UpdateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	GetBill(ctx context.Context, id string) (*domain.Bill, error)
	ListBillsInRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Bill, error)
	SetPrintStatus(ctx context.Context, billID string, status string) error

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error)

	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	CountUsersByRole(ctx context.Context, role string) (int, error)

	GetSettings(ctx context.Context) (*domain.ShopSettings, error)
	SaveSettings(ctx context.Context, settings domain.ShopSettings) error

	ResetTransactionalData(ctx context.Context) error
	ResetAll(ctx context.Context) error
}
