package storage

import (
	"context"
	"errors"
	"time"

	"digistore/internal/models"
)

// ErrNotFound is returned by lookups for ids/keys with no stored record.
var ErrNotFound = errors.New("record not found")

// BackupData is the admin backup payload: the full product and order sets.
// User accounts (and therefore admin credentials) are deliberately excluded.
type BackupData struct {
	Products []models.Product `json:"products"`
	Orders   []models.Order   `json:"orders"`
}

// Storage is the contract every backend implements. Application code only
// ever sees this interface, via the Facade. All methods are safe for
// concurrent use; durable implementations may do network I/O, so every call
// takes a context.
type Storage interface {
	// Products.
	GetAllProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id int) (*models.Product, error)
	GetProductsByCategory(ctx context.Context, category string) ([]models.Product, error)
	// CreateProduct assigns the next unique id and persists the record.
	CreateProduct(ctx context.Context, product *models.Product) error
	// UpdateProduct merges the patch onto the stored record and returns the
	// result, or ErrNotFound for an unknown id.
	UpdateProduct(ctx context.Context, id int, patch models.ProductPatch) (*models.Product, error)
	// DeleteProduct reports whether a record existed and was removed.
	DeleteProduct(ctx context.Context, id int) (bool, error)

	// Orders. GetAllOrders returns orders sorted by createdAt descending.
	GetAllOrders(ctx context.Context) ([]models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	// CreateOrder assigns the id, initial status and createdAt, then persists.
	CreateOrder(ctx context.Context, order *models.Order) error
	// UpdateOrderStatus is a pure status mutation. Stock side effects are the
	// order service's job, layered on top.
	UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error)

	// Users.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error

	// Email verification codes, expiring after ttl.
	SetVerificationCode(ctx context.Context, userID, code string, ttl time.Duration) error
	GetVerificationCode(ctx context.Context, userID string) (string, error)
	DeleteVerificationCode(ctx context.Context, userID string) error

	// Backup / restore. Import replaces the full product and order sets.
	Export(ctx context.Context) (*BackupData, error)
	Import(ctx context.Context, data *BackupData) error
}
