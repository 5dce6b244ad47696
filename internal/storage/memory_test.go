package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digistore/internal/models"
	"digistore/internal/storage"
)

func strPtr(s string) *string   { return &s }
func intPtr(i int) *int         { return &i }
func f64Ptr(f float64) *float64 { return &f }

func TestMemoryStore_Seeding(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	products, err := store.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 5)
	for i, p := range products {
		assert.Equal(t, i+1, p.ID, "ids should be assigned monotonically from 1")
		assert.GreaterOrEqual(t, p.Stock, 0)
		if p.OriginalPrice != nil {
			assert.Greater(t, *p.OriginalPrice, p.Price)
		}
	}

	admin, err := store.GetUserByEmail(ctx, "admin@digistore.local")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.EmailVerified)
	assert.NotEqual(t, "admin123", admin.Password, "password must be stored hashed")
}

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	product := &models.Product{Name: "VPN 1 Year", Price: 29.99, Category: "Security", Stock: 10}
	require.NoError(t, store.CreateProduct(ctx, product))
	assert.Equal(t, 6, product.ID, "seeded catalog holds ids 1-5")

	got, err := store.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "VPN 1 Year", got.Name)
	assert.Nil(t, got.OriginalPrice)

	// Partial update touches only the patched fields.
	updated, err := store.UpdateProduct(ctx, product.ID, models.ProductPatch{
		Stock:         intPtr(7),
		OriginalPrice: f64Ptr(59.99),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)
	assert.Equal(t, "VPN 1 Year", updated.Name)
	require.NotNil(t, updated.OriginalPrice)
	assert.Equal(t, 59.99, *updated.OriginalPrice)

	_, err = store.UpdateProduct(ctx, 999, models.ProductPatch{Name: strPtr("nope")})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	removed, err := store.DeleteProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.DeleteProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, removed, "second delete finds nothing")

	_, err = store.GetProductByID(ctx, product.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStore_CategoryFilter(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	security, err := store.GetProductsByCategory(ctx, "security")
	require.NoError(t, err)
	require.Len(t, security, 1, "category match is case-insensitive")
	assert.Equal(t, "Security", security[0].Category)

	none, err := store.GetProductsByCategory(ctx, "Games")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_Orders(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	first := &models.Order{
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "555-0100",
		Items:         []models.OrderItem{{ProductID: 1, ProductName: "X", Price: 10, Quantity: 1}},
		Total:         10,
	}
	require.NoError(t, store.CreateOrder(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, models.StatusReceived, first.Status)
	assert.False(t, first.CreatedAt.IsZero())

	time.Sleep(2 * time.Millisecond)
	second := &models.Order{
		CustomerName:  "Bob",
		CustomerEmail: "bob@example.com",
		CustomerPhone: "555-0101",
		Items:         []models.OrderItem{{ProductID: 2, ProductName: "Y", Price: 5, Quantity: 2}},
		Total:         10,
	}
	require.NoError(t, store.CreateOrder(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)

	orders, err := store.GetAllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID, "newest order first")

	updated, err := store.UpdateOrderStatus(ctx, first.ID, models.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, updated.Status)

	_, err = store.UpdateOrderStatus(ctx, "missing", models.StatusCompleted)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	user := &models.User{Email: "Carol@Example.com", Password: "hash", Name: "Carol", Role: models.RoleUser}
	require.NoError(t, store.CreateUser(ctx, user))
	assert.NotEmpty(t, user.ID)

	byEmail, err := store.GetUserByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID, "email lookup is case-insensitive")

	byEmail.Email = "carol@new.example.com"
	require.NoError(t, store.UpdateUser(ctx, byEmail))

	_, err = store.GetUserByEmail(ctx, "carol@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound, "old email index entry must be dropped")
	again, err := store.GetUserByEmail(ctx, "carol@new.example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	require.NoError(t, store.DeleteUser(ctx, user.ID))
	_, err = store.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStore_VerificationCodes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	require.NoError(t, store.SetVerificationCode(ctx, "u1", "123456", time.Minute))
	code, err := store.GetVerificationCode(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	// An expired code behaves like a missing one.
	require.NoError(t, store.SetVerificationCode(ctx, "u2", "654321", -time.Second))
	_, err = store.GetVerificationCode(ctx, "u2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.DeleteVerificationCode(ctx, "u1"))
	_, err = store.GetVerificationCode(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	dump, err := store.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, dump.Products, 5)
	assert.Empty(t, dump.Orders)

	restore := &storage.BackupData{
		Products: []models.Product{{ID: 42, Name: "Restored", Price: 1, Category: "Misc", Stock: 3}},
		Orders:   []models.Order{},
	}
	require.NoError(t, store.Import(ctx, restore))

	products, err := store.GetAllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 42, products[0].ID)

	// The id counter continues past the restored maximum.
	next := &models.Product{Name: "After Restore", Price: 2, Category: "Misc", Stock: 1}
	require.NoError(t, store.CreateProduct(ctx, next))
	assert.Equal(t, 43, next.ID)
}
