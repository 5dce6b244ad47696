package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digistore/internal/models"
	"digistore/internal/services"
	"digistore/internal/storage"
)

func f64Ptr(f float64) *float64 { return &f }

func TestProductService_CreateRejectsBadDiscount(t *testing.T) {
	ctx := context.Background()
	svc := services.NewProductService(storage.NewMemoryStore())

	err := svc.CreateProduct(ctx, &models.Product{
		Name:          "Overpriced",
		Price:         50,
		OriginalPrice: f64Ptr(40),
		Category:      "Misc",
		Stock:         1,
	})
	assert.ErrorIs(t, err, services.ErrInvalidDiscount)

	// Equal prices are not a discount either.
	err = svc.CreateProduct(ctx, &models.Product{
		Name:          "Zero Discount",
		Price:         50,
		OriginalPrice: f64Ptr(50),
		Category:      "Misc",
		Stock:         1,
	})
	assert.ErrorIs(t, err, services.ErrInvalidDiscount)

	err = svc.CreateProduct(ctx, &models.Product{
		Name:          "Real Discount",
		Price:         50,
		OriginalPrice: f64Ptr(80),
		Category:      "Misc",
		Stock:         1,
	})
	assert.NoError(t, err)
}

func TestProductService_UpdateChecksMergedDiscount(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := services.NewProductService(store)

	product := &models.Product{
		Name:          "Discounted",
		Price:         30,
		OriginalPrice: f64Ptr(60),
		Category:      "Misc",
		Stock:         5,
	}
	require.NoError(t, svc.CreateProduct(ctx, product))

	// Raising price above the original must fail even though the patch alone
	// looks valid.
	_, err := svc.UpdateProduct(ctx, product.ID, models.ProductPatch{Price: f64Ptr(70)})
	assert.ErrorIs(t, err, services.ErrInvalidDiscount)

	// And the stored record is untouched.
	got, err := svc.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.Price)

	updated, err := svc.UpdateProduct(ctx, product.ID, models.ProductPatch{Price: f64Ptr(45)})
	require.NoError(t, err)
	assert.Equal(t, 45.0, updated.Price)
}

func TestProductService_CategoryFilterAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := services.NewProductService(storage.NewMemoryStore())

	all, err := svc.GetProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	security, err := svc.GetProducts(ctx, "Security")
	require.NoError(t, err)
	require.Len(t, security, 1)

	require.NoError(t, svc.DeleteProduct(ctx, security[0].ID))
	err = svc.DeleteProduct(ctx, security[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
