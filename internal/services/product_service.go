package services

import (
	"context"
	"errors"

	"digistore/internal/models"
	"digistore/internal/storage"
)

// ErrInvalidDiscount is returned when a product's original price does not
// exceed its sale price.
var ErrInvalidDiscount = errors.New("original price must be greater than price")

// ProductService handles business logic related to products.
type ProductService struct {
	store storage.Storage
}

// NewProductService creates a new ProductService.
func NewProductService(store storage.Storage) *ProductService {
	return &ProductService{store: store}
}

// GetProducts retrieves the catalog, optionally filtered by category.
func (s *ProductService) GetProducts(ctx context.Context, category string) ([]models.Product, error) {
	if category != "" {
		return s.store.GetProductsByCategory(ctx, category)
	}
	return s.store.GetAllProducts(ctx)
}

// GetProductByID retrieves a single product.
func (s *ProductService) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	return s.store.GetProductByID(ctx, id)
}

// CreateProduct validates the discount rule and persists a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.OriginalPrice != nil && *product.OriginalPrice <= product.Price {
		return ErrInvalidDiscount
	}
	return s.store.CreateProduct(ctx, product)
}

// UpdateProduct merges a partial update onto an existing product. The discount
// rule is checked against the merged result so a price-only patch cannot
// silently invert it.
func (s *ProductService) UpdateProduct(ctx context.Context, id int, patch models.ProductPatch) (*models.Product, error) {
	existing, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *existing
	patch.Apply(&merged)
	if merged.OriginalPrice != nil && *merged.OriginalPrice <= merged.Price {
		return nil, ErrInvalidDiscount
	}
	return s.store.UpdateProduct(ctx, id, patch)
}

// DeleteProduct removes a product; ErrNotFound for an unknown id.
func (s *ProductService) DeleteProduct(ctx context.Context, id int) error {
	removed, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return storage.ErrNotFound
	}
	return nil
}
