package services_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digistore/internal/models"
	"digistore/internal/services"
	"digistore/internal/storage"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newOrderFixture(t *testing.T) (*services.OrderService, *storage.MemoryStore, *models.Product, *models.Order) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := services.NewOrderService(store, nil, quietLogger())

	product := &models.Product{Name: "License Pack", Price: 10, Category: "Misc", Stock: 10}
	require.NoError(t, store.CreateProduct(ctx, product))

	order := &models.Order{
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "555-0100",
		Items: []models.OrderItem{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    3,
		}},
		Total: 30,
	}
	created, err := svc.CreateOrder(ctx, order)
	require.NoError(t, err)
	require.Equal(t, models.StatusReceived, created.Status)
	return svc, store, product, created
}

func productStock(t *testing.T, store storage.Storage, id int) int {
	t.Helper()
	p, err := store.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestOrderService_CreateDoesNotTouchStock(t *testing.T) {
	_, store, product, _ := newOrderFixture(t)
	// Checkout never decrements; stock only moves through the cancellation
	// path.
	assert.Equal(t, 10, productStock(t, store, product.ID))
}

func TestOrderService_CancelRestoresStock(t *testing.T) {
	ctx := context.Background()
	svc, store, product, order := newOrderFixture(t)

	updated, err := svc.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Equal(t, 13, productStock(t, store, product.ID))
}

func TestOrderService_CancelUncancelRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store, product, order := newOrderFixture(t)

	_, err := svc.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 13, productStock(t, store, product.ID))

	updated, err := svc.UpdateOrderStatus(ctx, order.ID, models.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, updated.Status)
	assert.Equal(t, 10, productStock(t, store, product.ID), "restore then reclaim must net to zero")
}

func TestOrderService_SelfTransitionIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, store, product, order := newOrderFixture(t)

	_, err := svc.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 13, productStock(t, store, product.ID))

	// Cancelling an already-cancelled order must not restore again.
	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 13, productStock(t, store, product.ID))

	// Same for a non-cancellation status.
	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.StatusProcessing)
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, 10, productStock(t, store, product.ID))
}

func TestOrderService_NonCancellationTransitionsLeaveStockAlone(t *testing.T) {
	ctx := context.Background()
	svc, store, product, order := newOrderFixture(t)

	for _, status := range []string{models.StatusProcessing, models.StatusCompleted, models.StatusReceived} {
		_, err := svc.UpdateOrderStatus(ctx, order.ID, status)
		require.NoError(t, err)
		assert.Equal(t, 10, productStock(t, store, product.ID))
	}
}

func TestOrderService_UncancelWithInsufficientStockAborts(t *testing.T) {
	ctx := context.Background()
	svc, store, product, order := newOrderFixture(t)

	_, err := svc.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)

	// Deplete the restored stock out from under the cancelled order.
	zero := 0
	_, err = store.UpdateProduct(ctx, product.ID, models.ProductPatch{Stock: &zero})
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.StatusProcessing)
	require.ErrorIs(t, err, services.ErrInsufficientStock)

	// Neither the order status nor the stock moved.
	got, err := store.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, 0, productStock(t, store, product.ID))
}

func TestOrderService_UncancelPartialStockAbortsWhole(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := services.NewOrderService(store, nil, quietLogger())

	rich := &models.Product{Name: "Plenty", Price: 5, Category: "Misc", Stock: 100}
	poor := &models.Product{Name: "Scarce", Price: 5, Category: "Misc", Stock: 0}
	require.NoError(t, store.CreateProduct(ctx, rich))
	require.NoError(t, store.CreateProduct(ctx, poor))

	order := &models.Order{
		CustomerName:  "Bob",
		CustomerEmail: "bob@example.com",
		CustomerPhone: "555-0101",
		Items: []models.OrderItem{
			{ProductID: rich.ID, ProductName: rich.Name, Price: 5, Quantity: 2},
			{ProductID: poor.ID, ProductName: poor.Name, Price: 5, Quantity: 5},
		},
		Total: 35,
	}
	_, err := svc.CreateOrder(ctx, order)
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)
	// Stock now: rich 102, poor 5. Drain poor below the order's need.
	one := 1
	_, err = store.UpdateProduct(ctx, poor.ID, models.ProductPatch{Stock: &one})
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.StatusCompleted)
	require.ErrorIs(t, err, services.ErrInsufficientStock)

	// The sufficient product must not have been decremented either.
	assert.Equal(t, 102, productStock(t, store, rich.ID))
	assert.Equal(t, 1, productStock(t, store, poor.ID))
}

func TestOrderService_CancelWithMissingProductStillCancels(t *testing.T) {
	ctx := context.Background()
	svc, store, product, order := newOrderFixture(t)

	removed, err := store.DeleteProduct(ctx, product.ID)
	require.NoError(t, err)
	require.True(t, removed)

	// Restoration is best-effort; a vanished product cannot block
	// cancellation.
	updated, err := svc.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
}

func TestOrderService_UncancelWithMissingProductFails(t *testing.T) {
	ctx := context.Background()
	svc, store, product, order := newOrderFixture(t)

	_, err := svc.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled)
	require.NoError(t, err)

	removed, err := store.DeleteProduct(ctx, product.ID)
	require.NoError(t, err)
	require.True(t, removed)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.StatusProcessing)
	require.ErrorIs(t, err, services.ErrInsufficientStock)
}

func TestOrderService_InvalidStatusRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _, order := newOrderFixture(t)

	_, err := svc.UpdateOrderStatus(ctx, order.ID, "shipped")
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
}

func TestOrderService_ListOrdersPagination(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := services.NewOrderService(store, nil, quietLogger())

	for i := 0; i < 25; i++ {
		order := &models.Order{
			CustomerName:  "Customer",
			CustomerEmail: "c@example.com",
			CustomerPhone: "555-0000",
			Items:         []models.OrderItem{{ProductID: 1, ProductName: "X", Price: 1, Quantity: 1}},
			Total:         1,
		}
		_, err := svc.CreateOrder(ctx, order)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	page, err := svc.ListOrders(ctx, services.OrderListParams{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 10)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	for i := 1; i < len(page.Orders); i++ {
		assert.False(t, page.Orders[i-1].CreatedAt.Before(page.Orders[i].CreatedAt),
			"default sort is createdAt descending")
	}

	last, err := svc.ListOrders(ctx, services.OrderListParams{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, last.Orders, 5)

	beyond, err := svc.ListOrders(ctx, services.OrderListParams{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Orders)
}

func TestOrderService_ListOrdersSearch(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := services.NewOrderService(store, nil, quietLogger())

	names := []string{"Ada Lovelace", "Grace Hopper", "Adam Smith"}
	for _, name := range names {
		order := &models.Order{
			CustomerName:  name,
			CustomerEmail: name + "@example.com",
			CustomerPhone: "555-0000",
			Items:         []models.OrderItem{{ProductID: 1, ProductName: "X", Price: 1, Quantity: 1}},
			Total:         1,
		}
		_, err := svc.CreateOrder(ctx, order)
		require.NoError(t, err)
	}

	page, err := svc.ListOrders(ctx, services.OrderListParams{
		Search: "ada", SearchBy: "customerName",
	})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2, "substring match is case-insensitive")

	page, err = svc.ListOrders(ctx, services.OrderListParams{
		Search: "grace", SortBy: "customerName", SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "Grace Hopper", page.Orders[0].CustomerName)
}
