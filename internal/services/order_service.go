package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"digistore/internal/models"
	"digistore/internal/notify"
	"digistore/internal/storage"
)

// Order lifecycle errors.
var (
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInsufficientStock = errors.New("insufficient stock to resume order")
)

// OrderListParams control the paginated order listing.
type OrderListParams struct {
	Page      int
	Limit     int
	Search    string
	SearchBy  string // id, customerName, customerEmail, customerPhone; empty matches any
	SortBy    string // createdAt (default), total, customerName
	SortOrder string // asc or desc (default)
}

// OrderPage is one page of the order listing.
type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

// OrderService is the order lifecycle manager: it owns order creation, the
// status state machine and the stock adjustments that ride on cancellation
// transitions. Status mutations are serialized per order id so concurrent
// requests cannot double-apply stock deltas.
type OrderService struct {
	store    storage.Storage
	notifier *notify.Dispatcher
	log      *logrus.Entry

	mu         sync.Mutex
	orderLocks map[string]*sync.Mutex
}

// NewOrderService creates a new OrderService. The notifier may be nil.
func NewOrderService(store storage.Storage, notifier *notify.Dispatcher, log *logrus.Logger) *OrderService {
	return &OrderService{
		store:      store,
		notifier:   notifier,
		log:        log.WithField("component", "orders"),
		orderLocks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing mutations of one order.
func (s *OrderService) lockFor(orderID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.orderLocks[orderID]
	if !ok {
		m = &sync.Mutex{}
		s.orderLocks[orderID] = m
	}
	return m
}

// GetOrderByID retrieves a single order.
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return s.store.GetOrderByID(ctx, id)
}

// CreateOrder persists a checkout request and enqueues the confirmation and
// admin-alert notifications. Item snapshots and the total come from the
// caller's cart; stock is not decremented here, it only moves through the
// cancellation path (see UpdateOrderStatus).
func (s *OrderService) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if s.notifier != nil {
		payload := map[string]interface{}{
			"orderId":       order.ID,
			"customerName":  order.CustomerName,
			"customerEmail": order.CustomerEmail,
			"total":         order.Total,
			"itemCount":     len(order.Items),
		}
		s.notifier.Enqueue(notify.Event{Kind: notify.KindOrderConfirmation, Payload: payload})
		s.notifier.Enqueue(notify.Event{Kind: notify.KindOrderAdminAlert, Payload: payload})
	}
	return order, nil
}

// UpdateOrderStatus runs the status state machine:
//
//   - setting the current status again is a no-op (no stock side effects);
//   - entering cancelled restores each item's quantity to product stock,
//     best-effort (a missing product is logged and skipped, cancellation
//     itself never fails on it);
//   - leaving cancelled re-decrements stock, all-or-nothing: every decrement
//     is verified before any is applied, and a mid-apply failure rolls back
//     the ones already applied before the error is returned.
//
// The new status is persisted only after stock adjustments succeed.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}

	switch {
	case status == models.StatusCancelled:
		s.restoreStock(ctx, order)
	case order.Status == models.StatusCancelled:
		if err := s.reclaimStock(ctx, order); err != nil {
			return nil, err
		}
	}

	return s.store.UpdateOrderStatus(ctx, id, status)
}

// restoreStock returns each item's quantity to inventory when an order is
// cancelled. Failures are per-item and non-fatal.
func (s *OrderService) restoreStock(ctx context.Context, order *models.Order) {
	for _, item := range order.Items {
		product, err := s.store.GetProductByID(ctx, item.ProductID)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"order":   order.ID,
				"product": item.ProductID,
			}).Warn("skipping stock restoration for unavailable product")
			continue
		}
		newStock := product.Stock + item.Quantity
		if _, err := s.store.UpdateProduct(ctx, item.ProductID, models.ProductPatch{Stock: &newStock}); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"order":   order.ID,
				"product": item.ProductID,
			}).Warn("failed to restore stock")
		}
	}
}

// adjustment is one planned stock decrement for an un-cancel transition.
type adjustment struct {
	productID int
	newStock  int
	quantity  int
}

// reclaimStock re-applies the decrements undone by a cancellation. The first
// pass verifies every product has enough stock; only then are the writes
// issued, with rollback of any applied ones if a write fails.
func (s *OrderService) reclaimStock(ctx context.Context, order *models.Order) error {
	planned := make([]adjustment, 0, len(order.Items))
	for _, item := range order.Items {
		product, err := s.store.GetProductByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: product %d no longer exists", ErrInsufficientStock, item.ProductID)
			}
			return err
		}
		if product.Stock < item.Quantity {
			return fmt.Errorf("%w: product %d has %d in stock, order needs %d",
				ErrInsufficientStock, item.ProductID, product.Stock, item.Quantity)
		}
		planned = append(planned, adjustment{
			productID: item.ProductID,
			newStock:  product.Stock - item.Quantity,
			quantity:  item.Quantity,
		})
	}

	for i, adj := range planned {
		if _, err := s.store.UpdateProduct(ctx, adj.productID, models.ProductPatch{Stock: &adj.newStock}); err != nil {
			s.rollbackReclaim(ctx, order.ID, planned[:i])
			return fmt.Errorf("failed to adjust stock for product %d: %w", adj.productID, err)
		}
	}
	return nil
}

// rollbackReclaim undoes already-applied decrements after a partial failure,
// so stock stays consistent with the still-cancelled order status.
func (s *OrderService) rollbackReclaim(ctx context.Context, orderID string, applied []adjustment) {
	for _, adj := range applied {
		restored := adj.newStock + adj.quantity
		if _, err := s.store.UpdateProduct(ctx, adj.productID, models.ProductPatch{Stock: &restored}); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"order":   orderID,
				"product": adj.productID,
			}).Error("failed to roll back stock adjustment")
		}
	}
}

// ListOrders returns one page of orders, filtered and sorted. The default
// sort is createdAt descending, which the storage layer already provides.
func (s *OrderService) ListOrders(ctx context.Context, params OrderListParams) (*OrderPage, error) {
	orders, err := s.store.GetAllOrders(ctx)
	if err != nil {
		return nil, err
	}

	if params.Search != "" {
		orders = filterOrders(orders, params.Search, params.SearchBy)
	}
	sortOrders(orders, params.SortBy, params.SortOrder)

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 10
	}

	total := len(orders)
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &OrderPage{
		Orders:     orders[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func filterOrders(orders []models.Order, search, searchBy string) []models.Order {
	search = strings.ToLower(search)
	contains := func(v string) bool { return strings.Contains(strings.ToLower(v), search) }

	matches := func(o models.Order) bool {
		switch searchBy {
		case "id":
			return contains(o.ID)
		case "customerName":
			return contains(o.CustomerName)
		case "customerEmail":
			return contains(o.CustomerEmail)
		case "customerPhone":
			return contains(o.CustomerPhone)
		default:
			return contains(o.ID) || contains(o.CustomerName) ||
				contains(o.CustomerEmail) || contains(o.CustomerPhone)
		}
	}

	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if matches(o) {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

func sortOrders(orders []models.Order, sortBy, sortOrder string) {
	asc := sortOrder == "asc"
	less := func(i, j int) bool {
		switch sortBy {
		case "total":
			return orders[i].Total < orders[j].Total
		case "customerName":
			return strings.ToLower(orders[i].CustomerName) < strings.ToLower(orders[j].CustomerName)
		default:
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if asc {
			return less(i, j)
		}
		return less(j, i)
	})
}
