package storage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"digistore/internal/models"
)

// DefaultConnectTimeout bounds the durable backend probe at startup.
const DefaultConnectTimeout = 5 * time.Second

// holder wraps the interface value so the active backend can sit behind a
// single atomic pointer.
type holder struct {
	s Storage
}

// Facade presents one Storage over a swappable backend. It starts on a fresh
// MemoryStore and Connect swaps in the durable backend exactly once, before
// traffic is accepted; every call sees either the old or the new backend,
// never a mixed state.
type Facade struct {
	active atomic.Pointer[holder]
	log    *logrus.Logger
}

// NewFacade creates a facade serving from a seeded MemoryStore.
func NewFacade(log *logrus.Logger) *Facade {
	f := &Facade{log: log}
	f.active.Store(&holder{s: NewMemoryStore()})
	return f
}

// Connect races a durable-store connection against timeout. On success the
// active backend is swapped; on failure the facade keeps serving from the
// in-memory fallback and the error is only logged, never surfaced to callers.
func (f *Facade) Connect(ctx context.Context, cfg RedisConfig, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rs := NewRedisStore(cfg, f.log)
	if err := rs.Connect(ctx); err != nil {
		f.log.WithError(err).WithField("addr", cfg.Addr).
			Warn("durable store unavailable, falling back to in-memory storage")
		_ = rs.Close()
		return
	}
	f.active.Store(&holder{s: rs})
	f.log.WithField("addr", cfg.Addr).Info("connected to durable store")
}

// UsingDurable reports whether the durable backend is active.
func (f *Facade) UsingDurable() bool {
	_, ok := f.backend().(*RedisStore)
	return ok
}

func (f *Facade) backend() Storage { return f.active.Load().s }

func (f *Facade) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return f.backend().GetAllProducts(ctx)
}

func (f *Facade) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	return f.backend().GetProductByID(ctx, id)
}

func (f *Facade) GetProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return f.backend().GetProductsByCategory(ctx, category)
}

func (f *Facade) CreateProduct(ctx context.Context, product *models.Product) error {
	return f.backend().CreateProduct(ctx, product)
}

func (f *Facade) UpdateProduct(ctx context.Context, id int, patch models.ProductPatch) (*models.Product, error) {
	return f.backend().UpdateProduct(ctx, id, patch)
}

func (f *Facade) DeleteProduct(ctx context.Context, id int) (bool, error) {
	return f.backend().DeleteProduct(ctx, id)
}

func (f *Facade) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return f.backend().GetAllOrders(ctx)
}

func (f *Facade) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return f.backend().GetOrderByID(ctx, id)
}

func (f *Facade) CreateOrder(ctx context.Context, order *models.Order) error {
	return f.backend().CreateOrder(ctx, order)
}

func (f *Facade) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	return f.backend().UpdateOrderStatus(ctx, id, status)
}

func (f *Facade) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return f.backend().GetUserByID(ctx, id)
}

func (f *Facade) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.backend().GetUserByEmail(ctx, email)
}

func (f *Facade) CreateUser(ctx context.Context, user *models.User) error {
	return f.backend().CreateUser(ctx, user)
}

func (f *Facade) UpdateUser(ctx context.Context, user *models.User) error {
	return f.backend().UpdateUser(ctx, user)
}

func (f *Facade) DeleteUser(ctx context.Context, id string) error {
	return f.backend().DeleteUser(ctx, id)
}

func (f *Facade) SetVerificationCode(ctx context.Context, userID, code string, ttl time.Duration) error {
	return f.backend().SetVerificationCode(ctx, userID, code, ttl)
}

func (f *Facade) GetVerificationCode(ctx context.Context, userID string) (string, error) {
	return f.backend().GetVerificationCode(ctx, userID)
}

func (f *Facade) DeleteVerificationCode(ctx context.Context, userID string) error {
	return f.backend().DeleteVerificationCode(ctx, userID)
}

func (f *Facade) Export(ctx context.Context) (*BackupData, error) {
	return f.backend().Export(ctx)
}

func (f *Facade) Import(ctx context.Context, data *BackupData) error {
	return f.backend().Import(ctx, data)
}
