package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"digistore/internal/models"
)

// MemoryStore is the volatile in-process backend. It exists as a degraded-mode
// fallback when the durable store is unreachable: everything lives in maps and
// is lost on restart.
type MemoryStore struct {
	mu            sync.RWMutex
	products      map[int]models.Product
	orders        map[string]models.Order
	users         map[string]models.User
	emailIndex    map[string]string // email -> user id
	verifyCodes   map[string]verifyCode
	nextProductID int
}

type verifyCode struct {
	code      string
	expiresAt time.Time
}

// NewMemoryStore creates a store pre-seeded with the sample catalog and the
// default admin account.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		products:    make(map[int]models.Product),
		orders:      make(map[string]models.Order),
		users:       make(map[string]models.User),
		emailIndex:  make(map[string]string),
		verifyCodes: make(map[string]verifyCode),
	}
	for _, p := range seedProducts() {
		s.nextProductID++
		p.ID = s.nextProductID
		s.products[p.ID] = p
	}
	if admin, err := seedAdmin(uuid.New().String()); err == nil {
		s.users[admin.ID] = *admin
		s.emailIndex[strings.ToLower(admin.Email)] = admin.ID
	}
	return s
}

func (s *MemoryStore) GetAllProducts(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *MemoryStore) GetProductByID(_ context.Context, id int) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) GetProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	all, err := s.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.Product, 0, len(all))
	for _, p := range all {
		if strings.EqualFold(p.Category, category) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (s *MemoryStore) CreateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProductID++
	product.ID = s.nextProductID
	s.products[product.ID] = *product
	return nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, id int, patch models.ProductPatch) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&p)
	s.products[id] = p
	return &p, nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return false, nil
	}
	delete(s.products, id)
	return true, nil
}

func (s *MemoryStore) GetAllOrders(_ context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (s *MemoryStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order.ID = models.NewOrderID()
	order.Status = models.StatusReceived
	order.CreatedAt = time.Now()
	s.orders[order.ID] = *order
	return nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id, status string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return &o, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	s.emailIndex[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if !strings.EqualFold(existing.Email, user.Email) {
		delete(s.emailIndex, strings.ToLower(existing.Email))
		s.emailIndex[strings.ToLower(user.Email)] = user.ID
	}
	user.UpdatedAt = time.Now()
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.emailIndex, strings.ToLower(u.Email))
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) SetVerificationCode(_ context.Context, userID, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.verifyCodes[userID] = verifyCode{code: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) GetVerificationCode(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vc, ok := s.verifyCodes[userID]
	if !ok || time.Now().After(vc.expiresAt) {
		return "", ErrNotFound
	}
	return vc.code, nil
}

func (s *MemoryStore) DeleteVerificationCode(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.verifyCodes, userID)
	return nil
}

func (s *MemoryStore) Export(ctx context.Context) (*BackupData, error) {
	products, err := s.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.GetAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &BackupData{Products: products, Orders: orders}, nil
}

func (s *MemoryStore) Import(_ context.Context, data *BackupData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[int]models.Product, len(data.Products))
	s.nextProductID = 0
	for _, p := range data.Products {
		s.products[p.ID] = p
		if p.ID > s.nextProductID {
			s.nextProductID = p.ID
		}
	}
	s.orders = make(map[string]models.Order, len(data.Orders))
	for _, o := range data.Orders {
		s.orders[o.ID] = o
	}
	return nil
}
