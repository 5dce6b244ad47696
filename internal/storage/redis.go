package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"digistore/internal/models"
)

// Key layout of the durable backend.
//
// Products are stored as field hashes (product:{id}) so individual fields can
// be patched; orders are written wholesale as one JSON blob (order:{id})
// because they are never partially updated. That asymmetry is deliberate:
// collapsing orders into field hashes would change write atomicity, and
// expanding products into blobs would make patches read-modify-write races.
const (
	keyProductsList = "products:list" // set of product ids; also the seed sentinel
	keyNextID       = "products:next_id"
	keyOrdersList   = "orders:list"
)

func keyProduct(id int) string       { return "product:" + strconv.Itoa(id) }
func keyOrder(id string) string      { return "order:" + id }
func keyUser(id string) string       { return "user:" + id }
func keyUserEmail(e string) string   { return "user:email:" + strings.ToLower(e) }
func keyVerify(userID string) string { return "verify:" + userID }

// RedisConfig holds the durable backend connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is the durable backend, backed by a remote Redis instance.
type RedisStore struct {
	rdb *redis.Client
	log *logrus.Entry
}

// NewRedisStore builds a client for the given config. No I/O happens until
// Connect.
func NewRedisStore(cfg RedisConfig, log *logrus.Logger) *RedisStore {
	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		log: log.WithField("component", "redis"),
	}
}

// Connect pings the server and seeds the catalog if this instance has never
// been seeded. Seeding is keyed on the products:list sentinel so reconnecting
// to an already-populated store is a no-op.
func (s *RedisStore) Connect(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	exists, err := s.rdb.Exists(ctx, keyProductsList).Result()
	if err != nil {
		return fmt.Errorf("failed to check seed sentinel: %w", err)
	}
	if exists > 0 {
		return nil
	}

	s.log.Info("empty store, seeding sample catalog and admin user")
	for _, p := range seedProducts() {
		product := p
		if err := s.CreateProduct(ctx, &product); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", p.Name, err)
		}
	}
	admin, err := seedAdmin(uuid.New().String())
	if err != nil {
		return fmt.Errorf("failed to build admin user: %w", err)
	}
	if err := s.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error { return s.rdb.Close() }

// encodeProduct serializes every field explicitly to a string. Absent optional
// fields are omitted entirely rather than written as empty strings.
func encodeProduct(p *models.Product) map[string]string {
	fields := map[string]string{
		"name":        p.Name,
		"price":       strconv.FormatFloat(p.Price, 'f', -1, 64),
		"rating":      strconv.FormatFloat(p.Rating, 'f', -1, 64),
		"reviewCount": strconv.Itoa(p.ReviewCount),
		"category":    p.Category,
		"stock":       strconv.Itoa(p.Stock),
	}
	if p.Description != "" {
		fields["description"] = p.Description
	}
	if p.Image != "" {
		fields["image"] = p.Image
	}
	if p.OriginalPrice != nil {
		fields["originalPrice"] = strconv.FormatFloat(*p.OriginalPrice, 'f', -1, 64)
	}
	if p.Badge != "" {
		fields["badge"] = p.Badge
	}
	return fields
}

// decodeProduct parses a field hash back into a typed product. A missing
// optional field decodes to its zero/nil value, never to a coerced zero.
func decodeProduct(id int, fields map[string]string) (*models.Product, error) {
	p := &models.Product{
		ID:          id,
		Name:        fields["name"],
		Description: fields["description"],
		Image:       fields["image"],
		Badge:       fields["badge"],
		Category:    fields["category"],
	}
	var err error
	if p.Price, err = strconv.ParseFloat(fields["price"], 64); err != nil {
		return nil, fmt.Errorf("product %d: bad price %q: %w", id, fields["price"], err)
	}
	if raw, ok := fields["originalPrice"]; ok {
		op, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("product %d: bad originalPrice %q: %w", id, raw, err)
		}
		p.OriginalPrice = &op
	}
	if raw, ok := fields["rating"]; ok {
		if p.Rating, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("product %d: bad rating %q: %w", id, raw, err)
		}
	}
	if raw, ok := fields["reviewCount"]; ok {
		if p.ReviewCount, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("product %d: bad reviewCount %q: %w", id, raw, err)
		}
	}
	if raw, ok := fields["stock"]; ok {
		if p.Stock, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("product %d: bad stock %q: %w", id, raw, err)
		}
	}
	return p, nil
}

func (s *RedisStore) writeProduct(ctx context.Context, p *models.Product) error {
	key := keyProduct(p.ID)
	// Drop the whole hash first so fields removed by this write (e.g. a
	// cleared badge) do not linger from the previous version.
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear product %d: %w", p.ID, err)
	}
	fields := encodeProduct(p)
	args := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		args[k] = v
	}
	if err := s.rdb.HSet(ctx, key, args).Err(); err != nil {
		return fmt.Errorf("failed to write product %d: %w", p.ID, err)
	}
	return nil
}

func (s *RedisStore) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	ids, err := s.rdb.SMembers(ctx, keyProductsList).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list product ids: %w", err)
	}
	products := make([]models.Product, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			s.log.WithField("id", raw).Warn("skipping malformed product id in index")
			continue
		}
		p, err := s.GetProductByID(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				// Dangling index entry, e.g. a delete that lost the SRem.
				s.log.WithField("id", id).Warn("skipping dangling product index entry")
				continue
			}
			return nil, err
		}
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *RedisStore) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	fields, err := s.rdb.HGetAll(ctx, keyProduct(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read product %d: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeProduct(id, fields)
}

func (s *RedisStore) GetProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
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

func (s *RedisStore) CreateProduct(ctx context.Context, product *models.Product) error {
	id, err := s.rdb.Incr(ctx, keyNextID).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate product id: %w", err)
	}
	product.ID = int(id)
	if err := s.writeProduct(ctx, product); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, keyProductsList, product.ID).Err(); err != nil {
		return fmt.Errorf("failed to index product %d: %w", product.ID, err)
	}
	return nil
}

func (s *RedisStore) UpdateProduct(ctx context.Context, id int, patch models.ProductPatch) (*models.Product, error) {
	p, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)
	if err := s.writeProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *RedisStore) DeleteProduct(ctx context.Context, id int) (bool, error) {
	removed, err := s.rdb.Del(ctx, keyProduct(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	if err := s.rdb.SRem(ctx, keyProductsList, id).Err(); err != nil {
		return false, fmt.Errorf("failed to unindex product %d: %w", id, err)
	}
	return removed > 0, nil
}

func (s *RedisStore) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	ids, err := s.rdb.SMembers(ctx, keyOrdersList).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list order ids: %w", err)
	}
	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.GetOrderByID(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				s.log.WithField("id", id).Warn("skipping dangling order index entry")
				continue
			}
			return nil, err
		}
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (s *RedisStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	raw, err := s.rdb.Get(ctx, keyOrder(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read order %s: %w", id, err)
	}
	var order models.Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", id, err)
	}
	return &order, nil
}

func (s *RedisStore) writeOrder(ctx context.Context, order *models.Order) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order %s: %w", order.ID, err)
	}
	if err := s.rdb.Set(ctx, keyOrder(order.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to write order %s: %w", order.ID, err)
	}
	return nil
}

func (s *RedisStore) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = models.NewOrderID()
	order.Status = models.StatusReceived
	order.CreatedAt = time.Now()
	if err := s.writeOrder(ctx, order); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, keyOrdersList, order.ID).Err(); err != nil {
		return fmt.Errorf("failed to index order %s: %w", order.ID, err)
	}
	return nil
}

func (s *RedisStore) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	order, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Status = status
	if err := s.writeOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func encodeUser(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"email":         u.Email,
		"password":      u.Password,
		"name":          u.Name,
		"role":          u.Role,
		"emailVerified": strconv.FormatBool(u.EmailVerified),
		"createdAt":     u.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":     u.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func decodeUser(id string, fields map[string]string) (*models.User, error) {
	u := &models.User{
		ID:       id,
		Email:    fields["email"],
		Password: fields["password"],
		Name:     fields["name"],
		Role:     fields["role"],
	}
	u.EmailVerified, _ = strconv.ParseBool(fields["emailVerified"])
	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["createdAt"]); err != nil {
		return nil, fmt.Errorf("user %s: bad createdAt %q: %w", id, fields["createdAt"], err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updatedAt"]); err != nil {
		return nil, fmt.Errorf("user %s: bad updatedAt %q: %w", id, fields["updatedAt"], err)
	}
	return u, nil
}

func (s *RedisStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	fields, err := s.rdb.HGetAll(ctx, keyUser(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeUser(id, fields)
}

func (s *RedisStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := s.rdb.Get(ctx, keyUserEmail(email)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user email %s: %w", email, err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *RedisStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := s.rdb.HSet(ctx, keyUser(user.ID), encodeUser(user)).Err(); err != nil {
		return fmt.Errorf("failed to write user %s: %w", user.ID, err)
	}
	if err := s.rdb.Set(ctx, keyUserEmail(user.Email), user.ID, 0).Err(); err != nil {
		return fmt.Errorf("failed to index user email %s: %w", user.Email, err)
	}
	return nil
}

func (s *RedisStore) UpdateUser(ctx context.Context, user *models.User) error {
	existing, err := s.GetUserByID(ctx, user.ID)
	if err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	if err := s.rdb.HSet(ctx, keyUser(user.ID), encodeUser(user)).Err(); err != nil {
		return fmt.Errorf("failed to write user %s: %w", user.ID, err)
	}
	if !strings.EqualFold(existing.Email, user.Email) {
		if err := s.rdb.Del(ctx, keyUserEmail(existing.Email)).Err(); err != nil {
			return fmt.Errorf("failed to drop stale email index for user %s: %w", user.ID, err)
		}
		if err := s.rdb.Set(ctx, keyUserEmail(user.Email), user.ID, 0).Err(); err != nil {
			return fmt.Errorf("failed to index user email %s: %w", user.Email, err)
		}
	}
	return nil
}

func (s *RedisStore) DeleteUser(ctx context.Context, id string) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, keyUser(id), keyUserEmail(user.Email), keyVerify(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) SetVerificationCode(ctx context.Context, userID, code string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, keyVerify(userID), code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification code for %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) GetVerificationCode(ctx context.Context, userID string) (string, error) {
	code, err := s.rdb.Get(ctx, keyVerify(userID)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read verification code for %s: %w", userID, err)
	}
	return code, nil
}

func (s *RedisStore) DeleteVerificationCode(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, keyVerify(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete verification code for %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Export(ctx context.Context) (*BackupData, error) {
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

// Import wipes the stored product and order sets and replaces them with the
// backup contents. User records are untouched.
func (s *RedisStore) Import(ctx context.Context, data *BackupData) error {
	existing, err := s.rdb.SMembers(ctx, keyProductsList).Result()
	if err != nil {
		return fmt.Errorf("failed to list products for restore: %w", err)
	}
	for _, raw := range existing {
		if id, err := strconv.Atoi(raw); err == nil {
			if err := s.rdb.Del(ctx, keyProduct(id)).Err(); err != nil {
				return fmt.Errorf("failed to clear product %d: %w", id, err)
			}
		}
	}
	if err := s.rdb.Del(ctx, keyProductsList).Err(); err != nil {
		return fmt.Errorf("failed to clear product index: %w", err)
	}

	maxID := 0
	for _, p := range data.Products {
		product := p
		if err := s.writeProduct(ctx, &product); err != nil {
			return err
		}
		if err := s.rdb.SAdd(ctx, keyProductsList, product.ID).Err(); err != nil {
			return fmt.Errorf("failed to index product %d: %w", product.ID, err)
		}
		if product.ID > maxID {
			maxID = product.ID
		}
	}
	if err := s.rdb.Set(ctx, keyNextID, maxID, 0).Err(); err != nil {
		return fmt.Errorf("failed to reset id counter: %w", err)
	}

	existingOrders, err := s.rdb.SMembers(ctx, keyOrdersList).Result()
	if err != nil {
		return fmt.Errorf("failed to list orders for restore: %w", err)
	}
	for _, id := range existingOrders {
		if err := s.rdb.Del(ctx, keyOrder(id)).Err(); err != nil {
			return fmt.Errorf("failed to clear order %s: %w", id, err)
		}
	}
	if err := s.rdb.Del(ctx, keyOrdersList).Err(); err != nil {
		return fmt.Errorf("failed to clear order index: %w", err)
	}
	for _, o := range data.Orders {
		order := o
		if err := s.writeOrder(ctx, &order); err != nil {
			return err
		}
		if err := s.rdb.SAdd(ctx, keyOrdersList, order.ID).Err(); err != nil {
			return fmt.Errorf("failed to index order %s: %w", order.ID, err)
		}
	}
	return nil
}
