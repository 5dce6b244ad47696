package models

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// Order statuses. StatusReceived is the only initial status; the rest are
// reached through the status-update operation.
const (
	StatusReceived   = "received"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ValidOrderStatus reports whether s is one of the four accepted statuses.
func ValidOrderStatus(s string) bool {
	switch s {
	case StatusReceived, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// OrderItem is a line item with the product data snapshotted at purchase time,
// so later catalog edits do not rewrite order history.
type OrderItem struct {
	ProductID    int     `json:"productId" validate:"required,gt=0"`
	ProductName  string  `json:"productName" validate:"required"`
	ProductImage string  `json:"productImage"`
	Price        float64 `json:"price" validate:"gte=0"`
	Quantity     int     `json:"quantity" validate:"required,gte=1"`
}

// Order represents a customer order. Total is supplied by the caller and is
// expected to equal the sum of item subtotals; it is not recomputed here.
type Order struct {
	ID            string      `json:"id"`
	CustomerName  string      `json:"customerName" validate:"required,min=2,max=100"`
	CustomerEmail string      `json:"customerEmail" validate:"required,email"`
	CustomerPhone string      `json:"customerPhone" validate:"required,min=5,max=30"`
	Notes         string      `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items         []OrderItem `json:"items" validate:"required,min=1,dive"`
	Total         float64     `json:"total" validate:"gte=0"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// NewOrderID builds an order id with a time-based prefix and a random suffix,
// e.g. "mf2k3x9q-a81f0c". The prefix keeps ids roughly sortable by creation
// time, the suffix guards against same-millisecond collisions.
func NewOrderID() string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + hex.EncodeToString(buf)
}
