package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product mirrors one МойСклад product. MoyskladID is the join key for every
// sync write; the row is created on first observation and updated in place on
// every later one, never duplicated.
type Product struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	MoyskladID string `gorm:"uniqueIndex;size:255" json:"moysklad_id"`

	Name        string `gorm:"size:500" json:"name"`
	Code        string `gorm:"index;size:255" json:"code"`
	Article     string `gorm:"index;size:255" json:"article"`
	Description string `gorm:"type:text" json:"description"`

	Price decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Cost  decimal.Decimal `gorm:"type:decimal(12,2)" json:"cost"`

	Stock   float64 `json:"stock"`
	Reserve float64 `json:"reserve"`

	IsActive bool `gorm:"default:true" json:"is_active"`
	Archived bool `json:"archived"`

	ExternalCode string `gorm:"size:255" json:"external_code"`
	Barcode      string `gorm:"size:255" json:"barcode"`

	RawData datatypes.JSON `json:"raw_data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastSync  time.Time `json:"last_sync"`
}

// Category mirrors a МойСклад product folder. The parent link is kept by
// external id so folders can arrive in any order.
type Category struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	MoyskladID string `gorm:"uniqueIndex;size:255" json:"moysklad_id"`

	Name             string `gorm:"size:255" json:"name"`
	ParentExternalID string `gorm:"index;size:255" json:"parent_external_id"`

	RawData datatypes.JSON `json:"raw_data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastSync  time.Time `json:"last_sync"`
}

// Order statuses. Remote orders that carry no recognizable state keep
// whatever status the row already has (default "new").
const (
	OrderStatusNew        = "new"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

type Order struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	MoyskladID string `gorm:"uniqueIndex;size:255" json:"moysklad_id"`

	Number string `gorm:"index;size:255" json:"number"`
	Status string `gorm:"size:20;default:new" json:"status"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`

	CustomerName    string `gorm:"size:255" json:"customer_name"`
	CustomerPhone   string `gorm:"size:50" json:"customer_phone"`
	CustomerEmail   string `gorm:"size:255" json:"customer_email"`
	DeliveryAddress string `gorm:"type:text" json:"delivery_address"`
	Comment         string `gorm:"type:text" json:"comment"`

	OrderDate time.Time `gorm:"index" json:"order_date"`

	RawData datatypes.JSON `json:"raw_data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastSync  time.Time `json:"last_sync"`
}

// Sync kinds and run statuses.
const (
	SyncTypeProducts   = "products"
	SyncTypeStock      = "stock"
	SyncTypeOrders     = "orders"
	SyncTypeCategories = "categories"

	SyncStatusStarted = "started"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// SyncRun is the append-only audit record of one sync invocation. A run is
// opened as "started" and closed exactly once as "success" or "error".
type SyncRun struct {
	ID uint `gorm:"primaryKey" json:"id"`

	SyncType string `gorm:"index;size:20" json:"sync_type"`
	Status   string `gorm:"index;size:20;default:started" json:"status"`

	ItemsProcessed int `json:"items_processed"`
	ItemsCreated   int `json:"items_created"`
	ItemsUpdated   int `json:"items_updated"`

	ErrorMessage string `gorm:"type:text" json:"error_message"`

	StartedAt  time.Time  `gorm:"autoCreateTime;index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}
