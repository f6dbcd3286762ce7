package models

import (
	"time"

	"gorm.io/gorm"
)

// Category represents a listing category shown in the discovery feed
type Category struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null;unique"`
	Description string         `json:"description" gorm:"type:text"`
	Icon        string         `json:"icon" gorm:"type:varchar(255)"`
	Color       string         `json:"color" gorm:"type:varchar(20)"`
	IsActive    bool           `json:"is_active" gorm:"default:true"`
	SortOrder   int            `json:"sort_order" gorm:"default:0"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// CancellationFeeType determines how a cancellation fee is computed
type CancellationFeeType string

const (
	FeeTypePercent CancellationFeeType = "percent"
	FeeTypeFixed   CancellationFeeType = "fixed"
)

// Listing represents a service offered by a provider, discoverable by swiping
type Listing struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ProviderID  uint           `json:"provider_id" gorm:"not null;index"`
	Provider    User           `json:"provider" gorm:"foreignKey:ProviderID"`
	CategoryID  uint           `json:"category_id" gorm:"not null"`
	Category    Category       `json:"category" gorm:"foreignKey:CategoryID"`
	Title       string         `json:"title" gorm:"type:varchar(200);not null"`
	Description string         `json:"description" gorm:"type:text"`
	Price       float64        `json:"price" gorm:"type:decimal(10,2)"`
	PriceUnit   string         `json:"price_unit" gorm:"type:varchar(50)"`
	ImageURL    string         `json:"image_url" gorm:"type:varchar(255)"`
	IsActive    bool           `json:"is_active" gorm:"default:true"`

	// Live cancellation policy. Bookings snapshot these fields at creation
	// time; later edits here never affect existing bookings.
	CancellationCutoffHours int                 `json:"cancellation_cutoff_hours" gorm:"default:24"`
	CancellationFeeType     CancellationFeeType `json:"cancellation_fee_type" gorm:"type:varchar(20);default:'percent';check:cancellation_fee_type IN ('percent','fixed')"`
	CancellationFeeAmount   float64             `json:"cancellation_fee_amount" gorm:"type:decimal(10,2);default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// ListingCreate represents the request structure for creating/updating listings
type ListingCreate struct {
	CategoryID              uint    `json:"category_id" binding:"required"`
	Title                   string  `json:"title" binding:"required"`
	Description             string  `json:"description"`
	Price                   float64 `json:"price" binding:"required"`
	PriceUnit               string  `json:"price_unit"`
	ImageURL                string  `json:"image_url"`
	CancellationCutoffHours int     `json:"cancellation_cutoff_hours"`
	CancellationFeeType     string  `json:"cancellation_fee_type"`
	CancellationFeeAmount   float64 `json:"cancellation_fee_amount"`
}

// TableName specifies the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// TableName specifies the table name for the Listing model
func (Listing) TableName() string {
	return "listings"
}
