package domain

import (
	"time"
)

// Product status constants.
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
	ProductStatusDraft    = "draft"
	ProductStatusArchived = "archived"
)

// Product represents a product in the catalog. Prices are minor currency
// units (cents).
type Product struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Slug             string      `json:"slug"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"short_description"`
	BasePrice        int64       `json:"base_price"`
	CategoryID       *string     `json:"category_id,omitempty"`
	Brand            string      `json:"brand,omitempty"`
	SKUPrefix        string      `json:"sku_prefix,omitempty"`
	WeightGrams      *int        `json:"weight_grams,omitempty"`
	Dimensions       *Dimensions `json:"dimensions,omitempty"`
	MetaTitle        string      `json:"meta_title,omitempty"`
	MetaDescription  string      `json:"meta_description,omitempty"`
	Tags             []string    `json:"tags,omitempty"`
	Status           string      `json:"status"`
	IsFeatured       bool        `json:"is_featured"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Dimensions holds physical product dimensions in millimeters.
type Dimensions struct {
	Length int `json:"length"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ProductImage represents an image associated with a product. The bytes live
// in external storage; only the URL and display metadata are kept here.
type ProductImage struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text"`
	SortOrder int       `json:"sort_order"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidStatuses returns the set of valid product statuses.
func ValidStatuses() []string {
	return []string{ProductStatusActive, ProductStatusInactive, ProductStatusDraft, ProductStatusArchived}
}

// IsValidStatus checks whether the given status string is a valid product status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// CanTransition reports whether a product may move from one status to
// another. Archived is terminal; every other pair of distinct valid statuses
// is allowed.
func CanTransition(from, to string) bool {
	if !IsValidStatus(from) || !IsValidStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	if from == ProductStatusArchived {
		return false
	}
	return true
}
