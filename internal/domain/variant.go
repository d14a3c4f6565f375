package domain

import (
	"strings"
	"time"
)

// Variant represents a purchasable SKU of a product.
type Variant struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	SKU           string    `json:"sku"`
	Color         *string   `json:"color,omitempty"`
	Size          *string   `json:"size,omitempty"`
	Material      *string   `json:"material,omitempty"`
	Price         *int64    `json:"price,omitempty"`
	CostPrice     *int64    `json:"cost_price,omitempty"`
	Stock         int       `json:"stock"`
	ReservedStock int       `json:"reserved_stock"`
	MinStockAlert int       `json:"min_stock_alert"`
	WeightGrams   *int      `json:"weight_grams,omitempty"`
	Barcode       *string   `json:"barcode,omitempty"`
	SupplierSKU   *string   `json:"supplier_sku,omitempty"`
	IsActive      bool      `json:"is_active"`
	IsDefault     bool      `json:"is_default"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AvailableStock returns the quantity offerable to new orders, never negative.
func (v *Variant) AvailableStock() int {
	if available := v.Stock - v.ReservedStock; available > 0 {
		return available
	}
	return 0
}

// EffectivePrice returns the variant's price override, or the product base
// price when the variant has none.
func (v *Variant) EffectivePrice(basePrice int64) int64 {
	if v.Price != nil {
		return *v.Price
	}
	return basePrice
}

// IsLowStock reports whether the variant is at or below its alert threshold.
func (v *Variant) IsLowStock() bool {
	return v.IsActive && v.Stock <= v.MinStockAlert
}

// DeriveSKU builds a SKU from the product's SKU prefix and the variant's
// attributes: non-empty parts upper-cased and joined with "-".
func DeriveSKU(prefix string, color, size, material *string) string {
	parts := make([]string, 0, 4)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, attr := range []*string{color, size, material} {
		if attr != nil && *attr != "" {
			parts = append(parts, *attr)
		}
	}
	return strings.ToUpper(strings.Join(parts, "-"))
}
