package domain

// PriceRange holds the minimum and maximum effective variant price.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// ProductDetail is the assembled aggregate view of a product: its variants,
// images, and the derived availability fields computed from active variants.
type ProductDetail struct {
	Product
	Variants []Variant      `json:"variants"`
	Images   []ProductImage `json:"images"`

	AvailableColors    []string   `json:"available_colors"`
	AvailableSizes     []string   `json:"available_sizes"`
	AvailableMaterials []string   `json:"available_materials"`
	PriceRange         PriceRange `json:"price_range"`
	TotalStock         int        `json:"total_stock"`
	AvailableStock     int        `json:"available_stock"`
	IsInStock          bool       `json:"is_in_stock"`
	LowStockVariants   []Variant  `json:"low_stock_variants"`
}

// ProductListItem is a product summary for listing endpoints. It carries the
// same derived fields as ProductDetail but only the primary image.
type ProductListItem struct {
	Product
	PrimaryImage *ProductImage `json:"primary_image,omitempty"`

	AvailableColors []string   `json:"available_colors"`
	AvailableSizes  []string   `json:"available_sizes"`
	PriceRange      PriceRange `json:"price_range"`
	AvailableStock  int        `json:"available_stock"`
	IsInStock       bool       `json:"is_in_stock"`
}

// NewProductDetail assembles the aggregate view from a product and its
// variants and images. Attribute sets only include values from active
// variants with available stock; stock totals span all active variants.
func NewProductDetail(p Product, variants []Variant, images []ProductImage) ProductDetail {
	d := ProductDetail{
		Product:            p,
		Variants:           variants,
		Images:             images,
		AvailableColors:    []string{},
		AvailableSizes:     []string{},
		AvailableMaterials: []string{},
		LowStockVariants:   []Variant{},
		PriceRange:         PriceRange{Min: p.BasePrice, Max: p.BasePrice},
	}

	colors := map[string]struct{}{}
	sizes := map[string]struct{}{}
	materials := map[string]struct{}{}
	priceSet := false

	for _, v := range variants {
		if !v.IsActive {
			continue
		}

		d.TotalStock += v.Stock
		d.AvailableStock += v.AvailableStock()

		price := v.EffectivePrice(p.BasePrice)
		if !priceSet || price < d.PriceRange.Min {
			d.PriceRange.Min = price
		}
		if !priceSet || price > d.PriceRange.Max {
			d.PriceRange.Max = price
		}
		priceSet = true

		if v.IsLowStock() {
			d.LowStockVariants = append(d.LowStockVariants, v)
		}

		if v.AvailableStock() <= 0 {
			continue
		}
		if v.Color != nil && *v.Color != "" {
			if _, seen := colors[*v.Color]; !seen {
				colors[*v.Color] = struct{}{}
				d.AvailableColors = append(d.AvailableColors, *v.Color)
			}
		}
		if v.Size != nil && *v.Size != "" {
			if _, seen := sizes[*v.Size]; !seen {
				sizes[*v.Size] = struct{}{}
				d.AvailableSizes = append(d.AvailableSizes, *v.Size)
			}
		}
		if v.Material != nil && *v.Material != "" {
			if _, seen := materials[*v.Material]; !seen {
				materials[*v.Material] = struct{}{}
				d.AvailableMaterials = append(d.AvailableMaterials, *v.Material)
			}
		}
	}

	d.IsInStock = d.AvailableStock > 0
	return d
}

// ListItem reduces the detail view to its listing summary, attaching the
// primary image when one exists.
func (d *ProductDetail) ListItem() ProductListItem {
	item := ProductListItem{
		Product:         d.Product,
		AvailableColors: d.AvailableColors,
		AvailableSizes:  d.AvailableSizes,
		PriceRange:      d.PriceRange,
		AvailableStock:  d.AvailableStock,
		IsInStock:       d.IsInStock,
	}
	for i := range d.Images {
		if d.Images[i].IsPrimary {
			item.PrimaryImage = &d.Images[i]
			break
		}
	}
	return item
}

// ProductOptions describes which attribute combinations are purchasable,
// derived from active variants with available stock.
type ProductOptions struct {
	Colors    []ColorOption `json:"colors"`
	Sizes     []SizeOption  `json:"sizes"`
	Materials []string      `json:"materials"`
}

// ColorOption lists the sizes and total available stock for one color.
type ColorOption struct {
	Color          string   `json:"color"`
	AvailableSizes []string `json:"available_sizes"`
	Stock          int      `json:"stock"`
}

// SizeOption lists the colors and total available stock for one size.
type SizeOption struct {
	Size            string   `json:"size"`
	AvailableColors []string `json:"available_colors"`
	Stock           int      `json:"stock"`
}

// BuildProductOptions groups active, in-stock variants by color and size.
// Result ordering follows first appearance in the variant sequence.
func BuildProductOptions(variants []Variant) ProductOptions {
	opts := ProductOptions{
		Colors:    []ColorOption{},
		Sizes:     []SizeOption{},
		Materials: []string{},
	}

	colorIdx := map[string]int{}
	sizeIdx := map[string]int{}
	materialSeen := map[string]struct{}{}
	colorSizes := map[string]map[string]struct{}{}
	sizeColors := map[string]map[string]struct{}{}

	for _, v := range variants {
		if !v.IsActive || v.AvailableStock() <= 0 {
			continue
		}

		var color, size string
		if v.Color != nil {
			color = *v.Color
		}
		if v.Size != nil {
			size = *v.Size
		}

		if color != "" {
			idx, ok := colorIdx[color]
			if !ok {
				idx = len(opts.Colors)
				colorIdx[color] = idx
				opts.Colors = append(opts.Colors, ColorOption{Color: color, AvailableSizes: []string{}})
				colorSizes[color] = map[string]struct{}{}
			}
			opts.Colors[idx].Stock += v.AvailableStock()
			if size != "" {
				if _, seen := colorSizes[color][size]; !seen {
					colorSizes[color][size] = struct{}{}
					opts.Colors[idx].AvailableSizes = append(opts.Colors[idx].AvailableSizes, size)
				}
			}
		}

		if size != "" {
			idx, ok := sizeIdx[size]
			if !ok {
				idx = len(opts.Sizes)
				sizeIdx[size] = idx
				opts.Sizes = append(opts.Sizes, SizeOption{Size: size, AvailableColors: []string{}})
				sizeColors[size] = map[string]struct{}{}
			}
			opts.Sizes[idx].Stock += v.AvailableStock()
			if color != "" {
				if _, seen := sizeColors[size][color]; !seen {
					sizeColors[size][color] = struct{}{}
					opts.Sizes[idx].AvailableColors = append(opts.Sizes[idx].AvailableColors, color)
				}
			}
		}

		if v.Material != nil && *v.Material != "" {
			if _, seen := materialSeen[*v.Material]; !seen {
				materialSeen[*v.Material] = struct{}{}
				opts.Materials = append(opts.Materials, *v.Material)
			}
		}
	}

	return opts
}
