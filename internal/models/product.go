package models

// Product represents a digital product (license key, subscription, etc.) in the catalog.
type Product struct {
	ID            int      `json:"id"`
	Name          string   `json:"name" validate:"required,min=2,max=100"`
	Description   string   `json:"description" validate:"omitempty,max=1000"`
	Image         string   `json:"image" validate:"omitempty,max=500"`
	Price         float64  `json:"price" validate:"required,gt=0"`
	OriginalPrice *float64 `json:"originalPrice,omitempty" validate:"omitempty,gt=0"`
	Rating        float64  `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount   int      `json:"reviewCount" validate:"gte=0"`
	Badge         string   `json:"badge,omitempty" validate:"omitempty,max=50"`
	Category      string   `json:"category" validate:"required,max=100"`
	Stock         int      `json:"stock" validate:"gte=0"`
}

// ProductPatch carries a partial product update. Nil fields are left untouched
// on the stored record.
type ProductPatch struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description   *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Image         *string  `json:"image,omitempty" validate:"omitempty,max=500"`
	Price         *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	OriginalPrice *float64 `json:"originalPrice,omitempty" validate:"omitempty,gt=0"`
	Rating        *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ReviewCount   *int     `json:"reviewCount,omitempty" validate:"omitempty,gte=0"`
	Badge         *string  `json:"badge,omitempty" validate:"omitempty,max=50"`
	Category      *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Stock         *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

// Apply merges the patch onto p.
func (patch ProductPatch) Apply(p *Product) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.OriginalPrice != nil {
		p.OriginalPrice = patch.OriginalPrice
	}
	if patch.Rating != nil {
		p.Rating = *patch.Rating
	}
	if patch.ReviewCount != nil {
		p.ReviewCount = *patch.ReviewCount
	}
	if patch.Badge != nil {
		p.Badge = *patch.Badge
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
}
