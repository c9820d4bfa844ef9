package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is an inventory article that line items reference by code.
type CatalogItem struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	ImageMime string          `json:"image_mime,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
