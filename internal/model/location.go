package model

import "time"

// Location is a warehouse or store that transfers move stock between.
type Location struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Location kinds.
const (
	LocationKindWarehouse = "warehouse"
	LocationKindStore     = "store"
)

// ValidLocationKind reports whether kind is a known location kind.
func ValidLocationKind(kind string) bool {
	return kind == LocationKindWarehouse || kind == LocationKindStore
}
