package model

// DefaultProductImageURL is shown for products created without a picture.
const DefaultProductImageURL = "https://media.istockphoto.com/id/1147544807/vector/thumbnail-image-vector-graphic.jpg?s=612x612&w=0&k=20&c=rnCKVbdxqkjlcs3xH87-9gocETqpspHFXu5dIGB4wuM="

// Product is a catalog entry. AvailableQuantity is the stock not yet
// reserved by any order and never drops below zero.
type Product struct {
	BaseModel
	ScanCode          string `gorm:"type:varchar(64);not null;uniqueIndex:idx_products_scan_code_live,where:deleted_at IS NULL" json:"scan_code" validate:"required,max=64"`
	Name              string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	ImageURL          string `gorm:"type:text" json:"image_url"`
	AvailableQuantity int    `gorm:"not null;default:0;check:available_quantity >= 0" json:"available_quantity" validate:"gte=0"`
	ChangeReason      string `gorm:"type:text" json:"change_reason,omitempty"` // Reason given on the last admin edit
}
