package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DefaultTelegramLink is the seller contact used when a product has none.
const DefaultTelegramLink = "https://t.me/brandlover88"

type Product struct {
	// ID is assigned in code so the model works against Postgres and the
	// sqlite test DB alike.
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Brand string `gorm:"not null;index" json:"brand"`
	Model string `gorm:"not null" json:"model"`
	Title string `gorm:"not null" json:"title"`

	// Price is kept as a string of digits and an optional decimal point,
	// exactly as entered in the admin form.
	Price       string `gorm:"not null" json:"price"`
	Description string `json:"description"`

	TelegramLink string `gorm:"default:'https://t.me/brandlover88'" json:"telegram_link"`

	// Public image URLs in upload order. Never persisted empty.
	Images datatypes.JSONSlice[string] `json:"images"`

	Featured bool `gorm:"default:false;index" json:"featured"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
